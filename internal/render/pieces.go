package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece outlines on a 45x45 canvas. %[1]s is the fill, %[2]s the stroke.
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="14" r="5.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<path d="M17 21 L28 21 L31 32 L35 37 L10 37 L14 32 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Knight: `<path d="M14 37 L34 37 L33 30 C33 20 29 11 21 9 L20 6 L17 10 C13 12 10 17 10 21 L13 23 L18 20 C19 24 16 27 14 30 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="17" cy="14" r="1.2" fill="%[2]s"/>`,
	nchess.Bishop: `<circle cx="22.5" cy="8" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<path d="M22.5 11 C15 17 15 25 17 28 L28 28 C30 25 30 17 22.5 11 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="11" y="31" width="23" height="6" rx="2" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Rook: `<path d="M11 9 L15 9 L15 12 L20 12 L20 9 L25 9 L25 12 L30 12 L30 9 L34 9 L34 15 L31 18 L31 30 L34 33 L34 37 L11 37 L11 33 L14 30 L14 18 L11 15 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Queen: `<path d="M9 14 L14 28 L14 33 L31 33 L31 28 L36 14 L29 24 L27 10 L22.5 23 L18 10 L16 24 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="11" y="33" width="23" height="4" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="9" cy="12" r="2" fill="%[1]s" stroke="%[2]s"/><circle cx="18" cy="8" r="2" fill="%[1]s" stroke="%[2]s"/>
<circle cx="27" cy="8" r="2" fill="%[1]s" stroke="%[2]s"/><circle cx="36" cy="12" r="2" fill="%[1]s" stroke="%[2]s"/>`,
	nchess.King: `<path d="M21 4 L24 4 L24 7 L27 7 L27 10 L24 10 L24 14 L21 14 L21 10 L18 10 L18 7 L21 7 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.2"/>
<path d="M22.5 16 C14 14 8 20 11 27 L14 32 L31 32 L34 27 C37 20 31 14 22.5 16 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="12" y="32" width="21" height="5" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
}

func pieceSVG(p nchess.Piece) ([]byte, error) {
	shape, ok := pieceShapes[p.Type()]
	if !ok {
		return nil, fmt.Errorf("no shape for piece %v", p)
	}
	fill, stroke := "#f7f3ea", "#1d1d1d"
	if p.Color() == nchess.Black {
		fill, stroke = "#262421", "#d9d4c7"
	}
	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&buf, shape, fill, stroke)
	buf.WriteString(`</svg>`)
	return buf.Bytes(), nil
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPiece(p nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: p, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
