package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/Cheese-Web/internal/rules"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	squareSize = 64
	margin     = 24
	boardSize  = squareSize * 8
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	backgroundColor = color.RGBA{38, 36, 33, 255}
	coordinateColor = color.RGBA{214, 208, 196, 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
)

type PNGOptions struct {
	// LastMove is a UCI move whose squares are highlighted.
	LastMove string
}

// BoardPNG rasterizes fen with coordinates around the board.
func BoardPNG(ctx context.Context, fen string, perspective rules.Color, opts PNGOptions) ([]byte, error) {
	board, _, err := loadBoard(fen)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	total := boardSize + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)
	origin := image.Point{X: margin, Y: margin}
	grid := squareGrid(perspective)

	highlighted := lastMoveSquares(opts.LastMove)
	for row := range grid {
		for col, sq := range grid[row] {
			rect := cellRect(origin, row, col)
			clr := darkSquare
			if isLight(sq) {
				clr = lightSquare
			}
			draw.Draw(img, rect, image.NewUniform(clr), image.Point{}, draw.Src)
			if highlighted[sq.String()] {
				fillOver(img, rect, lastMoveFill)
			}
			p := board[sq]
			if p == nchess.NoPiece {
				continue
			}
			pieceImg, err := renderPiece(p, squareSize)
			if err != nil {
				return nil, err
			}
			draw.Draw(img, rect, pieceImg, image.Point{}, draw.Over)
		}
	}
	drawCoordinates(img, grid, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func cellRect(origin image.Point, row, col int) image.Rectangle {
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func lastMoveSquares(uci string) map[string]bool {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if len(uci) < 4 {
		return nil
	}
	return map[string]bool{uci[0:2]: true, uci[2:4]: true}
}

func fillOver(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	draw.Draw(img, rect, image.NewUniform(clr), image.Point{}, draw.Over)
}

func drawCoordinates(img *image.RGBA, grid [8][8]nchess.Square, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(coordinateColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()

	for row := 0; row < 8; row++ {
		label := grid[row][0].Rank().String()
		y := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCentered(drawer, label, margin/2, y)
	}
	for col := 0; col < 8; col++ {
		label := grid[7][col].File().String()
		x := origin.X + col*squareSize + squareSize/2
		drawCentered(drawer, label, x, origin.Y+boardSize+margin/2+ascent/2)
	}
}

func drawCentered(d *font.Drawer, text string, centerX, baseline int) {
	w := d.MeasureString(text).Ceil()
	d.Dot = fixed.P(centerX-w/2, baseline)
	d.DrawString(text)
}
