package render

import (
	"html/template"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/Cheese-Web/internal/rules"
)

// BoardHTML renders fen as the chessboard table used by the game page and the
// live stream.
func BoardHTML(fen string, perspective rules.Color) (template.HTML, error) {
	board, _, err := loadBoard(fen)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(`<table id="chessboard" class="chess-board">`)
	for _, row := range squareGrid(perspective) {
		b.WriteString("<tr>")
		for _, sq := range row {
			class := "chess-square-dark"
			if isLight(sq) {
				class = "chess-square-light"
			}
			glyph := ""
			if p := board[sq]; p != nchess.NoPiece {
				sym := pieceSymbol(p)
				class += " chess-piece-" + sym
				glyph = glyphs[sym]
			}
			b.WriteString(`<td id="`)
			b.WriteString(sq.String())
			b.WriteString(`" class="`)
			b.WriteString(class)
			b.WriteString(`">`)
			b.WriteString(glyph)
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return template.HTML(b.String()), nil
}
