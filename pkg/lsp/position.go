package lsp

import (
	"strings"
	"unicode/utf16"

	"github.com/sourcegraph/go-lsp"

	"fpc/pkg/ast"
)

// lines indexes a document by line. The parser counts columns in bytes,
// the protocol in UTF-16 code units.
type lines []string

func splitLines(content string) lines {
	return strings.Split(content, "\n")
}

// pos converts a 0-based protocol position into a 1-based source position.
func (ls lines) pos(p lsp.Position) ast.Pos {
	col := p.Character
	if p.Line >= 0 && p.Line < len(ls) {
		col = byteOffset(ls[p.Line], p.Character)
	}
	return ast.Pos{Line: p.Line + 1, Col: col + 1}
}

// tokenRange converts a 1-based source position into a 0-based protocol
// range covering width bytes.
func (ls lines) tokenRange(p ast.Pos, width int) lsp.Range {
	line, start, end := p.Line-1, p.Col-1, p.Col-1+width
	if line >= 0 && line < len(ls) {
		start, end = utf16Len(ls[line], start), utf16Len(ls[line], end)
	}
	return lsp.Range{
		Start: lsp.Position{Line: line, Character: start},
		End:   lsp.Position{Line: line, Character: end},
	}
}

// byteOffset is the byte offset of the rune holding UTF-16 code unit units
// of line. Offsets past the end of line count one byte per unit.
func byteOffset(line string, units int) int {
	n := 0
	for i, r := range line {
		w := utf16.RuneLen(r)
		if n+w > units {
			return i
		}
		n += w
	}
	return len(line) + units - n
}

// utf16Len is the number of UTF-16 code units in the first n bytes of line.
func utf16Len(line string, n int) int {
	extra := 0
	if n > len(line) {
		extra, n = n-len(line), len(line)
	}
	units := 0
	for _, r := range line[:max(n, 0)] {
		units += utf16.RuneLen(r)
	}
	return units + extra
}
