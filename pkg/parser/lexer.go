package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"fpc/pkg/ast"
)

const (
	ASSIGN = iota + 1 // =
	COLON
	COMMA
	IDENT
	LAMBDA
	LPAREN
	NUMBER
	RPAREN
	UNDERSCORE
	WALRUS // :=
	EOF
)

var tokNames = map[int]string{
	ASSIGN:     "'='",
	COLON:      "':'",
	COMMA:      "','",
	IDENT:      "identifier",
	LAMBDA:     "'lambda'",
	LPAREN:     "'('",
	NUMBER:     "number",
	RPAREN:     "')'",
	UNDERSCORE: "'_'",
	WALRUS:     "':='",
	EOF:        "end of input",
}

type Tok struct {
	ast.Pos
	typ int
	lit string
}

func (t Tok) String() string {
	return fmt.Sprintf("Tok('%s' %d:%d)", t.lit, t.Line, t.Col)
}

func (t Tok) describe() string {
	if t.typ == EOF {
		return tokNames[EOF]
	}
	return fmt.Sprintf("'%s'", t.lit)
}

func lower(ch rune) rune { return ('a' - 'A') | ch } // returns lower-case ch iff ch is ASCII letter

func isLetter(ch rune) bool {
	return 'a' <= lower(ch) && lower(ch) <= 'z' || ch == '_' || ch >= utf8.RuneSelf && unicode.IsLetter(ch)
}

func isDecimal(ch rune) bool { return '0' <= ch && ch <= '9' }

func isDigit(ch rune) bool {
	return isDecimal(ch) || ch >= utf8.RuneSelf && unicode.IsDigit(ch)
}

type TokenStream struct {
	pos    int
	tokens []Tok
	eof    ast.Pos
}

func NewTokenStream(src string) *TokenStream {
	tokens, eof := lexer(src)
	return &TokenStream{tokens: tokens, eof: eof}
}

func (s *TokenStream) Back() {
	s.pos--
}

func (s *TokenStream) Next() Tok {
	if s.pos >= len(s.tokens) {
		return Tok{Pos: s.eof, typ: EOF}
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok
}

func (s *TokenStream) Peek() Tok {
	if s.pos >= len(s.tokens) {
		return Tok{Pos: s.eof, typ: EOF}
	}
	return s.tokens[s.pos]
}

func lexer(src string) (out []Tok, eof ast.Pos) {
	line, col := 1, 1
	for i := 0; i < len(src); i++ {
		pos := ast.Pos{Line: line, Col: col}
		col++
		c := src[i]
		switch c {
		case '\n':
			line++
			col = 1
		case ' ', '\t', '\r':
		case '#':
			for i+1 < len(src) && src[i+1] != '\n' {
				i++
			}
		case '(':
			out = append(out, Tok{pos, LPAREN, "("})
		case ')':
			out = append(out, Tok{pos, RPAREN, ")"})
		case ',':
			out = append(out, Tok{pos, COMMA, ","})
		case '=':
			out = append(out, Tok{pos, ASSIGN, "="})
		case ':':
			if i+1 < len(src) && src[i+1] == '=' {
				i++
				col++
				out = append(out, Tok{pos, WALRUS, ":="})
			} else {
				out = append(out, Tok{pos, COLON, ":"})
			}
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			if r == utf8.RuneError && size <= 1 {
				panic(&SyntaxError{Pos: pos, Msg: fmt.Sprintf("invalid UTF-8 byte %#x", c)})
			}
			if isLetter(r) {
				tok := scanIdentifier(pos, src, i)
				i += len(tok.lit) - 1
				col += len(tok.lit) - 1
				out = append(out, tok)
			} else if isDecimal(rune(c)) || c == '.' && i+1 < len(src) && isDecimal(rune(src[i+1])) {
				tok := scanNumber(pos, src, i)
				i += len(tok.lit) - 1
				col += len(tok.lit) - 1
				out = append(out, tok)
			} else {
				panic(&SyntaxError{Pos: pos, Msg: fmt.Sprintf("invalid character '%c'", r)})
			}
		}
	}
	return out, ast.Pos{Line: line, Col: col}
}

func scanIdentifier(p ast.Pos, src string, pos int) Tok {
	i := pos
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		if !isLetter(r) && !isDigit(r) {
			break
		}
		i += size
	}
	lit := src[pos:i]
	switch lit {
	case "lambda":
		return Tok{p, LAMBDA, lit}
	case "_":
		return Tok{p, UNDERSCORE, lit}
	}
	return Tok{p, IDENT, lit}
}

// scanNumber accepts integers, decimals and an optional exponent: 1, 2.5, .5, 1e-3.
func scanNumber(p ast.Pos, src string, pos int) Tok {
	i := pos
	digits := func() {
		for i < len(src) && isDecimal(rune(src[i])) {
			i++
		}
	}
	digits()
	if i < len(src) && src[i] == '.' {
		i++
		digits()
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDecimal(rune(src[j])) {
			i = j
			digits()
		}
	}
	return Tok{p, NUMBER, src[pos:i]}
}
