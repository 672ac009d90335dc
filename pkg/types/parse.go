package types

import (
	"fmt"
	"strings"
)

// Prefixes lists the precision tags in the order of their documentation.
const Prefixes = "isdcz"

// FromPrefix returns the default scalar selected by a precision tag.
func FromPrefix(c byte) (ScalarType, bool) {
	switch c {
	case 'i':
		return Scalar(Integer, 4), true
	case 's':
		return Scalar(Real, 4), true
	case 'd':
		return Scalar(Real, 8), true
	case 'c':
		return Scalar(Complex, 8), true
	case 'z':
		return Scalar(Complex, 16), true
	default:
		return ScalarType{}, false
	}
}

var scalarNames = map[string]ScalarType{
	"int":        Scalar(Integer, 4),
	"int32":      Scalar(Integer, 4),
	"int64":      Scalar(Integer, 8),
	"float":      Scalar(Real, 8),
	"double":     Scalar(Real, 8),
	"real":       Scalar(Real, 8),
	"float64":    Scalar(Real, 8),
	"real64":     Scalar(Real, 8),
	"float32":    Scalar(Real, 4),
	"single":     Scalar(Real, 4),
	"real32":     Scalar(Real, 4),
	"complex":    Scalar(Complex, 16),
	"complex128": Scalar(Complex, 16),
	"complex64":  Scalar(Complex, 8),
	"bool":       Scalar(Bool, 4),
}

// Parse reads a type spelled the way function decorators spell it:
// "double", "int[:,:]", "(int, double)".
func Parse(s string) (Type, error) {
	p := &typeParser{src: s}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("invalid type %q: unexpected %q", s, p.src[p.pos:])
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpaces() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) parse() (Type, error) {
	if p.peek() == '(' {
		p.pos++
		var elts []Type
		for {
			el, err := p.parse()
			if err != nil {
				return nil, err
			}
			elts = append(elts, el)
			switch p.peek() {
			case ',':
				p.pos++
			case ')':
				p.pos++
				return Tuple(elts...), nil
			default:
				return nil, fmt.Errorf("invalid type %q: unterminated tuple", p.src)
			}
		}
	}
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	name := strings.ToLower(p.src[start:p.pos])
	scalar, ok := scalarNames[name]
	if !ok {
		return nil, fmt.Errorf("invalid type %q: unknown scalar %q", p.src, name)
	}
	if p.peek() == '[' {
		end := strings.IndexByte(p.src[p.pos:], ']')
		if end < 0 {
			return nil, fmt.Errorf("invalid type %q: unterminated rank", p.src)
		}
		dims := p.src[p.pos+1 : p.pos+end]
		for _, d := range strings.Split(dims, ",") {
			if strings.TrimSpace(d) != ":" {
				return nil, fmt.Errorf("invalid type %q: bad dimension %q", p.src, d)
			}
			scalar.Rank++
		}
		p.pos += end + 1
	}
	return scalar, nil
}

func isNameChar(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '_'
}
