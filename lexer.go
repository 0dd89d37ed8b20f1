package hdlsym

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

// multi-character operators, longest first
var operators = []string{
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+", "-", "*", "&", "|", "^", "~", "!", "<", ">",
	"(", ")", "[", "]", "{", "}", ":", ",",
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, token{kind: tokEOF, pos: l.pos})
			return l.tokens, nil
		}
		if err := l.next(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
}

func (l *lexer) next() error {
	start := l.pos
	c := l.src[l.pos]
	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		l.emit(tokIdent, start)
		return nil
	case c >= '0' && c <= '9' || c == '\'':
		for l.pos < len(l.src) && isNumberPart(l.src[l.pos]) {
			l.pos++
		}
		l.emit(tokNumber, start)
		return nil
	case c == '"':
		end := strings.IndexByte(l.src[l.pos+1:], '"')
		if end < 0 {
			return errors.Errorf("unterminated string at offset %d", start)
		}
		l.tokens = append(l.tokens, token{kind: tokString, text: l.src[l.pos+1 : l.pos+1+end], pos: start})
		l.pos += end + 2
		return nil
	}
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			l.emit(tokOp, start)
			return nil
		}
	}
	return errors.Errorf("unexpected character %q at offset %d", c, start)
}

func (l *lexer) emit(kind tokenKind, start int) {
	l.tokens = append(l.tokens, token{kind: kind, text: l.src[start:l.pos], pos: start})
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.'
}

func isNumberPart(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' ||
		c == '\'' || c == '_' || c == 'x' || c == 'X' || c == 'h' || c == 'H' ||
		c == 'o' || c == 'O' || c == 's' || c == 'S'
}

// parseNumber reads decimal, 0x-prefixed, and sized literals such as 4'b1010
// or 32'hdead_beef.
func parseNumber(text string) (*IntConst, error) {
	clean := strings.ReplaceAll(text, "_", "")
	i := strings.IndexByte(clean, '\'')
	if i < 0 {
		v, err := strconv.ParseUint(clean, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", text)
		}
		return &IntConst{Value: v}, nil
	}

	width := 0
	if i > 0 {
		w, err := strconv.Atoi(clean[:i])
		if err != nil || w <= 0 {
			return nil, errors.Errorf("invalid width in %q", text)
		}
		width = w
	}
	rest := strings.TrimLeft(clean[i+1:], "sS")
	if rest == "" {
		return nil, errors.Errorf("missing base in %q", text)
	}
	base := 10
	switch rest[0] {
	case 'b', 'B':
		base = 2
	case 'o', 'O':
		base = 8
	case 'd', 'D':
		base = 10
	case 'h', 'H':
		base = 16
	default:
		return nil, errors.Errorf("invalid base in %q", text)
	}
	v, err := strconv.ParseUint(rest[1:], base, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid number %q", text)
	}
	return &IntConst{Value: v, Width: width}, nil
}
