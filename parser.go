package hdlsym

import (
	"strconv"

	"github.com/pkg/errors"
)

// binary operator precedence, loosest first
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10,
}

var binaryOps = map[string]Op{
	"+": OpAdd, "-": OpSub, "*": OpMul,
	"&": OpBitAnd, "|": OpBitOr, "^": OpBitXor,
	"<<": OpShl, ">>": OpShr,
	"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
	"&&": OpLogAnd, "||": OpLogOr,
}

var unaryOps = map[string]Op{
	"~": OpBitNot, "!": OpLogNot, "-": OpNeg,
}

type parser struct {
	tokens []token
	pos    int
}

// ParseExpr parses a Verilog-style expression such as "a[3:0] + 4'b1 == b".
func ParseExpr(src string) (Expr, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	e, err := p.parseBinary(1)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", src)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, errors.Errorf("parse %q: unexpected %q at offset %d", src, t.text, t.pos)
	}
	return e, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(op string) error {
	t := p.advance()
	if t.kind != tokOp || t.text != op {
		return errors.Errorf("expected %q at offset %d, got %q", op, t.pos, t.text)
	}
	return nil
}

func (p *parser) parseBinary(minPrec int) (Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := precedence[t.text]
		if t.kind != tokOp || !ok || prec < minPrec {
			return lhs, nil
		}
		p.advance()
		rhs, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &Binary{Op: binaryOps[t.text], L: lhs, R: rhs}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if op, ok := unaryOps[t.text]; ok && t.kind == tokOp {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.advance()
	switch t.kind {
	case tokNumber:
		c, err := parseNumber(t.text)
		if err != nil {
			return nil, err
		}
		return c, nil
	case tokString:
		return &StringConst{Value: t.text}, nil
	case tokIdent:
		if n := p.peek(); n.kind == tokOp && n.text == "[" {
			return p.parseSelect(t.text)
		}
		return &Ident{Name: t.text}, nil
	case tokOp:
		switch t.text {
		case "(":
			e, err := p.parseBinary(1)
			if err != nil {
				return nil, err
			}
			return e, p.expect(")")
		case "{":
			return p.parseConcat()
		}
	case tokEOF:
		return nil, errors.New("unexpected end of expression")
	}
	return nil, errors.Errorf("unexpected %q at offset %d", t.text, t.pos)
}

func (p *parser) parseSelect(name string) (Expr, error) {
	p.advance()
	msb, err := p.parseIndex()
	if err != nil {
		return nil, err
	}
	lsb := msb
	if n := p.peek(); n.kind == tokOp && n.text == ":" {
		p.advance()
		if lsb, err = p.parseIndex(); err != nil {
			return nil, err
		}
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	return &PartSelect{Name: name, MSB: msb, LSB: lsb}, nil
}

func (p *parser) parseIndex() (int, error) {
	t := p.advance()
	if t.kind != tokNumber {
		return 0, errors.Errorf("expected constant index at offset %d, got %q", t.pos, t.text)
	}
	v, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, errors.Wrapf(err, "index %q", t.text)
	}
	return v, nil
}

func (p *parser) parseConcat() (Expr, error) {
	var parts []Expr
	for {
		e, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
		t := p.advance()
		if t.kind == tokOp && t.text == "}" {
			return &Concat{Parts: parts}, nil
		}
		if t.kind != tokOp || t.text != "," {
			return nil, errors.Errorf("expected ',' or '}' at offset %d, got %q", t.pos, t.text)
		}
	}
}
