package smt

import (
	"github.com/go-air/gini/z"
)

// ArithOp selects a two-operand bit-vector operation.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
)

var arithNames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpAnd: "&",
	OpOr:  "|",
	OpXor: "^",
	OpShl: "<<",
	OpShr: ">>",
}

func (op ArithOp) String() string {
	if int(op) < len(arithNames) {
		return arithNames[op]
	}
	return "?"
}

// CmpOp selects an unsigned comparison.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpUlt
	CmpUle
	CmpUgt
	CmpUge
)

var cmpNames = [...]string{
	CmpEq:  "==",
	CmpNe:  "!=",
	CmpUlt: "<",
	CmpUle: "<=",
	CmpUgt: ">",
	CmpUge: ">=",
}

func (op CmpOp) String() string {
	if int(op) < len(cmpNames) {
		return cmpNames[op]
	}
	return "?"
}

// Negate returns the comparison that holds exactly when op does not.
func (op CmpOp) Negate() CmpOp {
	switch op {
	case CmpEq:
		return CmpNe
	case CmpNe:
		return CmpEq
	case CmpUlt:
		return CmpUge
	case CmpUle:
		return CmpUgt
	case CmpUgt:
		return CmpUle
	default:
		return CmpUlt
	}
}

// Resize zero-extends or truncates t to width bits.
func (s *Solver) Resize(t Term, width int) Term {
	if t.Width() == width {
		return t
	}
	bits := make([]z.Lit, width)
	for i := range bits {
		if i < len(t.bits) {
			bits[i] = t.bits[i]
		} else {
			bits[i] = s.c.F
		}
	}
	return Term{bits: bits}
}

// Extract returns bits msb down to lsb of t. Bits past the top of t read as 0.
func (s *Solver) Extract(t Term, msb, lsb int) Term {
	if msb < lsb {
		msb, lsb = lsb, msb
	}
	bits := make([]z.Lit, msb-lsb+1)
	for i := range bits {
		j := lsb + i
		if j >= 0 && j < len(t.bits) {
			bits[i] = t.bits[j]
		} else {
			bits[i] = s.c.F
		}
	}
	return Term{bits: bits}
}

// Concat places hi above lo.
func (s *Solver) Concat(hi, lo Term) Term {
	bits := make([]z.Lit, 0, len(hi.bits)+len(lo.bits))
	bits = append(bits, lo.bits...)
	bits = append(bits, hi.bits...)
	return Term{bits: bits}
}

// BitNot complements every bit of t.
func (s *Solver) BitNot(t Term) Term {
	bits := make([]z.Lit, len(t.bits))
	for i, m := range t.bits {
		bits[i] = m.Not()
	}
	return Term{bits: bits}
}

// Arith applies op to a and b after widening both to the wider operand.
func (s *Solver) Arith(op ArithOp, a, b Term) Term {
	w := max(a.Width(), b.Width())
	a, b = s.Resize(a, w), s.Resize(b, w)
	switch op {
	case OpAdd:
		return s.add(a, b, s.c.F)
	case OpSub:
		return s.add(a, s.BitNot(b), s.c.T)
	case OpMul:
		return s.mul(a, b)
	case OpAnd:
		return s.zip(a, b, s.c.And)
	case OpOr:
		return s.zip(a, b, s.c.Or)
	case OpXor:
		return s.zip(a, b, s.c.Xor)
	case OpShl:
		return s.shift(a, b, true)
	case OpShr:
		return s.shift(a, b, false)
	}
	panic("smt: unknown arithmetic op")
}

func (s *Solver) zip(a, b Term, f func(x, y z.Lit) z.Lit) Term {
	bits := make([]z.Lit, len(a.bits))
	for i := range bits {
		bits[i] = f(a.bits[i], b.bits[i])
	}
	return Term{bits: bits}
}

// add is a ripple-carry adder; the carry out of the top bit is dropped.
func (s *Solver) add(a, b Term, carry z.Lit) Term {
	bits := make([]z.Lit, len(a.bits))
	for i := range bits {
		x, y := a.bits[i], b.bits[i]
		xy := s.c.Xor(x, y)
		bits[i] = s.c.Xor(xy, carry)
		carry = s.c.Or(s.c.And(x, y), s.c.And(carry, xy))
	}
	return Term{bits: bits}
}

// mul is a shift-and-add multiplier truncated to the operand width.
func (s *Solver) mul(a, b Term) Term {
	w := len(a.bits)
	acc := s.Const(0, w)
	for i := 0; i < w; i++ {
		if b.bits[i] == s.c.F {
			continue
		}
		partial := make([]z.Lit, w)
		for j := range partial {
			if j < i {
				partial[j] = s.c.F
			} else {
				partial[j] = s.c.And(a.bits[j-i], b.bits[i])
			}
		}
		acc = s.add(acc, Term{bits: partial}, s.c.F)
	}
	return acc
}

// shift is a barrel shifter; amounts of width or more produce zero.
func (s *Solver) shift(a, amt Term, left bool) Term {
	w := len(a.bits)
	cur := a
	overflow := s.c.F
	for k, m := range amt.bits {
		dist := 1 << uint(k)
		if k >= 31 || dist >= w {
			overflow = s.c.Or(overflow, m)
			continue
		}
		next := make([]z.Lit, w)
		for i := range next {
			src := i - dist
			if !left {
				src = i + dist
			}
			moved := s.c.F
			if src >= 0 && src < w {
				moved = cur.bits[src]
			}
			next[i] = s.c.Choice(m, moved, cur.bits[i])
		}
		cur = Term{bits: next}
	}
	bits := make([]z.Lit, w)
	for i := range bits {
		bits[i] = s.c.And(overflow.Not(), cur.bits[i])
	}
	return Term{bits: bits}
}

// Ite selects t when c holds and e otherwise.
func (s *Solver) Ite(c Bool, t, e Term) Term {
	w := max(t.Width(), e.Width())
	t, e = s.Resize(t, w), s.Resize(e, w)
	bits := make([]z.Lit, w)
	for i := range bits {
		bits[i] = s.c.Choice(c.lit, t.bits[i], e.bits[i])
	}
	return Term{bits: bits}
}

// Cmp compares a and b as unsigned numbers of the wider width.
func (s *Solver) Cmp(op CmpOp, a, b Term) Bool {
	w := max(a.Width(), b.Width())
	a, b = s.Resize(a, w), s.Resize(b, w)
	switch op {
	case CmpEq:
		return Bool{lit: s.eq(a, b)}
	case CmpNe:
		return Bool{lit: s.eq(a, b).Not()}
	case CmpUlt:
		return Bool{lit: s.ult(a, b)}
	case CmpUle:
		return Bool{lit: s.ult(b, a).Not()}
	case CmpUgt:
		return Bool{lit: s.ult(b, a)}
	case CmpUge:
		return Bool{lit: s.ult(a, b).Not()}
	}
	panic("smt: unknown comparison")
}

func (s *Solver) eq(a, b Term) z.Lit {
	ms := make([]z.Lit, len(a.bits))
	for i := range ms {
		ms[i] = s.c.Xor(a.bits[i], b.bits[i]).Not()
	}
	return s.c.Ands(ms...)
}

// ult scans from the least significant bit; a higher differing bit
// overrides the verdict of the lower ones.
func (s *Solver) ult(a, b Term) z.Lit {
	lt := s.c.F
	for i := range a.bits {
		x, y := a.bits[i], b.bits[i]
		less := s.c.And(x.Not(), y)
		same := s.c.Xor(x, y).Not()
		lt = s.c.Or(less, s.c.And(same, lt))
	}
	return lt
}

// Nonzero holds when any bit of t is set.
func (s *Solver) Nonzero(t Term) Bool {
	return Bool{lit: s.c.Ors(t.bits...)}
}

// Not negates b.
func (s *Solver) Not(b Bool) Bool { return Bool{lit: b.lit.Not()} }

// And conjoins bs. The empty conjunction is true.
func (s *Solver) And(bs ...Bool) Bool {
	ms := make([]z.Lit, len(bs))
	for i, b := range bs {
		ms[i] = b.lit
	}
	return Bool{lit: s.c.Ands(ms...)}
}

// Or disjoins bs. The empty disjunction is false.
func (s *Solver) Or(bs ...Bool) Bool {
	ms := make([]z.Lit, len(bs))
	for i, b := range bs {
		ms[i] = b.lit
	}
	return Bool{lit: s.c.Ors(ms...)}
}

// Implies builds a -> b.
func (s *Solver) Implies(a, b Bool) Bool {
	return Bool{lit: s.c.Implies(a.lit, b.lit)}
}

// BoolTerm reifies b as a one-bit term.
func (s *Solver) BoolTerm(b Bool) Term {
	return Term{bits: []z.Lit{b.lit}}
}
