package symexec

import (
	"github.com/speakeasy-api/hdlsym/pkg/smt"
)

// dataWidth is the minimum width of arithmetic and comparisons.
const dataWidth = 32

// lowerer translates values and formulas into solver terms. Its cache is
// only valid until the solver is reset.
type lowerer struct {
	s     *smt.Solver
	terms map[Value]smt.Term
	bools map[Cond]smt.Bool
}

func newLowerer(s *smt.Solver) *lowerer {
	l := &lowerer{s: s}
	l.reset()
	return l
}

func (l *lowerer) reset() {
	l.terms = make(map[Value]smt.Term)
	l.bools = make(map[Cond]smt.Bool)
}

func (l *lowerer) term(v Value) smt.Term {
	if t, ok := l.terms[v]; ok {
		return t
	}
	t := l.lowerTerm(v)
	l.terms[v] = t
	return t
}

func (l *lowerer) lowerTerm(v Value) smt.Term {
	s := l.s
	switch v := v.(type) {
	case *Sym:
		return s.Var(v.Name, v.Width)
	case *Const:
		w := v.Width
		if w <= 0 {
			w = dataWidth
		}
		return s.Const(v.Value, w)
	case *Slice:
		return s.Extract(l.term(v.Src), v.MSB, v.LSB)
	case *BinOp:
		a, b := l.term(v.L), l.term(v.R)
		w := max(dataWidth, a.Width(), b.Width())
		return s.Arith(v.Op, s.Resize(a, w), s.Resize(b, w))
	case *Inv:
		return s.BitNot(l.term(v.X))
	case *Cat:
		var acc smt.Term
		for i, p := range v.Parts {
			if i == 0 {
				acc = l.term(p)
				continue
			}
			acc = s.Concat(acc, l.term(p))
		}
		if len(v.Parts) == 0 {
			return s.Const(0, 1)
		}
		return acc
	case *Select:
		return s.Ite(l.cond(v.Cond), s.Const(1, 1), s.Const(0, 1))
	}
	panic("symexec: unknown value type")
}

func (l *lowerer) cond(c Cond) smt.Bool {
	if b, ok := l.bools[c]; ok {
		return b
	}
	b := l.lowerCond(c)
	l.bools[c] = b
	return b
}

func (l *lowerer) lowerCond(c Cond) smt.Bool {
	s := l.s
	switch c := c.(type) {
	case *Cmp:
		a, b := l.term(c.L), l.term(c.R)
		w := max(dataWidth, a.Width(), b.Width())
		return s.Cmp(c.Op, s.Resize(a, w), s.Resize(b, w))
	case *And:
		bs := make([]smt.Bool, len(c.Terms))
		for i, t := range c.Terms {
			bs[i] = l.cond(t)
		}
		return s.And(bs...)
	case *Or:
		bs := make([]smt.Bool, len(c.Terms))
		for i, t := range c.Terms {
			bs[i] = l.cond(t)
		}
		return s.Or(bs...)
	case *Not:
		return s.Not(l.cond(c.X))
	case *Truth:
		if c.Value {
			return s.True()
		}
		return s.False()
	}
	panic("symexec: unknown formula type")
}

// negate pushes a negation through c.
func negate(c Cond) Cond {
	switch c := c.(type) {
	case *Cmp:
		return &Cmp{Op: c.Op.Negate(), L: c.L, R: c.R}
	case *And:
		terms := make([]Cond, len(c.Terms))
		for i, t := range c.Terms {
			terms[i] = negate(t)
		}
		return disj(terms...)
	case *Or:
		terms := make([]Cond, len(c.Terms))
		for i, t := range c.Terms {
			terms[i] = negate(t)
		}
		return conj(terms...)
	case *Not:
		return c.X
	case *Truth:
		return &Truth{Value: !c.Value}
	}
	return &Not{X: c}
}
