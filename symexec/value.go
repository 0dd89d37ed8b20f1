package symexec

import (
	"fmt"
	"strings"

	hdl "github.com/speakeasy-api/hdlsym"
	"github.com/speakeasy-api/hdlsym/pkg/smt"
)

// Value is a symbolic bit-vector held in the store.
type Value interface {
	fmt.Stringer
	value()
}

// Sym is a free symbol. ID is unique within a run and is the only thing
// compared when deciding whether two symbols are the same.
type Sym struct {
	ID    int
	Name  string
	Width int
}

// Const is a literal.
type Const struct {
	Value uint64
	Width int
}

// Slice is Src[MSB:LSB].
type Slice struct {
	Src Value
	MSB int
	LSB int
}

// BinOp is an arithmetic or bitwise operation.
type BinOp struct {
	Op smt.ArithOp
	L  Value
	R  Value
}

// Inv is the bitwise complement of X.
type Inv struct {
	X Value
}

// Cat concatenates Parts, most significant first.
type Cat struct {
	Parts []Value
}

// Select is 1 when Cond holds and 0 otherwise.
type Select struct {
	Cond Cond
}

func (*Sym) value()    {}
func (*Const) value()  {}
func (*Slice) value()  {}
func (*BinOp) value()  {}
func (*Inv) value()    {}
func (*Cat) value()    {}
func (*Select) value() {}

func (v *Sym) String() string   { return v.Name }
func (v *Const) String() string { return fmt.Sprintf("%d", v.Value) }
func (v *Slice) String() string {
	if v.MSB == v.LSB {
		return fmt.Sprintf("%s[%d]", v.Src, v.MSB)
	}
	return fmt.Sprintf("%s[%d:%d]", v.Src, v.MSB, v.LSB)
}
func (v *BinOp) String() string { return fmt.Sprintf("(%s %s %s)", v.L, v.Op, v.R) }
func (v *Inv) String() string   { return fmt.Sprintf("~%s", v.X) }
func (v *Cat) String() string {
	parts := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (v *Select) String() string { return fmt.Sprintf("ite(%s, 1, 0)", v.Cond) }

// Width returns the bit width of v.
func Width(v Value) int {
	switch v := v.(type) {
	case *Sym:
		return v.Width
	case *Const:
		if v.Width <= 0 {
			return dataWidth
		}
		return v.Width
	case *Slice:
		return v.MSB - v.LSB + 1
	case *BinOp:
		return max(dataWidth, Width(v.L), Width(v.R))
	case *Inv:
		return Width(v.X)
	case *Cat:
		w := 0
		for _, p := range v.Parts {
			w += Width(p)
		}
		return w
	case *Select:
		return 1
	}
	return 0
}

// Cond is a symbolic formula recorded in the path condition.
type Cond interface {
	fmt.Stringer
	cond()
}

// Cmp compares two values as unsigned numbers.
type Cmp struct {
	Op smt.CmpOp
	L  Value
	R  Value
}

// And holds when every term holds.
type And struct {
	Terms []Cond
}

// Or holds when any term holds.
type Or struct {
	Terms []Cond
}

// Not negates X.
type Not struct {
	X Cond
}

// Truth is a constant formula.
type Truth struct {
	Value bool
}

func (*Cmp) cond()   {}
func (*And) cond()   {}
func (*Or) cond()    {}
func (*Not) cond()   {}
func (*Truth) cond() {}

func (c *Cmp) String() string { return fmt.Sprintf("%s %s %s", c.L, c.Op, c.R) }
func (c *And) String() string { return joinConds(c.Terms, " && ", "true") }
func (c *Or) String() string  { return joinConds(c.Terms, " || ", "false") }
func (c *Not) String() string { return fmt.Sprintf("!(%s)", c.X) }
func (c *Truth) String() string {
	if c.Value {
		return "true"
	}
	return "false"
}

func joinConds(cs []Cond, sep, empty string) string {
	if len(cs) == 0 {
		return empty
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// conj builds the conjunction of cs, folding constants.
func conj(cs ...Cond) Cond {
	var terms []Cond
	for _, c := range cs {
		if t, ok := c.(*Truth); ok {
			if !t.Value {
				return t
			}
			continue
		}
		terms = append(terms, c)
	}
	switch len(terms) {
	case 0:
		return &Truth{Value: true}
	case 1:
		return terms[0]
	}
	return &And{Terms: terms}
}

// disj builds the disjunction of cs, folding constants.
func disj(cs ...Cond) Cond {
	var terms []Cond
	for _, c := range cs {
		if t, ok := c.(*Truth); ok {
			if t.Value {
				return t
			}
			continue
		}
		terms = append(terms, c)
	}
	switch len(terms) {
	case 0:
		return &Truth{Value: false}
	case 1:
		return terms[0]
	}
	return &Or{Terms: terms}
}

// Equal reports structural equality. Symbols compare by ID.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case *Sym:
		b, ok := b.(*Sym)
		return ok && a.ID == b.ID
	case *Const:
		b, ok := b.(*Const)
		return ok && a.Value == b.Value && a.Width == b.Width
	case *Slice:
		b, ok := b.(*Slice)
		return ok && a.MSB == b.MSB && a.LSB == b.LSB && Equal(a.Src, b.Src)
	case *BinOp:
		b, ok := b.(*BinOp)
		return ok && a.Op == b.Op && Equal(a.L, b.L) && Equal(a.R, b.R)
	case *Inv:
		b, ok := b.(*Inv)
		return ok && Equal(a.X, b.X)
	case *Cat:
		b, ok := b.(*Cat)
		if !ok || len(a.Parts) != len(b.Parts) {
			return false
		}
		for i := range a.Parts {
			if !Equal(a.Parts[i], b.Parts[i]) {
				return false
			}
		}
		return true
	case *Select:
		b, ok := b.(*Select)
		return ok && EqualCond(a.Cond, b.Cond)
	}
	return false
}

// EqualCond reports structural equality of formulas.
func EqualCond(a, b Cond) bool {
	switch a := a.(type) {
	case *Cmp:
		b, ok := b.(*Cmp)
		return ok && a.Op == b.Op && Equal(a.L, b.L) && Equal(a.R, b.R)
	case *And:
		b, ok := b.(*And)
		return ok && equalTerms(a.Terms, b.Terms)
	case *Or:
		b, ok := b.(*Or)
		return ok && equalTerms(a.Terms, b.Terms)
	case *Not:
		b, ok := b.(*Not)
		return ok && EqualCond(a.X, b.X)
	case *Truth:
		b, ok := b.(*Truth)
		return ok && a.Value == b.Value
	}
	return false
}

func equalTerms(a, b []Cond) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualCond(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Subst is an ordered list of value replacements.
type Subst []Binding

// Binding maps From to To.
type Binding struct {
	From Value
	To   Value
}

func (s Subst) lookup(v Value) (Value, bool) {
	for _, b := range s {
		if Equal(b.From, v) {
			return b.To, true
		}
	}
	return nil, false
}

// Replace rewrites every subterm of v that equals old into repl.
func Replace(v, old, repl Value) Value {
	return Substitute(v, Subst{{From: old, To: repl}})
}

// Substitute applies s to v bottom-up, returning v unchanged when no
// subterm matches.
func Substitute(v Value, s Subst) Value {
	if len(s) == 0 || v == nil {
		return v
	}
	if to, ok := s.lookup(v); ok {
		return to
	}
	switch v := v.(type) {
	case *Slice:
		src := Substitute(v.Src, s)
		if src == v.Src {
			return v
		}
		return &Slice{Src: src, MSB: v.MSB, LSB: v.LSB}
	case *BinOp:
		l, r := Substitute(v.L, s), Substitute(v.R, s)
		if l == v.L && r == v.R {
			return v
		}
		return &BinOp{Op: v.Op, L: l, R: r}
	case *Inv:
		x := Substitute(v.X, s)
		if x == v.X {
			return v
		}
		return &Inv{X: x}
	case *Cat:
		changed := false
		parts := make([]Value, len(v.Parts))
		for i, p := range v.Parts {
			parts[i] = Substitute(p, s)
			changed = changed || parts[i] != p
		}
		if !changed {
			return v
		}
		return &Cat{Parts: parts}
	case *Select:
		c := SubstituteCond(v.Cond, s)
		if c == v.Cond {
			return v
		}
		return &Select{Cond: c}
	}
	return v
}

// SubstituteCond applies s to every value inside c.
func SubstituteCond(c Cond, s Subst) Cond {
	if len(s) == 0 {
		return c
	}
	switch c := c.(type) {
	case *Cmp:
		l, r := Substitute(c.L, s), Substitute(c.R, s)
		if l == c.L && r == c.R {
			return c
		}
		return &Cmp{Op: c.Op, L: l, R: r}
	case *And:
		return &And{Terms: substituteTerms(c.Terms, s)}
	case *Or:
		return &Or{Terms: substituteTerms(c.Terms, s)}
	case *Not:
		return &Not{X: SubstituteCond(c.X, s)}
	}
	return c
}

func substituteTerms(cs []Cond, s Subst) []Cond {
	out := make([]Cond, len(cs))
	for i, c := range cs {
		out[i] = SubstituteCond(c, s)
	}
	return out
}

// Syms appends the distinct symbols of v to dst.
func Syms(dst []*Sym, v Value) []*Sym {
	switch v := v.(type) {
	case *Sym:
		for _, s := range dst {
			if s.ID == v.ID {
				return dst
			}
		}
		return append(dst, v)
	case *Slice:
		return Syms(dst, v.Src)
	case *BinOp:
		return Syms(Syms(dst, v.L), v.R)
	case *Inv:
		return Syms(dst, v.X)
	case *Cat:
		for _, p := range v.Parts {
			dst = Syms(dst, p)
		}
	case *Select:
		return condSyms(dst, v.Cond)
	}
	return dst
}

func condSyms(dst []*Sym, c Cond) []*Sym {
	switch c := c.(type) {
	case *Cmp:
		return Syms(Syms(dst, c.L), c.R)
	case *And:
		for _, t := range c.Terms {
			dst = condSyms(dst, t)
		}
	case *Or:
		for _, t := range c.Terms {
			dst = condSyms(dst, t)
		}
	case *Not:
		return condSyms(dst, c.X)
	}
	return dst
}

// arithOp maps a source operator to its bit-vector operation.
func arithOp(op hdl.Op) (smt.ArithOp, bool) {
	switch op {
	case hdl.OpAdd:
		return smt.OpAdd, true
	case hdl.OpSub:
		return smt.OpSub, true
	case hdl.OpMul:
		return smt.OpMul, true
	case hdl.OpBitAnd:
		return smt.OpAnd, true
	case hdl.OpBitOr:
		return smt.OpOr, true
	case hdl.OpBitXor:
		return smt.OpXor, true
	case hdl.OpShl:
		return smt.OpShl, true
	case hdl.OpShr:
		return smt.OpShr, true
	}
	return 0, false
}

// cmpOp maps a source comparison to its unsigned predicate.
func cmpOp(op hdl.Op) (smt.CmpOp, bool) {
	switch op {
	case hdl.OpEq:
		return smt.CmpEq, true
	case hdl.OpNe:
		return smt.CmpNe, true
	case hdl.OpLt:
		return smt.CmpUlt, true
	case hdl.OpLe:
		return smt.CmpUle, true
	case hdl.OpGt:
		return smt.CmpUgt, true
	case hdl.OpGe:
		return smt.CmpUge, true
	}
	return 0, false
}
