package symexec

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FingerprintSnapshot returns a deterministic hex digest of snap. Symbols
// are renamed s0, s1, ... in order of first appearance, so two stores that
// differ only in which fresh symbols they drew hash the same.
func FingerprintSnapshot(snap Snapshot) string {
	sum := sha256.Sum256([]byte(Canonical(snap)))
	return fmt.Sprintf("%x", sum[:])
}

// Canonical renders snap one binding per line, instances and signals
// sorted, with symbols renamed by first appearance.
func Canonical(snap Snapshot) string {
	c := &canonWriter{ids: make(map[int]int)}
	insts := maps.Keys(snap)
	slices.Sort(insts)
	for _, inst := range insts {
		sigs := snap[inst]
		names := maps.Keys(sigs)
		slices.Sort(names)
		for _, name := range names {
			c.b.WriteString(inst)
			c.b.WriteByte('.')
			c.b.WriteString(name)
			c.b.WriteByte('=')
			c.value(sigs[name])
			c.b.WriteByte('\n')
		}
	}
	return c.b.String()
}

// CanonicalValue renders v alone with symbols renamed by first appearance.
func CanonicalValue(v Value) string {
	c := &canonWriter{ids: make(map[int]int)}
	c.value(v)
	return c.b.String()
}

type canonWriter struct {
	b   strings.Builder
	ids map[int]int
}

func (c *canonWriter) sym(s *Sym) {
	id, ok := c.ids[s.ID]
	if !ok {
		id = len(c.ids)
		c.ids[s.ID] = id
	}
	fmt.Fprintf(&c.b, "s%d:%d", id, s.Width)
}

func (c *canonWriter) value(v Value) {
	switch v := v.(type) {
	case *Sym:
		c.sym(v)
	case *Const:
		fmt.Fprintf(&c.b, "%d'%d", Width(v), v.Value)
	case *Slice:
		c.value(v.Src)
		fmt.Fprintf(&c.b, "[%d:%d]", v.MSB, v.LSB)
	case *BinOp:
		c.b.WriteByte('(')
		c.value(v.L)
		fmt.Fprintf(&c.b, " %s ", v.Op)
		c.value(v.R)
		c.b.WriteByte(')')
	case *Inv:
		c.b.WriteByte('~')
		c.value(v.X)
	case *Cat:
		c.b.WriteByte('{')
		for i, p := range v.Parts {
			if i > 0 {
				c.b.WriteByte(',')
			}
			c.value(p)
		}
		c.b.WriteByte('}')
	case *Select:
		c.b.WriteString("ite(")
		c.cond(v.Cond)
		c.b.WriteByte(')')
	case nil:
		c.b.WriteString("nil")
	}
}

func (c *canonWriter) cond(x Cond) {
	switch x := x.(type) {
	case *Cmp:
		c.value(x.L)
		fmt.Fprintf(&c.b, " %s ", x.Op)
		c.value(x.R)
	case *And:
		c.terms("and", x.Terms)
	case *Or:
		c.terms("or", x.Terms)
	case *Not:
		c.b.WriteString("not(")
		c.cond(x.X)
		c.b.WriteByte(')')
	case *Truth:
		fmt.Fprintf(&c.b, "%t", x.Value)
	}
}

func (c *canonWriter) terms(op string, ts []Cond) {
	c.b.WriteString(op)
	c.b.WriteByte('(')
	for i, t := range ts {
		if i > 0 {
			c.b.WriteByte(',')
		}
		c.cond(t)
	}
	c.b.WriteByte(')')
}
