package symexec

import (
	"testing"

	"github.com/speakeasy-api/hdlsym/pkg/smt"
)

// TestEqualSymbolsByID tests that symbols compare by ID, not by name
func TestEqualSymbolsByID(t *testing.T) {
	a := &Sym{ID: 1, Name: "x", Width: 8}
	b := &Sym{ID: 2, Name: "x", Width: 8}
	if Equal(a, b) {
		t.Error("symbols with the same name but different IDs must differ")
	}
	if !Equal(a, &Sym{ID: 1, Name: "renamed", Width: 8}) {
		t.Error("symbols with the same ID must be equal")
	}
}

// TestSubstitute tests replacement inside nested values and formulas
func TestSubstitute(t *testing.T) {
	x := &Sym{ID: 1, Name: "x", Width: 8}
	y := &Sym{ID: 2, Name: "y", Width: 8}
	z := &Sym{ID: 3, Name: "z", Width: 8}

	v := &Cat{Parts: []Value{
		&Slice{Src: x, MSB: 3, LSB: 0},
		&BinOp{Op: smt.OpAdd, L: x, R: &Const{Value: 1, Width: 8}},
		&Select{Cond: &Cmp{Op: smt.CmpEq, L: x, R: z}},
	}}
	got := Replace(v, x, y)
	want := "{y[3:0], (y + 1), ite(y == z, 1, 0)}"
	if got.String() != want {
		t.Errorf("Replace() = %s, want %s", got, want)
	}
	if v.String() != "{x[3:0], (x + 1), ite(x == z, 1, 0)}" {
		t.Errorf("Replace modified its input: %s", v)
	}

	// untouched values come back as the same pointer
	if Substitute(z, Subst{{From: x, To: y}}) != Value(z) {
		t.Error("Substitute copied a value without matches")
	}

	c := SubstituteCond(&And{Terms: []Cond{
		&Cmp{Op: smt.CmpNe, L: x, R: &Const{Value: 3}},
		&Not{X: &Cmp{Op: smt.CmpUlt, L: z, R: x}},
	}}, Subst{{From: x, To: y}})
	if c.String() != "(y != 3 && !(z < y))" {
		t.Errorf("SubstituteCond() = %s", c)
	}
}

// TestConjDisjFolding tests constant folding in formula builders
func TestConjDisjFolding(t *testing.T) {
	x := &Cmp{Op: smt.CmpEq, L: &Sym{ID: 1, Name: "x", Width: 1}, R: &Const{Value: 1, Width: 1}}
	if got := conj(&Truth{Value: true}, x); got != Cond(x) {
		t.Errorf("conj(true, x) = %s", got)
	}
	if got := conj(x, &Truth{Value: false}); got.String() != "false" {
		t.Errorf("conj(x, false) = %s", got)
	}
	if got := disj(x, &Truth{Value: true}); got.String() != "true" {
		t.Errorf("disj(x, true) = %s", got)
	}
	if got := disj(); got.String() != "false" {
		t.Errorf("disj() = %s", got)
	}
	if got := negate(conj(x, x)); got.String() != "(x != 1 || x != 1)" {
		t.Errorf("negate(and) = %s", got)
	}
}

// TestWidth tests widths of derived values
func TestWidth(t *testing.T) {
	x := &Sym{ID: 1, Name: "x", Width: 8}
	tests := []struct {
		name string
		v    Value
		want int
	}{
		{name: "sym", v: x, want: 8},
		{name: "unsized_const", v: &Const{Value: 3}, want: 32},
		{name: "slice", v: &Slice{Src: x, MSB: 5, LSB: 2}, want: 4},
		{name: "binop_widens", v: &BinOp{Op: smt.OpAdd, L: x, R: x}, want: 32},
		{name: "cat", v: &Cat{Parts: []Value{x, &Slice{Src: x, MSB: 0, LSB: 0}}}, want: 9},
		{name: "select", v: &Select{Cond: &Truth{Value: true}}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Width(tt.v); got != tt.want {
				t.Errorf("Width(%s) = %d, want %d", tt.v, got, tt.want)
			}
		})
	}
}

// TestCanonicalRenaming tests that stores differing only in symbol IDs
// fingerprint the same
func TestCanonicalRenaming(t *testing.T) {
	mk := func(base int) Snapshot {
		a := &Sym{ID: base, Name: "a", Width: 8}
		b := &Sym{ID: base + 1, Name: "b", Width: 8}
		return Snapshot{
			"top": {
				"a":   a,
				"b":   b,
				"sum": &BinOp{Op: smt.OpAdd, L: a, R: b},
			},
		}
	}
	s1, s2 := mk(1), mk(40)
	if FingerprintSnapshot(s1) != FingerprintSnapshot(s2) {
		t.Errorf("fingerprints differ:\n%s\n%s", Canonical(s1), Canonical(s2))
	}

	s3 := mk(1)
	s3["top"]["sum"] = &BinOp{Op: smt.OpAdd, L: s3["top"]["a"], R: s3["top"]["a"]}
	if FingerprintSnapshot(s1) == FingerprintSnapshot(s3) {
		t.Error("a+b and a+a must fingerprint differently")
	}
}
