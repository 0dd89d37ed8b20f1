package smt

import (
	"context"
	"testing"
	"time"
)

// TestCheckSatModel tests that a satisfiable equality yields a model.
func TestCheckSatModel(t *testing.T) {
	s := New()
	x := s.Var("x", 32)
	s.Assert(s.Cmp(CmpEq, x, s.Const(42, 32)))

	res, err := s.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res != Sat {
		t.Fatalf("expected sat, got %v", res)
	}
	model, err := s.Model()
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	if model["x"] != 42 {
		t.Errorf("expected x=42, got %d", model["x"])
	}
}

// TestCheckUnsat tests contradictory assertions.
func TestCheckUnsat(t *testing.T) {
	s := New()
	x := s.Var("x", 1)
	one := s.Const(1, 1)
	s.Assert(s.Cmp(CmpEq, x, one))
	s.Assert(s.Cmp(CmpNe, x, one))

	res, err := s.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res != Unsat {
		t.Errorf("expected unsat, got %v", res)
	}
	if _, err := s.Model(); err == nil {
		t.Errorf("expected no model after unsat check")
	}
}

// TestPushPop tests that popped assertions no longer constrain the search.
func TestPushPop(t *testing.T) {
	s := New()
	x := s.Var("x", 8)
	s.Assert(s.Cmp(CmpUgt, x, s.Const(10, 8)))

	s.Push()
	s.Assert(s.Cmp(CmpUlt, x, s.Const(5, 8)))
	if res, _ := s.Check(context.Background()); res != Unsat {
		t.Fatalf("expected unsat inside frame, got %v", res)
	}
	s.Pop()

	if s.Depth() != 0 {
		t.Errorf("expected depth 0, got %d", s.Depth())
	}
	if res, _ := s.Check(context.Background()); res != Sat {
		t.Fatalf("expected sat after pop, got %v", res)
	}
	model, _ := s.Model()
	if model["x"] <= 10 {
		t.Errorf("expected x>10, got %d", model["x"])
	}
}

// TestArith tests the bit-blasted operators against concrete arithmetic.
func TestArith(t *testing.T) {
	tests := []struct {
		name string
		op   ArithOp
		a, b uint64
		want uint64
	}{
		{name: "add", op: OpAdd, a: 7, b: 9, want: 16},
		{name: "add wraps", op: OpAdd, a: 0xffffffff, b: 2, want: 1},
		{name: "sub", op: OpSub, a: 9, b: 7, want: 2},
		{name: "sub wraps", op: OpSub, a: 0, b: 1, want: 0xffffffff},
		{name: "mul", op: OpMul, a: 12, b: 11, want: 132},
		{name: "and", op: OpAnd, a: 0b1100, b: 0b1010, want: 0b1000},
		{name: "or", op: OpOr, a: 0b1100, b: 0b1010, want: 0b1110},
		{name: "xor", op: OpXor, a: 0b1100, b: 0b1010, want: 0b0110},
		{name: "shl", op: OpShl, a: 3, b: 4, want: 48},
		{name: "shr", op: OpShr, a: 48, b: 4, want: 3},
		{name: "shr overflow", op: OpShr, a: 48, b: 40, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			x := s.Var("x", 32)
			y := s.Var("y", 32)
			r := s.Var("r", 32)
			s.Assert(s.Cmp(CmpEq, x, s.Const(tt.a, 32)))
			s.Assert(s.Cmp(CmpEq, y, s.Const(tt.b, 32)))
			s.Assert(s.Cmp(CmpEq, r, s.Arith(tt.op, x, y)))

			if res, err := s.Check(context.Background()); res != Sat || err != nil {
				t.Fatalf("expected sat, got %v (%v)", res, err)
			}
			model, _ := s.Model()
			if model["r"] != tt.want {
				t.Errorf("%d %s %d = %d, want %d", tt.a, tt.op, tt.b, model["r"], tt.want)
			}
		})
	}
}

// TestCompare tests unsigned comparisons on constants.
func TestCompare(t *testing.T) {
	tests := []struct {
		op   CmpOp
		a, b uint64
		want bool
	}{
		{CmpEq, 3, 3, true},
		{CmpNe, 3, 3, false},
		{CmpUlt, 2, 3, true},
		{CmpUlt, 3, 3, false},
		{CmpUle, 3, 3, true},
		{CmpUgt, 0x80000000, 1, true},
		{CmpUge, 1, 2, false},
	}

	for _, tt := range tests {
		s := New()
		s.Assert(s.Cmp(tt.op, s.Const(tt.a, 32), s.Const(tt.b, 32)))
		res, err := s.Check(context.Background())
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if got := res == Sat; got != tt.want {
			t.Errorf("%d %s %d: got %v, want %v", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}

// TestNegate tests that a comparison and its negation partition the space.
func TestNegate(t *testing.T) {
	for _, op := range []CmpOp{CmpEq, CmpNe, CmpUlt, CmpUle, CmpUgt, CmpUge} {
		s := New()
		x := s.Var("x", 4)
		y := s.Var("y", 4)
		s.Assert(s.Cmp(op, x, y))
		s.Assert(s.Cmp(op.Negate(), x, y))
		if res, _ := s.Check(context.Background()); res != Unsat {
			t.Errorf("%s and %s both satisfiable", op, op.Negate())
		}
	}
}

// TestIteAndExtract tests reified selection and slicing.
func TestIteAndExtract(t *testing.T) {
	s := New()
	c := s.Var("c", 1)
	x := s.Var("x", 32)
	sel := s.Ite(s.Cmp(CmpEq, c, s.Const(1, 1)), s.Const(0xab, 32), s.Const(0xcd, 32))
	s.Assert(s.Cmp(CmpEq, x, sel))
	s.Assert(s.Cmp(CmpEq, s.Extract(x, 7, 4), s.Const(0xc, 4)))

	if res, _ := s.Check(context.Background()); res != Sat {
		t.Fatalf("expected sat, got %v", res)
	}
	model, _ := s.Model()
	if model["c"] != 0 || model["x"] != 0xcd {
		t.Errorf("expected c=0 x=0xcd, got c=%d x=%#x", model["c"], model["x"])
	}
}

// TestConstantFalse tests that a constant false assertion is unsat without solving.
func TestConstantFalse(t *testing.T) {
	s := New()
	s.Assert(s.False())
	if res, _ := s.Check(context.Background()); res != Unsat {
		t.Errorf("expected unsat, got %v", res)
	}
	if s.Checks() != 0 {
		t.Errorf("expected no SAT search, got %d", s.Checks())
	}
}

// TestCheckCancelled tests that a cancelled context aborts Check.
func TestCheckCancelled(t *testing.T) {
	s := New(WithTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Check(ctx); err == nil {
		t.Errorf("expected error from cancelled context")
	}
}
