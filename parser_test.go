package hdlsym

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseExpr(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Expr
	}{
		{
			name:  "ident",
			input: "cond",
			want:  &Ident{Name: "cond"},
		},
		{
			name:  "hierarchical_ident",
			input: "u1.out",
			want:  &Ident{Name: "u1.out"},
		},
		{
			name:  "sized_literals",
			input: "4'b1010 + 32'hdead_beef",
			want: &Binary{Op: OpAdd,
				L: &IntConst{Value: 10, Width: 4},
				R: &IntConst{Value: 0xdeadbeef, Width: 32},
			},
		},
		{
			name:  "precedence",
			input: "a + b * 2 == c && !d",
			want: &Binary{Op: OpLogAnd,
				L: &Binary{Op: OpEq,
					L: &Binary{Op: OpAdd,
						L: &Ident{Name: "a"},
						R: &Binary{Op: OpMul, L: &Ident{Name: "b"}, R: &IntConst{Value: 2}},
					},
					R: &Ident{Name: "c"},
				},
				R: &Unary{Op: OpLogNot, X: &Ident{Name: "d"}},
			},
		},
		{
			name:  "left_associative",
			input: "a - b - c",
			want: &Binary{Op: OpSub,
				L: &Binary{Op: OpSub, L: &Ident{Name: "a"}, R: &Ident{Name: "b"}},
				R: &Ident{Name: "c"},
			},
		},
		{
			name:  "part_and_bit_select",
			input: "r[7:4] | r[0]",
			want: &Binary{Op: OpBitOr,
				L: &PartSelect{Name: "r", MSB: 7, LSB: 4},
				R: &PartSelect{Name: "r", MSB: 0, LSB: 0},
			},
		},
		{
			name:  "parens_and_relational",
			input: "(a || b) && x <= 3",
			want: &Binary{Op: OpLogAnd,
				L: &Binary{Op: OpLogOr, L: &Ident{Name: "a"}, R: &Ident{Name: "b"}},
				R: &Binary{Op: OpLe, L: &Ident{Name: "x"}, R: &IntConst{Value: 3}},
			},
		},
		{
			name:  "concat_and_unary",
			input: "{~a, -b, 1'b0}",
			want: &Concat{Parts: []Expr{
				&Unary{Op: OpBitNot, X: &Ident{Name: "a"}},
				&Unary{Op: OpNeg, X: &Ident{Name: "b"}},
				&IntConst{Value: 0, Width: 1},
			}},
		},
		{
			name:  "string",
			input: `"ASSERTION failed"`,
			want:  &StringConst{Value: "ASSERTION failed"},
		},
		{
			name:  "system_name",
			input: "$time",
			want:  &Ident{Name: "$time"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpr(tt.input)
			if err != nil {
				t.Fatalf("ParseExpr(%q): %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseExpr(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"a +",
		"(a",
		"a b",
		"r[x]",
		"{a, b",
		`"open`,
		"4'q1",
		"a # b",
	} {
		if e, err := ParseExpr(input); err == nil {
			t.Errorf("ParseExpr(%q) = %#v, want error", input, e)
		}
	}
}

// TestSignals tests signal collection in first-use order
func TestSignals(t *testing.T) {
	e, err := ParseExpr("b + a[3:0] == b || {c, a}")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, Signals(e)); diff != "" {
		t.Errorf("Signals mismatch (-want +got):\n%s", diff)
	}
}
