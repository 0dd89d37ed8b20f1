package hdlsym

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

const counterDesign = `
top: top
modules:
  - name: counter
    params:
      - {name: STEP, default: 1}
    ports:
      - {name: clk, dir: input}
      - {name: en, dir: input}
      - {name: q, dir: output, width: 8}
    items:
      - reg: {name: cnt, width: 8, init: 0}
      - always:
          sens: [posedge clk]
          body:
            - if:
                cond: en
                then:
                  - nonblocking: cnt <= cnt + STEP
      - assign: q = cnt
  - name: top
    ports:
      - {name: clk, dir: input}
      - {name: sel, dir: input, width: 2}
    items:
      - wire: {name: a, width: 8}
      - instance:
          module: counter
          name: u1
          params: {STEP: 2}
          ports: {clk: clk, en: "sel == 1", q: a}
      - instance:
          module: counter
          name: u2
          ports:
            - clk
            - sel[0]
            - b
      - case:
          subject: sel
          items:
            - match: [0, 3]
              body: [{call: {name: $display, args: ["sel is %d", sel]}}]
            - default:
              body:
                - assert: ["ASSERTION: sel out of range"]
      - initial:
          - blocking: a[7:4] = 4'hf
`

func TestLoadDesign(t *testing.T) {
	d, err := LoadDesignString(counterDesign)
	if err != nil {
		t.Fatalf("LoadDesignString: %v", err)
	}
	if d.Top != "top" || len(d.Modules) != 2 {
		t.Fatalf("top %q with %d modules", d.Top, len(d.Modules))
	}

	counter, ok := d.Module("counter")
	if !ok {
		t.Fatal("counter not found")
	}
	wantPorts := []Port{
		{Name: "clk", Dir: DirInput},
		{Name: "en", Dir: DirInput},
		{Name: "q", Dir: DirOutput, Width: 8},
	}
	if diff := cmp.Diff(wantPorts, counter.Ports); diff != "" {
		t.Errorf("ports mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Param{{Name: "STEP", Default: &IntConst{Value: 1}}}, counter.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	wantItems := []Node{
		&Decl{Kind: DeclReg, Name: "cnt", Width: 8, Init: &IntConst{Value: 0}},
		&Always{
			Sens: []string{"posedge clk"},
			Body: &If{
				Cond: &Ident{Name: "en"},
				Then: &Assign{
					Kind: AssignNonblocking,
					LHS:  &Ident{Name: "cnt"},
					RHS:  &Binary{Op: OpAdd, L: &Ident{Name: "cnt"}, R: &Ident{Name: "STEP"}},
				},
			},
		},
		&Assign{Kind: AssignContinuous, LHS: &Ident{Name: "q"}, RHS: &Ident{Name: "cnt"}},
	}
	if diff := cmp.Diff(wantItems, counter.Items); diff != "" {
		t.Errorf("counter items mismatch (-want +got):\n%s", diff)
	}

	top, _ := d.Module("top")
	if len(top.Items) != 5 {
		t.Fatalf("top has %d items, want 5", len(top.Items))
	}
	u1 := top.Items[1].(*Instance)
	wantU1 := &Instance{
		Module: "counter",
		Name:   "u1",
		Params: []PortArg{{Port: "STEP", Arg: &IntConst{Value: 2}}},
		Ports: []PortArg{
			{Port: "clk", Arg: &Ident{Name: "clk"}},
			{Port: "en", Arg: &Binary{Op: OpEq, L: &Ident{Name: "sel"}, R: &IntConst{Value: 1}}},
			{Port: "q", Arg: &Ident{Name: "a"}},
		},
	}
	if diff := cmp.Diff(wantU1, u1); diff != "" {
		t.Errorf("u1 mismatch (-want +got):\n%s", diff)
	}
	u2 := top.Items[2].(*Instance)
	if len(u2.Ports) != 3 || u2.Ports[0].Port != "" {
		t.Errorf("u2 should have three positional connections: %+v", u2.Ports)
	}

	c := top.Items[3].(*Case)
	if len(c.Items) != 2 || c.Items[0].IsDefault() || !c.Items[1].IsDefault() {
		t.Fatalf("case items: %+v", c.Items)
	}
	display := c.Items[0].Body.(*SystemCall)
	wantDisplay := &SystemCall{Name: "$display", Args: []Expr{
		&StringConst{Value: "sel is %d"},
		&Ident{Name: "sel"},
	}}
	if diff := cmp.Diff(wantDisplay, display); diff != "" {
		t.Errorf("display mismatch (-want +got):\n%s", diff)
	}
	assert := c.Items[1].Body.(*SystemCall)
	if assert.Name != "$assert" || len(assert.Args) != 1 {
		t.Errorf("assert = %+v", assert)
	}

	init := top.Items[4].(*Initial)
	want := &Assign{
		Kind: AssignBlocking,
		LHS:  &PartSelect{Name: "a", MSB: 7, LSB: 4},
		RHS:  &IntConst{Value: 15, Width: 4},
	}
	if diff := cmp.Diff(want, init.Body); diff != "" {
		t.Errorf("initial mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDesignDefaultsTop(t *testing.T) {
	d, err := LoadDesignString("modules:\n  - name: only\n")
	if err != nil {
		t.Fatalf("LoadDesignString: %v", err)
	}
	if d.Top != "only" {
		t.Errorf("Top = %q, want only", d.Top)
	}
}

func TestLoadDesignUnsupportedStatement(t *testing.T) {
	d, err := LoadDesignString(`
modules:
  - name: m
    items:
      - fork: [a, b]
`)
	if err != nil {
		t.Fatalf("LoadDesignString: %v", err)
	}
	if diff := cmp.Diff([]Node{&Unsupported{Kind: "fork"}}, d.Modules[0].Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDesignErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "empty document"},
		{name: "unknown_field", input: "modules:\n  - name: m\n    wires: []\n", want: "decode"},
		{name: "missing_top", input: "top: x\nmodules:\n  - name: m\n", want: `top module "x" not found`},
		{name: "duplicate", input: "modules:\n  - name: m\n  - name: m\n", want: `duplicate module "m"`},
		{name: "bad_direction", input: "modules:\n  - name: m\n    ports: [{name: p, dir: sideways}]\n", want: "unknown direction"},
		{name: "bad_expr", input: "modules:\n  - name: m\n    items:\n      - if: {cond: 'a +'}\n", want: "line 4"},
		{name: "if_without_cond", input: "modules:\n  - name: m\n    items:\n      - if: {then: []}\n", want: "if requires cond"},
		{name: "assign_without_eq", input: "modules:\n  - name: m\n    items:\n      - blocking: a\n", want: "has no '='"},
		{name: "bad_target", input: "modules:\n  - name: m\n    items:\n      - blocking: a + b = c\n", want: "not a signal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDesign(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidDesign) {
				t.Errorf("error %v does not wrap ErrInvalidDesign", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
