// Package hdlfmt prints designs back as Verilog-style source.
package hdlfmt

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	hdl "github.com/speakeasy-api/hdlsym"
)

type Config struct {
	Indent string // Indentation unit (default: two spaces)
	Parens bool   // Parenthesize every binary expression
}

// ValidateConfig fills defaults and rejects indentation that is not blank.
func ValidateConfig(cfg Config) (Config, error) {
	if cfg.Indent == "" {
		cfg.Indent = "  "
	}
	if strings.Trim(cfg.Indent, " \t") != "" {
		return cfg, errors.Errorf("invalid indent %q; only spaces and tabs are allowed", cfg.Indent)
	}
	return cfg, nil
}

// precedence mirrors the expression parser, loosest first.
var precedence = map[hdl.Op]int{
	hdl.OpLogOr:  1,
	hdl.OpLogAnd: 2,
	hdl.OpBitOr:  3,
	hdl.OpBitXor: 4,
	hdl.OpBitAnd: 5,
	hdl.OpEq:     6, hdl.OpNe: 6,
	hdl.OpLt: 7, hdl.OpLe: 7, hdl.OpGt: 7, hdl.OpGe: 7,
	hdl.OpShl: 8, hdl.OpShr: 8,
	hdl.OpAdd: 9, hdl.OpSub: 9,
	hdl.OpMul: 10,
}

type printer struct {
	cfg   Config
	b     strings.Builder
	depth int
}

// Design formats every module of d, top first.
func Design(d *hdl.Design, cfg Config) (string, error) {
	cfg, err := ValidateConfig(cfg)
	if err != nil {
		return "", err
	}
	var parts []string
	if top, ok := d.Module(d.Top); ok {
		parts = append(parts, module(top, cfg))
	}
	for _, m := range d.Modules {
		if m.Name != d.Top {
			parts = append(parts, module(m, cfg))
		}
	}
	return strings.Join(parts, "\n"), nil
}

// Module formats one module declaration.
func Module(m *hdl.Module, cfg Config) (string, error) {
	cfg, err := ValidateConfig(cfg)
	if err != nil {
		return "", err
	}
	return module(m, cfg), nil
}

func module(m *hdl.Module, cfg Config) string {
	p := &printer{cfg: cfg}
	names := make([]string, len(m.Ports))
	for i, port := range m.Ports {
		names[i] = port.Name
	}
	p.linef("module %s(%s);", m.Name, strings.Join(names, ", "))
	p.depth++
	for _, param := range m.Params {
		if param.Default != nil {
			p.linef("parameter %s = %s;", param.Name, p.expr(param.Default, 0))
		} else {
			p.linef("parameter %s;", param.Name)
		}
	}
	for _, port := range m.Ports {
		dir := port.Dir
		if dir == hdl.DirUnknown {
			dir = hdl.DirInout
		}
		p.linef("%s%s %s;", dir, rangeOf(port.Width), port.Name)
	}
	for _, it := range m.Items {
		p.stmt(it)
	}
	p.depth--
	p.linef("endmodule")
	return p.b.String()
}

// Stmt formats a single statement at depth 0.
func Stmt(n hdl.Node, cfg Config) (string, error) {
	cfg, err := ValidateConfig(cfg)
	if err != nil {
		return "", err
	}
	p := &printer{cfg: cfg}
	p.stmt(n)
	return p.b.String(), nil
}

// Expr formats an expression on one line.
func Expr(e hdl.Expr, cfg Config) string {
	p := &printer{cfg: cfg}
	return p.expr(e, 0)
}

func rangeOf(width int) string {
	if width <= 1 {
		return ""
	}
	return fmt.Sprintf(" [%d:0]", width-1)
}

func (p *printer) linef(format string, args ...any) {
	p.b.WriteString(strings.Repeat(p.cfg.Indent, p.depth))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) body(n hdl.Node) {
	p.depth++
	p.stmt(n)
	p.depth--
}

func (p *printer) stmt(n hdl.Node) {
	switch n := n.(type) {
	case nil:
		p.linef(";")
	case *hdl.Block:
		p.linef("begin")
		for _, s := range n.Stmts {
			p.body(s)
		}
		p.linef("end")
	case *hdl.If:
		p.linef("if (%s)", p.expr(n.Cond, 0))
		p.body(n.Then)
		if n.Else != nil {
			p.linef("else")
			p.body(n.Else)
		}
	case *hdl.Case:
		p.linef("case (%s)", p.expr(n.Subject, 0))
		p.depth++
		for _, it := range n.Items {
			if it.IsDefault() {
				p.linef("default:")
			} else {
				p.linef("%s:", p.exprs(it.Matches))
			}
			p.body(it.Body)
		}
		p.depth--
		p.linef("endcase")
	case *hdl.Assign:
		switch n.Kind {
		case hdl.AssignContinuous:
			p.linef("assign %s = %s;", p.expr(n.LHS, 0), p.expr(n.RHS, 0))
		case hdl.AssignNonblocking:
			p.linef("%s <= %s;", p.expr(n.LHS, 0), p.expr(n.RHS, 0))
		default:
			p.linef("%s = %s;", p.expr(n.LHS, 0), p.expr(n.RHS, 0))
		}
	case *hdl.Decl:
		if n.Init != nil {
			p.linef("%s%s %s = %s;", n.Kind, rangeOf(n.Width), n.Name, p.expr(n.Init, 0))
		} else {
			p.linef("%s%s %s;", n.Kind, rangeOf(n.Width), n.Name)
		}
	case *hdl.Always:
		sens := "*"
		if len(n.Sens) > 0 {
			sens = strings.Join(n.Sens, " or ")
		}
		p.linef("always @(%s)", sens)
		p.body(n.Body)
	case *hdl.Initial:
		p.linef("initial")
		p.body(n.Body)
	case *hdl.Instance:
		params := ""
		if len(n.Params) > 0 {
			params = fmt.Sprintf(" #(%s)", p.portArgs(n.Params))
		}
		p.linef("%s%s %s(%s);", n.Module, params, n.Name, p.portArgs(n.Ports))
	case *hdl.SystemCall:
		if len(n.Args) == 0 {
			p.linef("%s;", n.Name)
		} else {
			p.linef("%s(%s);", n.Name, p.exprs(n.Args))
		}
	case *hdl.Unsupported:
		p.linef("// unsupported: %s", n.Kind)
	default:
		p.linef("// unknown node %T", n)
	}
}

func (p *printer) portArgs(args []hdl.PortArg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.Port == "" {
			parts[i] = p.expr(a.Arg, 0)
		} else {
			parts[i] = fmt.Sprintf(".%s(%s)", a.Port, p.expr(a.Arg, 0))
		}
	}
	return strings.Join(parts, ", ")
}

func (p *printer) exprs(es []hdl.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = p.expr(e, 0)
	}
	return strings.Join(parts, ", ")
}

// expr renders e, parenthesizing when its precedence is below outer.
func (p *printer) expr(e hdl.Expr, outer int) string {
	switch e := e.(type) {
	case *hdl.Ident:
		return e.Name
	case *hdl.IntConst:
		if e.Width > 0 {
			return fmt.Sprintf("%d'd%d", e.Width, e.Value)
		}
		return fmt.Sprintf("%d", e.Value)
	case *hdl.StringConst:
		return fmt.Sprintf("%q", e.Value)
	case *hdl.PartSelect:
		if e.MSB == e.LSB {
			return fmt.Sprintf("%s[%d]", e.Name, e.MSB)
		}
		return fmt.Sprintf("%s[%d:%d]", e.Name, e.MSB, e.LSB)
	case *hdl.Binary:
		prec := precedence[e.Op]
		s := fmt.Sprintf("%s %s %s", p.expr(e.L, prec), e.Op, p.expr(e.R, prec+1))
		if p.cfg.Parens || prec < outer {
			return "(" + s + ")"
		}
		return s
	case *hdl.Unary:
		return e.Op.String() + p.expr(e.X, 11)
	case *hdl.Concat:
		return "{" + p.exprs(e.Parts) + "}"
	case *hdl.UnsupportedExpr:
		return "/* " + e.Kind + " */"
	}
	return fmt.Sprintf("/* %T */", e)
}
