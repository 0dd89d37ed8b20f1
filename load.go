package hdlsym

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDesign is wrapped by every loader and validation error.
var ErrInvalidDesign = errors.New("invalid design")

type designFile struct {
	Top     string       `yaml:"top"`
	Modules []moduleFile `yaml:"modules"`
}

type moduleFile struct {
	Name   string      `yaml:"name"`
	Ports  []portFile  `yaml:"ports"`
	Params []paramFile `yaml:"params"`
	Items  yaml.Node   `yaml:"items"`
}

type portFile struct {
	Name  string `yaml:"name"`
	Dir   string `yaml:"dir"`
	Width int    `yaml:"width"`
}

type paramFile struct {
	Name    string    `yaml:"name"`
	Default yaml.Node `yaml:"default"`
}

// LoadDesign reads a YAML design description.
//
// Example:
//
//	top: top
//	modules:
//	  - name: top
//	    ports:
//	      - {name: cond, dir: input}
//	      - {name: out, dir: output, width: 32}
//	    items:
//	      - always:
//	          body:
//	            - if:
//	                cond: cond == 1
//	                then: [{nonblocking: out <= 1}]
//	                else: [{nonblocking: out <= 2}]
//
// The top module defaults to the first module listed.
func LoadDesign(r io.Reader) (*Design, error) {
	var f designFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, errors.Wrap(ErrInvalidDesign, "empty document")
		}
		return nil, errors.Wrapf(ErrInvalidDesign, "decode: %v", err)
	}

	d := &Design{Top: f.Top}
	for _, mf := range f.Modules {
		m, err := loadModule(mf)
		if err != nil {
			return nil, errors.Wrapf(err, "module %q", mf.Name)
		}
		d.Modules = append(d.Modules, m)
	}
	if d.Top == "" && len(d.Modules) > 0 {
		d.Top = d.Modules[0].Name
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadDesignString is LoadDesign over a string.
func LoadDesignString(s string) (*Design, error) {
	return LoadDesign(strings.NewReader(s))
}

// Validate checks that module names are unique and the top module exists.
func (d *Design) Validate() error {
	if len(d.Modules) == 0 {
		return errors.Wrap(ErrInvalidDesign, "no modules")
	}
	seen := make(map[string]bool, len(d.Modules))
	for _, m := range d.Modules {
		if m.Name == "" {
			return errors.Wrap(ErrInvalidDesign, "module without a name")
		}
		if seen[m.Name] {
			return errors.Wrapf(ErrInvalidDesign, "duplicate module %q", m.Name)
		}
		seen[m.Name] = true
	}
	if !seen[d.Top] {
		return errors.Wrapf(ErrInvalidDesign, "top module %q not found", d.Top)
	}
	return nil
}

func loadModule(mf moduleFile) (*Module, error) {
	m := &Module{Name: mf.Name}
	for _, pf := range mf.Ports {
		dir, err := parseDirection(pf.Dir)
		if err != nil {
			return nil, errors.Wrapf(err, "port %q", pf.Name)
		}
		m.Ports = append(m.Ports, Port{Name: pf.Name, Dir: dir, Width: pf.Width})
	}
	for _, pf := range mf.Params {
		p := Param{Name: pf.Name}
		if !isEmpty(&pf.Default) {
			e, err := decodeExpr(&pf.Default)
			if err != nil {
				return nil, errors.Wrapf(err, "parameter %q", pf.Name)
			}
			p.Default = e
		}
		m.Params = append(m.Params, p)
	}
	if !isEmpty(&mf.Items) {
		items, err := decodeStmts(&mf.Items)
		if err != nil {
			return nil, err
		}
		m.Items = items
	}
	return m, nil
}

func parseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "input", "in":
		return DirInput, nil
	case "output", "out":
		return DirOutput, nil
	case "inout":
		return DirInout, nil
	case "":
		return DirUnknown, nil
	}
	return DirUnknown, errors.Wrapf(ErrInvalidDesign, "unknown direction %q", s)
}

func isEmpty(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func nodeError(n *yaml.Node, format string, args ...any) error {
	return errors.Wrapf(ErrInvalidDesign, "line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

// decodeStmts accepts a sequence of statements or a single statement.
func decodeStmts(n *yaml.Node) ([]Node, error) {
	if n.Kind != yaml.SequenceNode {
		s, err := decodeStmt(n)
		if err != nil {
			return nil, err
		}
		return []Node{s}, nil
	}
	out := make([]Node, 0, len(n.Content))
	for _, c := range n.Content {
		s, err := decodeStmt(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeBody decodes a statement list into a single node.
func decodeBody(n *yaml.Node) (Node, error) {
	if isEmpty(n) {
		return nil, nil
	}
	stmts, err := decodeStmts(n)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 1 {
		return stmts[0], nil
	}
	return &Block{Stmts: stmts}, nil
}

// decodeStmt decodes a single-key mapping such as {if: {...}}.
func decodeStmt(n *yaml.Node) (Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, nodeError(n, "statement must be a single-key mapping")
	}
	key, val := n.Content[0].Value, n.Content[1]

	switch key {
	case "block", "begin":
		stmts, err := decodeStmts(val)
		if err != nil {
			return nil, err
		}
		return &Block{Stmts: stmts}, nil
	case "if":
		return decodeIf(val)
	case "case":
		return decodeCase(val)
	case "assign":
		return decodeAssign(val, AssignContinuous)
	case "blocking":
		return decodeAssign(val, AssignBlocking)
	case "nonblocking":
		return decodeAssign(val, AssignNonblocking)
	case "wire":
		return decodeDecl(val, DeclWire)
	case "reg":
		return decodeDecl(val, DeclReg)
	case "integer":
		return decodeDecl(val, DeclInteger)
	case "always":
		return decodeAlways(val)
	case "initial":
		body, err := decodeBody(val)
		if err != nil {
			return nil, err
		}
		return &Initial{Body: body}, nil
	case "instance":
		return decodeInstance(val)
	case "call":
		return decodeCall(val)
	case "assert":
		return decodeAssert(val)
	}
	return &Unsupported{Kind: key}, nil
}

// field returns the value of key in mapping n, or nil.
func field(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func decodeIf(n *yaml.Node) (Node, error) {
	cond := field(n, "cond")
	if cond == nil {
		return nil, nodeError(n, "if requires cond")
	}
	e, err := decodeExpr(cond)
	if err != nil {
		return nil, err
	}
	stmt := &If{Cond: e}
	if t := field(n, "then"); t != nil {
		if stmt.Then, err = decodeBody(t); err != nil {
			return nil, err
		}
	}
	if el := field(n, "else"); el != nil {
		if stmt.Else, err = decodeBody(el); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func decodeCase(n *yaml.Node) (Node, error) {
	subj := field(n, "subject")
	if subj == nil {
		return nil, nodeError(n, "case requires subject")
	}
	e, err := decodeExpr(subj)
	if err != nil {
		return nil, err
	}
	stmt := &Case{Subject: e}
	items := field(n, "items")
	if items == nil || items.Kind != yaml.SequenceNode {
		return nil, nodeError(n, "case requires a list of items")
	}
	for _, it := range items.Content {
		var item CaseItem
		if m := field(it, "match"); m != nil {
			exprs, err := decodeExprList(m)
			if err != nil {
				return nil, err
			}
			item.Matches = exprs
		} else if field(it, "default") == nil {
			return nil, nodeError(it, "case item requires match or default")
		}
		if item.Body, err = decodeBody(field(it, "body")); err != nil {
			return nil, err
		}
		stmt.Items = append(stmt.Items, item)
	}
	return stmt, nil
}

// decodeAssign accepts "lhs = rhs", "lhs <= rhs" or {lhs: ..., rhs: ...}.
func decodeAssign(n *yaml.Node, kind AssignKind) (Node, error) {
	var lhsSrc, rhsSrc string
	switch n.Kind {
	case yaml.ScalarNode:
		l, r, ok := splitAssign(n.Value, kind)
		if !ok {
			return nil, nodeError(n, "assignment %q has no '='", n.Value)
		}
		lhsSrc, rhsSrc = l, r
	case yaml.MappingNode:
		l, r := field(n, "lhs"), field(n, "rhs")
		if l == nil || r == nil {
			return nil, nodeError(n, "assignment requires lhs and rhs")
		}
		lhsSrc, rhsSrc = l.Value, r.Value
	default:
		return nil, nodeError(n, "invalid assignment")
	}

	lhs, err := ParseExpr(lhsSrc)
	if err != nil {
		return nil, nodeError(n, "%v", err)
	}
	if _, ok := Target(lhs); !ok {
		return nil, nodeError(n, "assignment target %q is not a signal", lhsSrc)
	}
	rhs, err := ParseExpr(rhsSrc)
	if err != nil {
		return nil, nodeError(n, "%v", err)
	}
	return &Assign{Kind: kind, LHS: lhs, RHS: rhs}, nil
}

func splitAssign(s string, kind AssignKind) (string, string, bool) {
	if kind == AssignNonblocking {
		if i := strings.Index(s, "<="); i >= 0 {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+2:]), true
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.ContainsRune("!<>=", rune(s[i-1])) {
			continue
		}
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
	}
	return "", "", false
}

func decodeDecl(n *yaml.Node, kind DeclKind) (Node, error) {
	d := &Decl{Kind: kind}
	if kind == DeclInteger {
		d.Width = 32
	}
	switch n.Kind {
	case yaml.ScalarNode:
		d.Name = n.Value
	case yaml.MappingNode:
		if nm := field(n, "name"); nm != nil {
			d.Name = nm.Value
		}
		if w := field(n, "width"); w != nil {
			v, err := strconv.Atoi(w.Value)
			if err != nil || v <= 0 {
				return nil, nodeError(w, "invalid width %q", w.Value)
			}
			d.Width = v
		}
		if in := field(n, "init"); in != nil {
			e, err := decodeExpr(in)
			if err != nil {
				return nil, err
			}
			d.Init = e
		}
	}
	if d.Name == "" {
		return nil, nodeError(n, "%s declaration requires a name", kind)
	}
	return d, nil
}

func decodeAlways(n *yaml.Node) (Node, error) {
	a := &Always{}
	body := n
	if n.Kind == yaml.MappingNode && field(n, "body") != nil {
		body = field(n, "body")
		if sens := field(n, "sens"); sens != nil {
			if err := sens.Decode(&a.Sens); err != nil {
				var one string
				if err := sens.Decode(&one); err != nil {
					return nil, nodeError(sens, "invalid sensitivity list")
				}
				a.Sens = []string{one}
			}
		}
	}
	b, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	a.Body = b
	return a, nil
}

func decodeInstance(n *yaml.Node) (Node, error) {
	mod, name := field(n, "module"), field(n, "name")
	if mod == nil || name == nil {
		return nil, nodeError(n, "instance requires module and name")
	}
	inst := &Instance{Module: mod.Value, Name: name.Value}
	var err error
	if p := field(n, "params"); p != nil {
		if inst.Params, err = decodePortArgs(p); err != nil {
			return nil, err
		}
	}
	if p := field(n, "ports"); p != nil {
		if inst.Ports, err = decodePortArgs(p); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// decodePortArgs accepts {port: expr, ...} for named connections or
// [expr, ...] for positional ones.
func decodePortArgs(n *yaml.Node) ([]PortArg, error) {
	var out []PortArg
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			e, err := decodeExpr(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out = append(out, PortArg{Port: n.Content[i].Value, Arg: e})
		}
	case yaml.SequenceNode:
		for _, c := range n.Content {
			e, err := decodeExpr(c)
			if err != nil {
				return nil, err
			}
			out = append(out, PortArg{Arg: e})
		}
	default:
		return nil, nodeError(n, "port connections must be a mapping or a list")
	}
	return out, nil
}

func decodeCall(n *yaml.Node) (Node, error) {
	name := field(n, "name")
	if name == nil {
		return nil, nodeError(n, "call requires name")
	}
	c := &SystemCall{Name: name.Value}
	if a := field(n, "args"); a != nil {
		args, err := decodeCallArgs(a)
		if err != nil {
			return nil, err
		}
		c.Args = args
	}
	return c, nil
}

// decodeAssert is shorthand for $assert with string arguments.
func decodeAssert(n *yaml.Node) (Node, error) {
	c := &SystemCall{Name: "$assert"}
	if isEmpty(n) {
		return c, nil
	}
	args, err := decodeCallArgs(n)
	if err != nil {
		return nil, err
	}
	c.Args = args
	return c, nil
}

// call arguments that do not parse as expressions are kept as strings
func decodeCallArgs(n *yaml.Node) ([]Expr, error) {
	items := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		items = n.Content
	}
	out := make([]Expr, 0, len(items))
	for _, c := range items {
		if c.Kind != yaml.ScalarNode {
			return nil, nodeError(c, "call argument must be a scalar")
		}
		e, err := ParseExpr(c.Value)
		if err != nil || c.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			e = &StringConst{Value: c.Value}
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExprList(n *yaml.Node) ([]Expr, error) {
	if n.Kind != yaml.SequenceNode {
		e, err := decodeExpr(n)
		if err != nil {
			return nil, err
		}
		return []Expr{e}, nil
	}
	out := make([]Expr, 0, len(n.Content))
	for _, c := range n.Content {
		e, err := decodeExpr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExpr(n *yaml.Node) (Expr, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, nodeError(n, "expression must be a scalar")
	}
	e, err := ParseExpr(n.Value)
	if err != nil {
		return nil, nodeError(n, "%v", err)
	}
	return e, nil
}
