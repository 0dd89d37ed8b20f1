// Package hdlsym holds the module hierarchy consumed by the symbolic
// execution engine: a typed, immutable tree of modules, statements and
// expressions, plus a YAML loader for it.
package hdlsym

// Node is a module item or a statement.
type Node interface {
	node()
}

// Expr is a right-hand side, guard, or port argument.
type Expr interface {
	expr()
}

// Direction is the direction of a module port.
type Direction int

const (
	DirUnknown Direction = iota
	DirInput
	DirOutput
	DirInout
)

func (d Direction) String() string {
	switch d {
	case DirInput:
		return "input"
	case DirOutput:
		return "output"
	case DirInout:
		return "inout"
	default:
		return "unknown"
	}
}

// FlowsIn reports whether parent values are copied into the child port.
func (d Direction) FlowsIn() bool { return d != DirOutput }

// FlowsOut reports whether child values are copied back to the parent.
func (d Direction) FlowsOut() bool { return d != DirInput }

// Port is a module port declaration. Width 0 means undeclared.
type Port struct {
	Name  string
	Dir   Direction
	Width int
}

// Param is a module parameter with an optional default.
type Param struct {
	Name    string
	Default Expr
}

// Module is one module definition.
type Module struct {
	Name   string
	Ports  []Port
	Params []Param
	Items  []Node
}

// Port returns the port called name.
func (m *Module) Port(name string) (Port, bool) {
	for _, p := range m.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Design is a set of modules with a designated top.
type Design struct {
	Top     string
	Modules []*Module
}

// Module returns the module called name.
func (d *Design) Module(name string) (*Module, bool) {
	for _, m := range d.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Statements and items
// ---------------------------------------------------------------------------

// AssignKind distinguishes the three assignment forms.
type AssignKind int

const (
	AssignContinuous AssignKind = iota
	AssignBlocking
	AssignNonblocking
)

func (k AssignKind) String() string {
	switch k {
	case AssignBlocking:
		return "blocking"
	case AssignNonblocking:
		return "nonblocking"
	default:
		return "continuous"
	}
}

// DeclKind is the storage class of a declaration.
type DeclKind int

const (
	DeclWire DeclKind = iota
	DeclReg
	DeclInteger
)

func (k DeclKind) String() string {
	switch k {
	case DeclReg:
		return "reg"
	case DeclInteger:
		return "integer"
	default:
		return "wire"
	}
}

// Block is a sequence of statements.
type Block struct {
	Stmts []Node
}

// If is a two-way conditional. Else may be nil.
type If struct {
	Cond Expr
	Then Node
	Else Node
}

// CaseItem is one arm of a case statement. A nil Matches marks the default arm.
type CaseItem struct {
	Matches []Expr
	Body    Node
}

// IsDefault reports whether the arm is the default arm.
func (c CaseItem) IsDefault() bool { return c.Matches == nil }

// Case is a multi-way conditional.
type Case struct {
	Subject Expr
	Items   []CaseItem
}

// Assign writes RHS into LHS. LHS is an *Ident or *PartSelect.
type Assign struct {
	Kind AssignKind
	LHS  Expr
	RHS  Expr
}

// Decl declares a wire, reg or integer. Width 0 means undeclared.
type Decl struct {
	Kind  DeclKind
	Name  string
	Width int
	Init  Expr
}

// Always is a procedural block.
type Always struct {
	Sens []string
	Body Node
}

// Initial is an initialization block.
type Initial struct {
	Body Node
}

// PortArg connects a child port to a parent expression. An empty Port
// connects by position.
type PortArg struct {
	Port string
	Arg  Expr
}

// Instance instantiates Module as Name.
type Instance struct {
	Module string
	Name   string
	Params []PortArg
	Ports  []PortArg
}

// SystemCall is a $-prefixed call such as $display or $error.
type SystemCall struct {
	Name string
	Args []Expr
}

// Unsupported stands for any construct the loader does not model.
type Unsupported struct {
	Kind string
}

func (*Block) node()       {}
func (*If) node()          {}
func (*Case) node()        {}
func (*Assign) node()      {}
func (*Decl) node()        {}
func (*Always) node()      {}
func (*Initial) node()     {}
func (*Instance) node()    {}
func (*SystemCall) node()  {}
func (*Unsupported) node() {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Op is a unary or binary operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogAnd
	OpLogOr
	OpBitNot
	OpLogNot
	OpNeg
)

var opNames = [...]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpBitAnd: "&",
	OpBitOr:  "|",
	OpBitXor: "^",
	OpShl:    "<<",
	OpShr:    ">>",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpLogAnd: "&&",
	OpLogOr:  "||",
	OpBitNot: "~",
	OpLogNot: "!",
	OpNeg:    "-",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "?"
}

// IsCompare reports whether op yields a boolean from two data operands.
func (op Op) IsCompare() bool { return op >= OpEq && op <= OpGe }

// IsLogical reports whether op combines boolean operands.
func (op Op) IsLogical() bool { return op == OpLogAnd || op == OpLogOr || op == OpLogNot }

// Ident is a signal or parameter reference.
type Ident struct {
	Name string
}

// IntConst is an integer literal. Width 0 means unsized.
type IntConst struct {
	Value uint64
	Width int
}

// StringConst is a string literal, seen only in system call arguments.
type StringConst struct {
	Value string
}

// PartSelect is name[MSB:LSB]; a bit-select has MSB == LSB.
type PartSelect struct {
	Name string
	MSB  int
	LSB  int
}

// Binary is L Op R.
type Binary struct {
	Op Op
	L  Expr
	R  Expr
}

// Unary is Op X.
type Unary struct {
	Op Op
	X  Expr
}

// Concat is {Parts[0], Parts[1], ...}, most significant first.
type Concat struct {
	Parts []Expr
}

// UnsupportedExpr stands for any expression the loader does not model.
type UnsupportedExpr struct {
	Kind string
}

func (*Ident) expr()           {}
func (*IntConst) expr()        {}
func (*StringConst) expr()     {}
func (*PartSelect) expr()      {}
func (*Binary) expr()          {}
func (*Unary) expr()           {}
func (*Concat) expr()          {}
func (*UnsupportedExpr) expr() {}

// Inspect walks n depth-first, calling f for every statement. Children are
// skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *If:
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *Case:
		for _, it := range n.Items {
			Inspect(it.Body, f)
		}
	case *Always:
		Inspect(n.Body, f)
	case *Initial:
		Inspect(n.Body, f)
	}
}

// InspectExpr walks e depth-first, calling f for every sub-expression.
func InspectExpr(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch e := e.(type) {
	case *Binary:
		InspectExpr(e.L, f)
		InspectExpr(e.R, f)
	case *Unary:
		InspectExpr(e.X, f)
	case *Concat:
		for _, p := range e.Parts {
			InspectExpr(p, f)
		}
	}
}

// Signals returns the names referenced by e, in first-use order.
func Signals(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	InspectExpr(e, func(x Expr) bool {
		switch x := x.(type) {
		case *Ident:
			add(x.Name)
		case *PartSelect:
			add(x.Name)
		}
		return true
	})
	return names
}

// Target returns the signal name written by an assignment left-hand side.
func Target(lhs Expr) (string, bool) {
	switch lhs := lhs.(type) {
	case *Ident:
		return lhs.Name, true
	case *PartSelect:
		return lhs.Name, true
	}
	return "", false
}
