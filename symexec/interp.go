package symexec

import (
	"fmt"

	"github.com/pkg/errors"
	hdl "github.com/speakeasy-api/hdlsym"
	"github.com/speakeasy-api/hdlsym/pkg/smt"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// errAbandon unwinds a combination whose next guard is infeasible.
var errAbandon = errors.New("combination abandoned")

// pendingUpdate is the bookkeeping of one nonblocking assignment.
type pendingUpdate struct {
	pending bool
	prev    Value
}

// frame is one module visit: the module, its instance path, the path code
// it consumes, and its own decision depth. Frames share the engine's store
// and solver.
type frame struct {
	e      *engine
	mod    *hdl.Module
	info   *moduleInfo
	inst   string
	code   string
	top    bool
	depth  int
	logger Logger

	inAlways bool
	deps     map[string]string // signal -> driving signal of a part-select
	updates  map[string]*pendingUpdate
}

func (e *engine) newFrame(m *hdl.Module, inst, code string, top bool) *frame {
	if code == "" {
		code = ToBinary(0, e.opts.PathWidth)
	}
	return &frame{
		e:       e,
		mod:     m,
		info:    e.info[m.Name],
		inst:    inst,
		code:    code,
		top:     top,
		logger:  e.logger.With(map[string]any{"inst": inst}),
		deps:    make(map[string]string),
		updates: make(map[string]*pendingUpdate),
	}
}

// run binds unbound parameters and ports, then visits every item.
func (f *frame) run() error {
	for _, p := range f.mod.Params {
		if f.e.store.Has(f.inst, p.Name) {
			continue
		}
		if p.Default != nil {
			f.e.store.Set(f.inst, p.Name, f.eval(p.Default))
		} else {
			f.e.store.Set(f.inst, p.Name, f.e.fresh(f.inst, p.Name, dataWidth))
		}
	}
	for _, p := range f.mod.Ports {
		if !f.e.store.Has(f.inst, p.Name) {
			f.e.store.Set(f.inst, p.Name, f.e.fresh(f.inst, p.Name, f.width(p.Name)))
		}
	}
	for _, it := range f.mod.Items {
		if err := f.stmt(it); err != nil {
			return err
		}
	}
	return nil
}

// width returns the declared width of sig, 1 when declared without a range.
func (f *frame) width(sig string) int {
	if w, ok := f.info.widths[sig]; ok {
		return w
	}
	return 1
}

func (f *frame) stmt(n hdl.Node) error {
	switch n := n.(type) {
	case nil:
		return nil
	case *hdl.Block:
		for _, s := range n.Stmts {
			if err := f.stmt(s); err != nil {
				return err
			}
		}
		return nil
	case *hdl.Decl:
		f.declare(n)
		return nil
	case *hdl.Assign:
		f.assign(n)
		return nil
	case *hdl.Always:
		return f.always(n)
	case *hdl.Initial:
		return f.stmt(n.Body)
	case *hdl.If:
		return f.ifStmt(n)
	case *hdl.Case:
		return f.caseStmt(n)
	case *hdl.Instance:
		return f.instance(n)
	case *hdl.SystemCall:
		f.systemCall(n)
		return nil
	case *hdl.Unsupported:
		f.e.warnf("unsupported statement %q in module %s, skipped", n.Kind, f.mod.Name)
		return nil
	}
	f.e.warnf("unsupported node %T in module %s, skipped", n, f.mod.Name)
	return nil
}

func (f *frame) declare(d *hdl.Decl) {
	if f.e.store.Has(f.inst, d.Name) {
		return
	}
	if d.Init != nil {
		f.e.store.Set(f.inst, d.Name, f.eval(d.Init))
		return
	}
	f.e.store.Set(f.inst, d.Name, f.e.fresh(f.inst, d.Name, f.width(d.Name)))
}

func (f *frame) assign(a *hdl.Assign) {
	name, _ := hdl.Target(a.LHS)
	val := f.eval(a.RHS)
	if ps, ok := a.RHS.(*hdl.PartSelect); ok {
		f.deps[name] = ps.Name
	} else {
		delete(f.deps, name)
	}
	if ps, ok := a.LHS.(*hdl.PartSelect); ok {
		val = f.insert(name, ps, val)
	}

	prev, _ := f.e.store.Get(f.inst, name)
	f.e.store.Set(f.inst, name, val)
	if a.Kind == hdl.AssignNonblocking {
		f.updates[name] = &pendingUpdate{pending: true, prev: prev}
	}
}

// insert writes val into bits MSB..LSB of sig, keeping the other bits.
func (f *frame) insert(sig string, ps *hdl.PartSelect, val Value) Value {
	old := f.lookup(sig)
	msb, lsb := ps.MSB, ps.LSB
	if msb < lsb {
		msb, lsb = lsb, msb
	}
	w := max(f.width(sig), msb+1)

	var parts []Value
	if msb < w-1 {
		parts = append(parts, &Slice{Src: old, MSB: w - 1, LSB: msb + 1})
	}
	parts = append(parts, &Slice{Src: val, MSB: msb - lsb, LSB: 0})
	if lsb > 0 {
		parts = append(parts, &Slice{Src: old, MSB: lsb - 1, LSB: 0})
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return &Cat{Parts: parts}
}

func (f *frame) always(a *hdl.Always) error {
	if f.info.cone != nil && !f.info.cone[a] {
		f.logger.Debugf("always block outside the assertion cone, skipped")
		return nil
	}
	f.inAlways = true
	defer func() { f.inAlways = false }()
	if err := f.stmt(a.Body); err != nil {
		return err
	}
	f.commit()
	return nil
}

// commit rewrites every part-select dependent whose driver has a pending
// nonblocking update so that it refers to the driver's new value.
func (f *frame) commit() {
	dests := maps.Keys(f.deps)
	slices.Sort(dests)
	for _, dest := range dests {
		src := f.deps[dest]
		u, ok := f.updates[src]
		if !ok || !u.pending || u.prev == nil {
			continue
		}
		cur, ok := f.e.store.Get(f.inst, dest)
		if !ok {
			continue
		}
		next, _ := f.e.store.Get(f.inst, src)
		f.e.store.Set(f.inst, dest, Replace(cur, u.prev, next))
	}
	for _, u := range f.updates {
		u.pending = false
	}
}

// bit advances the depth and reads the decision bit for it. Depths past the
// code width read as 0.
func (f *frame) bit() (taken bool, index int) {
	f.depth++
	index = len(f.code) - f.depth
	if index < 0 {
		f.e.warnOncef("alias:"+f.mod.Name, "module %s has more decisions than the %d-bit path code; deeper decisions take the else arm", f.mod.Name, len(f.code))
		return false, index
	}
	return f.code[index] == '1', index
}

func (f *frame) ifStmt(n *hdl.If) error {
	taken, index := f.bit()
	arm := n.Else
	if taken {
		arm = n.Then
	}
	if err := f.constrain(f.guard(n.Cond, taken), arm); err != nil {
		return err
	}
	if taken && f.top && f.e.opts.PruneCompleted {
		if f.e.track.seenAllCases(index, CountDecisions(n.Then)) {
			f.e.track.complete(index)
			f.logger.Debugf("bit %d completed", index)
		}
	}
	return f.stmt(arm)
}

// caseStmt gives every arm its own decision bit. The first taken arm runs;
// an untaken default arm cannot happen and abandons the combination.
func (f *frame) caseStmt(n *hdl.Case) error {
	subj := f.eval(n.Subject)
	for _, it := range n.Items {
		taken, _ := f.bit()
		if it.IsDefault() {
			if !taken {
				f.logger.Debugf("default arm not taken, abandoning")
				return errAbandon
			}
			return f.stmt(it.Body)
		}

		terms := make([]Cond, len(it.Matches))
		for i, m := range it.Matches {
			terms[i] = &Cmp{Op: smt.CmpEq, L: subj, R: f.eval(m)}
		}
		c := disj(terms...)
		var arm hdl.Node
		if taken {
			arm = it.Body
		} else {
			c = negate(c)
		}
		if err := f.constrain(c, arm); err != nil {
			return err
		}
		if taken {
			return f.stmt(it.Body)
		}
	}
	return nil
}

// constrain commits c to the path condition. With infeasibility checks on,
// c is first tried in a solver frame and the combination is abandoned when
// it cannot hold; arm is the statement the guard would have entered.
func (f *frame) constrain(c Cond, arm hdl.Node) error {
	if t, ok := c.(*Truth); ok && t.Value {
		return nil
	}
	e := f.e
	b := e.low.cond(c)
	if !e.opts.AbandonInfeasible {
		e.solver.Assert(b)
		e.constraints = append(e.constraints, c)
		return nil
	}

	e.solver.Push()
	e.solver.Assert(b)
	res, err := e.check()
	if err != nil {
		e.solver.Pop()
		return err
	}
	if res == smt.Sat {
		e.constraints = append(e.constraints, c)
		return nil
	}
	e.solver.Pop()
	if arm != nil && containsAssertion(arm, e.opts.AssertionMarker) {
		e.infeasible = true
	}
	f.logger.Debugf("guard %s infeasible, abandoning", c)
	return errAbandon
}

func (f *frame) systemCall(c *hdl.SystemCall) {
	if isAssertion(c, f.e.opts.AssertionMarker) {
		f.e.asserted = true
		f.logger.Debugf("assertion reached: %s", c.Name)
		return
	}
	f.logger.Debugf("system call %s ignored", c.Name)
}

// portConn is a resolved port connection.
type portConn struct {
	port string
	dir  hdl.Direction
	arg  hdl.Expr
}

func (f *frame) connections(child *hdl.Module, args []hdl.PortArg) []portConn {
	conns := make([]portConn, 0, len(args))
	for i, a := range args {
		name := a.Port
		if name == "" {
			if i >= len(child.Ports) {
				f.e.warnf("instance of %s has more positional connections than ports", child.Name)
				continue
			}
			name = child.Ports[i].Name
		}
		dir := hdl.DirUnknown
		if p, ok := child.Port(name); ok {
			dir = p.Dir
		}
		conns = append(conns, portConn{port: name, dir: dir, arg: a.Arg})
	}
	return conns
}

// instance binds ports parent to child, visits or reuses the child, and
// copies output ports back into the parent.
func (f *frame) instance(n *hdl.Instance) error {
	e := f.e
	child, ok := e.modules[n.Module]
	if !ok {
		e.warnf("instance %s of unknown module %q, skipped", n.Name, n.Module)
		return nil
	}
	path := f.inst + "." + n.Name

	var bound []string
	for i, pa := range n.Params {
		name := pa.Port
		if name == "" && i < len(child.Params) {
			name = child.Params[i].Name
		}
		if name != "" {
			e.store.Set(path, name, f.eval(pa.Arg))
			bound = append(bound, name)
		}
	}
	conns := f.connections(child, n.Ports)
	for _, c := range conns {
		if c.dir.FlowsIn() {
			e.store.Set(path, c.port, f.argValue(c.arg))
			bound = append(bound, c.port)
		}
	}

	if err := e.visitChild(child, path, bound); err != nil {
		return err
	}

	for _, c := range conns {
		if !c.dir.FlowsOut() {
			continue
		}
		id, ok := c.arg.(*hdl.Ident)
		if !ok {
			continue
		}
		if v, ok := e.store.Get(path, c.port); ok {
			e.store.Set(f.inst, id.Name, v)
		}
	}
	return nil
}

// argValue evaluates a port argument; an unbound identifier gets a fresh
// symbol in the parent first.
func (f *frame) argValue(arg hdl.Expr) Value {
	if id, ok := arg.(*hdl.Ident); ok && !f.e.store.Has(f.inst, id.Name) {
		s := f.e.fresh(f.inst, id.Name, f.width(id.Name))
		f.e.store.Set(f.inst, id.Name, s)
		return s
	}
	return f.eval(arg)
}

// lookup resolves sig in this instance. Unresolved names are logged and
// bound to a placeholder symbol so later reads agree.
func (f *frame) lookup(sig string) Value {
	if v, ok := f.e.store.Get(f.inst, sig); ok {
		return v
	}
	f.e.warnf("unresolved signal %s in %s, using a placeholder symbol", sig, f.inst)
	s := f.e.fresh(f.inst, sig, dataWidth)
	f.e.store.Set(f.inst, sig, s)
	return s
}

// eval turns an expression into a symbolic value.
func (f *frame) eval(x hdl.Expr) Value {
	switch x := x.(type) {
	case *hdl.IntConst:
		w := x.Width
		if w == 0 {
			w = dataWidth
		}
		return &Const{Value: x.Value, Width: w}
	case *hdl.Ident:
		return f.lookup(x.Name)
	case *hdl.PartSelect:
		msb, lsb := x.MSB, x.LSB
		if msb < lsb {
			msb, lsb = lsb, msb
		}
		return &Slice{Src: f.lookup(x.Name), MSB: msb, LSB: lsb}
	case *hdl.Binary:
		if op, ok := arithOp(x.Op); ok {
			return &BinOp{Op: op, L: f.eval(x.L), R: f.eval(x.R)}
		}
		return &Select{Cond: f.guard(x, true)}
	case *hdl.Unary:
		switch x.Op {
		case hdl.OpBitNot:
			return &Inv{X: f.eval(x.X)}
		case hdl.OpNeg:
			return &BinOp{Op: smt.OpSub, L: &Const{Value: 0, Width: dataWidth}, R: f.eval(x.X)}
		case hdl.OpLogNot:
			return &Select{Cond: f.guard(x.X, false)}
		}
	case *hdl.Concat:
		parts := make([]Value, len(x.Parts))
		for i, p := range x.Parts {
			parts[i] = f.eval(p)
		}
		return &Cat{Parts: parts}
	}
	f.e.warnf("unsupported expression %s in %s, using a placeholder symbol", exprKind(x), f.inst)
	return f.e.fresh(f.inst, "expr", dataWidth)
}

func exprKind(x hdl.Expr) string {
	switch x := x.(type) {
	case *hdl.UnsupportedExpr:
		return x.Kind
	case *hdl.StringConst:
		return fmt.Sprintf("string %q", x.Value)
	}
	return fmt.Sprintf("%T", x)
}

// guard translates a branch condition under the given polarity.
func (f *frame) guard(x hdl.Expr, taken bool) Cond {
	switch x := x.(type) {
	case *hdl.Binary:
		switch x.Op {
		case hdl.OpLogAnd:
			l, r := f.guard(x.L, taken), f.guard(x.R, taken)
			if taken {
				return conj(l, r)
			}
			return disj(l, r)
		case hdl.OpLogOr:
			l, r := f.guard(x.L, taken), f.guard(x.R, taken)
			if taken {
				return disj(l, r)
			}
			return conj(l, r)
		}
		if op, ok := cmpOp(x.Op); ok {
			if !taken {
				op = op.Negate()
			}
			return &Cmp{Op: op, L: f.eval(x.L), R: f.eval(x.R)}
		}
	case *hdl.Unary:
		if x.Op == hdl.OpLogNot {
			return f.guard(x.X, !taken)
		}
	case *hdl.Ident:
		op := smt.CmpEq
		if !taken {
			op = smt.CmpNe
		}
		bit := &Slice{Src: f.lookup(x.Name), MSB: 0, LSB: 0}
		return &Cmp{Op: op, L: bit, R: &Const{Value: 1, Width: 1}}
	case *hdl.IntConst:
		return &Truth{Value: (x.Value != 0) == taken}
	}

	op := smt.CmpNe
	if !taken {
		op = smt.CmpEq
	}
	return &Cmp{Op: op, L: f.eval(x), R: &Const{Value: 0, Width: dataWidth}}
}
