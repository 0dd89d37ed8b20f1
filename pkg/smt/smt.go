// Package smt is a small bit-vector constraint solver. Terms are bit-blasted
// into an and-inverter circuit and handed to the gini SAT solver on Check.
//
// The solver keeps a stack of assertion frames so callers can trial a
// constraint with Push/Assert/Check and retract it with Pop.
package smt

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrTimeout is returned by Check when the solve did not finish within the
// configured timeout.
var ErrTimeout = errors.New("smt: solver timeout")

// Result is the outcome of a satisfiability check.
type Result int

const (
	Unknown Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Term is a fixed-width bit-vector. Bit 0 is the least significant.
type Term struct {
	bits []z.Lit
}

// Width returns the number of bits in t.
func (t Term) Width() int { return len(t.bits) }

// Bool is a single propositional formula.
type Bool struct {
	lit z.Lit
}

// Option configures a Solver.
type Option func(*Solver)

// WithTimeout bounds every Check by d. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Solver) { s.timeout = d }
}

// Solver builds terms and checks the conjunction of asserted formulas.
// A Solver is not safe for concurrent use.
type Solver struct {
	c       *logic.C
	vars    map[string]Term
	frames  [][]z.Lit
	timeout time.Duration

	model  map[string]uint64
	checks int
}

// New returns an empty solver with a single base frame.
func New(opts ...Option) *Solver {
	s := &Solver{}
	for _, o := range opts {
		o(s)
	}
	s.Reset()
	return s
}

// Reset drops every term, variable and assertion.
func (s *Solver) Reset() {
	s.c = logic.NewC()
	s.vars = make(map[string]Term)
	s.frames = [][]z.Lit{nil}
	s.model = nil
}

// Checks returns how many times Check ran a SAT search.
func (s *Solver) Checks() int { return s.checks }

// Depth returns the number of open frames above the base frame.
func (s *Solver) Depth() int { return len(s.frames) - 1 }

// Var returns the bit-vector variable called name, creating it on first use.
// A later request with another width is resized to that width.
func (s *Solver) Var(name string, width int) Term {
	if t, ok := s.vars[name]; ok {
		return s.Resize(t, width)
	}
	bits := make([]z.Lit, width)
	for i := range bits {
		bits[i] = s.c.Lit()
	}
	t := Term{bits: bits}
	s.vars[name] = t
	return t
}

// Vars lists the names of all variables, sorted.
func (s *Solver) Vars() []string {
	names := maps.Keys(s.vars)
	slices.Sort(names)
	return names
}

// Const returns v truncated to width bits.
func (s *Solver) Const(v uint64, width int) Term {
	bits := make([]z.Lit, width)
	for i := range bits {
		if i < 64 && v&(1<<uint(i)) != 0 {
			bits[i] = s.c.T
		} else {
			bits[i] = s.c.F
		}
	}
	return Term{bits: bits}
}

// True returns the constant true formula.
func (s *Solver) True() Bool { return Bool{lit: s.c.T} }

// False returns the constant false formula.
func (s *Solver) False() Bool { return Bool{lit: s.c.F} }

// IsConst reports whether b is the literal true or false.
func (s *Solver) IsConst(b Bool) (value, ok bool) {
	switch b.lit {
	case s.c.T:
		return true, true
	case s.c.F:
		return false, true
	}
	return false, false
}

// Assert adds b to the innermost frame.
func (s *Solver) Assert(b Bool) {
	top := len(s.frames) - 1
	s.frames[top] = append(s.frames[top], b.lit)
	s.model = nil
}

// Push opens a new assertion frame.
func (s *Solver) Push() {
	s.frames = append(s.frames, nil)
}

// Pop discards the innermost frame. Popping the base frame is a no-op.
func (s *Solver) Pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
		s.model = nil
	}
}

// Assertions returns the number of formulas asserted across all frames.
func (s *Solver) Assertions() int {
	n := 0
	for _, f := range s.frames {
		n += len(f)
	}
	return n
}

// Check decides the conjunction of all asserted formulas. A timeout returns
// Unknown with ErrTimeout; a cancelled ctx returns Unknown with ctx.Err().
func (s *Solver) Check(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}
	s.model = nil

	var roots []z.Lit
	for _, f := range s.frames {
		for _, m := range f {
			switch m {
			case s.c.T:
				continue
			case s.c.F:
				return Unsat, nil
			}
			roots = append(roots, m)
		}
	}

	g := gini.New()
	s.c.ToCnfFrom(g, roots...)
	// var 1 is the constant; pin it so c.T holds in every model
	g.Add(s.c.T)
	g.Add(0)
	for _, m := range roots {
		g.Add(m)
		g.Add(0)
	}
	s.checks++

	res, err := s.solve(ctx, g)
	if err != nil {
		return Unknown, err
	}
	switch res {
	case 1:
		s.model = s.extract(g)
		return Sat, nil
	case -1:
		return Unsat, nil
	}
	return Unknown, ErrTimeout
}

func (s *Solver) solve(ctx context.Context, g *gini.Gini) (int, error) {
	timeout := s.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout == 0 || left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 && ctx.Done() == nil {
		return g.Solve(), nil
	}

	gs := g.GoSolve()
	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}
	return poll(ctx, gs, expire)
}

func poll(ctx context.Context, gs inter.Solve, expire <-chan time.Time) (int, error) {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		if r, done := gs.Test(); done {
			return r, nil
		}
		select {
		case <-ctx.Done():
			gs.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return 0, nil
			}
			return 0, ctx.Err()
		case <-expire:
			return gs.Stop(), nil
		case <-tick.C:
		}
	}
}

func (s *Solver) extract(g *gini.Gini) map[string]uint64 {
	max := g.MaxVar()
	model := make(map[string]uint64, len(s.vars))
	for name, t := range s.vars {
		var v uint64
		for i, m := range t.bits {
			if i >= 64 || m.Var() > max {
				continue
			}
			if g.Value(m) {
				v |= 1 << uint(i)
			}
		}
		model[name] = v
	}
	return model
}

// Model returns the variable assignment found by the last satisfiable
// Check. Variables that no assertion constrains read as zero.
func (s *Solver) Model() (map[string]uint64, error) {
	if s.model == nil {
		return nil, errors.New("smt: no model available")
	}
	return maps.Clone(s.model), nil
}
