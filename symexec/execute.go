package symexec

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	hdl "github.com/speakeasy-api/hdlsym"
	"github.com/speakeasy-api/hdlsym/pkg/smt"
	"golang.org/x/exp/slices"
)

// engine holds all state of one run. Store and solver are shared by every
// module visit of a combination and reset only between combinations.
type engine struct {
	ctx     context.Context
	opts    Options
	logger  Logger
	execID  string
	design  *hdl.Design
	modules map[string]*hdl.Module
	info    map[string]*moduleInfo
	space   *PathSpace

	solver *smt.Solver
	low    *lowerer
	store  *Store
	memo   *memo
	track  *tracker

	nextSym int
	warned  map[string]bool
	report  *Report
	ends    map[string]bool

	// per combination
	codes       map[string]string
	constraints []Cond
	asserted    bool
	infeasible  bool
}

func newEngine(ctx context.Context, d *hdl.Design, opts Options) *engine {
	logger := opts.Logger
	if logger == nil {
		level, _ := ParseLogLevel(opts.LogLevel)
		var w io.Writer = os.Stderr
		if opts.LogOutput != nil {
			w = opts.LogOutput
		}
		logger = NewLogger(level, w)
	}
	execID := fmt.Sprintf("e%d", time.Now().UnixNano()%1000000)

	solver := smt.New(smt.WithTimeout(opts.SolverTimeout))
	e := &engine{
		ctx:     ctx,
		opts:    opts,
		logger:  logger.With(map[string]any{"exec": execID}),
		execID:  execID,
		design:  d,
		modules: make(map[string]*hdl.Module, len(d.Modules)),
		info:    make(map[string]*moduleInfo, len(d.Modules)),
		space:   NewPathSpace(d, opts.PathWidth),
		solver:  solver,
		low:     newLowerer(solver),
		store:   NewStore(),
		memo:    newMemo(),
		track:   newTracker(opts.PathWidth),
		warned:  make(map[string]bool),
		ends:    make(map[string]bool),
	}
	for _, m := range d.Modules {
		e.modules[m.Name] = m
		e.info[m.Name] = analyzeModule(m, opts.AssertionMarker, opts.ConeOfInfluence)
	}
	e.report = &Report{
		ExecID:  execID,
		Top:     d.Top,
		Modules: e.space.Modules,
		Total:   e.space.Total,
		Stats: Stats{
			ChildRuns: make(map[string]int),
			Instances: countInstances(d),
		},
	}
	return e
}

// run walks the whole combination space, chunk by chunk when it exceeds
// the ceiling.
func (e *engine) run() (*Report, error) {
	e.report.Started = time.Now()
	total, err := e.space.Count()
	if err != nil {
		return nil, err
	}
	for _, name := range e.space.Aliased() {
		e.warnOncef("alias:"+name, "module %s has more decisions than the %d-bit path code; deeper decisions take the else arm", name, e.opts.PathWidth)
	}

	chunk := total
	if total > e.opts.Ceiling {
		chunk = e.opts.ChunkSize
		e.report.Piecewise = true
	}
	e.logger.With(map[string]any{
		"top":       e.design.Top,
		"total":     total,
		"piecewise": e.report.Piecewise,
	}).Infof("starting symbolic execution")

	odo, err := e.space.NewOdometer()
	if err != nil {
		return nil, err
	}
	for start := uint64(0); start < total; start += chunk {
		end := min(start+chunk, total)
		if err := e.runChunk(odo, start, end); err != nil {
			return nil, err
		}
	}

	e.report.Stats.Combinations = total
	e.report.Stats.SolverChecks = e.solver.Checks()
	e.report.Stats.Completed = e.track.Completed()
	e.report.Stats.DistinctEnds = len(e.ends)
	e.report.Elapsed = time.Since(e.report.Started)
	e.logger.With(map[string]any{
		"executed":   e.report.Stats.Executed,
		"skipped":    e.report.Stats.Skipped,
		"violations": e.report.Stats.Violations,
	}).Infof("symbolic execution finished")
	return e.report, nil
}

// runChunk executes combinations [start, end). Memo and tracker only live
// for one chunk.
func (e *engine) runChunk(odo *Odometer, start, end uint64) error {
	e.memo.reset()
	e.track.reset()
	ch := Chunk{Start: start, End: end}
	log := e.logger.With(map[string]any{"chunk": start})
	log.Debugf("chunk [%d, %d)", start, end)

	odo.Seek(start)
	for idx := start; idx < end; idx++ {
		if err := e.ctx.Err(); err != nil {
			return err
		}
		codes := odo.Codes()
		odo.Next()

		if e.opts.PruneCompleted && e.track.isDup(codes[e.design.Top]) {
			ch.Skipped++
			e.report.Stats.Skipped++
			continue
		}
		res, err := e.combination(idx, codes)
		if err != nil {
			return errors.Wrapf(err, "combination %d", idx)
		}
		e.track.record(codes[e.design.Top])
		ch.Executed++
		e.report.Stats.Executed++
		e.emit(res)
	}
	e.report.Chunks = append(e.report.Chunks, ch)
	return nil
}

// combination runs every cycle of the top module under one assignment of
// path codes.
func (e *engine) combination(idx uint64, codes map[string]string) (*PathResult, error) {
	e.store.Reset()
	e.solver.Reset()
	e.low.reset()
	e.codes = codes
	e.constraints = e.constraints[:0]
	e.asserted = false
	e.infeasible = false

	top := e.modules[e.design.Top]
	res := &PathResult{Index: idx, Codes: codes}
	log := e.logger.With(map[string]any{"comb": idx})

	for cycle := 0; cycle < e.opts.Cycles; cycle++ {
		if cycle > 0 {
			e.resymbolize(top)
		}
		f := e.newFrame(top, top.Name, codes[top.Name], true)
		err := f.run()
		if errors.Is(err, errAbandon) {
			res.Abandoned = true
			e.report.Stats.Abandoned++
			if e.infeasible {
				e.verdict(res, Verdict{Kind: VerdictInfeasible, Cycle: cycle})
			} else if e.asserted {
				if err := e.reportAssertion(res, cycle); err != nil {
					return nil, err
				}
			}
			log.Debugf("abandoned in cycle %d", cycle)
			break
		}
		if err != nil {
			return nil, err
		}
		if e.asserted {
			if err := e.reportAssertion(res, cycle); err != nil {
				return nil, err
			}
		}
	}

	if !res.Abandoned && len(e.constraints) > 0 {
		r, err := e.check()
		if err != nil {
			return nil, err
		}
		if r == smt.Sat {
			res.Model, _ = e.solver.Model()
		}
	}
	res.Store = e.store.Clone()
	res.PathCondition = make([]string, len(e.constraints))
	for i, c := range e.constraints {
		res.PathCondition[i] = c.String()
	}
	res.Fingerprint = FingerprintSnapshot(res.Store)
	return res, nil
}

// verdict keeps the first violation of a combination; an infeasible
// verdict never replaces one.
func (e *engine) verdict(res *PathResult, v Verdict) {
	switch {
	case res.Verdict.Kind == VerdictViolation:
		return
	case v.Kind == VerdictInfeasible && res.Verdict.Kind == VerdictInfeasible:
		return
	}
	res.Verdict = v
}

// resymbolize gives the top module's inputs fresh symbols for a new cycle.
func (e *engine) resymbolize(top *hdl.Module) {
	info := e.info[top.Name]
	for _, p := range top.Ports {
		if p.Dir != hdl.DirInput {
			continue
		}
		w, ok := info.widths[p.Name]
		if !ok {
			w = 1
		}
		e.store.Set(top.Name, p.Name, e.fresh(top.Name, p.Name, w))
	}
}

// visitChild executes child at path or merges its memoized result.
// bound lists the child signals the parent has just bound.
func (e *engine) visitChild(child *hdl.Module, path string, bound []string) error {
	code := e.codes[child.Name]
	key := memoKey{module: child.Name, code: code}
	fresh := !e.hasState(path, bound)
	useMemo := e.opts.EnableMemo && fresh

	ports := e.boundValues(path, bound)
	if useMemo {
		if ent, ok := e.memo.get(key); ok {
			log := e.logger.With(map[string]any{"inst": path})
			if subst, ok := ent.rebind(ports); ok {
				e.report.Stats.MemoHits++
				log.Debugf("memo hit for %s/%s", child.Name, code)
				return e.merge(ent, path, bound, subst)
			}
			log.Debugf("memo entry for %s/%s cannot be rebound, executing", child.Name, code)
		}
	}

	start := len(e.constraints)
	outer := e.asserted
	e.asserted = false
	e.report.Stats.ChildRuns[child.Name]++

	err := e.newFrame(child, path, code, false).run()
	childAsserted := e.asserted
	e.asserted = outer || childAsserted
	if err != nil {
		return err
	}
	if useMemo && distinctSymbols(ports) {
		e.memo.put(key, &memoEntry{
			ports:       ports,
			store:       e.store.Snapshot(path),
			constraints: slices.Clone(e.constraints[start:]),
			asserted:    childAsserted,
		})
	}
	return nil
}

// hasState reports whether path holds bindings other than bound, as it does
// from the second cycle on.
func (e *engine) hasState(path string, bound []string) bool {
	for _, inst := range e.store.Instances() {
		if _, ok := relPath(path, inst); !ok {
			continue
		}
		for _, sig := range e.store.Signals(inst) {
			if inst != path || !slices.Contains(bound, sig) {
				return true
			}
		}
	}
	return false
}

// check runs the solver, folding a timeout into Unknown.
func (e *engine) check() (smt.Result, error) {
	res, err := e.solver.Check(e.ctx)
	if errors.Is(err, smt.ErrTimeout) {
		e.warnOncef("timeout", "solver timed out, treating the query as unsat")
		return smt.Unknown, nil
	}
	return res, err
}

// emit hands a finished combination to the sink or the report.
func (e *engine) emit(res *PathResult) {
	e.ends[res.Fingerprint] = true
	switch res.Verdict.Kind {
	case VerdictViolation:
		e.report.Stats.Violations++
		e.report.Violations = append(e.report.Violations, res)
	case VerdictInfeasible:
		e.report.Stats.Infeasible++
	}
	if e.opts.ResultSink != nil {
		e.opts.ResultSink(res)
		return
	}
	if e.report.Piecewise && res.Verdict.Kind != VerdictViolation {
		// only violations keep their store in piecewise runs
		kept := *res
		kept.Store = nil
		res = &kept
	}
	e.report.Results = append(e.report.Results, res)
}

// fresh returns a new symbol named after its instance and signal.
func (e *engine) fresh(inst, sig string, width int) *Sym {
	id := e.nextSym
	e.nextSym++
	return &Sym{ID: id, Name: fmt.Sprintf("%s.%s#%d", inst, sig, id), Width: width}
}

// warnf logs a recoverable diagnostic and keeps it for the report.
func (e *engine) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.logger.Warnf("%s", msg)
	if !slices.Contains(e.report.Warnings, msg) {
		e.report.Warnings = append(e.report.Warnings, msg)
	}
}

// warnOncef is warnf deduplicated by key for the whole run.
func (e *engine) warnOncef(key, format string, args ...any) {
	if e.warned[key] {
		return
	}
	e.warned[key] = true
	e.warnf(format, args...)
}
