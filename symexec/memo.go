package symexec

import (
	"github.com/speakeasy-api/hdlsym/pkg/smt"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// memoKey identifies one explored child: a module under one path code.
type memoKey struct {
	module string
	code   string
}

// memoEntry is what a child visit left behind: the values its ports were
// bound to, its instance subtree with paths relative to the instance, and
// the constraints it committed.
type memoEntry struct {
	ports       map[string]Value
	store       Snapshot
	constraints []Cond
	asserted    bool
}

// boundValues reads the values the parent bound at path.
func (e *engine) boundValues(path string, bound []string) map[string]Value {
	vals := make(map[string]Value, len(bound))
	for _, sig := range bound {
		if v, ok := e.store.Get(path, sig); ok {
			vals[sig] = v
		}
	}
	return vals
}

// distinctSymbols reports whether every symbolic port value is a different
// symbol. Only then can each port be rebound on its own.
func distinctSymbols(ports map[string]Value) bool {
	seen := make(map[int]bool, len(ports))
	for _, v := range ports {
		s, ok := v.(*Sym)
		if !ok {
			continue
		}
		if seen[s.ID] {
			return false
		}
		seen[s.ID] = true
	}
	return true
}

// rebind maps each memoized port value to the live one. It fails when the
// ports differ or a port whose value changed was not bound to a symbol,
// since a constant cannot be told apart from equal literals in the child.
func (ent *memoEntry) rebind(live map[string]Value) (Subst, bool) {
	if len(live) != len(ent.ports) {
		return nil, false
	}
	names := maps.Keys(ent.ports)
	slices.Sort(names)
	var subst Subst
	for _, sig := range names {
		old := ent.ports[sig]
		cur, ok := live[sig]
		if !ok {
			return nil, false
		}
		if Equal(old, cur) {
			continue
		}
		if _, ok := old.(*Sym); !ok {
			return nil, false
		}
		subst = append(subst, Binding{From: old, To: cur})
	}
	return subst, true
}

type memo struct {
	entries map[memoKey]*memoEntry
}

func newMemo() *memo {
	return &memo{entries: make(map[memoKey]*memoEntry)}
}

func (m *memo) get(k memoKey) (*memoEntry, bool) {
	ent, ok := m.entries[k]
	return ent, ok
}

// put stores the first result for k; later results are dropped.
func (m *memo) put(k memoKey, ent *memoEntry) {
	if _, ok := m.entries[k]; !ok {
		m.entries[k] = ent
	}
}

func (m *memo) reset() {
	maps.Clear(m.entries)
}

// merge replays ent into the live store at path, rewriting the memoized
// port symbols with subst. Values the parent has already bound for this
// visit stay.
func (e *engine) merge(ent *memoEntry, path string, bound []string, subst Subst) error {
	rels := maps.Keys(ent.store)
	slices.Sort(rels)
	for _, rel := range rels {
		inst := joinPath(path, rel)
		sigs := ent.store[rel]
		names := maps.Keys(sigs)
		slices.Sort(names)
		for _, sig := range names {
			if rel == "" && slices.Contains(bound, sig) {
				continue
			}
			e.store.Set(inst, sig, Substitute(sigs[sig], subst))
		}
	}

	if ent.asserted {
		e.asserted = true
	}
	if len(ent.constraints) == 0 {
		return nil
	}
	for _, c := range ent.constraints {
		c = SubstituteCond(c, subst)
		e.solver.Assert(e.low.cond(c))
		e.constraints = append(e.constraints, c)
	}
	if !e.opts.AbandonInfeasible {
		return nil
	}
	res, err := e.check()
	if err != nil {
		return err
	}
	if res != smt.Sat {
		return errAbandon
	}
	return nil
}
