package symexec

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Store maps an instance path ("top", "top.u1") to the symbolic values of
// that instance's signals. One store is shared by every module visit of a
// combination so child writes are visible to the parent's port bindings.
type Store struct {
	insts map[string]map[string]Value
}

// Snapshot is a copy of an instance subtree with paths made relative to the
// subtree root. The root itself is "".
type Snapshot map[string]map[string]Value

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{insts: make(map[string]map[string]Value)}
}

// Get returns the value of sig in inst.
func (s *Store) Get(inst, sig string) (Value, bool) {
	v, ok := s.insts[inst][sig]
	return v, ok
}

// Set binds sig in inst to v.
func (s *Store) Set(inst, sig string, v Value) {
	m, ok := s.insts[inst]
	if !ok {
		m = make(map[string]Value)
		s.insts[inst] = m
	}
	m[sig] = v
}

// Has reports whether sig is bound in inst.
func (s *Store) Has(inst, sig string) bool {
	_, ok := s.insts[inst][sig]
	return ok
}

// Instances returns the instance paths, sorted.
func (s *Store) Instances() []string {
	keys := maps.Keys(s.insts)
	slices.Sort(keys)
	return keys
}

// Signals returns the signal names bound in inst, sorted.
func (s *Store) Signals(inst string) []string {
	keys := maps.Keys(s.insts[inst])
	slices.Sort(keys)
	return keys
}

// Reset drops every binding.
func (s *Store) Reset() {
	maps.Clear(s.insts)
}

// Len returns the number of bindings across all instances.
func (s *Store) Len() int {
	n := 0
	for _, m := range s.insts {
		n += len(m)
	}
	return n
}

// Snapshot copies root and every instance below it.
func (s *Store) Snapshot(root string) Snapshot {
	snap := make(Snapshot)
	for inst, sigs := range s.insts {
		rel, ok := relPath(root, inst)
		if !ok {
			continue
		}
		snap[rel] = maps.Clone(sigs)
	}
	return snap
}

// Clone copies the whole store as a snapshot rooted at "".
func (s *Store) Clone() Snapshot {
	snap := make(Snapshot, len(s.insts))
	for inst, sigs := range s.insts {
		snap[inst] = maps.Clone(sigs)
	}
	return snap
}

func relPath(root, inst string) (string, bool) {
	if inst == root {
		return "", true
	}
	if strings.HasPrefix(inst, root+".") {
		return inst[len(root)+1:], true
	}
	return "", false
}

func joinPath(root, rel string) string {
	if rel == "" {
		return root
	}
	return root + "." + rel
}

// Strings renders every value with String, for reports and tests.
func (snap Snapshot) Strings() map[string]map[string]string {
	out := make(map[string]map[string]string, len(snap))
	for inst, sigs := range snap {
		m := make(map[string]string, len(sigs))
		for k, v := range sigs {
			m[k] = v.String()
		}
		out[inst] = m
	}
	return out
}
