package symexec

import (
	"strings"

	hdl "github.com/speakeasy-api/hdlsym"
)

// moduleInfo is the static summary of one module, computed once per run.
type moduleInfo struct {
	widths    map[string]int
	hasAssert bool

	// cone holds the always blocks that can influence an assertion; nil
	// means every block runs.
	cone map[*hdl.Always]bool
}

func analyzeModule(m *hdl.Module, marker string, coi bool) *moduleInfo {
	info := &moduleInfo{widths: make(map[string]int)}
	for _, p := range m.Ports {
		if p.Width > 0 {
			info.widths[p.Name] = p.Width
		}
	}
	for _, it := range m.Items {
		hdl.Inspect(it, func(n hdl.Node) bool {
			switch n := n.(type) {
			case *hdl.Decl:
				if n.Width > 0 {
					info.widths[n.Name] = n.Width
				}
			case *hdl.SystemCall:
				if isAssertion(n, marker) {
					info.hasAssert = true
				}
			}
			return true
		})
	}
	if coi && info.hasAssert {
		info.cone = coneOfInfluence(m, marker)
	}
	return info
}

// isAssertion reports whether a system call marks an assertion.
func isAssertion(c *hdl.SystemCall, marker string) bool {
	switch strings.TrimPrefix(c.Name, "$") {
	case "assert", "error", "fatal":
		return true
	}
	if marker == "" {
		return false
	}
	for _, a := range c.Args {
		switch a := a.(type) {
		case *hdl.StringConst:
			if strings.Contains(a.Value, marker) {
				return true
			}
		case *hdl.Ident:
			if a.Name == marker {
				return true
			}
		}
	}
	return false
}

// containsAssertion reports whether an assertion is reachable inside n.
func containsAssertion(n hdl.Node, marker string) bool {
	found := false
	hdl.Inspect(n, func(x hdl.Node) bool {
		if c, ok := x.(*hdl.SystemCall); ok && isAssertion(c, marker) {
			found = true
		}
		return !found
	})
	return found
}

// blockSignals collects the signals written and read by a statement tree.
type blockSignals struct {
	writes map[string]bool
	reads  map[string]bool
}

func collectSignals(n hdl.Node) blockSignals {
	bs := blockSignals{writes: map[string]bool{}, reads: map[string]bool{}}
	read := func(e hdl.Expr) {
		for _, s := range hdl.Signals(e) {
			bs.reads[s] = true
		}
	}
	hdl.Inspect(n, func(x hdl.Node) bool {
		switch x := x.(type) {
		case *hdl.Assign:
			if t, ok := hdl.Target(x.LHS); ok {
				bs.writes[t] = true
			}
			read(x.RHS)
		case *hdl.If:
			read(x.Cond)
		case *hdl.Case:
			read(x.Subject)
			for _, it := range x.Items {
				for _, m := range it.Matches {
					read(m)
				}
			}
		}
		return true
	})
	return bs
}

// assertionGuards returns the signals in the guards enclosing every
// assertion under n, plus any signals passed to the assertion itself.
func assertionGuards(n hdl.Node, marker string, guards []hdl.Expr, out map[string]bool) {
	switch n := n.(type) {
	case *hdl.Block:
		for _, s := range n.Stmts {
			assertionGuards(s, marker, guards, out)
		}
	case *hdl.If:
		inner := append(guards[:len(guards):len(guards)], n.Cond)
		assertionGuards(n.Then, marker, inner, out)
		assertionGuards(n.Else, marker, inner, out)
	case *hdl.Case:
		inner := append(guards[:len(guards):len(guards)], n.Subject)
		for _, it := range n.Items {
			assertionGuards(it.Body, marker, inner, out)
		}
	case *hdl.Always:
		assertionGuards(n.Body, marker, guards, out)
	case *hdl.Initial:
		assertionGuards(n.Body, marker, guards, out)
	case *hdl.SystemCall:
		if !isAssertion(n, marker) {
			return
		}
		for _, g := range guards {
			for _, s := range hdl.Signals(g) {
				out[s] = true
			}
		}
		for _, a := range n.Args {
			for _, s := range hdl.Signals(a) {
				out[s] = true
			}
		}
	}
}

// coneOfInfluence returns the always blocks of m that contain an assertion
// or transitively write a signal an assertion guard reads.
func coneOfInfluence(m *hdl.Module, marker string) map[*hdl.Always]bool {
	interest := make(map[string]bool)
	cone := make(map[*hdl.Always]bool)

	var blocks []*hdl.Always
	sigs := make(map[*hdl.Always]blockSignals)
	var assigns []blockSignals
	for _, it := range m.Items {
		assertionGuards(it, marker, nil, interest)
		switch it := it.(type) {
		case *hdl.Always:
			blocks = append(blocks, it)
			sigs[it] = collectSignals(it)
			if containsAssertion(it, marker) {
				cone[it] = true
			}
		case *hdl.Assign:
			assigns = append(assigns, collectSignals(it))
		}
	}

	grow := func(bs blockSignals) bool {
		changed := false
		for s := range bs.reads {
			if !interest[s] {
				interest[s] = true
				changed = true
			}
		}
		return changed
	}
	writesInterest := func(bs blockSignals) bool {
		for s := range bs.writes {
			if interest[s] {
				return true
			}
		}
		return false
	}

	for changed := true; changed; {
		changed = false
		for _, b := range blocks {
			if !cone[b] && writesInterest(sigs[b]) {
				cone[b] = true
				changed = true
			}
			if cone[b] && !containsAssertion(b, marker) && grow(sigs[b]) {
				changed = true
			}
		}
		for _, a := range assigns {
			if writesInterest(a) && grow(a) {
				changed = true
			}
		}
	}
	return cone
}

// countInstances tallies how often each module is instantiated across d.
func countInstances(d *hdl.Design) map[string]int {
	counts := make(map[string]int)
	for _, m := range d.Modules {
		for _, it := range m.Items {
			hdl.Inspect(it, func(n hdl.Node) bool {
				if inst, ok := n.(*hdl.Instance); ok {
					counts[inst.Module]++
				}
				return true
			})
		}
	}
	return counts
}
