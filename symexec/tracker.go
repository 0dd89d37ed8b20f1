package symexec

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// tracker records which decision bits of the top module have had their
// taken arm fully explored, and skips path codes that would revisit them.
type tracker struct {
	width     int
	completed map[int]bool
	seen      []string
	setCount  []int
}

func newTracker(width int) *tracker {
	return &tracker{
		width:     width,
		completed: make(map[int]bool),
		setCount:  make([]int, width),
	}
}

// isDup reports whether code sets a completed bit.
func (t *tracker) isDup(code string) bool {
	for idx := range t.completed {
		if idx < len(code) && code[idx] == '1' {
			return true
		}
	}
	return false
}

// seenAllCases reports whether the taken arm at bitIndex is exhausted: every
// bit consumed before it is completed and enough recorded codes took it to
// cover its nested decisions.
func (t *tracker) seenAllCases(bitIndex, nested int) bool {
	if bitIndex < 0 || bitIndex >= t.width {
		return false
	}
	for i := bitIndex + 1; i < t.width; i++ {
		if !t.completed[i] {
			return false
		}
	}
	return t.setCount[bitIndex] >= nested
}

func (t *tracker) complete(bitIndex int) {
	t.completed[bitIndex] = true
}

// record appends an executed code to the seen log.
func (t *tracker) record(code string) {
	t.seen = append(t.seen, code)
	for i := 0; i < len(code) && i < t.width; i++ {
		if code[i] == '1' {
			t.setCount[i]++
		}
	}
}

// Completed returns the completed bit indices in ascending order.
func (t *tracker) Completed() []int {
	idx := maps.Keys(t.completed)
	slices.Sort(idx)
	return idx
}

func (t *tracker) reset() {
	maps.Clear(t.completed)
	t.seen = t.seen[:0]
	for i := range t.setCount {
		t.setCount[i] = 0
	}
}
