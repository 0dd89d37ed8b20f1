package report

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/speakeasy-api/hdlsym/symexec"
	"gopkg.in/yaml.v3"
)

func sampleReport() *symexec.Report {
	violation := &symexec.PathResult{
		Index: 1,
		Codes: map[string]string{"top": "01"},
		Store: symexec.Snapshot{"top": {
			"out": &symexec.Const{Value: 1, Width: 32},
			"x":   &symexec.Sym{ID: 0, Name: "top.x#0", Width: 8},
		}},
		PathCondition: []string{"top.x#0 == 3"},
		Verdict: symexec.Verdict{
			Kind:  symexec.VerdictViolation,
			Cycle: 0,
			Model: map[string]uint64{"top.x#0": 3},
		},
	}
	clean := &symexec.PathResult{
		Index: 0,
		Codes: map[string]string{"top": "00"},
		Store: symexec.Snapshot{"top": {"out": &symexec.Const{Value: 0, Width: 32}}},
	}
	return &symexec.Report{
		ExecID: "e1",
		Top:    "top",
		Modules: []symexec.ModuleSpace{
			{Name: "top", Decisions: 1, Size: big.NewInt(2)},
			{Name: "adder", Decisions: 0, Size: big.NewInt(1)},
		},
		Total:      big.NewInt(2),
		Results:    []*symexec.PathResult{clean, violation},
		Violations: []*symexec.PathResult{violation},
		Stats: symexec.Stats{
			Combinations: 2,
			Executed:     2,
			Violations:   1,
			SolverChecks: 3,
			DistinctEnds: 2,
			ChildRuns:    map[string]int{"adder": 1},
		},
		Warnings: []string{"unresolved signal ghost in top.u1, using a placeholder symbol"},
		Started:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Elapsed:  1500 * time.Millisecond,
	}
}

// TestWriteText tests the text layout without colors
func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport(), TextOptions{}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got := buf.String()

	for _, want := range []string{
		"run e1 of top started 2026-01-02 03:04:05 UTC (1.5s)\n",
		"module  decisions  paths\ntop     1          2\nadder   0          1\n",
		"combinations: 2 (single pass)\n",
		"result: 1 violation(s), 0 infeasible assertion path(s)\n",
		"combination 1 VIOLATION (cycle 0)\n  code top = 01\n  assume top.x#0 == 3\n",
		"  symbol   value\n  top.x#0  3 (0x3)\n",
		"warnings:\n- A signal is read before it is declared or driven",
		"  Location: top.u1\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "combination 0") {
		t.Errorf("non-verbose output lists clean combinations:\n%s", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("output has color codes:\n%s", got)
	}
}

func TestWriteTextVerboseColor(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport(), TextOptions{Color: true, Verbose: true}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		colorRed + "1 violation(s)" + colorReset,
		"combination 0\n  code top = 00\n",
		"  signal   value\n  top.out  0\n",
		"  top.x    top.x#0\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q:\n%s", want, got)
		}
	}
}

// TestWriteIndentedTable tests that wide runes count by display width
func TestWriteIndentedTable(t *testing.T) {
	var b strings.Builder
	writeIndentedTable(&b, "", [][]string{
		{"名前", "x"},
		{"ab", "y"},
	})
	want := "名前  x\nab    y\n"
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, sampleReport(), false); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	var doc Document
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode output: %v\n%s", err, buf.String())
	}
	want := Document{
		Exec:    "e1",
		Top:     "top",
		Started: "2026-01-02T03:04:05Z",
		Total:   "2",
		Modules: []ModuleDoc{
			{Name: "top", Decisions: 1, Paths: "2"},
			{Name: "adder", Decisions: 0, Paths: "1"},
		},
		Stats: StatsDoc{Executed: 2, Violations: 1, SolverChecks: 3, DistinctEnds: 2},
		Violations: []ResultDoc{{
			Index:         1,
			Codes:         map[string]string{"top": "01"},
			Verdict:       "violation",
			PathCondition: []string{"top.x#0 == 3"},
			Model:         map[string]uint64{"top.x#0": 3},
		}},
		Warnings:  []string{"unresolved signal ghost in top.u1, using a placeholder symbol"},
		ChildRuns: map[string]int{"adder": 1},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(buf.String(), "store:") {
		t.Errorf("stores written without withStores:\n%s", buf.String())
	}
}

func TestWriteYAMLWithStores(t *testing.T) {
	doc := NewDocument(sampleReport(), true)
	if len(doc.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(doc.Results))
	}
	want := map[string]map[string]string{"top": {"out": "1", "x": "top.x#0"}}
	if diff := cmp.Diff(want, doc.Violations[0].Store); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatWarnings(t *testing.T) {
	tests := []struct {
		name    string
		warning string
		want    string
	}{
		{
			name:    "unresolved",
			warning: "unresolved signal ghost in top.u1, using a placeholder symbol",
			want: "- A signal is read before it is declared or driven; its value is unconstrained.\n" +
				"  Location: top.u1\n" +
				"  How to fix: Declare the signal as a wire or reg, or connect the port that drives it.\n" +
				"  Details: unresolved signal ghost in top.u1, using a placeholder symbol\n",
		},
		{
			name:    "alias",
			warning: "module deep has more decisions than the 32-bit path code; deeper decisions take the else arm",
			want: "- A module has more branch points than the path code can address.\n" +
				"  Location: module deep\n" +
				"  How to fix: Raise path_width to 128 or split the module.\n" +
				"  Details: module deep has more decisions than the 32-bit path code; deeper decisions take the else arm\n",
		},
		{
			name:    "unknown_module",
			warning: `instance u9 of unknown module "nope", skipped`,
			want: "- An instance refers to a module missing from the design.\n" +
				"  Location: instance u9\n" +
				"  How to fix: Add the module to the design file or fix the instance's module name.\n" +
				"  Details: instance u9 of unknown module \"nope\", skipped\n",
		},
		{
			name:    "other",
			warning: "something odd",
			want:    "- Engine warning.\n  Details: something odd\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatWarnings([]string{tt.warning})); diff != "" {
				t.Errorf("FormatWarnings mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if got := FormatWarnings(nil); got != "" {
		t.Errorf("FormatWarnings(nil) = %q", got)
	}
}
