// Package report renders symbolic execution reports for people and tools.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/itchyny/go-yaml"
	"github.com/itchyny/timefmt-go"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
	"github.com/speakeasy-api/hdlsym/symexec"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TimeLayout is the default strftime layout of report timestamps.
const TimeLayout = "%Y-%m-%d %H:%M:%S %Z"

// TextOptions controls WriteText.
type TextOptions struct {
	Color      bool   // ANSI colors for verdicts
	Verbose    bool   // List every explored combination, not only violations
	TimeLayout string // strftime layout for the start time (default: TimeLayout)
}

// ColorEnabled reports whether f is a terminal that can show colors.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

const (
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

func paint(on bool, color, s string) string {
	if !on {
		return s
	}
	return color + s + colorReset
}

// WriteText writes a human-readable report.
func WriteText(w io.Writer, r *symexec.Report, opts TextOptions) error {
	if opts.TimeLayout == "" {
		opts.TimeLayout = TimeLayout
	}
	var b strings.Builder

	fmt.Fprintf(&b, "run %s of %s started %s (%s)\n", r.ExecID, r.Top,
		timefmt.Format(r.Started, opts.TimeLayout), r.Elapsed.Round(1000))

	rows := [][]string{{"module", "decisions", "paths"}}
	for _, m := range r.Modules {
		rows = append(rows, []string{m.Name, fmt.Sprint(m.Decisions), m.Size.String()})
	}
	writeTable(&b, rows)

	mode := "single pass"
	if r.Piecewise {
		mode = fmt.Sprintf("piecewise, %d chunks", len(r.Chunks))
	}
	st := r.Stats
	fmt.Fprintf(&b, "combinations: %s (%s)\n", r.Total, mode)
	fmt.Fprintf(&b, "executed: %d  skipped: %d  abandoned: %d  memo hits: %d  solver checks: %d\n",
		st.Executed, st.Skipped, st.Abandoned, st.MemoHits, st.SolverChecks)

	verdict := paint(opts.Color, colorGreen, "no violations")
	if st.Violations > 0 {
		verdict = paint(opts.Color, colorRed, fmt.Sprintf("%d violation(s)", st.Violations))
	}
	fmt.Fprintf(&b, "result: %s, %d infeasible assertion path(s)\n", verdict, st.Infeasible)

	for _, v := range r.Violations {
		b.WriteByte('\n')
		writeResult(&b, v, opts)
	}
	if opts.Verbose {
		for _, res := range r.Results {
			if res.Verdict.Kind == symexec.VerdictViolation {
				continue
			}
			b.WriteByte('\n')
			writeResult(&b, res, opts)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteByte('\n')
		b.WriteString(paint(opts.Color, colorYellow, "warnings:"))
		b.WriteByte('\n')
		b.WriteString(FormatWarnings(r.Warnings))
	}

	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write report")
}

func writeResult(b *strings.Builder, res *symexec.PathResult, opts TextOptions) {
	title := fmt.Sprintf("combination %d", res.Index)
	switch res.Verdict.Kind {
	case symexec.VerdictViolation:
		title += " " + paint(opts.Color, colorRed, fmt.Sprintf("VIOLATION (cycle %d)", res.Verdict.Cycle))
	case symexec.VerdictInfeasible:
		title += " " + paint(opts.Color, colorGreen, "assertion infeasible")
	}
	if res.Abandoned {
		title += " [abandoned]"
	}
	b.WriteString(title)
	b.WriteByte('\n')

	for _, name := range sortedKeys(res.Codes) {
		fmt.Fprintf(b, "  code %s = %s\n", name, res.Codes[name])
	}
	for _, c := range res.PathCondition {
		fmt.Fprintf(b, "  assume %s\n", c)
	}

	model := res.Verdict.Model
	if model == nil {
		model = res.Model
	}
	if len(model) > 0 {
		rows := [][]string{{"symbol", "value"}}
		for _, name := range sortedKeys(model) {
			rows = append(rows, []string{name, fmt.Sprintf("%d (0x%x)", model[name], model[name])})
		}
		writeIndentedTable(b, "  ", rows)
	}
	if opts.Verbose {
		rows := [][]string{{"signal", "value"}}
		store := res.Store.Strings()
		for _, inst := range sortedKeys(store) {
			for _, sig := range sortedKeys(store[inst]) {
				rows = append(rows, []string{inst + "." + sig, store[inst][sig]})
			}
		}
		writeIndentedTable(b, "  ", rows)
	}
}

func writeTable(b *strings.Builder, rows [][]string) {
	writeIndentedTable(b, "", rows)
}

// writeIndentedTable pads columns by display width so wide runes align.
func writeIndentedTable(b *strings.Builder, indent string, rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		b.WriteString(indent)
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteByte('\n')
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// Document is the YAML form of a report.
type Document struct {
	Exec       string            `yaml:"exec"`
	Top        string            `yaml:"top"`
	Started    string            `yaml:"started"`
	Total      string            `yaml:"total"`
	Piecewise  bool              `yaml:"piecewise"`
	Modules    []ModuleDoc       `yaml:"modules"`
	Stats      StatsDoc          `yaml:"stats"`
	Violations []ResultDoc       `yaml:"violations,omitempty"`
	Results    []ResultDoc       `yaml:"results,omitempty"`
	Warnings   []string          `yaml:"warnings,omitempty"`
	ChildRuns  map[string]int    `yaml:"child_runs,omitempty"`
	Instances  map[string]int    `yaml:"instances,omitempty"`
	Extra      map[string]string `yaml:"extra,omitempty"`
}

type ModuleDoc struct {
	Name      string `yaml:"name"`
	Decisions int    `yaml:"decisions"`
	Paths     string `yaml:"paths"`
}

type StatsDoc struct {
	Executed     int   `yaml:"executed"`
	Skipped      int   `yaml:"skipped"`
	Abandoned    int   `yaml:"abandoned"`
	Violations   int   `yaml:"violations"`
	Infeasible   int   `yaml:"infeasible"`
	SolverChecks int   `yaml:"solver_checks"`
	MemoHits     int   `yaml:"memo_hits"`
	DistinctEnds int   `yaml:"distinct_ends"`
	Completed    []int `yaml:"completed,flow,omitempty"`
}

type ResultDoc struct {
	Index         uint64                       `yaml:"index"`
	Codes         map[string]string            `yaml:"codes"`
	Verdict       string                       `yaml:"verdict"`
	Cycle         int                          `yaml:"cycle,omitempty"`
	Abandoned     bool                         `yaml:"abandoned,omitempty"`
	PathCondition []string                     `yaml:"path_condition,omitempty"`
	Model         map[string]uint64            `yaml:"model,omitempty"`
	Store         map[string]map[string]string `yaml:"store,omitempty"`
}

// NewDocument converts r to its YAML form. Stores are included only when
// withStores is set.
func NewDocument(r *symexec.Report, withStores bool) *Document {
	doc := &Document{
		Exec:      r.ExecID,
		Top:       r.Top,
		Started:   timefmt.Format(r.Started.UTC(), "%Y-%m-%dT%H:%M:%SZ"),
		Total:     r.Total.String(),
		Piecewise: r.Piecewise,
		Stats: StatsDoc{
			Executed:     r.Stats.Executed,
			Skipped:      r.Stats.Skipped,
			Abandoned:    r.Stats.Abandoned,
			Violations:   r.Stats.Violations,
			Infeasible:   r.Stats.Infeasible,
			SolverChecks: r.Stats.SolverChecks,
			MemoHits:     r.Stats.MemoHits,
			DistinctEnds: r.Stats.DistinctEnds,
			Completed:    r.Stats.Completed,
		},
		Warnings:  r.Warnings,
		ChildRuns: r.Stats.ChildRuns,
		Instances: r.Stats.Instances,
	}
	for _, m := range r.Modules {
		doc.Modules = append(doc.Modules, ModuleDoc{Name: m.Name, Decisions: m.Decisions, Paths: m.Size.String()})
	}
	for _, v := range r.Violations {
		doc.Violations = append(doc.Violations, resultDoc(v, withStores))
	}
	if withStores {
		for _, res := range r.Results {
			doc.Results = append(doc.Results, resultDoc(res, true))
		}
	}
	return doc
}

func resultDoc(res *symexec.PathResult, withStore bool) ResultDoc {
	d := ResultDoc{
		Index:         res.Index,
		Codes:         res.Codes,
		Verdict:       res.Verdict.Kind.String(),
		Cycle:         res.Verdict.Cycle,
		Abandoned:     res.Abandoned,
		PathCondition: res.PathCondition,
		Model:         res.Verdict.Model,
	}
	if d.Model == nil {
		d.Model = res.Model
	}
	if withStore {
		d.Store = res.Store.Strings()
	}
	return d
}

// WriteYAML writes r as a YAML document.
func WriteYAML(w io.Writer, r *symexec.Report, withStores bool) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(r, withStores)); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return errors.Wrap(enc.Close(), "encode report")
}
