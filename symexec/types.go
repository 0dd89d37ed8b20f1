package symexec

import (
	"io"
	"math/big"
	"time"

	"github.com/pkg/errors"
)

// Options configures a run.
type Options struct {
	// Path codes
	PathWidth int    `yaml:"path_width"` // Characters per path code, 32 or 128 (default: 32)
	Ceiling   uint64 `yaml:"ceiling"`    // Combinations above this run piecewise (default: 100000)
	ChunkSize uint64 `yaml:"chunk_size"` // Combinations per piecewise chunk (default: 10000)
	Cycles    int    `yaml:"cycles"`     // Clock cycles unrolled per combination (default: 1)

	// Behavior flags
	PruneCompleted    bool `yaml:"prune_completed"`    // Skip codes that set a completed bit of the top module (default: true)
	AbandonInfeasible bool `yaml:"abandon_infeasible"` // Check each guard before taking it and abandon when unsat (default: true)
	EnableMemo        bool `yaml:"enable_memo"`        // Reuse explored child states per (module, code) (default: true)
	ConeOfInfluence   bool `yaml:"cone_of_influence"`  // Only run always blocks that can reach an assertion (default: false)

	// Solving
	SolverTimeout   time.Duration `yaml:"solver_timeout"`   // Per-check bound, 0 for none; a timeout counts as unsat (default: 0)
	AssertionMarker string        `yaml:"assertion_marker"` // System call argument text marking an assertion (default: "ASSERTION")

	// Logging configuration
	LogLevel  string    `yaml:"log_level"` // "off", "error", "warn", "info", "debug" (default: "warn")
	Logger    Logger    `yaml:"-"`         // Overrides LogLevel when set
	LogOutput io.Writer `yaml:"-"`         // Destination for the default logger (default: os.Stderr)

	// ResultSink receives each explored combination. When set, results are
	// streamed instead of retained in the report; violations are always
	// retained. Without a sink, a piecewise run retains non-violation results
	// without their final store, so callers that need every store should
	// stream them.
	ResultSink func(*PathResult) `yaml:"-"`
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		PathWidth:         32,
		Ceiling:           100000,
		ChunkSize:         10000,
		Cycles:            1,
		PruneCompleted:    true,
		AbandonInfeasible: true,
		EnableMemo:        true,
		ConeOfInfluence:   false,
		AssertionMarker:   "ASSERTION",
		LogLevel:          "warn",
	}
}

// Validate rejects option values the engine cannot run with.
func (o Options) Validate() error {
	if o.PathWidth != 32 && o.PathWidth != 128 {
		return errors.Errorf("path_width must be 32 or 128, got %d", o.PathWidth)
	}
	if o.Ceiling == 0 {
		return errors.New("ceiling must be positive")
	}
	if o.ChunkSize == 0 {
		return errors.New("chunk_size must be positive")
	}
	if o.Cycles < 1 {
		return errors.Errorf("cycles must be at least 1, got %d", o.Cycles)
	}
	if o.SolverTimeout < 0 {
		return errors.New("solver_timeout must not be negative")
	}
	if _, err := ParseLogLevel(o.LogLevel); err != nil {
		return err
	}
	return nil
}

// VerdictKind classifies the outcome of an assertion check.
type VerdictKind int

const (
	VerdictNone VerdictKind = iota
	VerdictViolation
	VerdictInfeasible
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictViolation:
		return "violation"
	case VerdictInfeasible:
		return "infeasible"
	default:
		return "none"
	}
}

// Verdict is the reporter's answer for a combination that reached an
// assertion. Model maps symbol names to a satisfying assignment.
type Verdict struct {
	Kind  VerdictKind
	Cycle int
	Model map[string]uint64
}

// PathResult is one explored combination.
type PathResult struct {
	Index         uint64            // Combination index in product order
	Codes         map[string]string // Module name to assigned path code
	Store         Snapshot          // Final store
	PathCondition []string          // Constraints committed, in order
	Abandoned     bool              // An infeasible guard cut the combination short
	Model         map[string]uint64 // Satisfying assignment of the path condition
	Verdict       Verdict
	Fingerprint   string // Hash of the final store
}

// Chunk describes one contiguous range [Start, End) of combinations.
type Chunk struct {
	Start    uint64
	End      uint64
	Executed int
	Skipped  int
}

// Stats holds run counters.
type Stats struct {
	Combinations uint64         // Combinations enumerated
	Executed     int            // Combinations visited
	Skipped      int            // Combinations pruned as duplicates
	Abandoned    int            // Combinations cut short by an infeasible guard
	Violations   int            // Assertions with a counterexample
	Infeasible   int            // Assertions proven unreachable on their path
	SolverChecks int            // SAT searches run
	MemoHits     int            // Child visits served from the memo
	ChildRuns    map[string]int // Child executions per module
	Instances    map[string]int // Static instantiation count per module
	Completed    []int          // Completed bit indices when the run ended
	DistinctEnds int            // Distinct final stores among executed combinations
}

// Report is the result of a run.
type Report struct {
	ExecID     string
	Top        string
	Modules    []ModuleSpace
	Total      *big.Int
	Piecewise  bool
	Chunks     []Chunk
	Results    []*PathResult
	Violations []*PathResult
	Stats      Stats
	Warnings   []string
	Started    time.Time
	Elapsed    time.Duration
}
