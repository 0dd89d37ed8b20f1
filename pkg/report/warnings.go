package report

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	inInstanceRe = regexp.MustCompile(`\bin ([A-Za-z_$][\w$.]*)`)
	moduleRe     = regexp.MustCompile(`\bmodule ([A-Za-z_$][\w$]*)`)
	instanceRe   = regexp.MustCompile(`^instance ([A-Za-z_$][\w$]*)`)
)

// FormatWarnings turns engine warnings into a list with locations and hints.
func FormatWarnings(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}

	var b strings.Builder
	for _, w := range warnings {
		msg, hint := classifyAndHint(w)
		fmt.Fprintf(&b, "- %s\n", msg)
		if loc := deriveLocation(w); loc != "" {
			fmt.Fprintf(&b, "  Location: %s\n", loc)
		}
		if hint != "" {
			fmt.Fprintf(&b, "  How to fix: %s\n", hint)
		}
		fmt.Fprintf(&b, "  Details: %s\n", strings.TrimSpace(w))
	}
	return b.String()
}

func deriveLocation(s string) string {
	if m := moduleRe.FindStringSubmatch(s); len(m) == 2 {
		return "module " + m[1]
	}
	if m := inInstanceRe.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	if m := instanceRe.FindStringSubmatch(s); len(m) == 2 {
		return "instance " + m[1]
	}
	return ""
}

func classifyAndHint(s string) (msg, hint string) {
	switch {
	case strings.HasPrefix(s, "unresolved signal"):
		msg = "A signal is read before it is declared or driven; its value is unconstrained."
		hint = "Declare the signal as a wire or reg, or connect the port that drives it."
	case strings.HasPrefix(s, "unsupported expression"):
		msg = "An expression form the engine cannot model was replaced by an unconstrained value."
		hint = "Rewrite it with arithmetic, bitwise, comparison, select or concatenation operators."
	case strings.HasPrefix(s, "unsupported statement"), strings.HasPrefix(s, "unsupported node"):
		msg = "A statement the engine cannot model was skipped."
		hint = "Results for paths through this statement may miss behavior; rewrite it with supported statements."
	case strings.Contains(s, "more decisions than"):
		msg = "A module has more branch points than the path code can address."
		hint = "Raise path_width to 128 or split the module."
	case strings.Contains(s, "unknown module"):
		msg = "An instance refers to a module missing from the design."
		hint = "Add the module to the design file or fix the instance's module name."
	case strings.Contains(s, "positional connections"):
		msg = "An instance connects more signals than its module has ports."
		hint = "Remove the extra connections or use named port connections."
	case strings.Contains(s, "solver"):
		msg = "A satisfiability check hit its time limit and was counted as unsatisfiable."
		hint = "Raise solver_timeout or set it to 0 to disable the limit."
	default:
		msg = "Engine warning."
	}
	return msg, hint
}
