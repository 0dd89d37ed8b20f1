package symexec

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	hdl "github.com/speakeasy-api/hdlsym"
)

// ErrUnknownModule is returned when the top module is not in the design.
var ErrUnknownModule = errors.New("unknown module")

// Execute symbolically executes top over modules, enumerating every
// combination of per-module path codes.
//
// Example:
//
//	d, _ := hdlsym.LoadDesignString(src)
//	report, err := symexec.Execute(ctx, d.Top, d.Modules)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, v := range report.Violations {
//	    fmt.Println(v.Codes, v.Verdict.Model)
//	}
func Execute(ctx context.Context, top string, modules []*hdl.Module, opts ...Options) (*Report, error) {
	return ExecuteDesign(ctx, &hdl.Design{Top: top, Modules: modules}, opts...)
}

// ExecuteDesign is Execute over a loaded design.
func ExecuteDesign(ctx context.Context, d *hdl.Design, opts ...Options) (*Report, error) {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if err := opt.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}
	if d == nil || len(d.Modules) == 0 {
		return nil, errors.Wrap(hdl.ErrInvalidDesign, "no modules")
	}
	if _, ok := d.Module(d.Top); !ok {
		return nil, errors.Wrapf(ErrUnknownModule, "top %q", d.Top)
	}
	return newEngine(ctx, d, opt).run()
}

// String summarizes the report for debugging.
func (r *Report) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Report{top: %s, combinations: %s, executed: %d, skipped: %d, violations: %d}",
		r.Top, r.Total, r.Stats.Executed, r.Stats.Skipped, r.Stats.Violations)
}
