package symexec

import (
	"github.com/speakeasy-api/hdlsym/pkg/smt"
)

// reportAssertion decides the path condition after an assertion was
// reached: a model is a counterexample, anything else means the assertion
// cannot fire on this path. The reached flag is cleared.
func (e *engine) reportAssertion(res *PathResult, cycle int) error {
	e.asserted = false
	log := e.logger.With(map[string]any{"comb": res.Index, "cycle": cycle})

	r, err := e.check()
	if err != nil {
		return err
	}
	if r != smt.Sat {
		log.Infof("assertion unreachable on this path (%s)", r)
		e.verdict(res, Verdict{Kind: VerdictInfeasible, Cycle: cycle})
		return nil
	}
	model, err := e.solver.Model()
	if err != nil {
		return err
	}
	log.Infof("assertion violated")
	e.verdict(res, Verdict{Kind: VerdictViolation, Cycle: cycle, Model: model})
	return nil
}
