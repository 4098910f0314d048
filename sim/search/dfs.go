package search

import "github.com/jobshop-sim/jobshop-sim/sim"

// dfs explores the decision tree exhaustively in depth-first order, pruning
// a branch when its admissible lower bound already meets the incumbent. The
// simulator arrives at each call stopped at a decision epoch (or drained).
func (o *Optimizer) dfs(s *sim.Simulator, plan []sim.Action, depth int) error {
	if !o.budget.visit() {
		return nil
	}
	actions := s.LegalActions()
	if len(actions) == 0 {
		if s.IsTerminal() {
			o.observe(s.Objective(), plan)
		}
		return nil
	}
	if s.LowerBound() >= o.best {
		return nil
	}
	if !o.budget.depthOK(depth) {
		// Cut short: salvage a complete schedule from here heuristically.
		objective, taken, err := o.rollout(s)
		if err != nil {
			return err
		}
		o.observe(objective, append(plan, taken...))
		return nil
	}

	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	for _, a := range actions {
		if _, err := s.Apply(a); err != nil {
			return err
		}
		if err := s.RunToDecision(); err != nil {
			return err
		}
		if err := o.dfs(s, append(plan, a), depth+1); err != nil {
			return err
		}
		if err := s.Restore(snap); err != nil {
			return err
		}
		if o.budget.exhausted {
			return nil
		}
	}
	return nil
}
