package search

import (
	"sort"

	"github.com/jobshop-sim/jobshop-sim/sim"
)

// bnbChild is one evaluated branch of a branch-and-bound node.
type bnbChild struct {
	action sim.Action
	lower  float64
	upper  float64
}

// branchAndBound explores the decision tree best-first within each node:
// every child is evaluated with an admissible lower bound and a heuristic
// rollout upper bound, children are visited in ascending upper-bound order,
// and a child is pruned when its upper bound no longer improves on the
// incumbent. Each rollout yields a complete schedule, so the incumbent
// tightens early and pruning bites from the first node on.
func (o *Optimizer) branchAndBound(s *sim.Simulator, plan []sim.Action, depth int) error {
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

	snap, err := s.Snapshot()
	if err != nil {
		return err
	}

	children := make([]bnbChild, 0, len(actions))
	for _, a := range actions {
		if _, err := s.Apply(a); err != nil {
			return err
		}
		if err := s.RunToDecision(); err != nil {
			return err
		}
		child := bnbChild{action: a, lower: s.LowerBound()}
		objective, taken, err := o.rollout(s)
		if err != nil {
			return err
		}
		child.upper = objective
		o.observe(objective, append(append(append([]sim.Action(nil), plan...), a), taken...))
		children = append(children, child)
		if err := s.Restore(snap); err != nil {
			return err
		}
		if o.budget.exhausted {
			return nil
		}
	}

	sort.SliceStable(children, func(i, j int) bool {
		return children[i].upper < children[j].upper
	})

	if !o.budget.depthOK(depth) {
		// The rollouts above already registered complete schedules.
		return nil
	}
	for _, c := range children {
		// The upper bound ordered the children and tightened the incumbent;
		// only the admissible lower bound may prune, or the optimum could be
		// discarded on a bad rollout.
		if c.lower >= o.best {
			continue
		}
		if _, err := s.Apply(c.action); err != nil {
			return err
		}
		if err := s.RunToDecision(); err != nil {
			return err
		}
		if err := o.branchAndBound(s, append(plan, c.action), depth+1); err != nil {
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
