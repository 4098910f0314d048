package search

import (
	"math"

	"github.com/jobshop-sim/jobshop-sim/sim"
)

// rollout completes the schedule from the simulator's current state under
// the configured heuristic, mutating the simulator. It returns the final
// objective and the decisions it applied. Callers restore from a snapshot
// afterwards.
func (o *Optimizer) rollout(s *sim.Simulator) (float64, []sim.Action, error) {
	var taken []sim.Action
	for {
		if err := s.RunToDecision(); err != nil {
			return 0, nil, err
		}
		actions := s.LegalActions()
		if len(actions) == 0 {
			return s.Objective(), taken, nil
		}
		a := o.pickRolloutAction(s, actions)
		if _, err := s.Apply(a); err != nil {
			return 0, nil, err
		}
		taken = append(taken, a)
	}
}

// pickRolloutAction scores each legal action under the rollout policy and
// returns the lowest; ties keep enumeration order.
func (o *Optimizer) pickRolloutAction(s *sim.Simulator, actions []sim.Action) sim.Action {
	best := actions[0]
	bestScore := o.rolloutScore(s, actions[0])
	for _, a := range actions[1:] {
		if score := o.rolloutScore(s, a); score < bestScore {
			best = a
			bestScore = score
		}
	}
	return best
}

func (o *Optimizer) rolloutScore(s *sim.Simulator, a sim.Action) float64 {
	job := s.Jobs.Get(a.Job)
	op := job.CurrentOp()
	if op == nil {
		return math.Inf(1)
	}
	expected := op.ExpectedOn(a.Machine)
	if o.cfg.Rollout == RolloutSPT {
		return expected
	}
	// ECT: earliest estimated completion on the target machine.
	start := s.Clock
	if m := s.MachineByName(a.Machine); m != nil && m.NextAvailable > start {
		start = m.NextAvailable
	}
	return start + expected
}
