package sim

import "fmt"

// DispatchPolicy selects which of a machine's startable jobs runs next.
// candidates holds the JobIDs the machine already filtered for eligibility
// (released, queued here, assignment resolvable); the policy returns an index
// into candidates, or -1 to start nothing. Implementations are pure: they
// never mutate the queue or the jobs.
type DispatchPolicy interface {
	Select(candidates []JobID, jobs *JobSet, now float64) int
}

// FIFODispatch starts the earliest-queued eligible job. Default.
type FIFODispatch struct{}

func (FIFODispatch) Select(candidates []JobID, _ *JobSet, _ float64) int {
	if len(candidates) == 0 {
		return -1
	}
	return 0
}

// SPTDispatch starts the eligible job whose head operation has the smallest
// expected duration on this machine's assignment. Ties keep queue order.
type SPTDispatch struct{}

func (SPTDispatch) Select(candidates []JobID, jobs *JobSet, _ float64) int {
	if len(candidates) == 0 {
		return -1
	}
	best := 0
	bestDur := sptExpected(jobs, candidates[0])
	for i := 1; i < len(candidates); i++ {
		if d := sptExpected(jobs, candidates[i]); d < bestDur {
			best = i
			bestDur = d
		}
	}
	return best
}

func sptExpected(jobs *JobSet, id JobID) float64 {
	job := jobs.Get(id)
	op := job.CurrentOp()
	if op == nil {
		return 0
	}
	machine := op.Assigned
	if machine == "" && len(op.Candidates) > 0 {
		machine = op.Candidates[0]
	}
	return op.ExpectedOn(machine)
}

// NewDispatchPolicy creates a dispatch policy by name.
// Valid names: "fifo" (default, empty string allowed) and "spt".
func NewDispatchPolicy(name string) (DispatchPolicy, error) {
	switch name {
	case "", "fifo":
		return FIFODispatch{}, nil
	case "spt":
		return SPTDispatch{}, nil
	default:
		return nil, fmt.Errorf("unknown dispatch policy %q", name)
	}
}
