package sim

import (
	"fmt"
	"math"
)

// Action binds one operation to one machine at a decision epoch.
type Action struct {
	OperationID string
	Job         JobID
	Machine     string
}

func (a Action) String() string {
	return fmt.Sprintf("%s->%s", a.OperationID, a.Machine)
}

// UndoToken records what Apply changed so Undo can reverse it exactly.
type UndoToken struct {
	action       Action
	prevAssigned string
	srcMachine   string
	srcIndex     int
	moved        bool
	eventSeq     uint64
	scheduled    bool
}

// HasDecision reports whether a decision epoch is open: some idle machine
// has an eligible queued job whose head operation is unbound with more than
// one feasible machine.
func (s *Simulator) HasDecision() bool {
	for _, m := range s.machines {
		if m.State != MachineIdle || s.Clock < m.NextAvailable {
			continue
		}
		for _, id := range m.Queue {
			job := s.Jobs.Get(id)
			if job.Status != StatusQueued || job.Release > s.Clock {
				continue
			}
			op := job.CurrentOp()
			if op != nil && op.Assigned == "" && len(op.Candidates) > 1 {
				return true
			}
		}
	}
	return false
}

// LegalActions enumerates the deduplicated (operation, machine) pairs
// reachable from the current decision epoch, in machine-registration and
// candidate-list order.
func (s *Simulator) LegalActions() []Action {
	var actions []Action
	seen := make(map[string]bool)
	for _, m := range s.machines {
		if m.State != MachineIdle || s.Clock < m.NextAvailable {
			continue
		}
		for _, id := range m.Queue {
			job := s.Jobs.Get(id)
			if job.Status != StatusQueued || job.Release > s.Clock {
				continue
			}
			op := job.CurrentOp()
			if op == nil || op.Assigned != "" || len(op.Candidates) < 2 {
				continue
			}
			for _, c := range op.Candidates {
				key := op.ID + "->" + c
				if seen[key] {
					continue
				}
				seen[key] = true
				actions = append(actions, Action{OperationID: op.ID, Job: id, Machine: c})
			}
		}
	}
	return actions
}

// Apply executes an assignment decision: the operation is bound to the
// machine and the job's part moves from its current queue to the target
// queue (appended; use ApplyAt for a specific insertion index). The returned
// token reverses the mutation exactly via Undo.
func (s *Simulator) Apply(a Action) (UndoToken, error) {
	return s.ApplyAt(a, -1)
}

// ApplyAt is Apply with a caller-specified insertion index into the target
// queue; index -1 appends.
func (s *Simulator) ApplyAt(a Action, index int) (UndoToken, error) {
	job := s.Jobs.Get(a.Job)
	if job.Status != StatusQueued {
		return UndoToken{}, fmt.Errorf("apply %s: job %s is %s, not queued", a, job.ID, job.Status)
	}
	op := job.CurrentOp()
	if op == nil || op.ID != a.OperationID {
		return UndoToken{}, fmt.Errorf("apply %s: not job %s's current operation", a, job.ID)
	}
	if !op.EligibleOn(a.Machine) {
		return UndoToken{}, fmt.Errorf("apply %s: machine not in candidate set", a)
	}
	dst := s.MachineByName(a.Machine)
	if dst == nil {
		return UndoToken{}, fmt.Errorf("apply %s: %w", a, ErrMissingModel)
	}
	src := s.MachineByName(job.Location)
	if src == nil {
		return UndoToken{}, fmt.Errorf("apply %s: job %s located at unknown machine %q", a, job.ID, job.Location)
	}

	token := UndoToken{action: a, prevAssigned: op.Assigned, srcMachine: src.name}
	op.Assigned = a.Machine
	if src != dst {
		token.srcIndex = src.queueIndex(a.Job)
		src.removeQueued(a.Job)
		dst.insertQueued(a.Job, index)
		job.Location = dst.name
		token.moved = true
	}
	token.eventSeq = s.seq
	token.scheduled = true
	if err := s.Schedule(Event{Kind: EventIdleCheck, Source: dst.name, Dest: dst.name, Job: NoJob}, 0); err != nil {
		return UndoToken{}, err
	}
	return token, nil
}

// Undo exactly reverses a previous Apply: queue membership, assignment, and
// the scheduled idle check are all restored.
func (s *Simulator) Undo(token UndoToken) error {
	job := s.Jobs.Get(token.action.Job)
	op := job.CurrentOp()
	if op == nil || op.ID != token.action.OperationID {
		return fmt.Errorf("undo %s: not job %s's current operation", token.action, job.ID)
	}
	if token.scheduled {
		s.removeEvent(token.eventSeq)
	}
	if token.moved {
		dst := s.MachineByName(token.action.Machine)
		src := s.MachineByName(token.srcMachine)
		dst.removeQueued(token.action.Job)
		src.insertQueued(token.action.Job, token.srcIndex)
		job.Location = src.name
	}
	op.Assigned = token.prevAssigned
	return nil
}

func (m *Machine) queueIndex(id JobID) int {
	for i, q := range m.Queue {
		if q == id {
			return i
		}
	}
	return -1
}

// RunToDecision steps the event loop until a decision epoch opens or the
// queue drains. It is the optimizer's transition function between decisions.
func (s *Simulator) RunToDecision() error {
	for {
		if s.HasDecision() {
			return nil
		}
		ok, err := s.Step()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// IsTerminal holds when every machine's queued and running buckets are empty
// and every job has completed its operation sequence.
func (s *Simulator) IsTerminal() bool {
	for _, m := range s.machines {
		if len(m.Queue) > 0 || m.Running != NoJob {
			return false
		}
	}
	for _, id := range s.Jobs.All() {
		if !s.Jobs.Get(id).Done() {
			return false
		}
	}
	return true
}

// Objective is the makespan: the maximum completion time over finished jobs,
// or +Inf while the state is non-terminal.
func (s *Simulator) Objective() float64 {
	if !s.IsTerminal() {
		return math.Inf(1)
	}
	makespan := 0.0
	for _, id := range s.Jobs.All() {
		if c := s.Jobs.Get(id).CompletedAt; c > makespan {
			makespan = c
		}
	}
	return makespan
}

// LowerBound returns an admissible bound on the best makespan achievable
// from the current state: per job, the earliest it could plausibly finish if
// every remaining operation ran back-to-back at its distribution floor on
// its cheapest candidate machine, ignoring contention. A running operation
// contributes only its already-elapsed time. The bound never exceeds the
// true optimum, so pruning on it is safe.
func (s *Simulator) LowerBound() float64 {
	bound := 0.0
	for _, id := range s.Jobs.All() {
		job := s.Jobs.Get(id)
		if job.Done() {
			if job.CompletedAt > bound {
				bound = job.CompletedAt
			}
			continue
		}
		t := max(s.Clock, job.Release)
		start := job.Idx
		if op := job.CurrentOp(); op != nil && op.Started && !op.Ended {
			// Remaining time of the running operation is >= 0; skip it.
			start = job.Idx + 1
		}
		for i := start; i < len(job.Ops); i++ {
			t += job.Ops[i].MinPlausibleDuration()
		}
		if t > bound {
			bound = t
		}
	}
	return bound
}
