// sim/simulator.go
package sim

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jobshop-sim/jobshop-sim/sim/control"
	"github.com/jobshop-sim/jobshop-sim/sim/trace"
)

// Simulator is the core object that holds simulated time, the event queue,
// the model registry, and the job arena. It is single-threaded cooperative:
// exactly one event is in flight at a time, and all waiting is expressed as a
// future scheduled event.
type Simulator struct {
	Clock float64

	queue EventQueue
	seq   uint64

	models map[string]Model

	machines       []*Machine
	machinesByName map[string]*Machine

	Jobs     *JobSet
	rng      *RNG
	Recorder *trace.Recorder

	// Tower is non-nil in dynamic-scheduling mode; machines consult it at
	// decision epochs instead of a static routing table.
	Tower *control.Tower

	// SearchMode defers every multi-candidate assignment to the optimizer:
	// machines skip jobs whose head operation is unbound rather than
	// resolving the choice themselves.
	SearchMode bool

	// FallbackDuration, when non-nil, reproduces the legacy behavior of
	// substituting a fixed duration for missing duration/transfer table
	// entries instead of failing with a ConfigError.
	FallbackDuration *float64
}

// New creates an empty simulator owning a generator seeded once per run.
func New(seed uint64, rec *trace.Recorder) *Simulator {
	return &Simulator{
		queue:          make(EventQueue, 0),
		models:         make(map[string]Model),
		machinesByName: make(map[string]*Machine),
		Jobs:           NewJobSet(),
		rng:            NewRNG(seed),
		Recorder:       rec,
	}
}

// Now returns the current simulated time.
func (s *Simulator) Now() float64 { return s.Clock }

// RNG returns the run's owned random generator.
func (s *Simulator) RNG() *RNG { return s.rng }

// Register adds a model to the registry. Machines are additionally tracked
// in registration order for decision-epoch scans.
func (s *Simulator) Register(m Model) {
	s.models[m.Name()] = m
	if machine, ok := m.(*Machine); ok {
		s.machines = append(s.machines, machine)
		s.machinesByName[machine.name] = machine
	}
}

// MachineByName resolves a machine model, or nil.
func (s *Simulator) MachineByName(name string) *Machine {
	return s.machinesByName[name]
}

// Machines returns the machines in registration order.
func (s *Simulator) Machines() []*Machine { return s.machines }

// Schedule inserts ev at now + delay and stamps its FIFO sequence number.
// A negative delay is a caller error.
func (s *Simulator) Schedule(ev Event, delay float64) error {
	if delay < 0 {
		return fmt.Errorf("%w: %f for %s", ErrNegativeDelay, delay, ev.Kind)
	}
	ev.Time = s.Clock + delay
	s.push(ev)
	return nil
}

func (s *Simulator) push(ev Event) {
	ev.Seq = s.seq
	s.seq++
	heap.Push(&s.queue, ev)
}

// PendingEvents returns the number of undelivered events.
func (s *Simulator) PendingEvents() int { return len(s.queue) }

// Step pops and dispatches the earliest event. It returns false when the
// queue is empty. Time never decreases.
func (s *Simulator) Step() (bool, error) {
	if len(s.queue) == 0 {
		return false, nil
	}
	ev := heap.Pop(&s.queue).(Event)
	s.Clock = ev.Time
	if s.Tower != nil {
		s.Tower.AdvanceTime(s.Clock)
	}
	m, ok := s.models[ev.Dest]
	if !ok {
		return false, fmt.Errorf("%w: event %s routed to %q", ErrMissingModel, ev.Kind, ev.Dest)
	}
	logrus.Debugf("[t=%8.2f] %s -> %s", s.Clock, ev.Kind, ev.Dest)
	if err := m.HandleEvent(ev, s); err != nil {
		return false, fmt.Errorf("model %s handling %s: %w", ev.Dest, ev.Kind, err)
	}
	return true, nil
}

// Run drains the event queue.
func (s *Simulator) Run() error {
	for {
		ok, err := s.Step()
		if err != nil {
			return err
		}
		if !ok {
			logrus.Debugf("[t=%8.2f] simulation ended", s.Clock)
			return nil
		}
	}
}

// removeEvent deletes the event with the given sequence number from the
// queue, restoring heap order. Used by Undo to reverse a scheduled check.
func (s *Simulator) removeEvent(seq uint64) bool {
	for i := range s.queue {
		if s.queue[i].Seq == seq {
			heap.Remove(&s.queue, i)
			return true
		}
	}
	return false
}

// record appends to the run recorder (nil-safe).
func (s *Simulator) record(rec trace.Record) {
	s.Recorder.Append(rec)
}

// runTowerPass executes one tower scheduling pass and applies the resulting
// assignments: binding operations and, when the part currently sits in a
// different machine's queue, emitting the transfer. Called by machines at
// arrival and finish epochs in dynamic mode.
func (s *Simulator) runTowerPass() error {
	if s.Tower == nil {
		return nil
	}
	assignments := s.Tower.AssignPending(s.Clock)
	for _, a := range assignments {
		id, ok := s.Jobs.Lookup(a.JobID)
		if !ok {
			continue
		}
		job := s.Jobs.Get(id)
		op := job.CurrentOp()
		if op == nil || op.ID != a.OperationID {
			// Stale assignment: the job moved past this operation.
			continue
		}
		op.Assigned = a.Machine
		if job.Status != StatusQueued {
			continue
		}
		if job.Location == a.Machine {
			if err := s.Schedule(Event{Kind: EventIdleCheck, Source: a.Machine, Dest: a.Machine, Job: NoJob}, 0); err != nil {
				return err
			}
			continue
		}
		src := s.MachineByName(job.Location)
		if src == nil {
			return fmt.Errorf("%w: job %s located at unknown machine %q", ErrMissingModel, job.ID, job.Location)
		}
		if err := src.transferOut(id, a.Machine, s); err != nil {
			return err
		}
	}
	return nil
}
