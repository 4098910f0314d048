package sim

import (
	"fmt"

	"github.com/jobshop-sim/jobshop-sim/sim/control"
	"github.com/jobshop-sim/jobshop-sim/sim/trace"
)

// MachineState is the machine's server state.
type MachineState int

const (
	MachineIdle MachineState = iota
	MachineBusy
)

func (s MachineState) String() string {
	if s == MachineBusy {
		return "busy"
	}
	return "idle"
}

// Machine is a named server with an input queue, a single running slot, and
// a per-destination transfer-time table. Its lifecycle is the state machine
// Idle -> Busy (start) -> Idle (end), with an idle self-loop when no
// eligible job is queued. The running slot is non-empty iff the state is
// Busy, and a job is in exactly one of {queued, running, finished}.
type Machine struct {
	name          string
	State         MachineState
	NextAvailable float64

	Queue    []JobID // queued bucket, in arrival order
	Running  JobID   // running slot; NoJob when idle
	Finished []JobID // finished bucket, for introspection and reporting

	Transfer map[string]Distribution // destination machine -> transfer delay

	dispatch DispatchPolicy
}

// NewMachine creates an idle machine. An initially busy machine from the
// scenario is modeled as idle with NextAvailable in the future: it starts
// nothing before that time.
func NewMachine(name string, transfer map[string]Distribution, nextAvailable float64, dispatch DispatchPolicy) *Machine {
	if dispatch == nil {
		dispatch = FIFODispatch{}
	}
	return &Machine{
		name:          name,
		State:         MachineIdle,
		NextAvailable: nextAvailable,
		Running:       NoJob,
		Transfer:      transfer,
		dispatch:      dispatch,
	}
}

// Name implements Model.
func (m *Machine) Name() string { return m.name }

// HandleEvent implements Model.
func (m *Machine) HandleEvent(ev Event, s *Simulator) error {
	switch ev.Kind {
	case EventMaterialArrival, EventPartArrival:
		return m.enqueue(ev.Job, s)
	case EventIdleCheck:
		return m.startNext(s)
	case EventEndOperation:
		return m.finish(s)
	default:
		return fmt.Errorf("machine %s: unexpected event kind %s", m.name, ev.Kind)
	}
}

// enqueue admits an arriving part, records the queue entry, and triggers an
// idle check. In dynamic mode an unbound head operation is submitted to the
// control tower.
func (m *Machine) enqueue(id JobID, s *Simulator) error {
	job := s.Jobs.Get(id)
	job.Status = StatusQueued
	job.Location = m.name
	job.QueuedAt = s.Clock
	m.Queue = append(m.Queue, id)

	op := job.CurrentOp()
	opID := ""
	if op != nil {
		opID = op.ID
	}
	s.record(trace.Record{
		Part: job.PartID, Job: job.ID, Operation: opID, Machine: m.name,
		Event: trace.TransitionQueued, Time: s.Clock, QueueLength: len(m.Queue),
	})

	if s.Tower != nil && op != nil && op.Assigned == "" {
		m.submitRequest(job, op, s)
		if err := s.runTowerPass(); err != nil {
			return err
		}
	}
	return s.Schedule(Event{Kind: EventIdleCheck, Source: m.name, Dest: m.name, Job: NoJob}, 0)
}

// submitRequest hands the job's head operation to the control tower.
func (m *Machine) submitRequest(job *Job, op *Operation, s *Simulator) {
	estimated := 0.0
	for _, c := range op.Candidates {
		if d, ok := op.Durations[c]; ok {
			estimated = d.Expected()
			break
		}
	}
	s.Tower.Submit(control.OperationRequest{
		OperationID:       op.ID,
		JobID:             job.ID,
		Type:              op.Type,
		Candidates:        op.Candidates,
		Priority:          job.Priority,
		EstimatedDuration: estimated,
	})
}

// startNext is the idle-check transition: if the machine is idle and an
// eligible job with a resolvable assignment is queued, start it; otherwise
// the check is a no-op self-loop.
func (m *Machine) startNext(s *Simulator) error {
	if m.State != MachineIdle || m.Running != NoJob {
		return nil
	}
	if s.Clock < m.NextAvailable {
		// Initially busy machine: re-check once it frees up.
		return s.Schedule(Event{Kind: EventIdleCheck, Source: m.name, Dest: m.name, Job: NoJob},
			m.NextAvailable-s.Clock)
	}

	startable, forwards := m.partition(s)
	for _, f := range forwards {
		if err := m.transferOut(f.job, f.dest, s); err != nil {
			return err
		}
	}
	pick := m.dispatch.Select(startable, s.Jobs, s.Clock)
	if pick < 0 || pick >= len(startable) {
		return nil
	}
	return m.start(startable[pick], s)
}

type forward struct {
	job  JobID
	dest string
}

// partition splits the queue into jobs this machine can start now and jobs
// that must be forwarded because their head operation is bound (or can only
// run) elsewhere. Jobs whose choice is deferred (unbound multi-candidate in
// search or dynamic mode) are left queued.
func (m *Machine) partition(s *Simulator) ([]JobID, []forward) {
	var startable []JobID
	var forwards []forward
	for _, id := range m.Queue {
		job := s.Jobs.Get(id)
		if job.Status != StatusQueued || job.Release > s.Clock {
			continue
		}
		op := job.CurrentOp()
		if op == nil {
			continue
		}
		switch {
		case op.Assigned == m.name:
			startable = append(startable, id)
		case op.Assigned != "":
			forwards = append(forwards, forward{job: id, dest: op.Assigned})
		case len(op.Candidates) == 1:
			if op.Candidates[0] == m.name {
				startable = append(startable, id)
			} else {
				forwards = append(forwards, forward{job: id, dest: op.Candidates[0]})
			}
		case s.SearchMode || s.Tower != nil:
			// Decision epoch: the optimizer or the tower owns this choice.
		case op.EligibleOn(m.name):
			// Static mode with no routing entry: greedy local binding.
			startable = append(startable, id)
		default:
			forwards = append(forwards, forward{job: id, dest: op.Candidates[0]})
		}
	}
	return startable, forwards
}

// start runs the head operation of job id on this machine.
func (m *Machine) start(id JobID, s *Simulator) error {
	job := s.Jobs.Get(id)
	op := job.CurrentOp()
	dist, err := m.durationFor(op, s)
	if err != nil {
		return err
	}
	dur, err := dist.Sample(s.rng.Source())
	if err != nil {
		return err
	}

	m.removeQueued(id)
	op.Assigned = m.name
	op.Start = s.Clock
	op.Started = true
	job.Status = StatusRunning
	m.Running = id
	m.State = MachineBusy
	m.NextAvailable = s.Clock + dur

	s.record(trace.Record{
		Part: job.PartID, Job: job.ID, Operation: op.ID, Machine: m.name,
		Event: trace.TransitionStart, Time: s.Clock, QueueLength: len(m.Queue),
	})
	if s.Tower != nil {
		s.Tower.ObserveMachine(m.name, true, m.NextAvailable, len(m.Queue), job.ID, op.ID)
		s.Tower.ObserveJob(job.ID, true)
	}
	return s.Schedule(Event{Kind: EventEndOperation, Source: m.name, Dest: m.name, Job: id}, dur)
}

// finish completes the running operation: stamp timing fields, advance the
// job cursor, and either retire the job or send the part onward.
func (m *Machine) finish(s *Simulator) error {
	id := m.Running
	if id == NoJob {
		return nil
	}
	job := s.Jobs.Get(id)
	op := job.CurrentOp()
	op.End = s.Clock
	op.Ended = true
	s.record(trace.Record{
		Part: job.PartID, Job: job.ID, Operation: op.ID, Machine: m.name,
		Event: trace.TransitionEnd, Time: s.Clock,
	})

	job.Advance()
	m.Running = NoJob
	m.State = MachineIdle
	m.NextAvailable = s.Clock
	if s.Tower != nil {
		s.Tower.ObserveMachine(m.name, false, s.Clock, len(m.Queue), "", "")
		s.Tower.ObserveJob(job.ID, false)
	}

	if job.Done() {
		job.Status = StatusDone
		job.CompletedAt = s.Clock
		job.Location = m.name
		m.Finished = append(m.Finished, id)
		s.record(trace.Record{
			Part: job.PartID, Job: job.ID, Machine: m.name,
			Event: trace.TransitionDone, Time: s.Clock,
		})
		if _, ok := s.models[TransducerName]; ok {
			if err := s.Schedule(Event{Kind: EventJobCompleted, Source: m.name, Dest: TransducerName, Job: id}, 0); err != nil {
				return err
			}
		}
	} else {
		if err := m.sendOnward(id, s); err != nil {
			return err
		}
	}

	if s.Tower != nil {
		// A machine freeing up is the retry epoch for pending requests.
		if err := s.runTowerPass(); err != nil {
			return err
		}
	}
	return s.Schedule(Event{Kind: EventIdleCheck, Source: m.name, Dest: m.name, Job: NoJob}, 0)
}

// sendOnward routes the part to the machine hosting its next operation,
// sampling the transfer delay from this machine's table.
func (m *Machine) sendOnward(id JobID, s *Simulator) error {
	job := s.Jobs.Get(id)
	next := job.CurrentOp()
	dest := next.Assigned
	if dest == "" {
		if s.Tower != nil {
			m.submitRequest(job, next, s)
			if err := s.runTowerPass(); err != nil {
				return err
			}
			dest = next.Assigned
		}
		if dest == "" {
			dest = next.Candidates[0]
		}
	}
	delay, err := m.sampleTransfer(dest, s)
	if err != nil {
		return err
	}
	job.Status = StatusTransfer
	job.Location = ""
	s.record(trace.Record{
		Part: job.PartID, Job: job.ID, Operation: next.ID, Machine: dest,
		Event: trace.TransitionTransfer, Time: s.Clock, Delay: delay,
	})
	return s.Schedule(Event{Kind: EventPartArrival, Source: m.name, Dest: dest, Job: id}, delay)
}

// transferOut moves a queued part to another machine's queue, with the
// transfer delay sampled from this machine's table.
func (m *Machine) transferOut(id JobID, dest string, s *Simulator) error {
	m.removeQueued(id)
	job := s.Jobs.Get(id)
	delay, err := m.sampleTransfer(dest, s)
	if err != nil {
		return err
	}
	op := job.CurrentOp()
	opID := ""
	if op != nil {
		opID = op.ID
	}
	job.Status = StatusTransfer
	job.Location = ""
	s.record(trace.Record{
		Part: job.PartID, Job: job.ID, Operation: opID, Machine: dest,
		Event: trace.TransitionTransfer, Time: s.Clock, Delay: delay,
	})
	return s.Schedule(Event{Kind: EventPartArrival, Source: m.name, Dest: dest, Job: id}, delay)
}

// sampleTransfer draws the transfer delay to dest. A missing self entry is a
// zero-delay move; any other missing entry uses the configured fallback or
// fails with a ConfigError.
func (m *Machine) sampleTransfer(dest string, s *Simulator) (float64, error) {
	dist, ok := m.Transfer[dest]
	if !ok {
		if dest == m.name {
			return 0, nil
		}
		if s.FallbackDuration != nil {
			return *s.FallbackDuration, nil
		}
		return 0, configErrorf("no transfer time from %s to %s", m.name, dest)
	}
	return dist.Sample(s.rng.Source())
}

// durationFor resolves the operation's duration distribution on this
// machine, honoring the fallback flag for missing table entries.
func (m *Machine) durationFor(op *Operation, s *Simulator) (Distribution, error) {
	if d, ok := op.Durations[m.name]; ok {
		return d, nil
	}
	if s.FallbackDuration != nil {
		return Fixed(*s.FallbackDuration), nil
	}
	return Distribution{}, configErrorf("no duration for operation %s (type %s) on machine %s", op.ID, op.Type, m.name)
}

// removeQueued deletes id from the queued bucket, preserving order.
func (m *Machine) removeQueued(id JobID) bool {
	for i, q := range m.Queue {
		if q == id {
			m.Queue = append(m.Queue[:i], m.Queue[i+1:]...)
			return true
		}
	}
	return false
}

// insertQueued places id at index i (clamped), preserving order of the rest.
func (m *Machine) insertQueued(id JobID, i int) {
	if i < 0 || i > len(m.Queue) {
		i = len(m.Queue)
	}
	m.Queue = append(m.Queue, NoJob)
	copy(m.Queue[i+1:], m.Queue[i:])
	m.Queue[i] = id
}
