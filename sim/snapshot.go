package sim

import (
	"fmt"

	"github.com/jobshop-sim/jobshop-sim/sim/control"
)

// machineRecord is the value copy of one machine's mutable fields. Queues
// and buckets hold JobIDs, so copying the slices copies the full state.
type machineRecord struct {
	state         MachineState
	nextAvailable float64
	queue         []JobID
	running       JobID
	finished      []JobID
}

// Snapshot is an opaque, fully detached copy of the simulation state: clock,
// event queue (ordering preserved), every job's value record, every
// machine's mutable fields, the control tower mirror, the recorder length,
// and the RNG's internal state. Restoring it makes the simulator's
// observable behavior indistinguishable from the moment of capture.
//
// Nothing in a Snapshot aliases live state: jobs and machines are backed by
// stable ids, and the snapshot stores per-id value copies, so restore
// re-binds ids rather than hunting for "the right instance".
type Snapshot struct {
	clock    float64
	seq      uint64
	events   EventQueue
	jobs     []Job
	machines []machineRecord
	tower    *control.Snapshot
	records  int
	rng      []byte
}

// Snapshot captures the complete mutable simulation state.
func (s *Simulator) Snapshot() (*Snapshot, error) {
	rngState, err := s.rng.MarshalState()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	snap := &Snapshot{
		clock:    s.Clock,
		seq:      s.seq,
		events:   s.queue.Clone(),
		jobs:     s.Jobs.copyRecords(),
		machines: make([]machineRecord, len(s.machines)),
		records:  s.Recorder.Len(),
		rng:      rngState,
	}
	for i, m := range s.machines {
		snap.machines[i] = machineRecord{
			state:         m.State,
			nextAvailable: m.NextAvailable,
			queue:         append([]JobID(nil), m.Queue...),
			running:       m.Running,
			finished:      append([]JobID(nil), m.Finished...),
		}
	}
	if s.Tower != nil {
		snap.tower = s.Tower.Snapshot()
	}
	return snap, nil
}

// Restore rewinds the simulator to a previously captured snapshot. It is the
// exact inverse of Snapshot.
func (s *Simulator) Restore(snap *Snapshot) error {
	if len(snap.machines) != len(s.machines) {
		return fmt.Errorf("restore: snapshot has %d machines, simulator has %d", len(snap.machines), len(s.machines))
	}
	s.Clock = snap.clock
	s.seq = snap.seq
	s.queue = snap.events.Clone()
	s.Jobs.restoreRecords(snap.jobs)
	for i, m := range s.machines {
		rec := snap.machines[i]
		m.State = rec.state
		m.NextAvailable = rec.nextAvailable
		m.Queue = append([]JobID(nil), rec.queue...)
		m.Running = rec.running
		m.Finished = append([]JobID(nil), rec.finished...)
	}
	if s.Tower != nil && snap.tower != nil {
		s.Tower.Restore(snap.tower)
	}
	s.Recorder.Truncate(snap.records)
	if err := s.rng.RestoreState(snap.rng); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}
