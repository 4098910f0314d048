package sim

import "fmt"

// JobID is a stable arena index for a job. Machine queues, buckets, and event
// payloads store JobIDs, never pointers, so snapshot/restore copies per-id
// value records and re-binds ids without any identity search.
type JobID int

// NoJob is the empty payload / empty running slot marker.
const NoJob JobID = -1

// JobStatus tracks where a job is in its lifecycle.
type JobStatus int

const (
	StatusQueued JobStatus = iota
	StatusRunning
	StatusTransfer
	StatusDone
)

func (s JobStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusTransfer:
		return "transfer"
	case StatusDone:
		return "done"
	default:
		return fmt.Sprintf("job_status(%d)", int(s))
	}
}

// Operation is one step of a job: a fixed set of candidate machines and a
// per-machine duration distribution, bound to a concrete machine either by a
// static routing table, the control tower, or a search decision.
//
// Candidates and Durations are immutable after construction and may be shared
// between a live operation and its snapshot copies; Assigned and the timing
// fields are per-copy values.
type Operation struct {
	ID         string
	Type       string
	Candidates []string
	Durations  map[string]Distribution // machine -> duration distribution
	Assigned   string                  // "" until bound to a machine

	Start   float64
	End     float64
	Started bool
	Ended   bool
}

// EligibleOn reports whether machine is in the operation's candidate set.
func (o *Operation) EligibleOn(machine string) bool {
	for _, c := range o.Candidates {
		if c == machine {
			return true
		}
	}
	return false
}

// DurationOn returns the duration distribution for this operation on the
// given machine.
func (o *Operation) DurationOn(machine string) (Distribution, bool) {
	d, ok := o.Durations[machine]
	return d, ok
}

// ExpectedOn returns the analytic expected duration on the given machine,
// or 0 when no table entry exists.
func (o *Operation) ExpectedOn(machine string) float64 {
	d, ok := o.Durations[machine]
	if !ok {
		return 0
	}
	return d.Expected()
}

// MinPlausibleDuration returns the smallest admissible duration floor over
// the operation's candidate machines.
func (o *Operation) MinPlausibleDuration() float64 {
	first := true
	best := 0.0
	for _, c := range o.Candidates {
		d, ok := o.Durations[c]
		if !ok {
			continue
		}
		if v := d.MinPlausible(); first || v < best {
			best = v
			first = false
		}
	}
	return best
}

// Job is an ordered sequence of operations with a cursor. The cursor moves
// only through Advance; the machine currently holding the job is the only
// model that calls it.
type Job struct {
	ID       string
	PartID   string
	Ops      []Operation
	Idx      int
	Status   JobStatus
	Priority int
	Release  float64
	Location string // machine currently holding the part ("" while in transfer)

	QueuedAt    float64 // most recent queue-entry time
	CompletedAt float64
}

// CurrentOp returns the operation at the cursor, or nil when the job is done.
func (j *Job) CurrentOp() *Operation {
	if j.Idx < len(j.Ops) {
		return &j.Ops[j.Idx]
	}
	return nil
}

// Advance moves the cursor past the current operation. It is the only way
// the cursor changes.
func (j *Job) Advance() {
	j.Idx++
}

// Done reports whether every operation has completed.
func (j *Job) Done() bool {
	return j.Idx >= len(j.Ops)
}

// JobSet is the arena of jobs for one simulation run. JobIDs are indexes into
// it and remain stable for the lifetime of the run.
type JobSet struct {
	jobs []Job
	byID map[string]JobID
}

// NewJobSet creates an empty arena.
func NewJobSet() *JobSet {
	return &JobSet{byID: make(map[string]JobID)}
}

// Add places a job in the arena and returns its id.
func (js *JobSet) Add(j Job) JobID {
	id := JobID(len(js.jobs))
	js.jobs = append(js.jobs, j)
	js.byID[j.ID] = id
	return id
}

// Get returns the live job record for id. The pointer is only valid until the
// next Restore.
func (js *JobSet) Get(id JobID) *Job {
	return &js.jobs[id]
}

// Lookup resolves a scenario job id string to its arena id.
func (js *JobSet) Lookup(jobID string) (JobID, bool) {
	id, ok := js.byID[jobID]
	return id, ok
}

// Len returns the number of jobs in the arena.
func (js *JobSet) Len() int { return len(js.jobs) }

// All iterates ids in arena order.
func (js *JobSet) All() []JobID {
	ids := make([]JobID, len(js.jobs))
	for i := range js.jobs {
		ids[i] = JobID(i)
	}
	return ids
}

// copyRecords returns deep value copies of every job. Ops slices are copied
// element-wise; Candidates and Durations are immutable and shared.
func (js *JobSet) copyRecords() []Job {
	out := make([]Job, len(js.jobs))
	copy(out, js.jobs)
	for i := range out {
		ops := make([]Operation, len(js.jobs[i].Ops))
		copy(ops, js.jobs[i].Ops)
		out[i].Ops = ops
	}
	return out
}

// restoreRecords rebinds the arena to previously captured value copies.
func (js *JobSet) restoreRecords(records []Job) {
	js.jobs = make([]Job, len(records))
	copy(js.jobs, records)
	for i := range js.jobs {
		ops := make([]Operation, len(records[i].Ops))
		copy(ops, records[i].Ops)
		js.jobs[i].Ops = ops
	}
}
