package trace

// TransitionKind labels a recorded lifecycle transition.
type TransitionKind string

const (
	TransitionQueued   TransitionKind = "queued"
	TransitionStart    TransitionKind = "start"
	TransitionEnd      TransitionKind = "end"
	TransitionTransfer TransitionKind = "transfer"
	TransitionDone     TransitionKind = "done"
)

// Record is one structured result row: a part/job/operation transition on a
// machine at a point in simulated time. QueueLength is meaningful for queued
// and start records, Delay for transfer records. On-disk export is the
// reporting layer's concern; the core only exposes these values.
type Record struct {
	Part        string
	Job         string
	Operation   string
	Machine     string
	Event       TransitionKind
	Time        float64
	QueueLength int
	Delay       float64
}
