package sim

import "fmt"

// EventKind enumerates the messages exchanged between models.
type EventKind int

const (
	// EventMaterialArrival is the initial release of a part at the machine
	// hosting its first operation.
	EventMaterialArrival EventKind = iota
	// EventPartArrival is a part arriving at a machine after an
	// inter-machine transfer.
	EventPartArrival
	// EventIdleCheck tells a machine to try to start its next operation.
	EventIdleCheck
	// EventEndOperation fires when the currently running operation finishes.
	EventEndOperation
	// EventJobCompleted notifies the transducer that a job finished its
	// last operation.
	EventJobCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventMaterialArrival:
		return "material_arrival"
	case EventPartArrival:
		return "part_arrival"
	case EventIdleCheck:
		return "idle_check"
	case EventEndOperation:
		return "end_operation"
	case EventJobCompleted:
		return "job_completed"
	default:
		return fmt.Sprintf("event_kind(%d)", int(k))
	}
}

// Event is a timestamped message routed to a single model. The payload is a
// JobID into the simulator's job arena (NoJob when the event carries no
// part), so events are plain values and snapshots copy them wholesale.
type Event struct {
	Time   float64
	Seq    uint64 // monotonic insertion order; breaks ties among equal times
	Kind   EventKind
	Job    JobID
	Source string
	Dest   string
}

func (e Event) String() string {
	return fmt.Sprintf("Event(time=%.2f, kind=%s, from=%s, to=%s, job=%d)",
		e.Time, e.Kind, e.Source, e.Dest, int(e.Job))
}

// EventQueue implements heap.Interface and orders events by timestamp,
// with the monotonic sequence number as a tie-break so that equal-time
// events are delivered in FIFO scheduling order.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []Event

func (eq EventQueue) Len() int { return len(eq) }

func (eq EventQueue) Less(i, j int) bool {
	if eq[i].Time != eq[j].Time {
		return eq[i].Time < eq[j].Time
	}
	return eq[i].Seq < eq[j].Seq
}

func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(Event))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Clone returns a value copy of the queue with heap order preserved.
func (eq EventQueue) Clone() EventQueue {
	out := make(EventQueue, len(eq))
	copy(out, eq)
	return out
}
