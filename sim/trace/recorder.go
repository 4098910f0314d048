package trace

// Recorder collects transition records for exactly one simulation run. It is
// injected into the simulator at construction; nothing in the core writes to
// process-wide state. A nil *Recorder is valid and drops every record, so
// search rollouts can run without tracing overhead.
type Recorder struct {
	records []Record
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make([]Record, 0)}
}

// Append adds a record. Safe on a nil receiver.
func (r *Recorder) Append(rec Record) {
	if r == nil {
		return
	}
	r.records = append(r.records, rec)
}

// Records returns the collected rows in append order. Callers must not
// mutate the returned slice.
func (r *Recorder) Records() []Record {
	if r == nil {
		return nil
	}
	return r.records
}

// Len returns the number of collected records.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	return len(r.records)
}

// Truncate drops every record past n. Snapshot stores Len(); Restore calls
// Truncate so that abandoned search branches leave no rows behind.
func (r *Recorder) Truncate(n int) {
	if r == nil || n >= len(r.records) {
		return
	}
	r.records = r.records[:n]
}
