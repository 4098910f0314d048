package control

// Snapshot is a deep value copy of the tower's mutable state, captured and
// re-bound by the simulator's snapshot/restore machinery so that search
// branches cannot pollute the live tower.
type Snapshot struct {
	now        float64
	views      []MachineView
	pending    []OperationRequest
	history    []AssignmentResult
	schedules  map[string][]ScheduleEntry
	runningJob []string
	stats      Stats
}

// Snapshot captures the tower's mutable state.
func (t *Tower) Snapshot() *Snapshot {
	snap := &Snapshot{
		now:       t.now,
		views:     make([]MachineView, 0, len(t.order)),
		pending:   append([]OperationRequest(nil), t.pending...),
		history:   append([]AssignmentResult(nil), t.history...),
		schedules: make(map[string][]ScheduleEntry, len(t.schedules)),
		stats:     t.stats,
	}
	for _, id := range t.order {
		snap.views = append(snap.views, *t.views[id])
	}
	for id, entries := range t.schedules {
		snap.schedules[id] = append([]ScheduleEntry(nil), entries...)
	}
	for id := range t.runningJob {
		snap.runningJob = append(snap.runningJob, id)
	}
	return snap
}

// Restore rewinds the tower to a captured snapshot.
func (t *Tower) Restore(snap *Snapshot) {
	t.now = snap.now
	for _, v := range snap.views {
		view := t.views[v.ID]
		*view = v
	}
	t.pending = append(t.pending[:0:0], snap.pending...)
	t.history = append(t.history[:0:0], snap.history...)
	t.schedules = make(map[string][]ScheduleEntry, len(snap.schedules))
	for id, entries := range snap.schedules {
		t.schedules[id] = append([]ScheduleEntry(nil), entries...)
	}
	t.runningJob = make(map[string]bool, len(snap.runningJob))
	for _, id := range snap.runningJob {
		t.runningJob[id] = true
	}
	t.stats = snap.stats
}
