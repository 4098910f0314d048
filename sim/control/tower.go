package control

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// MachineView is the tower's mirror of one machine's externally visible
// state, refreshed by ObserveMachine at start/finish epochs.
type MachineView struct {
	ID            string
	Busy          bool
	NextAvailable float64
	QueueLength   int
	CurrentJob    string
	CurrentOp     string
}

// OperationRequest asks the tower to bind one operation to a machine.
type OperationRequest struct {
	OperationID       string
	JobID             string
	Type              string
	Candidates        []string
	Priority          int
	EstimatedDuration float64
}

// AssignmentResult is one committed operation->machine binding.
type AssignmentResult struct {
	OperationID string
	JobID       string
	Machine     string
	Start       float64
	End         float64
	Priority    int
}

// ScheduleEntry is a committed time window on a machine, used for
// conflict checking.
type ScheduleEntry struct {
	OperationID string
	Start       float64
	End         float64
}

// Stats aggregates tower activity for observability.
type Stats struct {
	TotalAssignments    int
	TotalProcessingTime float64
	ConflictResolutions int
	Pending             int
}

// Tower maintains the global machine/job view and performs dynamic
// operation-to-machine assignment. It does status bookkeeping only: it never
// touches a job's operation cursor.
type Tower struct {
	strategy Strategy
	now      float64

	views map[string]*MachineView
	order []string // registration order, for deterministic iteration

	// static operation metadata registered at build time
	eligible map[string][]string           // operation id -> eligible machines
	expected map[string]map[string]float64 // operation type -> machine -> expected duration

	pending    []OperationRequest
	history    []AssignmentResult
	schedules  map[string][]ScheduleEntry
	runningJob map[string]bool // job id -> currently running on some machine

	stats Stats
}

// New creates a Tower using the given strategy.
func New(strategy Strategy) *Tower {
	return &Tower{
		strategy:   strategy,
		views:      make(map[string]*MachineView),
		eligible:   make(map[string][]string),
		expected:   make(map[string]map[string]float64),
		schedules:  make(map[string][]ScheduleEntry),
		runningJob: make(map[string]bool),
	}
}

// Strategy returns the active scheduling strategy.
func (t *Tower) Strategy() Strategy { return t.strategy }

// AddMachine registers a machine with its initial status.
func (t *Tower) AddMachine(id string, busy bool, nextAvailable float64) {
	if _, ok := t.views[id]; ok {
		return
	}
	t.views[id] = &MachineView{ID: id, Busy: busy, NextAvailable: nextAvailable}
	t.order = append(t.order, id)
}

// RegisterOperation records an operation's static machine-eligibility set.
func (t *Tower) RegisterOperation(opID string, machines []string) {
	t.eligible[opID] = machines
}

// SetExpectedDuration records the analytic expected duration of an operation
// type on a machine, used by the SPT strategy and for schedule windows.
func (t *Tower) SetExpectedDuration(opType, machine string, expected float64) {
	m, ok := t.expected[opType]
	if !ok {
		m = make(map[string]float64)
		t.expected[opType] = m
	}
	m[machine] = expected
}

// ExpectedDuration looks up the recorded expectation; the second return is
// false when no entry exists.
func (t *Tower) ExpectedDuration(opType, machine string) (float64, bool) {
	m, ok := t.expected[opType]
	if !ok {
		return 0, false
	}
	v, ok := m[machine]
	return v, ok
}

// AdvanceTime moves the tower's notion of current simulated time forward.
func (t *Tower) AdvanceTime(now float64) {
	if now > t.now {
		t.now = now
	}
}

// ObserveMachine refreshes the mirror of one machine's state.
func (t *Tower) ObserveMachine(id string, busy bool, nextAvailable float64, queueLength int, currentJob, currentOp string) {
	v, ok := t.views[id]
	if !ok {
		return
	}
	v.Busy = busy
	v.NextAvailable = nextAvailable
	v.QueueLength = queueLength
	v.CurrentJob = currentJob
	v.CurrentOp = currentOp
}

// ObserveJob marks whether a job is currently running on some machine.
func (t *Tower) ObserveJob(jobID string, running bool) {
	if running {
		t.runningJob[jobID] = true
	} else {
		delete(t.runningJob, jobID)
	}
}

// Submit adds an operation request to the pending pool. A resubmit for an
// operation already pending replaces the pending copy, so updated priority
// or duration estimates take effect on the next pass.
func (t *Tower) Submit(req OperationRequest) {
	for i, p := range t.pending {
		if p.OperationID == req.OperationID {
			t.pending[i] = req
			return
		}
	}
	t.pending = append(t.pending, req)
}

// SubmitJob submits several operations of one job at a shared priority.
func (t *Tower) SubmitJob(jobID string, ops []OperationRequest, priority int) {
	for _, req := range ops {
		req.JobID = jobID
		req.Priority = priority
		t.Submit(req)
	}
}

// AssignmentFor returns the machine most recently assigned to the operation.
func (t *Tower) AssignmentFor(opID string) (string, bool) {
	for i := len(t.history) - 1; i >= 0; i-- {
		if t.history[i].OperationID == opID {
			return t.history[i].Machine, true
		}
	}
	return "", false
}

// History returns every committed assignment in commit order.
func (t *Tower) History() []AssignmentResult { return t.history }

// PendingCount returns the number of requests awaiting a machine.
func (t *Tower) PendingCount() int { return len(t.pending) }

// Statistics returns aggregate tower activity.
func (t *Tower) Statistics() Stats {
	s := t.stats
	s.Pending = len(t.pending)
	return s
}

// MachineLoad returns the committed processing time per machine, summed
// over its schedule entries.
func (t *Tower) MachineLoad() map[string]float64 {
	load := make(map[string]float64, len(t.order))
	for _, id := range t.order {
		total := 0.0
		for _, e := range t.schedules[id] {
			total += e.End - e.Start
		}
		load[id] = total
	}
	return load
}

// MachineViews returns value copies of the mirrored machine states in
// registration order.
func (t *Tower) MachineViews() []MachineView {
	out := make([]MachineView, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.views[id])
	}
	return out
}

// AssignPending runs one scheduling pass over the pending pool at time now.
// Requests are processed in descending priority (stable); each is validated,
// scored under the active strategy, and committed to the winning machine.
// Requests with no currently feasible machine stay pending and are retried
// on the next pass -- a scheduling conflict is a retry, not an error.
func (t *Tower) AssignPending(now float64) []AssignmentResult {
	t.AdvanceTime(now)
	sort.SliceStable(t.pending, func(i, j int) bool {
		return t.pending[i].Priority > t.pending[j].Priority
	})

	var assigned []AssignmentResult
	var leftover []OperationRequest
	for _, req := range t.pending {
		result, ok := t.assignOne(req)
		if !ok {
			leftover = append(leftover, req)
			continue
		}
		assigned = append(assigned, result)
	}
	t.pending = leftover
	return assigned
}

// assignOne attempts a single assignment. Any validation failure aborts just
// this assignment and leaves global state untouched.
func (t *Tower) assignOne(req OperationRequest) (AssignmentResult, bool) {
	candidates := t.knownCandidates(req)
	if len(candidates) == 0 {
		logrus.Debugf("tower: operation %s has no registered candidate machine, stays pending", req.OperationID)
		return AssignmentResult{}, false
	}

	valid := candidates[:0:0]
	var windowBlocked []string
	for _, id := range candidates {
		switch t.validate(req, id) {
		case rejectNone:
			valid = append(valid, id)
		case rejectWindow:
			windowBlocked = append(windowBlocked, id)
		}
	}

	winner := ""
	switch {
	case len(valid) > 0:
		winner = t.selectByStrategy(req, valid)
	case len(windowBlocked) > 0:
		// Every feasible candidate is idle but committed to another
		// operation in the overlapping window; fall back to the one whose
		// last committed interval ends soonest.
		winner = t.resolveConflict(windowBlocked)
		if winner == "" {
			return AssignmentResult{}, false
		}
		t.stats.ConflictResolutions++
		logrus.Debugf("tower: conflict resolved for %s -> %s", req.OperationID, winner)
	default:
		// Busy machine or already-running job: not a window conflict. The
		// request stays pending and is retried on the next pass.
		return AssignmentResult{}, false
	}

	view := t.views[winner]
	start := max(t.now, view.NextAvailable)
	end := start + req.EstimatedDuration

	view.Busy = true
	view.NextAvailable = end
	view.CurrentJob = req.JobID
	view.CurrentOp = req.OperationID
	view.QueueLength++

	t.schedules[winner] = append(t.schedules[winner], ScheduleEntry{
		OperationID: req.OperationID, Start: start, End: end,
	})
	result := AssignmentResult{
		OperationID: req.OperationID,
		JobID:       req.JobID,
		Machine:     winner,
		Start:       start,
		End:         end,
		Priority:    req.Priority,
	}
	t.history = append(t.history, result)
	t.stats.TotalAssignments++
	t.stats.TotalProcessingTime += req.EstimatedDuration
	logrus.Debugf("tower: %s (job %s) -> %s [%.2f, %.2f] strategy=%s",
		req.OperationID, req.JobID, winner, start, end, t.strategy)
	return result, true
}

// knownCandidates intersects the request's candidate list with the
// registered machines, preserving candidate order.
func (t *Tower) knownCandidates(req OperationRequest) []string {
	out := make([]string, 0, len(req.Candidates))
	for _, id := range req.Candidates {
		if _, ok := t.views[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// rejection says why a candidate failed validation. Only rejectWindow is a
// scheduling conflict in the resolvable sense; the other failures leave the
// request pending.
type rejection int

const (
	rejectNone rejection = iota
	rejectUnknownMachine
	rejectIneligible
	rejectBusy
	rejectJobRunning
	rejectWindow
)

// validate applies the pre-commit checks in order: machine exists, the
// operation lists it as eligible, the machine is not busy, the job is not
// already running elsewhere, and no committed window overlaps.
func (t *Tower) validate(req OperationRequest, machine string) rejection {
	view, ok := t.views[machine]
	if !ok {
		logrus.Debugf("tower: validation failed, machine %s not registered", machine)
		return rejectUnknownMachine
	}
	if eligible, ok := t.eligible[req.OperationID]; ok {
		found := false
		for _, m := range eligible {
			if m == machine {
				found = true
				break
			}
		}
		if !found {
			logrus.Debugf("tower: validation failed, %s not eligible on %s", req.OperationID, machine)
			return rejectIneligible
		}
	}
	if view.Busy {
		logrus.Debugf("tower: validation failed, machine %s busy", machine)
		return rejectBusy
	}
	if t.runningJob[req.JobID] {
		logrus.Debugf("tower: validation failed, job %s already running", req.JobID)
		return rejectJobRunning
	}
	if !t.windowFree(machine, max(t.now, view.NextAvailable), req.EstimatedDuration) {
		logrus.Debugf("tower: validation failed, machine %s committed in overlapping window", machine)
		return rejectWindow
	}
	return rejectNone
}

// selectByStrategy scores each valid machine and returns the lowest; ties
// keep the first candidate in list order.
func (t *Tower) selectByStrategy(req OperationRequest, valid []string) string {
	winner := valid[0]
	bestScore := t.scoreFor(req, valid[0])
	for _, id := range valid[1:] {
		if s := t.scoreFor(req, id); s < bestScore {
			winner = id
			bestScore = s
		}
	}
	return winner
}

func (t *Tower) scoreFor(req OperationRequest, machine string) float64 {
	expected, ok := t.ExpectedDuration(req.Type, machine)
	if !ok {
		expected = req.EstimatedDuration
	}
	return t.strategy.score(t.views[machine], expected, t.now)
}

// resolveConflict picks, among window-blocked candidates, the machine whose
// last committed schedule entry ends soonest. A candidate without committed
// entries cannot be window-blocked and is never chosen here.
func (t *Tower) resolveConflict(candidates []string) string {
	winner := ""
	bestEnd := 0.0
	for _, id := range candidates {
		entries := t.schedules[id]
		if len(entries) == 0 {
			continue
		}
		lastEnd := entries[0].End
		for _, e := range entries[1:] {
			if e.End > lastEnd {
				lastEnd = e.End
			}
		}
		if winner == "" || lastEnd < bestEnd {
			winner = id
			bestEnd = lastEnd
		}
	}
	return winner
}

// windowFree reports whether machine has no committed entry overlapping
// [start, start+duration).
func (t *Tower) windowFree(machine string, start, duration float64) bool {
	end := start + duration
	for _, e := range t.schedules[machine] {
		if start < e.End && end > e.Start {
			return false
		}
	}
	return true
}

// Reset returns the tower to its initial state, keeping registered machines
// and operation metadata.
func (t *Tower) Reset() {
	t.now = 0
	t.pending = nil
	t.history = nil
	t.schedules = make(map[string][]ScheduleEntry)
	t.runningJob = make(map[string]bool)
	t.stats = Stats{}
	for _, v := range t.views {
		v.Busy = false
		v.NextAvailable = 0
		v.QueueLength = 0
		v.CurrentJob = ""
		v.CurrentOp = ""
	}
}
