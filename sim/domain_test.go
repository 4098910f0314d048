package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_CursorAdvancesToDone(t *testing.T) {
	// GIVEN a job with two operations
	job := Job{ID: "J1", Ops: []Operation{{ID: "OP1"}, {ID: "OP2"}}}

	// WHEN the cursor advances past both
	require.Equal(t, "OP1", job.CurrentOp().ID)
	job.Advance()
	require.Equal(t, "OP2", job.CurrentOp().ID)
	job.Advance()

	// THEN the job is done and has no current operation
	assert.True(t, job.Done())
	assert.Nil(t, job.CurrentOp())
}

func TestJobSet_AddAndLookup(t *testing.T) {
	// GIVEN an arena with two jobs
	js := NewJobSet()
	id1 := js.Add(Job{ID: "J1"})
	id2 := js.Add(Job{ID: "J2"})

	// WHEN ids are resolved both ways
	got, ok := js.Lookup("J2")

	// THEN ids are stable indexes and string lookup round-trips
	require.True(t, ok)
	assert.Equal(t, id2, got)
	assert.Equal(t, "J1", js.Get(id1).ID)
	assert.Equal(t, 2, js.Len())
}

func TestJobSet_CopyRecords_DetachedFromLiveState(t *testing.T) {
	// GIVEN an arena with one job and a captured copy
	js := NewJobSet()
	id := js.Add(Job{ID: "J1", Ops: []Operation{{ID: "OP1", Candidates: []string{"M1"}}}})
	copies := js.copyRecords()

	// WHEN the live job mutates after the capture
	live := js.Get(id)
	live.Idx = 1
	live.Ops[0].Assigned = "M1"
	live.Ops[0].Started = true

	// THEN the copy is unaffected, and restoring rewinds the live record
	assert.Equal(t, 0, copies[0].Idx)
	assert.Equal(t, "", copies[0].Ops[0].Assigned)

	js.restoreRecords(copies)
	restored := js.Get(id)
	assert.Equal(t, 0, restored.Idx)
	assert.Equal(t, "", restored.Ops[0].Assigned)
	assert.False(t, restored.Ops[0].Started)
}

func TestOperation_EligibleOnAndFloor(t *testing.T) {
	// GIVEN an operation runnable on two machines with different floors
	op := Operation{
		ID:         "OP1",
		Candidates: []string{"M1", "M2"},
		Durations: map[string]Distribution{
			"M1": {Kind: DistNormal, Mean: 6, Std: 1},
			"M2": {Kind: DistUniform, Low: 4, High: 8},
		},
	}

	// WHEN eligibility and the admissible floor are queried
	// THEN membership is exact and the floor is the cheapest candidate's
	assert.True(t, op.EligibleOn("M1"))
	assert.False(t, op.EligibleOn("M3"))
	assert.Equal(t, 3.0, op.MinPlausibleDuration()) // min(6-3*1, 4)
}
