package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_NilIsSafe(t *testing.T) {
	// GIVEN a nil recorder, as used by search rollouts
	var rec *Recorder

	// WHEN it is used
	rec.Append(Record{Job: "J1"})
	rec.Truncate(0)

	// THEN nothing panics and nothing is stored
	assert.Equal(t, 0, rec.Len())
	assert.Nil(t, rec.Records())
}

func TestRecorder_Truncate_RollsBack(t *testing.T) {
	// GIVEN a recorder with three rows
	rec := NewRecorder()
	rec.Append(Record{Job: "J1", Event: TransitionQueued})
	rec.Append(Record{Job: "J1", Event: TransitionStart})
	rec.Append(Record{Job: "J1", Event: TransitionEnd})

	// WHEN truncated back to one row
	rec.Truncate(1)

	// THEN only the first row remains, and truncating forward is a no-op
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, TransitionQueued, rec.Records()[0].Event)
	rec.Truncate(5)
	assert.Equal(t, 1, rec.Len())
}

func TestSummarize_FoldsRunHeadlines(t *testing.T) {
	// GIVEN the trace of a two-operation run on one machine
	rec := NewRecorder()
	rec.Append(Record{Job: "J1", Operation: "OP1", Machine: "M1", Event: TransitionStart, Time: 0})
	rec.Append(Record{Job: "J1", Operation: "OP1", Machine: "M1", Event: TransitionEnd, Time: 5})
	rec.Append(Record{Job: "J1", Operation: "OP2", Machine: "M1", Event: TransitionStart, Time: 5})
	rec.Append(Record{Job: "J1", Operation: "OP2", Machine: "M1", Event: TransitionEnd, Time: 8})
	rec.Append(Record{Job: "J1", Machine: "M1", Event: TransitionDone, Time: 8})

	// WHEN summarized
	s := rec.Summarize()

	// THEN makespan, counts, busy time, and utilization all line up
	assert.Equal(t, 8.0, s.Makespan)
	assert.Equal(t, 1, s.CompletedJobs)
	assert.Equal(t, 4, s.Transitions)
	assert.Equal(t, 8.0, s.MachineBusy["M1"])
	assert.InDelta(t, 1.0, s.Utilization["M1"], 1e-9)
	assert.Equal(t, 8.0, s.JobCompletion["J1"])
}

func TestSummarize_UnmatchedStartIgnored(t *testing.T) {
	// GIVEN a trace cut off mid-operation
	rec := NewRecorder()
	rec.Append(Record{Job: "J1", Machine: "M1", Event: TransitionStart, Time: 0})

	// WHEN summarized
	s := rec.Summarize()

	// THEN the dangling start contributes no busy time
	assert.Equal(t, 0.0, s.MachineBusy["M1"])
	assert.Equal(t, 1, s.Transitions)
}
