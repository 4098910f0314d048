package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RestoreReplaysIdentically(t *testing.T) {
	// GIVEN a stochastic run paused mid-flight
	s, rec := mustBuild(t, stochasticScenario(), BuildOptions{Seed: 11})
	for i := 0; i < 3; i++ {
		ok, err := s.Step()
		require.NoError(t, err)
		require.True(t, ok)
	}
	snap, err := s.Snapshot()
	require.NoError(t, err)
	recordsAtSnap := rec.Len()

	// WHEN the run finishes, is rewound, and finishes again
	require.NoError(t, s.Run())
	firstMakespan := rec.Summarize().Makespan
	firstRecords := append([]string(nil), traceKeys(rec)...)

	require.NoError(t, s.Restore(snap))
	assert.Equal(t, recordsAtSnap, rec.Len(), "restore must roll the trace back")
	require.NoError(t, s.Run())

	// THEN the replay is indistinguishable: same makespan, same trace,
	// because the RNG stream was captured with the state
	assert.Equal(t, firstMakespan, rec.Summarize().Makespan)
	assert.Equal(t, firstRecords, traceKeys(rec))
}

func TestSnapshot_AbandonedBranchLeavesNoState(t *testing.T) {
	// GIVEN a search-mode simulator stopped at its first decision epoch
	s, rec := mustBuild(t, twoJobScenario(), BuildOptions{Seed: 5, SearchMode: true})
	require.NoError(t, s.RunToDecision())
	require.True(t, s.HasDecision())

	snap, err := s.Snapshot()
	require.NoError(t, err)
	clockAtSnap := s.Clock
	pendingAtSnap := s.PendingEvents()
	recordsAtSnap := rec.Len()

	// WHEN a branch is explored to completion and then abandoned
	actions := s.LegalActions()
	require.NotEmpty(t, actions)
	_, err = s.Apply(actions[0])
	require.NoError(t, err)
	require.NoError(t, s.Run())
	require.NoError(t, s.Restore(snap))

	// THEN clock, event queue, trace, and decision state are all back
	assert.Equal(t, clockAtSnap, s.Clock)
	assert.Equal(t, pendingAtSnap, s.PendingEvents())
	assert.Equal(t, recordsAtSnap, rec.Len())
	assert.True(t, s.HasDecision())
	assert.Equal(t, actions, s.LegalActions())
}

func TestSnapshot_RestoresRNGStream(t *testing.T) {
	// GIVEN a simulator with a captured state
	s, _ := mustBuild(t, stochasticScenario(), BuildOptions{Seed: 23})
	snap, err := s.Snapshot()
	require.NoError(t, err)

	// WHEN draws are taken, the state restored, and draws taken again
	d := Distribution{Kind: DistNormal, Mean: 5, Std: 1}
	want := make([]float64, 4)
	for i := range want {
		v, err := d.Sample(s.RNG().Source())
		require.NoError(t, err)
		want[i] = v
	}
	require.NoError(t, s.Restore(snap))
	got := make([]float64, 4)
	for i := range got {
		v, err := d.Sample(s.RNG().Source())
		require.NoError(t, err)
		got[i] = v
	}

	// THEN the stream replays the same values
	assert.Equal(t, want, got)
}
