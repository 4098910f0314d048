package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy_EmptyDefaultsToLoadBalancing(t *testing.T) {
	// GIVEN no strategy name
	// WHEN parsed
	s, err := ParseStrategy("")

	// THEN load balancing is the default
	require.NoError(t, err)
	assert.Equal(t, StrategyLoadBalancing, s)
}

func TestParseStrategy_KnownNames(t *testing.T) {
	for _, name := range []string{
		"earliest-available", "least-loaded", "shortest-processing-time",
		"priority-based", "load-balancing",
	} {
		s, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, Strategy(name), s)
	}
}

func TestParseStrategy_Unknown(t *testing.T) {
	// GIVEN a name outside the supported set
	// WHEN parsed
	_, err := ParseStrategy("round-robin")

	// THEN parsing fails
	assert.Error(t, err)
}

func TestStrategy_Scores(t *testing.T) {
	// GIVEN a busy machine with 2 queued operations, free at t=7, now t=3
	view := &MachineView{ID: "M1", Busy: true, NextAvailable: 7, QueueLength: 2}

	// WHEN each strategy scores it (expected duration 4)
	// THEN the figures of merit match their definitions
	assert.Equal(t, 7.0, StrategyEarliestAvailable.score(view, 4, 3))
	assert.Equal(t, 7.0, StrategyPriorityBased.score(view, 4, 3))
	assert.Equal(t, 3.0, StrategyLeastLoaded.score(view, 4, 3))
	assert.Equal(t, 4.0, StrategyShortestProcessingTime.score(view, 4, 3))
	// load-balancing: 0.6*(2+1) + 0.4*(7-3)
	assert.InDelta(t, 3.4, StrategyLoadBalancing.score(view, 4, 3), 1e-9)
}
