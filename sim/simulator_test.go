package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobshop-sim/jobshop-sim/sim/trace"
)

func TestSimulator_Run_SingleJob_MakespanEight(t *testing.T) {
	// GIVEN the canonical single-job scenario (OP1 fixed 5, OP2 fixed 3)
	s, rec := mustBuild(t, singleJobScenario(), BuildOptions{Seed: 42})

	// WHEN the simulation runs to completion
	require.NoError(t, s.Run())

	// THEN the makespan is 8 with exactly 4 start/end transitions
	summary := rec.Summarize()
	assert.Equal(t, 8.0, summary.Makespan)
	assert.Equal(t, 4, summary.Transitions)
	assert.Equal(t, 1, summary.CompletedJobs)
	assert.Equal(t, 8.0, summary.JobCompletion["J1"])
}

func TestSimulator_Run_PrecedenceInvariant(t *testing.T) {
	// GIVEN a job with two ordered operations
	s, rec := mustBuild(t, singleJobScenario(), BuildOptions{Seed: 1})

	// WHEN the simulation runs
	require.NoError(t, s.Run())

	// THEN operation k+1 never starts before operation k ends
	var op1End, op2Start float64
	for _, r := range rec.Records() {
		if r.Operation == "OP1" && r.Event == trace.TransitionEnd {
			op1End = r.Time
		}
		if r.Operation == "OP2" && r.Event == trace.TransitionStart {
			op2Start = r.Time
		}
	}
	assert.GreaterOrEqual(t, op2Start, op1End)
}

func TestSimulator_Step_MissingModel(t *testing.T) {
	// GIVEN an event routed to a destination that was never registered
	s := New(1, nil)
	require.NoError(t, s.Schedule(Event{Kind: EventIdleCheck, Dest: "nowhere", Job: NoJob}, 0))

	// WHEN the event is delivered
	_, err := s.Step()

	// THEN the step fails with ErrMissingModel
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingModel))
}

func TestSimulator_Schedule_NegativeDelay(t *testing.T) {
	// GIVEN a simulator at time 0
	s := New(1, nil)

	// WHEN an event is scheduled in the past
	err := s.Schedule(Event{Kind: EventIdleCheck, Dest: "M1", Job: NoJob}, -1)

	// THEN scheduling fails with ErrNegativeDelay
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNegativeDelay))
}

func TestSimulator_Run_SameSeedSameTrace(t *testing.T) {
	// GIVEN two runs of a stochastic scenario with the same seed
	s1, rec1 := mustBuild(t, stochasticScenario(), BuildOptions{Seed: 7})
	s2, rec2 := mustBuild(t, stochasticScenario(), BuildOptions{Seed: 7})

	// WHEN both run to completion
	require.NoError(t, s1.Run())
	require.NoError(t, s2.Run())

	// THEN the transition traces are identical record for record
	require.Equal(t, rec1.Len(), rec2.Len())
	assert.Equal(t, rec1.Records(), rec2.Records())
}

func TestSimulator_Run_DynamicStrategies_MakespanEight(t *testing.T) {
	// GIVEN a scenario with only one consequential routing choice, the
	// makespan is strategy-independent
	strategies := []string{
		"earliest-available", "least-loaded", "shortest-processing-time",
		"priority-based", "load-balancing",
	}
	for _, name := range strategies {
		t.Run(name, func(t *testing.T) {
			s, rec := mustBuild(t, singleJobScenario(), BuildOptions{
				Seed: 42, Dynamic: true, Strategy: mustStrategy(t, name),
			})

			require.NoError(t, s.Run())

			summary := rec.Summarize()
			assert.Equal(t, 8.0, summary.Makespan)
			assert.Equal(t, 1, summary.CompletedJobs)
		})
	}
}

func TestSimulator_Run_InitiallyBusyMachineDelaysStart(t *testing.T) {
	// GIVEN the single machine hosting OP2 is busy until t=10
	sc := singleJobScenario()
	sc.Operations[0].Machines = []string{"M1"} // pin OP1 to M1 too
	sc.OperationDurations["cut"] = map[string]DistSpec{"M1": fixedSpec(5)}
	sc.InitialMachines["M1"] = MachineInitSpec{Status: "busy", NextAvailableTime: 10}

	s, rec := mustBuild(t, sc, BuildOptions{Seed: 42})

	// WHEN the simulation runs
	require.NoError(t, s.Run())

	// THEN nothing starts before the machine frees up: 10 + 5 + 3
	summary := rec.Summarize()
	assert.Equal(t, 18.0, summary.Makespan)
}
