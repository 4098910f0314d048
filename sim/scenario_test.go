package sim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenarioDir materializes a Scenario as the legacy per-file JSON
// bundle under dir. Passing withRouting=false omits routing_result.json.
func writeScenarioDir(t *testing.T, sc *Scenario, withRouting bool) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]any{
		jobsFile:      sc.Jobs,
		opsFile:       sc.Operations,
		durationsFile: sc.OperationDurations,
		transferFile:  sc.TransferTimes,
		initFile:      sc.InitialMachines,
		releaseFile:   sc.Releases,
	}
	if withRouting {
		files[routingFile] = sc.Routing
	}
	for name, v := range files {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func TestLoadScenarioDir_RoundTrips(t *testing.T) {
	// GIVEN a full JSON bundle on disk
	want := singleJobScenario()
	want.Routing = []RoutingSpec{{OperationID: "OP1", JobID: "J1", AssignedMachine: "M2"}}
	dir := writeScenarioDir(t, want, true)

	// WHEN it is loaded and validated
	got, err := LoadScenarioDir(dir)
	require.NoError(t, err)
	require.NoError(t, got.Validate())

	// THEN the sections round-trip
	assert.Equal(t, want.Jobs, got.Jobs)
	assert.Equal(t, want.Operations, got.Operations)
	assert.Equal(t, want.Routing, got.Routing)
	assert.Equal(t, want.InitialMachines, got.InitialMachines)
	assert.Equal(t, want.Releases, got.Releases)
}

func TestLoadScenarioDir_RoutingOptional(t *testing.T) {
	// GIVEN a bundle without routing_result.json
	dir := writeScenarioDir(t, singleJobScenario(), false)

	// WHEN it is loaded
	got, err := LoadScenarioDir(dir)

	// THEN the load succeeds with no static routing
	require.NoError(t, err)
	assert.Empty(t, got.Routing)
}

func TestLoadScenarioDir_MissingRequiredFile(t *testing.T) {
	// GIVEN a bundle missing jobs.json
	dir := writeScenarioDir(t, singleJobScenario(), false)
	require.NoError(t, os.Remove(filepath.Join(dir, jobsFile)))

	// WHEN it is loaded
	_, err := LoadScenarioDir(dir)

	// THEN the load fails
	assert.Error(t, err)
}

func TestLoadScenarioFile_YAML(t *testing.T) {
	// GIVEN a single-file YAML bundle
	path := filepath.Join(t.TempDir(), "shop.yaml")
	bundle := `
jobs:
  - job_id: J1
    part_id: P1
    operations: [OP1]
operations:
  - operation_id: OP1
    type: cut
    machines: [M1]
operation_durations:
  cut:
    M1: {distribution: normal, mean: 5}
machine_transfer_time: {}
initial_machine_status:
  M1: {status: idle}
job_release:
  - {job_id: J1, part_id: P1, release_time: 0}
fallback_duration: 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(bundle), 0o644))

	// WHEN it is loaded and validated
	sc, err := LoadScenarioFile(path)
	require.NoError(t, err)
	require.NoError(t, sc.Validate())

	// THEN the fields and the fallback flag are populated
	require.Len(t, sc.Jobs, 1)
	assert.Equal(t, "J1", sc.Jobs[0].JobID)
	require.NotNil(t, sc.FallbackDuration)
	assert.Equal(t, 2.5, *sc.FallbackDuration)
}

func TestScenario_Validate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"job references unknown operation", func(sc *Scenario) {
			sc.Jobs[0].Operations = append(sc.Jobs[0].Operations, "OP404")
		}},
		{"operation references unknown machine", func(sc *Scenario) {
			sc.Operations[0].Machines = []string{"M1", "M404"}
		}},
		{"operation with empty candidate set", func(sc *Scenario) {
			sc.Operations[0].Machines = nil
		}},
		{"routing to ineligible machine", func(sc *Scenario) {
			sc.Routing = []RoutingSpec{{OperationID: "OP2", JobID: "J1", AssignedMachine: "M2"}}
		}},
		{"unknown duration distribution", func(sc *Scenario) {
			sc.OperationDurations["cut"]["M1"] = DistSpec{Distribution: "zipf"}
		}},
		{"uniform duration with inverted bounds", func(sc *Scenario) {
			sc.OperationDurations["cut"]["M1"] = DistSpec{Distribution: "uniform", Low: 4, High: 2}
		}},
		{"exponential transfer with zero rate", func(sc *Scenario) {
			sc.TransferTimes = map[string]map[string]DistSpec{
				"M1": {"M2": {Distribution: "exponential", Rate: 0}},
			}
		}},
		{"release for unknown job", func(sc *Scenario) {
			sc.Releases = append(sc.Releases, ReleaseSpec{JobID: "J404"})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a valid scenario broken in exactly one way
			sc := singleJobScenario()
			tc.mutate(sc)

			// WHEN validated
			err := sc.Validate()

			// THEN the defect is a fatal config error
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestBuild_MissingDurationEntry_StrictVsFallback(t *testing.T) {
	// GIVEN a scenario whose only operation has no duration table entry
	sc := singleJobScenario()
	sc.Jobs[0].Operations = []string{"OP2"}
	delete(sc.OperationDurations, "polish")

	// WHEN run strictly
	s, _ := mustBuild(t, sc, BuildOptions{Seed: 1})
	err := s.Run()

	// THEN the run aborts with a config error
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	// WHEN run with an explicit fallback duration
	fallback := 5.0
	s2, rec2 := mustBuild(t, sc, BuildOptions{Seed: 1, FallbackDuration: &fallback})
	require.NoError(t, s2.Run())

	// THEN the fallback substitutes for the missing entry
	assert.Equal(t, 5.0, rec2.Summarize().Makespan)
}
