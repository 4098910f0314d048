package sim

import (
	"fmt"
	"testing"

	"github.com/jobshop-sim/jobshop-sim/sim/control"
	"github.com/jobshop-sim/jobshop-sim/sim/trace"
)

// fixedSpec is a degenerate normal: every sample equals v.
func fixedSpec(v float64) DistSpec {
	return DistSpec{Distribution: "normal", Mean: v}
}

// singleJobScenario is the canonical two-machine shop: one job J1 with OP1
// eligible on {M1, M2} (fixed duration 5) followed by OP2 eligible on {M1}
// (fixed duration 3), released at 0. Expected makespan is 8 in every mode,
// because only one consequential choice exists.
func singleJobScenario() *Scenario {
	return &Scenario{
		Jobs: []JobSpec{
			{JobID: "J1", PartID: "P1", Operations: []string{"OP1", "OP2"}},
		},
		Operations: []OperationSpec{
			{OperationID: "OP1", Type: "cut", Machines: []string{"M1", "M2"}},
			{OperationID: "OP2", Type: "polish", Machines: []string{"M1"}},
		},
		OperationDurations: map[string]map[string]DistSpec{
			"cut":    {"M1": fixedSpec(5), "M2": fixedSpec(5)},
			"polish": {"M1": fixedSpec(3)},
		},
		TransferTimes: map[string]map[string]DistSpec{
			"M1": {"M2": fixedSpec(0)},
			"M2": {"M1": fixedSpec(0)},
		},
		InitialMachines: map[string]MachineInitSpec{
			"M1": {Status: "idle"},
			"M2": {Status: "idle"},
		},
		Releases: []ReleaseSpec{
			{JobID: "J1", PartID: "P1", ReleaseTime: 0},
		},
	}
}

// twoJobScenario has two single-operation jobs competing for two machines:
// J1 (type cut, M1=2 / M2=5) and J2 (type drill, M1=3 / M2=4), both released
// at 0. Optimal makespan is 4 (J1 on M1, J2 on M2).
func twoJobScenario() *Scenario {
	return &Scenario{
		Jobs: []JobSpec{
			{JobID: "J1", PartID: "P1", Operations: []string{"OP11"}},
			{JobID: "J2", PartID: "P2", Operations: []string{"OP21"}},
		},
		Operations: []OperationSpec{
			{OperationID: "OP11", Type: "cut", Machines: []string{"M1", "M2"}},
			{OperationID: "OP21", Type: "drill", Machines: []string{"M1", "M2"}},
		},
		OperationDurations: map[string]map[string]DistSpec{
			"cut":   {"M1": fixedSpec(2), "M2": fixedSpec(5)},
			"drill": {"M1": fixedSpec(3), "M2": fixedSpec(4)},
		},
		TransferTimes: map[string]map[string]DistSpec{
			"M1": {"M2": fixedSpec(0)},
			"M2": {"M1": fixedSpec(0)},
		},
		InitialMachines: map[string]MachineInitSpec{
			"M1": {Status: "idle"},
			"M2": {Status: "idle"},
		},
		Releases: []ReleaseSpec{
			{JobID: "J1", PartID: "P1", ReleaseTime: 0},
			{JobID: "J2", PartID: "P2", ReleaseTime: 0},
		},
	}
}

// stochasticScenario swaps fixed durations for sampled ones so tests can
// exercise the RNG stream.
func stochasticScenario() *Scenario {
	sc := singleJobScenario()
	sc.OperationDurations = map[string]map[string]DistSpec{
		"cut": {
			"M1": {Distribution: "normal", Mean: 5, Std: 1},
			"M2": {Distribution: "normal", Mean: 5, Std: 1},
		},
		"polish": {
			"M1": {Distribution: "uniform", Low: 2, High: 4},
		},
	}
	return sc
}

// traceKeys flattens the recorder into comparable per-record strings.
func traceKeys(rec *trace.Recorder) []string {
	out := make([]string, 0, rec.Len())
	for _, r := range rec.Records() {
		out = append(out, fmt.Sprintf("%.4f|%s|%s|%s|%s", r.Time, r.Event, r.Job, r.Operation, r.Machine))
	}
	return out
}

// mustStrategy parses a strategy name, failing the test on error.
func mustStrategy(t *testing.T, name string) control.Strategy {
	t.Helper()
	s, err := control.ParseStrategy(name)
	if err != nil {
		t.Fatalf("ParseStrategy(%q): %v", name, err)
	}
	return s
}

// mustBuild wires a simulator with a fresh recorder, failing the test on any
// construction error.
func mustBuild(t *testing.T, sc *Scenario, opts BuildOptions) (*Simulator, *trace.Recorder) {
	t.Helper()
	rec := trace.NewRecorder()
	opts.Recorder = rec
	s, err := Build(sc, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s, rec
}
