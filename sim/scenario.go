package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is the in-memory form of one simulation input bundle. It loads
// either from a directory of JSON documents (one file per section, the
// legacy layout) or from a single YAML bundle.
type Scenario struct {
	Jobs               []JobSpec                      `json:"jobs" yaml:"jobs"`
	Operations         []OperationSpec                `json:"operations" yaml:"operations"`
	OperationDurations map[string]map[string]DistSpec `json:"operation_durations" yaml:"operation_durations"`
	Routing            []RoutingSpec                  `json:"routing_result" yaml:"routing_result"`
	TransferTimes      map[string]map[string]DistSpec `json:"machine_transfer_time" yaml:"machine_transfer_time"`
	InitialMachines    map[string]MachineInitSpec     `json:"initial_machine_status" yaml:"initial_machine_status"`
	Releases           []ReleaseSpec                  `json:"job_release" yaml:"job_release"`

	// FallbackDuration, when set, substitutes a fixed value for missing
	// duration/transfer table entries instead of failing. The legacy
	// scenarios relied on a silent 5.0 default; here it is an explicit,
	// opt-in choice.
	FallbackDuration *float64 `json:"fallback_duration,omitempty" yaml:"fallback_duration,omitempty"`
}

// JobSpec declares one job and its ordered operation ids.
type JobSpec struct {
	JobID      string   `json:"job_id" yaml:"job_id"`
	PartID     string   `json:"part_id" yaml:"part_id"`
	Operations []string `json:"operations" yaml:"operations"`
	Priority   int      `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// OperationSpec declares an operation type and its machine-eligibility set.
type OperationSpec struct {
	OperationID string   `json:"operation_id" yaml:"operation_id"`
	Type        string   `json:"type" yaml:"type"`
	Machines    []string `json:"machines" yaml:"machines"`
}

// RoutingSpec is one static operation->machine assignment.
type RoutingSpec struct {
	OperationID     string `json:"operation_id" yaml:"operation_id"`
	JobID           string `json:"job_id" yaml:"job_id"`
	AssignedMachine string `json:"assigned_machine" yaml:"assigned_machine"`
}

// MachineInitSpec is a machine's initial status.
type MachineInitSpec struct {
	Status            string  `json:"status" yaml:"status"`
	NextAvailableTime float64 `json:"next_available_time" yaml:"next_available_time"`
}

// ReleaseSpec is one job release record.
type ReleaseSpec struct {
	JobID       string  `json:"job_id" yaml:"job_id"`
	PartID      string  `json:"part_id" yaml:"part_id"`
	ReleaseTime float64 `json:"release_time" yaml:"release_time"`
}

// DistSpec is the on-disk form of a duration/transfer distribution.
type DistSpec struct {
	Distribution string  `json:"distribution" yaml:"distribution"`
	Mean         float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Std          float64 `json:"std,omitempty" yaml:"std,omitempty"`
	Low          float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High         float64 `json:"high,omitempty" yaml:"high,omitempty"`
	Rate         float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
}

// ToDistribution converts the spec, failing on an unknown distribution name.
func (d DistSpec) ToDistribution() (Distribution, error) {
	dist := Distribution{
		Kind: DistKind(d.Distribution),
		Mean: d.Mean, Std: d.Std, Low: d.Low, High: d.High, Rate: d.Rate,
	}
	if err := dist.Validate(); err != nil {
		return Distribution{}, err
	}
	return dist, nil
}

// scenario file names inside a bundle directory (legacy layout).
const (
	jobsFile      = "jobs.json"
	opsFile       = "operations.json"
	durationsFile = "operation_durations.json"
	routingFile   = "routing_result.json"
	transferFile  = "machine_transfer_time.json"
	initFile      = "initial_machine_status.json"
	releaseFile   = "job_release.json"
)

// LoadScenarioDir reads the legacy per-file JSON bundle from dir.
// routing_result.json is optional: without it the scenario has no static
// routing and assignment is dynamic or search-driven.
func LoadScenarioDir(dir string) (*Scenario, error) {
	sc := &Scenario{}
	if err := readJSON(filepath.Join(dir, jobsFile), &sc.Jobs); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, opsFile), &sc.Operations); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, durationsFile), &sc.OperationDurations); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, routingFile), &sc.Routing); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, transferFile), &sc.TransferTimes); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, initFile), &sc.InitialMachines); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, releaseFile), &sc.Releases); err != nil {
		return nil, err
	}
	return sc, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading scenario file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return configErrorf("parsing %s: %v", filepath.Base(path), err)
	}
	return nil
}

// LoadScenarioFile reads a single-file YAML bundle.
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario bundle: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, configErrorf("parsing %s: %v", filepath.Base(path), err)
	}
	return &sc, nil
}

/// Validate checks cross-references and distribution names before any run:
// jobs must reference declared operations, operations must be eligible on
// declared machines, routing entries must respect eligibility, and every
// distribution kind must be known. Failures are fatal ConfigErrors.
func (sc *Scenario) Validate() error {
	ops := make(map[string]OperationSpec, len(sc.Operations))
	for _, op := range sc.Operations {
		ops[op.OperationID] = op
	}
	for _, j := range sc.Jobs {
		for _, opID := range j.Operations {
			if _, ok := ops[opID]; !ok {
				return configErrorf("job %s references unknown operation %s", j.JobID, opID)
			}
		}
	}
	for _, op := range sc.Operations {
		if len(op.Machines) == 0 {
			return configErrorf("operation %s has no candidate machines", op.OperationID)
		}
		for _, machine := range op.Machines {
			if _, ok := sc.InitialMachines[machine]; !ok {
				return configErrorf("operation %s references unknown machine %s", op.OperationID, machine)
			}
		}
	}
	for _, r := range sc.Routing {
		op, ok := ops[r.OperationID]
		if !ok {
			return configErrorf("routing entry references unknown operation %s", r.OperationID)
		}
		eligible := false
		for _, machine := range op.Machines {
			if machine == r.AssignedMachine {
				eligible = true
				break
			}
		}
		if !eligible {
			return configErrorf("routing assigns %s to ineligible machine %s", r.OperationID, r.AssignedMachine)
		}
	}
	for opType, byMachine := range sc.OperationDurations {
		for machine, spec := range byMachine {
			if _, err := spec.ToDistribution(); err != nil {
				return configErrorf("duration for type %s on %s: %v", opType, machine, err)
			}
		}
	}
	for from, byDest := range sc.TransferTimes {
		for to, spec := range byDest {
			if _, err := spec.ToDistribution(); err != nil {
				return configErrorf("transfer time %s->%s: %v", from, to, err)
			}
		}
	}
	for _, rel := range sc.Releases {
		found := false
		for _, j := range sc.Jobs {
			if j.JobID == rel.JobID {
				found = true
				break
			}
		}
		if !found {
			return configErrorf("release record references unknown job %s", rel.JobID)
		}
	}
	return nil
}
