package sim

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jobshop-sim/jobshop-sim/sim/control"
	"github.com/jobshop-sim/jobshop-sim/sim/trace"
)

// BuildOptions selects the run mode and wiring for a scenario build.
type BuildOptions struct {
	Seed uint64

	// Dynamic enables the control tower: routing entries still pre-bind
	// operations, but everything unbound is assigned at run time.
	Dynamic  bool
	Strategy control.Strategy

	// Dispatch names the per-machine queue discipline ("fifo" or "spt").
	Dispatch string

	// SearchMode defers unbound multi-candidate choices to the optimizer.
	SearchMode bool

	// Recorder receives the run's transition trace; nil disables tracing.
	Recorder *trace.Recorder

	// FallbackDuration overrides the scenario's own fallback flag when
	// non-nil.
	FallbackDuration *float64
}

// Build validates the scenario and wires a ready-to-run simulator: machines
// in sorted name order, the job arena with per-machine duration tables,
// static routing bindings, the control tower (dynamic mode), and the
// generator/transducer pair. The caller runs it with Run, or drives it
// decision-by-decision in search mode.
func Build(sc *Scenario, opts BuildOptions) (*Simulator, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	s := New(opts.Seed, opts.Recorder)
	s.SearchMode = opts.SearchMode
	s.FallbackDuration = sc.FallbackDuration
	if opts.FallbackDuration != nil {
		s.FallbackDuration = opts.FallbackDuration
	}

	dispatch, err := NewDispatchPolicy(opts.Dispatch)
	if err != nil {
		return nil, err
	}

	machineNames := make([]string, 0, len(sc.InitialMachines))
	for name := range sc.InitialMachines {
		machineNames = append(machineNames, name)
	}
	sort.Strings(machineNames)

	for _, name := range machineNames {
		init := sc.InitialMachines[name]
		transfer, err := transferTable(sc, name)
		if err != nil {
			return nil, err
		}
		nextAvailable := 0.0
		if init.Status == "busy" {
			// An initially busy machine starts nothing before it frees up.
			nextAvailable = init.NextAvailableTime
		}
		s.Register(NewMachine(name, transfer, nextAvailable, dispatch))
	}

	ops := make(map[string]OperationSpec, len(sc.Operations))
	for _, op := range sc.Operations {
		ops[op.OperationID] = op
	}
	routing := make(map[string]string, len(sc.Routing))
	for _, r := range sc.Routing {
		routing[r.OperationID] = r.AssignedMachine
	}
	releases := make(map[string]float64, len(sc.Releases))
	for _, r := range sc.Releases {
		releases[r.JobID] = r.ReleaseTime
	}

	var genReleases []Release
	for _, spec := range sc.Jobs {
		job := Job{
			ID:       spec.JobID,
			PartID:   spec.PartID,
			Priority: spec.Priority,
			Release:  releases[spec.JobID],
		}
		for _, opID := range spec.Operations {
			meta := ops[opID]
			op := Operation{
				ID:         opID,
				Type:       meta.Type,
				Candidates: meta.Machines,
				Assigned:   routing[opID],
				Durations:  make(map[string]Distribution, len(meta.Machines)),
			}
			for _, machine := range meta.Machines {
				ds, ok := sc.OperationDurations[meta.Type][machine]
				if !ok {
					continue
				}
				dist, err := ds.ToDistribution()
				if err != nil {
					return nil, err
				}
				op.Durations[machine] = dist
			}
			job.Ops = append(job.Ops, op)
		}
		id := s.Jobs.Add(job)
		genReleases = append(genReleases, Release{Job: id, Time: job.Release})
	}

	if opts.Dynamic {
		tower := control.New(opts.Strategy)
		for _, name := range machineNames {
			init := sc.InitialMachines[name]
			tower.AddMachine(name, init.Status == "busy", init.NextAvailableTime)
		}
		for _, op := range sc.Operations {
			tower.RegisterOperation(op.OperationID, op.Machines)
		}
		for opType, byMachine := range sc.OperationDurations {
			for machine, spec := range byMachine {
				dist, err := spec.ToDistribution()
				if err != nil {
					return nil, err
				}
				tower.SetExpectedDuration(opType, machine, dist.Expected())
			}
		}
		s.Tower = tower
	}

	gen := NewGenerator(genReleases)
	s.Register(gen)
	s.Register(NewTransducer(s.Jobs.Len()))
	if err := gen.Initialize(s); err != nil {
		return nil, err
	}

	logrus.Debugf("built simulator: %d machines, %d jobs, dynamic=%t search=%t",
		len(machineNames), s.Jobs.Len(), opts.Dynamic, opts.SearchMode)
	return s, nil
}

// transferTable converts one machine's row of the transfer-time matrix.
func transferTable(sc *Scenario, from string) (map[string]Distribution, error) {
	row, ok := sc.TransferTimes[from]
	if !ok {
		return map[string]Distribution{}, nil
	}
	out := make(map[string]Distribution, len(row))
	for to, spec := range row {
		dist, err := spec.ToDistribution()
		if err != nil {
			return nil, err
		}
		out[to] = dist
	}
	return out, nil
}
