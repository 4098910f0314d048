package sim

// GeneratorName is the registry name of the release generator.
const GeneratorName = "generator"

// Release schedules one job's part into the shop at its release time.
type Release struct {
	Job  JobID
	Time float64
}

// Generator injects material-arrival events for every job release record.
// It schedules everything up front in Initialize; it has no reactive
// behavior of its own.
type Generator struct {
	releases []Release
}

// NewGenerator creates a generator for the given releases.
func NewGenerator(releases []Release) *Generator {
	return &Generator{releases: releases}
}

// Name implements Model.
func (g *Generator) Name() string { return GeneratorName }

// Initialize schedules a material arrival at each job's release time, routed
// to the machine hosting the job's first operation (its static assignment,
// or the first candidate when the choice is still open).
func (g *Generator) Initialize(s *Simulator) error {
	for _, r := range g.releases {
		job := s.Jobs.Get(r.Job)
		op := job.CurrentOp()
		if op == nil {
			continue
		}
		dest := op.Assigned
		if dest == "" {
			dest = op.Candidates[0]
		}
		ev := Event{Kind: EventMaterialArrival, Source: GeneratorName, Dest: dest, Job: r.Job}
		if err := s.Schedule(ev, r.Time-s.Clock); err != nil {
			return err
		}
	}
	return nil
}

// HandleEvent implements Model; the generator receives no events.
func (g *Generator) HandleEvent(Event, *Simulator) error { return nil }
