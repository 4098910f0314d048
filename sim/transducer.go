package sim

import "github.com/sirupsen/logrus"

// TransducerName is the registry name of the completion observer.
const TransducerName = "transducer"

// Transducer receives job-completion notices. When the last job finishes it
// logs the final makespan; the structured results themselves live in the
// run's trace recorder.
type Transducer struct {
	Total     int
	Completed int
}

// NewTransducer creates a transducer expecting total job completions.
func NewTransducer(total int) *Transducer {
	return &Transducer{Total: total}
}

// Name implements Model.
func (t *Transducer) Name() string { return TransducerName }

// HandleEvent implements Model.
func (t *Transducer) HandleEvent(ev Event, s *Simulator) error {
	if ev.Kind != EventJobCompleted {
		return nil
	}
	t.Completed++
	job := s.Jobs.Get(ev.Job)
	logrus.Debugf("[t=%8.2f] job %s completed (%d/%d)", s.Clock, job.ID, t.Completed, t.Total)
	if t.Completed == t.Total {
		logrus.Infof("all %d jobs complete at t=%.2f", t.Total, s.Clock)
	}
	return nil
}
