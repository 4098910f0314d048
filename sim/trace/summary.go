package trace

// Summary aggregates one run's records into the headline numbers.
type Summary struct {
	Makespan      float64            // time of the last done transition
	CompletedJobs int                // jobs that reached done
	Transitions   int                // start + end records
	MachineBusy   map[string]float64 // machine -> total processing time
	Utilization   map[string]float64 // machine -> busy / makespan
	JobCompletion map[string]float64 // job -> completion time
}

// Summarize folds the recorder's rows into a Summary. Busy time is derived
// from matched start/end pairs per machine; an unmatched start (run aborted
// mid-operation) contributes nothing.
func (r *Recorder) Summarize() Summary {
	s := Summary{
		MachineBusy:   make(map[string]float64),
		Utilization:   make(map[string]float64),
		JobCompletion: make(map[string]float64),
	}
	open := make(map[string]float64) // machine -> pending start time
	for _, rec := range r.Records() {
		switch rec.Event {
		case TransitionStart:
			open[rec.Machine] = rec.Time
			s.Transitions++
		case TransitionEnd:
			if start, ok := open[rec.Machine]; ok {
				s.MachineBusy[rec.Machine] += rec.Time - start
				delete(open, rec.Machine)
			}
			s.Transitions++
		case TransitionDone:
			s.CompletedJobs++
			s.JobCompletion[rec.Job] = rec.Time
			if rec.Time > s.Makespan {
				s.Makespan = rec.Time
			}
		}
	}
	if s.Makespan > 0 {
		for m, busy := range s.MachineBusy {
			s.Utilization[m] = busy / s.Makespan
		}
	}
	return s
}
