package sim

// Model is a named actor driven entirely by events. A model reacts to an
// event by mutating its own state and scheduling further events; it never
// blocks and never advances the clock itself. The simulator owns the event
// loop and is the only execution mechanism.
type Model interface {
	Name() string
	HandleEvent(ev Event, sim *Simulator) error
}
