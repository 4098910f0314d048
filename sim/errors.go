package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors for fatal construction/configuration bugs. Callers match
// with errors.Is; the CLI boundary turns them into logrus.Fatalf.
var (
	// ErrMissingModel is returned when an event is routed to a destination
	// that was never registered with the simulator.
	ErrMissingModel = errors.New("missing model")

	// ErrUnknownDistribution is returned for a distribution kind outside
	// {normal, uniform, exponential}.
	ErrUnknownDistribution = errors.New("unknown distribution")

	// ErrNegativeDelay is returned by Schedule when delay < 0.
	ErrNegativeDelay = errors.New("negative delay")
)

// ConfigError marks a fatal scenario configuration problem: malformed input,
// a missing duration/transfer table entry with no fallback configured, or an
// operation referencing a machine that does not exist. A ConfigError aborts
// the run before any partial state is produced.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "scenario config: " + e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
