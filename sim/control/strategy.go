// Package control implements the Control Tower: a centralized, real-time
// operation-to-machine assignment authority, as opposed to a statically
// precomputed routing table. The tower mirrors machine state reported by the
// simulation, holds the pool of pending operation requests, and assigns each
// to a machine under a selectable scheduling strategy.
package control

import "fmt"

// Strategy names a machine-selection scoring rule. Lowest score wins; ties
// are broken by candidate-list order, so assignment sequences are
// deterministic for a fixed scenario.
type Strategy string

const (
	// StrategyEarliestAvailable picks the candidate with the minimum
	// max(now, next_available_time).
	StrategyEarliestAvailable Strategy = "earliest-available"
	// StrategyLeastLoaded picks the candidate with the minimum
	// queue_length + (1 if busy).
	StrategyLeastLoaded Strategy = "least-loaded"
	// StrategyShortestProcessingTime picks the candidate minimizing the
	// expected duration of the operation on that machine (analytic
	// expectation, never a fresh sample).
	StrategyShortestProcessingTime Strategy = "shortest-processing-time"
	// StrategyPriorityBased is earliest-available over a request pool that
	// is already sorted by descending job priority.
	StrategyPriorityBased Strategy = "priority-based"
	// StrategyLoadBalancing scores 0.6*load + 0.4*wait where
	// load = queue_length + (1 if busy) and wait = earliest_start - now.
	// Default.
	StrategyLoadBalancing Strategy = "load-balancing"
)

// ParseStrategy validates a strategy name. The empty string selects the
// load-balancing default.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case "":
		return StrategyLoadBalancing, nil
	case StrategyEarliestAvailable, StrategyLeastLoaded, StrategyShortestProcessingTime,
		StrategyPriorityBased, StrategyLoadBalancing:
		return Strategy(name), nil
	default:
		return "", fmt.Errorf("unknown scheduling strategy %q", name)
	}
}

const (
	loadWeight = 0.6
	waitWeight = 0.4
)

// score computes the strategy's figure of merit for assigning the request's
// operation to the machine described by view. now is the tower's current
// simulated time.
func (s Strategy) score(view *MachineView, expected float64, now float64) float64 {
	busy := 0.0
	if view.Busy {
		busy = 1.0
	}
	earliestStart := max(now, view.NextAvailable)
	switch s {
	case StrategyEarliestAvailable, StrategyPriorityBased:
		return earliestStart
	case StrategyLeastLoaded:
		return float64(view.QueueLength) + busy
	case StrategyShortestProcessingTime:
		return expected
	case StrategyLoadBalancing:
		load := float64(view.QueueLength) + busy
		wait := earliestStart - now
		return loadWeight*load + waitWeight*wait
	default:
		return 0
	}
}
