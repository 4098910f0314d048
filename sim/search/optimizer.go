// Package search implements schedule optimization over the simulator's
// decision interface: the simulator runs to a decision epoch, the optimizer
// enumerates legal operation-to-machine bindings, and snapshot/restore lets
// it explore branches without re-running history. Three algorithms share the
// interface: exhaustive depth-first search, branch and bound with rollout
// bounds, and Monte Carlo tree search.
package search

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"github.com/jobshop-sim/jobshop-sim/sim"
)

// Algorithm names a search algorithm.
type Algorithm string

const (
	AlgorithmDFS            Algorithm = "dfs"
	AlgorithmBranchAndBound Algorithm = "branch-and-bound"
	AlgorithmMCTS           Algorithm = "mcts"
)

// ParseAlgorithm validates an algorithm name. The empty string selects
// branch and bound.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "":
		return AlgorithmBranchAndBound, nil
	case AlgorithmDFS, AlgorithmBranchAndBound, AlgorithmMCTS:
		return Algorithm(name), nil
	default:
		return "", fmt.Errorf("unknown search algorithm %q", name)
	}
}

// RolloutPolicy names the heuristic used to complete a schedule from an
// interior search state.
type RolloutPolicy string

const (
	// RolloutECT picks the action with the earliest estimated completion
	// time: max(now, machine next-available) plus the operation's expected
	// duration on that machine.
	RolloutECT RolloutPolicy = "ect"
	// RolloutSPT picks the action with the smallest expected duration.
	RolloutSPT RolloutPolicy = "spt"
)

// ParseRolloutPolicy validates a rollout policy name. The empty string
// selects ECT.
func ParseRolloutPolicy(name string) (RolloutPolicy, error) {
	switch RolloutPolicy(name) {
	case "":
		return RolloutECT, nil
	case RolloutECT, RolloutSPT:
		return RolloutPolicy(name), nil
	default:
		return "", fmt.Errorf("unknown rollout policy %q", name)
	}
}

// Budget bounds a search run. Zero values mean unlimited.
type Budget struct {
	TimeLimit time.Duration
	MaxNodes  int
	MaxDepth  int
}

// Result is the outcome of one optimization run. Exhausting the budget is
// not an error: the result carries the best complete schedule found so far.
type Result struct {
	Algorithm Algorithm

	// Objective is the best makespan found; +Inf when no complete schedule
	// was reached within the budget.
	Objective float64

	// Plan is the decision sequence that produced Objective.
	Plan []sim.Action

	Nodes     int
	Elapsed   time.Duration
	Exhausted bool
}

// Config selects the algorithm, rollout heuristic, budget, and the seed of
// the optimizer's own tie-breaking generator (independent of the
// simulation's stream).
type Config struct {
	Algorithm Algorithm
	Rollout   RolloutPolicy
	Budget    Budget
	Seed      uint64
}

// Optimizer searches the schedule space of one simulator.
type Optimizer struct {
	cfg Config
	rnd *rand.Rand

	budget budgetState

	best     float64
	bestPlan []sim.Action
}

// New creates an optimizer. Zero-value config fields take their defaults
// (branch and bound, ECT rollouts, unlimited budget).
func New(cfg Config) *Optimizer {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBranchAndBound
	}
	if cfg.Rollout == "" {
		cfg.Rollout = RolloutECT
	}
	return &Optimizer{
		cfg: cfg,
		rnd: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Optimize searches from the simulator's current state and returns the best
// complete schedule found. The simulator must have been built in search
// mode; it is left in an unspecified interior state afterwards, so callers
// wanting to replay the plan should rebuild.
func (o *Optimizer) Optimize(s *sim.Simulator) (Result, error) {
	start := time.Now()
	o.budget = newBudgetState(o.cfg.Budget)
	o.best = math.Inf(1)
	o.bestPlan = nil

	if err := s.RunToDecision(); err != nil {
		return Result{}, err
	}

	var err error
	switch o.cfg.Algorithm {
	case AlgorithmDFS:
		err = o.dfs(s, nil, 0)
	case AlgorithmBranchAndBound:
		err = o.branchAndBound(s, nil, 0)
	case AlgorithmMCTS:
		err = o.mcts(s)
	default:
		return Result{}, fmt.Errorf("unknown search algorithm %q", o.cfg.Algorithm)
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Algorithm: o.cfg.Algorithm,
		Objective: o.best,
		Plan:      o.bestPlan,
		Nodes:     o.budget.nodes,
		Elapsed:   time.Since(start),
		Exhausted: o.budget.exhausted,
	}
	logrus.Infof("search finished: algorithm=%s objective=%.2f nodes=%d elapsed=%s exhausted=%t",
		res.Algorithm, res.Objective, res.Nodes, res.Elapsed, res.Exhausted)
	return res, nil
}

// observe records a completed schedule if it improves the incumbent.
func (o *Optimizer) observe(objective float64, plan []sim.Action) {
	if objective < o.best {
		o.best = objective
		o.bestPlan = append([]sim.Action(nil), plan...)
		logrus.Debugf("search: new incumbent %.2f after %d nodes", objective, o.budget.nodes)
	}
}

// budgetState tracks consumption against a Budget.
type budgetState struct {
	deadline  time.Time
	maxNodes  int
	maxDepth  int
	nodes     int
	exhausted bool
}

func newBudgetState(b Budget) budgetState {
	st := budgetState{maxNodes: b.MaxNodes, maxDepth: b.MaxDepth}
	if b.TimeLimit > 0 {
		st.deadline = time.Now().Add(b.TimeLimit)
	}
	return st
}

// visit charges one node against the budget and reports whether search may
// continue.
func (b *budgetState) visit() bool {
	b.nodes++
	if b.maxNodes > 0 && b.nodes >= b.maxNodes {
		b.exhausted = true
	}
	if !b.deadline.IsZero() && time.Now().After(b.deadline) {
		b.exhausted = true
	}
	return !b.exhausted
}

// depthOK reports whether depth is within the budget; exceeding it marks the
// budget exhausted so the result says the search was cut short.
func (b *budgetState) depthOK(depth int) bool {
	if b.maxDepth > 0 && depth >= b.maxDepth {
		b.exhausted = true
		return false
	}
	return true
}
