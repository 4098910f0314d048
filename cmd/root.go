package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jobshop-sim/jobshop-sim/sim"
	"github.com/jobshop-sim/jobshop-sim/sim/control"
	"github.com/jobshop-sim/jobshop-sim/sim/search"
	"github.com/jobshop-sim/jobshop-sim/sim/trace"
)

var (
	// shared flags
	scenarioPath     string  // Scenario bundle: a directory of JSON files or a single YAML file
	logLevel         string  // Log verbosity level
	seed             uint64  // Seed for all stochastic durations and transfer times
	dispatch         string  // Per-machine queue discipline (fifo, spt)
	fallbackDuration float64 // Substitute for missing duration/transfer entries; negative disables
	showTrace        bool    // Print every transition record after the run

	// run flags
	dynamic  bool   // Enable control-tower scheduling for unrouted operations
	strategy string // Tower strategy (earliest-available, least-loaded, shortest-processing-time, priority-based, load-balancing)

	// optimize flags
	algorithm string  // Search algorithm (dfs, branch-and-bound, mcts)
	rollout   string  // Rollout heuristic (ect, spt)
	timeLimit float64 // Search wall-clock budget in seconds; 0 means unlimited
	maxNodes  int     // Search node budget; 0 means unlimited
	maxDepth  int     // Search depth budget; 0 means unlimited
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "jobshop-sim",
	Short: "Discrete-event simulator and schedule optimizer for job-shop manufacturing",
}

// runCmd executes one simulation of the scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the job-shop simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		sc := loadScenario()
		strat, err := control.ParseStrategy(strategy)
		if err != nil {
			logrus.Fatalf("Invalid strategy: %v", err)
		}

		rec := trace.NewRecorder()
		s, err := sim.Build(sc, sim.BuildOptions{
			Seed:             seed,
			Dynamic:          dynamic,
			Strategy:         strat,
			Dispatch:         dispatch,
			Recorder:         rec,
			FallbackDuration: fallbackFlag(),
		})
		if err != nil {
			logrus.Fatalf("Building simulation: %v", err)
		}

		startTime := time.Now()
		if err := s.Run(); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		printSummary(rec, time.Since(startTime))
		if showTrace {
			printTrace(rec)
		}
	},
}

// optimizeCmd searches the scenario's schedule space
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search for a minimum-makespan schedule",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		sc := loadScenario()
		algo, err := search.ParseAlgorithm(algorithm)
		if err != nil {
			logrus.Fatalf("Invalid algorithm: %v", err)
		}
		policy, err := search.ParseRolloutPolicy(rollout)
		if err != nil {
			logrus.Fatalf("Invalid rollout policy: %v", err)
		}

		s, err := sim.Build(sc, sim.BuildOptions{
			Seed:             seed,
			Dispatch:         dispatch,
			SearchMode:       true,
			FallbackDuration: fallbackFlag(),
		})
		if err != nil {
			logrus.Fatalf("Building simulation: %v", err)
		}

		opt := search.New(search.Config{
			Algorithm: algo,
			Rollout:   policy,
			Seed:      seed,
			Budget: search.Budget{
				TimeLimit: time.Duration(timeLimit * float64(time.Second)),
				MaxNodes:  maxNodes,
				MaxDepth:  maxDepth,
			},
		})
		result, err := opt.Optimize(s)
		if err != nil {
			logrus.Fatalf("Search failed: %v", err)
		}

		fmt.Printf("algorithm:  %s\n", result.Algorithm)
		fmt.Printf("objective:  %.2f\n", result.Objective)
		fmt.Printf("nodes:      %d\n", result.Nodes)
		fmt.Printf("elapsed:    %s\n", result.Elapsed.Round(time.Millisecond))
		fmt.Printf("exhausted:  %t\n", result.Exhausted)
		fmt.Println("plan:")
		for i, a := range result.Plan {
			fmt.Printf("  %3d. %s\n", i+1, a)
		}
	},
}

// setupLogging applies the --log flag
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadScenario reads the bundle named by --scenario: a directory holds the
// per-file JSON layout, a .yaml/.yml file holds the single-file bundle.
func loadScenario() *sim.Scenario {
	if scenarioPath == "" {
		logrus.Fatalf("Scenario path not provided. Exiting.")
	}
	info, err := os.Stat(scenarioPath)
	if err != nil {
		logrus.Fatalf("Reading scenario: %v", err)
	}
	var sc *sim.Scenario
	if info.IsDir() {
		sc, err = sim.LoadScenarioDir(scenarioPath)
	} else {
		switch strings.ToLower(filepath.Ext(scenarioPath)) {
		case ".yaml", ".yml":
			sc, err = sim.LoadScenarioFile(scenarioPath)
		default:
			logrus.Fatalf("Scenario must be a directory or a .yaml file: %s", scenarioPath)
		}
	}
	if err != nil {
		logrus.Fatalf("Loading scenario: %v", err)
	}
	return sc
}

// fallbackFlag converts the --fallback-duration flag; negative disables it.
func fallbackFlag() *float64 {
	if fallbackDuration < 0 {
		return nil
	}
	v := fallbackDuration
	return &v
}

// printSummary reports the run's aggregate results from the trace
func printSummary(rec *trace.Recorder, wall time.Duration) {
	summary := rec.Summarize()
	fmt.Printf("makespan:        %.2f\n", summary.Makespan)
	fmt.Printf("completed jobs:  %d\n", summary.CompletedJobs)
	fmt.Printf("transitions:     %d\n", summary.Transitions)
	fmt.Printf("wall time:       %s\n", wall.Round(time.Millisecond))

	machines := make([]string, 0, len(summary.Utilization))
	for m := range summary.Utilization {
		machines = append(machines, m)
	}
	sort.Strings(machines)
	for _, m := range machines {
		fmt.Printf("utilization %-12s %5.1f%% (busy %.2f)\n", m, summary.Utilization[m]*100, summary.MachineBusy[m])
	}

	jobs := make([]string, 0, len(summary.JobCompletion))
	for j := range summary.JobCompletion {
		jobs = append(jobs, j)
	}
	sort.Strings(jobs)
	for _, j := range jobs {
		fmt.Printf("job %-12s done at %8.2f\n", j, summary.JobCompletion[j])
	}
}

// printTrace dumps every transition record in event order
func printTrace(rec *trace.Recorder) {
	for _, r := range rec.Records() {
		fmt.Printf("[t=%8.2f] %-8s part=%s job=%s op=%s machine=%s qlen=%d delay=%.2f\n",
			r.Time, r.Event, r.Part, r.Job, r.Operation, r.Machine, r.QueueLength, r.Delay)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "Scenario bundle: directory of JSON files or a YAML file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 42, "Seed for stochastic durations and transfer times")
	rootCmd.PersistentFlags().StringVar(&dispatch, "dispatch", "fifo", "Queue discipline per machine (fifo, spt)")
	rootCmd.PersistentFlags().Float64Var(&fallbackDuration, "fallback-duration", -1, "Substitute for missing duration/transfer entries; negative means strict")
	rootCmd.PersistentFlags().BoolVar(&showTrace, "trace", false, "Print every transition record after the run")

	runCmd.Flags().BoolVar(&dynamic, "dynamic", false, "Assign unrouted operations via the control tower")
	runCmd.Flags().StringVar(&strategy, "strategy", "load-balancing", "Tower strategy (earliest-available, least-loaded, shortest-processing-time, priority-based, load-balancing)")

	optimizeCmd.Flags().StringVar(&algorithm, "algorithm", "branch-and-bound", "Search algorithm (dfs, branch-and-bound, mcts)")
	optimizeCmd.Flags().StringVar(&rollout, "rollout", "ect", "Rollout heuristic (ect, spt)")
	optimizeCmd.Flags().Float64Var(&timeLimit, "time-limit", 0, "Search wall-clock budget in seconds (0 = unlimited)")
	optimizeCmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "Search node budget (0 = unlimited)")
	optimizeCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Search depth budget (0 = unlimited)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(optimizeCmd)
}
