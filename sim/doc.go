// Package sim provides the core discrete-event simulation engine for the
// job-shop simulator.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: the event kinds that drive the simulation and the time/Seq-ordered queue
//   - simulator.go: the event loop, model registry, and logical clock
//   - machine.go: the machine state machine (idle → busy → idle) and part routing
//
// # Architecture
//
// The sim package owns the engine, the job/operation domain model, and the
// scenario loader; the remaining layers live in sub-packages:
//   - sim/control/: the Control Tower, dynamic operation-to-machine assignment
//   - sim/search/: schedule optimization (DFS, branch and bound, MCTS)
//   - sim/trace/: transition recording and run summaries
//
// A run is wired by Build from a Scenario: machines, the job arena, static
// routing, releases, and optionally the tower. Three modes share the engine:
// static routing, dynamic tower scheduling, and search mode, where unbound
// multi-candidate operations become decision epochs for the optimizer.
//
// # Key Interfaces
//
// The extension points are small interfaces and value types:
//   - Model: anything that receives events (machines, generator, transducer)
//   - DispatchPolicy: order a machine's startable queue (FIFO, SPT)
//   - Action / Snapshot: the decision interface the search layer drives
//
// Snapshots are fully detached value copies keyed by stable JobIDs, so search
// branches restore exact engine state, RNG stream included.
package sim
