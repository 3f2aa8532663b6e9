// Package engine executes workflow graphs.
//
// A stored workflow is first built into an ExecutionGraph, which checks
// structural integrity (dangling connections, unknown module types,
// input fan-in, cycles) and validates every module's config against its
// type's schema. The Scheduler then runs the graph in topological order,
// routing values between module ports, invoking the category executors,
// and assembling a RunResult with the final outputs and a status for
// every module. A failed module never aborts independent branches; its
// dependents are marked skipped and the rest of the graph completes.
package engine
