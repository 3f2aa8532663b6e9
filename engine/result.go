package engine

import (
	"sort"
	"time"

	"github.com/BaSui01/flowgraph/types"
)

// State is the terminal execution state of one module within a run.
type State string

const (
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
)

// SkipCause explains why a module was skipped.
type SkipCause string

const (
	// SkipUpstreamFailure marks modules downstream of a failed module.
	SkipUpstreamFailure SkipCause = "upstream_failure"

	// SkipBranchNotTaken marks modules downstream of a logic branch that
	// the condition did not select.
	SkipBranchNotTaken SkipCause = "branch_not_taken"
)

// ModuleStatus records how one module ended. At most one of Error and
// Cause is set: Error for failed modules, Cause for skipped ones.
type ModuleStatus struct {
	State    State          `json:"state"`
	Category types.Category `json:"category"`
	Error    *types.Error   `json:"error,omitempty"`
	Cause    SkipCause      `json:"cause,omitempty"`
}

// RunResult is the outcome of one workflow run: the value produced by
// each Output module plus a status for every module in the graph. A run
// that reaches the scheduler always yields a RunResult, even when every
// path failed; only structural errors and cancellation abort the call.
type RunResult struct {
	RunID      string                  `json:"run_id"`
	WorkflowID string                  `json:"workflow_id"`
	Outputs    map[string]any          `json:"outputs"`
	Statuses   map[string]ModuleStatus `json:"statuses"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
}

// Succeeded reports whether the run delivered everything it was asked
// for: every Output module either succeeded or sat on a branch the
// condition did not take. A failure or an upstream-failure skip on any
// path to an Output makes the run unsuccessful; a not-taken branch is
// the expected outcome of a conditional, not an error.
func (r *RunResult) Succeeded() bool {
	for _, st := range r.Statuses {
		if st.Category != types.CategoryOutput {
			continue
		}
		switch {
		case st.State == StateSucceeded:
		case st.State == StateSkipped && st.Cause == SkipBranchNotTaken:
		default:
			return false
		}
	}
	return true
}

// FailedModules returns the ids of modules that failed, ascending.
func (r *RunResult) FailedModules() []string {
	var ids []string
	for id, st := range r.Statuses {
		if st.State == StateFailed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
