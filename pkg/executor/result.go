package executor

import (
	"fmt"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/policy"
)

// State is the lifecycle of a task: pending, running, then done or failed.
// A task abandoned before it started stays pending.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

type Result struct {
	Task    planner.Task
	State   State
	Outcome policy.Outcome
	Err     error
}

// TaskError ties a failure to the task that produced it.
type TaskError struct {
	Task planner.Task
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Task.Kind, e.Task.SourcePath, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// RunOutcome holds the results collected by Execute, in submission order.
type RunOutcome struct {
	Results   []Result
	Succeeded int
	Failed    int
	Abandoned int
}

func (o *RunOutcome) add(res Result) {
	o.Results = append(o.Results, res)
	switch res.State {
	case StateDone:
		o.Succeeded++
	case StateFailed:
		o.Failed++
	default:
		o.Abandoned++
	}
}

// Actions counts the successful results by action.
func (o RunOutcome) Actions() map[policy.Action]int {
	counts := make(map[policy.Action]int)
	for _, res := range o.Results {
		if res.State == StateDone {
			counts[res.Outcome.Action]++
		}
	}
	return counts
}

// BytesWritten sums the bytes written by every collected result.
func (o RunOutcome) BytesWritten() int64 {
	var n int64
	for _, res := range o.Results {
		n += res.Outcome.BytesWritten
	}
	return n
}
