package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/logger"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/policy"
)

// Runner executes a single task.
type Runner interface {
	Run(ctx context.Context, task planner.Task) (policy.Outcome, error)
}

// FailurePolicy decides what happens to the rest of the run once a task
// fails.
type FailurePolicy string

const (
	// FailFast abandons tasks submitted after a failed one that have not
	// started yet and reports the first failure in submission order.
	FailFast FailurePolicy = "fail-fast"
	// DrainAll runs every task and reports all failures.
	DrainAll FailurePolicy = "drain-all"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailFast, DrainAll:
		return p, nil
	default:
		return "", fmt.Errorf("failure policy: unsupported value %q", s)
	}
}

type Options struct {
	Workers       int
	FailurePolicy FailurePolicy
	// OnResult is called from worker goroutines as each task finishes.
	OnResult func(Result)
}

type Executor struct {
	runner   Runner
	logger   logger.Logger
	workers  int
	policy   FailurePolicy
	onResult func(Result)
}

func NewExecutor(runner Runner, log logger.Logger, opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = FailFast
	}
	if log == nil {
		log = logger.NullLogger{}
	}
	return &Executor{
		runner:   runner,
		logger:   log,
		workers:  opts.Workers,
		policy:   opts.FailurePolicy,
		onResult: opts.OnResult,
	}
}

// Execute submits every task to the worker pool and collects the results in
// submission order. Under FailFast the returned error is the first failure
// in that order; under DrainAll it joins every failure. If the parent
// context is cancelled, tasks that had not started are abandoned and the
// context error is returned.
func (e *Executor) Execute(ctx context.Context, tasks []planner.Task) (RunOutcome, error) {
	pool := pond.NewResultPool[Result](e.workers)
	defer pool.StopAndWait()

	// Lowest submission index that has failed so far. Under FailFast only
	// tasks after it are abandoned; earlier ones still run so collection can
	// report the first failure in submission order.
	var firstFailed atomic.Int64
	firstFailed.Store(math.MaxInt64)

	futures := make([]pond.Result[Result], len(tasks))
	for i, task := range tasks {
		futures[i] = pool.Submit(func() Result {
			return e.runTask(ctx, int64(i), task, &firstFailed)
		})
	}

	var (
		outcome RunOutcome
		errs    []error
	)
	for i, future := range futures {
		res, err := future.Wait()
		if err != nil {
			res = Result{
				Task:  tasks[i],
				State: StateFailed,
				Err:   &TaskError{Task: tasks[i], Err: err},
			}
		}
		outcome.add(res)

		if res.State != StateFailed {
			continue
		}
		errs = append(errs, res.Err)
		if e.policy == FailFast {
			break
		}
	}

	if len(errs) > 0 {
		if e.policy == FailFast {
			return outcome, errs[0]
		}
		return outcome, errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// runTask runs the task at submission index idx. It leaves the task pending
// when ctx is done or, under FailFast, when an earlier task has failed.
func (e *Executor) runTask(ctx context.Context, idx int64, task planner.Task, firstFailed *atomic.Int64) (res Result) {
	res = Result{Task: task, State: StatePending}
	if ctx.Err() != nil {
		return res
	}
	if e.policy == FailFast && idx > firstFailed.Load() {
		return res
	}

	res.State = StateRunning
	defer func() {
		if r := recover(); r != nil {
			res.State = StateFailed
			res.Err = &TaskError{Task: task, Err: fmt.Errorf("panic: %v", r)}
		}
		if res.State == StateFailed {
			e.logger.Error(string(task.Kind), task.SourcePath, res.Err)
			lowerTo(firstFailed, idx)
		}
		if e.onResult != nil {
			e.onResult(res)
		}
	}()

	outcome, err := e.runner.Run(ctx, task)
	res.Outcome = outcome
	if err != nil {
		res.State = StateFailed
		res.Err = &TaskError{Task: task, Err: err}
		return res
	}
	res.State = StateDone
	return res
}

func lowerTo(v *atomic.Int64, idx int64) {
	for {
		cur := v.Load()
		if idx >= cur || v.CompareAndSwap(cur, idx) {
			return
		}
	}
}
