package policy

import (
	"context"
	"io"
	"os"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
)

// Passthrough copies the source bytes unchanged.
func (e *Engine) Passthrough(ctx context.Context, task planner.Task) (Outcome, error) {
	current, err := e.upToDate(ctx, task)
	if err != nil {
		return Outcome{}, err
	}
	if current {
		return Outcome{Action: ActionSkipped}, nil
	}

	if e.opts.DryRun {
		e.logger.Transfer("copy", task.SourcePath, task.DestPath)
		return Outcome{Action: ActionCopied}, nil
	}

	n, err := e.copyFile(ctx, task)
	if err != nil {
		return Outcome{BytesWritten: n}, err
	}
	e.logger.Transfer("copy", task.SourcePath, task.DestPath)
	return Outcome{Action: ActionCopied, BytesWritten: n}, nil
}

// copyFile streams the source into the destination, keeping the source
// permission bits.
func (e *Engine) copyFile(ctx context.Context, task planner.Task) (int64, error) {
	wrap := func(err error) error {
		return &CopyError{Src: task.SourcePath, Dst: task.DestPath, Err: err}
	}

	src, err := os.Open(task.SourcePath)
	if err != nil {
		return 0, wrap(err)
	}
	defer src.Close()

	dst, err := e.dest.Create(ctx, task.DestPath, permOrDefault(task.Mode))
	if err != nil {
		return 0, wrap(err)
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		return n, abort(dst, wrap(err))
	}
	if err := dst.Close(); err != nil {
		return n, wrap(err)
	}
	return n, nil
}
