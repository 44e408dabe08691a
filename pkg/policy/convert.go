package policy

import (
	"context"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
)

// Convert decodes a raw source and writes it as a compressed TIFF. A source
// the raw decoder rejects fails the task with a *DecodeError.
func (e *Engine) Convert(ctx context.Context, task planner.Task) (Outcome, error) {
	current, err := e.upToDate(ctx, task)
	if err != nil {
		return Outcome{}, err
	}
	if current {
		return Outcome{Action: ActionSkipped}, nil
	}

	if e.opts.DryRun {
		e.logger.Transfer("convert", task.SourcePath, task.DestPath)
		return Outcome{Action: ActionConverted}, nil
	}

	img, err := e.opts.DecodeRaw(task.SourcePath)
	if err != nil {
		return Outcome{}, &DecodeError{Format: FormatRaw, Path: task.SourcePath, Err: err}
	}

	n, err := e.writeImage(ctx, task, img)
	if err != nil {
		return Outcome{BytesWritten: n}, err
	}
	e.logger.Transfer("convert", task.SourcePath, task.DestPath)
	return Outcome{Action: ActionConverted, BytesWritten: n}, nil
}
