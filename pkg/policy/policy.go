// Package policy implements the per-file conversion strategies: converting
// raw images to compressed TIFF, recompressing existing TIFF files and
// passing other files through. Every strategy first consults the freshness
// check and leaves current destinations untouched.
package policy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/destination"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/freshness"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/logger"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/rawimage"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/tiffimage"
)

// Action records what a policy did with a task.
type Action string

const (
	ActionSkipped        Action = "skipped"
	ActionConverted      Action = "converted"
	ActionRecompressed   Action = "recompressed"
	ActionCopied         Action = "copied"
	ActionFallbackCopied Action = "fallback-copied"
)

type Outcome struct {
	Action       Action
	BytesWritten int64
}

// RawDecoder turns a raw file into an image. Shape and sample type are the
// decoder's business.
type RawDecoder func(path string) (image.Image, error)

type Options struct {
	// Compression is the 0-9 level handed to the TIFF encoder.
	Compression int
	DryRun      bool
	DecodeRaw   RawDecoder
	Reporter    *Reporter
}

// Engine applies the policy selected by a task's kind.
type Engine struct {
	dest   destination.Destination
	opts   Options
	logger logger.Logger
}

func NewEngine(dest destination.Destination, opts Options, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NullLogger{}
	}
	if opts.DecodeRaw == nil {
		opts.DecodeRaw = rawimage.ReadFile
	}
	if opts.Reporter == nil {
		opts.Reporter = NewReporter(ReportOnce, log)
	}
	return &Engine{dest: dest, opts: opts, logger: log}
}

// Run executes task with the policy matching its kind.
func (e *Engine) Run(ctx context.Context, task planner.Task) (Outcome, error) {
	switch task.Kind {
	case planner.KindConvert:
		return e.Convert(ctx, task)
	case planner.KindRecompress:
		return e.Recompress(ctx, task)
	case planner.KindPassthrough:
		return e.Passthrough(ctx, task)
	default:
		return Outcome{}, fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

// upToDate consults the freshness check and logs skipped tasks.
func (e *Engine) upToDate(ctx context.Context, task planner.Task) (bool, error) {
	current, err := freshness.IsCurrent(ctx, task.SourcePath, e.dest, task.DestPath)
	if err != nil {
		return false, err
	}
	if current {
		e.logger.Skip(task.SourcePath, task.DestPath)
	}
	return current, nil
}

// writeImage replaces the destination with a freshly encoded TIFF. The old
// file is removed first because rewriting a TIFF in place can leave stale
// pages or strips behind.
func (e *Engine) writeImage(ctx context.Context, task planner.Task, img image.Image) (int64, error) {
	if err := e.dest.Remove(ctx, task.DestPath); err != nil {
		return 0, fmt.Errorf("remove stale %s: %w", task.DestPath, err)
	}

	w, err := e.dest.Create(ctx, task.DestPath, task.Mode)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", task.DestPath, err)
	}

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	if err := tiffimage.Encode(bw, img, e.opts.Compression); err != nil {
		err = fmt.Errorf("encode %s: %w", task.DestPath, err)
		return cw.n, abort(w, err)
	}
	if err := bw.Flush(); err != nil {
		err = fmt.Errorf("write %s: %w", task.DestPath, err)
		return cw.n, abort(w, err)
	}
	if err := w.Close(); err != nil {
		return cw.n, fmt.Errorf("close %s: %w", task.DestPath, err)
	}
	return cw.n, nil
}

// abort discards a partial write and returns err, joined with any failure
// to clean up.
func abort(w destination.Writer, err error) error {
	if abortErr := w.Abort(err); abortErr != nil {
		return errors.Join(err, abortErr)
	}
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func permOrDefault(mode fs.FileMode) fs.FileMode {
	if mode == 0 {
		return 0o644
	}
	return mode
}
