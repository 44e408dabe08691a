package policy

import (
	"context"
	"errors"
	"image"
	"io"
	"os"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/tiffimage"
)

// Recompress rewrites an uncompressed single-page TIFF at the configured
// level. Files that are already compressed, multi-page stacks and sample
// layouts the encoder cannot reproduce are copied as they are. A file the TIFF
// decoder cannot read is reported and copied byte for byte; the task still
// succeeds.
func (e *Engine) Recompress(ctx context.Context, task planner.Task) (Outcome, error) {
	current, err := e.upToDate(ctx, task)
	if err != nil {
		return Outcome{}, err
	}
	if current {
		return Outcome{Action: ActionSkipped}, nil
	}

	if e.opts.DryRun {
		e.logger.Transfer("recompress", task.SourcePath, task.DestPath)
		return Outcome{Action: ActionRecompressed}, nil
	}

	img, err := e.loadUncompressed(task.SourcePath)
	if err != nil {
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			return Outcome{}, &CopyError{Src: task.SourcePath, Dst: task.DestPath, Err: err}
		}
		e.opts.Reporter.Fallback(task.SourcePath, err)
		n, err := e.copyFile(ctx, task)
		if err != nil {
			return Outcome{BytesWritten: n}, err
		}
		e.logger.Transfer("copy", task.SourcePath, task.DestPath)
		return Outcome{Action: ActionFallbackCopied, BytesWritten: n}, nil
	}

	if img == nil {
		n, err := e.copyFile(ctx, task)
		if err != nil {
			return Outcome{BytesWritten: n}, err
		}
		e.logger.Transfer("copy", task.SourcePath, task.DestPath)
		return Outcome{Action: ActionCopied, BytesWritten: n}, nil
	}

	n, err := e.writeImage(ctx, task, img)
	if err != nil {
		return Outcome{BytesWritten: n}, err
	}
	e.logger.Transfer("recompress", task.SourcePath, task.DestPath)
	return Outcome{Action: ActionRecompressed, BytesWritten: n}, nil
}

// loadUncompressed returns the image of a single-page uncompressed TIFF.
// It returns nil when the file is already compressed, when the configured
// level would not compress it, or when decoding and re-encoding would lose
// pages or sample values. Codec failures are returned as *DecodeError.
func (e *Engine) loadUncompressed(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layout, err := tiffimage.Inspect(f)
	if err != nil {
		return nil, &DecodeError{Format: FormatTIFF, Path: path, Err: err}
	}
	if layout.Compression != tiffimage.CompressionNone || e.opts.Compression <= 0 {
		return nil, nil
	}
	if !layout.Reencodable() {
		e.logger.Debug("keeping TIFF as is", "path", path, "pages", layout.Pages,
			"photometric", layout.Photometric, "bits_per_sample", layout.BitsPerSample,
			"sample_format", layout.SampleFormat)
		return nil, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, err := tiffimage.Decode(f)
	if err != nil {
		return nil, &DecodeError{Format: FormatTIFF, Path: path, Err: err}
	}
	return img, nil
}
