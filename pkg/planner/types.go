package planner

import (
	"fmt"
	"io/fs"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/logger"
)

// Kind selects the conversion policy applied to a task.
type Kind string

const (
	KindConvert     Kind = "convert"
	KindRecompress  Kind = "recompress"
	KindPassthrough Kind = "passthrough"
)

// Task is one unit of work: a single source file and the destination path it
// produces. Tasks are passed to workers by value.
type Task struct {
	Kind       Kind
	SourcePath string
	DestPath   string
	RelPath    string
	Size       int64
	Mode       fs.FileMode
}

type Options struct {
	SourceExt string
	DestExt   string
	CopyAll   bool
	Excludes  []string
	DryRun    bool
	Logger    logger.Logger
	// OnFile is called for every file visited, matched or not.
	OnFile func()
}

// ScanError reports an I/O failure while walking the source tree or creating
// a destination directory. It aborts the run.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
