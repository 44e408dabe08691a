package planner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/destination"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/logger"
)

// Scanner walks a source tree and plans one task per file that belongs to
// the run. Destination directories are created while scanning, so every
// directory exists before any task writing into it is dispatched.
type Scanner struct {
	dest destination.Destination
	opts Options
}

func NewScanner(dest destination.Destination, opts Options) *Scanner {
	if opts.Logger == nil {
		opts.Logger = logger.NullLogger{}
	}
	return &Scanner{dest: dest, opts: opts}
}

// Scan returns the tasks for root in walk order.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Task, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	var (
		tasks   []Task
		byDest  = make(map[string]int)
		created = make(map[string]bool)
	)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &ScanError{Path: path, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return &ScanError{Path: path, Err: err}
		}

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			excluded, err := IsExcluded(filepath.ToSlash(relPath), s.opts.Excludes)
			if err != nil {
				return fmt.Errorf("exclude pattern: %w", err)
			}
			if excluded {
				s.opts.Logger.Debug("excluded directory", "path", relPath)
				return filepath.SkipDir
			}
			return nil
		}

		if s.opts.OnFile != nil {
			s.opts.OnFile()
		}

		excluded, err := IsExcluded(filepath.ToSlash(relPath), s.opts.Excludes)
		if err != nil {
			return fmt.Errorf("exclude pattern: %w", err)
		}
		if excluded {
			s.opts.Logger.Debug("excluded file", "path", relPath)
			return nil
		}

		kind, ok := Classify(d.Name(), s.opts)
		if !ok {
			return nil
		}

		fi, err := os.Stat(path)
		if err != nil {
			return &ScanError{Path: path, Err: err}
		}
		if !fi.Mode().IsRegular() {
			s.opts.Logger.Debug("not a regular file", "path", relPath)
			return nil
		}

		relDir := filepath.Dir(relPath)
		destDir := s.dest.Join(relDir)
		if !created[destDir] {
			if !s.opts.DryRun {
				if err := s.dest.MkdirAll(ctx, destDir); err != nil {
					return &ScanError{Path: destDir, Err: err}
				}
			}
			created[destDir] = true
		}

		task := Task{
			Kind:       kind,
			SourcePath: path,
			DestPath:   s.dest.Join(filepath.Join(relDir, DestName(d.Name(), kind, s.opts))),
			RelPath:    relPath,
			Size:       fi.Size(),
			Mode:       fi.Mode().Perm(),
		}

		if i, dup := byDest[task.DestPath]; dup {
			s.resolveConflict(tasks, i, task)
			return nil
		}
		byDest[task.DestPath] = len(tasks)
		tasks = append(tasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// resolveConflict keeps a single task per destination path. A conversion
// takes precedence over a copy of a file that already has the target name.
func (s *Scanner) resolveConflict(tasks []Task, i int, task Task) {
	existing := tasks[i]
	if task.Kind == KindConvert && existing.Kind != KindConvert {
		s.opts.Logger.Warn("destination conflict, converting instead of copying",
			"dest", task.DestPath, "kept", task.SourcePath, "dropped", existing.SourcePath)
		tasks[i] = task
		return
	}
	s.opts.Logger.Warn("destination conflict, skipping file",
		"dest", task.DestPath, "kept", existing.SourcePath, "dropped", task.SourcePath)
}
