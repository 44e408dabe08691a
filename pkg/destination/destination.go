// Package destination abstracts the tree the sync pipeline writes into. A
// destination is either a local directory or an S3 bucket prefix; policies
// address files by the paths returned from Join.
package destination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Info is the subset of file metadata the freshness check relies on.
type Info struct {
	Size    int64
	ModTime time.Time
}

type Destination interface {
	// Join maps a source-relative path onto a destination path.
	Join(rel string) string
	// Stat returns an error wrapping fs.ErrNotExist when path is missing.
	Stat(ctx context.Context, path string) (Info, error)
	MkdirAll(ctx context.Context, dir string) error
	// Remove deletes path. Removing a missing path is not an error.
	Remove(ctx context.Context, path string) error
	// Create opens path for writing, truncating any existing content. The
	// write is complete only once Close returns nil.
	Create(ctx context.Context, path string, perm fs.FileMode) (Writer, error)
	String() string
}

// Writer is an open destination file. Abort discards what was written and
// leaves nothing at the path, so a failed write never looks like a current
// destination.
type Writer interface {
	io.WriteCloser
	Abort(cause error) error
}

// FS is a destination rooted at a local directory.
type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

func (d *FS) Join(rel string) string {
	return filepath.Join(d.root, rel)
}

func (d *FS) Stat(_ context.Context, path string) (Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (d *FS) MkdirAll(_ context.Context, dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func (d *FS) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (d *FS) Create(_ context.Context, path string, perm fs.FileMode) (Writer, error) {
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, err
	}
	return &fileWriter{File: f}, nil
}

type fileWriter struct {
	*os.File
}

func (w *fileWriter) Abort(cause error) error {
	w.File.Close()
	if err := os.Remove(w.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove partial %s: %w", w.Name(), err)
	}
	return nil
}

func (d *FS) String() string {
	return d.root
}
