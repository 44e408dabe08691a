// Package freshness decides whether a destination artifact is already up to
// date with its source.
package freshness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/destination"
)

// IsCurrent reports whether destPath exists in dest and was modified no
// earlier than srcPath. Equal timestamps count as current. A missing
// destination is stale.
func IsCurrent(ctx context.Context, srcPath string, dest destination.Destination, destPath string) (bool, error) {
	dst, err := dest.Stat(ctx, destPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat destination %s: %w", destPath, err)
	}

	src, err := os.Stat(srcPath)
	if err != nil {
		return false, fmt.Errorf("stat source %s: %w", srcPath, err)
	}

	return !dst.ModTime.Before(src.ModTime()), nil
}
