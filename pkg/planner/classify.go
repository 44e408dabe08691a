package planner

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/tiffimage"
)

// Classify picks the policy for a file name under the given options. The
// second result is false when the file is not part of the run.
func Classify(name string, opts Options) (Kind, bool) {
	if hasSuffixFold(name, opts.SourceExt) {
		return KindConvert, true
	}
	if !opts.CopyAll {
		return "", false
	}
	if tiffimage.IsTaggedImage(name) {
		return KindRecompress, true
	}
	return KindPassthrough, true
}

// DestName returns the destination file name for name. Only converted files
// are renamed.
func DestName(name string, kind Kind, opts Options) string {
	if kind != KindConvert {
		return name
	}
	return name[:len(name)-len(opts.SourceExt)] + opts.DestExt
}

func hasSuffixFold(name, suffix string) bool {
	if suffix == "" || len(name) < len(suffix) {
		return false
	}
	return strings.EqualFold(name[len(name)-len(suffix):], suffix)
}

// IsExcluded reports whether the slash-separated relative path matches any
// doublestar pattern.
func IsExcluded(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
