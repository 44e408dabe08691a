package policy

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/logger"
)

// ReportMode controls how often corrupted-image fallbacks are logged.
type ReportMode string

const (
	// ReportOnce logs the first fallback of a run.
	ReportOnce ReportMode = "once"
	// ReportPerCause logs the first fallback for each distinct decode error.
	ReportPerCause ReportMode = "per-cause"
)

func ParseReportMode(s string) (ReportMode, error) {
	switch m := ReportMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ReportOnce, ReportPerCause:
		return m, nil
	default:
		return "", fmt.Errorf("corruption report: unsupported value %q", s)
	}
}

// Reporter is shared by every worker of a run. Every fallback is counted;
// only the ones the mode selects are logged.
type Reporter struct {
	mode   ReportMode
	logger logger.Logger

	mu       sync.Mutex
	count    int
	reported map[string]bool
}

func NewReporter(mode ReportMode, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.NullLogger{}
	}
	if mode == "" {
		mode = ReportOnce
	}
	return &Reporter{
		mode:     mode,
		logger:   log,
		reported: make(map[string]bool),
	}
}

// Fallback records that path was copied verbatim because err prevented
// decoding it. It reports whether the event was logged.
func (r *Reporter) Fallback(path string, err error) bool {
	key := ""
	if r.mode == ReportPerCause {
		key = rootCause(err).Error()
	}

	r.mu.Lock()
	r.count++
	if r.reported[key] {
		r.mu.Unlock()
		return false
	}
	r.reported[key] = true
	r.mu.Unlock()

	r.logger.Warn("unreadable image copied without recompression",
		"path", path,
		"error", err,
		"trace", trace(err),
	)
	return true
}

// fallbacks returns the number of fallbacks recorded so far.
func (r *Reporter) fallbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// trace lists the messages of the wrapped error chain, outermost first.
func trace(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}
