// Package progress renders scan and conversion progress on a terminal.
package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Tracker counts finished work units. A disabled tracker counts without
// drawing anything.
type Tracker struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	count int
}

type Options struct {
	Description string
	// Total is the number of units, or -1 for an open-ended spinner.
	Total  int
	Writer io.Writer
	// Enabled turns drawing on. Use Interactive to decide it.
	Enabled bool
}

func New(opts Options) *Tracker {
	t := &Tracker{}
	if !opts.Enabled {
		return t
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	t.bar = progressbar.NewOptions(opts.Total,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	return t
}

// Interactive reports whether f is a terminal worth drawing on.
func Interactive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Add records n finished units.
func (t *Tracker) Add(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
	if t.bar != nil {
		_ = t.bar.Add(n)
	}
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Finish clears the bar from the terminal.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar != nil {
		_ = t.bar.Finish()
	}
}
