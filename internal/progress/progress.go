package progress

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	defaultInterval    = 500 * time.Millisecond
	defaultStopTimeout = time.Second
	maxDots            = 4
	clearPadding       = 10
)

// Reporter overwrites a single line with an animated status message while a
// long-running call is in flight.
type Reporter struct {
	w           io.Writer
	message     string
	interval    time.Duration
	stopTimeout time.Duration

	mu      sync.Mutex
	writeMu sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

// Option customizes a Reporter.
type Option func(*Reporter)

// WithInterval overrides the frame period.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithStopTimeout overrides how long Stop waits for the animation to exit.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.stopTimeout = d
		}
	}
}

// New returns an idle reporter writing to w.
func New(w io.Writer, message string, opts ...Option) *Reporter {
	if w == nil {
		w = io.Discard
	}
	r := &Reporter{
		w:           w,
		message:     message,
		interval:    defaultInterval,
		stopTimeout: defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the animation. Calling Start on a running reporter is a no-op.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}
	r.done = make(chan struct{})
	r.stopped = make(chan struct{})
	go r.run(r.done, r.stopped)
}

// Running reports whether the animation goroutine has been started and not stopped.
func (r *Reporter) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done != nil
}

// Stop signals the animation to end and waits at most the stop timeout for it
// to acknowledge. When clear is set the status line is blanked afterwards,
// unless the animation did not exit in time. Stop on an idle reporter only
// clears.
func (r *Reporter) Stop(clear bool) {
	r.mu.Lock()
	done, stopped := r.done, r.stopped
	r.done, r.stopped = nil, nil
	r.mu.Unlock()

	if done != nil {
		close(done)
		timer := time.NewTimer(r.stopTimeout)
		select {
		case <-stopped:
		case <-timer.C:
			// The animation is stuck in a write; leave the line alone.
			clear = false
		}
		timer.Stop()
	}
	if clear {
		r.tryWrite("\r" + strings.Repeat(" ", len(r.message)+clearPadding) + "\r")
	}
}

func (r *Reporter) run(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	dots := 1
	for {
		r.write(Frame(r.message, dots))
		dots = dots%maxDots + 1
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (r *Reporter) write(s string) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_, _ = io.WriteString(r.w, s)
}

// tryWrite writes s unless another write is in progress.
func (r *Reporter) tryWrite(s string) {
	if !r.writeMu.TryLock() {
		return
	}
	defer r.writeMu.Unlock()
	_, _ = io.WriteString(r.w, s)
}

// Frame renders one animation frame: carriage return, message, and dots
// padded so every frame has the same width.
func Frame(message string, dots int) string {
	if dots < 0 {
		dots = 0
	}
	if dots > maxDots {
		dots = maxDots
	}
	return "\r" + message + strings.Repeat(".", dots) + strings.Repeat(" ", maxDots-dots)
}

// IsInteractive reports whether w is a terminal. Animations written to files
// or pipes only add noise.
func IsInteractive(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
