package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/1broseidon/tilewm/internal/shell"
)

// FrameLoop drives the shell's animations and pushes the result to the
// backend once per interval.
type FrameLoop struct {
	shell    *shell.Shell
	mirror   *Mirror
	interval atomic.Int64
	logger   *slog.Logger

	frames   atomic.Uint64
	released atomic.Uint64
}

// NewFrameLoop creates a frame loop. mirror may be nil.
func NewFrameLoop(sh *shell.Shell, mirror *Mirror, interval time.Duration, logger *slog.Logger) *FrameLoop {
	if logger == nil {
		logger = slog.Default()
	}
	f := &FrameLoop{shell: sh, mirror: mirror, logger: logger}
	f.SetInterval(interval)
	return f
}

// SetInterval changes the tick rate; it applies from the next tick.
func (f *FrameLoop) SetInterval(d time.Duration) {
	if d <= 0 {
		d = 16 * time.Millisecond
	}
	f.interval.Store(int64(d))
}

// Frames is the number of frames produced so far.
func (f *FrameLoop) Frames() uint64 { return f.frames.Load() }

// Released is the number of commit blockers released so far.
func (f *FrameLoop) Released() uint64 { return f.released.Load() }

// Tick produces one frame.
func (f *FrameLoop) Tick() (shell.Frame, error) {
	frame, err := f.shell.Frame()
	if err != nil {
		return frame, err
	}
	f.frames.Add(1)
	f.released.Add(uint64(len(frame.Released)))
	if f.mirror != nil {
		if err := f.mirror.Push(); err != nil {
			f.logger.Warn("failed to push frame to backend", "error", err)
		}
	}
	return frame, nil
}

// Run ticks until ctx is cancelled.
func (f *FrameLoop) Run(ctx context.Context) {
	timer := time.NewTimer(time.Duration(f.interval.Load()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := f.Tick(); err != nil {
				f.logger.Error("frame failed", "error", err)
			}
			timer.Reset(time.Duration(f.interval.Load()))
		}
	}
}
