// Package daemon runs the shell against a display backend: it mirrors the
// backend into the shell, ticks the frame loop and serves IPC.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/1broseidon/tilewm/internal/codec"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/hotkeys"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/rules"
	"github.com/1broseidon/tilewm/internal/runtimepath"
	"github.com/1broseidon/tilewm/internal/shell"
)

// Options configures a Daemon.
type Options struct {
	Config *config.Config
	// ConfigPath is re-read on reload. Empty uses the default location.
	ConfigPath  string
	Backend     platform.Backend
	BackendName string
	Logger      *slog.Logger
	// Level, when set, follows log_level across reloads.
	Level *slog.LevelVar
	// SocketPath defaults to runtimepath.SocketPath.
	SocketPath string
	// PinnedPath defaults to runtimepath.PinnedPath. "-" disables persistence.
	PinnedPath        string
	ReconcileInterval time.Duration
}

// Daemon owns the shell and every loop driving it.
type Daemon struct {
	opts       Options
	logger     *slog.Logger
	shell      *shell.Shell
	mirror     *Mirror
	rules      *rules.Matcher
	reconciler *Reconciler
	frames     *FrameLoop
	server     *ipc.Server
	reload     chan struct{}
}

// New assembles a daemon. Nothing runs until Run.
func New(opts Options) (*Daemon, error) {
	if opts.Backend == nil {
		return nil, errors.New("daemon: backend is required")
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PinnedPath == "" {
		p, err := runtimepath.PinnedPath()
		if err != nil {
			return nil, err
		}
		opts.PinnedPath = p
	}

	sh := shell.New(shell.Options{Config: opts.Config, Logger: logger})
	mirror := NewMirror(sh, opts.Backend, logger)
	matcher := rules.New(opts.Config.Floating.AppIDs)
	mirror.SetRules(matcher)
	frames := NewFrameLoop(sh, mirror, opts.Config.FrameInterval.Std(), logger)
	reload := make(chan struct{}, 1)
	server, err := ipc.NewServer(sh, ipc.ServerOptions{
		SocketPath: opts.SocketPath,
		Focuser:    mirror,
		Frames:     frames.Frames,
		Backend:    opts.BackendName,
		ReloadChan: reload,
	})
	if err != nil {
		return nil, err
	}

	return &Daemon{
		opts:       opts,
		logger:     logger,
		shell:      sh,
		mirror:     mirror,
		rules:      matcher,
		reconciler: NewReconciler(ReconcilerConfig{Interval: opts.ReconcileInterval, Logger: logger}, mirror),
		frames:     frames,
		server:     server,
		reload:     reload,
	}, nil
}

// Shell exposes the managed shell.
func (d *Daemon) Shell() *shell.Shell { return d.shell }

// SocketPath is where the IPC server listens.
func (d *Daemon) SocketPath() string { return d.server.SocketPath() }

// Run blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.restorePinned(); err != nil {
		d.logger.Warn("failed to restore pinned workspaces", "error", err)
	}
	d.reconciler.ReconcileNow()

	if err := d.server.Start(); err != nil {
		return err
	}
	defer d.server.Stop()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.reconciler.Run(loopCtx)
	go d.frames.Run(loopCtx)
	keys := d.startKeybindings()

	d.logger.Info("daemon started", "backend", d.opts.BackendName, "socket", d.server.SocketPath())
	for {
		select {
		case <-ctx.Done():
			cancel()
			if keys != nil {
				keys.Stop()
			}
			if err := d.savePinned(); err != nil {
				d.logger.Warn("failed to save pinned workspaces", "error", err)
			}
			if err := d.opts.Backend.Close(); err != nil {
				d.logger.Warn("failed to close backend", "error", err)
			}
			d.logger.Info("daemon stopped", "frames", d.frames.Frames())
			return nil
		case <-d.reload:
			d.applyReload()
		}
	}
}

// startKeybindings grabs the configured keys when the backend is X11 and
// runs the X event loop. It returns nil when there is nothing to stop.
func (d *Daemon) startKeybindings() *hotkeys.Handler {
	h, err := hotkeys.NewHandler(d.opts.Backend, NewActions(d.shell), d.logger)
	if errors.Is(err, hotkeys.ErrNoX11) {
		d.logger.Debug("keybindings disabled", "backend", d.opts.BackendName)
		return nil
	}
	if err != nil {
		d.logger.Warn("failed to set up keybindings", "error", err)
		return nil
	}
	if err := h.Bind(d.opts.Config.Keybindings); err != nil {
		d.logger.Warn("some keybindings were not registered", "error", err)
	}
	go h.Run()
	return h
}

// applyReload re-reads the configuration. The log level, frame interval and
// floating app ids change at runtime; everything else needs a restart.
func (d *Daemon) applyReload() {
	var (
		cfg *config.Config
		err error
	)
	if d.opts.ConfigPath != "" {
		var res *config.LoadResult
		if res, err = config.LoadFromPath(d.opts.ConfigPath); err == nil {
			cfg = res.Config
		}
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		d.logger.Error("config reload failed", "error", err)
		return
	}
	if d.opts.Level != nil {
		d.opts.Level.Set(cfg.SlogLevel())
	}
	d.frames.SetInterval(cfg.FrameInterval.Std())
	d.rules.Update(cfg.Floating.AppIDs)
	d.reconciler.Kick()
	d.logger.Info("config reloaded", "log_level", cfg.LogLevel, "frame_interval", cfg.FrameInterval)
}

func (d *Daemon) restorePinned() error {
	if d.opts.PinnedPath == "-" {
		return nil
	}
	data, err := os.ReadFile(d.opts.PinnedPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var records []protocol.PinnedWorkspace
	if err := codec.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to decode %s: %w", d.opts.PinnedPath, err)
	}
	d.shell.RestorePinned(records)
	d.logger.Info("restored pinned workspaces", "count", len(records))
	return nil
}

func (d *Daemon) savePinned() error {
	if d.opts.PinnedPath == "-" {
		return nil
	}
	records := d.shell.PinnedRecords()
	if len(records) == 0 {
		if err := os.Remove(d.opts.PinnedPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	data, err := codec.Marshal(records)
	if err != nil {
		return err
	}
	return os.WriteFile(d.opts.PinnedPath, data, 0o600)
}
