package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

// Epoch is the fake clock's starting instant.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of one step.
type Result struct {
	Index int           `json:"index"`
	Op    Op            `json:"op"`
	At    time.Duration `json:"at"`
	// Frame is only set for frame steps.
	Frame  *shell.Frame     `json:"frame,omitempty"`
	Events []protocol.Event `json:"events,omitempty"`
}

// Options configures a run.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// OnResult is called after every step.
	OnResult func(Result)
}

// Runner owns the shell a scenario is replayed against.
type Runner struct {
	sc     *Scenario
	clock  *clock.FakeClock
	shell  *shell.Shell
	logger *slog.Logger

	workspaces map[string]protocol.WorkspaceHandle
	tokens     map[string]string
}

// NewRunner builds a shell with the scenario's outputs plugged in.
func NewRunner(sc *Scenario, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := clock.Fake(Epoch)
	sh := shell.New(shell.Options{Config: opts.Config, Clock: clk, Logger: logger})
	for _, o := range sc.Outputs {
		if err := sh.AddOutput(o.build()); err != nil {
			return nil, fmt.Errorf("failed to add output %s: %w", o.Name, err)
		}
	}
	return &Runner{
		sc:         sc,
		clock:      clk,
		shell:      sh,
		logger:     logger,
		workspaces: map[string]protocol.WorkspaceHandle{},
		tokens:     map[string]string{},
	}, nil
}

// Shell exposes the driven shell for inspection.
func (r *Runner) Shell() *shell.Shell { return r.shell }

// Elapsed is the time passed on the fake clock.
func (r *Runner) Elapsed() time.Duration { return r.clock.Now().Sub(Epoch) }

// Run replays every step. It stops at the first failing step or when ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context, onResult func(Result)) ([]Result, error) {
	var results []Result
	for i, st := range r.sc.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r.clock.Advance(st.After.Std())
		res := Result{Index: i, Op: st.Op, At: r.Elapsed()}
		frame, err := r.step(st)
		if err != nil {
			return results, fmt.Errorf("step %d (%s) at %s: %w", i, st.Op, res.At, err)
		}
		res.Frame = frame
		res.Events = r.shell.Events()
		r.logger.Debug("scenario step", "index", i, "op", st.Op, "at", res.At, "events", len(res.Events))
		results = append(results, res)
		if onResult != nil {
			onResult(res)
		}
	}
	return results, nil
}

// Run is a convenience wrapper around NewRunner and Runner.Run.
func Run(ctx context.Context, sc *Scenario, opts Options) ([]Result, error) {
	r, err := NewRunner(sc, opts)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, opts.OnResult)
}

func (r *Runner) workspace(st Step) (protocol.WorkspaceHandle, error) {
	if st.Name != "" {
		h, ok := r.workspaces[st.Name]
		if !ok {
			return protocol.WorkspaceHandle{}, fmt.Errorf("no workspace named %q", st.Name)
		}
		return h, nil
	}
	return r.shell.ActiveWorkspace(st.Output)
}

func (r *Runner) step(st Step) (*shell.Frame, error) {
	sh := r.shell
	switch st.Op {
	case OpAddOutput:
		return nil, sh.AddOutput(st.Add.build())
	case OpRemoveOutput:
		return nil, sh.RemoveOutput(st.Output)
	case OpResizeOutput:
		scale := st.Scale
		if scale == 0 {
			scale = 1
		}
		return nil, sh.ResizeOutput(st.Output, *st.Geometry, scale)
	case OpAddWorkspace:
		h, err := sh.AddWorkspace(st.Output)
		if err != nil {
			return nil, err
		}
		if st.Name != "" {
			r.workspaces[st.Name] = h
		}
		return nil, nil
	case OpActivateWorkspace:
		h, err := r.workspace(st)
		if err != nil {
			return nil, err
		}
		return nil, sh.ActivateWorkspace(h)
	case OpMoveWorkspace:
		if st.Name == "" {
			return nil, fmt.Errorf("move_workspace requires name")
		}
		h, err := r.workspace(st)
		if err != nil {
			return nil, err
		}
		return nil, sh.MoveWorkspace(h, st.Output)
	case OpSetTiling:
		h, err := r.workspace(st)
		if err != nil {
			return nil, err
		}
		return nil, sh.SetTiling(h, st.enabled())
	case OpOverview:
		return nil, sh.SetOverview(st.Output, st.enabled())
	case OpPin:
		h, err := r.workspace(st)
		if err != nil {
			return nil, err
		}
		return nil, sh.PinWorkspace(h, st.enabled())
	case OpIssueToken:
		h, err := r.workspace(st)
		if err != nil {
			return nil, err
		}
		token, err := sh.Activate(h)
		if err != nil {
			return nil, err
		}
		key := st.Name
		if key == "" {
			key = h.String()
		}
		r.tokens[key] = token
		return nil, nil
	case OpMap:
		spec := *st.Window
		if token, ok := r.tokens[spec.Token]; ok {
			spec.Token = token
		}
		_, err := sh.MapWindow(spec)
		return nil, err
	case OpUnmap:
		return nil, sh.UnmapWindow(st.ID)
	case OpMinimize:
		return nil, sh.Minimize(st.ID)
	case OpUnminimize:
		return nil, sh.Unminimize(st.ID)
	case OpFullscreen:
		return nil, sh.Fullscreen(st.ID)
	case OpUnfullscreen:
		return nil, sh.Unfullscreen(st.ID)
	case OpMaximize:
		return nil, sh.Maximize(st.ID)
	case OpUnmaximize:
		return nil, sh.Unmaximize(st.ID)
	case OpToggleFloating:
		return nil, sh.ToggleFloating(st.ID)
	case OpSticky:
		return nil, sh.SetSticky(st.ID, st.enabled())
	case OpFocus:
		return nil, sh.Focus(st.ID)
	case OpFrame:
		f, err := sh.Frame()
		if err != nil {
			return nil, err
		}
		return &f, nil
	case OpExpect:
		return nil, r.check(st)
	}
	return nil, fmt.Errorf("unknown op %q", st.Op)
}

// check compares the shell state against an expect step.
func (r *Runner) check(st Step) error {
	e := st.Expect
	status := r.shell.Status()
	if e.Workspaces != nil && len(status.Workspaces) != *e.Workspaces {
		return fmt.Errorf("expected %d workspaces, have %d", *e.Workspaces, len(status.Workspaces))
	}
	if e.Animating != nil || e.Elements != nil {
		frame, err := r.shell.Frame()
		if err != nil {
			return err
		}
		if e.Animating != nil && frame.Animating != *e.Animating {
			return fmt.Errorf("expected animating=%t", *e.Animating)
		}
		if e.Elements != nil {
			n := 0
			for _, of := range frame.Outputs {
				if st.Output == "" || of.Output == st.Output {
					n += len(of.Elements)
				}
			}
			if n != *e.Elements {
				return fmt.Errorf("expected %d elements, rendered %d", *e.Elements, n)
			}
		}
	}
	if st.ID == 0 {
		return nil
	}

	info, ok := findWindow(status, st.ID)
	if !ok {
		return fmt.Errorf("window %d: %w", st.ID, shell.ErrUnknownWindow)
	}
	if e.Layer != "" && info.Layer != e.Layer {
		return fmt.Errorf("window %d: expected layer %s, is %s", st.ID, e.Layer, info.Layer)
	}
	if e.Position != nil && info.Geometry.Loc() != *e.Position {
		return fmt.Errorf("window %d: expected position %v, is %v", st.ID, *e.Position, info.Geometry.Loc())
	}
	if e.Size != nil && info.Geometry.Size() != *e.Size {
		return fmt.Errorf("window %d: expected size %v, is %v", st.ID, *e.Size, info.Geometry.Size())
	}
	if e.Minimized != nil && info.Minimized != *e.Minimized {
		return fmt.Errorf("window %d: expected minimized=%t", st.ID, *e.Minimized)
	}
	if e.Fullscreen != nil && info.Fullscreen != *e.Fullscreen {
		return fmt.Errorf("window %d: expected fullscreen=%t", st.ID, *e.Fullscreen)
	}
	if e.Maximized != nil && info.Maximized != *e.Maximized {
		return fmt.Errorf("window %d: expected maximized=%t", st.ID, *e.Maximized)
	}
	if e.Workspace != "" {
		want, ok := r.workspaces[e.Workspace]
		if !ok {
			return fmt.Errorf("no workspace named %q", e.Workspace)
		}
		got, err := r.shell.WorkspaceOf(st.ID)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("window %d: expected on workspace %s", st.ID, e.Workspace)
		}
	}
	return nil
}

func findWindow(status shell.Status, id window.SurfaceID) (shell.WindowInfo, bool) {
	for _, ws := range status.Workspaces {
		for _, w := range ws.Windows {
			if w.ID == id {
				return w, true
			}
		}
	}
	for _, o := range status.Outputs {
		for _, w := range o.Sticky {
			if w.ID == id {
				return w, true
			}
		}
	}
	return shell.WindowInfo{}, false
}
