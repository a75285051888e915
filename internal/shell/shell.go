// Package shell owns every output, the workspaces shown on them and the
// windows mapped into those workspaces. It is the single entry point the
// daemon, the IPC server, the MCP tools and the scenario runner drive.
package shell

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/layout/floating"
	"github.com/1broseidon/tilewm/internal/layout/tiling"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
	"github.com/1broseidon/tilewm/internal/workspace"
)

var (
	ErrUnknownWindow    = errors.New("unknown window")
	ErrUnknownOutput    = errors.New("unknown output")
	ErrUnknownWorkspace = errors.New("unknown workspace")
	ErrWindowExists     = errors.New("window already mapped")
)

// DefaultSeat is the seat used when Options leaves it empty.
const DefaultSeat = focus.Seat("seat0")

// Options configures a Shell.
type Options struct {
	Config *config.Config
	Clock  clock.Clock
	Logger *slog.Logger
	Seat   focus.Seat
}

// outputState is everything the shell keeps per output.
type outputState struct {
	out        *output.Output
	workspaces []*workspace.Workspace
	active     int
	sticky     *floating.Layout
	overlays   []*window.Surface
	overview   workspace.OverviewMode
}

func (o *outputState) activeWorkspace() *workspace.Workspace {
	if len(o.workspaces) == 0 {
		return nil
	}
	return o.workspaces[o.active]
}

// Shell manages the outputs and workspaces.
type Shell struct {
	mu sync.RWMutex

	cfg    *config.Config
	clock  clock.Clock
	logger *slog.Logger
	seat   focus.Seat
	events *protocol.Recorder
	tokens *Tokens

	outputs []*outputState
	// orphans are workspaces left without an output after the last one was
	// removed.
	orphans []*workspace.Workspace
	// pending are pinned records waiting for a matching output.
	pending []protocol.PinnedWorkspace
	windows map[window.SurfaceID]*window.Mapped
}

// New creates a shell without outputs.
func New(opts Options) *Shell {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Seat == "" {
		opts.Seat = DefaultSeat
	}
	return &Shell{
		cfg:     opts.Config,
		clock:   opts.Clock,
		logger:  opts.Logger,
		seat:    opts.Seat,
		events:  protocol.NewRecorder(),
		tokens:  NewTokens(opts.Clock, opts.Config.ActivationTokenTTL.Std()),
		windows: make(map[window.SurfaceID]*window.Mapped),
	}
}

// Config returns the configuration the shell was built with.
func (sh *Shell) Config() *config.Config { return sh.cfg }

// Events drains the protocol notifications recorded since the last call.
func (sh *Shell) Events() []protocol.Event {
	return sh.events.Drain()
}

func (sh *Shell) workspaceOptions() workspace.Options {
	layout, err := sh.cfg.GetDefaultLayout()
	if err != nil {
		sh.logger.Warn("default layout missing, using builtin", "layout", sh.cfg.DefaultLayout, "error", err)
		l := config.BuiltinLayouts()[config.DefaultBuiltinLayout]
		layout = &l
	}
	return workspace.Options{
		Clock:    sh.clock,
		Logger:   sh.logger,
		Notifier: sh.events,
		Tiling:   tiling.Settings{Layout: *layout, Gap: sh.cfg.GapSize},
		Floating: sh.floatingSettings(),

		HistoryLimit:  sh.cfg.OutputHistoryLimit,
		Blur:          render.BlurPolicy(sh.cfg.Blur.PartialRegion),
		BackdropColor: sh.cfg.Backdrop.Color,
	}
}

func (sh *Shell) floatingSettings() floating.Settings {
	return floating.Settings{
		DefaultSize: geom.Size{W: sh.cfg.Floating.DefaultWidth, H: sh.cfg.Floating.DefaultHeight},
		CascadeStep: sh.cfg.Floating.CascadeStep,
	}
}

// newWorkspaceLocked creates a workspace with an id unique across the shell.
func (sh *Shell) newWorkspaceLocked(build func(workspace.Options) *workspace.Workspace) *workspace.Workspace {
	ws := build(sh.workspaceOptions())
	for sh.idTakenLocked(ws) {
		ws.SetID(workspace.RandomID())
	}
	return ws
}

func (sh *Shell) idTakenLocked(candidate *workspace.Workspace) bool {
	taken := false
	sh.eachWorkspaceLocked(func(_ *outputState, ws *workspace.Workspace) bool {
		if ws != candidate && ws.ID() == candidate.ID() {
			taken = true
			return false
		}
		return true
	})
	return taken
}

// eachWorkspaceLocked visits every workspace, orphans last with a nil
// output state. It stops when fn returns false.
func (sh *Shell) eachWorkspaceLocked(fn func(*outputState, *workspace.Workspace) bool) {
	for _, o := range sh.outputs {
		for _, ws := range o.workspaces {
			if !fn(o, ws) {
				return
			}
		}
	}
	for _, ws := range sh.orphans {
		if !fn(nil, ws) {
			return
		}
	}
}

func (sh *Shell) outputLocked(name string) (*outputState, error) {
	for _, o := range sh.outputs {
		if o.out.Name() == name {
			return o, nil
		}
	}
	return nil, fmt.Errorf("output %q: %w", name, ErrUnknownOutput)
}

// targetOutputLocked resolves name, or the first output when name is empty.
func (sh *Shell) targetOutputLocked(name string) (*outputState, error) {
	if name == "" {
		if len(sh.outputs) == 0 {
			return nil, fmt.Errorf("no outputs: %w", ErrUnknownOutput)
		}
		return sh.outputs[0], nil
	}
	return sh.outputLocked(name)
}

func (sh *Shell) workspaceLocked(handle protocol.WorkspaceHandle) (*outputState, *workspace.Workspace, error) {
	var (
		found *workspace.Workspace
		owner *outputState
	)
	sh.eachWorkspaceLocked(func(o *outputState, ws *workspace.Workspace) bool {
		if ws.Handle() == handle {
			found, owner = ws, o
			return false
		}
		return true
	})
	if found == nil {
		return nil, nil, fmt.Errorf("workspace %s: %w", handle, ErrUnknownWorkspace)
	}
	return owner, found, nil
}

// AddOutput connects out. Workspaces that lived on it before move back, and
// pinned records waiting for it are restored. An output that receives no
// workspace gets a fresh one.
func (sh *Shell) AddOutput(out *output.Output) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, err := sh.outputLocked(out.Name()); err == nil {
		return fmt.Errorf("output %q already connected", out.Name())
	}
	state := &outputState{
		out:    out,
		sticky: floating.New(out, sh.floatingSettings(), sh.clock, sh.logger.With("layer", "sticky", "output", out.Name())),
	}
	sh.outputs = append(sh.outputs, state)

	for _, ws := range sh.orphans {
		sh.attachLocked(state, ws)
	}
	sh.orphans = nil

	for _, o := range sh.outputs {
		if o == state {
			continue
		}
		for _, ws := range slices.Clone(o.workspaces) {
			// The history ends with the current output, so any match on out
			// is more authoritative.
			if ws.PrefersOutput(out) {
				sh.detachLocked(o, ws)
				sh.attachLocked(state, ws)
			}
		}
		sh.ensureWorkspaceLocked(o)
	}

	kept := sh.pending[:0]
	for _, p := range sh.pending {
		if p.Output.Matches(out, false) {
			ws := sh.newWorkspaceLocked(func(opts workspace.Options) *workspace.Workspace {
				return workspace.FromPinned(p, protocol.NewWorkspaceHandle(), out, opts)
			})
			state.workspaces = append(state.workspaces, ws)
			continue
		}
		kept = append(kept, p)
	}
	sh.pending = kept

	sh.ensureWorkspaceLocked(state)
	sh.logger.Info("output added", "output", out.Name(), "edid", out.EDID().String(), "geometry", out.Geometry(), "workspaces", len(state.workspaces))
	return nil
}

// RemoveOutput disconnects the named output. Its workspaces and sticky
// windows move to the first remaining output, or wait for the next output
// when none is left.
func (sh *Shell) RemoveOutput(name string) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, err := sh.outputLocked(name)
	if err != nil {
		return err
	}
	sh.outputs = slices.DeleteFunc(sh.outputs, func(o *outputState) bool { return o == state })
	state.out.SetEnabled(false)

	var target *outputState
	if len(sh.outputs) > 0 {
		target = sh.outputs[0]
	}
	for _, ws := range state.workspaces {
		if target == nil {
			sh.orphans = append(sh.orphans, ws)
			continue
		}
		sh.attachLocked(target, ws)
	}
	for _, w := range state.sticky.Mapped() {
		state.sticky.Unmap(w)
		switch {
		case target != nil:
			target.sticky.Map(w, nil)
		case len(sh.orphans) > 0:
			sh.orphans[0].MapFloating(w, nil, sh.seat)
		}
	}
	sh.logger.Info("output removed", "output", name, "moved_to", outputName(target))
	return nil
}

func outputName(o *outputState) string {
	if o == nil {
		return ""
	}
	return o.out.Name()
}

// ResizeOutput applies a mode change to the named output.
func (sh *Shell) ResizeOutput(name string, geometry geom.Rect, scale float64) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, err := sh.outputLocked(name)
	if err != nil {
		return err
	}
	state.out.SetGeometry(geometry)
	if scale > 0 {
		state.out.SetScale(scale)
	}
	for _, ws := range state.workspaces {
		ws.Recalculate()
	}
	state.sticky.Recalculate()
	return nil
}

// attachLocked moves ws onto state's output as an implicit move.
func (sh *Shell) attachLocked(state *outputState, ws *workspace.Workspace) {
	if ws.Output() != state.out {
		ws.SetOutput(state.out, false)
	}
	state.workspaces = append(state.workspaces, ws)
}

func (sh *Shell) detachLocked(state *outputState, ws *workspace.Workspace) {
	idx := slices.Index(state.workspaces, ws)
	if idx < 0 {
		return
	}
	state.workspaces = slices.Delete(state.workspaces, idx, idx+1)
	if state.active > idx || state.active >= len(state.workspaces) {
		state.active = max(state.active-1, 0)
	}
}

func (sh *Shell) ensureWorkspaceLocked(state *outputState) {
	if len(state.workspaces) > 0 {
		return
	}
	ws := sh.newWorkspaceLocked(func(opts workspace.Options) *workspace.Workspace {
		return workspace.New(protocol.NewWorkspaceHandle(), state.out, sh.cfg.TilingEnabled, opts)
	})
	state.workspaces = append(state.workspaces, ws)
	state.active = 0
}

// Outputs lists the connected outputs in connection order.
func (sh *Shell) Outputs() []*output.Output {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	outs := make([]*output.Output, 0, len(sh.outputs))
	for _, o := range sh.outputs {
		outs = append(outs, o.out)
	}
	return outs
}

// AddWorkspace appends an empty workspace to the named output and returns its
// handle.
func (sh *Shell) AddWorkspace(outputName string) (protocol.WorkspaceHandle, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, err := sh.targetOutputLocked(outputName)
	if err != nil {
		return protocol.WorkspaceHandle{}, err
	}
	ws := sh.newWorkspaceLocked(func(opts workspace.Options) *workspace.Workspace {
		return workspace.New(protocol.NewWorkspaceHandle(), state.out, sh.cfg.TilingEnabled, opts)
	})
	state.workspaces = append(state.workspaces, ws)
	return ws.Handle(), nil
}

// ActivateWorkspace shows the workspace on its output.
func (sh *Shell) ActivateWorkspace(handle protocol.WorkspaceHandle) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ws, err := sh.workspaceLocked(handle)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("workspace %s has no output: %w", handle, ErrUnknownOutput)
	}
	state.active = slices.Index(state.workspaces, ws)
	return nil
}

// MoveWorkspace moves the workspace to the named output at the user's
// request, which resets its output history.
func (sh *Shell) MoveWorkspace(handle protocol.WorkspaceHandle, outputName string) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	from, ws, err := sh.workspaceLocked(handle)
	if err != nil {
		return err
	}
	to, err := sh.outputLocked(outputName)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if from != nil {
		sh.detachLocked(from, ws)
		sh.ensureWorkspaceLocked(from)
	} else {
		sh.orphans = slices.DeleteFunc(sh.orphans, func(o *workspace.Workspace) bool { return o == ws })
	}
	ws.SetOutput(to.out, true)
	to.workspaces = append(to.workspaces, ws)
	return nil
}

// SetTiling switches tiling on or off for the workspace.
func (sh *Shell) SetTiling(handle protocol.WorkspaceHandle, enable bool) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ws, err := sh.workspaceLocked(handle)
	if err != nil {
		return err
	}
	if ws.TilingEnabled() == enable {
		return nil
	}
	ws.SetTiling(enable, sh.seat, sh.events)
	return nil
}

// ActiveWorkspace returns the handle of the workspace shown on the named
// output.
func (sh *Shell) ActiveWorkspace(outputName string) (protocol.WorkspaceHandle, error) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	state, err := sh.targetOutputLocked(outputName)
	if err != nil {
		return protocol.WorkspaceHandle{}, err
	}
	return state.activeWorkspace().Handle(), nil
}

// SetOverview switches overview mode on the named output.
func (sh *Shell) SetOverview(outputName string, on bool) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, err := sh.outputLocked(outputName)
	if err != nil {
		return err
	}
	now := sh.clock.Now()
	switch {
	case on && (state.overview.Kind == workspace.OverviewNone || state.overview.Kind == workspace.OverviewEnded):
		state.overview = workspace.OverviewMode{Kind: workspace.OverviewStarted, At: now}
	case !on && (state.overview.Kind == workspace.OverviewStarted || state.overview.Kind == workspace.OverviewActive):
		state.overview = workspace.OverviewMode{Kind: workspace.OverviewEnded, At: now}
	}
	return nil
}

// Activate issues an activation token targeting the workspace.
func (sh *Shell) Activate(handle protocol.WorkspaceHandle) (string, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, _, err := sh.workspaceLocked(handle); err != nil {
		return "", err
	}
	return sh.tokens.Issue(handle), nil
}

// PinWorkspace marks the workspace pinned or not.
func (sh *Shell) PinWorkspace(handle protocol.WorkspaceHandle, pinned bool) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ws, err := sh.workspaceLocked(handle)
	if err != nil {
		return err
	}
	ws.SetPinned(pinned)
	return nil
}

// PinnedRecords returns the persisted records of every pinned workspace,
// including records still waiting for their output.
func (sh *Shell) PinnedRecords() []protocol.PinnedWorkspace {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	var records []protocol.PinnedWorkspace
	sh.eachWorkspaceLocked(func(_ *outputState, ws *workspace.Workspace) bool {
		if p, ok := ws.ToPinned(); ok {
			records = append(records, p)
		}
		return true
	})
	return append(records, sh.pending...)
}

// RestorePinned recreates pinned workspaces on the outputs they name. Records
// whose output is not connected wait until it is.
func (sh *Shell) RestorePinned(records []protocol.PinnedWorkspace) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	for _, p := range records {
		var target *outputState
		for _, o := range sh.outputs {
			if p.Output.Matches(o.out, false) {
				target = o
				break
			}
		}
		if target == nil {
			sh.pending = append(sh.pending, p)
			continue
		}
		ws := sh.newWorkspaceLocked(func(opts workspace.Options) *workspace.Workspace {
			return workspace.FromPinned(p, protocol.NewWorkspaceHandle(), target.out, opts)
		})
		target.workspaces = append(target.workspaces, ws)
	}
}

// Refresh drops dead windows, expires activation tokens and removes empty,
// inactive, unpinned workspaces.
func (sh *Shell) Refresh() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.refreshLocked()
}

func (sh *Shell) refreshLocked() {
	sh.tokens.Expire()
	for id, w := range sh.windows {
		if !w.Alive() {
			sh.forgetLocked(id, w)
		}
	}
	for _, o := range sh.outputs {
		o.sticky.Refresh()
		active := o.activeWorkspace()
		for _, ws := range slices.Clone(o.workspaces) {
			ws.Refresh()
			ws.RefreshFocusStack()
			if ws != active && ws.CanAutoRemove(sh.tokens) {
				sh.detachLocked(o, ws)
				sh.logger.Debug("workspace removed", "workspace", ws.ID(), "output", o.out.Name())
			}
		}
		o.active = max(slices.Index(o.workspaces, active), 0)
	}
}

// forgetLocked removes a dead window from whatever holds it.
func (sh *Shell) forgetLocked(id window.SurfaceID, w *window.Mapped) {
	delete(sh.windows, id)
	for _, o := range sh.outputs {
		o.sticky.Unmap(w)
	}
	sh.eachWorkspaceLocked(func(_ *outputState, ws *workspace.Workspace) bool {
		st, ok := ws.Unmap(w)
		if ok && st.WasFullscreen != nil {
			st.WasFullscreen.Release()
		}
		return !ok
	})
}
