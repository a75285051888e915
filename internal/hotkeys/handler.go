package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/window"
	"github.com/1broseidon/tilewm/internal/x11"
)

// ErrNoX11 is returned for backends without an X11 connection.
var ErrNoX11 = errors.New("keybindings need the x11 backend")

// Dispatcher runs a bound action on a window.
type Dispatcher interface {
	Dispatch(action config.KeyAction, id window.SurfaceID) error
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	X11() *x11.Connection
}

// Handler manages global keyboard shortcuts
type Handler struct {
	conn     *x11.Connection
	xu       *xgbutil.XUtil
	root     xproto.Window
	dispatch Dispatcher
	logger   *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler on the backend's X11 connection.
func NewHandler(backend platform.Backend, dispatch Dispatcher, logger *slog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.X11() == nil {
		return nil, ErrNoX11
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn := accessor.X11()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})

	return &Handler{
		conn:     conn,
		xu:       conn.XUtil,
		root:     conn.Root,
		dispatch: dispatch,
		logger:   logger,
	}, nil
}

// Bind grabs every non-empty key sequence in bindings. Failed grabs are
// joined into the returned error; the others stay active.
func (h *Handler) Bind(bindings map[config.KeyAction]string) error {
	var errs []error
	for _, action := range sortedActions(bindings) {
		key := bindings[action]
		if err := h.RegisterFunc(key, func() { h.run(action) }); err != nil {
			errs = append(errs, fmt.Errorf("failed to bind %s to %q: %w", action, key, err))
			continue
		}
		h.logger.Info("keybinding registered", "action", action, "key", key)
	}
	return errors.Join(errs...)
}

func (h *Handler) run(action config.KeyAction) {
	active, err := h.conn.ActiveWindow()
	if err != nil || active == 0 {
		h.logger.Debug("keybinding without an active window", "action", action, "error", err)
		return
	}
	if err := h.dispatch.Dispatch(action, window.SurfaceID(active)); err != nil {
		h.logger.Warn("keybinding failed", "action", action, "window", active, "error", err)
	}
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

// Run processes X events until Stop. Key callbacks run on this goroutine.
func (h *Handler) Run() {
	h.conn.EventLoop()
}

// Stop ends Run.
func (h *Handler) Stop() {
	h.conn.Quit()
}

// sortedActions returns the bound actions in a stable order.
func sortedActions(bindings map[config.KeyAction]string) []config.KeyAction {
	actions := make([]config.KeyAction, 0, len(bindings))
	for action, key := range bindings {
		if key != "" {
			actions = append(actions, action)
		}
	}
	slices.Sort(actions)
	return actions
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns every combination of base, including 0.
func ignoreMasks(base []uint16) []uint16 {
	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}
	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	slices.Sort(ignore)
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
