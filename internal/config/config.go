package config

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LayoutMode defines how tiled windows are arranged.
type LayoutMode string

const (
	LayoutModeAuto        LayoutMode = "auto"         // Dynamic grid based on count.
	LayoutModeFixed       LayoutMode = "fixed"        // Specific rows × cols.
	LayoutModeVertical    LayoutMode = "vertical"     // Single column stack.
	LayoutModeHorizontal  LayoutMode = "horizontal"   // Single row side-by-side.
	LayoutModeMasterStack LayoutMode = "master-stack" // Master pane left, stack grid right.
)

// RegionType defines tile region presets.
type RegionType string

const (
	RegionFull       RegionType = "full"
	RegionLeftHalf   RegionType = "left-half"
	RegionRightHalf  RegionType = "right-half"
	RegionTopHalf    RegionType = "top-half"
	RegionBottomHalf RegionType = "bottom-half"
	RegionCustom     RegionType = "custom"
)

// TileRegion defines the part of the output the tiling layer may use.
type TileRegion struct {
	Type          RegionType `yaml:"type"`
	XPercent      int        `yaml:"x_percent,omitempty"`      // 0-100
	YPercent      int        `yaml:"y_percent,omitempty"`      // 0-100
	WidthPercent  int        `yaml:"width_percent,omitempty"`  // 0-100
	HeightPercent int        `yaml:"height_percent,omitempty"` // 0-100
}

// FixedGrid defines specific grid dimensions.
type FixedGrid struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// MasterStack defines the master-stack layout parameters.
type MasterStack struct {
	MasterWidthPercent int `yaml:"master_width_percent"` // Width of master pane as percentage (10-90)
	MaxStackRows       int `yaml:"max_stack_rows"`       // Maximum rows in the stack grid (>= 1)
	MaxStackCols       int `yaml:"max_stack_cols"`       // Maximum columns in the stack grid (>= 1)
}

// Layout defines a tiling configuration.
type Layout struct {
	Mode            LayoutMode  `yaml:"mode"`
	TileRegion      TileRegion  `yaml:"tile_region"`
	FixedGrid       FixedGrid   `yaml:"fixed_grid,omitempty"`
	MasterStack     MasterStack `yaml:"master_stack,omitempty"`
	MaxWindowWidth  int         `yaml:"max_window_width,omitempty"`  // 0 = unlimited
	MaxWindowHeight int         `yaml:"max_window_height,omitempty"` // 0 = unlimited
	FlexibleLastRow bool        `yaml:"flexible_last_row,omitempty"` // Last row windows expand to fill width (auto mode only)
}

// FloatingConfig controls placement of windows that arrive without a position.
type FloatingConfig struct {
	DefaultWidth  int `yaml:"default_width"`
	DefaultHeight int `yaml:"default_height"`
	CascadeStep   int `yaml:"cascade_step"`
	// AppIDs always map into the floating layer. Matching ignores case.
	AppIDs []string `yaml:"app_ids,omitempty"`
}

// BackdropConfig is the quad drawn behind windows in overview mode.
type BackdropConfig struct {
	Color [3]float32 `yaml:"color"`
}

// BlurConfig selects how partially blurred surfaces are composed.
type BlurConfig struct {
	// PartialRegion is "ignore" (no blur) or "whole" (blur the whole surface).
	PartialRegion string `yaml:"partial_region"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

const (
	DefaultOutputHistoryLimit = 8
	DefaultActivationTokenTTL = 10 * time.Second
	DefaultFrameInterval      = 16 * time.Millisecond
)

// Config is the effective configuration.
type Config struct {
	TilingEnabled      bool              `yaml:"tiling_enabled"`
	GapSize            int               `yaml:"gap_size"`
	DefaultLayout      string            `yaml:"default_layout"`
	Layouts            map[string]Layout `yaml:"layouts"`
	Floating           FloatingConfig    `yaml:"floating"`
	OutputHistoryLimit int               `yaml:"output_history_limit"`
	ActivationTokenTTL Duration          `yaml:"activation_token_ttl"`
	Backdrop           BackdropConfig    `yaml:"backdrop"`
	Blur               BlurConfig        `yaml:"blur"`
	LogLevel           string            `yaml:"log_level"`
	FrameInterval      Duration          `yaml:"frame_interval"`
	// Keybindings maps an action to an X11 key sequence such as "Mod4-f".
	// Only the X11 backend grabs keys.
	Keybindings map[KeyAction]string `yaml:"keybindings"`
}

// KeyAction is something a keybinding can trigger on the active window.
type KeyAction string

const (
	KeyFullscreen     KeyAction = "fullscreen"
	KeyMaximize       KeyAction = "maximize"
	KeyMinimize       KeyAction = "minimize"
	KeyToggleFloating KeyAction = "toggle_floating"
	KeyToggleTiling   KeyAction = "toggle_tiling"
)

// KeyActions lists every bindable action.
var KeyActions = []KeyAction{KeyFullscreen, KeyMaximize, KeyMinimize, KeyToggleFloating, KeyToggleTiling}

// ValidationError points at the config key that failed validation.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		TilingEnabled: true,
		GapSize:       8,
		DefaultLayout: DefaultBuiltinLayout,
		Layouts:       BuiltinLayouts(),
		Floating: FloatingConfig{
			DefaultWidth:  800,
			DefaultHeight: 600,
			CascadeStep:   32,
		},
		OutputHistoryLimit: DefaultOutputHistoryLimit,
		ActivationTokenTTL: Duration(DefaultActivationTokenTTL),
		Backdrop:           BackdropConfig{Color: [3]float32{0, 0, 0}},
		Blur:               BlurConfig{PartialRegion: "ignore"},
		LogLevel:           "info",
		FrameInterval:      Duration(DefaultFrameInterval),
		Keybindings: map[KeyAction]string{
			KeyFullscreen:     "Mod4-f",
			KeyMaximize:       "Mod4-Up",
			KeyMinimize:       "Mod4-Down",
			KeyToggleFloating: "Mod4-space",
			KeyToggleTiling:   "Mod4-t",
		},
	}
}

// GetLayout returns a layout by name.
func (c *Config) GetLayout(name string) (*Layout, error) {
	layout, ok := c.Layouts[name]
	if !ok {
		return nil, fmt.Errorf("layout %q not found", name)
	}
	return &layout, nil
}

// GetDefaultLayout returns the layout new workspaces tile with.
func (c *Config) GetDefaultLayout() (*Layout, error) {
	return c.GetLayout(c.DefaultLayout)
}

// LayoutNames returns the configured layout names, sorted.
func (c *Config) LayoutNames() []string {
	names := make([]string, 0, len(c.Layouts))
	for name := range c.Layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the config to the default location.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.GapSize < 0 {
		return &ValidationError{Path: "gap_size", Err: fmt.Errorf("gap_size must be >= 0")}
	}
	if len(c.Layouts) == 0 {
		return &ValidationError{Path: "layouts", Err: fmt.Errorf("layouts must not be empty")}
	}
	if c.DefaultLayout == "" {
		return &ValidationError{Path: "default_layout", Err: fmt.Errorf("default_layout is required")}
	}
	if _, ok := c.Layouts[c.DefaultLayout]; !ok {
		return &ValidationError{Path: "default_layout", Err: fmt.Errorf("default_layout %q not found in layouts", c.DefaultLayout)}
	}
	for _, name := range c.LayoutNames() {
		layout := c.Layouts[name]
		if err := validateLayout(&layout); err != nil {
			return &ValidationError{Path: "layouts." + name, Err: err}
		}
	}
	if c.Floating.DefaultWidth <= 0 || c.Floating.DefaultHeight <= 0 {
		return &ValidationError{Path: "floating", Err: fmt.Errorf("default_width and default_height must be > 0")}
	}
	if c.Floating.CascadeStep < 0 {
		return &ValidationError{Path: "floating.cascade_step", Err: fmt.Errorf("cascade_step must be >= 0")}
	}
	for i, id := range c.Floating.AppIDs {
		if strings.TrimSpace(id) == "" {
			return &ValidationError{Path: fmt.Sprintf("floating.app_ids[%d]", i), Err: fmt.Errorf("app id must not be empty")}
		}
	}
	if c.OutputHistoryLimit < 0 || c.OutputHistoryLimit == 1 {
		return &ValidationError{Path: "output_history_limit", Err: fmt.Errorf("output_history_limit must be 0 (unbounded) or >= 2")}
	}
	if c.ActivationTokenTTL < 0 {
		return &ValidationError{Path: "activation_token_ttl", Err: fmt.Errorf("activation_token_ttl must be >= 0")}
	}
	for _, v := range c.Backdrop.Color {
		if v < 0 || v > 1 {
			return &ValidationError{Path: "backdrop.color", Err: fmt.Errorf("color components must be between 0 and 1")}
		}
	}
	switch c.Blur.PartialRegion {
	case "ignore", "whole":
	default:
		return &ValidationError{Path: "blur.partial_region", Err: fmt.Errorf("partial_region must be one of: ignore, whole")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.FrameInterval <= 0 {
		return &ValidationError{Path: "frame_interval", Err: fmt.Errorf("frame_interval must be > 0")}
	}
	seen := map[string]KeyAction{}
	for _, action := range slices.Sorted(maps.Keys(c.Keybindings)) {
		key := c.Keybindings[action]
		path := "keybindings." + string(action)
		if !slices.Contains(KeyActions, action) {
			return &ValidationError{Path: path, Err: fmt.Errorf("unknown action %q", action)}
		}
		if key == "" {
			continue
		}
		if other, ok := seen[key]; ok {
			return &ValidationError{Path: path, Err: fmt.Errorf("key %q is already bound to %s", key, other)}
		}
		seen[key] = action
	}
	return nil
}

func validateLayout(layout *Layout) error {
	switch layout.Mode {
	case LayoutModeAuto, LayoutModeFixed, LayoutModeVertical, LayoutModeHorizontal, LayoutModeMasterStack:
	default:
		return fmt.Errorf("invalid mode %q", layout.Mode)
	}

	if layout.Mode == LayoutModeFixed {
		if layout.FixedGrid.Rows <= 0 || layout.FixedGrid.Cols <= 0 {
			return fmt.Errorf("fixed mode requires rows and cols to be positive")
		}
	}

	if layout.Mode == LayoutModeMasterStack {
		if layout.MasterStack.MasterWidthPercent < 10 || layout.MasterStack.MasterWidthPercent > 90 {
			return fmt.Errorf("master_stack.master_width_percent must be between 10 and 90")
		}
		if layout.MasterStack.MaxStackRows < 1 {
			return fmt.Errorf("master_stack.max_stack_rows must be >= 1")
		}
		if layout.MasterStack.MaxStackCols < 1 {
			return fmt.Errorf("master_stack.max_stack_cols must be >= 1")
		}
	}

	if layout.MaxWindowWidth < 0 || layout.MaxWindowHeight < 0 {
		return fmt.Errorf("max_window_width/height must be >= 0")
	}

	switch layout.TileRegion.Type {
	case RegionFull, RegionLeftHalf, RegionRightHalf, RegionTopHalf, RegionBottomHalf:
		// ok
	case RegionCustom:
		if layout.TileRegion.XPercent < 0 || layout.TileRegion.XPercent > 100 {
			return fmt.Errorf("x_percent must be between 0 and 100")
		}
		if layout.TileRegion.YPercent < 0 || layout.TileRegion.YPercent > 100 {
			return fmt.Errorf("y_percent must be between 0 and 100")
		}
		if layout.TileRegion.WidthPercent <= 0 || layout.TileRegion.WidthPercent > 100 {
			return fmt.Errorf("width_percent must be between 1 and 100")
		}
		if layout.TileRegion.HeightPercent <= 0 || layout.TileRegion.HeightPercent > 100 {
			return fmt.Errorf("height_percent must be between 1 and 100")
		}
		if layout.TileRegion.XPercent+layout.TileRegion.WidthPercent > 100 {
			return fmt.Errorf("x_percent + width_percent must be <= 100")
		}
		if layout.TileRegion.YPercent+layout.TileRegion.HeightPercent > 100 {
			return fmt.Errorf("y_percent + height_percent must be <= 100")
		}
	default:
		return fmt.Errorf("invalid region type %q", layout.TileRegion.Type)
	}

	return nil
}
