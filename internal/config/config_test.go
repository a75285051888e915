package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_ValidAndHasBuiltinLayouts(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if _, ok := cfg.Layouts[DefaultBuiltinLayout]; !ok {
		t.Fatalf("expected builtin %q to exist in layouts", DefaultBuiltinLayout)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" || res.Config.GapSize != 8 {
		t.Fatalf("expected defaults, got file=%q gap=%d", res.File, res.Config.GapSize)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(writeConfig(t, "# empty\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.DefaultLayout != DefaultBuiltinLayout {
		t.Fatalf("expected default_layout %q, got %q", DefaultBuiltinLayout, res.Config.DefaultLayout)
	}
}

func TestLoadFromPath_OverridesAndDurations(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"tiling_enabled: false",
		"gap_size: 4",
		"activation_token_ttl: 30s",
		"frame_interval: 8ms",
		"floating:",
		"  cascade_step: 16",
		"blur:",
		"  partial_region: whole",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.TilingEnabled || cfg.GapSize != 4 {
		t.Fatalf("unexpected tiling/gap: %v %d", cfg.TilingEnabled, cfg.GapSize)
	}
	if cfg.ActivationTokenTTL.Std() != 30*time.Second || cfg.FrameInterval.Std() != 8*time.Millisecond {
		t.Fatalf("durations: %v %v", cfg.ActivationTokenTTL, cfg.FrameInterval)
	}
	if cfg.Floating.CascadeStep != 16 || cfg.Floating.DefaultWidth != 800 {
		t.Fatalf("floating section should merge over defaults: %+v", cfg.Floating)
	}
	if cfg.Blur.PartialRegion != "whole" {
		t.Fatalf("blur = %q", cfg.Blur.PartialRegion)
	}
}

func TestLoadFromPath_CustomLayoutKeepsBuiltins(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"default_layout: wide",
		"layouts:",
		"  wide:",
		"    mode: master-stack",
		"    tile_region:",
		"      type: full",
		"    master_stack:",
		"      master_width_percent: 60",
		"      max_stack_rows: 4",
		"      max_stack_cols: 1",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	layout, err := res.Config.GetDefaultLayout()
	if err != nil {
		t.Fatalf("GetDefaultLayout: %v", err)
	}
	if layout.MasterStack.MasterWidthPercent != 60 {
		t.Fatalf("layout = %+v", layout)
	}
	if _, ok := res.Config.Layouts["grid"]; !ok {
		t.Fatalf("builtin layouts should survive a custom layouts section")
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	if _, err := LoadFromPath(writeConfig(t, "hotkey: Mod4-t\n")); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestLoadFromPath_ValidationErrorCarriesSource(t *testing.T) {
	path := writeConfig(t, "gap_size: 2\nlog_level: loud\n")
	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "log_level" || verr.Source.Line != 2 {
		t.Fatalf("unexpected error context: path=%q source=%+v", verr.Path, verr.Source)
	}
	if !strings.Contains(err.Error(), path+":2:") {
		t.Fatalf("error should mention file and line, got %q", err.Error())
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := map[string]func(c *Config){
		"gap_size":             func(c *Config) { c.GapSize = -1 },
		"default_layout":       func(c *Config) { c.DefaultLayout = "missing" },
		"output_history_limit": func(c *Config) { c.OutputHistoryLimit = 1 },
		"backdrop.color":       func(c *Config) { c.Backdrop.Color[1] = 2 },
		"blur.partial_region":  func(c *Config) { c.Blur.PartialRegion = "mask" },
		"frame_interval":       func(c *Config) { c.FrameInterval = 0 },
		"floating.app_ids[1]":  func(c *Config) { c.Floating.AppIDs = []string{"mpv", " "} },
		"keybindings.teleport": func(c *Config) { c.Keybindings["teleport"] = "Mod4-x" },
		"keybindings.maximize": func(c *Config) { c.Keybindings[KeyMaximize] = "Mod4-f" },
		"layouts.grid": func(c *Config) {
			l := c.Layouts["grid"]
			l.Mode = "spiral"
			c.Layouts["grid"] = l
		},
	}
	for path, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		err := cfg.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Path != path {
			t.Fatalf("%s: expected validation error on that path, got %v", path, err)
		}
	}
}

func TestLoadFromPath_KeybindingsMergeOverDefaults(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"keybindings:",
		"  fullscreen: Mod4-Return",
		"  minimize: \"\"",
		"floating:",
		"  app_ids: [mpv, Pavucontrol]",
	}, "\n")+"\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	kb := res.Config.Keybindings
	if kb[KeyFullscreen] != "Mod4-Return" {
		t.Errorf("fullscreen = %q", kb[KeyFullscreen])
	}
	if kb[KeyMinimize] != "" {
		t.Errorf("minimize should be unbound, got %q", kb[KeyMinimize])
	}
	if kb[KeyToggleTiling] != "Mod4-t" {
		t.Errorf("toggle_tiling default lost, got %q", kb[KeyToggleTiling])
	}
	if len(res.Config.Floating.AppIDs) != 2 {
		t.Errorf("app_ids = %v", res.Config.Floating.AppIDs)
	}
}

func TestLoadFromPath_SequenceErrorsPointAtElement(t *testing.T) {
	path := writeConfig(t, "floating:\n  app_ids:\n    - mpv\n    - \"\"\n")
	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "floating.app_ids[1]" || verr.Source.Line != 4 {
		t.Fatalf("unexpected error context: path=%q source=%+v", verr.Path, verr.Source)
	}
}

func TestDefaultConfigPath_PrefersXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	got, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath: %v", err)
	}
	if want := filepath.Join(dir, "tilewm", "config.yaml"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "relative")
	got, err = DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath: %v", err)
	}
	if filepath.Base(filepath.Dir(filepath.Dir(got))) != ".config" {
		t.Fatalf("relative XDG_CONFIG_HOME should be ignored, got %q", got)
	}
}
