// Package scenario drives a shell through a scripted sequence of operations on
// a fake clock. Scenarios are written in YAML or JSONC and are used both by
// `tilewm simulate` and by tests that want to replay a whole session.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

// Op names one scripted operation.
type Op string

const (
	OpAddOutput         Op = "add_output"
	OpRemoveOutput      Op = "remove_output"
	OpResizeOutput      Op = "resize_output"
	OpAddWorkspace      Op = "add_workspace"
	OpActivateWorkspace Op = "activate_workspace"
	OpMoveWorkspace     Op = "move_workspace"
	OpSetTiling         Op = "set_tiling"
	OpOverview          Op = "overview"
	OpPin               Op = "pin"
	OpIssueToken        Op = "issue_token"
	OpMap               Op = "map"
	OpUnmap             Op = "unmap"
	OpMinimize          Op = "minimize"
	OpUnminimize        Op = "unminimize"
	OpFullscreen        Op = "fullscreen"
	OpUnfullscreen      Op = "unfullscreen"
	OpMaximize          Op = "maximize"
	OpUnmaximize        Op = "unmaximize"
	OpToggleFloating    Op = "toggle_floating"
	OpSticky            Op = "sticky"
	OpFocus             Op = "focus"
	OpFrame             Op = "frame"
	OpExpect            Op = "expect"
)

var knownOps = map[Op]bool{
	OpAddOutput: true, OpRemoveOutput: true, OpResizeOutput: true,
	OpAddWorkspace: true, OpActivateWorkspace: true, OpMoveWorkspace: true,
	OpSetTiling: true, OpOverview: true, OpPin: true, OpIssueToken: true,
	OpMap: true, OpUnmap: true, OpMinimize: true, OpUnminimize: true,
	OpFullscreen: true, OpUnfullscreen: true, OpMaximize: true,
	OpUnmaximize: true, OpToggleFloating: true, OpSticky: true,
	OpFocus: true, OpFrame: true, OpExpect: true,
}

// OutputSpec describes an output to plug in.
type OutputSpec struct {
	Name     string       `yaml:"name"`
	EDID     *output.EDID `yaml:"edid"`
	Geometry geom.Rect    `yaml:"geometry"`
	Scale    float64      `yaml:"scale"`
	Disabled bool         `yaml:"disabled"`
}

func (o OutputSpec) build() *output.Output {
	scale := o.Scale
	if scale == 0 {
		scale = 1
	}
	out := output.New(o.Name, o.EDID, o.Geometry, scale)
	if o.Disabled {
		out.SetEnabled(false)
	}
	return out
}

// Expectation is checked against the shell state by an expect step. Unset
// fields are not checked.
type Expectation struct {
	Layer      string      `yaml:"layer"`
	Position   *geom.Point `yaml:"position"`
	Size       *geom.Size  `yaml:"size"`
	Minimized  *bool       `yaml:"minimized"`
	Fullscreen *bool       `yaml:"fullscreen"`
	Maximized  *bool       `yaml:"maximized"`
	// Workspace is the name a previous add_workspace step gave.
	Workspace  string `yaml:"workspace"`
	Workspaces *int   `yaml:"workspaces"`
	Animating  *bool  `yaml:"animating"`
	Elements   *int   `yaml:"elements"`
}

// Step is one scripted operation. After advances the clock before the
// operation runs.
type Step struct {
	After  config.Duration   `yaml:"after"`
	Op     Op                `yaml:"op"`
	Window *shell.WindowSpec `yaml:"window"`
	ID     window.SurfaceID  `yaml:"id"`
	Output string            `yaml:"output"`
	// Name labels the workspace created by add_workspace, or refers to one
	// in later steps. Empty refers to the active workspace of Output.
	Name     string       `yaml:"name"`
	Add      *OutputSpec  `yaml:"add"`
	Geometry *geom.Rect   `yaml:"geometry"`
	Scale    float64      `yaml:"scale"`
	Enable   *bool        `yaml:"enable"`
	Expect   *Expectation `yaml:"expect"`
	Comment  string       `yaml:"comment"`
}

func (s Step) enabled() bool { return s.Enable == nil || *s.Enable }

// Scenario is a parsed script.
type Scenario struct {
	Name    string       `yaml:"name"`
	Outputs []OutputSpec `yaml:"outputs"`
	Steps   []Step       `yaml:"steps"`
}

// Validate reports structural problems without running anything.
func (sc *Scenario) Validate() error {
	var errs []error
	names := map[string]bool{}
	for i, o := range sc.Outputs {
		if o.Name == "" {
			errs = append(errs, fmt.Errorf("outputs[%d]: name is required", i))
		}
		if names[o.Name] {
			errs = append(errs, fmt.Errorf("outputs[%d]: duplicate output %q", i, o.Name))
		}
		names[o.Name] = true
		if o.Geometry.Width <= 0 || o.Geometry.Height <= 0 {
			errs = append(errs, fmt.Errorf("outputs[%d]: geometry must have a positive size", i))
		}
	}
	for i, st := range sc.Steps {
		if !knownOps[st.Op] {
			errs = append(errs, fmt.Errorf("steps[%d]: unknown op %q", i, st.Op))
			continue
		}
		if st.After < 0 {
			errs = append(errs, fmt.Errorf("steps[%d]: after must not be negative", i))
		}
		switch st.Op {
		case OpMap:
			if st.Window == nil {
				errs = append(errs, fmt.Errorf("steps[%d]: map requires window", i))
			}
		case OpAddOutput:
			if st.Add == nil || st.Add.Name == "" {
				errs = append(errs, fmt.Errorf("steps[%d]: add_output requires add.name", i))
			}
		case OpResizeOutput:
			if st.Geometry == nil {
				errs = append(errs, fmt.Errorf("steps[%d]: resize_output requires geometry", i))
			}
		case OpExpect:
			if st.Expect == nil {
				errs = append(errs, fmt.Errorf("steps[%d]: expect requires expect", i))
			}
		}
	}
	return errors.Join(errs...)
}

// Parse decodes a scenario. JSONC input is detected by its leading brace and
// converted to plain JSON, which the YAML decoder reads as well.
func Parse(data []byte) (*Scenario, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("{")) || bytes.HasPrefix(trimmed, []byte("//")) || bytes.HasPrefix(trimmed, []byte("/*")) {
		data = jsonc.ToJSON(data)
	}
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}
