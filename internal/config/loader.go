package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Source is where a config key was set. A zero Line means the value came
// from the defaults.
type Source struct {
	File   string
	Line   int
	Column int
}

// LoadResult is a loaded config plus where each key came from.
type LoadResult struct {
	Config *Config
	// Sources is keyed by validation path, e.g. "floating.app_ids[2]".
	Sources map[string]Source
	// File is empty when no config file existed.
	File string
}

// DefaultConfigPath is $XDG_CONFIG_HOME/tilewm/config.yaml, falling back
// to ~/.config.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); filepath.IsAbs(dir) {
		return filepath.Join(dir, "tilewm", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tilewm", "config.yaml"), nil
}

// Load reads the config at DefaultConfigPath.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	res, err := LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadFromPath decodes path over DefaultConfig and validates the result.
// A missing file is not an error.
func LoadFromPath(path string) (*LoadResult, error) {
	res := &LoadResult{Config: DefaultConfig(), Sources: map[string]Source{}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return res, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	res.File = path

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if len(doc.Content) > 0 {
		walkSources(doc.Content[0], path, "", res.Sources)
	}

	// Map keys decode into the existing maps, so user layouts and
	// keybindings land on top of the builtins.
	if err := decodeStrictYAML(data, res.Config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := res.Config.Validate(); err != nil {
		return nil, withSource(err, res.Sources)
	}
	return res, nil
}

// decodeStrictYAML decodes data into out, rejecting unknown keys.
func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// walkSources records the position of every value below node, keyed the
// way Validate names paths.
func walkSources(node *yaml.Node, file, path string, out map[string]Source) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			child := key.Value
			if path != "" {
				child = path + "." + key.Value
			}
			out[child] = Source{File: file, Line: val.Line, Column: val.Column}
			walkSources(val, file, child, out)
		}
	case yaml.SequenceNode:
		for i, val := range node.Content {
			child := path + "[" + strconv.Itoa(i) + "]"
			out[child] = Source{File: file, Line: val.Line, Column: val.Column}
			walkSources(val, file, child, out)
		}
	}
}

func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}
