// Package runtimepath resolves where the daemon keeps its socket (per
// session) and its pinned workspaces (across reboots).
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvSocket overrides the IPC socket location.
const EnvSocket = "TILEWM_SOCKET"

const (
	socketName = "tilewm.sock"
	pinnedName = "pinned.cbor"
)

// Dir returns the per-user runtime directory, in order of preference:
// $XDG_RUNTIME_DIR, /run/user/<uid>, or a private directory under /tmp that
// is created on demand.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}

	uid := os.Getuid()
	if dir := fmt.Sprintf("/run/user/%d", uid); isDir(dir) {
		return dir, nil
	}

	dir := fmt.Sprintf("/tmp/tilewm-runtime-%d", uid)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return dir, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Path joins name onto the runtime directory.
func Path(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	if p := os.Getenv(EnvSocket); p != "" {
		return p, nil
	}
	return Path(socketName)
}

// StateDir is $XDG_STATE_HOME/tilewm, or ~/.local/state/tilewm. It is
// created on demand.
func StateDir() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if !filepath.IsAbs(base) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(base, "tilewm")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create state dir: %w", err)
	}
	return dir, nil
}

// PinnedPath returns where the daemon keeps pinned workspace records.
func PinnedPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, pinnedName), nil
}
