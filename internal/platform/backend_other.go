//go:build !linux

package platform

import "errors"

// NewX11BackendFromDisplay is only available on Linux.
func NewX11BackendFromDisplay(string) (Backend, error) {
	return nil, errors.New("x11 backend is only supported on linux")
}
