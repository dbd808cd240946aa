package compose

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDescriptor launches the integration stack for local runs.
	DefaultDescriptor = "docker-compose.yml"
	// DefaultCIDescriptor is the CI-specific stack definition.
	DefaultCIDescriptor = "ci/docker-compose.yml"
)

// ErrDescriptorNotFound is returned when the selected descriptor does not
// exist on disk. Fatal to the integration phase only.
var ErrDescriptorNotFound = errors.New("compose descriptor not found")

// ResolveDescriptor selects the CI descriptor when running under CI and the
// local one otherwise, and resolves it to an absolute path.
func ResolveDescriptor(onCI bool, local, ciPath string) (string, error) {
	if local == "" {
		local = DefaultDescriptor
	}
	if ciPath == "" {
		ciPath = DefaultCIDescriptor
	}

	path := local
	if onCI {
		path = ciPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve descriptor path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: %s", ErrDescriptorNotFound, abs)
	}
	return abs, nil
}
