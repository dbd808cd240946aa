package runner

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultArtifactSuffix is the naming convention for unit-test assemblies.
const DefaultArtifactSuffix = ".Tests.dll"

// Artifact is a unit-test assembly found under the test root. Artifacts are
// recomputed on every run and never cached.
type Artifact struct {
	Path string
}

// DiscoverArtifacts walks root for files matching suffix whose path contains
// a path segment equal to configuration (case-sensitive, whole segment —
// "Debug" does not match "DebugOpt"). The result is fully materialized in
// traversal order; callers must not rely on ordering. An empty result is a
// valid "no tests found" outcome, as is a missing root.
func DiscoverArtifacts(root, configuration, suffix string) ([]Artifact, error) {
	if suffix == "" {
		suffix = DefaultArtifactSuffix
	}

	var artifacts []Artifact
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		if !hasPathSegment(path, configuration) {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, Artifact{Path: abs})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return artifacts, nil
}

// hasPathSegment reports whether any directory segment of path equals
// segment exactly.
func hasPathSegment(path, segment string) bool {
	dir := filepath.Dir(path)
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == segment {
			return true
		}
	}
	return false
}
