package runtests

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultProjectFile is loaded automatically when present in the working
// directory.
const DefaultProjectFile = "runtests.yaml"

// ProjectFile carries per-repository overrides for settings that rarely
// change between invocations: the runner binary name, the compose descriptor
// locations and the upload failure policy. CLI flags win over file values.
type ProjectFile struct {
	Runner         string `yaml:"runner"`
	ArtifactSuffix string `yaml:"artifact_suffix"`
	Compose        struct {
		Descriptor   string `yaml:"descriptor"`
		CIDescriptor string `yaml:"ci_descriptor"`
		Service      string `yaml:"service"`
		ResultsDir   string `yaml:"results_dir"`
	} `yaml:"compose"`
	Upload struct {
		FailurePolicy string `yaml:"failure_policy"`
	} `yaml:"upload"`
}

// loadProjectFile reads the project file at path. When path is empty the
// default file is tried and its absence is not an error; an explicitly
// given path must exist.
func loadProjectFile(path string) (*ProjectFile, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultProjectFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &ProjectFile{}, nil
		}
		return nil, fmt.Errorf("failed to read project file %s: %w", path, err)
	}

	var pf ProjectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}
	return &pf, nil
}
