// Package env provides a scoped environment-variable override with
// guaranteed restoration. The process environment is the only state shared
// between test phases, so restoration on every exit path is load-bearing:
// without it an integration-phase override would leak into later phases or
// into the caller's shell.
package env

import (
	"fmt"
	"os"
)

// savedVar records the state of a single variable before an override.
type savedVar struct {
	key     string
	value   string
	present bool
}

// Snapshot holds the prior state of a set of environment variables.
type Snapshot struct {
	vars []savedVar
}

// Capture records the current value (or absence) of each key.
func Capture(keys ...string) *Snapshot {
	s := &Snapshot{vars: make([]savedVar, 0, len(keys))}
	for _, k := range keys {
		v, ok := os.LookupEnv(k)
		s.vars = append(s.vars, savedVar{key: k, value: v, present: ok})
	}
	return s
}

// Restore puts every captured variable back to its prior state: variables
// that were absent are unset, all others are reset to their captured value.
func (s *Snapshot) Restore() error {
	var firstErr error
	for _, v := range s.vars {
		var err error
		if v.present {
			err = os.Setenv(v.key, v.value)
		} else {
			err = os.Unsetenv(v.key)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to restore %s: %w", v.key, err)
		}
	}
	return firstErr
}

// WithScopedEnv sets each override for the duration of body and restores the
// prior environment afterwards. Restoration happens on every exit path,
// including a panic inside body. The error returned by body is passed
// through unchanged.
func WithScopedEnv(overrides map[string]string, body func() error) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	snapshot := Capture(keys...)
	defer func() {
		_ = snapshot.Restore()
	}()

	for k, v := range overrides {
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return body()
}
