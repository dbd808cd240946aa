package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	runtests "github.com/devinfra/run-tests"
	"github.com/devinfra/run-tests/exitcodes"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "runtime error",
			err:  runtests.NewRuntimeError(errors.New("bad configuration")),
			want: exitcodes.RuntimeErr,
		},
		{
			name: "wrapped runtime error",
			err:  wrap(runtests.NewRuntimeError(errors.New("bad configuration"))),
			want: exitcodes.RuntimeErr,
		},
		{
			name: "test failure",
			err:  runtests.NewTestFailureError("Unit: fail"),
			want: exitcodes.TestFailure,
		},
		{
			name: "unclassified error",
			err:  errors.New("something else"),
			want: exitcodes.TestFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeForError(tt.err))
		})
	}
}

func wrap(err error) error {
	return errors.Join(errors.New("wrapped"), err)
}
