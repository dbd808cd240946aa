package proc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesStdoutAndExitZero(t *testing.T) {
	r := NewRunner()

	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "printf hello"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello", res.Stdout)
}

func TestRun_NonZeroExitIsDataNotError(t *testing.T) {
	r := NewRunner()

	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo oops >&2; exit 3"},
	})
	require.NoError(t, err, "a non-zero exit status must not surface as a Go error")
	assert.False(t, res.Success())
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stderr, "oops")
}

func TestRun_MissingBinaryIsError(t *testing.T) {
	r := NewRunner()

	_, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)
}

func TestRun_EmptyCommandName(t *testing.T) {
	r := NewRunner()

	_, err := r.Run(context.Background(), Command{})
	assert.Error(t, err)
}

func TestLookPath(t *testing.T) {
	r := NewRunner()

	path, ok := r.LookPath("sh")
	require.True(t, ok)
	assert.NotEmpty(t, path)

	_, ok = r.LookPath("definitely-not-a-real-binary-xyz")
	assert.False(t, ok)
}
