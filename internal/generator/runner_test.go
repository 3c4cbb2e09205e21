package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandRunnerDefaults(t *testing.T) {
	r := NewCommandRunner("", 0)
	assert.Equal(t, DefaultCommand, r.Command)
	assert.Equal(t, DefaultTimeout, r.Timeout)

	r = NewCommandRunner("plantuml", time.Minute)
	assert.Equal(t, "plantuml", r.Command)
	assert.Equal(t, time.Minute, r.Timeout)
}

func TestGenerateCapturesOutput(t *testing.T) {
	// echo prints its arguments, standing in for a generator that writes
	// progress to stdout.
	r := NewCommandRunner("echo", time.Minute)
	out, err := r.Generate(t.Context(), t.TempDir(), "mymodule", "mymodule", "png")
	require.NoError(t, err)
	assert.Contains(t, string(out), "mymodule")
	assert.Contains(t, string(out), "png")
}

func TestGenerateFailureReturnsRunError(t *testing.T) {
	r := NewCommandRunner("false", time.Minute)
	_, err := r.Generate(t.Context(), t.TempDir(), "mymodule", "mymodule", "png")
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "false", runErr.Cmd)
}

func TestGenerateMissingCommand(t *testing.T) {
	r := NewCommandRunner("umlgen-test-no-such-command", time.Minute)
	_, err := r.Generate(t.Context(), t.TempDir(), "mymodule", "mymodule", "png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in PATH")
}

func TestRunErrorMessageIncludesOutput(t *testing.T) {
	err := &RunError{Cmd: "pyreverse", Output: []byte("parse error\n"), Err: assert.AnError}
	assert.Contains(t, err.Error(), "pyreverse failed")
	assert.Contains(t, err.Error(), "parse error")
	assert.ErrorIs(t, err, assert.AnError)
}
