package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelsFilterOutput(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelInfo)

	Debug("hidden", "a", 1)
	Info("shown", "b", 2)
	Error("failed", errors.New("boom"), "c", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=INFO msg=shown b=2")
	assert.Contains(t, out, "level=ERROR msg=failed err=boom c=3")
}

func TestDebugEnabled(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelDebug)

	Debug("visible", "k", "v", "dangling")

	out := buf.String()
	assert.Contains(t, out, "msg=visible k=v")
	assert.NotContains(t, out, "dangling")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{" error ", LevelError},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}
