package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelWarn, Output: &buf})

	l.Debug("should not appear")
	l.Info("also should not appear")
	assert.Empty(t, buf.String())

	l.Warn("heads up", "key", "value")
	assert.Contains(t, buf.String(), "[WARN] heads up key=value")
}

func TestLoggerDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	SetDefault(New(&Config{Level: LevelDebug, Output: &buf}))
	Info("hello", "n", 1)

	assert.True(t, strings.Contains(buf.String(), "hello n=1"))
}
