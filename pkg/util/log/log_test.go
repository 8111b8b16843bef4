package log

import (
	"bytes"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerFiltersLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := NewLogger(&buf, "logfmt", lvl)

	level.Info(logger).Log("msg", "hidden")
	level.Warn(logger).Log("msg", "shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "msg=shown")
	require.Contains(t, buf.String(), "level=warn")
}

func TestNewLoggerJSON(t *testing.T) {
	lvl, err := ParseLevel("info")
	require.NoError(t, err)

	var buf bytes.Buffer
	level.Info(NewLogger(&buf, "json", lvl)).Log("msg", "hello")
	require.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestParseLevelInvalid(t *testing.T) {
	_, err := ParseLevel("loud")
	require.Error(t, err)
}
