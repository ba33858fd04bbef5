package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Output: &buf})

	logger.Info().Msg("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), `"level":"info"`)
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{" Error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.level))
		})
	}
}

func TestNew_SetsGlobalLevel(t *testing.T) {
	New(Config{Level: "error", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())

	New(Config{Level: "debug", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestNew_ErrorLevelFiltersLower(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "error", Output: &buf})

	logger.Info().Msg("should not appear")
	assert.NotContains(t, buf.String(), "should not appear")

	logger.Error().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Str("key", "value").Msg("pretty message")

	output := buf.String()
	require.NotEmpty(t, output)
	assert.Contains(t, output, "pretty message")
	// Console writer does not emit raw JSON
	assert.NotContains(t, output, `"message"`)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(Config{Level: "info", Output: &buf}), "optimizer")

	logger.Info().Msg("tagged")

	assert.Contains(t, buf.String(), `"component":"optimizer"`)
}
