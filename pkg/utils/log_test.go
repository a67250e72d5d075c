package utils

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitLoggingWith_UnsupportedValues(t *testing.T) {
	// Restore whatever default logger the test binary started with.
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	raisedLevels := GetMetricValue("log", "unsupported_log_level")
	initLoggingWith(HandlerTypeJSON, "verbose")
	assert.Equal(t, raisedLevels+1, GetMetricValue("log", "unsupported_log_level"),
		"An unknown level must raise an invariant and fall back")

	raisedHandlers := GetMetricValue("log", "unsupported_handler_type")
	initLoggingWith("xml", LogLevelInfo)
	assert.Equal(t, raisedHandlers+1, GetMetricValue("log", "unsupported_handler_type"),
		"An unknown handler type must raise an invariant and fall back")
}
