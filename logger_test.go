package forgehook

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "json"})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = NewLogger(LoggingConfig{Level: "warn", Format: "console"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewLoggerUnknownLevel(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "loud", Format: "json"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
