package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpool/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
	}
	for _, tt := range tests {
		level, err := parseLogLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, level, tt.input)
	}

	_, err := parseLogLevel("loud")
	assert.Error(t, err)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestTestLoggerCapturesMessages(t *testing.T) {
	log := NewTestLogger()

	log.Info("pool ready")
	log.WarnWithFields("token request failed", map[string]interface{}{
		"client": "abcd1234",
	})

	msgs := log.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "INFO", msgs[0].Level)
	assert.Equal(t, "pool ready", msgs[0].Message)
	assert.Equal(t, "abcd1234", msgs[1].Fields["client"])

	assert.True(t, log.HasMessage("token request"))
	assert.False(t, log.HasMessage("never logged"))

	warns := log.MessagesByLevel("WARN")
	require.Len(t, warns, 1)

	log.Clear()
	assert.Empty(t, log.Messages())
}

func TestTestLoggerChildFieldsReachParent(t *testing.T) {
	log := NewTestLogger()

	child := log.WithField("client", "abcd1234").WithError(assert.AnError)
	child.Error("request failed")

	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "abcd1234", msgs[0].Fields["client"])
	assert.Equal(t, assert.AnError.Error(), msgs[0].Fields["error"])
}
