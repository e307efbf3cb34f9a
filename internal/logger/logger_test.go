package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := New("warn", format)
		require.NoError(t, err, format)
		assert.False(t, log.Core().Enabled(zapcore.InfoLevel), format)
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel), format)
	}
}

func TestNew_DebugEnablesEverything(t *testing.T) {
	log, err := New("DEBUG", "json")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose", "json")
	assert.Error(t, err)
}
