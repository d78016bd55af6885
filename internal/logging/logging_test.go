package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		level   string
		verbose bool
		want    zapcore.Level
	}{
		{level: "info", want: zapcore.InfoLevel},
		{level: "warn", want: zapcore.WarnLevel},
		{level: "error", verbose: true, want: zapcore.DebugLevel},
	} {
		logger, err := New(tc.level, tc.verbose)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tc.want), "level %s", tc.want)
		assert.False(t, logger.Core().Enabled(tc.want-1), "level %s", tc.want-1)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
}
