package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, Init(Config{Level: "warn"}))
	assert.False(t, zap.L().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init(Config{Level: "debug", Dev: true}))
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))
}

func TestInit_BadLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}
