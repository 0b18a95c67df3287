package logger

import (
	"path/filepath"
	"testing"

	"skillforge_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFor(&config.Config{Server: config.ServerConfig{Mode: "debug"}}))
	assert.Equal(t, zapcore.InfoLevel, levelFor(&config.Config{Server: config.ServerConfig{Mode: "release"}}))
	assert.Equal(t, zapcore.WarnLevel, levelFor(&config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		Log:    config.LogConfig{Level: "warn"},
	}))
	assert.Equal(t, zapcore.InfoLevel, levelFor(&config.Config{Log: config.LogConfig{Level: "loud"}}))
}

func TestInitLoggerReplacesNop(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	InitLogger(&config.Config{Log: config.LogConfig{File: filepath.Join(t.TempDir(), "app.log")}})
	assert.True(t, Log.Core().Enabled(zapcore.InfoLevel))
}
