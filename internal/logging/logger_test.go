package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesToOutputPath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	logger, err := New(Config{Level: "debug", OutputPaths: []string{out}})
	require.NoError(t, err)

	logger.Component("gather").Info("flushed", zap.Int("entries", 3))
	require.NoError(t, logger.Sync())

	data := readFile(t, out)
	assert.Contains(t, data, `"component":"gather"`)
	assert.Contains(t, data, `"entries":3`)
	assert.Contains(t, data, `"level":"info"`)
}

func TestNilSafety(t *testing.T) {
	var l *Logger
	assert.NotNil(t, l.Component("x"))
	assert.NotNil(t, OrNop(nil))
	assert.NotNil(t, NewNop().Logger)
}

func TestPresetConfigs(t *testing.T) {
	prod := DefaultConfig()
	assert.Equal(t, "info", prod.Level)
	assert.False(t, prod.Development)

	dev := DevelopmentConfig()
	assert.Equal(t, "debug", dev.Level)
	assert.True(t, dev.Development)

	for _, cfg := range []Config{prod, dev} {
		logger, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger.Component("cli"))
	}
}
