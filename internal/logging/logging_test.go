package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel_RecognizesAllVariants(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("INFO"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestNew_WithoutFilePath(t *testing.T) {
	logger, err := New(Options{Level: "INFO"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
}

func TestNew_WithFilePath_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrytools.log")
	logger, err := New(Options{Level: "DEBUG", FilePath: path})
	require.NoError(t, err)
	logger.Debug("written to file")
	assert.NoError(t, logger.Sync())
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 100, orDefault(0, 100))
	assert.Equal(t, 100, orDefault(-1, 100))
	assert.Equal(t, 42, orDefault(42, 100))
}
