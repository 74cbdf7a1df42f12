package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProductionLoggerWithLogDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(false, dir)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.DirExists(t, dir)

	logger.Info("probe")
	_ = logger.Sync()
	require.FileExists(t, filepath.Join(dir, "scraper.log"))
}

func TestNewDevelopmentLoggerWithoutDir(t *testing.T) {
	t.Parallel()

	logger, err := New(true, "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.True(t, logger.Core().Enabled(-1), "development logger keeps debug enabled")
}
