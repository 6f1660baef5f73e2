package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesFileAndConsole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	var console bytes.Buffer

	logger, closer, err := Setup(Options{File: path, Console: &console, RunID: "r1"})
	require.NoError(t, err)

	logger.Debug().Msg("debug only")
	logger.Info().Str("library", "TV Shows").Msg("processing library")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug only")
	assert.Contains(t, string(data), "processing library")
	assert.Contains(t, string(data), "run=r1")

	assert.NotContains(t, console.String(), "debug only")
	assert.Contains(t, console.String(), "library=\"TV Shows\"")
}

func TestSetupStartsFreshFilePerRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	first, closer, err := Setup(Options{File: path})
	require.NoError(t, err)
	first.Info().Msg("first run")
	require.NoError(t, closer.Close())

	second, closer, err := Setup(Options{File: path})
	require.NoError(t, err)
	second.Info().Msg("second run")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "first run")
	assert.Contains(t, string(data), "second run")
}
