package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "triggerd.log")
	var console bytes.Buffer

	log, closer, err := New(Options{File: path, Level: slog.LevelInfo, Console: &console})
	require.NoError(t, err)

	log.Info("hello", "key", "a")
	log.Debug("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello key=a")
	assert.NotContains(t, string(data), "hidden")
	assert.Equal(t, string(data), console.String())
}

func TestNewQuiet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggerd.log")
	var console bytes.Buffer

	log, closer, err := New(Options{File: path, Level: slog.LevelDebug, Quiet: true, Console: &console})
	require.NoError(t, err)
	defer closer.Close()

	log.Debug("only in file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "only in file")
	assert.Empty(t, console.String())
}

func TestNewAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggerd.log")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o600))

	log, closer, err := New(Options{File: path, Quiet: true})
	require.NoError(t, err)
	log.Info("next")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `^previous\n.*msg=next`, string(data))
}

func TestNewUnwritableFile(t *testing.T) {
	dir := t.TempDir()
	_, _, err := New(Options{File: dir})
	assert.Error(t, err)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Level(true))
	assert.Equal(t, slog.LevelInfo, Level(false))
}
