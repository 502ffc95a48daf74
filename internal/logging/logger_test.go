package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, home string, debug bool) {
	t.Helper()
	doc := configDoc{Logging: fileConfig{DebugMode: debug, Level: "debug"}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.json"), data, 0o644))
}

func TestInitializeProductionModeSkipsLogDir(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, false)

	require.NoError(t, Initialize(home))

	_, err := os.Stat(filepath.Join(home, "hooks", "logs"))
	assert.True(t, os.IsNotExist(err), "expected no logs dir in production mode, stat err=%v", err)
}

func TestInitializeDebugModeCreatesLogDir(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, true)

	require.NoError(t, Initialize(home))
	require.DirExists(t, filepath.Join(home, "hooks", "logs"))

	l := Get(CategoryBoot)
	l.Info("boot test message")

	data, err := os.ReadFile(filepath.Join(home, "hooks", "logs", "boot.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestInitializeMissingConfigDefaultsProduction(t *testing.T) {
	home := t.TempDir()

	require.NoError(t, Initialize(home))
	_, err := os.Stat(filepath.Join(home, "hooks", "logs"))
	assert.True(t, os.IsNotExist(err), "expected no logs dir when config.json absent")
}
