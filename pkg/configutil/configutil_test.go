package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name     string   `json:"name"`
	Attempts int      `json:"attempts"`
	Paths    []string `json:"paths"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		name: "base",
		attempts: 3,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{attempts: 7}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "base", cfg.Name)
	require.Equal(t, 7, cfg.Attempts)

	_, err = ReadConfig[testConfig](filepath.Join(dir, "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigWithDefaults(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{attempts: 2}`), 0600)
	require.NoError(t, err)

	defaults := testConfig{Name: "default", Attempts: 10, Paths: []string{"/usr/bin/gm"}}

	cfg, err := ReadConfigWithDefaults(filepath.Join(dir, "config.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "default", Attempts: 2, Paths: []string{"/usr/bin/gm"}}, cfg)

	cfg, err = ReadConfigWithDefaults(filepath.Join(dir, "absent.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)
}
