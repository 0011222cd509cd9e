// Package testutil provides utilities for testing still in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Root      string
	Home      string
	ConfigDir string // $STILL_CONFIG_DIR
	CacheDir  string
	ToolsRoot string
	BinRoot   string
}

// SetupTestEnv creates isolated test directories for each test.
// This ensures still tests never interfere with:
// - Tools installed on the machine running the tests
// - The user's actual still configuration and catalog cache
//
// HOME and the XDG base directories are redirected too, so anything that
// resolves paths through xdg lands inside the temp dir. The cleanup is
// handled by t.TempDir().
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Root:      tmpDir,
		Home:      filepath.Join(tmpDir, "home"),
		ConfigDir: filepath.Join(tmpDir, "config", "still"),
		CacheDir:  filepath.Join(tmpDir, "cache", "still"),
		ToolsRoot: filepath.Join(tmpDir, "tools"),
		BinRoot:   filepath.Join(tmpDir, "bin"),
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmpDir, "cache"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmpDir, "state"))
	t.Setenv("STILL_CONFIG_DIR", env.ConfigDir)
	t.Setenv("NO_COLOR", "1")

	for _, dir := range []string{env.Home, env.ConfigDir, env.CacheDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}

// WriteFile writes content under dir, creating parents, and returns the path.
func WriteFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
