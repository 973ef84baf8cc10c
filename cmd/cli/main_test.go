package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, environ map[string]string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(env.Options{Environment: environ})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func testEnv(t *testing.T) map[string]string {
	dir := t.TempDir()
	return map[string]string{
		"DB_PATH":      filepath.Join(dir, "saga.db"),
		"STORAGE_PATH": filepath.Join(dir, "datastore.json"),
	}
}

func TestMigrateAndPlayer(t *testing.T) {
	e := testEnv(t)
	assert.Contains(t, runCLI(t, e, "migrate"), "up to date")

	out := runCLI(t, e, "player", "u1")
	assert.Contains(t, out, "level 1, 100 coins")
	assert.Contains(t, out, "wooden-crate x1")
}

func TestContentSummary(t *testing.T) {
	out := runCLI(t, testEnv(t), "content")
	assert.Contains(t, out, "catalog: embedded")
	assert.Contains(t, out, "quests: 5")
}

func TestContentOverrideFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[quest]]\nid = \"\"\n"), 0o644))

	root := newRootCmd(env.Options{Environment: testEnv(t)})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"content", "--content", path})
	assert.Error(t, root.Execute())
}

func TestPrefixAndToggles(t *testing.T) {
	e := testEnv(t)
	assert.Contains(t, runCLI(t, e, "prefix", "g1"), "prefix for g1: (default)")
	assert.Contains(t, runCLI(t, e, "prefix", "g1", "?"), "prefix for g1: ?")
	assert.Contains(t, runCLI(t, e, "prefix", "g1"), "prefix for g1: ?")

	assert.Contains(t, runCLI(t, e, "disable", "g1", "poker"), "disabled poker in g1")
	assert.Contains(t, runCLI(t, e, "enable", "g1", "poker"), "enabled poker in g1")
	assert.Contains(t, runCLI(t, e, "history", "g1"), "no commands recorded")
}
