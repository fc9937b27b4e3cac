package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/config"
)

func parseIndexFlags(t *testing.T, args ...string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indexer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  limit: 5\n  testModeLimit: 2\n  verify: true\n"), 0o644))

	var stderr bytes.Buffer
	cmd := cli.New("indexer", "indexer", &stderr)
	testMode := cmd.Flags.Bool("t", false, "")
	verify := cmd.Flags.Bool("verify", false, "")
	cfg, err := cmd.Parse(append([]string{"-config", path}, args...))
	require.NoError(t, err)
	applyIndexFlags(cmd, cfg, *testMode, *verify)
	return cfg
}

func TestIndexFlagsKeepConfigWhenAbsent(t *testing.T) {
	cfg := parseIndexFlags(t)
	assert.Equal(t, 5, cfg.Index.Limit)
	assert.True(t, cfg.Index.Verify)
}

func TestIndexFlagsOverrideConfig(t *testing.T) {
	cfg := parseIndexFlags(t, "-t")
	assert.Equal(t, 2, cfg.Index.Limit)

	cfg = parseIndexFlags(t, "-t=false", "-verify=false")
	assert.Zero(t, cfg.Index.Limit)
	assert.False(t, cfg.Index.Verify)
}
