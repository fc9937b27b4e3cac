package cli

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/errors"
)

func newIndexCommand(stderr *bytes.Buffer) (*Command, *string) {
	c := New("indexer", "indexer -i dir -d dict -p postings", stderr)
	dir := c.Flags.String("i", "", "corpus directory")
	c.Flags.String("d", "", "dictionary file")
	c.Require("i", "d")
	return c, dir
}

func TestParseRequiredFlags(t *testing.T) {
	var stderr bytes.Buffer
	c, dir := newIndexCommand(&stderr)

	cfg, err := c.Parse([]string{"-i", "corpus", "-d", "dict.txt", "-v"})
	require.NoError(t, err)
	assert.Equal(t, "corpus", *dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, c.IsSet("d"))
	assert.False(t, c.IsSet("config"))
	assert.Empty(t, stderr.String())
}

func TestParseMissingFlag(t *testing.T) {
	var stderr bytes.Buffer
	c, _ := newIndexCommand(&stderr)

	_, err := c.Parse([]string{"-i", "corpus"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))
	assert.Contains(t, err.Error(), "-d")
	assert.Contains(t, stderr.String(), "usage: indexer")
}

func TestParseRejectsUnknownAndExtraArgs(t *testing.T) {
	for _, args := range [][]string{
		{"-i", "corpus", "-d", "dict.txt", "-x"},
		{"-i", "corpus", "-d", "dict.txt", "stray"},
	} {
		var stderr bytes.Buffer
		c, _ := newIndexCommand(&stderr)
		_, err := c.Parse(args)
		require.Error(t, err, args)
		assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err), args)
	}
}

func TestParseBadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0o644))

	var stderr bytes.Buffer
	c, _ := newIndexCommand(&stderr)
	_, err := c.Parse([]string{"-i", "corpus", "-d", "dict.txt", "-config", path})
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))
	assert.Contains(t, stderr.String(), "usage: indexer")
}

func TestParseHelp(t *testing.T) {
	var stderr bytes.Buffer
	c, _ := newIndexCommand(&stderr)
	_, err := c.Parse([]string{"-h"})
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Equal(t, 0, ExitCode(&stderr, "indexer", err))
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, ExitCode(&stderr, "searcher", nil))
	assert.Equal(t, 0, ExitCode(&stderr, "searcher", flag.ErrHelp))
	assert.Empty(t, stderr.String())

	assert.Equal(t, apperrors.ExitCorrupt, ExitCode(&stderr, "searcher", apperrors.New(apperrors.ErrCorruptIndex, "postings line 3")))
	assert.Contains(t, stderr.String(), "searcher: corrupt index: postings line 3")
}
