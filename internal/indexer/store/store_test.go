package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/errors"
)

type artifacts struct {
	dict     string
	postings string
	lengths  string
}

func sampleIndex() *index.MemoryIndex {
	m := index.NewMemoryIndex()
	docs := map[int][]string{
		1: {"the", "cat", "sat", "cat"},
		2: {"the", "cat", "ran"},
		3: {"dog", "bark", "café"},
	}
	for _, id := range []int{1, 2, 3} {
		m.AddDocument()
		for _, term := range docs[id] {
			m.Insert(term, id)
		}
	}
	m.LogWeight()
	m.SortTerms()
	return m
}

func writeSample(t *testing.T, m *index.MemoryIndex) artifacts {
	t.Helper()
	dir := t.TempDir()
	a := artifacts{
		dict:     filepath.Join(dir, "dictionary.txt"),
		postings: filepath.Join(dir, "postings.txt"),
		lengths:  filepath.Join(dir, "doc_lengths.txt"),
	}
	w := NewWriter(a.dict, a.postings)
	require.NoError(t, w.WriteIndex(m.Entries()))
	require.NoError(t, w.ConvertOffsets())
	require.NoError(t, w.PrependHeader(m.DocCount()))
	require.NoError(t, WriteDocLengths(a.lengths, m.DocumentLengths()))
	return a
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.0", FormatFloat(1))
	assert.Equal(t, "2.0", FormatFloat(2))
	assert.Equal(t, "1.3010299956639813", FormatFloat(index.LogTF(2)))
	assert.Equal(t, "1.4142135623730951", FormatFloat(1.4142135623730951))
	assert.Equal(t, "1234567.0", FormatFloat(1234567))
}

func TestFormatAndParsePostings(t *testing.T) {
	postings := index.PostingList{{DocID: 2, Weight: 1}, {DocID: 15, Weight: 1.3010299956639813}}
	line := FormatPostings(postings)
	assert.Equal(t, "(2,1.0) (15,1.3010299956639813)", line)

	parsed, err := ParsePostings(line + "  \n")
	require.NoError(t, err)
	assert.Equal(t, postings, parsed)
}

func TestParsePostingsRejectsGarbage(t *testing.T) {
	for _, line := range []string{"(1,1.0)(2,1.0)", "1,1.0", "(x,1.0)", "(1,abc)", "(11.0)"} {
		_, err := ParsePostings(line)
		assert.ErrorIs(t, err, apperrors.ErrCorruptIndex, line)
	}
}

func TestWrittenLayout(t *testing.T) {
	a := writeSample(t, sampleIndex())

	dict, err := os.ReadFile(a.dict)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"3\n"+
		"bark 1 0 8\n"+
		"café 1 8 8\n"+
		"cat 2 16 31\n"+
		"dog 1 47 8\n"+
		"ran 1 55 8\n"+
		"sat 1 63 8\n"+
		"the 2 71 16\n",
		string(dict))

	postings, err := os.ReadFile(a.postings)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"(3,1.0)\n"+
		"(3,1.0)\n"+
		"(1,1.3010299956639813) (2,1.0)\n"+
		"(3,1.0)\n"+
		"(2,1.0)\n"+
		"(1,1.0)\n"+
		"(1,1.0) (2,1.0)\n",
		string(postings))

	lengths, err := LoadDocLengths(a.lengths)
	require.NoError(t, err)
	assert.Len(t, lengths, 3)
	assert.InDelta(t, 1.7320508075688772, lengths[2], 1e-15)
	assert.InDelta(t, 1.7320508075688772, lengths[3], 1e-15)
}

func TestRoundTrip(t *testing.T) {
	m := sampleIndex()
	a := writeSample(t, m)

	r, err := OpenReader(a.dict, a.postings)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.DocCount())
	assert.Equal(t, m.Len(), r.Terms())
	require.NoError(t, r.Verify())

	for _, entry := range m.Entries() {
		got, err := r.Search(entry.Term)
		require.NoError(t, err, entry.Term)
		assert.Equal(t, entry.Postings, got, entry.Term)

		de, ok := r.Lookup(entry.Term)
		require.True(t, ok)
		assert.Equal(t, entry.DocFreq, de.DocFreq)
	}

	missing, err := r.Search("xyz")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOffsetsAreContiguous(t *testing.T) {
	a := writeSample(t, sampleIndex())
	r, err := OpenReader(a.dict, a.postings)
	require.NoError(t, err)
	defer r.Close()

	entries := r.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, int64(0), entries[0].Offset)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Offset, entries[i-1].Offset)
		assert.Equal(t, entries[i-1].Offset+int64(entries[i-1].Length), entries[i].Offset)
	}
}

func TestEmptyIndex(t *testing.T) {
	a := writeSample(t, index.NewMemoryIndex())

	dict, err := os.ReadFile(a.dict)
	require.NoError(t, err)
	assert.Equal(t, "0\n", string(dict))

	r, err := OpenReader(a.dict, a.postings)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.Terms())
	assert.NoError(t, r.Verify())
}

func TestTruncatedPostingsIsCorrupt(t *testing.T) {
	a := writeSample(t, sampleIndex())
	require.NoError(t, os.Truncate(a.postings, 40))

	r, err := OpenReader(a.dict, a.postings)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Search("the")
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
	assert.ErrorIs(t, r.Verify(), apperrors.ErrCorruptIndex)
}

func TestDocFreqMismatchIsCorrupt(t *testing.T) {
	a := writeSample(t, sampleIndex())
	dict, err := os.ReadFile(a.dict)
	require.NoError(t, err)
	broken := []byte(string(dict[:len(dict)-len("the 2 71 16\n")]) + "the 1 71 16\n")
	require.NoError(t, os.WriteFile(a.dict, broken, 0o644))

	r, err := OpenReader(a.dict, a.postings)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Search("the")
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
}

func TestMalformedDictionary(t *testing.T) {
	dir := t.TempDir()
	postings := filepath.Join(dir, "postings.txt")
	require.NoError(t, os.WriteFile(postings, []byte("(1,1.0)\n"), 0o644))

	cases := map[string]string{
		"empty":        "",
		"bad header":   "three\n",
		"short line":   "1\ncat 1 0\n",
		"out of order": "2\ndog 1 0 8\ncat 1 8 8\n",
		"df too large": "1\ncat 2 0 8\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "dict-"+name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := OpenReader(path, postings)
			assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
		})
	}
}

func TestConvertOffsetsLineCountMismatch(t *testing.T) {
	dir := t.TempDir()
	dict := filepath.Join(dir, "d")
	postings := filepath.Join(dir, "p")
	require.NoError(t, os.WriteFile(dict, []byte("cat 1 0\ndog 1 1\n"), 0o644))
	require.NoError(t, os.WriteFile(postings, []byte("(1,1.0)\n"), 0o644))

	err := NewWriter(dict, postings).ConvertOffsets()
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
}

func TestLoadDocLengthsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lengths")
	require.NoError(t, os.WriteFile(path, []byte("1,1.0\n2;3\n"), 0o644))
	_, err := LoadDocLengths(path)
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
}
