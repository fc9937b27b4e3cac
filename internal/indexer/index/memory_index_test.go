package index

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertTracksDocFreqAndCounts(t *testing.T) {
	m := NewMemoryIndex()
	m.Insert("cat", 1)
	m.Insert("cat", 1)
	m.Insert("sat", 1)
	m.Insert("cat", 2)
	m.Insert("cat", 2)
	m.Insert("cat", 2)

	cat, ok := m.Lookup("cat")
	require.True(t, ok)
	assert.Equal(t, 2, cat.DocFreq)
	assert.Equal(t, PostingList{{DocID: 1, Weight: 2}, {DocID: 2, Weight: 3}}, cat.Postings)

	sat, ok := m.Lookup("sat")
	require.True(t, ok)
	assert.Equal(t, 1, sat.DocFreq)
	assert.Len(t, sat.Postings, 1)

	_, ok = m.Lookup("dog")
	assert.False(t, ok)
}

func TestDocFreqMatchesPostings(t *testing.T) {
	m := NewMemoryIndex()
	for doc := 1; doc <= 20; doc++ {
		for i := 0; i < doc%4+1; i++ {
			m.Insert(fmt.Sprintf("t%d", doc%3), doc)
			m.Insert("common", doc)
		}
	}
	for _, entry := range m.Entries() {
		seen := make(map[int]bool)
		for _, p := range entry.Postings {
			assert.False(t, seen[p.DocID], "doc %d repeated in %q", p.DocID, entry.Term)
			seen[p.DocID] = true
		}
		assert.Equal(t, len(entry.Postings), entry.DocFreq, entry.Term)
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	m := NewMemoryIndex()
	for _, term := range []string{"zebra", "apple", "mango"} {
		m.Insert(term, 1)
	}
	terms := make([]string, 0, m.Len())
	for _, e := range m.Entries() {
		terms = append(terms, e.Term)
	}
	assert.Equal(t, []string{"zebra", "apple", "mango"}, terms)
}

func TestLogWeight(t *testing.T) {
	m := NewMemoryIndex()
	for i := 0; i < 10; i++ {
		m.Insert("ten", 1)
	}
	m.Insert("one", 1)
	m.LogWeight()

	ten, _ := m.Lookup("ten")
	one, _ := m.Lookup("one")
	assert.InDelta(t, 2.0, ten.Postings[0].Weight, 1e-12)
	assert.Equal(t, 1.0, one.Postings[0].Weight)
}

func TestSortTermsKeepsPostingsAttached(t *testing.T) {
	m := NewMemoryIndex()
	m.Insert("zebra", 3)
	m.Insert("apple", 1)
	m.Insert("mango", 2)
	m.Insert("apple", 2)
	m.SortTerms()

	entries := m.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "apple", entries[0].Term)
	assert.Equal(t, PostingList{{DocID: 1, Weight: 1}, {DocID: 2, Weight: 1}}, entries[0].Postings)
	assert.Equal(t, "mango", entries[1].Term)
	assert.Equal(t, "zebra", entries[2].Term)
	assert.Equal(t, 3, entries[2].Postings[0].DocID)

	apple, ok := m.Lookup("apple")
	require.True(t, ok)
	assert.Same(t, entries[0], apple)

	m.Insert("apple", 7)
	assert.Equal(t, 3, entries[0].DocFreq, "lookup must follow the sort")
}

func TestDocumentLengths(t *testing.T) {
	m := NewMemoryIndex()
	// doc 1: cat x10, sat x1 -> weights 2, 1
	for i := 0; i < 10; i++ {
		m.Insert("cat", 1)
	}
	m.Insert("sat", 1)
	m.Insert("cat", 2)
	m.LogWeight()
	m.SortTerms()

	lengths := m.DocumentLengths()
	require.Len(t, lengths, 2)
	assert.Equal(t, 1, lengths[0].DocID)
	assert.InDelta(t, math.Sqrt(5), lengths[0].Length, 1e-12)
	assert.Equal(t, 2, lengths[1].DocID)
	assert.Equal(t, 1.0, lengths[1].Length)
}

func TestDocCount(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument()
	m.AddDocument()
	assert.Equal(t, 2, m.DocCount())
	assert.Equal(t, 0, m.Len())
}

func BenchmarkMemoryIndexInsert(b *testing.B) {
	terms := []string{"distribut", "search", "analyt", "platform", "index", "queri"}
	m := NewMemoryIndex()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Insert(terms[i%len(terms)], i/len(terms))
	}
}
