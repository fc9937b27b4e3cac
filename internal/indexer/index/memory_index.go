package index

import (
	"math"
	"sort"
)

// MemoryIndex is the build-time inverted index. Terms are kept in an
// append-only slice in first-insertion order with a hash index for lookup,
// so iteration order never depends on map ordering.
type MemoryIndex struct {
	entries  []*TermEntry
	lookup   map[string]int
	docCount int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		lookup: make(map[string]int),
	}
}

// AddDocument counts a traversed document towards the corpus size,
// whether or not it yields any terms.
func (m *MemoryIndex) AddDocument() {
	m.docCount++
}

// Insert records one occurrence of term in docID. The first occurrence in a
// document appends a posting and bumps the document frequency; later ones
// increment that posting's raw count in place.
func (m *MemoryIndex) Insert(term string, docID int) {
	pos, exists := m.lookup[term]
	if !exists {
		m.lookup[term] = len(m.entries)
		m.entries = append(m.entries, &TermEntry{
			Term:     term,
			DocFreq:  1,
			Postings: PostingList{{DocID: docID, Weight: 1}},
			docs:     map[int]int{docID: 0},
		})
		return
	}
	entry := m.entries[pos]
	if p, seen := entry.docs[docID]; seen {
		entry.Postings[p].Weight++
		return
	}
	entry.docs[docID] = len(entry.Postings)
	entry.Postings = append(entry.Postings, Posting{DocID: docID, Weight: 1})
	entry.DocFreq++
}

// LogWeight replaces every raw count c with 1 + log10(c).
func (m *MemoryIndex) LogWeight() {
	for _, entry := range m.entries {
		for i := range entry.Postings {
			entry.Postings[i].Weight = LogTF(entry.Postings[i].Weight)
		}
	}
}

// SortTerms orders entries by term. Each entry carries its own postings, so
// nothing else needs permuting.
func (m *MemoryIndex) SortTerms() {
	sort.Slice(m.entries, func(i, j int) bool {
		return m.entries[i].Term < m.entries[j].Term
	})
	for i, entry := range m.entries {
		m.lookup[entry.Term] = i
	}
}

// DocumentLengths returns sqrt(sum of squared weights) for every document
// holding at least one term, in ascending DocID order.
func (m *MemoryIndex) DocumentLengths() []DocLength {
	sums := make(map[int]float64)
	for _, entry := range m.entries {
		for _, p := range entry.Postings {
			sums[p.DocID] += p.Weight * p.Weight
		}
	}
	lengths := make([]DocLength, 0, len(sums))
	for docID, sum := range sums {
		lengths = append(lengths, DocLength{DocID: docID, Length: math.Sqrt(sum)})
	}
	sort.Slice(lengths, func(i, j int) bool {
		return lengths[i].DocID < lengths[j].DocID
	})
	return lengths
}

func (m *MemoryIndex) Lookup(term string) (*TermEntry, bool) {
	pos, ok := m.lookup[term]
	if !ok {
		return nil, false
	}
	return m.entries[pos], true
}

// Entries returns the dictionary in its current order. Pointer i of the
// on-disk dictionary is position i of this slice.
func (m *MemoryIndex) Entries() []*TermEntry {
	return m.entries
}

func (m *MemoryIndex) Len() int {
	return len(m.entries)
}

func (m *MemoryIndex) DocCount() int {
	return m.docCount
}
