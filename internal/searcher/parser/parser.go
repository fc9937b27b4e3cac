// Package parser turns a free-text query into the bag of stemmed terms the
// ranker weights. There are no operators: every token is a query term.
package parser

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/tokenizer"
)

type Query struct {
	Raw string
	// Terms holds every stemmed token in order, duplicates included.
	Terms []string
	// Frequencies counts occurrences of each distinct term.
	Frequencies map[string]int
	// FirstSeen maps each distinct term to its rank in order of first
	// appearance.
	FirstSeen map[string]int
}

// Parse tokenizes query with tok, which must be configured like the
// tokenizer that built the index.
func Parse(tok *tokenizer.Tokenizer, query string) *Query {
	q := &Query{
		Raw:         strings.TrimRight(query, "\r\n"),
		Frequencies: make(map[string]int),
		FirstSeen:   make(map[string]int),
	}
	q.Terms = tok.Tokenize(q.Raw)
	for _, term := range q.Terms {
		if _, ok := q.FirstSeen[term]; !ok {
			q.FirstSeen[term] = len(q.FirstSeen)
		}
		q.Frequencies[term]++
	}
	return q
}

// Distinct returns the distinct terms in ascending byte order, which is the
// dictionary order.
func (q *Query) Distinct() []string {
	terms := make([]string, 0, len(q.Frequencies))
	for term := range q.Frequencies {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (q *Query) Empty() bool {
	return len(q.Terms) == 0
}
