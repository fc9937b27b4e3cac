// Package ranker implements lnc.ltc cosine scoring. Document weights are
// stored log-tf values divided by the stored document length; query
// weights are log-tf times idf divided by the query vector's norm.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/errors"
)

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Better orders results: higher score first, then lower DocID.
func Better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// TermPostings is one query term found in the dictionary, with its query
// frequency and its postings read from disk.
type TermPostings struct {
	Term    string
	DocFreq int
	QueryTF int
	// QueryPos ranks the term by its first appearance in the query. The
	// query norm is summed in this order.
	QueryPos int
	Postings index.PostingList
}

// DocLengthFunc returns the stored length of a document.
type DocLengthFunc func(docID int) (float64, bool)

// QueryWeight is (1 + log10(tf)) * log10(N/df). A term present in every
// document weighs zero.
func QueryWeight(tf, docFreq, totalDocs int) float64 {
	return index.LogTF(float64(tf)) * index.Log10(float64(totalDocs)/float64(docFreq))
}

// Normalize divides weights by their Euclidean norm. A zero vector stays
// zero.
func Normalize(weights []float64) []float64 {
	var sum float64
	for _, w := range weights {
		sum += w * w
	}
	out := make([]float64, len(weights))
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i, w := range weights {
		out[i] = w / norm
	}
	return out
}

// normalizeByQueryPos normalizes weights, which line up with terms, summing
// the squares in query order rather than in the order of terms.
func normalizeByQueryPos(terms []TermPostings, weights []float64) []float64 {
	order := make([]int, len(terms))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return terms[order[a]].QueryPos < terms[order[b]].QueryPos
	})

	byPos := make([]float64, len(order))
	for k, i := range order {
		byPos[k] = weights[i]
	}
	byPos = Normalize(byPos)

	out := make([]float64, len(weights))
	for k, i := range order {
		out[i] = byPos[k]
	}
	return out
}

// Score computes the cosine score of every document holding at least one of
// the terms. Document scores are summed in the order given, which callers
// keep in dictionary order; the query norm is summed in query order.
// Results come back in first-seen order, unsorted.
func Score(terms []TermPostings, totalDocs int, docLength DocLengthFunc) ([]ScoredDoc, error) {
	weights := make([]float64, len(terms))
	for i, t := range terms {
		weights[i] = QueryWeight(t.QueryTF, t.DocFreq, totalDocs)
	}
	weights = normalizeByQueryPos(terms, weights)

	positions := make(map[int]int)
	scored := make([]ScoredDoc, 0)
	for i, t := range terms {
		for _, p := range t.Postings {
			length, ok := docLength(p.DocID)
			if !ok {
				return nil, apperrors.Newf(apperrors.ErrCorruptIndex,
					"document %d has postings for %q but no stored length", p.DocID, t.Term)
			}
			pos, seen := positions[p.DocID]
			if !seen {
				pos = len(scored)
				positions[p.DocID] = pos
				scored = append(scored, ScoredDoc{DocID: p.DocID})
			}
			scored[pos].Score += weights[i] * (p.Weight / length)
		}
	}
	return scored, nil
}
