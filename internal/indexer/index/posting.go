package index

import "math"

// Posting records a term's weight in one document. Before LogWeight the
// weight is the raw in-document count.
type Posting struct {
	DocID  int
	Weight float64
}

type PostingList []Posting

// TermEntry is one dictionary record: the term, its document frequency and
// its postings in first-encounter order.
type TermEntry struct {
	Term     string
	DocFreq  int
	Postings PostingList

	docs map[int]int
}

// DocLength is the Euclidean norm of a document's log-weighted term vector.
type DocLength struct {
	DocID  int
	Length float64
}

// Log10 is computed as ln(x)/ln(10). math.Log10 rounds differently for some
// inputs, and weights are persisted with full precision.
func Log10(x float64) float64 {
	return math.Log(x) / math.Log(10)
}

// LogTF is the sublinear term-frequency weight 1 + log10(count).
func LogTF(count float64) float64 {
	return 1 + Log10(count)
}
