// Package store reads and writes the on-disk index: a text dictionary
// addressed by byte offset into a text postings file, plus a document-length
// side table.
//
// Dictionary file:
//
//	<document count>
//	<term> <document frequency> <byte offset> <byte length>
//	...
//
// Postings file, one line per dictionary term in the same order:
//
//	(<docID>,<weight>) (<docID>,<weight>) ...
//
// Byte lengths include the line's trailing newline, so the entries tile the
// postings file exactly.
package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/errors"
)

// DictEntry maps a term to its document frequency and the location of its
// postings line.
type DictEntry struct {
	Term    string
	DocFreq int
	Offset  int64
	Length  int
}

// FormatFloat renders f in its shortest round-trip decimal form, always
// with a fractional part ("1.0", "1.3010299956639813").
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// FormatPostings encodes a postings list as a single line without the
// trailing newline.
func FormatPostings(postings index.PostingList) string {
	var sb strings.Builder
	for i, p := range postings {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('(')
		sb.WriteString(strconv.Itoa(p.DocID))
		sb.WriteByte(',')
		sb.WriteString(FormatFloat(p.Weight))
		sb.WriteByte(')')
	}
	return sb.String()
}

// ParsePostings decodes a postings line. Trailing whitespace, including the
// newline, is ignored.
func ParsePostings(line string) (index.PostingList, error) {
	line = strings.TrimRight(line, " \t\r\n")
	if line == "" {
		return index.PostingList{}, nil
	}
	fields := strings.Split(line, " ")
	postings := make(index.PostingList, 0, len(fields))
	for _, field := range fields {
		if len(field) < 5 || field[0] != '(' || field[len(field)-1] != ')' {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "malformed posting %q", field)
		}
		docPart, weightPart, ok := strings.Cut(field[1:len(field)-1], ",")
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "malformed posting %q", field)
		}
		docID, err := strconv.Atoi(docPart)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "bad document id in posting %q", field)
		}
		weight, err := strconv.ParseFloat(weightPart, 64)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "bad weight in posting %q", field)
		}
		postings = append(postings, index.Posting{DocID: docID, Weight: weight})
	}
	return postings, nil
}

func formatDictLine(term string, docFreq int, pointer int64, length int) string {
	return fmt.Sprintf("%s %d %d %d\n", term, docFreq, pointer, length)
}

func parseDictLine(line string, lineNo int) (DictEntry, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), " ")
	if len(fields) != 4 {
		return DictEntry{}, apperrors.Newf(apperrors.ErrCorruptIndex,
			"dictionary line %d: expected 4 fields, got %d", lineNo, len(fields))
	}
	docFreq, err := strconv.Atoi(fields[1])
	if err != nil || docFreq < 1 {
		return DictEntry{}, apperrors.Newf(apperrors.ErrCorruptIndex,
			"dictionary line %d: bad document frequency %q", lineNo, fields[1])
	}
	offset, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || offset < 0 {
		return DictEntry{}, apperrors.Newf(apperrors.ErrCorruptIndex,
			"dictionary line %d: bad offset %q", lineNo, fields[2])
	}
	length, err := strconv.Atoi(fields[3])
	if err != nil || length < 1 {
		return DictEntry{}, apperrors.Newf(apperrors.ErrCorruptIndex,
			"dictionary line %d: bad length %q", lineNo, fields[3])
	}
	return DictEntry{Term: fields[0], DocFreq: docFreq, Offset: offset, Length: length}, nil
}
