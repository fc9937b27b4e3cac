package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/errors"
)

// Reader holds the dictionary in memory and reads individual postings
// lines from the postings file with positioned reads. It is safe for
// concurrent use.
type Reader struct {
	file         *os.File
	postingsPath string
	postingsSize int64
	docCount     int
	dict         []DictEntry
	lookup       map[string]int
}

// OpenReader loads the dictionary at dictPath and opens the postings file.
func OpenReader(dictPath, postingsPath string) (*Reader, error) {
	dictFile, err := os.Open(dictPath)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary: %w", err)
	}
	defer dictFile.Close()

	br := bufio.NewReader(dictFile)
	header, err := readLine(br)
	if err == io.EOF {
		return nil, apperrors.New(apperrors.ErrCorruptIndex, "dictionary is empty, missing document count")
	}
	if err != nil {
		return nil, fmt.Errorf("reading dictionary header: %w", err)
	}
	docCount, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || docCount < 0 {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "bad document count %q", strings.TrimSpace(header))
	}

	dict := make([]DictEntry, 0, 1024)
	lookup := make(map[string]int)
	for lineNo := 2; ; lineNo++ {
		line, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading dictionary: %w", err)
		}
		entry, err := parseDictLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		if n := len(dict); n > 0 && dict[n-1].Term >= entry.Term {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex,
				"dictionary line %d: term %q out of order", lineNo, entry.Term)
		}
		if entry.DocFreq > docCount {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex,
				"dictionary line %d: document frequency %d exceeds document count %d", lineNo, entry.DocFreq, docCount)
		}
		lookup[entry.Term] = len(dict)
		dict = append(dict, entry)
	}

	f, err := os.Open(postingsPath)
	if err != nil {
		return nil, fmt.Errorf("opening postings: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat postings: %w", err)
	}
	return &Reader{
		file:         f,
		postingsPath: postingsPath,
		postingsSize: info.Size(),
		docCount:     docCount,
		dict:         dict,
		lookup:       lookup,
	}, nil
}

// Lookup returns the dictionary entry for term.
func (r *Reader) Lookup(term string) (DictEntry, bool) {
	pos, ok := r.lookup[term]
	if !ok {
		return DictEntry{}, false
	}
	return r.dict[pos], true
}

// ReadPostings reads exactly entry.Length bytes at entry.Offset and decodes
// them. The decoded list must hold entry.DocFreq postings.
func (r *Reader) ReadPostings(entry DictEntry) (index.PostingList, error) {
	if entry.Offset+int64(entry.Length) > r.postingsSize {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex,
			"postings for %q at [%d,+%d) run past end of file (%d bytes)",
			entry.Term, entry.Offset, entry.Length, r.postingsSize)
	}
	buf := make([]byte, entry.Length)
	if _, err := r.file.ReadAt(buf, entry.Offset); err != nil {
		if err == io.EOF {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "short read of postings for %q", entry.Term)
		}
		return nil, fmt.Errorf("reading postings for %q: %w", entry.Term, err)
	}
	postings, err := ParsePostings(string(buf))
	if err != nil {
		return nil, fmt.Errorf("decoding postings for %q: %w", entry.Term, err)
	}
	if len(postings) != entry.DocFreq {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex,
			"term %q: %d postings, document frequency %d", entry.Term, len(postings), entry.DocFreq)
	}
	return postings, nil
}

// Search returns the postings for term, or nil if the term is not in the
// dictionary.
func (r *Reader) Search(term string) (index.PostingList, error) {
	entry, ok := r.Lookup(term)
	if !ok {
		return nil, nil
	}
	return r.ReadPostings(entry)
}

// Entries returns the dictionary in file order.
func (r *Reader) Entries() []DictEntry {
	return r.dict
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() int {
	return r.docCount
}

// Verify checks that the dictionary entries tile the postings file without
// gaps or overlaps and that every postings line decodes to exactly its
// document frequency of distinct, ascending document IDs.
func (r *Reader) Verify() error {
	var expected int64
	for _, entry := range r.dict {
		if entry.Offset != expected {
			return apperrors.Newf(apperrors.ErrCorruptIndex,
				"term %q starts at byte %d, expected %d", entry.Term, entry.Offset, expected)
		}
		postings, err := r.ReadPostings(entry)
		if err != nil {
			return err
		}
		for i := 1; i < len(postings); i++ {
			if postings[i].DocID <= postings[i-1].DocID {
				return apperrors.Newf(apperrors.ErrCorruptIndex,
					"term %q: document %d follows %d", entry.Term, postings[i].DocID, postings[i-1].DocID)
			}
		}
		expected += int64(entry.Length)
	}
	if expected != r.postingsSize {
		return apperrors.Newf(apperrors.ErrCorruptIndex,
			"dictionary covers %d bytes, postings file %s has %d", expected, r.postingsPath, r.postingsSize)
	}
	return nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// LoadDocLengths reads the document-length side table.
func LoadDocLengths(path string) (map[int]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document lengths: %w", err)
	}
	defer f.Close()

	lengths := make(map[int]float64)
	br := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading document lengths: %w", err)
		}
		docPart, lengthPart, ok := strings.Cut(strings.TrimSpace(line), ",")
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "document lengths line %d: missing comma", lineNo)
		}
		docID, err := strconv.Atoi(docPart)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "document lengths line %d: bad document id %q", lineNo, docPart)
		}
		length, err := strconv.ParseFloat(lengthPart, 64)
		if err != nil || length <= 0 {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "document lengths line %d: bad length %q", lineNo, lengthPart)
		}
		lengths[docID] = length
	}
	return lengths, nil
}
