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

// Writer serialises a sorted MemoryIndex into a dictionary file and a
// postings file. The three passes mirror the build phases: WriteIndex with
// line-number pointers, ConvertOffsets to byte offsets, then PrependHeader.
type Writer struct {
	dictPath     string
	postingsPath string
}

// NewWriter creates a Writer for the given artifact paths.
func NewWriter(dictPath, postingsPath string) *Writer {
	return &Writer{dictPath: dictPath, postingsPath: postingsPath}
}

// WriteIndex writes one dictionary line (term, document frequency, line
// number) and one postings line per entry, in the given order.
func (w *Writer) WriteIndex(entries []*index.TermEntry) error {
	err := WriteAtomic(w.dictPath, func(bw *bufio.Writer) error {
		for i, entry := range entries {
			if _, err := bw.WriteString(fmt.Sprintf("%s %d %d\n", entry.Term, entry.DocFreq, i)); err != nil {
				return fmt.Errorf("writing dictionary entry %q: %w", entry.Term, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	err = WriteAtomic(w.postingsPath, func(bw *bufio.Writer) error {
		for _, entry := range entries {
			if _, err := bw.WriteString(FormatPostings(entry.Postings) + "\n"); err != nil {
				return fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing postings: %w", err)
	}
	return nil
}

// ConvertOffsets re-reads the dictionary and postings files in lock-step and
// replaces every line-number pointer with the byte offset of the matching
// postings line, appending that line's byte length.
func (w *Writer) ConvertOffsets() error {
	dictFile, err := os.Open(w.dictPath)
	if err != nil {
		return fmt.Errorf("opening dictionary: %w", err)
	}
	defer dictFile.Close()
	postingsFile, err := os.Open(w.postingsPath)
	if err != nil {
		return fmt.Errorf("opening postings: %w", err)
	}
	defer postingsFile.Close()

	dictReader := bufio.NewReader(dictFile)
	postingsReader := bufio.NewReader(postingsFile)
	return WriteAtomic(w.dictPath, func(bw *bufio.Writer) error {
		var offset int64
		for lineNo := 1; ; lineNo++ {
			dictLine, dictErr := readLine(dictReader)
			postingsLine, postErr := readLine(postingsReader)
			if dictErr == io.EOF && postErr == io.EOF {
				return nil
			}
			if dictErr != nil && dictErr != io.EOF {
				return fmt.Errorf("reading dictionary: %w", dictErr)
			}
			if postErr != nil && postErr != io.EOF {
				return fmt.Errorf("reading postings: %w", postErr)
			}
			if dictErr == io.EOF || postErr == io.EOF {
				return apperrors.Newf(apperrors.ErrCorruptIndex,
					"dictionary and postings line counts differ at line %d", lineNo)
			}
			term, docFreq, err := parseLineNumberEntry(dictLine, lineNo)
			if err != nil {
				return err
			}
			length := len(postingsLine)
			if _, err := bw.WriteString(formatDictLine(term, docFreq, offset, length)); err != nil {
				return fmt.Errorf("writing dictionary entry %q: %w", term, err)
			}
			offset += int64(length)
		}
	})
}

// PrependHeader inserts the document-count line at the top of the
// dictionary. docCount is the size of the whole corpus, even when only part
// of it was indexed, since searchers take it as N for the idf.
func (w *Writer) PrependHeader(docCount int) error {
	content, err := os.ReadFile(w.dictPath)
	if err != nil {
		return fmt.Errorf("reading dictionary: %w", err)
	}
	return WriteAtomic(w.dictPath, func(bw *bufio.Writer) error {
		if _, err := bw.WriteString(strconv.Itoa(docCount) + "\n"); err != nil {
			return err
		}
		_, err := bw.Write(content)
		return err
	})
}

// WriteDocLengths writes the document-length side table, one
// "docID,length" line per document.
func WriteDocLengths(path string, lengths []index.DocLength) error {
	return WriteAtomic(path, func(bw *bufio.Writer) error {
		for _, dl := range lengths {
			if _, err := bw.WriteString(strconv.Itoa(dl.DocID) + "," + FormatFloat(dl.Length) + "\n"); err != nil {
				return fmt.Errorf("writing length of document %d: %w", dl.DocID, err)
			}
		}
		return nil
	})
}

// readLine returns the next line including its newline. A final line
// without a newline is returned with a nil error; io.EOF means no bytes
// were left.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF && line != "" {
		return line, nil
	}
	return line, err
}

func parseLineNumberEntry(line string, lineNo int) (string, int, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), " ")
	if len(fields) != 3 {
		return "", 0, apperrors.Newf(apperrors.ErrCorruptIndex,
			"dictionary line %d: expected 3 fields, got %d", lineNo, len(fields))
	}
	docFreq, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, apperrors.Newf(apperrors.ErrCorruptIndex,
			"dictionary line %d: bad document frequency %q", lineNo, fields[1])
	}
	if fields[2] != strconv.Itoa(lineNo-1) {
		return "", 0, apperrors.Newf(apperrors.ErrCorruptIndex,
			"dictionary line %d points at postings line %s", lineNo, fields[2])
	}
	return fields[0], docFreq, nil
}

// WriteAtomic writes to a temporary file next to path and renames it over
// path once fn and the flush succeed.
func WriteAtomic(path string, fn func(bw *bufio.Writer) error) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpPath, err)
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flushing %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}
