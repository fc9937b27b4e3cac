// Package tokenizer provides text tokenisation for the search engine.
// It NFC-normalises input, splits it on UAX#29 word boundaries, drops
// whitespace segments, optionally drops punctuation-only segments, and
// applies the Snowball English (Porter2) stemmer. Index building and query
// processing must use identically configured Tokenizers.
package tokenizer

import (
	"regexp"
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

var punctuationOnly = regexp.MustCompile("^[!\"#$%&'()*+,\\-./:;<=>?@\\[\\\\\\]^_`{|}~]+$")

// Options configures a Tokenizer.
type Options struct {
	// FilterPunctuation drops segments made only of ASCII punctuation.
	FilterPunctuation bool
}

// Tokenizer maps a line of text to an ordered sequence of stemmed terms.
type Tokenizer struct {
	opts Options
}

// New returns a Tokenizer with the given options.
func New(opts Options) *Tokenizer {
	return &Tokenizer{opts: opts}
}

// Tokenize returns the terms of text in order of appearance. Duplicates are
// kept.
func (t *Tokenizer) Tokenize(text string) []string {
	segments := words.FromString(norm.NFC.String(text))
	terms := make([]string, 0, 16)
	for segments.Next() {
		segment := segments.Value()
		if strings.TrimSpace(segment) == "" {
			continue
		}
		if t.opts.FilterPunctuation && punctuationOnly.MatchString(segment) {
			continue
		}
		if term := Stem(segment); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// Stem lower-cases and stems a single word. Stop words are stemmed too.
func Stem(word string) string {
	return english.Stem(word, true)
}
