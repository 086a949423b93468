// Package chunker splits extracted document text into sentence-aligned
// segments that are vectorized and retrieved independently.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSize is the nominal chunk bound in characters.
const DefaultMaxSize = 6000

var (
	// A sentence ends at a run of terminal punctuation followed by whitespace
	// or the end of the text.
	sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Chunker greedily packs sentences into chunks of at most maxSize characters.
type Chunker struct {
	maxSize int
}

// New returns a Chunker. Non-positive sizes fall back to DefaultMaxSize.
func New(maxSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Chunker{maxSize: maxSize}
}

// Chunk splits text into ordered chunks. A chunk only exceeds the bound when
// a single sentence does. The result always holds at least one chunk.
func (c *Chunker) Chunk(text string) []string {
	var (
		chunks []string
		buf    strings.Builder
		size   int
	)

	for _, sentence := range SplitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if size > 0 && size+1+n > c.maxSize {
			chunks = append(chunks, buf.String())
			buf.Reset()
			size = 0
		}
		if size > 0 {
			buf.WriteByte(' ')
			size++
		}
		buf.WriteString(sentence)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, buf.String())
	}

	if len(chunks) == 0 {
		return []string{truncate(text, c.maxSize)}
	}
	return chunks
}

// SplitSentences returns the trimmed, whitespace-normalized sentences of
// text. Trailing text without terminal punctuation is kept as a sentence.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := normalize(text[start:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if start < len(text) {
		if s := normalize(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
