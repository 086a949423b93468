package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "simple", in: "One. Two! Three?", want: []string{"One.", "Two!", "Three?"}},
		{name: "trailing fragment", in: "Done. and more", want: []string{"Done.", "and more"}},
		{name: "collapses whitespace", in: "A  long\n\nline.   Next.", want: []string{"A long line.", "Next."}},
		{name: "ellipsis stays in sentence", in: "Wait... what?", want: []string{"Wait...", "what?"}},
		{name: "decimal does not split", in: "Pi is 3.14 today.", want: []string{"Pi is 3.14 today."}},
		{name: "empty", in: "", want: nil},
		{name: "whitespace only", in: "  \n\t ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestChunker_SingleShortSentence(t *testing.T) {
	chunks := New(DefaultMaxSize).Chunk("The quick brown fox jumps over the lazy dog.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", chunks[0])
}

func TestChunker_EmptyTextYieldsOneChunk(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n"} {
		chunks := New(10).Chunk(in)
		require.Len(t, chunks, 1, "input %q", in)
		assert.Equal(t, in, chunks[0])
	}
}

func TestChunker_GreedyPacking(t *testing.T) {
	// Each sentence is 10 characters; two fit in 21 with the joining space.
	text := "Aaaaaaaaa. Bbbbbbbbb. Ccccccccc. Ddddddddd. Eeeeeeeee."
	chunks := New(21).Chunk(text)

	assert.Equal(t, []string{
		"Aaaaaaaaa. Bbbbbbbbb.",
		"Ccccccccc. Ddddddddd.",
		"Eeeeeeeee.",
	}, chunks)
}

func TestChunker_OversizeSentenceKeptIntact(t *testing.T) {
	long := strings.Repeat("x", 50) + "."
	text := "Short one. " + long + " Tail."
	chunks := New(20).Chunk(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Short one.", chunks[0])
	assert.Equal(t, long, chunks[1])
	assert.Equal(t, "Tail.", chunks[2])
}

func TestChunker_BoundHoldsUnlessSingleSentence(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString(strings.Repeat("word ", i%17+1))
		b.WriteString("end. ")
	}
	b.WriteString(strings.Repeat("y", 300) + ".")

	const max = 120
	for _, chunk := range New(max).Chunk(b.String()) {
		if utf8.RuneCountInString(chunk) > max {
			assert.Len(t, SplitSentences(chunk), 1, "oversize chunk must be a single sentence")
		}
	}
}

func TestChunker_PreservesAllSentences(t *testing.T) {
	text := "Alpha beta. Gamma delta! Epsilon zeta? Eta theta."
	chunks := New(25).Chunk(text)
	assert.Equal(t, SplitSentences(text), SplitSentences(strings.Join(chunks, " ")))
}

func TestNew_DefaultsNonPositiveSize(t *testing.T) {
	long := strings.Repeat("a", 3500) + ". " + strings.Repeat("b", 3500) + "."
	short := strings.Repeat("a", 2000) + ". " + strings.Repeat("b", 2000) + "."

	for _, size := range []int{0, -5} {
		assert.Len(t, New(size).Chunk(long), 2)
		assert.Len(t, New(size).Chunk(short), 1)
	}
}
