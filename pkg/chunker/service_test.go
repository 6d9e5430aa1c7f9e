package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 4500 characters of uniform prose split into three chunks, the last
// absorbing the short tail.
func TestSplitUniformProse(t *testing.T) {
	text := strings.Repeat("alpha beta gamma ", 264) + "alpha beta g" // 4500 chars
	require.Len(t, text, 4500)

	chunks := New(DefaultOptions()).Split(text)

	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.NotEmpty(t, chunk.Text)
	}
	// First two chunks sit near the configured size, the tail is absorbed
	// into the last one.
	assert.InDelta(t, 1500, len(chunks[0].Text), 20)
	assert.InDelta(t, 1500, len(chunks[1].Text), 20)
	assert.Greater(t, len(chunks[2].Text), 1500)
	assert.Equal(t, 4500, chunks[2].EndOffset)
}

// Consecutive chunks overlap: each chunk after the first starts before the
// previous one ends.
func TestSplitOverlap(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)

	chunks := New(DefaultOptions()).Split(text)

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].StartOffset, chunks[i-1].EndOffset,
			"chunk %d must start inside chunk %d", i, i-1)
	}
}

// A paragraph break inside the tail window wins over a hard cut at the size
// limit.
func TestSplitPrefersParagraphBreak(t *testing.T) {
	text := strings.Repeat("a", 1450) + "\n\n" + strings.Repeat("b", 1548) // 3000 chars

	chunks := New(DefaultOptions()).Split(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 1450), chunks[0].Text)
	assert.Equal(t, 1450, chunks[0].EndOffset)
	assert.NotContains(t, chunks[0].Text, "b")
	assert.NotContains(t, chunks[1].Text, "a")
}

func TestSplitSentenceBoundary(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog and keeps going for a while. "
	text := strings.Repeat(sentence, 45) // 3330 chars

	chunks := New(DefaultOptions()).Split(text)

	require.Greater(t, len(chunks), 1)
	// Every chunk but the last ends on a sentence terminator.
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(chunk.Text, "."), "chunk ends with %q", chunk.Text[len(chunk.Text)-10:])
	}
}

func TestSplitEmpty(t *testing.T) {
	svc := New(DefaultOptions())
	assert.Nil(t, svc.Split(""))
	assert.Nil(t, svc.Split("   \n\t  "))
}

// Input below the minimum size still yields exactly one chunk, with offsets
// into the original text rather than the trimmed copy.
func TestSplitShortInput(t *testing.T) {
	chunks := New(DefaultOptions()).Split("just a short note")

	require.Len(t, chunks, 1)
	assert.Equal(t, "just a short note", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len("just a short note"), chunks[0].EndOffset)

	chunks = New(DefaultOptions()).Split("  \n just a short note\n")

	require.Len(t, chunks, 1)
	assert.Equal(t, "just a short note", chunks[0].Text)
	assert.Equal(t, 4, chunks[0].StartOffset)
	assert.Equal(t, 4+len("just a short note"), chunks[0].EndOffset)
}

// Chunk sizes and cut points are counted in characters, so multibyte text
// without word boundaries still splits cleanly and every chunk stays valid
// UTF-8.
func TestSplitMultibyteProse(t *testing.T) {
	text := "a" + strings.Repeat("é", 2000) // 2001 characters, 4001 bytes

	chunks := New(DefaultOptions()).Split(text)

	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Text), "chunk %d is not valid UTF-8", chunk.Index)
		assert.Equal(t, chunk.EndOffset-chunk.StartOffset, utf8.RuneCountInString(chunk.Text))
	}
	assert.Equal(t, 1500, utf8.RuneCountInString(chunks[0].Text))
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 1500, chunks[0].EndOffset)
	// The second chunk starts one overlap before the first ends and runs to
	// the end of the text.
	assert.Equal(t, 1300, chunks[1].StartOffset)
	assert.Equal(t, 2001, chunks[1].EndOffset)
}

// Concatenated chunks cover every non-whitespace character of the input.
func TestSplitCoversInput(t *testing.T) {
	text := strings.Repeat("one two three four five six seven eight nine ten. ", 80)

	chunks := New(DefaultOptions()).Split(text)
	require.NotEmpty(t, chunks)

	var joined strings.Builder
	covered := 0
	for _, chunk := range chunks {
		start := chunk.StartOffset
		if start < covered {
			start = covered
		}
		joined.WriteString(text[start:chunk.EndOffset])
		covered = chunk.EndOffset
	}
	assert.Equal(t,
		strings.Join(strings.Fields(text), " "),
		strings.Join(strings.Fields(joined.String()), " "))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}
