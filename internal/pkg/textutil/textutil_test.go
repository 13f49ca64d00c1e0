package textutil_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kart-io/lectern/internal/pkg/textutil"
	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "empty vectors",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
		{
			name:     "mismatched lengths",
			a:        []float32{1.0, 2.0},
			b:        []float32{1.0},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textutil.CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", textutil.TruncateString("hello", 10))
	assert.Equal(t, "hel", textutil.TruncateString("hello", 3))
	assert.Equal(t, "", textutil.TruncateString("hello", 0))
}

func TestSplitIntoChunks(t *testing.T) {
	t.Run("short text returned whole", func(t *testing.T) {
		chunks := textutil.SplitIntoChunks("short text", 100, 20)
		assert.Equal(t, []string{"short text"}, chunks)
	})

	t.Run("chunks respect size and overlap", func(t *testing.T) {
		// Step is 80, so chunk starts fall at 0, 80 and 160.
		text := strings.Repeat("a", 250)
		chunks := textutil.SplitIntoChunks(text, 100, 20)

		assert.Len(t, chunks, 3)
		for i, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 100, "chunk %d too long", i)
		}
		// Consecutive chunks share the overlap region.
		assert.Equal(t, chunks[0][80:100], chunks[1][:20])
	})

	t.Run("reassembly covers the original text", func(t *testing.T) {
		text := "The quick brown fox jumps over the lazy dog. " + strings.Repeat("x", 300)
		chunks := textutil.SplitIntoChunks(text, 120, 30)

		var rebuilt strings.Builder
		rebuilt.WriteString(chunks[0])
		for _, c := range chunks[1:] {
			runes := []rune(c)
			rebuilt.WriteString(string(runes[30:]))
		}
		assert.Equal(t, text, rebuilt.String())
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		assert.Nil(t, textutil.SplitIntoChunks("text", 0, 0))
	})

	t.Run("overlap clamped below chunk size", func(t *testing.T) {
		text := strings.Repeat("b", 50)
		chunks := textutil.SplitIntoChunks(text, 10, 10)
		assert.NotEmpty(t, chunks)
	})
}
