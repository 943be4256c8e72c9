package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normalizes windows line endings",
			input:    "hello\r\nworld",
			expected: "hello\nworld",
		},
		{
			name:     "collapses horizontal whitespace",
			input:    "hello    world\tfoo",
			expected: "hello world foo",
		},
		{
			name:     "removes page number only lines",
			input:    "content here\n42\nmore content",
			expected: "content here\nmore content",
		},
		{
			name:     "collapses excess blank lines",
			input:    "first\n\n\n\n\nsecond",
			expected: "first\n\nsecond",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "  \n  text  \n  ",
			expected: "text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestIsJunk(t *testing.T) {
	tests := []struct {
		name  string
		input string
		junk  bool
	}{
		{
			name:  "literal marker",
			input: "User Prompt some leaked instruction text here please",
			junk:  true,
		},
		{
			name:  "numbered marker case insensitive",
			input: "this block contains user   prompt 42 and other words around it",
			junk:  true,
		},
		{
			name:  "too few tokens",
			input: "only four words here",
			junk:  true,
		},
		{
			name:  "normal content",
			input: "The system processes documents through several stages before indexing.",
			junk:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.junk, IsJunk(tt.input))
		})
	}
}

func TestIsValidChunk(t *testing.T) {
	valid := "The retrieval pipeline embeds every chunk and stores vectors for similarity search."
	assert.True(t, IsValidChunk(valid, 1500))

	// Too short
	assert.False(t, IsValidChunk("short text only", 1500))

	// Over the ceiling
	assert.False(t, IsValidChunk(strings.Repeat("long word sequence ", 100), 1500))

	// No real word
	assert.False(t, IsValidChunk(strings.Repeat("12 34 56 78 90 ", 5), 1500))
}

func TestSplit(t *testing.T) {
	cfg := ChunkConfig{
		TargetSize: 1000,
		Overlap:    200,
		MinSize:    500,
		MaxSize:    1200,
	}

	t.Run("short text stays one chunk", func(t *testing.T) {
		text := "The quick brown fox jumps over the lazy dog near the river bank."
		chunks := Split(text, cfg)
		require.Len(t, chunks, 1)
		assert.Equal(t, text, chunks[0])
	})

	t.Run("paragraphs accumulate until ceiling", func(t *testing.T) {
		para := strings.Repeat("Sentence about systems engineering practices. ", 7) // ~320 chars
		text := strings.Join([]string{para, para, para, para}, "\n\n")
		chunks := Split(text, cfg)
		require.True(t, len(chunks) >= 2)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), cfg.MaxSize)
		}
	})

	t.Run("paragraph pass never duplicates text", func(t *testing.T) {
		first := strings.TrimSpace(strings.Repeat("Opening paragraph sentences describe the design goals in detail. ", 9))   // ~590 chars
		second := strings.TrimSpace(strings.Repeat("Closing paragraph sentences cover operational concerns thoroughly. ", 10)) // ~680 chars
		chunks := Split(first+"\n\n"+second, cfg)
		require.Len(t, chunks, 2)
		assert.Equal(t, first, chunks[0])
		assert.Equal(t, second, chunks[1])
	})

	t.Run("oversized accumulated buffer is re-split", func(t *testing.T) {
		// 短段落后跟大段落：缓冲未达最小长度时不封块，
		// 合并后的块超过上限，必须被第二遍递归切分兜住。
		small := strings.TrimSpace(strings.Repeat("Brief intro sentence with a handful of words in it. ", 8))      // ~420 chars
		large := strings.TrimSpace(strings.Repeat("A much longer body paragraph that keeps on describing things. ", 19)) // ~1170 chars
		chunks := Split(small+"\n\n"+large, cfg)
		require.True(t, len(chunks) >= 2)
		for i, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), cfg.MaxSize, "chunk %d exceeds ceiling", i)
		}
	})

	t.Run("oversized paragraph falls back to recursive split", func(t *testing.T) {
		text := strings.Repeat("A long sentence that keeps going with many words. ", 60) // ~3000 chars
		chunks := Split(text, cfg)
		require.True(t, len(chunks) >= 3)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), cfg.TargetSize)
		}
	})

	t.Run("adjacent recursive chunks share overlap", func(t *testing.T) {
		text := strings.Repeat("Words flow through the splitter in order. ", 60)
		chunks := Split(text, cfg)
		require.True(t, len(chunks) >= 2)
		tail := string([]rune(chunks[0])[len([]rune(chunks[0]))-50:])
		assert.Contains(t, chunks[1], strings.TrimSpace(tail)[:20])
	})

	t.Run("junk chunks are dropped", func(t *testing.T) {
		chunks := Split("User Prompt 17 leaked marker here with words", cfg)
		assert.Empty(t, chunks)
	})
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}

	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity(a, c), 1e-9)

	// Mismatched lengths
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{1, 0}))

	// Zero vector
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{0, 0, 0}))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.6872, RoundScore(0.68719))
	assert.Equal(t, 0.7, RoundScore(0.70004))
	assert.Equal(t, 1.0, RoundScore(0.99996))
}
