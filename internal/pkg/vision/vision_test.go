package vision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docseek/pkg/llm"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		tags       []string
		categories []string
		caption    string
	}{
		{
			name:       "well formed output",
			output:     "Tags: cat, animal, pet\nCategories: nature, photography\nCaption: A cat sitting on a windowsill.",
			tags:       []string{"cat", "animal", "pet"},
			categories: []string{"nature", "photography"},
			caption:    "A cat sitting on a windowsill.",
		},
		{
			name:    "case insensitive prefixes",
			output:  "TAGS: chart\nCAPTION: A bar chart.",
			tags:    []string{"chart"},
			caption: "A bar chart.",
		},
		{
			name:    "unprefixed lines join the caption",
			output:  "Caption: First part.\nSecond part continues here.",
			caption: "First part. Second part continues here.",
		},
		{
			name:   "empty list items dropped",
			output: "Tags: one, , two,\nCaption:",
			tags:   []string{"one", "two"},
		},
		{
			name: "empty output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := ParseAnalysis(tt.output)
			assert.Equal(t, tt.tags, analysis.Tags)
			assert.Equal(t, tt.categories, analysis.Categories)
			assert.Equal(t, tt.caption, analysis.Caption)
		})
	}
}

func TestSearchText(t *testing.T) {
	a := &Analysis{
		Tags:    []string{"cat", "pet"},
		Caption: "A cat on a mat.",
	}
	assert.Equal(t, "cat, pet. A cat on a mat.", a.SearchText())

	empty := &Analysis{}
	assert.Equal(t, "", empty.SearchText())

	tagsOnly := &Analysis{Tags: []string{"dog"}}
	assert.Equal(t, "dog", tagsOnly.SearchText())
}

// fakeChatProvider 返回固定输出的测试替身。
type fakeChatProvider struct {
	output string
	err    error
}

func (f *fakeChatProvider) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return f.output, f.err
}

func (f *fakeChatProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return f.output, f.err
}

func (f *fakeChatProvider) Name() string { return "fake" }

func TestChatAnalyzerAnalyze(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("fake png bytes"), 0o600))

	analyzer := NewChatAnalyzer(&fakeChatProvider{
		output: "Tags: sunset, beach\nCategories: travel\nCaption: Sunset over the ocean.",
	})

	analysis, err := analyzer.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sunset", "beach"}, analysis.Tags)
	assert.Equal(t, []string{"travel"}, analysis.Categories)
	assert.Equal(t, "Sunset over the ocean.", analysis.Caption)
}

func TestChatAnalyzerMissingFile(t *testing.T) {
	analyzer := NewChatAnalyzer(&fakeChatProvider{})
	_, err := analyzer.Analyze(context.Background(), "/nonexistent/image.png")
	require.Error(t, err)
}
