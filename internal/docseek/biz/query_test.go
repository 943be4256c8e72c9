package biz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docseek/internal/docseek/store"
	"github.com/kart-io/docseek/pkg/llm"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

func newTestOrchestrator(vs *fakeVectorStore, chat *fakeChatProvider, shortCircuit bool) *QueryOrchestrator {
	embedder := newTestEmbedder(newFakeEmbedProvider())
	retriever := newTestRetriever(vs)
	enricher := NewEnricher(nil, false)
	return NewQueryOrchestrator(embedder, enricher, retriever, nil, chat, &QueryConfig{
		ImageShortCircuit: shortCircuit,
	})
}

func TestAnswerEmptyQuestion(t *testing.T) {
	q := newTestOrchestrator(newFakeVectorStore(), &fakeChatProvider{}, true)

	_, err := q.Answer(context.Background(), "tenant-a", "   ", nil)
	require.Error(t, err)
	assert.True(t, errno.IsCode(err, errno.ErrEmptyQuestion.Code))
}

func TestAnswerReturnsSourcesAndTrimmedAnswer(t *testing.T) {
	vs := newFakeVectorStore()
	vs.chunkHits = []*store.ChunkHit{
		{DocumentID: "d1", DocumentName: "guide.md", Index: 3, Content: "Install with the setup script.", Score: 0.88},
	}
	chat := &fakeChatProvider{answer: "  Run the setup script.  "}
	q := newTestOrchestrator(vs, chat, true)

	result, err := q.Answer(context.Background(), "tenant-a", "how do I install?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Run the setup script.", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "d1", result.Sources[0].FileID)
	assert.Equal(t, "guide.md", result.Sources[0].FileName)
	assert.Equal(t, 3, result.Sources[0].ChunkIndex)
	assert.Equal(t, 0.88, result.Sources[0].Score)
}

func TestAnswerImageShortCircuit(t *testing.T) {
	vs := newFakeVectorStore()
	vs.chunkHits = []*store.ChunkHit{
		{DocumentID: "d1", DocumentName: "a.txt", Index: 0, Content: "highly relevant text", Score: 0.99},
	}
	vs.imageHits = []*store.ImageHit{
		{ImageID: "img-1", FileName: "diagram.png", Caption: "System diagram.", Score: 0.8},
	}
	chat := &fakeChatProvider{answer: "should not be called"}
	q := newTestOrchestrator(vs, chat, true)

	result, err := q.Answer(context.Background(), "tenant-a", "show me the diagram", nil)
	require.NoError(t, err)

	// 图片命中顶掉文本生成：answer 为空，images 填充，不调用对话模型
	assert.Empty(t, result.Answer)
	assert.Empty(t, result.Sources)
	require.Len(t, result.Images, 1)
	assert.Equal(t, "img-1", result.Images[0].ImageID)
	assert.Nil(t, chat.messages)
}

func TestAnswerImageShortCircuitDisabled(t *testing.T) {
	vs := newFakeVectorStore()
	vs.chunkHits = []*store.ChunkHit{
		{DocumentID: "d1", DocumentName: "a.txt", Index: 0, Content: "text", Score: 0.9},
	}
	vs.imageHits = []*store.ImageHit{
		{ImageID: "img-1", FileName: "diagram.png", Score: 0.8},
	}
	chat := &fakeChatProvider{answer: "text answer"}
	q := newTestOrchestrator(vs, chat, false)

	result, err := q.Answer(context.Background(), "tenant-a", "question here", nil)
	require.NoError(t, err)
	assert.Equal(t, "text answer", result.Answer)
	require.Len(t, result.Sources, 1)
}

func TestAnswerEmptyRetrievalStillCompletes(t *testing.T) {
	chat := &fakeChatProvider{answer: "I don't have enough information to answer that."}
	q := newTestOrchestrator(newFakeVectorStore(), chat, true)

	result, err := q.Answer(context.Background(), "tenant-a", "unknown topic", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
	assert.Contains(t, result.Answer, "enough information")
}

func TestAnswerGenericErrorOnSearchFailure(t *testing.T) {
	vs := newFakeVectorStore()
	vs.searchErr = fmt.Errorf("milvus connection refused")
	q := newTestOrchestrator(vs, &fakeChatProvider{}, true)

	_, err := q.Answer(context.Background(), "tenant-a", "any question", nil)
	require.Error(t, err)
	assert.True(t, errno.IsCode(err, errno.ErrQueryFailed.Code))

	// 对外错误信息保持通用，内部原因只在 cause 中
	e := errno.FromError(err)
	assert.Equal(t, "Failed to process query", e.MessageEN)
}

func TestAnswerForwardsHistory(t *testing.T) {
	vs := newFakeVectorStore()
	vs.chunkHits = []*store.ChunkHit{
		{DocumentID: "d1", DocumentName: "a.txt", Index: 0, Content: "context text", Score: 0.9},
	}
	chat := &fakeChatProvider{answer: "followup answer"}
	q := newTestOrchestrator(vs, chat, true)

	history := []Turn{
		{Sender: "user", Text: "first question"},
		{Sender: "assistant", Text: "first answer"},
	}
	_, err := q.Answer(context.Background(), "tenant-a", "followup", history)
	require.NoError(t, err)

	require.Len(t, chat.messages, 4) // system + 2 turns + question
	assert.Equal(t, llm.RoleSystem, chat.messages[0].Role)
	assert.Equal(t, llm.RoleUser, chat.messages[1].Role)
	assert.Equal(t, "first question", chat.messages[1].Content)
	assert.Equal(t, llm.RoleAssistant, chat.messages[2].Role)
	assert.Equal(t, "followup", chat.messages[3].Content)
}

func TestAssembleContext(t *testing.T) {
	chunks := []*RankedChunk{
		{DocumentName: "a.txt", Content: "First chunk."},
		{DocumentName: "b.md", Content: "Second chunk."},
	}
	got := AssembleContext(chunks)
	want := "[Source: a.txt]\nFirst chunk.\n\n---\n\n[Source: b.md]\nSecond chunk."
	assert.Equal(t, want, got)

	assert.Equal(t, "", AssembleContext(nil))
}
