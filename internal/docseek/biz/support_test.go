package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/docseek/internal/docseek/store"
	"github.com/kart-io/docseek/pkg/llm"
)

const testDim = 8

// fakeEmbedProvider 确定性嵌入供应商。
// 每个文本映射到一个固定向量，记录批次大小供断言。
type fakeEmbedProvider struct {
	mu         sync.Mutex
	batchSizes []int
	failOn     string // 包含该子串的文本触发失败
	dim        int
}

func newFakeEmbedProvider() *fakeEmbedProvider {
	return &fakeEmbedProvider{dim: testDim}
}

func (f *fakeEmbedProvider) vectorFor(text string) []float32 {
	vec := make([]float32, f.dim)
	for i, r := range text {
		vec[i%f.dim] += float32(r % 13)
	}
	// 归一化到单位长度，便于余弦分数可控
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		inv := 1 / sqrt32(norm)
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func sqrt32(x float32) float32 {
	// 牛顿迭代足够测试精度
	z := x / 2
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func (f *fakeEmbedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(texts))
	f.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if f.failOn != "" && strings.Contains(text, f.failOn) {
			return nil, fmt.Errorf("embed failure for %q", text)
		}
		out[i] = f.vectorFor(text)
	}
	return out, nil
}

func (f *fakeEmbedProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedProvider) Name() string { return "fake-embed" }

// fakeChatProvider 固定输出的对话供应商。
type fakeChatProvider struct {
	answer   string
	err      error
	messages []llm.Message
}

func (f *fakeChatProvider) Chat(_ context.Context, messages []llm.Message) (string, error) {
	f.messages = messages
	return f.answer, f.err
}

func (f *fakeChatProvider) Generate(_ context.Context, prompt string, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.answer != "" {
		return f.answer, nil
	}
	return prompt, nil
}

func (f *fakeChatProvider) Name() string { return "fake-chat" }

// fakeVectorStore 内存向量存储。
type fakeVectorStore struct {
	mu         sync.Mutex
	chunks     map[string][]*store.Chunk // tenantID -> chunks
	images     map[string][]*store.ImageUnit
	chunkHits  []*store.ChunkHit // 预置的搜索结果
	imageHits  []*store.ImageHit
	searchErr  error
	imageErr   error
	insertErr  error
	deletedDoc []string
	deletedImg []string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		chunks: make(map[string][]*store.Chunk),
		images: make(map[string][]*store.ImageUnit),
	}
}

func (f *fakeVectorStore) EnsureCollections(_ context.Context, _ int) error { return nil }

func (f *fakeVectorStore) InsertChunks(_ context.Context, tenantID string, chunks []*store.Chunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[tenantID] = append(f.chunks[tenantID], chunks...)
	return nil
}

func (f *fakeVectorStore) SearchChunks(_ context.Context, _ string, _ []float32, topK int) ([]*store.ChunkHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.chunkHits) > topK {
		return f.chunkHits[:topK], nil
	}
	return f.chunkHits, nil
}

func (f *fakeVectorStore) SearchChunksByDocument(_ context.Context, _, documentID string, _ []float32, topK int) ([]*store.ChunkHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var hits []*store.ChunkHit
	for _, h := range f.chunkHits {
		if h.DocumentID == documentID {
			hits = append(hits, h)
		}
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeVectorStore) DeleteByDocument(_ context.Context, _, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedDoc = append(f.deletedDoc, documentID)
	return nil
}

func (f *fakeVectorStore) InsertImageUnit(_ context.Context, tenantID string, unit *store.ImageUnit) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[tenantID] = append(f.images[tenantID], unit)
	return nil
}

func (f *fakeVectorStore) SearchImages(_ context.Context, _ string, _ []float32, topK int) ([]*store.ImageHit, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	if len(f.imageHits) > topK {
		return f.imageHits[:topK], nil
	}
	return f.imageHits, nil
}

func (f *fakeVectorStore) DeleteByImage(_ context.Context, _, imageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedImg = append(f.deletedImg, imageID)
	return nil
}

func (f *fakeVectorStore) ChunkCount(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, chunks := range f.chunks {
		n += int64(len(chunks))
	}
	return n, nil
}

func (f *fakeVectorStore) Close(_ context.Context) error { return nil }

var _ store.VectorStore = (*fakeVectorStore)(nil)

// newTestMetaStore 创建内存元数据存储。
func newTestMetaStore(t *testing.T) store.IStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	s, err := store.NewStore(db)
	require.NoError(t, err)
	return s
}

func newTestEmbedder(provider llm.EmbeddingProvider) *Embedder {
	return NewEmbedder(provider, &EmbedderConfig{BatchSize: 4, Dimension: testDim})
}
