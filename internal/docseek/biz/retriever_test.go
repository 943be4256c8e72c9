package biz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docseek/internal/docseek/store"
)

func newTestRetriever(vectors store.VectorStore) *Retriever {
	return NewRetriever(vectors, &RetrieverConfig{
		ChunkLimit: 10,
		ImageLimit: 2,
		ScoreFloor: 0.68,
		Candidates: 200,
	})
}

func TestRetrieveChunksAppliesFloor(t *testing.T) {
	vs := newFakeVectorStore()
	vs.chunkHits = []*store.ChunkHit{
		{DocumentID: "d1", DocumentName: "a.txt", Index: 0, Content: "high", Score: 0.91},
		{DocumentID: "d1", DocumentName: "a.txt", Index: 1, Content: "edge", Score: 0.68},
		{DocumentID: "d2", DocumentName: "b.txt", Index: 0, Content: "low", Score: 0.679},
	}
	r := newTestRetriever(vs)

	ranked, err := r.RetrieveChunks(context.Background(), "tenant-a", []float32{1})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	for _, c := range ranked {
		assert.GreaterOrEqual(t, c.Score, 0.68)
	}
}

func TestRetrieveChunksOrderAndRounding(t *testing.T) {
	vs := newFakeVectorStore()
	vs.chunkHits = []*store.ChunkHit{
		{DocumentID: "d1", DocumentName: "a.txt", Index: 0, Content: "x", Score: 0.70004},
		{DocumentID: "d1", DocumentName: "a.txt", Index: 1, Content: "y", Score: 0.91236},
		{DocumentID: "d1", DocumentName: "a.txt", Index: 2, Content: "z", Score: 0.68719},
	}
	r := newTestRetriever(vs)

	ranked, err := r.RetrieveChunks(context.Background(), "tenant-a", []float32{1})
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, 0.9124, ranked[0].Score)
	assert.Equal(t, 0.7, ranked[1].Score)
	assert.Equal(t, 0.6872, ranked[2].Score)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRetrieveChunksLimit(t *testing.T) {
	vs := newFakeVectorStore()
	for i := 0; i < 50; i++ {
		vs.chunkHits = append(vs.chunkHits, &store.ChunkHit{
			DocumentID: "d1",
			Index:      i,
			Content:    fmt.Sprintf("chunk %d", i),
			Score:      0.95,
		})
	}
	r := newTestRetriever(vs)

	ranked, err := r.RetrieveChunks(context.Background(), "tenant-a", []float32{1})
	require.NoError(t, err)
	assert.Len(t, ranked, 10)
}

func TestRetrieveChunksSearchFailureRaises(t *testing.T) {
	vs := newFakeVectorStore()
	vs.searchErr = fmt.Errorf("milvus down")
	r := newTestRetriever(vs)

	_, err := r.RetrieveChunks(context.Background(), "tenant-a", []float32{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk search failed")
}

func TestRetrieveChunksRequiresTenant(t *testing.T) {
	r := newTestRetriever(newFakeVectorStore())
	_, err := r.RetrieveChunks(context.Background(), "", []float32{1})
	require.Error(t, err)
}

func TestRetrieveImagesDegradesOnFailure(t *testing.T) {
	vs := newFakeVectorStore()
	vs.imageErr = fmt.Errorf("milvus down")
	r := newTestRetriever(vs)

	images := r.RetrieveImages(context.Background(), "tenant-a", []float32{1})
	assert.Empty(t, images)
}

func TestRetrieveImagesFloorAndLimit(t *testing.T) {
	vs := newFakeVectorStore()
	vs.imageHits = []*store.ImageHit{
		{ImageID: "i1", FileName: "one.png", Score: 0.9},
		{ImageID: "i2", FileName: "two.png", Score: 0.8},
		{ImageID: "i3", FileName: "three.png", Score: 0.75},
		{ImageID: "i4", FileName: "four.png", Score: 0.5},
	}
	r := newTestRetriever(vs)

	images := r.RetrieveImages(context.Background(), "tenant-a", []float32{1})
	require.Len(t, images, 2)
	assert.Equal(t, "i1", images[0].ImageID)
	assert.Equal(t, "i2", images[1].ImageID)
}

func TestCandidatePool(t *testing.T) {
	assert.Equal(t, 30, candidatePool(10))
	assert.Equal(t, 6, candidatePool(2))
	assert.Equal(t, 100, candidatePool(40))
}
