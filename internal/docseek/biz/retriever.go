package biz

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/logger"

	"github.com/kart-io/docseek/internal/docseek/store"
	"github.com/kart-io/docseek/internal/pkg/textutil"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// ChunkLimit 文本检索返回的最大条数。
	ChunkLimit int
	// ImageLimit 图片检索返回的最大条数。
	ImageLimit int
	// ScoreFloor 相似度下限，低于该值的候选被丢弃。
	ScoreFloor float64
	// Candidates 向底层 ANN 搜索请求的候选数量。
	Candidates int
}

// RankedChunk 表示排序后的文本检索结果。
type RankedChunk struct {
	DocumentID   string
	DocumentName string
	Index        int
	Content      string
	Score        float64
}

// RankedImage 表示排序后的图片检索结果。
type RankedImage struct {
	ImageID  string
	FileName string
	Caption  string
	Score    float64
}

// Retriever 负责租户范围内的相似度检索与排序。
// 文本检索失败向调用方抛出，图片检索失败降级为空结果。
type Retriever struct {
	vectors store.VectorStore
	config  *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectors store.VectorStore, config *RetrieverConfig) *Retriever {
	return &Retriever{
		vectors: vectors,
		config:  config,
	}
}

// candidatePool 返回排序前保留的候选池大小：min(limit*3, 100)。
func candidatePool(limit int) int {
	pool := limit * 3
	if pool > 100 {
		pool = 100
	}
	return pool
}

// RetrieveChunks 检索租户的文本块。
// 底层搜索失败是真实错误，必须向调用方暴露。
func (r *Retriever) RetrieveChunks(ctx context.Context, tenantID string, embedding []float32) ([]*RankedChunk, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required for retrieval")
	}

	hits, err := r.vectors.SearchChunks(ctx, tenantID, embedding, r.config.Candidates)
	if err != nil {
		return nil, fmt.Errorf("chunk search failed: %w", err)
	}

	return r.rankChunks(hits, r.config.ChunkLimit), nil
}

// RetrieveChunksByDocument 在单个文档范围内检索文本块。
func (r *Retriever) RetrieveChunksByDocument(ctx context.Context, tenantID, documentID string, embedding []float32) ([]*RankedChunk, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required for retrieval")
	}

	hits, err := r.vectors.SearchChunksByDocument(ctx, tenantID, documentID, embedding, r.config.Candidates)
	if err != nil {
		return nil, fmt.Errorf("document chunk search failed: %w", err)
	}

	return r.rankChunks(hits, r.config.ChunkLimit), nil
}

// rankChunks 应用候选池、相似度下限与稳定排序。
func (r *Retriever) rankChunks(hits []*store.ChunkHit, limit int) []*RankedChunk {
	pool := candidatePool(limit)
	if len(hits) > pool {
		hits = hits[:pool]
	}

	ranked := make([]*RankedChunk, 0, len(hits))
	for _, hit := range hits {
		score := float64(hit.Score)
		if score < r.config.ScoreFloor {
			continue
		}
		ranked = append(ranked, &RankedChunk{
			DocumentID:   hit.DocumentID,
			DocumentName: hit.DocumentName,
			Index:        hit.Index,
			Content:      hit.Content,
			Score:        textutil.RoundScore(score),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// RetrieveImages 检索租户的图片单元。
// 图片匹配是尽力而为：搜索失败记录日志并返回空结果，不影响文本回答。
func (r *Retriever) RetrieveImages(ctx context.Context, tenantID string, embedding []float32) []*RankedImage {
	if tenantID == "" {
		return nil
	}

	hits, err := r.vectors.SearchImages(ctx, tenantID, embedding, r.config.Candidates)
	if err != nil {
		logger.Warnw("image search failed, degrading to empty result",
			"tenant_id", tenantID,
			"error", err.Error(),
		)
		return nil
	}

	pool := candidatePool(r.config.ImageLimit)
	if len(hits) > pool {
		hits = hits[:pool]
	}

	ranked := make([]*RankedImage, 0, len(hits))
	for _, hit := range hits {
		score := float64(hit.Score)
		if score < r.config.ScoreFloor {
			continue
		}
		ranked = append(ranked, &RankedImage{
			ImageID:  hit.ImageID,
			FileName: hit.FileName,
			Caption:  hit.Caption,
			Score:    textutil.RoundScore(score),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > r.config.ImageLimit {
		ranked = ranked[:r.config.ImageLimit]
	}
	return ranked
}
