package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/docseek/internal/pkg/textutil"
	"github.com/kart-io/docseek/pkg/llm"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

// EmbedderConfig 嵌入器配置。
type EmbedderConfig struct {
	// BatchSize 单次调用嵌入模型的最大文本数。
	BatchSize int
	// Dimension 模型输出向量的固定维度。
	Dimension int
}

// Embedder 负责把文本批量转换为定长向量。
// 模型句柄延迟初始化，并发首次调用只触发一次初始化。
// 供应商返回的向量必须满足配置的维度，否则整批失败。
type Embedder struct {
	provider llm.EmbeddingProvider
	config   *EmbedderConfig

	initOnce sync.Once
	initErr  error
}

// NewEmbedder 创建嵌入器实例。
func NewEmbedder(provider llm.EmbeddingProvider, config *EmbedderConfig) *Embedder {
	if config.BatchSize <= 0 {
		config.BatchSize = 4
	}
	return &Embedder{
		provider: provider,
		config:   config,
	}
}

// ensureInit 单次初始化：用探针文本验证供应商可用且维度正确。
func (e *Embedder) ensureInit(ctx context.Context) error {
	e.initOnce.Do(func() {
		vec, err := e.provider.EmbedSingle(ctx, "initialization probe")
		if err != nil {
			e.initErr = fmt.Errorf("embedding provider unavailable: %w", err)
			return
		}
		if len(vec) != e.config.Dimension {
			e.initErr = fmt.Errorf("embedding dimension mismatch: expected %d, got %d",
				e.config.Dimension, len(vec))
			return
		}
		logger.Infow("embedding provider initialized",
			"provider", e.provider.Name(),
			"dimension", e.config.Dimension,
		)
	})
	return e.initErr
}

// validateTexts 入口校验：所有文本必须非空。
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return errno.ErrInvalidParam.WithMessage("no texts to embed")
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return errno.ErrInvalidParam.WithMessagef("text at index %d is empty", i)
		}
	}
	return nil
}

// Embed 批量生成向量嵌入。
// 文本按批次大小切分提交，任一批次失败整个调用失败，
// 错误信息附带失败批次首条文本的片段用于定位。
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	if err := e.ensureInit(ctx); err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		batchVectors, err := e.provider.Embed(ctx, batch)
		if err != nil {
			snippet := textutil.TruncateString(batch[0], 50)
			return nil, fmt.Errorf("embedding batch starting at %d failed (first text: %q): %w",
				start, snippet, err)
		}
		if len(batchVectors) != len(batch) {
			return nil, fmt.Errorf("embedding batch starting at %d returned %d vectors for %d texts",
				start, len(batchVectors), len(batch))
		}
		for i, vec := range batchVectors {
			if len(vec) != e.config.Dimension {
				return nil, fmt.Errorf("embedding at index %d has dimension %d, expected %d",
					start+i, len(vec), e.config.Dimension)
			}
		}

		vectors = append(vectors, batchVectors...)
	}

	return vectors, nil
}

// EmbedOne 为单个文本生成向量嵌入。
// 与 Embed 走同一条路径，保证单条与批量的结果一致。
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension 返回配置的向量维度。
func (e *Embedder) Dimension() int {
	return e.config.Dimension
}

// ProviderName 返回底层供应商名称。
func (e *Embedder) ProviderName() string {
	return e.provider.Name()
}
