package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/docseek/internal/pkg/textutil"
	"github.com/kart-io/docseek/pkg/llm"
)

const chunkEnrichSystemPrompt = `You rewrite document passages to make them self-contained and searchable.
Keep all facts, names and numbers. Do not add information. Respond with the rewritten passage only.`

const queryEnrichSystemPrompt = `You rewrite user questions to improve document retrieval.
Expand abbreviations and make the information need explicit. Respond with the rewritten question only.`

// Enricher 通过对话模型改写文本以提升检索质量。
// 改写属于质量优化而非正确性要求：任何失败都回退到原文。
type Enricher struct {
	provider llm.ChatProvider
	enabled  bool
}

// NewEnricher 创建改写器。provider 为 nil 时改写关闭，全部返回原文。
func NewEnricher(provider llm.ChatProvider, enabled bool) *Enricher {
	return &Enricher{
		provider: provider,
		enabled:  enabled && provider != nil,
	}
}

// EnrichChunk 改写文档块。失败时返回原文。
func (e *Enricher) EnrichChunk(ctx context.Context, text string) string {
	return e.enrich(ctx, text, chunkEnrichSystemPrompt)
}

// EnrichQuery 改写查询。失败时返回原文。
func (e *Enricher) EnrichQuery(ctx context.Context, question string) string {
	return e.enrich(ctx, question, queryEnrichSystemPrompt)
}

func (e *Enricher) enrich(ctx context.Context, text, systemPrompt string) string {
	if !e.enabled {
		return text
	}

	enriched, err := e.provider.Generate(ctx, text, systemPrompt)
	if err != nil {
		logger.Warnw("enrichment failed, falling back to raw text",
			"error", err.Error(),
			"text", textutil.TruncateString(text, 50),
		)
		return text
	}

	enriched = strings.TrimSpace(enriched)
	if enriched == "" {
		return text
	}
	return enriched
}
