package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/docseek/internal/model"
	"github.com/kart-io/docseek/pkg/llm"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

const answerSystemPrompt = `You are a knowledge base assistant. Answer the question strictly from the provided context.
If the context does not contain the answer, say explicitly that you don't have enough information.
Fall back to the recent conversation history only when the context is absent or unclear.
Do not invent facts that are not in the context.`

// contextDivider 上下文块之间的可见分隔符。
const contextDivider = "\n\n---\n\n"

// Turn 表示一轮历史对话，只保留发送方与文本。
type Turn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// QueryConfig 查询编排配置。
type QueryConfig struct {
	// ImageShortCircuit 图片命中时是否跳过文本生成。
	// 这是可配置策略：图片命中会完全顶掉文本检索结果。
	ImageShortCircuit bool
}

// QueryOrchestrator 负责单次查询的完整编排。
type QueryOrchestrator struct {
	embedder  *Embedder
	enricher  *Enricher
	retriever *Retriever
	cache     *QueryCache
	chat      llm.ChatProvider
	config    *QueryConfig
}

// NewQueryOrchestrator 创建查询编排器。
func NewQueryOrchestrator(
	embedder *Embedder,
	enricher *Enricher,
	retriever *Retriever,
	cache *QueryCache,
	chat llm.ChatProvider,
	config *QueryConfig,
) *QueryOrchestrator {
	return &QueryOrchestrator{
		embedder:  embedder,
		enricher:  enricher,
		retriever: retriever,
		cache:     cache,
		chat:      chat,
		config:    config,
	}
}

// Answer 回答一次用户查询。
// 管线内任何未处理的失败都折叠为通用错误返回，完整细节记入日志；
// 改写失败等部分失败回退处理，不中断本轮。
func (q *QueryOrchestrator) Answer(ctx context.Context, tenantID, question string, history []Turn) (*model.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errno.ErrEmptyQuestion
	}

	// 仅缓存不带历史的查询
	cacheable := len(history) == 0
	if cacheable && q.cache != nil {
		if cached := q.cache.Get(ctx, tenantID, question); cached != nil {
			return cached, nil
		}
	}

	result, err := q.answer(ctx, tenantID, question, history)
	if err != nil {
		logger.Errorw("query pipeline failed",
			"tenant_id", tenantID,
			"question", question,
			"error", err.Error(),
		)
		return nil, errno.ErrQueryFailed.WithCause(err)
	}

	if cacheable && q.cache != nil {
		q.cache.Set(ctx, tenantID, question, result)
	}
	return result, nil
}

func (q *QueryOrchestrator) answer(ctx context.Context, tenantID, question string, history []Turn) (*model.QueryResult, error) {
	// 1. 查询改写（失败回退原问题）
	enriched := q.enricher.EnrichQuery(ctx, question)

	// 2. 嵌入查询
	embedding, err := q.embedder.EmbedOne(ctx, enriched)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// 3. 并发检索文本块与图片：二者是互相独立的只读操作
	var (
		wg       sync.WaitGroup
		chunks   []*RankedChunk
		images   []*RankedImage
		chunkErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		chunks, chunkErr = q.retriever.RetrieveChunks(ctx, tenantID, embedding)
	}()
	go func() {
		defer wg.Done()
		images = q.retriever.RetrieveImages(ctx, tenantID, embedding)
	}()
	wg.Wait()

	if chunkErr != nil {
		return nil, chunkErr
	}

	// 4. 图片命中直接返回，不再生成文本回答
	if q.config.ImageShortCircuit && len(images) > 0 {
		return &model.QueryResult{
			Answer: "",
			Images: toImageSources(images),
		}, nil
	}

	// 5. 组装上下文并生成回答
	answer, err := q.complete(ctx, question, chunks, history)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return &model.QueryResult{
		Answer:  strings.TrimSpace(answer),
		Sources: toChunkSources(chunks),
	}, nil
}

// complete 调用对话模型生成回答。
func (q *QueryOrchestrator) complete(ctx context.Context, question string, chunks []*RankedChunk, history []Turn) (string, error) {
	contextText := AssembleContext(chunks)
	if contextText == "" {
		contextText = "(no relevant context found)"
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: answerSystemPrompt + "\n\nContext:\n" + contextText,
	})
	for _, turn := range history {
		role := llm.RoleAssistant
		if strings.EqualFold(turn.Sender, "user") {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	return q.chat.Chat(ctx, messages)
}

// AssembleContext 把检索结果按排名顺序拼接为上下文字符串。
// 每个块带 [Source: <文件名>] 标记，块之间用可见分隔符隔开。
func AssembleContext(chunks []*RankedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Source: %s]\n%s", chunk.DocumentName, chunk.Content)
	}
	return strings.Join(parts, contextDivider)
}

func toChunkSources(chunks []*RankedChunk) []model.ChunkSource {
	sources := make([]model.ChunkSource, len(chunks))
	for i, chunk := range chunks {
		sources[i] = model.ChunkSource{
			FileID:     chunk.DocumentID,
			FileName:   chunk.DocumentName,
			ChunkIndex: chunk.Index,
			Score:      chunk.Score,
		}
	}
	return sources
}

func toImageSources(images []*RankedImage) []model.ImageSource {
	sources := make([]model.ImageSource, len(images))
	for i, img := range images {
		sources[i] = model.ImageSource{
			ImageID:  img.ImageID,
			FileName: img.FileName,
			Caption:  img.Caption,
			Score:    img.Score,
		}
	}
	return sources
}
