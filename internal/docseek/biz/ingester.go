package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/docseek/internal/docseek/store"
	"github.com/kart-io/docseek/internal/model"
	"github.com/kart-io/docseek/internal/pkg/extract"
	"github.com/kart-io/docseek/internal/pkg/textutil"
	"github.com/kart-io/docseek/internal/pkg/vision"
	"github.com/kart-io/docseek/pkg/pool"
)

// IngesterConfig 摄取管线配置。
type IngesterConfig struct {
	// Chunk 分块参数。
	Chunk textutil.ChunkConfig
	// MaxChunkLen 入库有效性过滤的长度上限。
	MaxChunkLen int
}

// Ingester 负责文档与图片的摄取管线。
// 文档状态机：uploaded → processing → processed|failed。
// 非表格文档的整体嵌入失败对该文档是致命的；
// 表格文档按行隔离失败，部分成功仍然到达 processed。
type Ingester struct {
	docs      store.DocumentStore
	images    store.ImageStore
	vectors   store.VectorStore
	embedder  *Embedder
	enricher  *Enricher
	extractor *extract.Extractor
	analyzer  vision.Analyzer
	workers   *pool.Pool
	config    *IngesterConfig
}

// NewIngester 创建摄取器实例。workers 可以为 nil，此时行级任务串行执行。
func NewIngester(
	docs store.DocumentStore,
	images store.ImageStore,
	vectors store.VectorStore,
	embedder *Embedder,
	enricher *Enricher,
	extractor *extract.Extractor,
	analyzer vision.Analyzer,
	workers *pool.Pool,
	config *IngesterConfig,
) *Ingester {
	return &Ingester{
		docs:      docs,
		images:    images,
		vectors:   vectors,
		embedder:  embedder,
		enricher:  enricher,
		extractor: extractor,
		analyzer:  analyzer,
		workers:   workers,
		config:    config,
	}
}

// ProcessDocument 执行单个文档的摄取管线。
// 该方法自行完成状态迁移，处理失败不向调用方返回错误。
func (ing *Ingester) ProcessDocument(ctx context.Context, doc *model.Document) {
	if err := ing.docs.UpdateStatus(ctx, doc.TenantID, doc.ID, model.StatusProcessing, ""); err != nil {
		logger.Errorw("failed to mark document processing",
			"document_id", doc.ID, "error", err.Error())
		return
	}

	result, err := ing.extractor.Extract(ctx, doc.StoragePath, doc.MediaType)
	if err != nil {
		ing.fail(ctx, doc, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	var chunkNum int
	if len(result.Rows) > 0 {
		chunkNum = ing.processRows(ctx, doc, result.Rows)
	} else {
		chunkNum, err = ing.processText(ctx, doc, result.Text)
		if err != nil {
			ing.fail(ctx, doc, err.Error())
			return
		}
	}

	if err := ing.docs.SetChunkNum(ctx, doc.TenantID, doc.ID, chunkNum); err != nil {
		logger.Warnw("failed to record chunk count",
			"document_id", doc.ID, "error", err.Error())
	}
	if err := ing.docs.UpdateStatus(ctx, doc.TenantID, doc.ID, model.StatusProcessed, ""); err != nil {
		logger.Errorw("failed to mark document processed",
			"document_id", doc.ID, "error", err.Error())
		return
	}

	logger.Infow("document processed",
		"tenant_id", doc.TenantID,
		"document_id", doc.ID,
		"file", doc.OriginalName,
		"chunks", chunkNum,
	)
}

// processText 处理非表格文档：清洗、分块、过滤、改写、整批嵌入、持久化。
// 嵌入阶段的失败对整个文档是致命的。
func (ing *Ingester) processText(ctx context.Context, doc *model.Document, rawText string) (int, error) {
	cleaned := textutil.CleanText(rawText)
	pieces := textutil.Split(cleaned, ing.config.Chunk)

	// 有效性过滤后重新编号，序号覆盖幸存的块
	var surviving []string
	for _, piece := range pieces {
		if textutil.IsValidChunk(piece, ing.config.MaxChunkLen) {
			surviving = append(surviving, piece)
		}
	}
	if len(surviving) == 0 {
		return 0, nil
	}

	// 并发改写，结果按序号回填；改写失败回退原文，不影响兄弟块
	enriched := make([]string, len(surviving))
	var wg sync.WaitGroup
	for i, piece := range surviving {
		wg.Add(1)
		ing.submit(func(i int, piece string) func() {
			return func() {
				defer wg.Done()
				enriched[i] = ing.enricher.EnrichChunk(ctx, piece)
			}
		}(i, piece))
	}
	wg.Wait()

	vectors, err := ing.embedder.Embed(ctx, enriched)
	if err != nil {
		return 0, fmt.Errorf("embedding failed: %v", err)
	}

	chunks := make([]*store.Chunk, len(surviving))
	for i, piece := range surviving {
		chunks[i] = &store.Chunk{
			DocumentID:   doc.ID,
			DocumentName: doc.OriginalName,
			Index:        i,
			Content:      piece,
			Embedding:    vectors[i],
		}
	}

	if err := ing.vectors.InsertChunks(ctx, doc.TenantID, chunks); err != nil {
		return 0, fmt.Errorf("chunk persistence failed: %v", err)
	}
	return len(chunks), nil
}

// processRows 处理表格文档：每行独立序列化、改写、嵌入、持久化。
// 单行失败被吞掉，兄弟行继续；返回成功入库的行数。
func (ing *Ingester) processRows(ctx context.Context, doc *model.Document, rows []string) int {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)

	for i, row := range rows {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}

		wg.Add(1)
		ing.submit(func(i int, row string) func() {
			return func() {
				defer wg.Done()
				if err := ing.processRow(ctx, doc, i, row); err != nil {
					logger.Warnw("row processing failed, skipping",
						"document_id", doc.ID,
						"row", i,
						"error", err.Error(),
					)
					return
				}
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i, row))
	}
	wg.Wait()

	return success
}

// processRow 处理单行记录。
func (ing *Ingester) processRow(ctx context.Context, doc *model.Document, index int, row string) error {
	enriched := ing.enricher.EnrichChunk(ctx, row)

	vector, err := ing.embedder.EmbedOne(ctx, enriched)
	if err != nil {
		return fmt.Errorf("row embedding failed: %w", err)
	}

	chunk := &store.Chunk{
		DocumentID:   doc.ID,
		DocumentName: doc.OriginalName,
		Index:        index,
		Content:      row,
		Embedding:    vector,
	}
	return ing.vectors.InsertChunks(ctx, doc.TenantID, []*store.Chunk{chunk})
}

// ProcessImage 执行单张图片的摄取管线。
func (ing *Ingester) ProcessImage(ctx context.Context, img *model.Image) {
	img.Status = model.StatusProcessing
	if err := ing.images.Update(ctx, img); err != nil {
		logger.Errorw("failed to mark image processing",
			"image_id", img.ID, "error", err.Error())
		return
	}

	analysis, err := ing.analyzer.Analyze(ctx, img.StoragePath)
	if err != nil {
		ing.failImage(ctx, img, fmt.Sprintf("image analysis failed: %v", err))
		return
	}

	searchText := analysis.SearchText()
	if searchText == "" {
		searchText = img.OriginalName
	}

	vector, err := ing.embedder.EmbedOne(ctx, searchText)
	if err != nil {
		ing.failImage(ctx, img, fmt.Sprintf("image embedding failed: %v", err))
		return
	}

	unit := &store.ImageUnit{
		ImageID:   img.ID,
		FileName:  img.OriginalName,
		Caption:   analysis.Caption,
		Embedding: vector,
	}
	if err := ing.vectors.InsertImageUnit(ctx, img.TenantID, unit); err != nil {
		ing.failImage(ctx, img, fmt.Sprintf("image unit persistence failed: %v", err))
		return
	}

	img.Tags = strings.Join(analysis.Tags, ",")
	img.Categories = strings.Join(analysis.Categories, ",")
	img.Caption = analysis.Caption
	img.Status = model.StatusProcessed
	if err := ing.images.Update(ctx, img); err != nil {
		logger.Errorw("failed to mark image processed",
			"image_id", img.ID, "error", err.Error())
		return
	}

	logger.Infow("image processed",
		"tenant_id", img.TenantID,
		"image_id", img.ID,
		"file", img.OriginalName,
		"tags", img.Tags,
	)
}

// submit 提交行级任务。协程池不可用时降级为同步执行。
func (ing *Ingester) submit(task func()) {
	if ing.workers != nil {
		if err := ing.workers.Submit(task); err == nil {
			return
		}
	}
	task()
}

// fail 将文档标记为失败并记录原因。
func (ing *Ingester) fail(ctx context.Context, doc *model.Document, reason string) {
	logger.Errorw("document processing failed",
		"tenant_id", doc.TenantID,
		"document_id", doc.ID,
		"file", doc.OriginalName,
		"reason", reason,
	)
	if err := ing.docs.UpdateStatus(ctx, doc.TenantID, doc.ID, model.StatusFailed, textutil.TruncateString(reason, 500)); err != nil {
		logger.Errorw("failed to mark document failed",
			"document_id", doc.ID, "error", err.Error())
	}
}

// failImage 将图片标记为失败。
func (ing *Ingester) failImage(ctx context.Context, img *model.Image, reason string) {
	logger.Errorw("image processing failed",
		"tenant_id", img.TenantID,
		"image_id", img.ID,
		"file", img.OriginalName,
		"reason", reason,
	)
	img.Status = model.StatusFailed
	if err := ing.images.Update(ctx, img); err != nil {
		logger.Errorw("failed to mark image failed",
			"image_id", img.ID, "error", err.Error())
	}
}
