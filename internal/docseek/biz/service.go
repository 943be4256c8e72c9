package biz

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/docseek/internal/docseek/store"
	"github.com/kart-io/docseek/internal/model"
	"github.com/kart-io/docseek/internal/pkg/extract"
	"github.com/kart-io/docseek/pkg/pool"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
	"github.com/kart-io/docseek/pkg/utils/id"
)

// UploadFile 表示一个待上传的文件。
type UploadFile struct {
	OriginalName string
	MediaType    string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

// UploadResult 表示单个文件的上传结果。
type UploadResult struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	MediaType    string `json:"media_type"`
	Size         int64  `json:"size"`
	Kind         string `json:"kind"` // document 或 image
	Status       string `json:"status"`
}

// BatchDeleteResult 表示批量删除的结果。
type BatchDeleteResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Service 定义知识库业务接口。
type Service interface {
	// UploadFiles 接收一批文件，按媒体类型分流到文档或图片管线。
	UploadFiles(ctx context.Context, tenantID string, files []*UploadFile) ([]*UploadResult, error)

	// ListDocuments 列出租户的全部文档。
	ListDocuments(ctx context.Context, tenantID string) ([]*model.Document, error)

	// GetDocument 获取单个文档。
	GetDocument(ctx context.Context, tenantID, id string) (*model.Document, error)

	// ListDocumentsByStatus 按状态列出文档。
	ListDocumentsByStatus(ctx context.Context, tenantID, status string) ([]*model.Document, error)

	// DeleteDocument 删除文档及其全部块，先清向量再清元数据，最后删物理文件。
	DeleteDocument(ctx context.Context, tenantID, id string) error

	// BatchDeleteDocuments 批量删除文档，单个失败不影响其余。
	BatchDeleteDocuments(ctx context.Context, tenantID string, ids []string) (*BatchDeleteResult, error)

	// SearchDocument 在单个文档的块范围内做相似度检索。
	SearchDocument(ctx context.Context, tenantID, documentID, query string) ([]*RankedChunk, error)

	// Query 回答一次知识库查询。
	Query(ctx context.Context, tenantID, question string, history []Turn) (*model.QueryResult, error)

	// ListImages 列出租户的全部图片。
	ListImages(ctx context.Context, tenantID string) ([]*model.Image, error)

	// DeleteImage 删除图片及其检索单元。
	DeleteImage(ctx context.Context, tenantID, id string) error

	// Stats 返回知识库统计信息。
	Stats(ctx context.Context, tenantID string) (map[string]any, error)
}

// ServiceConfig 服务配置。
type ServiceConfig struct {
	// UploadDir 上传文件的存储目录。
	UploadDir string
	// EmbedProviderName 嵌入供应商名称，用于统计展示。
	EmbedProviderName string
	// ChatProviderName 对话供应商名称，用于统计展示。
	ChatProviderName string
}

type service struct {
	store        store.IStore
	vectors      store.VectorStore
	ingester     *Ingester
	orchestrator *QueryOrchestrator
	embedder     *Embedder
	retriever    *Retriever
	cache        *QueryCache
	background   *pool.Pool
	config       *ServiceConfig
}

// NewService 创建业务服务实例。background 可以为 nil，
// 此时文档处理在普通协程中执行。
func NewService(
	st store.IStore,
	vectors store.VectorStore,
	ingester *Ingester,
	orchestrator *QueryOrchestrator,
	embedder *Embedder,
	retriever *Retriever,
	cache *QueryCache,
	background *pool.Pool,
	config *ServiceConfig,
) Service {
	return &service{
		store:        st,
		vectors:      vectors,
		ingester:     ingester,
		orchestrator: orchestrator,
		embedder:     embedder,
		retriever:    retriever,
		cache:        cache,
		background:   background,
		config:       config,
	}
}

// UploadFiles 保存文件、创建记录并异步触发处理。
func (s *service) UploadFiles(ctx context.Context, tenantID string, files []*UploadFile) ([]*UploadResult, error) {
	if len(files) == 0 {
		return nil, errno.ErrDocNoFile
	}

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		return nil, errno.ErrInternal.WithCause(err)
	}

	results := make([]*UploadResult, 0, len(files))
	for _, file := range files {
		result, err := s.uploadOne(ctx, tenantID, file)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *service) uploadOne(ctx context.Context, tenantID string, file *UploadFile) (*UploadResult, error) {
	fileID := id.NewULID()
	storedName := fileID + strings.ToLower(filepath.Ext(file.OriginalName))
	storagePath := filepath.Join(s.config.UploadDir, storedName)

	if err := s.saveFile(file, storagePath); err != nil {
		return nil, errno.ErrInternal.WithCause(err)
	}

	if extract.IsImage(file.MediaType) {
		img := &model.Image{
			ID:           fileID,
			TenantID:     tenantID,
			FileName:     storedName,
			OriginalName: file.OriginalName,
			MediaType:    file.MediaType,
			Size:         file.Size,
			StoragePath:  storagePath,
			Status:       model.StatusUploaded,
		}
		if err := s.store.Images().Create(ctx, img); err != nil {
			return nil, err
		}
		s.dispatch(func(ctx context.Context) { s.ingester.ProcessImage(ctx, img) })
		return &UploadResult{
			ID:           img.ID,
			OriginalName: img.OriginalName,
			MediaType:    img.MediaType,
			Size:         img.Size,
			Kind:         "image",
			Status:       img.Status,
		}, nil
	}

	doc := &model.Document{
		ID:           fileID,
		TenantID:     tenantID,
		FileName:     storedName,
		OriginalName: file.OriginalName,
		MediaType:    file.MediaType,
		Size:         file.Size,
		StoragePath:  storagePath,
		Status:       model.StatusUploaded,
	}
	if err := s.store.Documents().Create(ctx, doc); err != nil {
		return nil, err
	}
	s.dispatch(func(ctx context.Context) { s.ingester.ProcessDocument(ctx, doc) })
	return &UploadResult{
		ID:           doc.ID,
		OriginalName: doc.OriginalName,
		MediaType:    doc.MediaType,
		Size:         doc.Size,
		Kind:         "document",
		Status:       doc.Status,
	}, nil
}

func (s *service) saveFile(file *UploadFile, path string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// dispatch 异步执行处理任务。请求上下文不传入，处理生命周期独立于请求。
func (s *service) dispatch(task func(ctx context.Context)) {
	run := func() { task(context.Background()) }

	if s.background != nil {
		if err := s.background.Submit(run); err == nil {
			return
		}
		logger.Warnw("background pool unavailable, running in goroutine")
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("background task panicked", "panic", r)
			}
		}()
		run()
	}()
}

func (s *service) ListDocuments(ctx context.Context, tenantID string) ([]*model.Document, error) {
	return s.store.Documents().List(ctx, tenantID)
}

func (s *service) GetDocument(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	return s.store.Documents().Get(ctx, tenantID, docID)
}

func (s *service) ListDocumentsByStatus(ctx context.Context, tenantID, status string) ([]*model.Document, error) {
	switch status {
	case model.StatusUploaded, model.StatusProcessing, model.StatusProcessed, model.StatusFailed:
	default:
		return nil, errno.ErrInvalidParam.WithMessagef("unknown status %q", status)
	}
	return s.store.Documents().ListByStatus(ctx, tenantID, status)
}

// DeleteDocument 级联删除：向量 → 元数据 → 物理文件。
func (s *service) DeleteDocument(ctx context.Context, tenantID, docID string) error {
	doc, err := s.store.Documents().Get(ctx, tenantID, docID)
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteByDocument(ctx, tenantID, docID); err != nil {
		return errno.ErrVectorStore.WithCause(err)
	}
	if err := s.store.Documents().Delete(ctx, tenantID, docID); err != nil {
		return err
	}

	// 物理文件缺失可以容忍
	if doc.StoragePath != "" {
		if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
			logger.Warnw("failed to remove document file",
				"document_id", docID, "path", doc.StoragePath, "error", err.Error())
		}
	}
	return nil
}

func (s *service) BatchDeleteDocuments(ctx context.Context, tenantID string, ids []string) (*BatchDeleteResult, error) {
	if len(ids) == 0 {
		return nil, errno.ErrInvalidParam.WithMessage("no document ids provided")
	}

	result := &BatchDeleteResult{Failed: make(map[string]string)}
	for _, docID := range ids {
		if err := s.DeleteDocument(ctx, tenantID, docID); err != nil {
			result.Failed[docID] = err.Error()
			continue
		}
		result.Deleted = append(result.Deleted, docID)
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}

// SearchDocument 在单个文档的块范围内做相似度检索。
func (s *service) SearchDocument(ctx context.Context, tenantID, documentID, query string) ([]*RankedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errno.ErrEmptyQuestion
	}

	// 确认文档存在且归属当前租户
	if _, err := s.store.Documents().Get(ctx, tenantID, documentID); err != nil {
		return nil, err
	}

	embedding, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, errno.ErrEmbeddingFailed.WithCause(err)
	}

	return s.retriever.RetrieveChunksByDocument(ctx, tenantID, documentID, embedding)
}

func (s *service) Query(ctx context.Context, tenantID, question string, history []Turn) (*model.QueryResult, error) {
	return s.orchestrator.Answer(ctx, tenantID, question, history)
}

func (s *service) ListImages(ctx context.Context, tenantID string) ([]*model.Image, error) {
	return s.store.Images().List(ctx, tenantID)
}

// DeleteImage 级联删除图片的检索单元、元数据与物理文件。
func (s *service) DeleteImage(ctx context.Context, tenantID, imageID string) error {
	img, err := s.store.Images().Get(ctx, tenantID, imageID)
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteByImage(ctx, tenantID, imageID); err != nil {
		return errno.ErrVectorStore.WithCause(err)
	}
	if err := s.store.Images().Delete(ctx, tenantID, imageID); err != nil {
		return err
	}

	if img.StoragePath != "" {
		if err := os.Remove(img.StoragePath); err != nil && !os.IsNotExist(err) {
			logger.Warnw("failed to remove image file",
				"image_id", imageID, "path", img.StoragePath, "error", err.Error())
		}
	}
	return nil
}

// Stats 返回知识库统计信息。
func (s *service) Stats(ctx context.Context, tenantID string) (map[string]any, error) {
	docCount, err := s.store.Documents().Count(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	imageCount, err := s.store.Images().Count(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := map[string]any{
		"document_count":     docCount,
		"image_count":        imageCount,
		"embedding_provider": s.config.EmbedProviderName,
		"chat_provider":      s.config.ChatProviderName,
	}

	// 块总量来自向量集合统计，拿不到时不阻塞其余统计
	if chunkCount, err := s.vectors.ChunkCount(ctx); err == nil {
		stats["chunk_count"] = chunkCount
	} else {
		logger.Warnw("failed to get chunk count", "error", err.Error())
	}

	if s.cache != nil {
		stats["cache"] = s.cache.Stats(ctx)
	}
	return stats, nil
}
