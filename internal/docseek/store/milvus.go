package store

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/docseek/pkg/component/milvus"
)

// Chunk 表示待入库的文档块。
type Chunk struct {
	// DocumentID 所属文档 ID。
	DocumentID string
	// DocumentName 文档原始名称。
	DocumentName string
	// Index 块在文档中的稳定序号。
	Index int
	// Content 块内容。
	Content string
	// Embedding 嵌入向量。
	Embedding []float32
}

// ChunkHit 表示文档块检索命中。
type ChunkHit struct {
	DocumentID   string
	DocumentName string
	Index        int
	Content      string
	Score        float32
	Embedding    []float32
}

// ImageUnit 表示待入库的图片检索单元。
type ImageUnit struct {
	ImageID   string
	FileName  string
	Caption   string
	Embedding []float32
}

// ImageHit 表示图片检索命中。
type ImageHit struct {
	ImageID  string
	FileName string
	Caption  string
	Score    float32
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// EnsureCollections 创建缺失的集合。
	EnsureCollections(ctx context.Context, dimension int) error

	// InsertChunks 批量插入文档块。
	InsertChunks(ctx context.Context, tenantID string, chunks []*Chunk) error

	// SearchChunks 在租户范围内检索文档块。
	SearchChunks(ctx context.Context, tenantID string, embedding []float32, topK int) ([]*ChunkHit, error)

	// SearchChunksByDocument 在单个文档范围内检索文档块。
	SearchChunksByDocument(ctx context.Context, tenantID, documentID string, embedding []float32, topK int) ([]*ChunkHit, error)

	// DeleteByDocument 删除文档的全部块。
	DeleteByDocument(ctx context.Context, tenantID, documentID string) error

	// InsertImageUnit 插入图片检索单元。
	InsertImageUnit(ctx context.Context, tenantID string, unit *ImageUnit) error

	// SearchImages 在租户范围内检索图片。
	SearchImages(ctx context.Context, tenantID string, embedding []float32, topK int) ([]*ImageHit, error)

	// DeleteByImage 删除图片检索单元。
	DeleteByImage(ctx context.Context, tenantID, imageID string) error

	// ChunkCount 返回文档块集合的总量。
	ChunkCount(ctx context.Context) (int64, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}

// 默认集合名称。
const (
	DefaultChunkCollection = "doc_chunks"
	DefaultImageCollection = "image_units"
)

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	client          *milvus.Client
	chunkCollection string
	imageCollection string
}

// NewMilvusStore 创建 Milvus 存储实例，集合名称为空时使用默认值。
func NewMilvusStore(client *milvus.Client, chunkCollection, imageCollection string) *MilvusStore {
	if chunkCollection == "" {
		chunkCollection = DefaultChunkCollection
	}
	if imageCollection == "" {
		imageCollection = DefaultImageCollection
	}
	return &MilvusStore{
		client:          client,
		chunkCollection: chunkCollection,
		imageCollection: imageCollection,
	}
}

// EnsureCollections 创建文档块与图片集合（已存在时跳过）。
func (s *MilvusStore) EnsureCollections(ctx context.Context, dimension int) error {
	chunkSchema := &milvus.CollectionSchema{
		Name:        s.chunkCollection,
		Description: "Document chunks for retrieval",
		Dimension:   dimension,
		MetaFields: []milvus.MetaField{
			{Name: "tenant_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "document_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "document_name", DataType: entity.FieldTypeVarChar, MaxLen: 255},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	if err := s.client.CreateCollection(ctx, chunkSchema); err != nil {
		return fmt.Errorf("failed to create chunk collection: %w", err)
	}

	imageSchema := &milvus.CollectionSchema{
		Name:        s.imageCollection,
		Description: "Image analysis units for retrieval",
		Dimension:   dimension,
		MetaFields: []milvus.MetaField{
			{Name: "tenant_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "image_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "file_name", DataType: entity.FieldTypeVarChar, MaxLen: 255},
			{Name: "caption", DataType: entity.FieldTypeVarChar, MaxLen: 2048},
		},
	}
	if err := s.client.CreateCollection(ctx, imageSchema); err != nil {
		return fmt.Errorf("failed to create image collection: %w", err)
	}

	return nil
}

// InsertChunks 批量插入文档块到 Milvus。
func (s *MilvusStore) InsertChunks(ctx context.Context, tenantID string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"tenant_id":     make([]any, len(chunks)),
		"document_id":   make([]any, len(chunks)),
		"document_name": make([]any, len(chunks)),
		"chunk_index":   make([]any, len(chunks)),
		"content":       make([]any, len(chunks)),
	}

	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["tenant_id"][i] = tenantID
		metadata["document_id"][i] = chunk.DocumentID
		metadata["document_name"][i] = chunk.DocumentName
		metadata["chunk_index"][i] = int64(chunk.Index)
		metadata["content"][i] = chunk.Content
	}

	data := &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}

	if _, err := s.client.Insert(ctx, s.chunkCollection, data); err != nil {
		return fmt.Errorf("failed to insert chunks into milvus: %w", err)
	}
	return nil
}

var chunkOutputFields = []string{"document_id", "document_name", "chunk_index", "content"}

// SearchChunks 在租户范围内执行向量相似度搜索。
func (s *MilvusStore) SearchChunks(ctx context.Context, tenantID string, embedding []float32, topK int) ([]*ChunkHit, error) {
	filter := fmt.Sprintf("tenant_id == %q", tenantID)
	return s.searchChunks(ctx, embedding, topK, filter)
}

// SearchChunksByDocument 在单个文档范围内执行向量相似度搜索。
func (s *MilvusStore) SearchChunksByDocument(ctx context.Context, tenantID, documentID string, embedding []float32, topK int) ([]*ChunkHit, error) {
	filter := fmt.Sprintf("tenant_id == %q and document_id == %q", tenantID, documentID)
	return s.searchChunks(ctx, embedding, topK, filter)
}

func (s *MilvusStore) searchChunks(ctx context.Context, embedding []float32, topK int, filter string) ([]*ChunkHit, error) {
	results, err := s.client.Search(ctx, s.chunkCollection, embedding, topK, filter, chunkOutputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	hits := make([]*ChunkHit, 0, len(results))
	for _, r := range results {
		hit := &ChunkHit{Score: r.Score}
		if v, ok := r.Metadata["document_id"].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := r.Metadata["document_name"].(string); ok {
			hit.DocumentName = v
		}
		if v, ok := r.Metadata["chunk_index"].(int64); ok {
			hit.Index = int(v)
		}
		if v, ok := r.Metadata["content"].(string); ok {
			hit.Content = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByDocument 删除文档的全部块。
func (s *MilvusStore) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	expr := fmt.Sprintf("tenant_id == %q and document_id == %q", tenantID, documentID)
	if err := s.client.DeleteByExpr(ctx, s.chunkCollection, expr); err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	return nil
}

// InsertImageUnit 插入图片检索单元。
func (s *MilvusStore) InsertImageUnit(ctx context.Context, tenantID string, unit *ImageUnit) error {
	data := &milvus.InsertData{
		Embeddings: [][]float32{unit.Embedding},
		Metadata: map[string][]any{
			"tenant_id": {tenantID},
			"image_id":  {unit.ImageID},
			"file_name": {unit.FileName},
			"caption":   {unit.Caption},
		},
	}
	if _, err := s.client.Insert(ctx, s.imageCollection, data); err != nil {
		return fmt.Errorf("failed to insert image unit into milvus: %w", err)
	}
	return nil
}

var imageOutputFields = []string{"image_id", "file_name", "caption"}

// SearchImages 在租户范围内检索图片。
func (s *MilvusStore) SearchImages(ctx context.Context, tenantID string, embedding []float32, topK int) ([]*ImageHit, error) {
	filter := fmt.Sprintf("tenant_id == %q", tenantID)
	results, err := s.client.Search(ctx, s.imageCollection, embedding, topK, filter, imageOutputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search image units: %w", err)
	}

	hits := make([]*ImageHit, 0, len(results))
	for _, r := range results {
		hit := &ImageHit{Score: r.Score}
		if v, ok := r.Metadata["image_id"].(string); ok {
			hit.ImageID = v
		}
		if v, ok := r.Metadata["file_name"].(string); ok {
			hit.FileName = v
		}
		if v, ok := r.Metadata["caption"].(string); ok {
			hit.Caption = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByImage 删除图片检索单元。
func (s *MilvusStore) DeleteByImage(ctx context.Context, tenantID, imageID string) error {
	expr := fmt.Sprintf("tenant_id == %q and image_id == %q", tenantID, imageID)
	if err := s.client.DeleteByExpr(ctx, s.imageCollection, expr); err != nil {
		return fmt.Errorf("failed to delete image unit: %w", err)
	}
	return nil
}

// ChunkCount 返回文档块集合总量。
func (s *MilvusStore) ChunkCount(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.chunkCollection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

var _ VectorStore = (*MilvusStore)(nil)
