package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/docseek/internal/model"
)

// DocumentStore 定义文档元数据存储接口。
// 所有操作都在租户范围内执行。
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, tenantID, id string) (*model.Document, error)
	List(ctx context.Context, tenantID string) ([]*model.Document, error)
	ListByStatus(ctx context.Context, tenantID, status string) ([]*model.Document, error)
	UpdateStatus(ctx context.Context, tenantID, id, status, failReason string) error
	SetChunkNum(ctx context.Context, tenantID, id string, chunkNum int) error
	Delete(ctx context.Context, tenantID, id string) error
	Count(ctx context.Context, tenantID string) (int64, error)
}

// ImageStore 定义图片元数据存储接口。
type ImageStore interface {
	Create(ctx context.Context, img *model.Image) error
	Get(ctx context.Context, tenantID, id string) (*model.Image, error)
	List(ctx context.Context, tenantID string) ([]*model.Image, error)
	Update(ctx context.Context, img *model.Image) error
	Delete(ctx context.Context, tenantID, id string) error
	Count(ctx context.Context, tenantID string) (int64, error)
}

// IStore 聚合元数据存储。
type IStore interface {
	Documents() DocumentStore
	Images() ImageStore
}

// datastore 基于 GORM 的存储实现。
type datastore struct {
	db *gorm.DB
}

// NewStore 创建存储实例并迁移表结构。
func NewStore(db *gorm.DB) (IStore, error) {
	if err := db.AutoMigrate(&model.Document{}, &model.Image{}); err != nil {
		return nil, err
	}
	return &datastore{db: db}, nil
}

// Documents 返回文档存储。
func (s *datastore) Documents() DocumentStore {
	return newDocumentStore(s.db)
}

// Images 返回图片存储。
func (s *datastore) Images() ImageStore {
	return newImageStore(s.db)
}
