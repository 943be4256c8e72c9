package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/docseek/internal/model"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

// documentStore 基于 GORM 的文档元数据存储。
type documentStore struct {
	db *gorm.DB
}

func newDocumentStore(db *gorm.DB) *documentStore {
	return &documentStore{db: db}
}

// Create 创建文档记录。
func (s *documentStore) Create(ctx context.Context, doc *model.Document) error {
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return errno.ErrDatabase.WithCause(err)
	}
	return nil
}

// Get 获取指定租户的文档。
func (s *documentStore) Get(ctx context.Context, tenantID, id string) (*model.Document, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrDocNotFound.WithCause(err)
		}
		return nil, errno.ErrDatabase.WithCause(err)
	}
	return &doc, nil
}

// List 列出租户的所有文档，按创建时间倒序。
func (s *documentStore) List(ctx context.Context, tenantID string) ([]*model.Document, error) {
	var docs []*model.Document
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, errno.ErrDatabase.WithCause(err)
	}
	return docs, nil
}

// ListByStatus 按状态列出租户文档。
func (s *documentStore) ListByStatus(ctx context.Context, tenantID, status string) ([]*model.Document, error) {
	var docs []*model.Document
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, errno.ErrDatabase.WithCause(err)
	}
	return docs, nil
}

// UpdateStatus 更新文档处理状态。failReason 仅在失败时有意义。
func (s *documentStore) UpdateStatus(ctx context.Context, tenantID, id, status, failReason string) error {
	updates := map[string]any{"status": status}
	if failReason != "" {
		updates["fail_reason"] = failReason
	}
	result := s.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates)
	if result.Error != nil {
		return errno.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errno.ErrDocNotFound
	}
	return nil
}

// SetChunkNum 更新文档的分块数量。
func (s *documentStore) SetChunkNum(ctx context.Context, tenantID, id string, chunkNum int) error {
	err := s.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("chunk_num", chunkNum).Error
	if err != nil {
		return errno.ErrDatabase.WithCause(err)
	}
	return nil
}

// Delete 删除文档记录。
func (s *documentStore) Delete(ctx context.Context, tenantID, id string) error {
	result := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&model.Document{})
	if result.Error != nil {
		return errno.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errno.ErrDocNotFound
	}
	return nil
}

// Count 统计租户的文档数量。
func (s *documentStore) Count(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	if err != nil {
		return 0, errno.ErrDatabase.WithCause(err)
	}
	return count, nil
}
