package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/docseek/internal/model"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

// imageStore 基于 GORM 的图片元数据存储。
type imageStore struct {
	db *gorm.DB
}

func newImageStore(db *gorm.DB) *imageStore {
	return &imageStore{db: db}
}

// Create 创建图片记录。
func (s *imageStore) Create(ctx context.Context, img *model.Image) error {
	if err := s.db.WithContext(ctx).Create(img).Error; err != nil {
		return errno.ErrDatabase.WithCause(err)
	}
	return nil
}

// Get 获取指定租户的图片。
func (s *imageStore) Get(ctx context.Context, tenantID, id string) (*model.Image, error) {
	var img model.Image
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrImageNotFound.WithCause(err)
		}
		return nil, errno.ErrDatabase.WithCause(err)
	}
	return &img, nil
}

// List 列出租户的所有图片，按创建时间倒序。
func (s *imageStore) List(ctx context.Context, tenantID string) ([]*model.Image, error) {
	var imgs []*model.Image
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&imgs).Error
	if err != nil {
		return nil, errno.ErrDatabase.WithCause(err)
	}
	return imgs, nil
}

// Update 保存图片的分析结果与状态。
func (s *imageStore) Update(ctx context.Context, img *model.Image) error {
	err := s.db.WithContext(ctx).
		Model(&model.Image{}).
		Where("tenant_id = ? AND id = ?", img.TenantID, img.ID).
		Updates(map[string]any{
			"tags":       img.Tags,
			"categories": img.Categories,
			"caption":    img.Caption,
			"status":     img.Status,
		}).Error
	if err != nil {
		return errno.ErrDatabase.WithCause(err)
	}
	return nil
}

// Delete 删除图片记录。
func (s *imageStore) Delete(ctx context.Context, tenantID, id string) error {
	result := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&model.Image{})
	if result.Error != nil {
		return errno.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errno.ErrImageNotFound
	}
	return nil
}

// Count 统计租户的图片数量。
func (s *imageStore) Count(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Image{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	if err != nil {
		return 0, errno.ErrDatabase.WithCause(err)
	}
	return count, nil
}
