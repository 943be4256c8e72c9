package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/docseek/internal/model"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

func newTestStore(t *testing.T) IStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestDocumentStoreCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docs := s.Documents()

	doc := &model.Document{
		ID:           "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		TenantID:     "tenant-a",
		FileName:     "stored.txt",
		OriginalName: "report.txt",
		MediaType:    "text/plain",
		Size:         42,
		Status:       model.StatusUploaded,
	}
	require.NoError(t, docs.Create(ctx, doc))

	got, err := docs.Get(ctx, "tenant-a", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", got.OriginalName)
	assert.Equal(t, model.StatusUploaded, got.Status)

	// Tenant isolation
	_, err = docs.Get(ctx, "tenant-b", doc.ID)
	require.Error(t, err)
	assert.True(t, errno.IsCode(err, errno.ErrDocNotFound.Code))

	// Status transition
	require.NoError(t, docs.UpdateStatus(ctx, "tenant-a", doc.ID, model.StatusProcessing, ""))
	require.NoError(t, docs.UpdateStatus(ctx, "tenant-a", doc.ID, model.StatusFailed, "extraction failed"))

	got, err = docs.Get(ctx, "tenant-a", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "extraction failed", got.FailReason)

	// Chunk count
	require.NoError(t, docs.SetChunkNum(ctx, "tenant-a", doc.ID, 7))
	got, err = docs.Get(ctx, "tenant-a", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ChunkNum)

	count, err := docs.Count(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, docs.Delete(ctx, "tenant-a", doc.ID))
	_, err = docs.Get(ctx, "tenant-a", doc.ID)
	require.Error(t, err)
}

func TestDocumentStoreListByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docs := s.Documents()

	for i, status := range []string{model.StatusProcessed, model.StatusProcessed, model.StatusFailed} {
		require.NoError(t, docs.Create(ctx, &model.Document{
			ID:           string(rune('a' + i)),
			TenantID:     "tenant-a",
			FileName:     "f",
			OriginalName: "f",
			Status:       status,
		}))
	}

	processed, err := docs.ListByStatus(ctx, "tenant-a", model.StatusProcessed)
	require.NoError(t, err)
	assert.Len(t, processed, 2)

	failed, err := docs.ListByStatus(ctx, "tenant-a", model.StatusFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	all, err := docs.List(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	other, err := docs.List(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDocumentStoreUpdateMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Documents().UpdateStatus(ctx, "tenant-a", "missing", model.StatusProcessed, "")
	require.Error(t, err)
	assert.True(t, errno.IsCode(err, errno.ErrDocNotFound.Code))

	err = s.Documents().Delete(ctx, "tenant-a", "missing")
	require.Error(t, err)
	assert.True(t, errno.IsCode(err, errno.ErrDocNotFound.Code))
}

func TestImageStoreCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	imgs := s.Images()

	img := &model.Image{
		ID:           "img-1",
		TenantID:     "tenant-a",
		FileName:     "stored.png",
		OriginalName: "diagram.png",
		MediaType:    "image/png",
		Status:       model.StatusUploaded,
	}
	require.NoError(t, imgs.Create(ctx, img))

	img.Tags = "chart,architecture"
	img.Caption = "An architecture diagram."
	img.Status = model.StatusProcessed
	require.NoError(t, imgs.Update(ctx, img))

	got, err := imgs.Get(ctx, "tenant-a", "img-1")
	require.NoError(t, err)
	assert.Equal(t, "chart,architecture", got.Tags)
	assert.Equal(t, "An architecture diagram.", got.Caption)
	assert.Equal(t, model.StatusProcessed, got.Status)

	// Tenant isolation
	_, err = imgs.Get(ctx, "tenant-b", "img-1")
	require.Error(t, err)
	assert.True(t, errno.IsCode(err, errno.ErrImageNotFound.Code))

	count, err := imgs.Count(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, imgs.Delete(ctx, "tenant-a", "img-1"))
	list, err := imgs.List(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Empty(t, list)
}
