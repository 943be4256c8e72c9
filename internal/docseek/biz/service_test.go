package biz

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docseek/internal/model"
	"github.com/kart-io/docseek/internal/pkg/extract"
	"github.com/kart-io/docseek/internal/pkg/textutil"
	"github.com/kart-io/docseek/internal/pkg/vision"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

type serviceEnv struct {
	service   Service
	store     *ingestEnv
	uploadDir string
}

func newServiceEnv(t *testing.T) (*serviceEnv, *fakeVectorStore) {
	t.Helper()
	metaStore := newTestMetaStore(t)
	vectors := newFakeVectorStore()
	provider := newFakeEmbedProvider()
	embedder := newTestEmbedder(provider)
	enricher := NewEnricher(nil, false)
	retriever := newTestRetriever(vectors)
	analyzer := &fakeAnalyzer{analysis: &vision.Analysis{Caption: "caption text"}}

	ingester := NewIngester(
		metaStore.Documents(),
		metaStore.Images(),
		vectors,
		embedder,
		enricher,
		extract.New("", 5*time.Second, 0),
		analyzer,
		nil,
		&IngesterConfig{
			Chunk: textutil.ChunkConfig{
				TargetSize: 1000,
				Overlap:    200,
				MinSize:    500,
				MaxSize:    1200,
			},
			MaxChunkLen: 1500,
		},
	)

	uploadDir := t.TempDir()
	svc := NewService(metaStore, vectors, ingester, nil, embedder, retriever, nil, nil, &ServiceConfig{
		UploadDir:         uploadDir,
		EmbedProviderName: "fake-embed",
		ChatProviderName:  "fake-chat",
	})

	return &serviceEnv{
		service:   svc,
		store:     &ingestEnv{store: metaStore, vectors: vectors, provider: provider},
		uploadDir: uploadDir,
	}, vectors
}

func uploadFixture(name, mediaType, content string) *UploadFile {
	return &UploadFile{
		OriginalName: name,
		MediaType:    mediaType,
		Size:         int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

func waitForStatus(t *testing.T, check func() (string, error), want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		status, err := check()
		return err == nil && status == want
	}, 3*time.Second, 10*time.Millisecond)
}

func TestUploadFilesRoutesByMediaType(t *testing.T) {
	env, _ := newServiceEnv(t)
	ctx := context.Background()

	content := strings.Repeat("The service layer persists the upload and dispatches processing. ", 10)
	results, err := env.service.UploadFiles(ctx, "tenant-a", []*UploadFile{
		uploadFixture("notes.txt", "text/plain", content),
		uploadFixture("photo.png", "image/png", "png bytes"),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "document", results[0].Kind)
	assert.Equal(t, model.StatusUploaded, results[0].Status)
	assert.Equal(t, "image", results[1].Kind)

	// 存储文件名基于生成的 ID，保留小写扩展名
	entries, err := os.ReadDir(env.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// 后台处理最终把文档推进到 processed
	waitForStatus(t, func() (string, error) {
		doc, err := env.service.GetDocument(ctx, "tenant-a", results[0].ID)
		if err != nil {
			return "", err
		}
		return doc.Status, nil
	}, model.StatusProcessed)

	waitForStatus(t, func() (string, error) {
		images, err := env.service.ListImages(ctx, "tenant-a")
		if err != nil || len(images) != 1 {
			return "", err
		}
		return images[0].Status, nil
	}, model.StatusProcessed)
}

func TestUploadFilesRejectsEmptyBatch(t *testing.T) {
	env, _ := newServiceEnv(t)

	_, err := env.service.UploadFiles(context.Background(), "tenant-a", nil)
	require.Error(t, err)
	assert.True(t, errno.IsCode(err, errno.ErrDocNoFile.Code))
}

func TestListDocumentsByStatusValidation(t *testing.T) {
	env, _ := newServiceEnv(t)
	ctx := context.Background()

	_, err := env.service.ListDocumentsByStatus(ctx, "tenant-a", "bogus")
	require.Error(t, err)
	assert.True(t, errno.IsCode(err, errno.ErrInvalidParam.Code))

	docs, err := env.service.ListDocumentsByStatus(ctx, "tenant-a", model.StatusProcessed)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteDocumentCascade(t *testing.T) {
	env, vectors := newServiceEnv(t)
	ctx := context.Background()

	path := filepath.Join(env.uploadDir, "victim.txt")
	require.NoError(t, os.WriteFile(path, []byte("bytes"), 0o600))

	doc := &model.Document{
		ID:          "doc-victim",
		TenantID:    "tenant-a",
		FileName:    "victim.txt",
		StoragePath: path,
		Status:      model.StatusProcessed,
	}
	require.NoError(t, env.store.store.Documents().Create(ctx, doc))

	require.NoError(t, env.service.DeleteDocument(ctx, "tenant-a", "doc-victim"))

	// 向量、元数据、物理文件全部清掉
	assert.Equal(t, []string{"doc-victim"}, vectors.deletedDoc)
	_, err := env.service.GetDocument(ctx, "tenant-a", "doc-victim")
	assert.True(t, errno.IsCode(err, errno.ErrDocNotFound.Code))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteDocumentWrongTenant(t *testing.T) {
	env, vectors := newServiceEnv(t)
	ctx := context.Background()

	doc := &model.Document{ID: "doc-1", TenantID: "tenant-a", Status: model.StatusProcessed}
	require.NoError(t, env.store.store.Documents().Create(ctx, doc))

	err := env.service.DeleteDocument(ctx, "tenant-b", "doc-1")
	assert.True(t, errno.IsCode(err, errno.ErrDocNotFound.Code))
	assert.Empty(t, vectors.deletedDoc)
}

func TestBatchDeleteDocumentsIsolatesFailures(t *testing.T) {
	env, _ := newServiceEnv(t)
	ctx := context.Background()

	for _, id := range []string{"doc-a", "doc-b"} {
		require.NoError(t, env.store.store.Documents().Create(ctx, &model.Document{
			ID: id, TenantID: "tenant-a", Status: model.StatusProcessed,
		}))
	}

	result, err := env.service.BatchDeleteDocuments(ctx, "tenant-a", []string{"doc-a", "doc-missing", "doc-b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-a", "doc-b"}, result.Deleted)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed, "doc-missing")
}

func TestBatchDeleteDocumentsAllSucceedOmitsFailed(t *testing.T) {
	env, _ := newServiceEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.store.Documents().Create(ctx, &model.Document{
		ID: "doc-a", TenantID: "tenant-a", Status: model.StatusProcessed,
	}))

	result, err := env.service.BatchDeleteDocuments(ctx, "tenant-a", []string{"doc-a"})
	require.NoError(t, err)
	assert.Nil(t, result.Failed)
}

func TestSearchDocumentChecksOwnership(t *testing.T) {
	env, _ := newServiceEnv(t)
	ctx := context.Background()

	_, err := env.service.SearchDocument(ctx, "tenant-a", "doc-nope", "query text")
	assert.True(t, errno.IsCode(err, errno.ErrDocNotFound.Code))

	_, err = env.service.SearchDocument(ctx, "tenant-a", "doc-nope", "  ")
	assert.True(t, errno.IsCode(err, errno.ErrEmptyQuestion.Code))
}

func TestDeleteImageCascade(t *testing.T) {
	env, vectors := newServiceEnv(t)
	ctx := context.Background()

	img := &model.Image{ID: "img-1", TenantID: "tenant-a", Status: model.StatusProcessed}
	require.NoError(t, env.store.store.Images().Create(ctx, img))

	require.NoError(t, env.service.DeleteImage(ctx, "tenant-a", "img-1"))
	assert.Equal(t, []string{"img-1"}, vectors.deletedImg)

	images, err := env.service.ListImages(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestStats(t *testing.T) {
	env, vectors := newServiceEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.store.Documents().Create(ctx, &model.Document{
		ID: "doc-a", TenantID: "tenant-a", Status: model.StatusProcessed,
	}))
	vectors.chunks["tenant-a"] = append(vectors.chunks["tenant-a"], nil, nil, nil)

	stats, err := env.service.Stats(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["document_count"])
	assert.Equal(t, int64(0), stats["image_count"])
	assert.Equal(t, int64(3), stats["chunk_count"])
	assert.Equal(t, "fake-embed", stats["embedding_provider"])
	assert.Equal(t, "fake-chat", stats["chat_provider"])
	assert.NotContains(t, stats, "cache")
}
