package handler

import (
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docseek/internal/docseek/biz"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

// Upload 接收 multipart 上传，字段名 files，支持一次多个文件。
func (h *Handler) Upload(c *gin.Context) {
	if c.Request.ContentLength > h.config.MaxUploadSize {
		h.writeError(c, errno.ErrRequestTooLarge.WithMessagef(
			"upload exceeds limit of %d bytes", h.config.MaxUploadSize))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.writeError(c, errno.ErrDocInvalidRequest.WithCause(err))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		h.writeError(c, errno.ErrDocNoFile)
		return
	}

	files := make([]*biz.UploadFile, 0, len(headers))
	for _, header := range headers {
		files = append(files, uploadFileFrom(header))
	}

	results, err := h.service.UploadFiles(c.Request.Context(), tenantID(c), files)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, results)
}

func uploadFileFrom(header *multipart.FileHeader) *biz.UploadFile {
	mediaType := header.Header.Get("Content-Type")
	return &biz.UploadFile{
		OriginalName: header.Filename,
		MediaType:    mediaType,
		Size:         header.Size,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

// ListFiles 列出当前租户的全部文档。
func (h *Handler) ListFiles(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context(), tenantID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, docs)
}

// GetFile 获取单个文档。
func (h *Handler) GetFile(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, doc)
}

// ListFilesByStatus 按处理状态列出文档。
func (h *Handler) ListFilesByStatus(c *gin.Context) {
	docs, err := h.service.ListDocumentsByStatus(c.Request.Context(), tenantID(c), c.Param("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, docs)
}

// DeleteFile 删除文档及其全部块。
func (h *Handler) DeleteFile(c *gin.Context) {
	if err := h.service.DeleteDocument(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, nil)
}

// BatchDeleteRequest 批量删除请求。
type BatchDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// BatchDeleteFiles 批量删除文档，单个失败不影响其余。
func (h *Handler) BatchDeleteFiles(c *gin.Context) {
	var req BatchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errno.ErrDocInvalidRequest.WithCause(err))
		return
	}

	result, err := h.service.BatchDeleteDocuments(c.Request.Context(), tenantID(c), req.IDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, result)
}

// SearchRequest 文档内检索请求。
type SearchRequest struct {
	FileID string `json:"file_id" binding:"required"`
	Query  string `json:"query" binding:"required"`
}

// SearchFile 在单个文档的块范围内做相似度检索。
func (h *Handler) SearchFile(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errno.ErrDocInvalidRequest.WithCause(err))
		return
	}

	chunks, err := h.service.SearchDocument(c.Request.Context(), tenantID(c), req.FileID, req.Query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, chunks)
}
