package handler

import (
	"github.com/gin-gonic/gin"
)

// ListImages 列出当前租户的全部图片。
func (h *Handler) ListImages(c *gin.Context) {
	images, err := h.service.ListImages(c.Request.Context(), tenantID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, images)
}

// DeleteImage 删除图片及其检索单元。
func (h *Handler) DeleteImage(c *gin.Context) {
	if err := h.service.DeleteImage(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, nil)
}

// Stats returns knowledge base statistics.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), tenantID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.ok(c, stats)
}
