package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docseek/internal/docseek/biz"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

// HistoryTurn 对话历史中的一轮。
type HistoryTurn struct {
	Sender string `json:"sender" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// QueryRequest represents a knowledge base query request.
type QueryRequest struct {
	Question string        `json:"question" binding:"required"`
	History  []HistoryTurn `json:"history,omitempty"`
}

// Query performs a knowledge base query.
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errno.ErrDocInvalidRequest.WithCause(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.QueryTimeout)
	defer cancel()

	history := make([]biz.Turn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, biz.Turn{Sender: turn.Sender, Text: turn.Text})
	}

	result, err := h.service.Query(ctx, tenantID(c), req.Question, history)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			h.writeError(c, errno.ErrQueryTimeout)
			return
		}
		h.writeError(c, err)
		return
	}
	h.ok(c, result)
}
