// Package handler provides HTTP handlers for the docseek service.
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docseek/internal/docseek/biz"
	errno "github.com/kart-io/docseek/pkg/utils/errors"
)

// TenantKey gin 上下文中租户标识的键名。
const TenantKey = "tenant_id"

// Config HTTP 处理层配置。
type Config struct {
	// DevMode 开启后错误响应附带内部原因，仅用于本地调试。
	DevMode bool
	// MaxUploadSize 单次上传的字节上限。
	MaxUploadSize int64
	// QueryTimeout 单次查询的超时时间。
	QueryTimeout time.Duration
}

// Handler handles docseek HTTP requests.
type Handler struct {
	service biz.Service
	config  *Config
}

// New creates a new Handler.
func New(service biz.Service, config *Config) *Handler {
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 60 * time.Second
	}
	return &Handler{service: service, config: config}
}

// Response is the standard response envelope.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// writeError 将业务错误映射为 HTTP 响应。
// 对外只暴露错误码与通用消息，内部原因仅在 dev 模式下附带。
func (h *Handler) writeError(c *gin.Context, err error) {
	e := errno.FromError(err)

	message := e.MessageEN
	if h.config.DevMode {
		if cause := e.Unwrap(); cause != nil {
			message = fmt.Sprintf("%s: %v", message, cause)
		}
	}

	c.JSON(e.HTTPStatus(), Response{Code: e.Code, Message: message})
}

func tenantID(c *gin.Context) string {
	return c.GetString(TenantKey)
}

// TenantRequired 校验 X-Tenant-ID 请求头并注入上下文。
// 所有业务路由都必须携带租户标识。
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetHeader("X-Tenant-ID")
		if tenant == "" {
			e := errno.ErrTenantRequired
			c.AbortWithStatusJSON(e.HTTPStatus(), Response{Code: e.Code, Message: e.MessageEN})
			return
		}
		c.Set(TenantKey, tenant)
		c.Next()
	}
}
