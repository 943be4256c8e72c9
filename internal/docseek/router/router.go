// Package router provides docseek service routing.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/version"

	"github.com/kart-io/docseek/internal/docseek/handler"
)

// HealthFunc 健康检查回调，返回 nil 表示健康。
type HealthFunc func() error

// Register registers the docseek service routes.
func Register(engine *gin.Engine, h *handler.Handler, health HealthFunc) {
	engine.Use(accessLog(), recovery())

	engine.GET("/healthz", healthz(health))

	v1 := engine.Group("/v1", handler.TenantRequired())
	{
		files := v1.Group("/files")
		{
			files.POST("", h.Upload)
			files.GET("", h.ListFiles)
			files.GET("/:id", h.GetFile)
			files.GET("/status/:status", h.ListFilesByStatus)
			files.DELETE("/:id", h.DeleteFile)
			files.POST("/batch-delete", h.BatchDeleteFiles)
			files.POST("/search", h.SearchFile)
		}

		chat := v1.Group("/chat")
		{
			chat.POST("/query", h.Query)
		}

		images := v1.Group("/images")
		{
			images.GET("", h.ListImages)
			images.DELETE("/:id", h.DeleteImage)
		}

		v1.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
}

func healthz(health HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health != nil {
			if err := health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.Get().GitVersion,
		})
	}
}

// accessLog 记录请求日志。
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// recovery 捕获处理过程中的 panic，返回统一错误响应。
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("handler panicked",
					"path", c.Request.URL.Path,
					"panic", r,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, handler.Response{
					Code:    500,
					Message: "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
