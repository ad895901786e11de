package api

import (
	"net/http"
	"strings"
	"time"

	"backend/internal/logger"
	"backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger 请求访问日志
// 带上请求ID便于跟审批链路日志串联；探针类路径不记录
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("requestId", middleware.GetRequestID(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIp", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("请求处理异常", fields...)
		} else {
			logger.Info("请求完成", fields...)
		}
	}
}

// CORS 跨域中间件
// 白名单来自 CORS_ALLOW_ORIGINS，未配置时放开（开发环境）
func CORS() gin.HandlerFunc {
	allowedHeaders := strings.Join(defaultIfEmpty(
		getEnvList("CORS_ALLOW_HEADERS"),
		[]string{"Content-Type", "Content-Length", "Authorization", "Accept", "Origin", "X-Request-ID"},
	), ", ")
	allowedMethods := strings.Join(defaultIfEmpty(
		getEnvList("CORS_ALLOW_METHODS"),
		[]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	), ", ")

	return func(c *gin.Context) {
		allowedOrigins := getEnvList("CORS_ALLOW_ORIGINS")
		origin := c.GetHeader("Origin")

		switch {
		case len(allowedOrigins) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && stringInSlice(origin, allowedOrigins):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
