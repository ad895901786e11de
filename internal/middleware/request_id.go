package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 上下文键
type contextKey string

const (
	// RequestIDKey 请求 ID 上下文键
	RequestIDKey contextKey = "request_id"
	// TraceIDKey 追踪 ID 上下文键
	TraceIDKey contextKey = "trace_id"
)

// HTTP 头常量
const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// RequestIDMiddleware 请求 ID 中间件
// 为每个请求生成唯一的请求 ID，支持上游透传
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = requestID
		}

		c.Set(string(RequestIDKey), requestID)
		c.Set(string(TraceIDKey), traceID)

		// 注入到 context.Context
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, RequestIDKey, requestID)
		ctx = context.WithValue(ctx, TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

// GetRequestID 从上下文获取请求 ID
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(RequestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetTraceID 从上下文获取追踪 ID
func GetTraceID(ctx context.Context) string {
	if v := ctx.Value(TraceIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
