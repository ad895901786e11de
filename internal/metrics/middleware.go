package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// PrometheusMiddleware Prometheus 指标收集中间件
// 自动记录所有 HTTP 请求的指标（QPS、延迟、状态码等）
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 /metrics 端点，避免自我监控
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()

		// 使用路由模板而非实际路径，避免标签基数爆炸
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())

		APIRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		APIRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}
