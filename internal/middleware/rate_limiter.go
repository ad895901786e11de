package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	RequestsPerSecond int           // 每秒请求数
	BurstSize         int           // 突发容量
	CleanupInterval   time.Duration // 清理间隔
}

// DefaultRateLimiterConfig 默认配置
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		CleanupInterval:   5 * time.Minute,
	}
}

// clientState 客户端令牌桶状态
type clientState struct {
	tokens     float64
	lastUpdate time.Time
}

// RateLimiter 基于客户端IP的令牌桶限流器
type RateLimiter struct {
	config  *RateLimiterConfig
	clients map[string]*clientState
	mu      sync.Mutex
	stopCh  chan struct{}
}

// NewRateLimiter 创建限流器
func NewRateLimiter(config *RateLimiterConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}

	rl := &RateLimiter{
		config:  config,
		clients: make(map[string]*clientState),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	state, exists := rl.clients[key]
	if !exists {
		rl.clients[key] = &clientState{
			tokens:     float64(rl.config.BurstSize) - 1,
			lastUpdate: now,
		}
		return true
	}

	// 按流逝时间补充令牌
	elapsed := now.Sub(state.lastUpdate).Seconds()
	state.tokens += elapsed * float64(rl.config.RequestsPerSecond)
	if state.tokens > float64(rl.config.BurstSize) {
		state.tokens = float64(rl.config.BurstSize)
	}
	state.lastUpdate = now

	if state.tokens < 1 {
		return false
	}
	state.tokens--
	return true
}

// Middleware 返回 Gin 中间件
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后重试"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Stop 停止清理协程
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// cleanup 定期清理长时间不活跃的客户端
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rl.config.CleanupInterval)
			for key, state := range rl.clients {
				if state.lastUpdate.Before(cutoff) {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
