package api

import (
	"backend/internal/config"
	"backend/internal/logger"
	"backend/internal/metrics"
	middlewarepkg "backend/internal/middleware"
	"backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRouter 设置并返回 Gin 路由和 Worker 服务器
func SetupRouter(db *gorm.DB, redisClient redis.UniversalClient, cfg *config.Config) (*gin.Engine, *worker.Server, error) {
	router := gin.New()

	container := BuildContainer(db, redisClient, cfg)
	handlers := BuildHandlers(container)

	rateLimiter := middlewarepkg.NewRateLimiter(middlewarepkg.DefaultRateLimiterConfig())

	router.Use(
		gin.Recovery(),
		middlewarepkg.RequestIDMiddleware(),
		RequestLogger(),
		CORS(),
		metrics.PrometheusMiddleware(),
		rateLimiter.Middleware(),
	)

	// 系统探针与指标
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(router, container, handlers)

	// 审批超时巡检 worker（可配置关闭）
	var workerServer *worker.Server
	if cfg.Approval.EnableSweeper {
		var err error
		workerServer, err = worker.NewServer(cfg.Redis, cfg.Approval.SweepInterval, container.ApprovalService, logger.Get())
		if err != nil {
			return nil, nil, err
		}
	} else {
		logger.Info("审批超时巡检已禁用", zap.String("reason", "配置关闭"))
	}

	return router, workerServer, nil
}
