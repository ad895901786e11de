package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"backend/api"
	"backend/internal/approval"
	"backend/internal/config"
	"backend/internal/customer"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/quotation"
	"backend/internal/user"
	"backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title SalesFlow API
// @version 1.0
// @description B2B 销售报价与审批平台 API
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 0. 统一加载 .env，便于集中管理 APP_* 环境变量
	loadEnvFile()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 1. 加载配置
	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	// 3. 初始化数据库
	db, err := infra.InitDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase()

	// 4. 执行数据库迁移（根据配置）
	if cfg.Database.AutoMigrate {
		if err := runMigrations(db); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	} else {
		logger.Info("跳过自动迁移（配置已禁用）")
	}

	// 5. 初始化 Redis（令牌黑名单与任务队列）
	redisClient, err := infra.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis 不可用，令牌黑名单与超时巡检将不可用", zap.Error(err))
		redisClient = nil
	}
	defer infra.CloseRedis()

	// 6. 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 7. 创建路由与 worker
	router, workerServer, err := api.SetupRouter(db, redisClient, cfg)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 8. 创建 HTTP 服务器
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器启动", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	if workerServer != nil {
		if err := workerServer.Start(); err != nil {
			logger.Fatal("Worker 服务器启动失败", zap.Error(err))
		}
	}

	// 9. 优雅关闭
	gracefulShutdown(server, workerServer)
}

// gracefulShutdown 等待退出信号并依次关闭 worker 与 HTTP 服务器
func gracefulShutdown(server *http.Server, workerServer *worker.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始优雅关闭...")

	if workerServer != nil {
		workerServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP 服务器关闭失败", zap.Error(err))
	}

	logger.Info("应用已退出")
}

// loadEnvFile 依次尝试加载当前目录及上级目录的 .env 文件
func loadEnvFile() {
	if path := resolveEnvPath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("加载环境变量文件 %s 失败: %v\n", path, err)
		} else {
			fmt.Printf("已加载环境变量文件: %s\n", path)
		}
	}
}

// resolveEnvPath 从当前工作目录向上查找 .env
func resolveEnvPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	dir := filepath.Clean(wd)
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// runMigrations 执行数据库迁移
func runMigrations(db *gorm.DB) error {
	logger.Info("执行核心表自动迁移...")
	return infra.AutoMigrate(db,
		&user.User{},
		&customer.Customer{},
		&quotation.Quotation{},
		&quotation.QuotationItem{},
		&approval.ApprovalWorkflow{},
		&approval.Approval{},
		&approval.ApprovalStep{},
	)
}
