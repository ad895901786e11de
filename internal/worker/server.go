package worker

import (
	"context"

	"backend/internal/approval"
	"backend/internal/config"
	"backend/internal/worker/handlers"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Server struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

func NewServer(
	cfg config.RedisConfig,
	sweepInterval string,
	approvalService *approval.Service,
	logger *zap.Logger,
) (*Server, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"approval": 6, // 审批任务优先级高
				"default":  1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("任务执行失败",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()

	approvalHandler := handlers.NewApprovalHandler(approvalService, logger)
	mux.HandleFunc(tasks.TypeSweepOverdueApprovals, approvalHandler.HandleSweepOverdueApprovals)

	// 周期巡检超时审批步骤
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	if sweepInterval == "" {
		sweepInterval = "@every 1h"
	}
	sweepTask := asynq.NewTask(tasks.TypeSweepOverdueApprovals, nil, asynq.Queue("approval"))
	if _, err := scheduler.Register(sweepInterval, sweepTask); err != nil {
		return nil, err
	}

	return &Server{
		server:    srv,
		scheduler: scheduler,
		mux:       mux,
		logger:    logger,
	}, nil
}

// Start 非阻塞启动 worker 与调度器
func (s *Server) Start() error {
	s.logger.Info("Worker 服务器启动中...")
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	return s.scheduler.Start()
}

// Shutdown 停止 worker 与调度器
func (s *Server) Shutdown() {
	s.logger.Info("Worker 服务器停止中...")
	s.scheduler.Shutdown()
	s.server.Shutdown()
}
