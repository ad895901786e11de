package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/config"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client 任务队列客户端接口
type Client interface {
	EnqueueSweepOverdueApprovals() error
	Close() error
}

type asynqClient struct {
	client *asynq.Client
}

// NewClient 创建任务队列客户端
func NewClient(cfg config.RedisConfig) Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &asynqClient{client: client}
}

func (c *asynqClient) EnqueueSweepOverdueApprovals() error {
	payload, err := json.Marshal(tasks.SweepOverdueApprovalsPayload{})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeSweepOverdueApprovals, payload)

	// 巡检任务幂等，失败重试一次即可
	_, err = c.client.Enqueue(task,
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("approval"),
	)
	if err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}

	return nil
}

func (c *asynqClient) Close() error {
	return c.client.Close()
}
