package handlers

import (
	"context"

	"backend/internal/approval"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type ApprovalHandler struct {
	approvalService *approval.Service
	logger          *zap.Logger
}

func NewApprovalHandler(approvalService *approval.Service, logger *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
		logger:          logger,
	}
}

// HandleSweepOverdueApprovals 巡检超时未处理的审批步骤
// 只上报指标与日志，不做任何自动审批决定
func (h *ApprovalHandler) HandleSweepOverdueApprovals(ctx context.Context, t *asynq.Task) error {
	overdue, err := h.approvalService.SweepOverdueSteps(ctx)
	if err != nil {
		h.logger.Error("审批超时巡检失败", zap.Error(err))
		return err
	}

	h.logger.Info("审批超时巡检完成", zap.Int("overdueSteps", overdue))
	return nil
}
