package approval

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DashboardService 审批看板聚合查询
// 直接聚合查询，不做缓存
type DashboardService struct {
	db          *gorm.DB
	approvals   *Service
	recentLimit int
}

// NewDashboardService 创建看板服务
func NewDashboardService(db *gorm.DB, approvals *Service, recentLimit int) *DashboardService {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &DashboardService{
		db:          db,
		approvals:   approvals,
		recentLimit: recentLimit,
	}
}

// WorkflowPendingCount 单个工作流的待处理审批数量
type WorkflowPendingCount struct {
	WorkflowID   string `json:"workflowId"`
	WorkflowName string `json:"workflowName"`
	Count        int64  `json:"count"`
}

// DashboardSummary 看板汇总数据
type DashboardSummary struct {
	PendingTotal    int64                  `json:"pendingTotal"`
	PendingForUser  int64                  `json:"pendingForUser"`
	ApprovedToday   int64                  `json:"approvedToday"`
	RejectedToday   int64                  `json:"rejectedToday"`
	RecentCompleted []*ApprovalDetail      `json:"recentCompleted"`
	WorkflowPending []WorkflowPendingCount `json:"workflowPending"`
}

// GetDashboard 查询看板汇总
// userID 为空时 PendingForUser 固定为 0
func (s *DashboardService) GetDashboard(ctx context.Context, userID string) (*DashboardSummary, error) {
	summary := &DashboardSummary{
		RecentCompleted: make([]*ApprovalDetail, 0, s.recentLimit),
		WorkflowPending: make([]WorkflowPendingCount, 0),
	}

	if err := s.db.WithContext(ctx).Model(&Approval{}).
		Where("status = ?", StatusPending).
		Count(&summary.PendingTotal).Error; err != nil {
		return nil, fmt.Errorf("统计待处理审批失败: %w", err)
	}

	if userID != "" {
		if err := s.db.WithContext(ctx).Model(&Approval{}).
			Joins("JOIN approval_steps ON approval_steps.approval_id = approvals.id").
			Where("approvals.status = ?", StatusPending).
			Where("approval_steps.approver_id = ? AND approval_steps.status = ?", userID, StatusPending).
			Where("approval_steps.level = approvals.current_level").
			Distinct("approvals.id").
			Count(&summary.PendingForUser).Error; err != nil {
			return nil, fmt.Errorf("统计用户待处理审批失败: %w", err)
		}
	}

	todayStart := startOfDay(time.Now().UTC())
	if err := s.db.WithContext(ctx).Model(&Approval{}).
		Where("status = ? AND completed_at >= ?", StatusApproved, todayStart).
		Count(&summary.ApprovedToday).Error; err != nil {
		return nil, fmt.Errorf("统计今日通过审批失败: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&Approval{}).
		Where("status = ? AND completed_at >= ?", StatusRejected, todayStart).
		Count(&summary.RejectedToday).Error; err != nil {
		return nil, fmt.Errorf("统计今日拒绝审批失败: %w", err)
	}

	var recent []Approval
	if err := s.db.WithContext(ctx).
		Preload("Workflow").
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("level ASC, created_at ASC")
		}).
		Where("status IN ?", []string{StatusApproved, StatusRejected}).
		Order("completed_at DESC").
		Limit(s.recentLimit).
		Find(&recent).Error; err != nil {
		return nil, fmt.Errorf("查询最近完成审批失败: %w", err)
	}
	for i := range recent {
		detail, err := s.approvals.buildDetail(ctx, &recent[i])
		if err != nil {
			return nil, err
		}
		summary.RecentCompleted = append(summary.RecentCompleted, detail)
	}

	if err := s.db.WithContext(ctx).Model(&Approval{}).
		Select("approvals.workflow_id AS workflow_id, approval_workflows.name AS workflow_name, COUNT(*) AS count").
		Joins("JOIN approval_workflows ON approval_workflows.id = approvals.workflow_id").
		Where("approvals.status = ?", StatusPending).
		Group("approvals.workflow_id, approval_workflows.name").
		Order("count DESC").
		Scan(&summary.WorkflowPending).Error; err != nil {
		return nil, fmt.Errorf("统计各工作流待处理审批失败: %w", err)
	}

	return summary, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
