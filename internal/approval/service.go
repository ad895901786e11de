package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/common"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/quotation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 审批状态机服务
// 负责审批单的发起、步骤处理、层级推进与终态落定
type Service struct {
	*common.BaseService
	matcher    *Matcher
	quotations *quotation.Service
	bus        *EventBus
}

// NewService 创建审批服务
func NewService(db *gorm.DB, matcher *Matcher, quotations *quotation.Service, bus *EventBus) *Service {
	return &Service{
		BaseService: common.NewBaseService(db),
		matcher:     matcher,
		quotations:  quotations,
		bus:         bus,
	}
}

// StepDecision 审批步骤决定
type StepDecision struct {
	Status   string `json:"status" binding:"required,oneof=approved rejected"`
	Comments string `json:"comments"`
}

// QuotationSummary 审批详情中的报价单摘要
type QuotationSummary struct {
	ID              string  `json:"id"`
	QuotationNumber string  `json:"quotationNumber"`
	CustomerName    string  `json:"customerName"`
	TotalAmount     float64 `json:"totalAmount"`
	Currency        string  `json:"currency"`
}

// StepDetail 审批详情中的步骤视图
type StepDetail struct {
	ID         string     `json:"id"`
	Level      int        `json:"level"`
	ApproverID string     `json:"approverId"`
	Status     string     `json:"status"`
	Comments   string     `json:"comments,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
}

// ApprovalDetail 审批详情视图
type ApprovalDetail struct {
	ID           string           `json:"id"`
	Quotation    QuotationSummary `json:"quotation"`
	WorkflowID   string           `json:"workflowId"`
	WorkflowName string           `json:"workflowName"`
	CurrentLevel int              `json:"currentLevel"`
	Status       string           `json:"status"`
	RequestedBy  string           `json:"requestedBy"`
	RequestedAt  time.Time        `json:"requestedAt"`
	CompletedAt  *time.Time       `json:"completedAt,omitempty"`
	Steps        []StepDetail     `json:"steps"`
}

// RequestApproval 为报价单发起审批
func (s *Service) RequestApproval(ctx context.Context, quotationID, requesterID string) (*ApprovalDetail, error) {
	q, err := s.quotations.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}

	// 仅草稿与已发送状态可发起审批
	if q.Status != quotation.StatusDraft && q.Status != quotation.StatusSent {
		return nil, common.NewBusinessErrorWithCode(common.CodeQuotationNotApprovable)
	}

	var pending int64
	if err := s.DB.WithContext(ctx).Model(&Approval{}).
		Where("quotation_id = ? AND status = ?", quotationID, StatusPending).
		Count(&pending).Error; err != nil {
		return nil, fmt.Errorf("检查进行中审批失败: %w", err)
	}
	if pending > 0 {
		return nil, common.NewBusinessErrorWithCode(common.CodeDuplicatePendingApproval)
	}

	wf, err := s.matcher.Match(ctx, q)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, common.NewBusinessErrorWithCode(common.CodeNoMatchingWorkflow)
	}

	firstLevel := wf.LevelByNumber(1)
	if firstLevel == nil {
		return nil, common.NewBusinessErrorWithCode(common.CodeWorkflowLevelsInvalid)
	}

	now := time.Now().UTC()
	approval := &Approval{
		ID:           uuid.New().String(),
		QuotationID:  q.ID,
		WorkflowID:   wf.ID,
		CurrentLevel: 1,
		Status:       StatusPending,
		RequestedBy:  requesterID,
		RequestedAt:  now,
	}
	approval.CreatedAt = now
	approval.UpdatedAt = now

	err = s.Transaction(ctx, func(tx *gorm.DB) error {
		// 事务内复查，收窄并发发起的竞态窗口
		var again int64
		if err := tx.Model(&Approval{}).
			Where("quotation_id = ? AND status = ?", quotationID, StatusPending).
			Count(&again).Error; err != nil {
			return fmt.Errorf("检查进行中审批失败: %w", err)
		}
		if again > 0 {
			return common.NewBusinessErrorWithCode(common.CodeDuplicatePendingApproval)
		}

		if err := tx.Create(approval).Error; err != nil {
			return fmt.Errorf("创建审批失败: %w", err)
		}
		steps := buildSteps(approval.ID, firstLevel, now)
		if err := tx.Create(&steps).Error; err != nil {
			return fmt.Errorf("创建审批步骤失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ApprovalPendingGauge.Inc()
	logger.WithContext(ctx).Info("审批已发起",
		zap.String("approvalId", approval.ID),
		zap.String("quotationId", q.ID),
		zap.String("workflowName", wf.Name),
	)

	evt := ApprovalEvent{
		ApprovalID:      approval.ID,
		QuotationID:     q.ID,
		QuotationNumber: q.QuotationNumber,
		Level:           1,
		Status:          StatusPending,
		ActorID:         requesterID,
		OccurredAt:      now,
	}
	for _, approverID := range firstLevel.ApproverIDs {
		s.bus.Publish(approverID, evt)
	}

	return s.GetApprovalDetail(ctx, approval.ID)
}

// buildSteps 为指定层级的全部审批人生成待处理步骤
func buildSteps(approvalID string, level *ApprovalLevel, now time.Time) []ApprovalStep {
	steps := make([]ApprovalStep, 0, len(level.ApproverIDs))
	for _, approverID := range level.ApproverIDs {
		step := ApprovalStep{
			ID:         uuid.New().String(),
			ApprovalID: approvalID,
			Level:      level.Level,
			ApproverID: approverID,
			Status:     StatusPending,
		}
		step.CreatedAt = now
		step.UpdatedAt = now
		steps = append(steps, step)
	}
	return steps
}

// advanceOutcome 层级推进结果，供提交后上报指标与事件
type advanceOutcome struct {
	finalStatus   string // 空表示未进入终态
	advancedTo    int    // 0 表示未推进层级
	nextApprovers []string
}

// ProcessStep 处理一个审批步骤
func (s *Service) ProcessStep(ctx context.Context, approvalID, stepID string, decision StepDecision, approverID string) (*ApprovalDetail, error) {
	if decision.Status != StatusApproved && decision.Status != StatusRejected {
		return nil, common.NewBusinessError(common.CodeInvalidRequest,
			fmt.Sprintf("无效的审批决定: %s", decision.Status))
	}

	var step ApprovalStep
	if err := s.DB.WithContext(ctx).Where("id = ?", stepID).First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewBusinessErrorWithCode(common.CodeApprovalStepNotFound)
		}
		return nil, fmt.Errorf("查询审批步骤失败: %w", err)
	}
	if step.ApprovalID != approvalID {
		return nil, common.NewBusinessErrorWithCode(common.CodeStepApprovalMismatch)
	}

	var approval Approval
	if err := s.DB.WithContext(ctx).Preload("Workflow").
		Where("id = ?", approvalID).First(&approval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewBusinessErrorWithCode(common.CodeApprovalNotFound)
		}
		return nil, fmt.Errorf("查询审批失败: %w", err)
	}

	// 只有指定审批人可以决定该步骤
	if step.ApproverID != approverID {
		return nil, common.NewBusinessErrorWithCode(common.CodeNotAssignedApprover)
	}
	if step.Status != StatusPending {
		return nil, common.NewBusinessErrorWithCode(common.CodeStepAlreadyProcessed)
	}
	if approval.Status != StatusPending {
		return nil, common.NewBusinessErrorWithCode(common.CodeApprovalNotPending)
	}

	now := time.Now().UTC()
	var outcome advanceOutcome
	err := s.Transaction(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     decision.Status,
			"comments":   decision.Comments,
			"updated_at": now,
		}
		if decision.Status == StatusApproved {
			updates["approved_at"] = now
		}
		// 条件更新防止同一步骤被并发处理两次
		result := tx.Model(&ApprovalStep{}).
			Where("id = ? AND status = ?", stepID, StatusPending).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("更新审批步骤失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return common.NewBusinessErrorWithCode(common.CodeStepAlreadyProcessed)
		}

		var err error
		outcome, err = s.advanceLevel(tx, approvalID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ApprovalDecisionsTotal.WithLabelValues(decision.Status).Inc()
	if outcome.finalStatus != "" {
		metrics.ApprovalCompletedTotal.WithLabelValues(outcome.finalStatus).Inc()
		metrics.ApprovalPendingGauge.Dec()
	}

	logger.WithContext(ctx).Info("审批步骤已处理",
		zap.String("approvalId", approvalID),
		zap.String("stepId", stepID),
		zap.String("decision", decision.Status),
		zap.String("finalStatus", outcome.finalStatus),
		zap.Int("advancedTo", outcome.advancedTo),
	)

	s.publishStepEvent(ctx, &approval, &step, decision, approverID, outcome, now)

	return s.GetApprovalDetail(ctx, approvalID)
}

// publishStepEvent 在事务提交后向相关用户推送事件
func (s *Service) publishStepEvent(ctx context.Context, approval *Approval, step *ApprovalStep, decision StepDecision, actorID string, outcome advanceOutcome, now time.Time) {
	q, err := s.quotations.Get(ctx, approval.QuotationID)
	if err != nil {
		logger.WithContext(ctx).Warn("推送审批事件时查询报价单失败", zap.Error(err))
		return
	}

	status := decision.Status
	if outcome.finalStatus != "" {
		status = outcome.finalStatus
	}
	evt := ApprovalEvent{
		ApprovalID:      approval.ID,
		QuotationID:     q.ID,
		QuotationNumber: q.QuotationNumber,
		Level:           step.Level,
		Status:          status,
		ActorID:         actorID,
		Comment:         decision.Comments,
		OccurredAt:      now,
	}

	// 发起人总是收到进展通知
	s.bus.Publish(approval.RequestedBy, evt)
	// 推进到新层级时通知新层级的审批人
	for _, approverID := range outcome.nextApprovers {
		s.bus.Publish(approverID, evt)
	}
}

// advanceLevel 层级推进
// 在事务内重读当前状态，所有推进写入都带前置状态条件，
// 读到陈旧状态时按无操作处理，保证并发步骤决定下不会重复推进或重复终态
func (s *Service) advanceLevel(tx *gorm.DB, approvalID string, now time.Time) (advanceOutcome, error) {
	var outcome advanceOutcome

	var approval Approval
	if err := tx.Preload("Workflow").Preload("Steps").
		Where("id = ?", approvalID).First(&approval).Error; err != nil {
		return outcome, fmt.Errorf("重读审批状态失败: %w", err)
	}
	if approval.Status != StatusPending {
		return outcome, nil
	}
	if approval.Workflow == nil {
		return outcome, common.NewBusinessErrorWithCode(common.CodeWorkflowNotFound)
	}

	levelDef := approval.Workflow.LevelByNumber(approval.CurrentLevel)
	if levelDef == nil {
		return outcome, common.NewBusinessErrorWithCode(common.CodeWorkflowLevelsInvalid)
	}

	var approved, rejected, total int
	for _, st := range approval.Steps {
		if st.Level != approval.CurrentLevel {
			continue
		}
		total++
		switch st.Status {
		case StatusApproved:
			approved++
		case StatusRejected:
			rejected++
		}
	}

	// 任一拒绝立即终结整个审批
	if rejected > 0 {
		done, err := s.finalize(tx, &approval, StatusRejected, now)
		if err != nil {
			return outcome, err
		}
		if done {
			outcome.finalStatus = StatusRejected
		}
		return outcome, nil
	}

	complete := approved >= total
	if !levelDef.RequireAllApprovers {
		complete = approved >= 1
	}
	if !complete {
		return outcome, nil
	}

	next := approval.Workflow.LevelByNumber(approval.CurrentLevel + 1)
	if next == nil {
		// 末级完成：审批通过，并特权覆写报价单状态
		done, err := s.finalize(tx, &approval, StatusApproved, now)
		if err != nil {
			return outcome, err
		}
		if done {
			if err := s.quotations.ForceApproveTx(tx, approval.QuotationID); err != nil {
				return outcome, err
			}
			outcome.finalStatus = StatusApproved
		}
		return outcome, nil
	}

	// 带前置层级条件推进，并发触发时只有一个写入生效
	result := tx.Model(&Approval{}).
		Where("id = ? AND status = ? AND current_level = ?",
			approval.ID, StatusPending, approval.CurrentLevel).
		Updates(map[string]any{"current_level": next.Level, "updated_at": now})
	if result.Error != nil {
		return outcome, fmt.Errorf("推进审批层级失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return outcome, nil
	}

	steps := buildSteps(approval.ID, next, now)
	if err := tx.Create(&steps).Error; err != nil {
		return outcome, fmt.Errorf("创建下一层级步骤失败: %w", err)
	}
	outcome.advancedTo = next.Level
	outcome.nextApprovers = next.ApproverIDs
	return outcome, nil
}

// finalize 将审批写入终态，返回写入是否生效
func (s *Service) finalize(tx *gorm.DB, approval *Approval, status string, now time.Time) (bool, error) {
	result := tx.Model(&Approval{}).
		Where("id = ? AND status = ? AND current_level = ?",
			approval.ID, StatusPending, approval.CurrentLevel).
		Updates(map[string]any{
			"status":       status,
			"completed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("写入审批终态失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetApprovalDetail 查询审批详情
func (s *Service) GetApprovalDetail(ctx context.Context, approvalID string) (*ApprovalDetail, error) {
	var approval Approval
	if err := s.DB.WithContext(ctx).
		Preload("Workflow").
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("level ASC, created_at ASC")
		}).
		Where("id = ?", approvalID).
		First(&approval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewBusinessErrorWithCode(common.CodeApprovalNotFound)
		}
		return nil, fmt.Errorf("查询审批失败: %w", err)
	}
	return s.buildDetail(ctx, &approval)
}

// buildDetail 组装审批详情视图
func (s *Service) buildDetail(ctx context.Context, approval *Approval) (*ApprovalDetail, error) {
	q, err := s.quotations.Get(ctx, approval.QuotationID)
	if err != nil {
		return nil, err
	}

	detail := &ApprovalDetail{
		ID:           approval.ID,
		WorkflowID:   approval.WorkflowID,
		CurrentLevel: approval.CurrentLevel,
		Status:       approval.Status,
		RequestedBy:  approval.RequestedBy,
		RequestedAt:  approval.RequestedAt,
		CompletedAt:  approval.CompletedAt,
		Quotation: QuotationSummary{
			ID:              q.ID,
			QuotationNumber: q.QuotationNumber,
			TotalAmount:     q.TotalAmount,
			Currency:        q.Currency,
		},
		Steps: make([]StepDetail, 0, len(approval.Steps)),
	}
	if q.Customer != nil {
		detail.Quotation.CustomerName = q.Customer.Name
	}
	if approval.Workflow != nil {
		detail.WorkflowName = approval.Workflow.Name
	}
	for _, st := range approval.Steps {
		detail.Steps = append(detail.Steps, StepDetail{
			ID:         st.ID,
			Level:      st.Level,
			ApproverID: st.ApproverID,
			Status:     st.Status,
			Comments:   st.Comments,
			ApprovedAt: st.ApprovedAt,
		})
	}
	return detail, nil
}

// GetPendingApprovalsFor 查询指定审批人当前待处理的审批
// 仅返回当前层级存在其待处理步骤的审批
func (s *Service) GetPendingApprovalsFor(ctx context.Context, approverID string) ([]*ApprovalDetail, error) {
	var approvals []Approval
	if err := s.DB.WithContext(ctx).
		Joins("JOIN approval_steps ON approval_steps.approval_id = approvals.id").
		Where("approvals.status = ?", StatusPending).
		Where("approval_steps.approver_id = ? AND approval_steps.status = ?", approverID, StatusPending).
		Where("approval_steps.level = approvals.current_level").
		Group("approvals.id").
		Preload("Workflow").
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("level ASC, created_at ASC")
		}).
		Order("approvals.requested_at ASC").
		Find(&approvals).Error; err != nil {
		return nil, fmt.Errorf("查询待处理审批失败: %w", err)
	}

	details := make([]*ApprovalDetail, 0, len(approvals))
	for i := range approvals {
		detail, err := s.buildDetail(ctx, &approvals[i])
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// SweepOverdueSteps 巡检超时未处理的审批步骤
// 层级上的超时时长仅用于提醒，不触发任何自动审批决定
func (s *Service) SweepOverdueSteps(ctx context.Context) (int, error) {
	var approvals []Approval
	if err := s.DB.WithContext(ctx).
		Preload("Workflow").
		Preload("Steps").
		Where("status = ?", StatusPending).
		Find(&approvals).Error; err != nil {
		return 0, fmt.Errorf("查询进行中审批失败: %w", err)
	}

	now := time.Now().UTC()
	overdue := 0
	for i := range approvals {
		a := &approvals[i]
		if a.Workflow == nil {
			continue
		}
		levelDef := a.Workflow.LevelByNumber(a.CurrentLevel)
		if levelDef == nil || levelDef.AutoTimeoutHours <= 0 {
			continue
		}
		deadline := time.Duration(levelDef.AutoTimeoutHours) * time.Hour
		for _, st := range a.Steps {
			if st.Level != a.CurrentLevel || st.Status != StatusPending {
				continue
			}
			if now.Sub(st.CreatedAt) > deadline {
				overdue++
				logger.WithContext(ctx).Warn("审批步骤超时未处理",
					zap.String("approvalId", a.ID),
					zap.String("stepId", st.ID),
					zap.String("approverId", st.ApproverID),
					zap.Int("level", st.Level),
					zap.Int("timeoutHours", levelDef.AutoTimeoutHours),
				)
			}
		}
	}

	metrics.ApprovalOverdueSteps.Set(float64(overdue))
	return overdue, nil
}
