package approval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"backend/internal/common"
	"backend/internal/logger"
	"backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkflowService 审批工作流管理服务
type WorkflowService struct {
	*common.BaseService
	userService *user.Service
}

// NewWorkflowService 创建工作流管理服务
func NewWorkflowService(db *gorm.DB, userService *user.Service) *WorkflowService {
	return &WorkflowService{
		BaseService: common.NewBaseService(db),
		userService: userService,
	}
}

// CreateWorkflowRequest 创建工作流请求
type CreateWorkflowRequest struct {
	Name        string
	Description string
	Conditions  []Condition
	Levels      []ApprovalLevel
	Priority    int
	IsActive    *bool
	CreatedBy   string
}

// Create 创建工作流
func (s *WorkflowService) Create(ctx context.Context, req *CreateWorkflowRequest) (*ApprovalWorkflow, error) {
	if req.Name == "" {
		return nil, common.NewBusinessError(common.CodeInvalidRequest, "工作流名称不能为空")
	}
	if err := s.validateDefinition(ctx, req.Conditions, req.Levels); err != nil {
		return nil, err
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&ApprovalWorkflow{}).
		Where("name = ?", req.Name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("检查工作流名称失败: %w", err)
	}
	if count > 0 {
		return nil, common.NewBusinessErrorWithCode(common.CodeWorkflowNameDuplicated)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	now := time.Now().UTC()
	wf := &ApprovalWorkflow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Conditions:  req.Conditions,
		Levels:      req.Levels,
		Priority:    req.Priority,
		IsActive:    active,
		CreatedBy:   req.CreatedBy,
	}
	wf.CreatedAt = now
	wf.UpdatedAt = now

	if err := s.DB.WithContext(ctx).Create(wf).Error; err != nil {
		return nil, fmt.Errorf("创建工作流失败: %w", err)
	}

	logger.WithContext(ctx).Info("审批工作流已创建",
		zap.String("workflowId", wf.ID),
		zap.String("name", wf.Name),
		zap.Int("levels", len(wf.Levels)),
	)
	return wf, nil
}

// Get 查询工作流
func (s *WorkflowService) Get(ctx context.Context, id string) (*ApprovalWorkflow, error) {
	var wf ApprovalWorkflow
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewBusinessErrorWithCode(common.CodeWorkflowNotFound)
		}
		return nil, fmt.Errorf("查询工作流失败: %w", err)
	}
	return &wf, nil
}

// ListWorkflowsRequest 查询工作流列表请求
type ListWorkflowsRequest struct {
	Keyword    string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// List 查询工作流列表
func (s *WorkflowService) List(ctx context.Context, req *ListWorkflowsRequest) ([]*ApprovalWorkflow, int64, error) {
	query := s.DB.WithContext(ctx).Model(&ApprovalWorkflow{})
	if req.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	query = s.ApplyKeywordSearch(query, req.Keyword, []string{"name", "description"})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计工作流数量失败: %w", err)
	}

	var workflows []*ApprovalWorkflow
	if err := s.ApplyPagination(query.Order("priority DESC, created_at ASC"), req.Page, req.PageSize).
		Find(&workflows).Error; err != nil {
		return nil, 0, fmt.Errorf("查询工作流列表失败: %w", err)
	}
	return workflows, total, nil
}

// UpdateWorkflowRequest 更新工作流请求（字段为空表示不修改）
type UpdateWorkflowRequest struct {
	Name        *string
	Description *string
	Conditions  []Condition
	Levels      []ApprovalLevel
	Priority    *int
	IsActive    *bool
}

// Update 更新工作流
func (s *WorkflowService) Update(ctx context.Context, id string, req *UpdateWorkflowRequest) (*ApprovalWorkflow, error) {
	wf, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	conditions := wf.Conditions
	if req.Conditions != nil {
		conditions = req.Conditions
	}
	levels := wf.Levels
	if req.Levels != nil {
		levels = req.Levels
	}
	if err := s.validateDefinition(ctx, conditions, levels); err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil && *req.Name != wf.Name {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&ApprovalWorkflow{}).
			Where("name = ? AND id <> ?", *req.Name, id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("检查工作流名称失败: %w", err)
		}
		if count > 0 {
			return nil, common.NewBusinessErrorWithCode(common.CodeWorkflowNameDuplicated)
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	err = s.Transaction(ctx, func(tx *gorm.DB) error {
		target := tx.Model(&ApprovalWorkflow{}).Where("id = ?", id)
		if err := target.Updates(updates).Error; err != nil {
			return fmt.Errorf("更新工作流失败: %w", err)
		}
		// jsonb 字段走结构化赋值，交给 serializer 序列化
		structured := map[string]any{}
		if req.Conditions != nil {
			structured["conditions"] = conditions
		}
		if req.Levels != nil {
			structured["levels"] = levels
		}
		if len(structured) > 0 {
			if err := tx.Model(&ApprovalWorkflow{ID: id}).Updates(structured).Error; err != nil {
				return fmt.Errorf("更新工作流定义失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete 删除工作流
// 存在进行中的审批时拒绝删除
func (s *WorkflowService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	var pending int64
	if err := s.DB.WithContext(ctx).Model(&Approval{}).
		Where("workflow_id = ? AND status = ?", id, StatusPending).
		Count(&pending).Error; err != nil {
		return fmt.Errorf("检查进行中审批失败: %w", err)
	}
	if pending > 0 {
		return common.NewBusinessErrorWithCode(common.CodeWorkflowHasPendingApprovals)
	}

	if err := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&ApprovalWorkflow{}).Error; err != nil {
		return fmt.Errorf("删除工作流失败: %w", err)
	}

	logger.WithContext(ctx).Info("审批工作流已删除", zap.String("workflowId", id))
	return nil
}

// validateDefinition 校验条件与层级定义
// 不合法的定义在写入时拒绝，避免求值阶段才暴露问题
func (s *WorkflowService) validateDefinition(ctx context.Context, conditions []Condition, levels []ApprovalLevel) error {
	for _, cond := range conditions {
		if cond.Field == "" {
			return common.NewBusinessError(common.CodeWorkflowConditionInvalid, "条件字段路径不能为空")
		}
		if !cond.Operator.IsValid() {
			return common.NewBusinessError(common.CodeWorkflowConditionInvalid,
				fmt.Sprintf("不支持的运算符: %s", cond.Operator))
		}
		if cond.Operator.RequiresList() {
			if _, ok := asList(cond.Value); !ok {
				return common.NewBusinessError(common.CodeWorkflowConditionInvalid,
					fmt.Sprintf("运算符 %s 的比较值必须是列表", cond.Operator))
			}
		}
	}

	if len(levels) == 0 {
		return common.NewBusinessError(common.CodeWorkflowLevelsInvalid, "工作流至少需要一个审批层级")
	}
	numbers := make([]int, 0, len(levels))
	approverSet := make(map[string]struct{})
	for _, lv := range levels {
		numbers = append(numbers, lv.Level)
		if len(lv.ApproverIDs) == 0 {
			return common.NewBusinessError(common.CodeWorkflowLevelsInvalid,
				fmt.Sprintf("层级 %d 未配置审批人", lv.Level))
		}
		for _, id := range lv.ApproverIDs {
			approverSet[id] = struct{}{}
		}
	}
	// 层级编号必须是从 1 起的连续序列
	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i+1 {
			return common.NewBusinessError(common.CodeWorkflowLevelsInvalid,
				"审批层级编号必须从 1 开始连续递增")
		}
	}

	approverIDs := make([]string, 0, len(approverSet))
	for id := range approverSet {
		approverIDs = append(approverIDs, id)
	}
	active, err := s.userService.CountActiveByIDs(ctx, approverIDs)
	if err != nil {
		return fmt.Errorf("校验审批人失败: %w", err)
	}
	if active != int64(len(approverIDs)) {
		return common.NewBusinessErrorWithCode(common.CodeWorkflowApproverInvalid)
	}
	return nil
}
