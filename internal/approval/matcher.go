package approval

import (
	"context"
	"fmt"

	"backend/internal/logger"
	"backend/internal/quotation"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Matcher 工作流匹配器
// 按优先级降序遍历启用的工作流，返回首个所有条件均满足的工作流
type Matcher struct {
	db *gorm.DB
}

// NewMatcher 创建工作流匹配器
func NewMatcher(db *gorm.DB) *Matcher {
	return &Matcher{db: db}
}

// Match 为报价单匹配工作流
// 无匹配时返回 (nil, nil)，由调用方决定是否视为错误
func (m *Matcher) Match(ctx context.Context, q *quotation.Quotation) (*ApprovalWorkflow, error) {
	var workflows []*ApprovalWorkflow
	// 同优先级按创建时间升序，保证匹配结果确定
	if err := m.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority DESC, created_at ASC").
		Find(&workflows).Error; err != nil {
		return nil, fmt.Errorf("查询启用工作流失败: %w", err)
	}

	record := BuildConditionRecord(q)
	for _, wf := range workflows {
		if matchesAll(record, wf.Conditions) {
			logger.WithContext(ctx).Debug("报价单命中审批工作流",
				zap.String("quotationId", q.ID),
				zap.String("workflowId", wf.ID),
				zap.String("workflowName", wf.Name),
				zap.Int("priority", wf.Priority),
			)
			return wf, nil
		}
	}
	return nil, nil
}

// matchesAll 所有条件按 AND 组合求值
func matchesAll(record ConditionRecord, conditions []Condition) bool {
	for _, cond := range conditions {
		if !EvaluateCondition(record, cond) {
			return false
		}
	}
	return true
}
