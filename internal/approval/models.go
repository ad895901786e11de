package approval

import (
	"time"

	"backend/internal/common"
)

// Operator 条件比较运算符
type Operator string

const (
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
)

// IsValid 判断运算符是否合法
func (o Operator) IsValid() bool {
	switch o {
	case OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual,
		OpEqual, OpNotEqual, OpIn, OpNotIn:
		return true
	}
	return false
}

// RequiresList 判断运算符的比较值是否必须为列表
func (o Operator) RequiresList() bool {
	return o == OpIn || o == OpNotIn
}

// Condition 工作流匹配条件（字段路径 + 运算符 + 比较值）
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// ApprovalLevel 审批层级定义（内嵌于工作流，不独立建表）
type ApprovalLevel struct {
	Level               int      `json:"level"`
	Name                string   `json:"name"`
	ApproverIDs         []string `json:"approverIds"`
	RequireAllApprovers bool     `json:"requireAllApprovers"`
	AutoTimeoutHours    int      `json:"autoTimeoutHours,omitempty"`
}

// 审批单与审批步骤状态
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ApprovalWorkflow 审批工作流定义
type ApprovalWorkflow struct {
	ID          string          `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(128);uniqueIndex;not null"` // 工作流名称
	Description string          `json:"description" gorm:"type:text"`
	Conditions  []Condition     `json:"conditions" gorm:"type:jsonb;serializer:json"` // 匹配条件（AND 组合）
	Levels      []ApprovalLevel `json:"levels" gorm:"type:jsonb;serializer:json"`     // 审批层级（从 1 起连续编号）
	Priority    int             `json:"priority" gorm:"default:0;index"`              // 优先级，数值越大越先匹配
	IsActive    bool            `json:"isActive" gorm:"default:true;index"`
	CreatedBy   string          `json:"createdBy" gorm:"type:uuid"`
	common.TimestampModel
}

// TableName 指定表名
func (ApprovalWorkflow) TableName() string {
	return "approval_workflows"
}

// LevelByNumber 按层级编号查找层级定义
func (w *ApprovalWorkflow) LevelByNumber(level int) *ApprovalLevel {
	for i := range w.Levels {
		if w.Levels[i].Level == level {
			return &w.Levels[i]
		}
	}
	return nil
}

// Approval 报价单审批实例
type Approval struct {
	ID           string     `json:"id" gorm:"type:uuid;primaryKey"`
	QuotationID  string     `json:"quotationId" gorm:"type:uuid;not null;index"`
	WorkflowID   string     `json:"workflowId" gorm:"type:uuid;not null;index"`
	CurrentLevel int        `json:"currentLevel" gorm:"default:1"`
	Status       string     `json:"status" gorm:"type:varchar(20);default:'pending';index"` // pending/approved/rejected
	RequestedBy  string     `json:"requestedBy" gorm:"type:uuid;not null"`
	RequestedAt  time.Time  `json:"requestedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"` // 终态前为空

	Workflow *ApprovalWorkflow `json:"workflow,omitempty" gorm:"foreignKey:WorkflowID"`
	Steps    []ApprovalStep    `json:"steps,omitempty" gorm:"foreignKey:ApprovalID"`
	common.TimestampModel
}

// TableName 指定表名
func (Approval) TableName() string {
	return "approvals"
}

// IsTerminal 判断审批是否已进入终态
func (a *Approval) IsTerminal() bool {
	return a.Status == StatusApproved || a.Status == StatusRejected
}

// ApprovalStep 单个审批人在某层级的决策记录
type ApprovalStep struct {
	ID         string     `json:"id" gorm:"type:uuid;primaryKey"`
	ApprovalID string     `json:"approvalId" gorm:"type:uuid;not null;index"`
	Level      int        `json:"level" gorm:"not null"`
	ApproverID string     `json:"approverId" gorm:"type:uuid;not null;index"`
	Status     string     `json:"status" gorm:"type:varchar(20);default:'pending';index"` // pending/approved/rejected
	Comments   string     `json:"comments" gorm:"type:text"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"` // 仅通过时记录
	common.TimestampModel
}

// TableName 指定表名
func (ApprovalStep) TableName() string {
	return "approval_steps"
}
