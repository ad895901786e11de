package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/common"
	"backend/internal/user"
)

func newTestApprover(t *testing.T, db *gorm.DB, name string) *user.User {
	t.Helper()
	u := &user.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         user.RoleApprover,
		IsActive:     true,
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	require.NoError(t, db.Create(u).Error)
	return u
}

func requireBusinessCode(t *testing.T, err error, code int) {
	t.Helper()
	var bizErr *common.BusinessError
	require.True(t, errors.As(err, &bizErr), "期望业务错误，实际: %v", err)
	require.Equal(t, code, bizErr.Code)
}

func TestCreateWorkflowValidatesLevelSequence(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "wf_levels")
	svc := NewWorkflowService(db, user.NewService(db))
	approver := newTestApprover(t, db, "级别校验审批人")

	// 层级跳号
	_, err := svc.Create(ctx, &CreateWorkflowRequest{
		Name: "跳号工作流",
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{approver.ID}},
			{Level: 3, ApproverIDs: []string{approver.ID}},
		},
	})
	requireBusinessCode(t, err, common.CodeWorkflowLevelsInvalid)

	// 层级重复
	_, err = svc.Create(ctx, &CreateWorkflowRequest{
		Name: "重复层级工作流",
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{approver.ID}},
			{Level: 1, ApproverIDs: []string{approver.ID}},
		},
	})
	requireBusinessCode(t, err, common.CodeWorkflowLevelsInvalid)

	// 不从 1 开始
	_, err = svc.Create(ctx, &CreateWorkflowRequest{
		Name:   "起点错误工作流",
		Levels: []ApprovalLevel{{Level: 2, ApproverIDs: []string{approver.ID}}},
	})
	requireBusinessCode(t, err, common.CodeWorkflowLevelsInvalid)

	// 无层级
	_, err = svc.Create(ctx, &CreateWorkflowRequest{Name: "空层级工作流"})
	requireBusinessCode(t, err, common.CodeWorkflowLevelsInvalid)

	// 合法的连续层级
	wf, err := svc.Create(ctx, &CreateWorkflowRequest{
		Name: "两级工作流",
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{approver.ID}},
			{Level: 2, ApproverIDs: []string{approver.ID}},
		},
	})
	require.NoError(t, err)
	require.True(t, wf.IsActive)
}

func TestCreateWorkflowValidatesConditions(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "wf_conditions")
	svc := NewWorkflowService(db, user.NewService(db))
	approver := newTestApprover(t, db, "条件校验审批人")

	_, err := svc.Create(ctx, &CreateWorkflowRequest{
		Name:       "未知运算符",
		Conditions: []Condition{{Field: "totalAmount", Operator: Operator("like"), Value: 1}},
		Levels:     singleLevel(approver.ID),
	})
	requireBusinessCode(t, err, common.CodeWorkflowConditionInvalid)

	_, err = svc.Create(ctx, &CreateWorkflowRequest{
		Name:       "in值非列表",
		Conditions: []Condition{{Field: "currency", Operator: OpIn, Value: "CNY"}},
		Levels:     singleLevel(approver.ID),
	})
	requireBusinessCode(t, err, common.CodeWorkflowConditionInvalid)

	_, err = svc.Create(ctx, &CreateWorkflowRequest{
		Name:       "空字段路径",
		Conditions: []Condition{{Field: "", Operator: OpEqual, Value: 1}},
		Levels:     singleLevel(approver.ID),
	})
	requireBusinessCode(t, err, common.CodeWorkflowConditionInvalid)
}

func TestCreateWorkflowValidatesApprovers(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "wf_approvers")
	svc := NewWorkflowService(db, user.NewService(db))

	// 审批人不存在
	_, err := svc.Create(ctx, &CreateWorkflowRequest{
		Name:   "幽灵审批人",
		Levels: singleLevel(uuid.New().String()),
	})
	requireBusinessCode(t, err, common.CodeWorkflowApproverInvalid)

	// 审批人已禁用
	disabled := newTestApprover(t, db, "已禁用审批人")
	require.NoError(t, db.Model(&user.User{}).Where("id = ?", disabled.ID).
		Update("is_active", false).Error)
	_, err = svc.Create(ctx, &CreateWorkflowRequest{
		Name:   "禁用审批人",
		Levels: singleLevel(disabled.ID),
	})
	requireBusinessCode(t, err, common.CodeWorkflowApproverInvalid)
}

func TestCreateWorkflowRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "wf_dupname")
	svc := NewWorkflowService(db, user.NewService(db))
	approver := newTestApprover(t, db, "重名校验审批人")

	_, err := svc.Create(ctx, &CreateWorkflowRequest{
		Name:   "标准审批",
		Levels: singleLevel(approver.ID),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateWorkflowRequest{
		Name:   "标准审批",
		Levels: singleLevel(approver.ID),
	})
	requireBusinessCode(t, err, common.CodeWorkflowNameDuplicated)
}

func TestUpdateWorkflowRevalidatesDefinition(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "wf_update")
	svc := NewWorkflowService(db, user.NewService(db))
	approver := newTestApprover(t, db, "更新校验审批人")

	wf, err := svc.Create(ctx, &CreateWorkflowRequest{
		Name:     "可更新工作流",
		Levels:   singleLevel(approver.ID),
		Priority: 1,
	})
	require.NoError(t, err)

	// 更新为非法层级被拒绝
	_, err = svc.Update(ctx, wf.ID, &UpdateWorkflowRequest{
		Levels: []ApprovalLevel{{Level: 2, ApproverIDs: []string{approver.ID}}},
	})
	requireBusinessCode(t, err, common.CodeWorkflowLevelsInvalid)

	// 正常更新优先级与层级
	newPriority := 9
	updated, err := svc.Update(ctx, wf.ID, &UpdateWorkflowRequest{
		Priority: &newPriority,
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{approver.ID}},
			{Level: 2, ApproverIDs: []string{approver.ID}, RequireAllApprovers: true},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 9, updated.Priority)
	require.Len(t, updated.Levels, 2)
	require.True(t, updated.Levels[1].RequireAllApprovers)
}

func TestDeleteWorkflowBlockedByPendingApprovals(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "wf_delete")
	svc := NewWorkflowService(db, user.NewService(db))
	approver := newTestApprover(t, db, "删除校验审批人")

	wf, err := svc.Create(ctx, &CreateWorkflowRequest{
		Name:   "待删除工作流",
		Levels: singleLevel(approver.ID),
	})
	require.NoError(t, err)

	pending := &Approval{
		ID:           uuid.New().String(),
		QuotationID:  uuid.New().String(),
		WorkflowID:   wf.ID,
		CurrentLevel: 1,
		Status:       StatusPending,
		RequestedBy:  uuid.New().String(),
		RequestedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(pending).Error)

	err = svc.Delete(ctx, wf.ID)
	requireBusinessCode(t, err, common.CodeWorkflowHasPendingApprovals)

	// 审批到达终态后可以删除
	require.NoError(t, db.Model(&Approval{}).Where("id = ?", pending.ID).
		Update("status", StatusRejected).Error)
	require.NoError(t, svc.Delete(ctx, wf.ID))

	_, err = svc.Get(ctx, wf.ID)
	requireBusinessCode(t, err, common.CodeWorkflowNotFound)
}
