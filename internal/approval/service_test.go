package approval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/common"
	"backend/internal/config"
	"backend/internal/customer"
	"backend/internal/quotation"
	"backend/internal/user"
)

type approvalFixture struct {
	db         *gorm.DB
	quotations *quotation.Service
	workflows  *WorkflowService
	approvals  *Service
	requester  *user.User
	customer   *customer.Customer
}

func newApprovalFixture(t *testing.T, name string) *approvalFixture {
	t.Helper()
	db := setupApprovalTestDB(t, name)

	numbering := quotation.NewNumberGenerator(db, config.NumberingConfig{
		Prefix:        "QUO",
		Separator:     "-",
		DateFormat:    "year",
		SequenceWidth: 6,
		ResetPolicy:   "yearly",
	})
	quotations := quotation.NewService(db, numbering)
	userService := user.NewService(db)
	approvals := NewService(db, NewMatcher(db), quotations, NewEventBus(nil))

	requester := &user.User{
		ID:           uuid.New().String(),
		Name:         "销售小李",
		Email:        "sales@example.com",
		PasswordHash: "x",
		Role:         user.RoleSales,
		IsActive:     true,
	}
	require.NoError(t, db.Create(requester).Error)

	cust := &customer.Customer{
		ID:          uuid.New().String(),
		Name:        "华东机械",
		Segment:     "key_account",
		Region:      "east",
		CreditLimit: 800000,
		IsActive:    true,
	}
	require.NoError(t, db.Create(cust).Error)

	return &approvalFixture{
		db:         db,
		quotations: quotations,
		workflows:  NewWorkflowService(db, userService),
		approvals:  approvals,
		requester:  requester,
		customer:   cust,
	}
}

func (f *approvalFixture) newQuotation(t *testing.T, amount float64) *quotation.Quotation {
	t.Helper()
	q, err := f.quotations.Create(context.Background(), &quotation.CreateQuotationRequest{
		CustomerID: f.customer.ID,
		Title:      "设备采购报价",
		Items: []quotation.ItemInput{
			{ProductName: "数控机床", Quantity: 1, UnitPrice: amount},
		},
		CreatedBy: f.requester.ID,
	})
	require.NoError(t, err)
	return q
}

// pendingStepFor 在详情中找到指定审批人的待处理步骤
func pendingStepFor(t *testing.T, detail *ApprovalDetail, approverID string) StepDetail {
	t.Helper()
	for _, st := range detail.Steps {
		if st.ApproverID == approverID && st.Status == StatusPending && st.Level == detail.CurrentLevel {
			return st
		}
	}
	t.Fatalf("未找到审批人 %s 的待处理步骤", approverID)
	return StepDetail{}
}

func TestRequestApprovalEndToEndApprove(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_e2e_approve")
	approver := newTestApprover(t, f.db, "一级审批人")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name:       "大额审批",
		Conditions: []Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 100000}},
		Levels:     singleLevel(approver.ID),
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 150000)
	require.Equal(t, quotation.StatusDraft, q.Status)

	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, detail.Status)
	require.Equal(t, 1, detail.CurrentLevel)
	require.Equal(t, "大额审批", detail.WorkflowName)
	require.Equal(t, q.QuotationNumber, detail.Quotation.QuotationNumber)
	require.Equal(t, "华东机械", detail.Quotation.CustomerName)
	require.Len(t, detail.Steps, 1)

	step := pendingStepFor(t, detail, approver.ID)
	final, err := f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusApproved, Comments: "同意"}, approver.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, final.Status)
	require.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.Steps[0].ApprovedAt)

	// 终审通过后报价单被特权覆写为 approved，绕过 draft->approved 的流转限制
	updated, err := f.quotations.Get(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, quotation.StatusApproved, updated.Status)
}

func TestRequestApprovalEndToEndReject(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_e2e_reject")
	approver := newTestApprover(t, f.db, "拒绝审批人")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name:       "大额审批",
		Conditions: []Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 100000}},
		Levels:     singleLevel(approver.ID),
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 150000)
	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)

	step := pendingStepFor(t, detail, approver.ID)
	final, err := f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusRejected, Comments: "折扣过大"}, approver.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, final.Status)
	require.NotNil(t, final.CompletedAt)

	// 拒绝不影响报价单自身状态
	updated, err := f.quotations.Get(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, quotation.StatusDraft, updated.Status)
}

func TestAnyOneApproverAdvancesImmediately(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_anyone")
	a1 := newTestApprover(t, f.db, "任一审批A")
	a2 := newTestApprover(t, f.db, "任一审批B")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name: "任一通过",
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{a1.ID, a2.ID}, RequireAllApprovers: false},
		},
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 50000)
	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)
	require.Len(t, detail.Steps, 2)

	// 第一个人通过即终结，不等待第二个人
	step := pendingStepFor(t, detail, a1.ID)
	final, err := f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusApproved}, a1.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, final.Status)

	// 审批终结后第二个人的步骤无法再处理
	other := pendingStepFor(t, detail, a2.ID)
	_, err = f.approvals.ProcessStep(ctx, detail.ID, other.ID,
		StepDecision{Status: StatusApproved}, a2.ID)
	requireBusinessCode(t, err, common.CodeApprovalNotPending)
}

func TestRequireAllApproversWaitsForEveryone(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_requireall")
	a1 := newTestApprover(t, f.db, "会签审批A")
	a2 := newTestApprover(t, f.db, "会签审批B")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name: "会签通过",
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{a1.ID, a2.ID}, RequireAllApprovers: true},
		},
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 50000)
	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)

	// 第一个人通过后仍在等待
	step1 := pendingStepFor(t, detail, a1.ID)
	mid, err := f.approvals.ProcessStep(ctx, detail.ID, step1.ID,
		StepDecision{Status: StatusApproved}, a1.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, mid.Status)
	require.Equal(t, 1, mid.CurrentLevel)

	// 第二个人通过后终结
	step2 := pendingStepFor(t, mid, a2.ID)
	final, err := f.approvals.ProcessStep(ctx, detail.ID, step2.ID,
		StepDecision{Status: StatusApproved}, a2.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, final.Status)
}

func TestRequireAllSingleRejectionKillsApproval(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_requireall_reject")
	a1 := newTestApprover(t, f.db, "会签拒绝A")
	a2 := newTestApprover(t, f.db, "会签拒绝B")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name: "会签拒绝",
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{a1.ID, a2.ID}, RequireAllApprovers: true},
		},
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 50000)
	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)

	// 无论另一个步骤处于什么状态，单个拒绝立即终结
	step := pendingStepFor(t, detail, a2.ID)
	final, err := f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusRejected, Comments: "价格不符"}, a2.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, final.Status)
	require.NotNil(t, final.CompletedAt)
}

func TestMultiLevelAdvancementCreatesNextSteps(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_multilevel")
	lead := newTestApprover(t, f.db, "组长")
	director := newTestApprover(t, f.db, "总监")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name: "两级审批",
		Levels: []ApprovalLevel{
			{Level: 1, Name: "组长审批", ApproverIDs: []string{lead.ID}},
			{Level: 2, Name: "总监审批", ApproverIDs: []string{director.ID}},
		},
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 50000)
	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)

	step := pendingStepFor(t, detail, lead.ID)
	mid, err := f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusApproved}, lead.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, mid.Status)
	require.Equal(t, 2, mid.CurrentLevel)
	require.Len(t, mid.Steps, 2)

	// 第二层级的新步骤可正常处理并终结审批
	step2 := pendingStepFor(t, mid, director.ID)
	final, err := f.approvals.ProcessStep(ctx, detail.ID, step2.ID,
		StepDecision{Status: StatusApproved}, director.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, final.Status)
}

func TestRequestApprovalValidations(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_validations")
	approver := newTestApprover(t, f.db, "校验审批人")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name:       "大额审批",
		Conditions: []Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 100000}},
		Levels:     singleLevel(approver.ID),
	})
	require.NoError(t, err)

	// 报价单不存在
	_, err = f.approvals.RequestApproval(ctx, uuid.New().String(), f.requester.ID)
	requireBusinessCode(t, err, common.CodeQuotationNotFound)

	// 无匹配工作流
	small := f.newQuotation(t, 500)
	_, err = f.approvals.RequestApproval(ctx, small.ID, f.requester.ID)
	requireBusinessCode(t, err, common.CodeNoMatchingWorkflow)

	// 重复发起
	q := f.newQuotation(t, 150000)
	_, err = f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)
	_, err = f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	requireBusinessCode(t, err, common.CodeDuplicatePendingApproval)

	// 非草稿/已发送状态不可发起
	finalized := f.newQuotation(t, 150000)
	require.NoError(t, f.db.Model(&quotation.Quotation{}).Where("id = ?", finalized.ID).
		Update("status", quotation.StatusApproved).Error)
	_, err = f.approvals.RequestApproval(ctx, finalized.ID, f.requester.ID)
	requireBusinessCode(t, err, common.CodeQuotationNotApprovable)
}

func TestProcessStepValidations(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_step_validations")
	approver := newTestApprover(t, f.db, "步骤校验审批人")
	outsider := newTestApprover(t, f.db, "旁观者")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name:   "单级审批",
		Levels: singleLevel(approver.ID),
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 50000)
	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)
	step := pendingStepFor(t, detail, approver.ID)

	// 步骤不存在
	_, err = f.approvals.ProcessStep(ctx, detail.ID, uuid.New().String(),
		StepDecision{Status: StatusApproved}, approver.ID)
	requireBusinessCode(t, err, common.CodeApprovalStepNotFound)

	// 步骤不属于指定审批
	_, err = f.approvals.ProcessStep(ctx, uuid.New().String(), step.ID,
		StepDecision{Status: StatusApproved}, approver.ID)
	requireBusinessCode(t, err, common.CodeStepApprovalMismatch)

	// 非指定审批人
	_, err = f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusApproved}, outsider.ID)
	requireBusinessCode(t, err, common.CodeNotAssignedApprover)

	// 无效决定
	_, err = f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: "maybe"}, approver.ID)
	requireBusinessCode(t, err, common.CodeInvalidRequest)

	// 正常处理后不可重复处理
	_, err = f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusApproved}, approver.ID)
	require.NoError(t, err)
	_, err = f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusApproved}, approver.ID)
	requireBusinessCode(t, err, common.CodeStepAlreadyProcessed)
}

func TestGetPendingApprovalsForApprover(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_pending_for")
	lead := newTestApprover(t, f.db, "待办组长")
	director := newTestApprover(t, f.db, "待办总监")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name: "两级待办",
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{lead.ID}},
			{Level: 2, ApproverIDs: []string{director.ID}},
		},
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 50000)
	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)

	// 第一层级只出现在组长的待办里
	leadPending, err := f.approvals.GetPendingApprovalsFor(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, leadPending, 1)
	directorPending, err := f.approvals.GetPendingApprovalsFor(ctx, director.ID)
	require.NoError(t, err)
	require.Empty(t, directorPending)

	// 推进到第二层级后待办转移给总监
	step := pendingStepFor(t, detail, lead.ID)
	_, err = f.approvals.ProcessStep(ctx, detail.ID, step.ID,
		StepDecision{Status: StatusApproved}, lead.ID)
	require.NoError(t, err)

	leadPending, err = f.approvals.GetPendingApprovalsFor(ctx, lead.ID)
	require.NoError(t, err)
	require.Empty(t, leadPending)
	directorPending, err = f.approvals.GetPendingApprovalsFor(ctx, director.ID)
	require.NoError(t, err)
	require.Len(t, directorPending, 1)
}

func TestSweepOverdueSteps(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "svc_sweep")
	approver := newTestApprover(t, f.db, "超时审批人")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name: "限时审批",
		Levels: []ApprovalLevel{
			{Level: 1, ApproverIDs: []string{approver.ID}, AutoTimeoutHours: 24},
		},
	})
	require.NoError(t, err)

	q := f.newQuotation(t, 50000)
	detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
	require.NoError(t, err)

	// 刚发起的步骤未超时
	overdue, err := f.approvals.SweepOverdueSteps(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, overdue)

	// 回拨步骤创建时间到 25 小时前
	stale := time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, f.db.Model(&ApprovalStep{}).
		Where("approval_id = ?", detail.ID).
		Update("created_at", stale).Error)

	overdue, err = f.approvals.SweepOverdueSteps(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, overdue)

	// 巡检不会做任何自动审批决定
	refreshed, err := f.approvals.GetApprovalDetail(ctx, detail.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, refreshed.Status)
	require.Equal(t, StatusPending, refreshed.Steps[0].Status)
}
