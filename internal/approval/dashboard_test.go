package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDashboardSummaryCounts(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "dashboard_counts")
	approver := newTestApprover(t, f.db, "看板审批人")
	other := newTestApprover(t, f.db, "其它审批人")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name:       "大额审批",
		Priority:   10,
		Conditions: []Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 100000}},
		Levels:     singleLevel(approver.ID),
	})
	require.NoError(t, err)
	_, err = f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name:   "常规审批",
		Levels: singleLevel(other.ID),
	})
	require.NoError(t, err)

	// 两条待处理：一条落在大额流程（approver），一条落在常规流程（other）
	big := f.newQuotation(t, 150000)
	_, err = f.approvals.RequestApproval(ctx, big.ID, f.requester.ID)
	require.NoError(t, err)

	small := f.newQuotation(t, 5000)
	_, err = f.approvals.RequestApproval(ctx, small.ID, f.requester.ID)
	require.NoError(t, err)

	// 一条今日通过、一条今日拒绝
	approved := f.newQuotation(t, 120000)
	approvedDetail, err := f.approvals.RequestApproval(ctx, approved.ID, f.requester.ID)
	require.NoError(t, err)
	step := pendingStepFor(t, approvedDetail, approver.ID)
	_, err = f.approvals.ProcessStep(ctx, approvedDetail.ID, step.ID,
		StepDecision{Status: StatusApproved}, approver.ID)
	require.NoError(t, err)

	rejected := f.newQuotation(t, 130000)
	rejectedDetail, err := f.approvals.RequestApproval(ctx, rejected.ID, f.requester.ID)
	require.NoError(t, err)
	step = pendingStepFor(t, rejectedDetail, approver.ID)
	_, err = f.approvals.ProcessStep(ctx, rejectedDetail.ID, step.ID,
		StepDecision{Status: StatusRejected, Comments: "价格偏高"}, approver.ID)
	require.NoError(t, err)

	dashboard := NewDashboardService(f.db, f.approvals, 10)
	summary, err := dashboard.GetDashboard(ctx, approver.ID)
	require.NoError(t, err)

	require.Equal(t, int64(2), summary.PendingTotal)
	require.Equal(t, int64(1), summary.PendingForUser, "只统计当前层级指派给该用户的审批")
	require.Equal(t, int64(1), summary.ApprovedToday)
	require.Equal(t, int64(1), summary.RejectedToday)

	require.Len(t, summary.RecentCompleted, 2)
	for _, detail := range summary.RecentCompleted {
		require.Contains(t, []string{StatusApproved, StatusRejected}, detail.Status)
		require.NotNil(t, detail.CompletedAt)
	}

	require.Len(t, summary.WorkflowPending, 2)
	byName := make(map[string]int64)
	for _, wp := range summary.WorkflowPending {
		byName[wp.WorkflowName] = wp.Count
	}
	require.Equal(t, int64(1), byName["大额审批"])
	require.Equal(t, int64(1), byName["常规审批"])
}

func TestDashboardRecentLimitAndAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t, "dashboard_limit")
	approver := newTestApprover(t, f.db, "限量审批人")

	_, err := f.workflows.Create(ctx, &CreateWorkflowRequest{
		Name:   "常规审批",
		Levels: singleLevel(approver.ID),
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		q := f.newQuotation(t, 10000)
		detail, err := f.approvals.RequestApproval(ctx, q.ID, f.requester.ID)
		require.NoError(t, err)
		step := pendingStepFor(t, detail, approver.ID)
		_, err = f.approvals.ProcessStep(ctx, detail.ID, step.ID,
			StepDecision{Status: StatusApproved}, approver.ID)
		require.NoError(t, err)
	}

	dashboard := NewDashboardService(f.db, f.approvals, 2)
	summary, err := dashboard.GetDashboard(ctx, "")
	require.NoError(t, err)
	require.Len(t, summary.RecentCompleted, 2, "最近完成列表应受 recentLimit 限制")
	require.Equal(t, int64(0), summary.PendingForUser, "匿名查询不统计个人待办")
}
