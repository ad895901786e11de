package approval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/customer"
	"backend/internal/quotation"
	"backend/internal/user"
)

func setupApprovalTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&user.User{},
		&customer.Customer{},
		&quotation.Quotation{},
		&quotation.QuotationItem{},
		&ApprovalWorkflow{},
		&Approval{},
		&ApprovalStep{},
	))
	return db
}

func newTestWorkflow(t *testing.T, db *gorm.DB, name string, priority int, conditions []Condition, levels []ApprovalLevel) *ApprovalWorkflow {
	t.Helper()
	wf := &ApprovalWorkflow{
		ID:         uuid.New().String(),
		Name:       name,
		Conditions: conditions,
		Levels:     levels,
		Priority:   priority,
		IsActive:   true,
	}
	wf.CreatedAt = time.Now().UTC()
	wf.UpdatedAt = wf.CreatedAt
	require.NoError(t, db.Create(wf).Error)
	return wf
}

func singleLevel(approverIDs ...string) []ApprovalLevel {
	return []ApprovalLevel{{Level: 1, Name: "一级审批", ApproverIDs: approverIDs}}
}

func TestMatchPicksHighestPriority(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "matcher_priority")
	matcher := NewMatcher(db)

	newTestWorkflow(t, db, "大额审批", 5,
		[]Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 100000}},
		singleLevel("approver-1"))
	newTestWorkflow(t, db, "兜底审批", 1,
		[]Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 0}},
		singleLevel("approver-1"))

	q := &quotation.Quotation{ID: uuid.New().String(), TotalAmount: 150000, Status: quotation.StatusDraft}
	wf, err := matcher.Match(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, wf)
	require.Equal(t, "大额审批", wf.Name)

	// 金额不满足高优先级条件时落到兜底工作流
	q.TotalAmount = 5000
	wf, err = matcher.Match(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, wf)
	require.Equal(t, "兜底审批", wf.Name)
}

func TestMatchSamePriorityPrefersEarlierCreated(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "matcher_tiebreak")
	matcher := NewMatcher(db)

	first := &ApprovalWorkflow{
		ID:         uuid.New().String(),
		Name:       "先创建",
		Conditions: []Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 0}},
		Levels:     singleLevel("approver-1"),
		Priority:   3,
		IsActive:   true,
	}
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	first.UpdatedAt = first.CreatedAt
	require.NoError(t, db.Create(first).Error)

	newTestWorkflow(t, db, "后创建", 3,
		[]Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 0}},
		singleLevel("approver-1"))

	q := &quotation.Quotation{ID: uuid.New().String(), TotalAmount: 1000}
	wf, err := matcher.Match(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, wf)
	require.Equal(t, "先创建", wf.Name)
}

func TestMatchSkipsInactiveWorkflows(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "matcher_inactive")
	matcher := NewMatcher(db)

	wf := newTestWorkflow(t, db, "停用审批", 10,
		[]Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 0}},
		singleLevel("approver-1"))
	require.NoError(t, db.Model(&ApprovalWorkflow{}).Where("id = ?", wf.ID).
		Update("is_active", false).Error)

	q := &quotation.Quotation{ID: uuid.New().String(), TotalAmount: 1000}
	matched, err := matcher.Match(ctx, q)
	require.NoError(t, err)
	require.Nil(t, matched)
}

func TestMatchReturnsNilWhenNoConditionsSatisfied(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "matcher_nomatch")
	matcher := NewMatcher(db)

	newTestWorkflow(t, db, "大额审批", 5,
		[]Condition{{Field: "totalAmount", Operator: OpGreaterEqual, Value: 100000}},
		singleLevel("approver-1"))

	q := &quotation.Quotation{ID: uuid.New().String(), TotalAmount: 500}
	wf, err := matcher.Match(ctx, q)
	require.NoError(t, err)
	require.Nil(t, wf)
}

func TestMatchAllConditionsAreANDCombined(t *testing.T) {
	ctx := context.Background()
	db := setupApprovalTestDB(t, "matcher_and")
	matcher := NewMatcher(db)

	newTestWorkflow(t, db, "战略客户大额", 5,
		[]Condition{
			{Field: "totalAmount", Operator: OpGreaterEqual, Value: 100000},
			{Field: "customer.segment", Operator: OpEqual, Value: "strategic"},
		},
		singleLevel("approver-1"))

	q := &quotation.Quotation{
		ID:          uuid.New().String(),
		TotalAmount: 150000,
		Customer:    &customer.Customer{Segment: "standard"},
	}
	wf, err := matcher.Match(ctx, q)
	require.NoError(t, err)
	require.Nil(t, wf)

	q.Customer.Segment = "strategic"
	wf, err = matcher.Match(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, wf)
}
