package approval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"backend/internal/customer"
	"backend/internal/quotation"
)

func sampleRecord() ConditionRecord {
	return ConditionRecord{
		"totalAmount": 150000.0,
		"currency":    "CNY",
		"status":      "draft",
		"itemCount":   3,
		"customer": map[string]any{
			"name":        "华北重工",
			"segment":     "key_account",
			"region":      "north",
			"creditLimit": 500000.0,
		},
	}
}

func TestEvaluateNumericOperators(t *testing.T) {
	record := sampleRecord()

	require.True(t, EvaluateCondition(record, Condition{Field: "totalAmount", Operator: OpGreaterEqual, Value: 100000}))
	require.True(t, EvaluateCondition(record, Condition{Field: "totalAmount", Operator: OpGreaterThan, Value: 149999.99}))
	require.False(t, EvaluateCondition(record, Condition{Field: "totalAmount", Operator: OpLessThan, Value: 150000}))
	require.True(t, EvaluateCondition(record, Condition{Field: "totalAmount", Operator: OpLessEqual, Value: 150000}))

	// 条件值为数字字符串时应宽松转换
	require.True(t, EvaluateCondition(record, Condition{Field: "totalAmount", Operator: OpGreaterEqual, Value: "100000"}))

	// 非数值字段参与数值比较时不匹配而非报错
	require.False(t, EvaluateCondition(record, Condition{Field: "currency", Operator: OpGreaterThan, Value: 1}))
}

func TestEvaluateEquality(t *testing.T) {
	record := sampleRecord()

	require.True(t, EvaluateCondition(record, Condition{Field: "currency", Operator: OpEqual, Value: "CNY"}))
	require.False(t, EvaluateCondition(record, Condition{Field: "currency", Operator: OpEqual, Value: "USD"}))
	require.True(t, EvaluateCondition(record, Condition{Field: "currency", Operator: OpNotEqual, Value: "USD"}))

	// 数值相等跨类型比较:JSON 反序列化得到 float64,字段可能是 int
	require.True(t, EvaluateCondition(record, Condition{Field: "itemCount", Operator: OpEqual, Value: 3.0}))
}

func TestEvaluateSetMembership(t *testing.T) {
	record := sampleRecord()

	require.True(t, EvaluateCondition(record, Condition{
		Field: "customer.segment", Operator: OpIn, Value: []any{"key_account", "strategic"},
	}))
	require.False(t, EvaluateCondition(record, Condition{
		Field: "customer.segment", Operator: OpNotIn, Value: []any{"key_account"},
	}))
	require.True(t, EvaluateCondition(record, Condition{
		Field: "customer.region", Operator: OpNotIn, Value: []string{"south", "east"},
	}))

	// in/not_in 的条件值不是列表时直接不匹配
	require.False(t, EvaluateCondition(record, Condition{
		Field: "customer.segment", Operator: OpIn, Value: "key_account",
	}))
}

func TestEvaluateDotPathResolution(t *testing.T) {
	record := sampleRecord()

	require.True(t, EvaluateCondition(record, Condition{Field: "customer.creditLimit", Operator: OpGreaterEqual, Value: 400000}))
	require.True(t, EvaluateCondition(record, Condition{Field: "customer.name", Operator: OpEqual, Value: "华北重工"}))
}

func TestEvaluateNeverThrowsOnMissingFields(t *testing.T) {
	record := sampleRecord()

	// 不存在的字段
	require.False(t, EvaluateCondition(record, Condition{Field: "customer.nonexistentField", Operator: OpEqual, Value: "X"}))
	// 路径中段不是结构化值
	require.False(t, EvaluateCondition(record, Condition{Field: "currency.nested", Operator: OpEqual, Value: "X"}))
	// 空路径
	require.False(t, EvaluateCondition(record, Condition{Field: "", Operator: OpEqual, Value: "X"}))
	// 未知运算符
	require.False(t, EvaluateCondition(record, Condition{Field: "currency", Operator: Operator("like"), Value: "CNY"}))
}

func TestBuildConditionRecord(t *testing.T) {
	q := &quotation.Quotation{
		TotalAmount: 88000,
		Currency:    "CNY",
		Status:      quotation.StatusDraft,
		Items:       []quotation.QuotationItem{{}, {}},
		Customer: &customer.Customer{
			Name:    "东南贸易",
			Segment: "standard",
		},
	}

	record := BuildConditionRecord(q)
	require.True(t, EvaluateCondition(record, Condition{Field: "totalAmount", Operator: OpEqual, Value: 88000}))
	require.True(t, EvaluateCondition(record, Condition{Field: "itemCount", Operator: OpEqual, Value: 2}))
	require.True(t, EvaluateCondition(record, Condition{Field: "status", Operator: OpEqual, Value: "draft"}))
	require.True(t, EvaluateCondition(record, Condition{Field: "customer.name", Operator: OpEqual, Value: "东南贸易"}))

	// 客户未加载时 customer.* 条件不匹配
	q.Customer = nil
	record = BuildConditionRecord(q)
	require.False(t, EvaluateCondition(record, Condition{Field: "customer.name", Operator: OpEqual, Value: "东南贸易"}))
}
