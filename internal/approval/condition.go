package approval

import (
	"fmt"
	"strconv"
	"strings"

	"backend/internal/quotation"
)

// ConditionRecord 条件求值的目标记录
// 由报价单及其关联客户数据扁平化而来，嵌套字段用子 map 表达
type ConditionRecord map[string]any

// BuildConditionRecord 将报价单（含客户与明细）展开为可求值记录
func BuildConditionRecord(q *quotation.Quotation) ConditionRecord {
	record := ConditionRecord{
		"totalAmount": q.TotalAmount,
		"currency":    q.Currency,
		"status":      string(q.Status),
		"itemCount":   len(q.Items),
		"createdBy":   q.CreatedBy,
	}
	if q.Customer != nil {
		record["customer"] = map[string]any{
			"id":          q.Customer.ID,
			"name":        q.Customer.Name,
			"segment":     q.Customer.Segment,
			"region":      q.Customer.Region,
			"creditLimit": q.Customer.CreditLimit,
		}
	}
	return record
}

// EvaluateCondition 对记录求值单个条件
// 字段缺失或类型不匹配一律返回 false，从不报错
func EvaluateCondition(record ConditionRecord, cond Condition) bool {
	fieldValue, ok := resolveField(record, cond.Field)
	if !ok {
		return false
	}

	switch cond.Operator {
	case OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual:
		return compareNumeric(fieldValue, cond.Value, cond.Operator)
	case OpEqual:
		return equalValues(fieldValue, cond.Value)
	case OpNotEqual:
		return !equalValues(fieldValue, cond.Value)
	case OpIn:
		return containsValue(cond.Value, fieldValue)
	case OpNotIn:
		list, ok := asList(cond.Value)
		if !ok {
			return false
		}
		for _, item := range list {
			if equalValues(fieldValue, item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// resolveField 沿点分路径逐段解引用
// 任一段缺失或容器不是结构化值时返回未命中
func resolveField(record ConditionRecord, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = map[string]any(record)
	for _, segment := range strings.Split(path, ".") {
		container, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = container[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// compareNumeric 数值比较，任一操作数无法转为数值则不匹配
func compareNumeric(left, right any, op Operator) bool {
	l, ok := toFloat64(left)
	if !ok {
		return false
	}
	r, ok := toFloat64(right)
	if !ok {
		return false
	}
	switch op {
	case OpGreaterThan:
		return l > r
	case OpGreaterEqual:
		return l >= r
	case OpLessThan:
		return l < r
	case OpLessEqual:
		return l <= r
	}
	return false
}

// toFloat64 宽松数值转换，覆盖常见数值类型与数字字符串
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// equalValues 等值比较
// 条件值来自 JSON 反序列化、字段值来自结构体，类型常不一致，
// 统一按字符串表示比较，数值对做精确数值比较
func equalValues(a, b any) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// containsValue 集合成员判断，条件值必须是列表
func containsValue(listValue, target any) bool {
	list, ok := asList(listValue)
	if !ok {
		return false
	}
	for _, item := range list {
		if equalValues(target, item) {
			return true
		}
	}
	return false
}

// asList 将条件值规整为 []any
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
