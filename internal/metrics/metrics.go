package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesflow_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesflow_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 审批业务指标
var (
	// ApprovalPendingGauge 当前待处理审批数量
	ApprovalPendingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesflow_approval_pending",
			Help: "当前处于 pending 状态的审批数量",
		},
	)

	// ApprovalDecisionsTotal 审批决定计数
	ApprovalDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesflow_approval_decisions_total",
			Help: "审批步骤决定总数",
		},
		[]string{"decision"},
	)

	// ApprovalCompletedTotal 审批终态计数
	ApprovalCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesflow_approval_completed_total",
			Help: "审批终态（approved/rejected）总数",
		},
		[]string{"status"},
	)

	// ApprovalOverdueSteps 巡检发现的超时步骤数量
	ApprovalOverdueSteps = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesflow_approval_overdue_steps",
			Help: "最近一次巡检发现的超时未处理审批步骤数量",
		},
	)
)

// 报价单业务指标
var (
	// QuotationStatusTransitionsTotal 报价单状态流转计数
	QuotationStatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesflow_quotation_status_transitions_total",
			Help: "报价单状态流转总数",
		},
		[]string{"from", "to"},
	)

	// QuotationNumberRetriesTotal 编号生成冲突重试计数
	QuotationNumberRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesflow_quotation_number_retries_total",
			Help: "报价单编号生成冲突重试次数",
		},
	)
)
