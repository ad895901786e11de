package tasks

// 任务类型常量
const (
	// TypeSweepOverdueApprovals 巡检超时未处理的审批步骤
	TypeSweepOverdueApprovals = "approval:sweep_overdue"
)

// SweepOverdueApprovalsPayload 超时巡检任务载荷
// 空结构体占位，巡检总是全量扫描
type SweepOverdueApprovalsPayload struct{}
