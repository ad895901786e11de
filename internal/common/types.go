package common

import "time"

// ============================================================================
// 通用请求类型
// ============================================================================

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `json:"page" form:"page" binding:"omitempty,min=1"`           // 页码，从1开始
	PageSize int `json:"page_size" form:"page_size" binding:"omitempty,min=1"` // 每页数量
}

// DefaultPagination 返回默认分页参数
func DefaultPagination() PaginationRequest {
	return PaginationRequest{
		Page:     1,
		PageSize: 20,
	}
}

// GetOffset 计算数据库查询的偏移量
func (p PaginationRequest) GetOffset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.GetPageSize()
}

// GetPageSize 获取每页数量，提供默认值
func (p PaginationRequest) GetPageSize() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// DateRange 日期范围
type DateRange struct {
	Start time.Time `json:"start"` // 开始时间
	End   time.Time `json:"end"`   // 结束时间
}

// IDRequest 通过ID查询的请求
type IDRequest struct {
	ID string `json:"id" uri:"id" binding:"required"` // 资源ID
}

// ============================================================================
// 通用响应类型
// ============================================================================

// APIResponse 统一API响应格式
type APIResponse struct {
	Success bool   `json:"success"`           // 是否成功
	Data    any    `json:"data,omitempty"`    // 响应数据
	Message string `json:"message,omitempty"` // 提示信息
	Code    int    `json:"code"`              // 业务状态码
}

// SuccessResponse 成功响应
func SuccessResponse(data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
		Code:    0,
	}
}

// SuccessMessageResponse 成功响应（带消息）
func SuccessMessageResponse(message string, data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
		Message: message,
		Code:    0,
	}
}

// ErrorResponse 错误响应
func ErrorResponse(code int, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	}
}

// PaginationMeta 分页元信息
type PaginationMeta struct {
	Page       int   `json:"page"`        // 当前页码
	PageSize   int   `json:"page_size"`   // 每页数量
	Total      int64 `json:"total"`       // 总记录数
	TotalPages int   `json:"total_pages"` // 总页数
}

// NewPaginationMeta 创建分页元信息
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	meta := PaginationMeta{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return meta
}

// ListResponse 列表响应（包含分页信息）
type ListResponse struct {
	Items      any            `json:"items"`      // 数据列表
	Pagination PaginationMeta `json:"pagination"` // 分页信息
}

// NewListResponse 创建列表响应
func NewListResponse(items any, page, pageSize int, total int64) ListResponse {
	return ListResponse{
		Items:      items,
		Pagination: NewPaginationMeta(page, pageSize, total),
	}
}

// ============================================================================
// 业务状态码定义
// ============================================================================

const (
	// 成功状态码
	CodeSuccess = 0

	// 通用错误码 (1000-1999)
	CodeInvalidRequest     = 1000 // 请求参数错误
	CodeUnauthorized       = 1001 // 未授权
	CodeForbidden          = 1002 // 禁止访问
	CodeNotFound           = 1003 // 资源不存在
	CodeConflict           = 1004 // 资源冲突
	CodeInternalError      = 1005 // 内部错误
	CodeServiceUnavailable = 1006 // 服务不可用

	// 用户相关错误码 (2000-2099)
	CodeUserNotFound       = 2010 // 用户不存在
	CodeUserDisabled       = 2011 // 用户已禁用
	CodeInvalidCredentials = 2012 // 凭证无效

	// 客户相关错误码 (2100-2199)
	CodeCustomerNotFound = 2100 // 客户不存在
	CodeCustomerDisabled = 2101 // 客户已停用

	// 报价单相关错误码 (3100-3199)
	CodeQuotationNotFound        = 3100 // 报价单不存在
	CodeIllegalStatusTransition  = 3101 // 非法的状态流转
	CodeQuotationNotEditable     = 3102 // 报价单当前状态不可编辑
	CodeQuotationNumberExhausted = 3103 // 报价单编号生成失败
	CodeQuotationItemsRequired   = 3104 // 报价单缺少明细

	// 审批工作流相关错误码 (5100-5199)
	CodeWorkflowNotFound            = 5100 // 审批工作流不存在
	CodeWorkflowNameDuplicated      = 5101 // 工作流名称重复
	CodeWorkflowLevelsInvalid       = 5102 // 审批层级定义无效
	CodeWorkflowConditionInvalid    = 5103 // 审批条件定义无效
	CodeWorkflowApproverInvalid     = 5104 // 审批人不存在或已禁用
	CodeWorkflowHasPendingApprovals = 5105 // 工作流存在进行中的审批

	// 审批相关错误码 (5200-5299)
	CodeApprovalNotFound         = 5200 // 审批不存在
	CodeApprovalStepNotFound     = 5201 // 审批步骤不存在
	CodeQuotationNotApprovable   = 5202 // 报价单当前状态不可发起审批
	CodeDuplicatePendingApproval = 5203 // 已存在进行中的审批
	CodeNoMatchingWorkflow       = 5204 // 没有匹配的审批工作流
	CodeStepApprovalMismatch     = 5205 // 步骤不属于指定审批
	CodeStepAlreadyProcessed     = 5206 // 步骤已被处理
	CodeApprovalNotPending       = 5207 // 审批已结束
	CodeNotAssignedApprover      = 5208 // 非指定审批人
)

// ErrorMessages 错误码对应的默认消息
var ErrorMessages = map[int]string{
	CodeSuccess:            "操作成功",
	CodeInvalidRequest:     "请求参数错误",
	CodeUnauthorized:       "未授权，请先登录",
	CodeForbidden:          "无权限访问",
	CodeNotFound:           "资源不存在",
	CodeConflict:           "资源冲突",
	CodeInternalError:      "系统内部错误",
	CodeServiceUnavailable: "服务暂不可用",

	CodeUserNotFound:       "用户不存在",
	CodeUserDisabled:       "用户已禁用",
	CodeInvalidCredentials: "用户名或密码错误",

	CodeCustomerNotFound: "客户不存在",
	CodeCustomerDisabled: "客户已停用",

	CodeQuotationNotFound:        "报价单不存在",
	CodeIllegalStatusTransition:  "非法的状态流转",
	CodeQuotationNotEditable:     "报价单当前状态不可编辑",
	CodeQuotationNumberExhausted: "报价单编号生成失败，请重试",
	CodeQuotationItemsRequired:   "报价单至少需要一条明细",

	CodeWorkflowNotFound:            "审批工作流不存在",
	CodeWorkflowNameDuplicated:      "工作流名称已存在",
	CodeWorkflowLevelsInvalid:       "审批层级必须从1开始连续编号",
	CodeWorkflowConditionInvalid:    "审批条件定义无效",
	CodeWorkflowApproverInvalid:     "审批人不存在或已禁用",
	CodeWorkflowHasPendingApprovals: "工作流存在进行中的审批，无法删除",

	CodeApprovalNotFound:         "审批不存在",
	CodeApprovalStepNotFound:     "审批步骤不存在",
	CodeQuotationNotApprovable:   "报价单当前状态不可发起审批",
	CodeDuplicatePendingApproval: "该报价单已存在进行中的审批",
	CodeNoMatchingWorkflow:       "没有匹配的审批工作流",
	CodeStepApprovalMismatch:     "审批步骤与审批单不匹配",
	CodeStepAlreadyProcessed:     "审批步骤已被处理",
	CodeApprovalNotPending:       "审批已结束，无法继续处理",
	CodeNotAssignedApprover:      "您不是该步骤的指定审批人",
}

// GetErrorMessage 获取错误码对应的消息
func GetErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "未知错误"
}

// ============================================================================
// 通用业务错误类型
// ============================================================================

// BusinessError 业务错误
type BusinessError struct {
	Code    int    // 错误码
	Message string // 错误信息
}

// Error 实现error接口
func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

// NewBusinessErrorWithCode 根据错误码创建业务错误
func NewBusinessErrorWithCode(code int) *BusinessError {
	return NewBusinessError(code, GetErrorMessage(code))
}
