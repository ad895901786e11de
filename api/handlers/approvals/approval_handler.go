package approvals

import (
	"github.com/gin-gonic/gin"

	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/common"
	"backend/internal/infra/queue"
)

// ApprovalHandler 审批处理器
type ApprovalHandler struct {
	approvalService *approval.Service
	queueClient     queue.Client
}

// NewApprovalHandler 创建审批处理器
func NewApprovalHandler(approvalService *approval.Service, queueClient queue.Client) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
		queueClient:     queueClient,
	}
}

// Get 查询审批详情
// @Summary 查询审批详情
// @Tags Approvals
// @Produce json
// @Param id path string true "审批ID"
// @Success 200 {object} approval.ApprovalDetail
// @Router /api/v1/approvals/{id} [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	detail, err := h.approvalService.GetApprovalDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseSuccess(c, detail)
}

// Pending 查询当前用户待处理的审批
// @Summary 查询待处理审批
// @Description 返回当前层级存在本人待处理步骤的审批
// @Tags Approvals
// @Produce json
// @Success 200 {array} approval.ApprovalDetail
// @Router /api/v1/approvals/pending [get]
func (h *ApprovalHandler) Pending(c *gin.Context) {
	details, err := h.approvalService.GetPendingApprovalsFor(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseSuccess(c, details)
}

// ProcessStepRequest 处理审批步骤请求
type ProcessStepRequest struct {
	Status   string `json:"status" binding:"required,oneof=approved rejected"`
	Comments string `json:"comments"`
}

// ProcessStep 处理审批步骤
// @Summary 处理审批步骤
// @Description 指定审批人对步骤做出通过或拒绝决定，并触发层级推进
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "审批ID"
// @Param stepId path string true "步骤ID"
// @Param request body ProcessStepRequest true "审批决定"
// @Success 200 {object} approval.ApprovalDetail
// @Router /api/v1/approvals/{id}/steps/{stepId} [put]
func (h *ApprovalHandler) ProcessStep(c *gin.Context) {
	var req ProcessStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	detail, err := h.approvalService.ProcessStep(
		c.Request.Context(),
		c.Param("id"),
		c.Param("stepId"),
		approval.StepDecision{Status: req.Status, Comments: req.Comments},
		auth.CurrentUserID(c),
	)
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseSuccess(c, detail)
}

// TriggerSweep 立即触发一次超时巡检任务
// @Summary 触发超时巡检
// @Description 管理员手动将巡检任务投递到队列，由 worker 异步执行
// @Tags Approvals
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /api/v1/approvals/sweep [post]
func (h *ApprovalHandler) TriggerSweep(c *gin.Context) {
	if h.queueClient == nil {
		common.ResponseError(c, common.CodeServiceUnavailable, "任务队列未启用")
		return
	}
	if err := h.queueClient.EnqueueSweepOverdueApprovals(); err != nil {
		common.ResponseServerError(c, "投递巡检任务失败")
		return
	}
	common.ResponseSuccessMessage(c, "巡检任务已投递", nil)
}
