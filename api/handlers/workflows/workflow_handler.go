package workflows

import (
	"github.com/gin-gonic/gin"

	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/common"
)

// WorkflowHandler 审批工作流处理器
type WorkflowHandler struct {
	workflowService *approval.WorkflowService
}

// NewWorkflowHandler 创建工作流处理器
func NewWorkflowHandler(workflowService *approval.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

// ConditionRequest 条件定义
type ConditionRequest struct {
	Field    string `json:"field" binding:"required"`
	Operator string `json:"operator" binding:"required"`
	Value    any    `json:"value"`
}

// LevelRequest 审批层级定义
type LevelRequest struct {
	Level               int      `json:"level" binding:"required,min=1"`
	Name                string   `json:"name"`
	ApproverIDs         []string `json:"approverIds" binding:"required,min=1"`
	RequireAllApprovers bool     `json:"requireAllApprovers"`
	AutoTimeoutHours    int      `json:"autoTimeoutHours" binding:"omitempty,min=1"`
}

// CreateWorkflowRequest 创建工作流请求
type CreateWorkflowRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Conditions  []ConditionRequest `json:"conditions" binding:"dive"`
	Levels      []LevelRequest     `json:"levels" binding:"required,min=1,dive"`
	Priority    int                `json:"priority"`
	IsActive    *bool              `json:"isActive"`
}

func toConditions(reqs []ConditionRequest) []approval.Condition {
	conditions := make([]approval.Condition, 0, len(reqs))
	for _, r := range reqs {
		conditions = append(conditions, approval.Condition{
			Field:    r.Field,
			Operator: approval.Operator(r.Operator),
			Value:    r.Value,
		})
	}
	return conditions
}

func toLevels(reqs []LevelRequest) []approval.ApprovalLevel {
	levels := make([]approval.ApprovalLevel, 0, len(reqs))
	for _, r := range reqs {
		levels = append(levels, approval.ApprovalLevel{
			Level:               r.Level,
			Name:                r.Name,
			ApproverIDs:         r.ApproverIDs,
			RequireAllApprovers: r.RequireAllApprovers,
			AutoTimeoutHours:    r.AutoTimeoutHours,
		})
	}
	return levels
}

// Create 创建审批工作流
// @Summary 创建审批工作流
// @Description 管理员创建带匹配条件与审批层级的工作流
// @Tags Workflows
// @Accept json
// @Produce json
// @Param request body CreateWorkflowRequest true "工作流定义"
// @Success 201 {object} approval.ApprovalWorkflow
// @Router /api/v1/workflows [post]
func (h *WorkflowHandler) Create(c *gin.Context) {
	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	wf, err := h.workflowService.Create(c.Request.Context(), &approval.CreateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
		Conditions:  toConditions(req.Conditions),
		Levels:      toLevels(req.Levels),
		Priority:    req.Priority,
		IsActive:    req.IsActive,
		CreatedBy:   auth.CurrentUserID(c),
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseCreated(c, wf)
}

// Get 查询工作流
// @Summary 查询工作流详情
// @Tags Workflows
// @Produce json
// @Param id path string true "工作流ID"
// @Success 200 {object} approval.ApprovalWorkflow
// @Router /api/v1/workflows/{id} [get]
func (h *WorkflowHandler) Get(c *gin.Context) {
	wf, err := h.workflowService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseSuccess(c, wf)
}

// List 查询工作流列表
// @Summary 查询工作流列表
// @Tags Workflows
// @Produce json
// @Param keyword query string false "搜索关键词"
// @Param active_only query bool false "仅启用的工作流"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} common.ListResponse
// @Router /api/v1/workflows [get]
func (h *WorkflowHandler) List(c *gin.Context) {
	var page common.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		common.ResponseBadRequest(c, "分页参数错误: "+err.Error())
		return
	}

	workflows, total, err := h.workflowService.List(c.Request.Context(), &approval.ListWorkflowsRequest{
		Keyword:    c.Query("keyword"),
		ActiveOnly: c.Query("active_only") == "true",
		Page:       page.Page,
		PageSize:   page.PageSize,
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseList(c, workflows, total, page.Page, page.PageSize)
}

// UpdateWorkflowRequest 更新工作流请求
type UpdateWorkflowRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Conditions  []ConditionRequest `json:"conditions" binding:"omitempty,dive"`
	Levels      []LevelRequest     `json:"levels" binding:"omitempty,min=1,dive"`
	Priority    *int               `json:"priority"`
	IsActive    *bool              `json:"isActive"`
}

// Update 更新审批工作流
// @Summary 更新审批工作流
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "工作流ID"
// @Param request body UpdateWorkflowRequest true "更新字段"
// @Success 200 {object} approval.ApprovalWorkflow
// @Router /api/v1/workflows/{id} [put]
func (h *WorkflowHandler) Update(c *gin.Context) {
	var req UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	update := &approval.UpdateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		IsActive:    req.IsActive,
	}
	if req.Conditions != nil {
		update.Conditions = toConditions(req.Conditions)
	}
	if req.Levels != nil {
		update.Levels = toLevels(req.Levels)
	}

	wf, err := h.workflowService.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseSuccess(c, wf)
}

// Delete 删除审批工作流
// @Summary 删除审批工作流
// @Description 存在进行中审批的工作流不允许删除
// @Tags Workflows
// @Produce json
// @Param id path string true "工作流ID"
// @Success 204
// @Router /api/v1/workflows/{id} [delete]
func (h *WorkflowHandler) Delete(c *gin.Context) {
	if err := h.workflowService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseNoContent(c)
}
