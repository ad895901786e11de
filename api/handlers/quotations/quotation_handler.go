package quotations

import (
	"time"

	"github.com/gin-gonic/gin"

	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/common"
	"backend/internal/quotation"
)

// QuotationHandler 报价单处理器
type QuotationHandler struct {
	quotationService *quotation.Service
	approvalService  *approval.Service
}

// NewQuotationHandler 创建报价单处理器
func NewQuotationHandler(quotationService *quotation.Service, approvalService *approval.Service) *QuotationHandler {
	return &QuotationHandler{
		quotationService: quotationService,
		approvalService:  approvalService,
	}
}

// ItemRequest 明细行请求
type ItemRequest struct {
	ProductName string  `json:"productName" binding:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice" binding:"gte=0"`
}

// CreateQuotationRequest 创建报价单请求
type CreateQuotationRequest struct {
	CustomerID string        `json:"customerId" binding:"required"`
	Title      string        `json:"title" binding:"required"`
	Currency   string        `json:"currency"`
	ValidUntil *time.Time    `json:"validUntil"`
	Notes      string        `json:"notes"`
	Items      []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Create 创建报价单
// @Summary 创建报价单
// @Description 创建草稿状态的报价单并生成唯一编号
// @Tags Quotations
// @Accept json
// @Produce json
// @Param request body CreateQuotationRequest true "报价单信息"
// @Success 201 {object} quotation.Quotation
// @Router /api/v1/quotations [post]
func (h *QuotationHandler) Create(c *gin.Context) {
	var req CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	items := make([]quotation.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, quotation.ItemInput{
			ProductName: item.ProductName,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
		})
	}

	q, err := h.quotationService.Create(c.Request.Context(), &quotation.CreateQuotationRequest{
		CustomerID: req.CustomerID,
		Title:      req.Title,
		Currency:   req.Currency,
		ValidUntil: req.ValidUntil,
		Notes:      req.Notes,
		Items:      items,
		CreatedBy:  auth.CurrentUserID(c),
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseCreated(c, q)
}

// Get 查询报价单
// @Summary 查询报价单详情
// @Tags Quotations
// @Produce json
// @Param id path string true "报价单ID"
// @Success 200 {object} quotation.Quotation
// @Router /api/v1/quotations/{id} [get]
func (h *QuotationHandler) Get(c *gin.Context) {
	q, err := h.quotationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseSuccess(c, q)
}

// List 查询报价单列表
// @Summary 查询报价单列表
// @Tags Quotations
// @Produce json
// @Param customer_id query string false "客户ID"
// @Param status query string false "状态过滤"
// @Param keyword query string false "搜索关键词"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} common.ListResponse
// @Router /api/v1/quotations [get]
func (h *QuotationHandler) List(c *gin.Context) {
	var page common.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		common.ResponseBadRequest(c, "分页参数错误: "+err.Error())
		return
	}

	quotations, total, err := h.quotationService.List(c.Request.Context(), &quotation.ListQuotationsRequest{
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
		Keyword:    c.Query("keyword"),
		Page:       page.Page,
		PageSize:   page.PageSize,
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseList(c, quotations, total, page.Page, page.PageSize)
}

// UpdateQuotationRequest 更新报价单请求
type UpdateQuotationRequest struct {
	Title      *string       `json:"title"`
	Currency   *string       `json:"currency"`
	ValidUntil *time.Time    `json:"validUntil"`
	Notes      *string       `json:"notes"`
	Items      []ItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// Update 更新报价单
// @Summary 更新报价单
// @Description 仅草稿状态的报价单允许修改内容
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "报价单ID"
// @Param request body UpdateQuotationRequest true "更新字段"
// @Success 200 {object} quotation.Quotation
// @Router /api/v1/quotations/{id} [put]
func (h *QuotationHandler) Update(c *gin.Context) {
	var req UpdateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	items := make([]quotation.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, quotation.ItemInput{
			ProductName: item.ProductName,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
		})
	}

	q, err := h.quotationService.Update(c.Request.Context(), c.Param("id"), &quotation.UpdateQuotationRequest{
		Title:      req.Title,
		Currency:   req.Currency,
		ValidUntil: req.ValidUntil,
		Notes:      req.Notes,
		Items:      items,
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseSuccess(c, q)
}

// ChangeStatusRequest 状态变更请求
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft sent approved rejected expired"`
}

// ChangeStatus 变更报价单状态
// @Summary 变更报价单状态
// @Description 按固定状态流转表校验合法性
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "报价单ID"
// @Param request body ChangeStatusRequest true "目标状态"
// @Success 200 {object} quotation.Quotation
// @Router /api/v1/quotations/{id}/status [put]
func (h *QuotationHandler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	q, err := h.quotationService.ChangeStatus(c.Request.Context(), c.Param("id"), quotation.Status(req.Status))
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseSuccess(c, q)
}

// RequestApproval 为报价单发起审批
// @Summary 发起审批
// @Description 匹配审批工作流并创建第一层级的审批步骤
// @Tags Quotations
// @Produce json
// @Param id path string true "报价单ID"
// @Success 201 {object} approval.ApprovalDetail
// @Router /api/v1/quotations/{id}/request-approval [post]
func (h *QuotationHandler) RequestApproval(c *gin.Context) {
	detail, err := h.approvalService.RequestApproval(c.Request.Context(), c.Param("id"), auth.CurrentUserID(c))
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseCreated(c, detail)
}
