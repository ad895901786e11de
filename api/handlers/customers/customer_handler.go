package customers

import (
	"github.com/gin-gonic/gin"

	"backend/internal/auth"
	"backend/internal/common"
	"backend/internal/customer"
)

// CustomerHandler 客户处理器
type CustomerHandler struct {
	customerService *customer.Service
}

// NewCustomerHandler 创建客户处理器
func NewCustomerHandler(customerService *customer.Service) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// CreateCustomerRequest 创建客户请求
type CreateCustomerRequest struct {
	Name        string  `json:"name" binding:"required"`
	ContactName string  `json:"contactName"`
	Email       string  `json:"email" binding:"omitempty,email"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
	Segment     string  `json:"segment" binding:"omitempty,oneof=standard key_account strategic"`
	Region      string  `json:"region"`
	CreditLimit float64 `json:"creditLimit" binding:"gte=0"`
}

// Create 创建客户
// @Summary 创建客户
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body CreateCustomerRequest true "客户信息"
// @Success 201 {object} customer.Customer
// @Router /api/v1/customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	cust, err := h.customerService.Create(c.Request.Context(), &customer.CreateCustomerRequest{
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Segment:     req.Segment,
		Region:      req.Region,
		CreditLimit: req.CreditLimit,
		CreatedBy:   auth.CurrentUserID(c),
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseCreated(c, cust)
}

// Get 查询客户
// @Summary 查询客户详情
// @Tags Customers
// @Produce json
// @Param id path string true "客户ID"
// @Success 200 {object} customer.Customer
// @Router /api/v1/customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	cust, err := h.customerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseSuccess(c, cust)
}

// List 查询客户列表
// @Summary 查询客户列表
// @Tags Customers
// @Produce json
// @Param keyword query string false "搜索关键词"
// @Param segment query string false "客户分层"
// @Param region query string false "区域"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} common.ListResponse
// @Router /api/v1/customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	var page common.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		common.ResponseBadRequest(c, "分页参数错误: "+err.Error())
		return
	}

	customers, total, err := h.customerService.List(c.Request.Context(), &customer.ListCustomersRequest{
		Keyword:  c.Query("keyword"),
		Segment:  c.Query("segment"),
		Region:   c.Query("region"),
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseList(c, customers, total, page.Page, page.PageSize)
}

// UpdateCustomerRequest 更新客户请求
type UpdateCustomerRequest struct {
	Name        *string  `json:"name"`
	ContactName *string  `json:"contactName"`
	Email       *string  `json:"email" binding:"omitempty,email"`
	Phone       *string  `json:"phone"`
	Address     *string  `json:"address"`
	Segment     *string  `json:"segment" binding:"omitempty,oneof=standard key_account strategic"`
	Region      *string  `json:"region"`
	CreditLimit *float64 `json:"creditLimit" binding:"omitempty,gte=0"`
	IsActive    *bool    `json:"isActive"`
}

// Update 更新客户
// @Summary 更新客户
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path string true "客户ID"
// @Param request body UpdateCustomerRequest true "更新字段"
// @Success 200 {object} customer.Customer
// @Router /api/v1/customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	cust, err := h.customerService.Update(c.Request.Context(), c.Param("id"), &customer.UpdateCustomerRequest{
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Segment:     req.Segment,
		Region:      req.Region,
		CreditLimit: req.CreditLimit,
		IsActive:    req.IsActive,
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseSuccess(c, cust)
}

// Delete 删除客户
// @Summary 删除客户（软删除）
// @Tags Customers
// @Produce json
// @Param id path string true "客户ID"
// @Success 204
// @Router /api/v1/customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.customerService.Delete(c.Request.Context(), c.Param("id"), auth.CurrentUserID(c)); err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseNoContent(c)
}
