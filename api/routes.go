package api

import (
	"backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, handlers *Handlers) {
	// 认证 API（公开，不需要 JWT）
	registerAuthRoutes(router, handlers)

	// 版本化 API 组
	apiV1 := router.Group("/api/v1")
	apiV1.Use(auth.AuthMiddleware(container.JWTService))
	registerAPIRoutes(apiV1, handlers)
}

// registerAuthRoutes 注册认证相关路由（公开）
func registerAuthRoutes(router *gin.Engine, h *Handlers) {
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
	}
}

// registerAPIRoutes 注册需要认证的 API 路由
func registerAPIRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	// WebSocket 实时通知
	apiGroup.GET("/ws/notifications", h.Notification.Connect)

	adminGuard := auth.RequireAdmin()

	// 客户管理
	customers := apiGroup.Group("/customers")
	{
		customers.POST("", h.Customer.Create)
		customers.GET("", h.Customer.List)
		customers.GET("/:id", h.Customer.Get)
		customers.PUT("/:id", h.Customer.Update)
		customers.DELETE("/:id", h.Customer.Delete)
	}

	// 报价单管理
	quotations := apiGroup.Group("/quotations")
	{
		quotations.POST("", h.Quotation.Create)
		quotations.GET("", h.Quotation.List)
		quotations.GET("/:id", h.Quotation.Get)
		quotations.PUT("/:id", h.Quotation.Update)
		quotations.PUT("/:id/status", h.Quotation.ChangeStatus)
		quotations.POST("/:id/request-approval", h.Quotation.RequestApproval)
	}

	// 审批工作流管理（仅管理员）
	workflows := apiGroup.Group("/workflows", adminGuard)
	{
		workflows.POST("", h.Workflow.Create)
		workflows.GET("", h.Workflow.List)
		workflows.GET("/:id", h.Workflow.Get)
		workflows.PUT("/:id", h.Workflow.Update)
		workflows.DELETE("/:id", h.Workflow.Delete)
	}

	// 审批处理
	approvals := apiGroup.Group("/approvals")
	{
		approvals.GET("/pending", h.Approval.Pending)
		approvals.GET("/:id", h.Approval.Get)
		approvals.PUT("/:id/steps/:stepId", h.Approval.ProcessStep)
		approvals.POST("/sweep", adminGuard, h.Approval.TriggerSweep)
	}

	// 审批看板
	apiGroup.GET("/dashboard", h.Dashboard.Get)
}
