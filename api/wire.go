package api

import (
	"time"

	approvalHandlers "backend/api/handlers/approvals"
	authHandlers "backend/api/handlers/auth"
	customerHandlers "backend/api/handlers/customers"
	dashboardHandlers "backend/api/handlers/dashboard"
	notificationHandlers "backend/api/handlers/notifications"
	quotationHandlers "backend/api/handlers/quotations"
	workflowHandlers "backend/api/handlers/workflows"

	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/customer"
	"backend/internal/infra/queue"
	"backend/internal/quotation"
	"backend/internal/user"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AppContainer 聚合全部服务依赖
type AppContainer struct {
	Config     *config.Config
	DB         *gorm.DB
	JWTService *auth.JWTService

	UserService      *user.Service
	CustomerService  *customer.Service
	QuotationService *quotation.Service
	WorkflowService  *approval.WorkflowService
	ApprovalService  *approval.Service
	DashboardService *approval.DashboardService
	EventBus         *approval.EventBus
	QueueClient      queue.Client
}

// Handlers 聚合全部 HTTP 处理器
type Handlers struct {
	Auth         *authHandlers.AuthHandler
	Customer     *customerHandlers.CustomerHandler
	Quotation    *quotationHandlers.QuotationHandler
	Workflow     *workflowHandlers.WorkflowHandler
	Approval     *approvalHandlers.ApprovalHandler
	Dashboard    *dashboardHandlers.DashboardHandler
	Notification *notificationHandlers.WebSocketHandler
}

// BuildContainer 组装服务依赖
func BuildContainer(db *gorm.DB, redisClient redis.UniversalClient, cfg *config.Config) *AppContainer {
	jwtService := auth.NewJWTService(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		time.Duration(cfg.Auth.AccessExpiry)*time.Minute,
		time.Duration(cfg.Auth.RefreshExpiry)*time.Minute,
		redisClient,
	)

	userService := user.NewService(db)
	customerService := customer.NewService(db)

	numbering := quotation.NewNumberGenerator(db, cfg.Numbering)
	quotationService := quotation.NewService(db, numbering)

	eventBus := approval.NewEventBus(nil)
	matcher := approval.NewMatcher(db)
	workflowService := approval.NewWorkflowService(db, userService)
	approvalService := approval.NewService(db, matcher, quotationService, eventBus)
	dashboardService := approval.NewDashboardService(db, approvalService, cfg.Approval.RecentLimit)

	var queueClient queue.Client
	if cfg.Approval.EnableSweeper {
		queueClient = queue.NewClient(cfg.Redis)
	}

	return &AppContainer{
		Config:           cfg,
		DB:               db,
		JWTService:       jwtService,
		UserService:      userService,
		CustomerService:  customerService,
		QuotationService: quotationService,
		WorkflowService:  workflowService,
		ApprovalService:  approvalService,
		DashboardService: dashboardService,
		EventBus:         eventBus,
		QueueClient:      queueClient,
	}
}

// BuildHandlers 组装 HTTP 处理器
func BuildHandlers(c *AppContainer) *Handlers {
	return &Handlers{
		Auth:         authHandlers.NewAuthHandler(c.JWTService, c.UserService),
		Customer:     customerHandlers.NewCustomerHandler(c.CustomerService),
		Quotation:    quotationHandlers.NewQuotationHandler(c.QuotationService, c.ApprovalService),
		Workflow:     workflowHandlers.NewWorkflowHandler(c.WorkflowService),
		Approval:     approvalHandlers.NewApprovalHandler(c.ApprovalService, c.QueueClient),
		Dashboard:    dashboardHandlers.NewDashboardHandler(c.DashboardService),
		Notification: notificationHandlers.NewWebSocketHandler(c.EventBus),
	}
}
