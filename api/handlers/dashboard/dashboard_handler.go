package dashboard

import (
	"github.com/gin-gonic/gin"

	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/common"
)

// DashboardHandler 审批看板处理器
type DashboardHandler struct {
	dashboardService *approval.DashboardService
}

// NewDashboardHandler 创建看板处理器
func NewDashboardHandler(dashboardService *approval.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Get 查询审批看板汇总
// @Summary 查询审批看板
// @Description 全局待处理数、本人待处理数、今日通过/拒绝数、最近完成列表与各工作流待处理数
// @Tags Dashboard
// @Produce json
// @Success 200 {object} approval.DashboardSummary
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	summary, err := h.dashboardService.GetDashboard(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}
	common.ResponseSuccess(c, summary)
}
