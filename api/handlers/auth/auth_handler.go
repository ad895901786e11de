package auth

import (
	"github.com/gin-gonic/gin"

	"backend/internal/auth"
	"backend/internal/common"
	"backend/internal/user"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtService  *auth.JWTService
	userService *user.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwtService *auth.JWTService, userService *user.Service) *AuthHandler {
	return &AuthHandler{
		jwtService:  jwtService,
		userService: userService,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	*auth.TokenPair
	User *UserInfo `json:"user"`
}

// UserInfo 用户信息
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用邮箱和密码登录，获取访问令牌和刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录请求参数"
// @Success 200 {object} LoginResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	u, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(u.ID, u.Role)
	if err != nil {
		common.ResponseServerError(c, "生成令牌失败")
		return
	}

	common.ResponseSuccess(c, &LoginResponse{
		TokenPair: pair,
		User: &UserInfo{
			ID:    u.ID,
			Email: u.Email,
			Name:  u.Name,
			Role:  u.Role,
		},
	})
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 刷新访问令牌
// @Summary 刷新访问令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "刷新令牌"
// @Success 200 {object} auth.TokenPair
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	pair, err := h.jwtService.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.ResponseUnauthorized(c, "刷新令牌无效或已过期")
		return
	}

	common.ResponseSuccess(c, pair)
}

// Logout 退出登录
// @Summary 退出登录
// @Description 将当前访问令牌加入黑名单
// @Tags Auth
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := auth.ExtractTokenFromBearer(c.GetHeader("Authorization"))
	if token == "" {
		common.ResponseBadRequest(c, "缺少访问令牌")
		return
	}

	if err := h.jwtService.BlacklistToken(c.Request.Context(), token); err != nil {
		common.ResponseServerError(c, "退出登录失败")
		return
	}

	common.ResponseSuccessMessage(c, "已退出登录", nil)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register 用户注册
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册请求参数"
// @Success 201 {object} UserInfo
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	u, err := h.userService.Create(c.Request.Context(), &user.CreateUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     user.RoleSales,
	})
	if err != nil {
		common.ResponseFromError(c, err)
		return
	}

	common.ResponseCreated(c, &UserInfo{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	})
}
