package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/common"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service 用户服务
type Service struct {
	db *gorm.DB
}

// NewService 创建用户服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Create 创建用户
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, common.NewBusinessError(common.CodeInvalidRequest, "邮箱和密码不能为空")
	}
	if req.Role == "" {
		req.Role = "sales"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		IsActive:     true,
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return u, nil
}

// GetByID 根据ID查询用户
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewBusinessErrorWithCode(common.CodeUserNotFound)
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// Authenticate 校验邮箱密码，返回用户
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewBusinessErrorWithCode(common.CodeInvalidCredentials)
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if !u.IsActive {
		return nil, common.NewBusinessErrorWithCode(common.CodeUserDisabled)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, common.NewBusinessErrorWithCode(common.CodeInvalidCredentials)
	}

	return &u, nil
}

// CountActiveByIDs 统计指定ID集合中启用状态的用户数量
// 审批工作流校验审批人时使用
func (s *Service) CountActiveByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计用户失败: %w", err)
	}
	return count, nil
}
