package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service 客户管理服务
type Service struct {
	*common.BaseService
}

// NewService 创建客户服务
func NewService(db *gorm.DB) *Service {
	return &Service{BaseService: common.NewBaseService(db)}
}

// CreateCustomerRequest 创建客户请求
type CreateCustomerRequest struct {
	Name        string
	ContactName string
	Email       string
	Phone       string
	Address     string
	Segment     string
	Region      string
	CreditLimit float64
	CreatedBy   string
}

// Create 创建客户
func (s *Service) Create(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	if req.Name == "" {
		return nil, common.NewBusinessError(common.CodeInvalidRequest, "客户名称不能为空")
	}
	if req.Segment == "" {
		req.Segment = "standard"
	}

	c := &Customer{
		ID:          uuid.New().String(),
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Segment:     req.Segment,
		Region:      req.Region,
		CreditLimit: req.CreditLimit,
		IsActive:    true,
		CreatedBy:   req.CreatedBy,
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt

	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("创建客户失败: %w", err)
	}
	return c, nil
}

// Get 查询单个客户
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	if err := s.DB.WithContext(ctx).
		Scopes(common.NotDeleted()).
		Where("id = ?", id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewBusinessErrorWithCode(common.CodeCustomerNotFound)
		}
		return nil, fmt.Errorf("查询客户失败: %w", err)
	}
	return &c, nil
}

// ListCustomersRequest 查询客户列表请求
type ListCustomersRequest struct {
	Keyword  string
	Segment  string
	Region   string
	Page     int
	PageSize int
}

// List 查询客户列表
func (s *Service) List(ctx context.Context, req *ListCustomersRequest) ([]*Customer, int64, error) {
	query := s.DB.WithContext(ctx).
		Model(&Customer{}).
		Scopes(common.NotDeleted())

	query = s.ApplyKeywordSearch(query, req.Keyword, []string{"name", "contact_name", "email"})
	if req.Segment != "" {
		query = query.Where("segment = ?", req.Segment)
	}
	if req.Region != "" {
		query = query.Where("region = ?", req.Region)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计客户数量失败: %w", err)
	}

	var customers []*Customer
	if err := s.ApplyPagination(query.Order("created_at DESC"), req.Page, req.PageSize).
		Find(&customers).Error; err != nil {
		return nil, 0, fmt.Errorf("查询客户列表失败: %w", err)
	}

	return customers, total, nil
}

// UpdateCustomerRequest 更新客户请求（指针表示可选字段）
type UpdateCustomerRequest struct {
	Name        *string
	ContactName *string
	Email       *string
	Phone       *string
	Address     *string
	Segment     *string
	Region      *string
	CreditLimit *float64
	IsActive    *bool
}

// Update 更新客户
func (s *Service) Update(ctx context.Context, id string, req *UpdateCustomerRequest) (*Customer, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ContactName != nil {
		updates["contact_name"] = *req.ContactName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Segment != nil {
		updates["segment"] = *req.Segment
	}
	if req.Region != nil {
		updates["region"] = *req.Region
	}
	if req.CreditLimit != nil {
		updates["credit_limit"] = *req.CreditLimit
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.DB.WithContext(ctx).Model(c).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新客户失败: %w", err)
	}

	return s.Get(ctx, id)
}

// Delete 软删除客户
func (s *Service) Delete(ctx context.Context, id, operatorID string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(c).Updates(map[string]any{
		"deleted_at": now,
		"deleted_by": operatorID,
		"updated_at": now,
	}).Error; err != nil {
		return fmt.Errorf("删除客户失败: %w", err)
	}

	return nil
}
