package common

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// BaseService 服务基类，封装通用的数据库操作方法
// 各业务Service可以嵌入此基类来复用通用功能
type BaseService struct {
	DB *gorm.DB
}

// NewBaseService 创建BaseService实例
func NewBaseService(db *gorm.DB) *BaseService {
	return &BaseService{DB: db}
}

// ============================================================================
// 分页与排序
// ============================================================================

// ApplyPagination 应用分页条件
// page: 页码（从1开始）
// pageSize: 每页数量
func (s *BaseService) ApplyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return query.Offset(offset).Limit(pageSize)
}

// ApplySorting 应用排序条件
// allowedFields: 允许的排序字段白名单（安全检查）
func (s *BaseService) ApplySorting(query *gorm.DB, sortBy, sortOrder string, allowedFields []string) *gorm.DB {
	if sortBy == "" {
		return query.Order("created_at DESC")
	}

	if len(allowedFields) > 0 {
		allowed := false
		for _, field := range allowedFields {
			if field == sortBy {
				allowed = true
				break
			}
		}
		if !allowed {
			return query.Order("created_at DESC")
		}
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))
}

// ApplyKeywordSearch 应用关键词模糊搜索
// 示例: ApplyKeywordSearch(query, "钢材", []string{"title", "quotation_number"})
func (s *BaseService) ApplyKeywordSearch(query *gorm.DB, keyword string, fields []string) *gorm.DB {
	if keyword == "" || len(fields) == 0 {
		return query
	}

	var conditions []string
	var args []interface{}
	for _, field := range fields {
		conditions = append(conditions, fmt.Sprintf("%s LIKE ?", field))
		args = append(args, "%"+keyword+"%")
	}

	whereClause := "(" + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " OR " + conditions[i]
	}
	whereClause += ")"

	return query.Where(whereClause, args...)
}

// ============================================================================
// 通用CRUD操作
// ============================================================================

// Create 创建记录
func (s *BaseService) Create(ctx context.Context, model interface{}) error {
	return s.DB.WithContext(ctx).Create(model).Error
}

// Update 更新记录
func (s *BaseService) Update(ctx context.Context, model interface{}) error {
	return s.DB.WithContext(ctx).Save(model).Error
}

// FindByID 根据ID查询单条记录
func (s *BaseService) FindByID(ctx context.Context, model interface{}, id string) error {
	return s.DB.WithContext(ctx).Where("id = ?", id).First(model).Error
}

// Exists 检查记录是否存在
func (s *BaseService) Exists(ctx context.Context, model interface{}, condition string, args ...interface{}) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(model).Where(condition, args...).Count(&count).Error
	return count > 0, err
}

// Count 统计记录数
func (s *BaseService) Count(ctx context.Context, model interface{}, condition string, args ...interface{}) (int64, error) {
	var count int64
	query := s.DB.WithContext(ctx).Model(model)
	if condition != "" {
		query = query.Where(condition, args...)
	}
	err := query.Count(&count).Error
	return count, err
}

// ============================================================================
// 事务支持
// ============================================================================

// Transaction 执行事务
func (s *BaseService) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.DB.WithContext(ctx).Transaction(fn)
}

// GetDBWithContext 获取带上下文的数据库实例
func (s *BaseService) GetDBWithContext(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}
