package common

import "gorm.io/gorm"

// NotDeleted 过滤已软删除的记录（默认查询行为）
// 使用方法：db.Scopes(common.NotDeleted()).Find(&quotations)
func NotDeleted() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("deleted_at IS NULL")
	}
}

// WithDeleted 包含已软删除的记录（查询所有记录）
func WithDeleted() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}
}

// ActiveOnly 仅查询启用状态的记录
// 使用方法：db.Scopes(common.ActiveOnly()).Find(&workflows)
func ActiveOnly() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_active = ?", true)
	}
}

// ByStatus 按状态过滤
func ByStatus(status string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("status = ?", status)
	}
}
