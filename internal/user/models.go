package user

import "backend/internal/common"

// 用户角色
const (
	RoleSales    = "sales"
	RoleApprover = "approver"
	RoleAdmin    = "admin"
)

// User 系统用户
// 销售、审批人、管理员共用一张表，以 role 区分
type User struct {
	ID           string `json:"id" gorm:"primaryKey;type:uuid"`
	Name         string `json:"name" gorm:"size:100;not null"`
	Email        string `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"size:255;not null"`
	Role         string `json:"role" gorm:"size:20;not null;default:sales"` // sales, approver, admin
	IsActive     bool   `json:"isActive" gorm:"default:true"`

	common.TimestampModel
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
