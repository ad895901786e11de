package customer

import "backend/internal/common"

// Customer 客户档案
type Customer struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string `json:"name" gorm:"size:255;not null;index"`
	ContactName string `json:"contactName" gorm:"size:100"`
	Email       string `json:"email" gorm:"size:255"`
	Phone       string `json:"phone" gorm:"size:50"`
	Address     string `json:"address" gorm:"type:text"`

	// 画像字段，审批条件可引用（如 customer.segment、customer.creditLimit）
	Segment     string  `json:"segment" gorm:"size:50;default:standard"` // standard, key_account, strategic
	Region      string  `json:"region" gorm:"size:50"`
	CreditLimit float64 `json:"creditLimit" gorm:"default:0"`

	IsActive  bool   `json:"isActive" gorm:"default:true"`
	CreatedBy string `json:"createdBy" gorm:"type:uuid"`

	common.TimestampModel
	common.SoftDeleteModel
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
