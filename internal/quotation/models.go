package quotation

import (
	"time"

	"backend/internal/common"
	"backend/internal/customer"
)

// Status 报价单状态
type Status string

const (
	// StatusDraft 草稿
	StatusDraft Status = "draft"
	// StatusSent 已发送客户
	StatusSent Status = "sent"
	// StatusApproved 已批准
	StatusApproved Status = "approved"
	// StatusRejected 已拒绝（终态）
	StatusRejected Status = "rejected"
	// StatusExpired 已过期
	StatusExpired Status = "expired"
)

// statusTransitions 状态流转表
// rejected 为终态，不允许任何流转
var statusTransitions = map[Status][]Status{
	StatusDraft:    {StatusSent, StatusRejected},
	StatusSent:     {StatusApproved, StatusRejected, StatusExpired},
	StatusApproved: {StatusRejected},
	StatusRejected: {},
	StatusExpired:  {StatusSent},
}

// IsValid 检查状态值是否合法
func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition 检查从 from 到 to 的流转是否合法
func CanTransition(from, to Status) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Quotation 报价单
type Quotation struct {
	ID              string     `json:"id" gorm:"primaryKey;type:uuid"`
	QuotationNumber string     `json:"quotationNumber" gorm:"size:50;uniqueIndex;not null"`
	CustomerID      string     `json:"customerId" gorm:"type:uuid;not null;index"`
	Title           string     `json:"title" gorm:"size:255"`
	Currency        string     `json:"currency" gorm:"size:10;default:CNY"`
	TotalAmount     float64    `json:"totalAmount" gorm:"not null;default:0"`
	Status          Status     `json:"status" gorm:"size:20;not null;default:draft;index"`
	ValidUntil      *time.Time `json:"validUntil"`
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedBy       string     `json:"createdBy" gorm:"type:uuid"`

	// 关联
	Customer *customer.Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Items    []QuotationItem    `json:"items,omitempty" gorm:"foreignKey:QuotationID"`

	common.TimestampModel
	common.SoftDeleteModel
}

// TableName 指定表名
func (Quotation) TableName() string {
	return "quotations"
}

// QuotationItem 报价单明细行
type QuotationItem struct {
	ID          string  `json:"id" gorm:"primaryKey;type:uuid"`
	QuotationID string  `json:"quotationId" gorm:"type:uuid;not null;index"`
	ProductName string  `json:"productName" gorm:"size:255;not null"`
	Description string  `json:"description" gorm:"type:text"`
	Quantity    float64 `json:"quantity" gorm:"not null;default:1"`
	Unit        string  `json:"unit" gorm:"size:20"`
	UnitPrice   float64 `json:"unitPrice" gorm:"not null;default:0"`
	Subtotal    float64 `json:"subtotal" gorm:"not null;default:0"`
	SortOrder   int     `json:"sortOrder" gorm:"default:0"`

	common.TimestampModel
}

// TableName 指定表名
func (QuotationItem) TableName() string {
	return "quotation_items"
}
