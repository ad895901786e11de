package quotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/common"
	"backend/internal/logger"
	"backend/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 报价单服务
// 负责报价单 CRUD、编号生成与状态流转校验
type Service struct {
	*common.BaseService
	numbering *NumberGenerator
}

// NewService 创建报价单服务
func NewService(db *gorm.DB, numbering *NumberGenerator) *Service {
	return &Service{
		BaseService: common.NewBaseService(db),
		numbering:   numbering,
	}
}

// ItemInput 明细行输入
type ItemInput struct {
	ProductName string
	Description string
	Quantity    float64
	Unit        string
	UnitPrice   float64
}

// CreateQuotationRequest 创建报价单请求
type CreateQuotationRequest struct {
	CustomerID string
	Title      string
	Currency   string
	ValidUntil *time.Time
	Notes      string
	Items      []ItemInput
	CreatedBy  string
}

// Create 创建报价单（草稿状态）
// 编号生成与明细写入在同一事务内完成
func (s *Service) Create(ctx context.Context, req *CreateQuotationRequest) (*Quotation, error) {
	if req.CustomerID == "" {
		return nil, common.NewBusinessError(common.CodeInvalidRequest, "客户ID不能为空")
	}
	if len(req.Items) == 0 {
		return nil, common.NewBusinessErrorWithCode(common.CodeQuotationItemsRequired)
	}
	if req.Currency == "" {
		req.Currency = "CNY"
	}

	now := time.Now().UTC()
	q := &Quotation{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		Title:      req.Title,
		Currency:   req.Currency,
		Status:     StatusDraft,
		ValidUntil: req.ValidUntil,
		Notes:      req.Notes,
		CreatedBy:  req.CreatedBy,
	}
	q.CreatedAt = now
	q.UpdatedAt = now

	err := s.Transaction(ctx, func(tx *gorm.DB) error {
		number, err := s.numbering.Generate(ctx)
		if err != nil {
			return err
		}
		q.QuotationNumber = number

		items, total := buildItems(q.ID, req.Items, now)
		q.TotalAmount = total
		q.Items = nil

		if err := tx.Create(q).Error; err != nil {
			return fmt.Errorf("创建报价单失败: %w", err)
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("创建报价单明细失败: %w", err)
		}
		q.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("报价单已创建",
		zap.String("quotationId", q.ID),
		zap.String("number", q.QuotationNumber),
		zap.Float64("totalAmount", q.TotalAmount),
	)

	return q, nil
}

// buildItems 构造明细行并计算总额
func buildItems(quotationID string, inputs []ItemInput, now time.Time) ([]QuotationItem, float64) {
	items := make([]QuotationItem, 0, len(inputs))
	var total float64
	for i, in := range inputs {
		subtotal := in.Quantity * in.UnitPrice
		item := QuotationItem{
			ID:          uuid.New().String(),
			QuotationID: quotationID,
			ProductName: in.ProductName,
			Description: in.Description,
			Quantity:    in.Quantity,
			Unit:        in.Unit,
			UnitPrice:   in.UnitPrice,
			Subtotal:    subtotal,
			SortOrder:   i,
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		items = append(items, item)
		total += subtotal
	}
	return items, total
}

// Get 查询报价单（含客户与明细）
func (s *Service) Get(ctx context.Context, id string) (*Quotation, error) {
	var q Quotation
	if err := s.DB.WithContext(ctx).
		Scopes(common.NotDeleted()).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewBusinessErrorWithCode(common.CodeQuotationNotFound)
		}
		return nil, fmt.Errorf("查询报价单失败: %w", err)
	}
	return &q, nil
}

// ListQuotationsRequest 查询报价单列表请求
type ListQuotationsRequest struct {
	CustomerID string
	Status     string
	Keyword    string
	Page       int
	PageSize   int
}

// List 查询报价单列表
func (s *Service) List(ctx context.Context, req *ListQuotationsRequest) ([]*Quotation, int64, error) {
	query := s.DB.WithContext(ctx).
		Model(&Quotation{}).
		Scopes(common.NotDeleted(), common.ByStatus(req.Status))

	if req.CustomerID != "" {
		query = query.Where("customer_id = ?", req.CustomerID)
	}
	query = s.ApplyKeywordSearch(query, req.Keyword, []string{"quotation_number", "title"})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计报价单数量失败: %w", err)
	}

	var quotations []*Quotation
	if err := s.ApplyPagination(query.Preload("Customer").Order("created_at DESC"), req.Page, req.PageSize).
		Find(&quotations).Error; err != nil {
		return nil, 0, fmt.Errorf("查询报价单列表失败: %w", err)
	}

	return quotations, total, nil
}

// UpdateQuotationRequest 更新报价单请求
// 仅草稿状态允许修改内容字段，状态变更走 ChangeStatus
type UpdateQuotationRequest struct {
	Title      *string
	Currency   *string
	ValidUntil *time.Time
	Notes      *string
	Items      []ItemInput
}

// Update 更新报价单内容
func (s *Service) Update(ctx context.Context, id string, req *UpdateQuotationRequest) (*Quotation, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// 离开草稿状态后仅允许状态字段变更
	if q.Status != StatusDraft {
		return nil, common.NewBusinessErrorWithCode(common.CodeQuotationNotEditable)
	}

	now := time.Now().UTC()
	err = s.Transaction(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{"updated_at": now}
		if req.Title != nil {
			updates["title"] = *req.Title
		}
		if req.Currency != nil {
			updates["currency"] = *req.Currency
		}
		if req.ValidUntil != nil {
			updates["valid_until"] = *req.ValidUntil
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}

		if len(req.Items) > 0 {
			// 全量替换明细
			if err := tx.Where("quotation_id = ?", q.ID).Delete(&QuotationItem{}).Error; err != nil {
				return fmt.Errorf("清理旧明细失败: %w", err)
			}
			items, total := buildItems(q.ID, req.Items, now)
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("写入新明细失败: %w", err)
			}
			updates["total_amount"] = total
		}

		if err := tx.Model(&Quotation{}).Where("id = ?", q.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("更新报价单失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// ChangeStatus 按状态流转表变更报价单状态
func (s *Service) ChangeStatus(ctx context.Context, id string, to Status) (*Quotation, error) {
	if !to.IsValid() {
		return nil, common.NewBusinessError(common.CodeInvalidRequest, fmt.Sprintf("未知的报价单状态: %s", to))
	}

	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(q.Status, to) {
		return nil, common.NewBusinessError(common.CodeIllegalStatusTransition,
			fmt.Sprintf("不允许的状态流转: %s -> %s", q.Status, to))
	}

	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&Quotation{}).
		Where("id = ? AND status = ?", q.ID, q.Status).
		Updates(map[string]any{"status": to, "updated_at": now}).Error; err != nil {
		return nil, fmt.Errorf("变更报价单状态失败: %w", err)
	}

	metrics.QuotationStatusTransitionsTotal.WithLabelValues(string(q.Status), string(to)).Inc()
	logger.WithContext(ctx).Info("报价单状态已变更",
		zap.String("quotationId", q.ID),
		zap.String("from", string(q.Status)),
		zap.String("to", string(to)),
	)

	return s.Get(ctx, id)
}

// ForceApproveTx 审批完成时的特权状态覆写
// 绕过状态流转表，仅供审批状态机在终审通过的事务内调用
func (s *Service) ForceApproveTx(tx *gorm.DB, id string) error {
	result := tx.Model(&Quotation{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": StatusApproved, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("覆写报价单状态失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.NewBusinessErrorWithCode(common.CodeQuotationNotFound)
	}
	metrics.QuotationStatusTransitionsTotal.WithLabelValues("forced", string(StatusApproved)).Inc()
	return nil
}
