package quotation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"backend/internal/common"
	"backend/internal/config"
	"backend/internal/metrics"

	"gorm.io/gorm"
)

// 编号冲突的最大重试次数
// 并发写入下 LIKE 查询到提交之间存在窗口，这里只做尽力去重
const maxNumberRetries = 3

// NumberGenerator 报价单编号生成器
// 编号格式: PREFIX<sep><日期段><sep><零填充序列>，如 QUO-2026-000001
type NumberGenerator struct {
	db  *gorm.DB
	cfg config.NumberingConfig
}

// NewNumberGenerator 创建编号生成器
func NewNumberGenerator(db *gorm.DB, cfg config.NumberingConfig) *NumberGenerator {
	return &NumberGenerator{db: db, cfg: cfg}
}

// Generate 生成下一个报价单编号
func (g *NumberGenerator) Generate(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		candidate, err := g.nextCandidate(ctx, now)
		if err != nil {
			return "", err
		}

		// 提交前再查一次，规避读取窗口内的并发写入
		var count int64
		if err := g.db.WithContext(ctx).Model(&Quotation{}).
			Where("quotation_number = ?", candidate).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("检查编号冲突失败: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		metrics.QuotationNumberRetriesTotal.Inc()
	}

	return "", common.NewBusinessErrorWithCode(common.CodeQuotationNumberExhausted)
}

// nextCandidate 基于当前周期内字典序最大的已有编号推算下一个候选编号
func (g *NumberGenerator) nextCandidate(ctx context.Context, now time.Time) (string, error) {
	datePart := g.formatDatePart(now)
	fullPrefix := g.cfg.Prefix + g.cfg.Separator + datePart + g.cfg.Separator

	var last Quotation
	err := g.db.WithContext(ctx).
		Where("quotation_number LIKE ?", g.scopePrefix(now)+"%").
		Order("quotation_number DESC").
		First(&last).Error

	seq := 1
	if err == nil {
		seq = g.parseSequence(last.QuotationNumber) + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("查询最大编号失败: %w", err)
	}

	return fmt.Sprintf("%s%0*d", fullPrefix, g.cfg.SequenceWidth, seq), nil
}

// scopePrefix 序列重置范围对应的编号前缀
// 重置策略决定序列在哪个周期内从1重新开始
func (g *NumberGenerator) scopePrefix(now time.Time) string {
	base := g.cfg.Prefix + g.cfg.Separator
	switch g.cfg.ResetPolicy {
	case "never":
		return base
	case "monthly":
		return base + now.Format("200601")
	case "daily":
		return base + now.Format("20060102")
	default: // yearly
		return base + now.Format("2006")
	}
}

// formatDatePart 编号中的日期段
func (g *NumberGenerator) formatDatePart(now time.Time) string {
	switch g.cfg.DateFormat {
	case "year_month":
		return now.Format("200601")
	case "year_month_day":
		return now.Format("20060102")
	default: // year
		return now.Format("2006")
	}
}

// parseSequence 解析编号末尾的数字序列，解析失败返回0
func (g *NumberGenerator) parseSequence(number string) int {
	idx := strings.LastIndex(number, g.cfg.Separator)
	if idx < 0 || idx+len(g.cfg.Separator) >= len(number) {
		return 0
	}
	seq, err := strconv.Atoi(number[idx+len(g.cfg.Separator):])
	if err != nil {
		return 0
	}
	return seq
}
