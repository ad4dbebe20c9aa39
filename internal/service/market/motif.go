package market

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/market-merchant-backend/internal/common/utils"
	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// LabelFrequencyUndefined 合同未设置频率时的事由
const LabelFrequencyUndefined = "Frequency not defined"

// Motif 下一笔应缴费用
type Motif struct {
	Type         models.PaymentType `json:"type"`
	Label        string             `json:"label"`
	Amount       decimal.Decimal    `json:"amount"`
	PeriodStart  *time.Time         `json:"period_start,omitempty"`
	PeriodEnd    *time.Time         `json:"period_end,omitempty"`
	PeriodNumber *int               `json:"period_number,omitempty"`
	Year         *int               `json:"year,omitempty"`
}

// PeriodIndex 期次的字符串形式，写入缴费记录的 period_index
func (m *Motif) PeriodIndex() *string {
	switch {
	case m.PeriodNumber != nil:
		s := strconv.Itoa(*m.PeriodNumber)
		return &s
	case m.Year != nil:
		s := strconv.Itoa(*m.Year)
		return &s
	}
	return nil
}

// Calculator 缴费事由计算器
type Calculator struct {
	locale string
}

// NewCalculator 创建计算器，locale 决定日期长格式语言
func NewCalculator(locale string) *Calculator {
	if locale == "" {
		locale = "en"
	}
	return &Calculator{locale: locale}
}

// Compute 计算合同的下一笔年费或摊位费
// payments 为该商户的全部缴费记录，now 用于缺省年份与起始日期
func (c *Calculator) Compute(contract *models.Contract, payments []models.Payment, feeType models.PaymentType, now time.Time) (*Motif, error) {
	switch feeType {
	case models.PaymentTypeAnnualFee:
		return c.annual(contract, payments, now), nil
	case models.PaymentTypeStallFee:
		return c.stall(contract, payments, now), nil
	default:
		return nil, fmt.Errorf("unknown fee type %q", feeType)
	}
}

func (c *Calculator) annual(contract *models.Contract, payments []models.Payment, now time.Time) *Motif {
	year := now.Year()
	if last := latestAnnual(payments); last != nil {
		switch {
		case last.FeeYear != nil:
			year = *last.FeeYear + 1
		default:
			if parsed, ok := utils.ParseDigits(last.Motif); ok {
				year = parsed + 1
			}
		}
	} else if contract.StartDate != nil {
		year = contract.StartDate.Year()
	}

	m := &Motif{
		Type:  models.PaymentTypeAnnualFee,
		Label: fmt.Sprintf("Annual fee %d", year),
		Year:  &year,
	}
	if contract.AnnualFee != nil {
		m.Amount = contract.AnnualFee.Amount
	}
	return m
}

func (c *Calculator) stall(contract *models.Contract, payments []models.Payment, now time.Time) *Motif {
	m := &Motif{Type: models.PaymentTypeStallFee}
	if contract.Category != nil {
		m.Amount = contract.Category.Fee
	}

	start := dateOnly(now)
	number := 1
	if last := latestStall(payments); last != nil {
		start = dateOnly(*last.PeriodEnd).AddDate(0, 0, 1)
		switch {
		case last.PeriodNumber != nil:
			number = *last.PeriodNumber + 1
		case last.PeriodIndex != nil:
			if parsed, ok := utils.ParseDigits(*last.PeriodIndex); ok {
				number = parsed + 1
			}
		}
	} else if contract.StartDate != nil {
		start = dateOnly(*contract.StartDate)
	}

	var end time.Time
	switch contract.FrequencyValue() {
	case models.FrequencyMonthly:
		end = addMonths(start, 1).AddDate(0, 0, -1)
		m.Label = fmt.Sprintf("Payment for the %s month (%s – %s)", Ordinal(number), c.date(start), c.date(end))
	case models.FrequencyWeekly:
		end = start.AddDate(0, 0, 6)
		m.Label = fmt.Sprintf("Payment for the %s week (%s – %s)", Ordinal(number), c.date(start), c.date(end))
	case models.FrequencyDaily:
		end = start
		m.Label = fmt.Sprintf("Payment for day %d (%s)", number, c.date(start))
	default:
		m.Label = LabelFrequencyUndefined
		return m
	}

	m.PeriodStart = &start
	m.PeriodEnd = &end
	m.PeriodNumber = &number
	return m
}

func (c *Calculator) date(t time.Time) string {
	return FormatLongDate(t, c.locale)
}

// latestAnnual 缴费日期最晚的年费记录，无日期的记录不参与
func latestAnnual(payments []models.Payment) *models.Payment {
	var latest *models.Payment
	for i := range payments {
		p := &payments[i]
		if p.Type != models.PaymentTypeAnnualFee || p.PaymentDate == nil {
			continue
		}
		if latest == nil || p.PaymentDate.After(*latest.PaymentDate) ||
			(p.PaymentDate.Equal(*latest.PaymentDate) && p.ID > latest.ID) {
			latest = p
		}
	}
	return latest
}

// latestStall 期末日期最晚的摊位费记录，无期末日期的记录不参与
func latestStall(payments []models.Payment) *models.Payment {
	var latest *models.Payment
	for i := range payments {
		p := &payments[i]
		if p.Type != models.PaymentTypeStallFee || p.PeriodEnd == nil {
			continue
		}
		if latest == nil || p.PeriodEnd.After(*latest.PeriodEnd) ||
			(p.PeriodEnd.Equal(*latest.PeriodEnd) && p.ID > latest.ID) {
			latest = p
		}
	}
	return latest
}
