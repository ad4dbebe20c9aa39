package market

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// 汇总状态与无合同时的占位文本
const (
	StatusNoContract = "No contract"
	StatusActive     = "Active"
	MotifNoContract  = "No active contract"
	zeroAmount       = "0.00"
)

// PaymentSummary 商户应缴费用汇总
type PaymentSummary struct {
	Status          string     `json:"status"`
	ContractID      *int64     `json:"contract_id,omitempty"`
	AnnualFeeAmount string     `json:"annual_fee_amount"`
	AnnualFeeMotif  string     `json:"annual_fee_motif"`
	StallFeeAmount  string     `json:"stall_fee_amount"`
	StallFeeMotif   string     `json:"stall_fee_motif"`
	StallStart      *time.Time `json:"stall_period_start,omitempty"`
	StallEnd        *time.Time `json:"stall_period_end,omitempty"`
}

// Summarize 计算商户的应缴汇总，没有合同时不调用计算器
func (c *Calculator) Summarize(m *models.Merchant, now time.Time) *PaymentSummary {
	contract := m.ActiveContract()
	if contract == nil {
		return &PaymentSummary{
			Status:          StatusNoContract,
			AnnualFeeAmount: zeroAmount,
			AnnualFeeMotif:  MotifNoContract,
			StallFeeAmount:  zeroAmount,
			StallFeeMotif:   MotifNoContract,
		}
	}

	annual := c.annual(contract, m.Payments, now)
	stall := c.stall(contract, m.Payments, now)
	id := contract.ID
	return &PaymentSummary{
		Status:          StatusActive,
		ContractID:      &id,
		AnnualFeeAmount: formatAmount(annual.Amount),
		AnnualFeeMotif:  annual.Label,
		StallFeeAmount:  formatAmount(stall.Amount),
		StallFeeMotif:   stall.Label,
		StallStart:      stall.PeriodStart,
		StallEnd:        stall.PeriodEnd,
	}
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
