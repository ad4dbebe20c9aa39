package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType 缴费类型
type PaymentType string

// 缴费类型
const (
	PaymentTypeAnnualFee PaymentType = "ANNUAL_FEE"
	PaymentTypeStallFee  PaymentType = "STALL_FEE"
)

// Valid 是否为合法缴费类型
func (t PaymentType) Valid() bool {
	return t == PaymentTypeAnnualFee || t == PaymentTypeStallFee
}

// Payment 缴费记录
// Motif 与 PeriodIndex 为展示字段，FeeYear 与 PeriodNumber 为结构化期次
type Payment struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReceiptNo    string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"receipt_no"`
	MerchantID   int64           `gorm:"index;not null" json:"merchant_id"`
	ContractID   int64           `gorm:"index;not null" json:"contract_id"`
	Type         PaymentType     `gorm:"type:varchar(20);index;not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentDate  *time.Time      `gorm:"index" json:"payment_date,omitempty"`
	PeriodStart  *time.Time      `gorm:"type:date" json:"period_start,omitempty"`
	PeriodEnd    *time.Time      `gorm:"type:date" json:"period_end,omitempty"`
	Motif        string          `gorm:"type:varchar(255);not null" json:"motif"`
	PeriodIndex  *string         `gorm:"type:varchar(20)" json:"period_index,omitempty"`
	PeriodNumber *int            `json:"period_number,omitempty"`
	FeeYear      *int            `json:"fee_year,omitempty"`
	RecordedBy   *int64          `json:"recorded_by,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`

	// 关联
	Merchant *Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
	Contract *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
}

// TableName 表名
func (Payment) TableName() string {
	return "payments"
}
