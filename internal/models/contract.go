package models

import (
	"time"
)

// Frequency 摊位费缴费频率
type Frequency string

// 缴费频率
const (
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyDaily   Frequency = "DAILY"
)

// Valid 是否为合法频率，空值表示未设置
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyWeekly, FrequencyDaily:
		return true
	}
	return false
}

// Contract 商户合同
type Contract struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MerchantID  int64      `gorm:"index;not null" json:"merchant_id"`
	CategoryID  int64      `gorm:"index;not null" json:"category_id"`
	AnnualFeeID int64      `gorm:"index;not null" json:"annual_fee_id"`
	PlaceID     *int64     `gorm:"index" json:"place_id,omitempty"`
	Frequency   *Frequency `gorm:"type:varchar(10)" json:"frequency,omitempty"`
	StartDate   *time.Time `gorm:"type:date" json:"start_date,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Merchant  *Merchant  `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
	Category  *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	AnnualFee *AnnualFee `gorm:"foreignKey:AnnualFeeID" json:"annual_fee,omitempty"`
	Place     *Place     `gorm:"foreignKey:PlaceID" json:"place,omitempty"`
}

// TableName 表名
func (Contract) TableName() string {
	return "contracts"
}

// FrequencyValue 频率值，未设置时为空字符串
func (c *Contract) FrequencyValue() Frequency {
	if c.Frequency == nil {
		return ""
	}
	return *c.Frequency
}
