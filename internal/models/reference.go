package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryName 摊位类别枚举
type CategoryName string

// 摊位类别
const (
	CategoryVIP     CategoryName = "VIP"
	CategoryClasseA CategoryName = "CLASSE_A"
	CategoryClasseB CategoryName = "CLASSE_B"
	CategoryClasseC CategoryName = "CLASSE_C"
)

// CategoryNames 全部合法的类别名称
var CategoryNames = []CategoryName{CategoryVIP, CategoryClasseA, CategoryClasseB, CategoryClasseC}

// Valid 是否为枚举成员
func (n CategoryName) Valid() bool {
	for _, c := range CategoryNames {
		if c == n {
			return true
		}
	}
	return false
}

// Category 摊位类别及其摊位费
type Category struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        CategoryName    `gorm:"type:varchar(20);uniqueIndex;not null" json:"name"`
	Fee         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"fee"`
	Description *string         `gorm:"type:varchar(255)" json:"description,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Category) TableName() string {
	return "categories"
}

// AnnualFee 年费（按金额唯一匹配）
type AnnualFee struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);uniqueIndex;not null" json:"amount"`
	Label     string          `gorm:"type:varchar(100);not null" json:"label"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (AnnualFee) TableName() string {
	return "annual_fees"
}
