package models

import (
	"time"
)

// Merchant 商户
type Merchant struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"type:varchar(100);not null;index" json:"name"`
	NationalID     string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"national_id"`
	Phone          *string   `gorm:"type:varchar(30)" json:"phone,omitempty"`
	SecondaryPhone *string   `gorm:"type:varchar(30)" json:"secondary_phone,omitempty"`
	Address        *string   `gorm:"type:varchar(255)" json:"address,omitempty"`
	PhotoURL       *string   `gorm:"type:varchar(500)" json:"photo_url,omitempty"`
	Status         int8      `gorm:"type:smallint;not null;default:1" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联，按 ID 升序加载
	Places    []Place    `gorm:"foreignKey:MerchantID" json:"places,omitempty"`
	Contracts []Contract `gorm:"foreignKey:MerchantID" json:"contracts,omitempty"`
	Payments  []Payment  `gorm:"foreignKey:MerchantID" json:"payments,omitempty"`
}

// TableName 表名
func (Merchant) TableName() string {
	return "merchants"
}

// MerchantStatus 商户状态
const (
	MerchantStatusDisabled = 0 // 禁用
	MerchantStatusActive   = 1 // 正常
)

// ActiveContract 最近新增（ID 最大）的合同，没有合同时返回 nil
func (m *Merchant) ActiveContract() *Contract {
	var active *Contract
	for i := range m.Contracts {
		if active == nil || m.Contracts[i].ID > active.ID {
			active = &m.Contracts[i]
		}
	}
	return active
}

// LatestPlace 最近分配（AssignedAt 最晚）的摊位，同一时间或无分配时间时取 ID 最大者
func (m *Merchant) LatestPlace() *Place {
	var latest *Place
	for i := range m.Places {
		if latest == nil || assignedLater(&m.Places[i], latest) {
			latest = &m.Places[i]
		}
	}
	return latest
}

// assignedLater a 是否比 b 更晚分配，有分配时间者优先
func assignedLater(a, b *Place) bool {
	switch {
	case a.AssignedAt != nil && b.AssignedAt == nil:
		return true
	case a.AssignedAt == nil && b.AssignedAt != nil:
		return false
	case a.AssignedAt != nil && !a.AssignedAt.Equal(*b.AssignedAt):
		return a.AssignedAt.After(*b.AssignedAt)
	}
	return a.ID > b.ID
}
