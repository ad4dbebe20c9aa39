package models

import (
	"time"
)

// Marchee 市场（位置层级的顶层）
type Marchee struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Address   *string   `gorm:"type:varchar(255)" json:"address,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Marchee) TableName() string {
	return "marchees"
}

// Zone 区域，可直接隶属于市场
type Zone struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	MarcheeID *int64    `gorm:"index" json:"marchee_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Marchee *Marchee `gorm:"foreignKey:MarcheeID" json:"marchee,omitempty"`
}

// TableName 表名
func (Zone) TableName() string {
	return "zones"
}

// Hall 展厅，可隶属于区域或直接隶属于市场
type Hall struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	ZoneID    *int64    `gorm:"index" json:"zone_id,omitempty"`
	MarcheeID *int64    `gorm:"index" json:"marchee_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Zone    *Zone    `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
	Marchee *Marchee `gorm:"foreignKey:MarcheeID" json:"marchee,omitempty"`
}

// TableName 表名
func (Hall) TableName() string {
	return "halls"
}

// Place 摊位，直接隶属于展厅、区域或市场之一
type Place struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string     `gorm:"type:varchar(100);not null;index" json:"name"`
	HallID     *int64     `gorm:"index" json:"hall_id,omitempty"`
	ZoneID     *int64     `gorm:"index" json:"zone_id,omitempty"`
	MarcheeID  *int64     `gorm:"index" json:"marchee_id,omitempty"`
	MerchantID *int64     `gorm:"index" json:"merchant_id,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Hall     *Hall     `gorm:"foreignKey:HallID" json:"hall,omitempty"`
	Zone     *Zone     `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
	Marchee  *Marchee  `gorm:"foreignKey:MarcheeID" json:"marchee,omitempty"`
	Merchant *Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
}

// TableName 表名
func (Place) TableName() string {
	return "places"
}

// PlacePreloads 计算完整位置名称所需的预加载路径
var PlacePreloads = []string{
	"Hall",
	"Hall.Zone",
	"Hall.Zone.Marchee",
	"Hall.Marchee",
	"Zone",
	"Zone.Marchee",
	"Marchee",
}
