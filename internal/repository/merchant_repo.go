package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// MerchantRepository 商户仓储
type MerchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository 创建商户仓储
func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

// preloadMerchant 预加载读模型所需的摊位层级、合同与缴费，均按 ID 升序
func preloadMerchant(query *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }
	query = query.Preload("Places", byID)
	query = preloadPlace(query, "Places.")
	return query.
		Preload("Contracts", byID).
		Preload("Contracts.Category").
		Preload("Contracts.AnnualFee").
		Preload("Payments", byID)
}

// Create 创建商户
func (r *MerchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

// GetByID 根据 ID 获取商户
func (r *MerchantRepository) GetByID(ctx context.Context, id int64) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).First(&merchant, id).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

// GetDetail 获取商户完整信息（摊位、合同、缴费）
func (r *MerchantRepository) GetDetail(ctx context.Context, id int64) (*models.Merchant, error) {
	var merchant models.Merchant
	err := preloadMerchant(r.db.WithContext(ctx)).First(&merchant, id).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

// FindByNationalID 按身份证号查找商户，不存在返回 nil
func (r *MerchantRepository) FindByNationalID(ctx context.Context, nationalID string) (*models.Merchant, error) {
	return findOne[models.Merchant](r.db.WithContext(ctx).Where("national_id = ?", nationalID))
}

// ExistsByNationalIDExcludeID 检查身份证号是否已被其他商户使用
func (r *MerchantRepository) ExistsByNationalIDExcludeID(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Merchant{}).
		Where("national_id = ? AND id != ?", nationalID, excludeID).
		Count(&count).Error
	return count > 0, err
}

// UpdateFields 更新指定字段
func (r *MerchantRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Merchant{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 删除商户
func (r *MerchantRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Merchant{}, id).Error
}

// List 获取商户列表（包含读模型所需关联）
func (r *MerchantRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Merchant, int64, error) {
	var merchants []*models.Merchant
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Merchant{})

	// 应用过滤条件
	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		like := likePattern(keyword)
		query = query.Where("name LIKE ? OR national_id LIKE ? OR phone LIKE ?", like, like, like)
	}
	if status, ok := filters["status"].(int8); ok {
		query = query.Where("status = ?", status)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 查询列表
	if err := preloadMerchant(query).Order("id DESC").Offset(offset).Limit(limit).Find(&merchants).Error; err != nil {
		return nil, 0, err
	}

	return merchants, total, nil
}
