package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// ReferenceRepository 摊位类别与年费参考表仓储
type ReferenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository 创建参考表仓储
func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// CreateCategory 创建类别
func (r *ReferenceRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// GetCategoryByID 根据 ID 获取类别
func (r *ReferenceRepository) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCategoryByName 按枚举名称查找类别，不存在返回 nil
func (r *ReferenceRepository) FindCategoryByName(ctx context.Context, name models.CategoryName) (*models.Category, error) {
	return findOne[models.Category](r.db.WithContext(ctx).Where("name = ?", name))
}

// UpdateCategory 更新类别
func (r *ReferenceRepository) UpdateCategory(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// DeleteCategory 删除类别
func (r *ReferenceRepository) DeleteCategory(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Category{}, id).Error
}

// ListCategories 获取全部类别
func (r *ReferenceRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var list []*models.Category
	err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

// CreateAnnualFee 创建年费
func (r *ReferenceRepository) CreateAnnualFee(ctx context.Context, f *models.AnnualFee) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// GetAnnualFeeByID 根据 ID 获取年费
func (r *ReferenceRepository) GetAnnualFeeByID(ctx context.Context, id int64) (*models.AnnualFee, error) {
	var f models.AnnualFee
	if err := r.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// FindAnnualFeeByAmount 按金额精确查找年费，不存在返回 nil
func (r *ReferenceRepository) FindAnnualFeeByAmount(ctx context.Context, amount decimal.Decimal) (*models.AnnualFee, error) {
	return findOne[models.AnnualFee](r.db.WithContext(ctx).Where("amount = ?", amount))
}

// UpdateAnnualFee 更新年费
func (r *ReferenceRepository) UpdateAnnualFee(ctx context.Context, f *models.AnnualFee) error {
	return r.db.WithContext(ctx).Save(f).Error
}

// DeleteAnnualFee 删除年费
func (r *ReferenceRepository) DeleteAnnualFee(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.AnnualFee{}, id).Error
}

// ListAnnualFees 获取全部年费
func (r *ReferenceRepository) ListAnnualFees(ctx context.Context) ([]*models.AnnualFee, error) {
	var list []*models.AnnualFee
	err := r.db.WithContext(ctx).Order("amount ASC").Find(&list).Error
	return list, err
}
