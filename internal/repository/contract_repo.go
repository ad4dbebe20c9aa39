package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// ContractRepository 合同仓储
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository 创建合同仓储
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func preloadContract(query *gorm.DB) *gorm.DB {
	query = query.Preload("Category").Preload("AnnualFee").Preload("Place")
	return preloadPlace(query, "Place.")
}

// Create 创建合同
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Omit("Merchant", "Category", "AnnualFee", "Place").Create(contract).Error
}

// GetByID 根据 ID 获取合同
func (r *ContractRepository) GetByID(ctx context.Context, id int64) (*models.Contract, error) {
	var contract models.Contract
	if err := preloadContract(r.db.WithContext(ctx)).First(&contract, id).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetActiveByMerchant 获取商户当前生效合同（最近新增），没有合同返回 nil
func (r *ContractRepository) GetActiveByMerchant(ctx context.Context, merchantID int64) (*models.Contract, error) {
	return findOne[models.Contract](preloadContract(r.db.WithContext(ctx)).
		Where("merchant_id = ?", merchantID).
		Order("id DESC"))
}

// ListByMerchant 获取商户全部合同，按新增顺序
func (r *ContractRepository) ListByMerchant(ctx context.Context, merchantID int64) ([]*models.Contract, error) {
	var contracts []*models.Contract
	err := preloadContract(r.db.WithContext(ctx)).
		Where("merchant_id = ?", merchantID).
		Order("id ASC").
		Find(&contracts).Error
	return contracts, err
}

// CountByMerchant 统计商户合同数
func (r *ContractRepository) CountByMerchant(ctx context.Context, merchantID int64) (int64, error) {
	return r.count(ctx, "merchant_id", merchantID)
}

// CountByCategory 统计引用类别的合同数
func (r *ContractRepository) CountByCategory(ctx context.Context, categoryID int64) (int64, error) {
	return r.count(ctx, "category_id", categoryID)
}

// CountByAnnualFee 统计引用年费的合同数
func (r *ContractRepository) CountByAnnualFee(ctx context.Context, annualFeeID int64) (int64, error) {
	return r.count(ctx, "annual_fee_id", annualFeeID)
}

func (r *ContractRepository) count(ctx context.Context, column string, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Contract{}).Where(column+" = ?", id).Count(&count).Error
	return count, err
}
