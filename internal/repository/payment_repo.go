package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// PaymentRepository 缴费仓储
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建缴费仓储
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// preloadPayment 预加载商户及其摊位层级，用于展示摊位名称
func preloadPayment(query *gorm.DB) *gorm.DB {
	query = query.Preload("Merchant").Preload("Merchant.Places", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
	query = preloadPlace(query, "Merchant.Places.")
	return query.Preload("Contract").Preload("Contract.Category")
}

// Create 创建缴费记录
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit("Merchant", "Contract").Create(payment).Error
}

// GetByID 根据 ID 获取缴费记录
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := preloadPayment(r.db.WithContext(ctx)).First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByReceiptNo 根据收据号查找，不存在返回 nil
func (r *PaymentRepository) FindByReceiptNo(ctx context.Context, receiptNo string) (*models.Payment, error) {
	return findOne[models.Payment](r.db.WithContext(ctx).Where("receipt_no = ?", receiptNo))
}

// ListByMerchant 获取商户全部缴费，按 ID 升序
func (r *PaymentRepository) ListByMerchant(ctx context.Context, merchantID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Order("id ASC").Find(&payments).Error
	return payments, err
}

// CountByMerchant 统计商户缴费数
func (r *PaymentRepository) CountByMerchant(ctx context.Context, merchantID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Where("merchant_id = ?", merchantID).Count(&count).Error
	return count, err
}

func applyPaymentFilters(query *gorm.DB, filters map[string]interface{}) *gorm.DB {
	if merchantID, ok := filters["merchant_id"].(int64); ok && merchantID > 0 {
		query = query.Where("merchant_id = ?", merchantID)
	}
	if paymentType, ok := filters["type"].(models.PaymentType); ok && paymentType != "" {
		query = query.Where("type = ?", paymentType)
	}
	if startDate, ok := filters["start_date"].(time.Time); ok {
		query = query.Where("payment_date >= ?", startDate)
	}
	if endDate, ok := filters["end_date"].(time.Time); ok {
		query = query.Where("payment_date < ?", endDate)
	}
	return query
}

// List 获取缴费列表
func (r *PaymentRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Payment, int64, error) {
	var payments []*models.Payment
	var total int64

	query := applyPaymentFilters(r.db.WithContext(ctx).Model(&models.Payment{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := preloadPayment(query).Order("id DESC").Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

// ListForExport 获取导出用缴费列表，最多 limit 条
func (r *PaymentRepository) ListForExport(ctx context.Context, filters map[string]interface{}, limit int) ([]*models.Payment, error) {
	var payments []*models.Payment
	query := applyPaymentFilters(r.db.WithContext(ctx).Model(&models.Payment{}), filters)
	err := preloadPayment(query).Order("payment_date ASC, id ASC").Limit(limit).Find(&payments).Error
	return payments, err
}
