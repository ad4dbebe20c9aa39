package market

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// ReferenceLookup 参考表查询，未找到返回 (nil, nil)
type ReferenceLookup interface {
	FindCategoryByName(ctx context.Context, name models.CategoryName) (*models.Category, error)
	FindAnnualFeeByAmount(ctx context.Context, amount decimal.Decimal) (*models.AnnualFee, error)
}

// NormalizeCategoryName 去除首尾空白、转大写、内部空白替换为下划线
func NormalizeCategoryName(raw string) models.CategoryName {
	return models.CategoryName(strings.Join(strings.Fields(strings.ToUpper(raw)), "_"))
}

// Validator 参考数据校验
type Validator struct {
	lookup ReferenceLookup
}

// NewValidator 创建参考数据校验器
func NewValidator(lookup ReferenceLookup) *Validator {
	return &Validator{lookup: lookup}
}

// Category 校验类别名称并返回参考记录
func (v *Validator) Category(ctx context.Context, raw string) (*models.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &LookupError{Field: "category", Err: apperrors.ErrCategoryMissing}
	}
	name := NormalizeCategoryName(raw)
	if !name.Valid() {
		return nil, &LookupError{Field: "category", Value: raw, Err: apperrors.ErrInvalidCategoryName}
	}

	category, err := v.lookup.FindCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, &LookupError{Field: "category", Value: string(name), Err: apperrors.ErrCategoryNotRegistered}
	}
	return category, nil
}

// AnnualFee 按金额精确匹配年费，amount 为 nil 表示单元格为空
func (v *Validator) AnnualFee(ctx context.Context, amount *decimal.Decimal) (*models.AnnualFee, error) {
	if amount == nil {
		return nil, &LookupError{Field: "annual_fee", Err: apperrors.ErrAnnualFeeMissing}
	}

	fee, err := v.lookup.FindAnnualFeeByAmount(ctx, *amount)
	if err != nil {
		return nil, err
	}
	if fee == nil {
		return nil, &LookupError{Field: "annual_fee", Value: amount.StringFixed(2), Err: apperrors.ErrAnnualFeeNotFound}
	}
	return fee, nil
}
