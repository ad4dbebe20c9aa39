package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
)

// ReferenceService 摊位类别与年费维护
type ReferenceService struct {
	repo         *repository.ReferenceRepository
	contractRepo *repository.ContractRepository
}

// NewReferenceService 创建参考数据服务
func NewReferenceService(repo *repository.ReferenceRepository, contractRepo *repository.ContractRepository) *ReferenceService {
	return &ReferenceService{repo: repo, contractRepo: contractRepo}
}

// CategoryRequest 类别请求
type CategoryRequest struct {
	Name        string          `json:"name" binding:"required"`
	Fee         decimal.Decimal `json:"fee" swaggertype:"string"`
	Description *string         `json:"description" binding:"omitempty,max=255"`
}

// AnnualFeeRequest 年费请求
type AnnualFeeRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
	Label  string          `json:"label" binding:"required,max=100"`
}

// CreateCategory 登记类别，名称必须是枚举成员且未登记
func (s *ReferenceService) CreateCategory(ctx context.Context, req *CategoryRequest) (*models.Category, error) {
	name, err := s.categoryName(ctx, req.Name, 0)
	if err != nil {
		return nil, err
	}
	if req.Fee.IsNegative() {
		return nil, errors.ErrInvalidParams.WithMessage("摊位费不能为负数")
	}
	c := &models.Category{Name: name, Fee: req.Fee.Round(2), Description: req.Description}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return c, nil
}

// GetCategory 获取类别
func (s *ReferenceService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrCategoryNotRegistered)
	}
	return c, nil
}

// UpdateCategory 更新类别
func (s *ReferenceService) UpdateCategory(ctx context.Context, id int64, req *CategoryRequest) (*models.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Name, err = s.categoryName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	if req.Fee.IsNegative() {
		return nil, errors.ErrInvalidParams.WithMessage("摊位费不能为负数")
	}
	c.Fee = req.Fee.Round(2)
	c.Description = req.Description
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return c, nil
}

// DeleteCategory 删除类别，仍被合同引用时拒绝
func (s *ReferenceService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	n, err := s.contractRepo.CountByCategory(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if n > 0 {
		return errors.ErrReferenceInUse
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// ListCategories 类别列表
func (s *ReferenceService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	list, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return list, nil
}

// CreateAnnualFee 登记年费，金额唯一
func (s *ReferenceService) CreateAnnualFee(ctx context.Context, req *AnnualFeeRequest) (*models.AnnualFee, error) {
	amount, err := s.annualFeeAmount(ctx, req.Amount, 0)
	if err != nil {
		return nil, err
	}
	f := &models.AnnualFee{Amount: amount, Label: strings.TrimSpace(req.Label)}
	if err := s.repo.CreateAnnualFee(ctx, f); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return f, nil
}

// GetAnnualFee 获取年费
func (s *ReferenceService) GetAnnualFee(ctx context.Context, id int64) (*models.AnnualFee, error) {
	f, err := s.repo.GetAnnualFeeByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrAnnualFeeNotFound)
	}
	return f, nil
}

// UpdateAnnualFee 更新年费
func (s *ReferenceService) UpdateAnnualFee(ctx context.Context, id int64, req *AnnualFeeRequest) (*models.AnnualFee, error) {
	f, err := s.GetAnnualFee(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Amount, err = s.annualFeeAmount(ctx, req.Amount, id); err != nil {
		return nil, err
	}
	f.Label = strings.TrimSpace(req.Label)
	if err := s.repo.UpdateAnnualFee(ctx, f); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return f, nil
}

// DeleteAnnualFee 删除年费，仍被合同引用时拒绝
func (s *ReferenceService) DeleteAnnualFee(ctx context.Context, id int64) error {
	if _, err := s.GetAnnualFee(ctx, id); err != nil {
		return err
	}
	n, err := s.contractRepo.CountByAnnualFee(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if n > 0 {
		return errors.ErrReferenceInUse
	}
	if err := s.repo.DeleteAnnualFee(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// ListAnnualFees 年费列表，按金额升序
func (s *ReferenceService) ListAnnualFees(ctx context.Context) ([]*models.AnnualFee, error) {
	list, err := s.repo.ListAnnualFees(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return list, nil
}

func (s *ReferenceService) categoryName(ctx context.Context, raw string, selfID int64) (models.CategoryName, error) {
	name := market.NormalizeCategoryName(raw)
	if !name.Valid() {
		return "", errors.ErrInvalidCategoryName
	}
	existing, err := s.repo.FindCategoryByName(ctx, name)
	if err != nil {
		return "", errors.ErrDatabaseError.WithError(err)
	}
	if existing != nil && existing.ID != selfID {
		return "", errors.ErrAlreadyExists.WithMessage("摊位类别已登记")
	}
	return name, nil
}

func (s *ReferenceService) annualFeeAmount(ctx context.Context, amount decimal.Decimal, selfID int64) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, errors.ErrInvalidParams.WithMessage("年费金额必须大于 0")
	}
	amount = amount.Round(2)
	existing, err := s.repo.FindAnnualFeeByAmount(ctx, amount)
	if err != nil {
		return decimal.Zero, errors.ErrDatabaseError.WithError(err)
	}
	if existing != nil && existing.ID != selfID {
		return decimal.Zero, errors.ErrAnnualFeeExists
	}
	return amount, nil
}
