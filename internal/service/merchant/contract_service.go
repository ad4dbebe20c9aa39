package merchant

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/common/utils"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
)

// ContractService 合同服务
type ContractService struct {
	db            *gorm.DB
	merchantRepo  *repository.MerchantRepository
	contractRepo  *repository.ContractRepository
	referenceRepo *repository.ReferenceRepository
	locationRepo  *repository.LocationRepository
	assembler     *market.Assembler
	now           func() time.Time
}

// NewContractService 创建合同服务
func NewContractService(db *gorm.DB, assembler *market.Assembler) *ContractService {
	return &ContractService{
		db:            db,
		merchantRepo:  repository.NewMerchantRepository(db),
		contractRepo:  repository.NewContractRepository(db),
		referenceRepo: repository.NewReferenceRepository(db),
		locationRepo:  repository.NewLocationRepository(db),
		assembler:     assembler,
		now:           time.Now,
	}
}

// CreateContractRequest 新建合同请求
type CreateContractRequest struct {
	CategoryID  int64  `json:"category_id" binding:"required"`
	AnnualFeeID int64  `json:"annual_fee_id" binding:"required"`
	PlaceID     *int64 `json:"place_id"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"start_date"`
}

// ParseFrequency 解析缴费频率，空串表示未设置
func ParseFrequency(raw string) (*models.Frequency, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}
	f := models.Frequency(raw)
	if !f.Valid() {
		return nil, errors.ErrInvalidFrequency
	}
	return &f, nil
}

// Create 为商户新建合同，新合同即为生效合同
// 指定摊位时该摊位必须空闲或已属于该商户，并随合同一起分配
func (s *ContractService) Create(ctx context.Context, merchantID int64, req *CreateContractRequest) (*market.ContractDTO, error) {
	if _, err := s.merchantRepo.GetByID(ctx, merchantID); err != nil {
		return nil, notFound(err, errors.ErrMerchantNotFound)
	}
	if _, err := s.referenceRepo.GetCategoryByID(ctx, req.CategoryID); err != nil {
		return nil, notFound(err, errors.ErrCategoryNotRegistered)
	}
	if _, err := s.referenceRepo.GetAnnualFeeByID(ctx, req.AnnualFeeID); err != nil {
		return nil, notFound(err, errors.ErrAnnualFeeNotFound)
	}

	frequency, err := ParseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}

	contract := &models.Contract{
		MerchantID:  merchantID,
		CategoryID:  req.CategoryID,
		AnnualFeeID: req.AnnualFeeID,
		PlaceID:     req.PlaceID,
		Frequency:   frequency,
	}
	if req.StartDate != "" {
		start, err := utils.ParseDate(req.StartDate)
		if err != nil {
			return nil, errors.ErrInvalidParams.WithMessage("开始日期格式错误")
		}
		contract.StartDate = &start
	}

	if req.PlaceID != nil {
		place, err := s.locationRepo.GetPlaceByID(ctx, *req.PlaceID)
		if err != nil {
			return nil, notFound(err, errors.ErrPlaceNotFound)
		}
		if place.MerchantID != nil && *place.MerchantID != merchantID {
			return nil, errors.ErrPlaceAlreadyAssigned
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewContractRepository(tx).Create(ctx, contract); err != nil {
			return err
		}
		if req.PlaceID == nil {
			return nil
		}
		claimed, err := repository.NewLocationRepository(tx).ClaimPlace(ctx, *req.PlaceID, merchantID, s.now())
		if err != nil {
			return err
		}
		if !claimed {
			return errors.ErrPlaceAlreadyAssigned
		}
		return nil
	})
	if stderrors.Is(err, errors.ErrPlaceAlreadyAssigned) {
		return nil, errors.ErrPlaceAlreadyAssigned
	}
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	logger.Info("合同已创建", logger.MerchantID(merchantID), logger.ContractID(contract.ID))

	created, err := s.contractRepo.GetByID(ctx, contract.ID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.assembler.Contract(created), nil
}

// ListByMerchant 商户全部合同，按新增顺序，最后一项为生效合同
func (s *ContractService) ListByMerchant(ctx context.Context, merchantID int64) ([]*market.ContractDTO, error) {
	if _, err := s.merchantRepo.GetByID(ctx, merchantID); err != nil {
		return nil, notFound(err, errors.ErrMerchantNotFound)
	}
	contracts, err := s.contractRepo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]*market.ContractDTO, 0, len(contracts))
	for _, c := range contracts {
		list = append(list, s.assembler.Contract(c))
	}
	return list, nil
}
