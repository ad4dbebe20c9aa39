// Package merchant 商户、摊位分配与合同服务
package merchant

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/common/metrics"
	"github.com/dumeirei/market-merchant-backend/internal/common/qrcode"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
)

// MerchantService 商户服务
type MerchantService struct {
	db           *gorm.DB
	merchantRepo *repository.MerchantRepository
	locationRepo *repository.LocationRepository
	contractRepo *repository.ContractRepository
	paymentRepo  *repository.PaymentRepository
	assembler    *market.Assembler
	badges       *qrcode.Generator
	now          func() time.Time
}

// NewMerchantService 创建商户服务
func NewMerchantService(db *gorm.DB, assembler *market.Assembler, badges *qrcode.Generator) *MerchantService {
	if badges == nil {
		badges = qrcode.NewGenerator()
	}
	return &MerchantService{
		db:           db,
		merchantRepo: repository.NewMerchantRepository(db),
		locationRepo: repository.NewLocationRepository(db),
		contractRepo: repository.NewContractRepository(db),
		paymentRepo:  repository.NewPaymentRepository(db),
		assembler:    assembler,
		badges:       badges,
		now:          time.Now,
	}
}

// CreateMerchantRequest 创建商户请求
type CreateMerchantRequest struct {
	Name           string  `json:"name" binding:"required,max=100"`
	NationalID     string  `json:"national_id" binding:"required,max=30"`
	Phone          *string `json:"phone" binding:"omitempty,max=30"`
	SecondaryPhone *string `json:"secondary_phone" binding:"omitempty,max=30"`
	Address        *string `json:"address" binding:"omitempty,max=255"`
}

// UpdateMerchantRequest 更新商户请求，字段为 nil 表示不修改
type UpdateMerchantRequest struct {
	Name           *string `json:"name" binding:"omitempty,max=100"`
	NationalID     *string `json:"national_id" binding:"omitempty,max=30"`
	Phone          *string `json:"phone" binding:"omitempty,max=30"`
	SecondaryPhone *string `json:"secondary_phone" binding:"omitempty,max=30"`
	Address        *string `json:"address" binding:"omitempty,max=255"`
	Status         *int8   `json:"status" binding:"omitempty,oneof=0 1"`
}

// Create 创建商户
func (s *MerchantService) Create(ctx context.Context, req *CreateMerchantRequest) (*market.MerchantDTO, error) {
	name := strings.TrimSpace(req.Name)
	nationalID := strings.TrimSpace(req.NationalID)
	if name == "" || nationalID == "" {
		return nil, errors.ErrInvalidParams.WithMessage("姓名和身份证号不能为空")
	}

	existing, err := s.merchantRepo.FindByNationalID(ctx, nationalID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if existing != nil {
		return nil, errors.ErrNationalIDExists
	}

	merchant := &models.Merchant{
		Name:           name,
		NationalID:     nationalID,
		Phone:          trimmed(req.Phone),
		SecondaryPhone: trimmed(req.SecondaryPhone),
		Address:        trimmed(req.Address),
		Status:         models.MerchantStatusActive,
	}
	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	metrics.GetMetrics().RecordMerchantCreated("api")
	logger.Info("商户已创建", logger.MerchantID(merchant.ID), logger.NationalID(nationalID))

	return s.Get(ctx, merchant.ID)
}

// Get 获取商户详情
func (s *MerchantService) Get(ctx context.Context, id int64) (*market.MerchantDTO, error) {
	merchant, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assembler.Merchant(merchant, false), nil
}

// List 商户列表，身份证号脱敏
func (s *MerchantService) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*market.MerchantDTO, int64, error) {
	merchants, total, err := s.merchantRepo.List(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}

	list := make([]*market.MerchantDTO, 0, len(merchants))
	for _, m := range merchants {
		list = append(list, s.assembler.Merchant(m, true))
	}
	return list, total, nil
}

// Update 更新商户
func (s *MerchantService) Update(ctx context.Context, id int64, req *UpdateMerchantRequest) (*market.MerchantDTO, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.ErrInvalidParams.WithMessage("姓名不能为空")
		}
		fields["name"] = name
	}
	if req.NationalID != nil {
		nationalID := strings.TrimSpace(*req.NationalID)
		if nationalID == "" {
			return nil, errors.ErrInvalidParams.WithMessage("身份证号不能为空")
		}
		exists, err := s.merchantRepo.ExistsByNationalIDExcludeID(ctx, nationalID, id)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if exists {
			return nil, errors.ErrNationalIDExists
		}
		fields["national_id"] = nationalID
	}
	if req.Phone != nil {
		fields["phone"] = trimmed(req.Phone)
	}
	if req.SecondaryPhone != nil {
		fields["secondary_phone"] = trimmed(req.SecondaryPhone)
	}
	if req.Address != nil {
		fields["address"] = trimmed(req.Address)
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}

	if len(fields) > 0 {
		if err := s.merchantRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
	}
	return s.Get(ctx, id)
}

// Delete 删除商户，有合同或缴费记录时拒绝，名下摊位一并释放
func (s *MerchantService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	contracts, err := s.contractRepo.CountByMerchant(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	payments, err := s.paymentRepo.CountByMerchant(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if contracts > 0 || payments > 0 {
		return errors.ErrMerchantHasRecords
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewLocationRepository(tx).ReleaseMerchantPlaces(ctx, id); err != nil {
			return err
		}
		return repository.NewMerchantRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// PaymentSummary 商户应缴汇总
func (s *MerchantService) PaymentSummary(ctx context.Context, id int64) (*market.PaymentSummary, error) {
	merchant, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assembler.Merchant(merchant, false).Summary, nil
}

// AssignPlace 将摊位分配给商户，已属于其他商户时拒绝
func (s *MerchantService) AssignPlace(ctx context.Context, merchantID, placeID int64) (*market.PlaceDTO, error) {
	if _, err := s.get(ctx, merchantID); err != nil {
		return nil, err
	}
	place, err := s.place(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if place.MerchantID != nil && *place.MerchantID != merchantID {
		return nil, errors.ErrPlaceAlreadyAssigned
	}

	if place.MerchantID == nil {
		// 读取与更新之间可能被并发分配，以条件更新结果为准
		claimed, err := s.locationRepo.ClaimPlace(ctx, placeID, merchantID, s.now())
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if !claimed {
			return nil, errors.ErrPlaceAlreadyAssigned
		}
		if place, err = s.place(ctx, placeID); err != nil {
			return nil, err
		}
	}
	dto := s.assembler.Place(place)
	return &dto, nil
}

// ReleasePlace 释放商户名下的摊位
func (s *MerchantService) ReleasePlace(ctx context.Context, merchantID, placeID int64) error {
	place, err := s.place(ctx, placeID)
	if err != nil {
		return err
	}
	if place.MerchantID == nil || *place.MerchantID != merchantID {
		return errors.ErrPlaceNotFound.WithMessage("商户名下没有该摊位")
	}
	if err := s.locationRepo.AssignPlace(ctx, placeID, nil, s.now()); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// Badge 商户卡二维码 PNG
func (s *MerchantService) Badge(ctx context.Context, id int64) ([]byte, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	png, err := s.badges.MerchantBadge(id)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return png, nil
}

func (s *MerchantService) get(ctx context.Context, id int64) (*models.Merchant, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrMerchantNotFound)
	}
	return merchant, nil
}

func (s *MerchantService) detail(ctx context.Context, id int64) (*models.Merchant, error) {
	merchant, err := s.merchantRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrMerchantNotFound)
	}
	return merchant, nil
}

func (s *MerchantService) place(ctx context.Context, id int64) (*models.Place, error) {
	place, err := s.locationRepo.GetPlaceByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrPlaceNotFound)
	}
	return place, nil
}

// notFound 记录不存在时返回业务错误，其余为数据库错误
func notFound(err error, appErr *errors.AppError) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return appErr
	}
	return errors.ErrDatabaseError.WithError(err)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
