// Package payment 缴费登记、查询、导出与收据
package payment

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/common/metrics"
	"github.com/dumeirei/market-merchant-backend/internal/common/tracing"
	"github.com/dumeirei/market-merchant-backend/internal/common/utils"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
)

// ReceiptPrefix 收据号前缀
const ReceiptPrefix = "REC"

// PaymentService 缴费服务
type PaymentService struct {
	db          *gorm.DB
	paymentRepo *repository.PaymentRepository
	calc        *market.Calculator
	assembler   *market.Assembler
	currency    string
	now         func() time.Time
}

// NewPaymentService 创建缴费服务
func NewPaymentService(db *gorm.DB, calc *market.Calculator, currency string) *PaymentService {
	return &PaymentService{
		db:          db,
		paymentRepo: repository.NewPaymentRepository(db),
		calc:        calc,
		assembler:   market.NewAssembler(calc),
		currency:    currency,
		now:         time.Now,
	}
}

// RecordPaymentRequest 登记缴费请求，金额与事由由系统计算
type RecordPaymentRequest struct {
	Type        string `json:"type" binding:"required"`
	PaymentDate string `json:"payment_date"`
}

// ParsePaymentType 解析缴费类型，接受 annual / stall 简写
func ParsePaymentType(raw string) (models.PaymentType, error) {
	switch t := models.PaymentType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case models.PaymentTypeAnnualFee, "ANNUAL":
		return models.PaymentTypeAnnualFee, nil
	case models.PaymentTypeStallFee, "STALL":
		return models.PaymentTypeStallFee, nil
	}
	return "", errors.ErrInvalidPaymentType
}

// Record 为商户生效合同登记下一笔年费或摊位费
// 在事务内读取缴费历史并写入，期次与年份同时保存为结构化字段
func (s *PaymentService) Record(ctx context.Context, adminID, merchantID int64, req *RecordPaymentRequest) (*market.PaymentDTO, error) {
	feeType, err := ParsePaymentType(req.Type)
	if err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "payment.Record",
		tracing.WithAdminID(adminID), tracing.WithMerchantID(merchantID), tracing.WithFeeType(string(feeType)))
	defer span.End()

	now := s.now()
	paidAt := now
	if req.PaymentDate != "" {
		if paidAt, err = utils.ParseDate(req.PaymentDate); err != nil {
			return nil, errors.ErrInvalidParams.WithMessage("缴费日期格式错误")
		}
	}

	var payment *models.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		merchant, err := repository.NewMerchantRepository(tx).GetDetail(ctx, merchantID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrMerchantNotFound
			}
			return err
		}
		contract := merchant.ActiveContract()
		if contract == nil {
			return errors.ErrNoActiveContract
		}

		motif, err := s.calc.Compute(contract, merchant.Payments, feeType, now)
		if err != nil {
			return err
		}
		if feeType == models.PaymentTypeStallFee && motif.PeriodStart == nil {
			return errors.ErrFrequencyUndefined
		}

		payment = &models.Payment{
			ReceiptNo:    utils.GenerateReceiptNo(ReceiptPrefix, now),
			MerchantID:   merchant.ID,
			ContractID:   contract.ID,
			Type:         feeType,
			Amount:       motif.Amount,
			PaymentDate:  &paidAt,
			PeriodStart:  motif.PeriodStart,
			PeriodEnd:    motif.PeriodEnd,
			Motif:        motif.Label,
			PeriodIndex:  motif.PeriodIndex(),
			PeriodNumber: motif.PeriodNumber,
			FeeYear:      motif.Year,
			RecordedBy:   &adminID,
		}
		return repository.NewPaymentRepository(tx).Create(ctx, payment)
	})
	if err != nil {
		tracing.SetError(ctx, err)
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordPayment(string(feeType))
	logger.Info("缴费已登记",
		logger.AdminID(adminID),
		logger.MerchantID(merchantID),
		logger.ContractID(payment.ContractID),
		logger.String("receipt_no", payment.ReceiptNo),
		logger.String("motif", payment.Motif),
	)
	return s.Get(ctx, payment.ID)
}

// Get 获取缴费记录
func (s *PaymentService) Get(ctx context.Context, id int64) (*market.PaymentDTO, error) {
	p, err := s.payment(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assembler.Payment(p), nil
}

// List 缴费列表
func (s *PaymentService) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*market.PaymentDTO, int64, error) {
	payments, total, err := s.paymentRepo.List(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]*market.PaymentDTO, 0, len(payments))
	for _, p := range payments {
		list = append(list, s.assembler.Payment(p))
	}
	return list, total, nil
}

func (s *PaymentService) payment(ctx context.Context, id int64) (*models.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return p, nil
}
