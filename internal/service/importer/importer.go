// Package importer 商户表格批量导入
package importer

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/common/cache"
	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/common/metrics"
	"github.com/dumeirei/market-merchant-backend/internal/common/tracing"
	"github.com/dumeirei/market-merchant-backend/internal/common/utils"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
	"github.com/dumeirei/market-merchant-backend/internal/service/merchant"
)

// 导入参数
const (
	DefaultMaxRows = 5000
	lockName       = "merchant-import"
	lockTTL        = 10 * time.Minute
)

// Config 导入配置
type Config struct {
	MaxRows int
	// Sheet 默认工作表，为空时取第一个
	Sheet string
}

// Options 单次导入选项
type Options struct {
	Sheet string
	// DryRun 只解析不写库
	DryRun bool
}

// Importer 表格导入服务
type Importer struct {
	db      *gorm.DB
	redis   *redis.Client
	maxRows int
	sheet   string
	now     func() time.Time
}

// NewImporter 创建导入服务，rdb 为 nil 时不加分布式锁
func NewImporter(db *gorm.DB, rdb *redis.Client, cfg Config) *Importer {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	return &Importer{
		db:      db,
		redis:   rdb,
		maxRows: cfg.MaxRows,
		sheet:   cfg.Sheet,
		now:     time.Now,
	}
}

// Import 逐行导入商户
// 每行在独立事务中完成，定位或参考数据校验失败只记录警告，商户照常创建但不生成合同
func (i *Importer) Import(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	started := time.Now()
	report := &Report{ID: uuid.NewString(), DryRun: opts.DryRun, Messages: []Message{}}

	ctx, span := tracing.Start(ctx, "importer.Import", tracing.WithImportID(report.ID))
	defer span.End()

	if i.redis != nil && !opts.DryRun {
		lock, err := cache.Acquire(ctx, i.redis, lockName, lockTTL)
		if err != nil {
			if stderrors.Is(err, cache.ErrLockHeld) {
				return nil, errors.ErrImportInProgress
			}
			return nil, errors.ErrCacheError.WithError(err)
		}
		defer lock.Release(context.Background())
	}

	sheet, rows, err := i.readSheet(r, opts.Sheet)
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}
	report.Sheet = sheet

	for idx, cells := range rows {
		number := idx + 1
		if number <= headerRows || blank(cells) {
			continue
		}
		report.Total++

		row, err := extract(cells, number)
		if err == nil {
			err = required(row)
		}
		if err != nil {
			i.reject(report, number, err)
			continue
		}
		if opts.DryRun {
			report.Rows = append(report.Rows, row)
			continue
		}
		i.importRow(ctx, report, row)
	}

	elapsed := time.Since(started)
	report.Duration = elapsed.String()
	if !opts.DryRun {
		metrics.GetMetrics().ObserveImport(elapsed)
	}
	logger.Info("商户导入完成",
		logger.String("import_id", report.ID),
		logger.String("sheet", report.Sheet),
		logger.Bool("dry_run", report.DryRun),
		logger.Int("total", report.Total),
		logger.Int("merchants", report.Merchants),
		logger.Int("contracts", report.Contracts),
		logger.Int("rejected", report.Rejected),
		logger.Duration("elapsed", elapsed),
	)
	return report, nil
}

// readSheet 打开工作簿并读取工作表的全部行
func (i *Importer) readSheet(r io.Reader, sheet string) (string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", nil, errors.ErrImportFileInvalid.WithError(err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = i.sheet
	}
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return "", nil, errors.ErrImportSheetMissing
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return "", nil, errors.ErrImportSheetMissing.WithMessage(fmt.Sprintf("工作表 %q 不存在", sheet))
	}

	// 原始值：日期为序列号，数字不带千分位
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", nil, errors.ErrImportFileInvalid.WithError(err)
	}

	count := 0
	for idx, cells := range rows {
		if idx >= headerRows && !blank(cells) {
			count++
		}
	}
	if count > i.maxRows {
		return "", nil, errors.ErrImportTooManyRows.WithMessage(fmt.Sprintf("数据行 %d 超出上限 %d", count, i.maxRows))
	}
	return sheet, rows, nil
}

func required(row *Row) error {
	if row.Name == "" {
		return &market.LookupError{Field: "name", Err: errors.ErrInvalidParams.WithMessage("商户名称为空")}
	}
	if row.NationalID == "" {
		return &market.LookupError{Field: "national_id", Err: errors.ErrInvalidParams.WithMessage("身份证号为空")}
	}
	return nil
}

// importRow 导入一行：创建商户，定位摊位并校验参考数据，全部通过时分配摊位并创建合同
func (i *Importer) importRow(ctx context.Context, report *Report, row *Row) {
	ctx, span := tracing.Start(ctx, "importer.Row", tracing.WithImportID(report.ID), tracing.WithImportRow(row.Number))
	defer span.End()

	var warnings []error
	var contracted bool
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		warnings, contracted = nil, false

		merchants := repository.NewMerchantRepository(tx)
		existing, err := merchants.FindByNationalID(ctx, row.NationalID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &market.LookupError{Field: "national_id", Value: row.NationalID, Err: errors.ErrNationalIDExists}
		}

		m := &models.Merchant{
			Name:           row.Name,
			NationalID:     row.NationalID,
			Phone:          utils.NilIfEmpty(row.Phone),
			SecondaryPhone: utils.NilIfEmpty(row.SecondaryPhone),
			Address:        utils.NilIfEmpty(row.Address),
			Status:         models.MerchantStatusActive,
		}
		if err := merchants.Create(ctx, m); err != nil {
			return err
		}

		contract, warns, err := i.buildContract(ctx, tx, m.ID, row)
		if err != nil {
			return err
		}
		warnings = warns
		if contract == nil {
			return nil
		}

		if contract.PlaceID != nil {
			claimed, err := repository.NewLocationRepository(tx).ClaimPlace(ctx, *contract.PlaceID, m.ID, i.now())
			if err != nil {
				return err
			}
			if !claimed {
				warnings = append(warnings, &market.LookupError{Field: "place", Value: row.Place, Err: errors.ErrPlaceAlreadyAssigned})
				return nil
			}
		}
		if err := repository.NewContractRepository(tx).Create(ctx, contract); err != nil {
			return err
		}
		contracted = true
		return nil
	})

	if err != nil {
		tracing.SetError(ctx, err)
		i.reject(report, row.Number, err)
		return
	}

	report.Merchants++
	metrics.GetMetrics().RecordMerchantCreated("import")
	if contracted {
		report.Contracts++
	}
	if len(warnings) == 0 {
		metrics.GetMetrics().RecordImportRow(metrics.ImportRowCreated)
		return
	}

	metrics.GetMetrics().RecordImportRow(metrics.ImportRowWarning)
	for _, w := range warnings {
		msg := messageOf(row.Number, LevelWarning, w)
		report.Messages = append(report.Messages, msg)
		tracing.AddEvent(ctx, "row.warning", tracing.WithImportRow(row.Number))
		logger.Warn("导入行警告",
			logger.Row(row.Number),
			logger.String("field", msg.Field),
			logger.String("value", msg.Value),
			logger.String("reason", msg.Message),
		)
	}
}

// buildContract 解析一行的合同数据
// 业务校验失败作为警告返回，合同为 nil；存储错误直接返回
func (i *Importer) buildContract(ctx context.Context, tx *gorm.DB, merchantID int64, row *Row) (*models.Contract, []error, error) {
	var warnings []error
	warn := func(err error) error {
		var lookupErr *market.LookupError
		if stderrors.As(err, &lookupErr) {
			warnings = append(warnings, err)
			return nil
		}
		return err
	}

	place, err := market.NewResolver(repository.NewLocationRepository(tx)).Resolve(ctx, market.LocationQuery{
		Place:   row.Place,
		Hall:    row.Hall,
		Zone:    row.Zone,
		Marchee: row.Marchee,
	})
	if err != nil {
		if err := warn(err); err != nil {
			return nil, nil, err
		}
	} else if place.MerchantID != nil && *place.MerchantID != merchantID {
		warnings = append(warnings, &market.LookupError{Field: "place", Value: place.Name, Err: errors.ErrPlaceAlreadyAssigned})
	}

	validator := market.NewValidator(repository.NewReferenceRepository(tx))
	category, err := validator.Category(ctx, row.Category)
	if err != nil {
		if err := warn(err); err != nil {
			return nil, nil, err
		}
	}
	fee, err := validator.AnnualFee(ctx, row.AnnualFee)
	if err != nil {
		if err := warn(err); err != nil {
			return nil, nil, err
		}
	}
	frequency, err := merchant.ParseFrequency(row.Frequency)
	if err != nil {
		warnings = append(warnings, &market.LookupError{Field: "frequency", Value: row.Frequency, Err: errors.ErrInvalidFrequency})
	}

	if len(warnings) > 0 {
		return nil, warnings, nil
	}
	return &models.Contract{
		MerchantID:  merchantID,
		CategoryID:  category.ID,
		AnnualFeeID: fee.ID,
		PlaceID:     &place.ID,
		Frequency:   frequency,
		StartDate:   row.StartDate,
	}, nil, nil
}

// reject 记录被拒绝的行
func (i *Importer) reject(report *Report, number int, err error) {
	report.Rejected++
	msg := messageOf(number, LevelError, err)
	report.Messages = append(report.Messages, msg)
	if !report.DryRun {
		metrics.GetMetrics().RecordImportRow(metrics.ImportRowRejected)
	}
	logger.Warn("导入行被拒绝",
		logger.Row(number),
		logger.String("field", msg.Field),
		logger.String("value", msg.Value),
		logger.Err(err),
	)
}

// Template 生成空白导入模板
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for idx, header := range Headers {
		f.SetCellValue(sheet, cellName(idx+1, 1), header)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		f.SetCellStyle(sheet, "A1", cellName(len(Headers), 1), style)
	}
	f.SetColWidth(sheet, "A", "M", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.ErrExportFailed.WithError(err)
	}
	return buf.Bytes(), nil
}
