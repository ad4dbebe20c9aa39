package importer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/market-merchant-backend/internal/common/cache"
	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// seedReferences Marché Central / Zone Nord / Hall 1 下的摊位 A1、A2，VIP 类别与 150 年费
func seedReferences(t *testing.T, db *gorm.DB) {
	t.Helper()
	marchee := &models.Marchee{Name: "Marché Central"}
	require.NoError(t, db.Create(marchee).Error)
	zone := &models.Zone{Name: "Zone Nord", MarcheeID: &marchee.ID}
	require.NoError(t, db.Create(zone).Error)
	hall := &models.Hall{Name: "Hall 1", ZoneID: &zone.ID}
	require.NoError(t, db.Create(hall).Error)
	for _, name := range []string{"A1", "A2"} {
		require.NoError(t, db.Create(&models.Place{Name: name, HallID: &hall.ID}).Error)
	}
	require.NoError(t, db.Create(&models.Place{Name: "Z9", ZoneID: &zone.ID}).Error)
	require.NoError(t, db.Create(&models.Category{Name: models.CategoryVIP, Fee: decimal.NewFromInt(300)}).Error)
	require.NoError(t, db.Create(&models.AnnualFee{Amount: decimal.NewFromInt(150), Label: "Standard"}).Error)
}

// workbook 生成带表头的工作簿
func workbook(t *testing.T, sheet string, rows ...[]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "" {
		require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	} else {
		sheet = f.GetSheetName(0)
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		if row == nil {
			continue
		}
		require.NoError(t, f.SetSheetRow(sheet, cellName(1, i+2), &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func newImporter(db *gorm.DB, rdb *redis.Client) *Importer {
	imp := NewImporter(db, rdb, Config{MaxRows: 10})
	imp.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	return imp
}

func TestImporter_BadHallAndGoodRow(t *testing.T) {
	db := setupTestDB(t)
	seedReferences(t, db)
	ctx := context.Background()

	report, err := newImporter(db, nil).Import(ctx, workbook(t, "",
		[]interface{}{"Awa Diop", "N1", "770000000", "", "Dakar", "A1", "Hall 404", "", "", "vip", "150", "MONTHLY", "2026-01-01"},
		[]interface{}{"Moussa Ba", "N2", "", "", "", "A2", "Hall 1", "Zone Nord", "", " VIP ", "150.00", "weekly", "01/02/2026"},
	), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Merchants)
	assert.Equal(t, 1, report.Contracts)
	assert.Equal(t, 0, report.Rejected)
	require.Len(t, report.Messages, 1)

	msg := report.Messages[0]
	assert.Equal(t, 2, msg.Row)
	assert.Equal(t, "hall", msg.Field)
	assert.Equal(t, "Hall 404", msg.Value)
	assert.Equal(t, LevelWarning, msg.Level)
	assert.Equal(t, errors.ErrHallNotFound.Code, msg.Code)
	assert.Contains(t, msg.String(), "row 2")

	var merchants int64
	db.Model(&models.Merchant{}).Count(&merchants)
	assert.Equal(t, int64(2), merchants)

	var contract models.Contract
	require.NoError(t, db.First(&contract).Error)
	require.NotNil(t, contract.Frequency)
	assert.Equal(t, models.FrequencyWeekly, *contract.Frequency)
	require.NotNil(t, contract.StartDate)
	assert.Equal(t, time.February, contract.StartDate.Month())

	var place models.Place
	require.NoError(t, db.Where("name = ?", "A2").First(&place).Error)
	require.NotNil(t, place.MerchantID)
	assert.Equal(t, contract.MerchantID, *place.MerchantID)
}

func TestImporter_RowWarningsAccumulate(t *testing.T) {
	db := setupTestDB(t)
	seedReferences(t, db)
	ctx := context.Background()

	report, err := newImporter(db, nil).Import(ctx, workbook(t, "",
		[]interface{}{"Awa", "N1", "", "", "", "Z9", "", "Zone Nord", "", "PREMIUM", "99", "MONTHLY"},
		[]interface{}{"Moussa", "N2", "", "", "", "A1"},
		[]interface{}{"Fatou", "N3", "", "", "", "X1", "", "", "Marché Central", "CLASSE A", "150", "YEARLY"},
	), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Merchants)
	assert.Equal(t, 0, report.Contracts)

	fields := map[int][]string{}
	for _, m := range report.Messages {
		assert.Equal(t, LevelWarning, m.Level)
		fields[m.Row] = append(fields[m.Row], m.Field)
	}
	// 区域内的摊位可以定位，但类别与年费无效
	assert.Equal(t, []string{"category", "annual_fee"}, fields[2])
	assert.Equal(t, []string{"place", "category", "annual_fee"}, fields[3])
	assert.Equal(t, []string{"place", "category", "frequency"}, fields[4])
	assert.Equal(t, 8, report.Warnings())
}

func TestImporter_RejectedRows(t *testing.T) {
	db := setupTestDB(t)
	seedReferences(t, db)
	require.NoError(t, db.Create(&models.Merchant{Name: "Existing", NationalID: "N0", Status: models.MerchantStatusActive}).Error)
	ctx := context.Background()

	report, err := newImporter(db, nil).Import(ctx, workbook(t, "Merchants",
		[]interface{}{"Awa", "N1", "", "", "", "A1", "Hall 1", "", "", "VIP", "abc"},
		nil,
		[]interface{}{"Moussa", "N0", "", "", "", "A1", "Hall 1", "", "", "VIP", "150"},
		[]interface{}{"", "N3"},
		[]interface{}{"Fatou", "N4", "", "", "", "A1", "Hall 1", "", "", "VIP", "150", "DAILY", "not a date"},
		[]interface{}{"Binta", "N5", "", "", "", "A1", "Hall 1", "", "", "VIP", "150", "DAILY", "2026-01-01"},
	), Options{Sheet: "Merchants"})
	require.NoError(t, err)

	assert.Equal(t, "Merchants", report.Sheet)
	assert.Equal(t, 5, report.Total, "空行不计入")
	assert.Equal(t, 4, report.Rejected)
	assert.Equal(t, 1, report.Merchants)
	assert.Equal(t, 1, report.Contracts)

	require.Len(t, report.Messages, 4)
	assert.Equal(t, Message{Row: 2, Field: "annual_fee", Value: "abc", Level: LevelError,
		Code: errors.ErrInvalidCellValue.Code, Message: "K2: " + errors.ErrInvalidCellValue.Message}, report.Messages[0])
	assert.Equal(t, "national_id", report.Messages[1].Field)
	assert.Equal(t, 4, report.Messages[1].Row)
	assert.Equal(t, errors.ErrNationalIDExists.Code, report.Messages[1].Code)
	assert.Equal(t, "name", report.Messages[2].Field)
	assert.Equal(t, "start_date", report.Messages[3].Field)
	assert.Contains(t, report.Messages[3].Message, "M6")

	// 被拒绝的行没有留下任何数据
	var count int64
	db.Model(&models.Merchant{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestImporter_DryRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	report, err := newImporter(db, nil).Import(ctx, workbook(t, "",
		[]interface{}{"Awa", "N1", "", "", "", "A1", "Hall 1", "", "", "VIP", "1 250,50", "MONTHLY", "45658"},
		[]interface{}{"Moussa", "N2", "", "", "", "A1", "Hall 1", "", "", "VIP", "x"},
	), Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Rejected)
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, "1250.5", row.AnnualFee.String())
	require.NotNil(t, row.StartDate)
	assert.Equal(t, "2025-01-01", row.StartDate.Format("2006-01-02"))

	var count int64
	db.Model(&models.Merchant{}).Count(&count)
	assert.Zero(t, count)
}

func TestImporter_TypedCells(t *testing.T) {
	db := setupTestDB(t)
	seedReferences(t, db)
	require.NoError(t, db.Create(&models.AnnualFee{Amount: decimal.NewFromInt(1500), Label: "Grand"}).Error)
	ctx := context.Background()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	row := []interface{}{"Awa Diop", "N1", 770000000, "", "Dakar", "A1", "Hall 1", "", "", "VIP",
		1500, "MONTHLY", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))

	// #,##0 与 mmm-yy 格式下显示值为 "1,500" 和 "Mar-23"
	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "K2", "K2", thousands))
	monthYear, err := f.NewStyle(&excelize.Style{NumFmt: 17})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "M2", "M2", monthYear))
	display, err := f.GetCellValue(sheet, "K2")
	require.NoError(t, err)
	require.Equal(t, "1,500", display)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report, err := newImporter(db, nil).Import(ctx, bytes.NewReader(buf.Bytes()), Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Messages)
	assert.Equal(t, 1, report.Merchants)
	assert.Equal(t, 1, report.Contracts)
	assert.Zero(t, report.Rejected)

	var merchant models.Merchant
	require.NoError(t, db.First(&merchant).Error)
	require.NotNil(t, merchant.Phone)
	assert.Equal(t, "770000000", *merchant.Phone)

	var contract models.Contract
	require.NoError(t, db.Preload("AnnualFee").First(&contract).Error)
	require.NotNil(t, contract.AnnualFee)
	assert.Equal(t, "1500", contract.AnnualFee.Amount.String())
	require.NotNil(t, contract.StartDate)
	assert.Equal(t, "2023-03-01", contract.StartDate.Format("2006-01-02"))
}

func TestImporter_FileErrors(t *testing.T) {
	db := setupTestDB(t)
	imp := newImporter(db, nil)
	ctx := context.Background()

	_, err := imp.Import(ctx, bytes.NewReader([]byte("not a workbook")), Options{})
	assert.ErrorIs(t, err, errors.ErrImportFileInvalid)

	_, err = imp.Import(ctx, workbook(t, ""), Options{Sheet: "Missing"})
	assert.ErrorIs(t, err, errors.ErrImportSheetMissing)

	rows := make([][]interface{}, 11)
	for i := range rows {
		rows[i] = []interface{}{"M", fmt.Sprintf("N%d", i)}
	}
	_, err = imp.Import(ctx, workbook(t, "", rows...), Options{})
	assert.ErrorIs(t, err, errors.ErrImportTooManyRows)
}

func TestImporter_Lock(t *testing.T) {
	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()

	lock, err := cache.Acquire(ctx, rdb, lockName, time.Minute)
	require.NoError(t, err)

	imp := newImporter(db, rdb)
	_, err = imp.Import(ctx, workbook(t, ""), Options{})
	assert.ErrorIs(t, err, errors.ErrImportInProgress)

	// 预检不需要锁
	_, err = imp.Import(ctx, workbook(t, ""), Options{DryRun: true})
	assert.NoError(t, err)

	require.NoError(t, lock.Release(ctx))
	_, err = imp.Import(ctx, workbook(t, ""), Options{})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.BuildKey(cache.KeyPrefixLock, lockName)), "导入结束后释放锁")
}

func TestTemplate(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Headers, rows[0])
}
