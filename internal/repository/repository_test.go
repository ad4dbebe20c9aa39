package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// setupTestDB 每个测试独立的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// marketFixture Marché A > Zone Z > Hall H 的完整层级
type marketFixture struct {
	marchee *models.Marchee
	zone    *models.Zone
	hall    *models.Hall
}

func createMarket(t *testing.T, db *gorm.DB) marketFixture {
	t.Helper()
	m := &models.Marchee{Name: "Marché Central"}
	require.NoError(t, db.Create(m).Error)
	z := &models.Zone{Name: "Zone Nord", MarcheeID: &m.ID}
	require.NoError(t, db.Create(z).Error)
	h := &models.Hall{Name: "Hall 1", ZoneID: &z.ID}
	require.NoError(t, db.Create(h).Error)
	return marketFixture{marchee: m, zone: z, hall: h}
}

func createMerchant(t *testing.T, db *gorm.DB, name, nationalID string) *models.Merchant {
	t.Helper()
	m := &models.Merchant{Name: name, NationalID: nationalID, Status: models.MerchantStatusActive}
	require.NoError(t, db.Create(m).Error)
	return m
}

func createReferences(t *testing.T, db *gorm.DB) (*models.Category, *models.AnnualFee) {
	t.Helper()
	c := &models.Category{Name: models.CategoryVIP, Fee: decimal.NewFromInt(300)}
	require.NoError(t, db.Create(c).Error)
	f := &models.AnnualFee{Amount: decimal.NewFromInt(150), Label: "Droit annuel 150"}
	require.NoError(t, db.Create(f).Error)
	return c, f
}

func createContract(t *testing.T, db *gorm.DB, merchantID int64, c *models.Category, f *models.AnnualFee) *models.Contract {
	t.Helper()
	freq := models.FrequencyMonthly
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	contract := &models.Contract{
		MerchantID:  merchantID,
		CategoryID:  c.ID,
		AnnualFeeID: f.ID,
		Frequency:   &freq,
		StartDate:   &start,
	}
	require.NoError(t, db.Create(contract).Error)
	return contract
}
