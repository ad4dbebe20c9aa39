//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// setupPostgres 启动 Postgres 容器并完成迁移
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("market_merchants_test"),
		tcPostgres.WithUsername("test_user"),
		tcPostgres.WithPassword("test_password"),
		tcPostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func TestPostgres_Repositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	fx := createMarket(t, db)
	category, fee := createReferences(t, db)

	t.Run("national id is unique", func(t *testing.T) {
		repo := NewMerchantRepository(db)
		require.NoError(t, repo.Create(ctx, &models.Merchant{Name: "Awa Diop", NationalID: "PG-1", Status: models.MerchantStatusActive}))
		err := repo.Create(ctx, &models.Merchant{Name: "Other", NationalID: "PG-1", Status: models.MerchantStatusActive})
		assert.Error(t, err)

		found, err := repo.FindByNationalID(ctx, "PG-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Awa Diop", found.Name)

		list, total, err := repo.List(ctx, 0, 10, map[string]interface{}{"keyword": "Awa"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, list, 1)
	})

	t.Run("place assignment and free filter", func(t *testing.T) {
		locations := NewLocationRepository(db)
		m := createMerchant(t, db, "Moussa Ba", "PG-2")
		taken := &models.Place{Name: "PG-A1", HallID: &fx.hall.ID}
		free := &models.Place{Name: "PG-A2", HallID: &fx.hall.ID}
		require.NoError(t, locations.CreatePlace(ctx, taken))
		require.NoError(t, locations.CreatePlace(ctx, free))

		require.NoError(t, locations.AssignPlace(ctx, taken.ID, &m.ID, time.Now()))

		list, total, err := locations.ListPlaces(ctx, 0, 10, map[string]interface{}{"hall_id": fx.hall.ID, "free": true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, "PG-A2", list[0].Name)

		place, err := locations.GetPlaceByID(ctx, taken.ID)
		require.NoError(t, err)
		require.NotNil(t, place.MerchantID)
		assert.Equal(t, m.ID, *place.MerchantID)
		require.NotNil(t, place.Hall)

		require.NoError(t, locations.ReleaseMerchantPlaces(ctx, m.ID))
		place, err = locations.GetPlaceByID(ctx, taken.ID)
		require.NoError(t, err)
		assert.Nil(t, place.MerchantID)
		assert.Nil(t, place.AssignedAt)
	})

	t.Run("payments keep decimal precision", func(t *testing.T) {
		payments := NewPaymentRepository(db)
		m := createMerchant(t, db, "Fatou Sow", "PG-3")
		contract := createContract(t, db, m.ID, category, fee)

		paid := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
		require.NoError(t, payments.Create(ctx, &models.Payment{
			ReceiptNo: "PG-R-1", MerchantID: m.ID, ContractID: contract.ID,
			Type: models.PaymentTypeStallFee, Amount: decimal.RequireFromString("150.55"),
			PaymentDate: &paid, Motif: "Payment for the 1st month",
		}))

		got, err := payments.FindByReceiptNo(ctx, "PG-R-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "150.55", got.Amount.StringFixed(2))

		list, total, err := payments.List(ctx, 0, 10, map[string]interface{}{
			"merchant_id": m.ID,
			"start_date":  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			"end_date":    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].Merchant)
	})
}
