package merchant

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/utils"
	"github.com/dumeirei/market-merchant-backend/internal/models"
)

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency(" weekly ")
	require.NoError(t, err)
	assert.Equal(t, models.FrequencyWeekly, *f)

	f, err = ParseFrequency("")
	require.NoError(t, err)
	assert.Nil(t, f)

	_, err = ParseFrequency("yearly")
	assert.ErrorIs(t, err, errors.ErrInvalidFrequency)
}

func TestContractService(t *testing.T) {
	db := setupTestDB(t)
	fx := seed(t, db)
	merchants, svc := newServices(db)
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	a, err := merchants.Create(ctx, &CreateMerchantRequest{Name: "Awa", NationalID: "N1"})
	require.NoError(t, err)
	b, err := merchants.Create(ctx, &CreateMerchantRequest{Name: "Moussa", NationalID: "N2"})
	require.NoError(t, err)

	first, err := svc.Create(ctx, a.ID, &CreateContractRequest{
		CategoryID:  fx.category.ID,
		AnnualFeeID: fx.annualFee.ID,
		PlaceID:     utils.Int64Ptr(fx.placeA.ID),
		Frequency:   "DAILY",
		StartDate:   "01/02/2026",
	})
	require.NoError(t, err)
	assert.Equal(t, "VIP", first.Category)
	assert.Equal(t, "150.00", first.AnnualFee)
	assert.Equal(t, models.FrequencyDaily, first.Frequency)
	assert.Equal(t, 2026, first.StartDate.Year())

	// 摊位随合同分配
	var place models.Place
	require.NoError(t, db.First(&place, fx.placeA.ID).Error)
	require.NotNil(t, place.MerchantID)
	assert.Equal(t, a.ID, *place.MerchantID)

	second, err := svc.Create(ctx, a.ID, &CreateContractRequest{CategoryID: fx.category.ID, AnnualFeeID: fx.annualFee.ID})
	require.NoError(t, err)

	list, err := svc.ListByMerchant(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[1].ID)

	detail, err := merchants.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, detail.ActiveContract.ID)

	t.Run("校验", func(t *testing.T) {
		_, err := svc.Create(ctx, 404, &CreateContractRequest{CategoryID: fx.category.ID, AnnualFeeID: fx.annualFee.ID})
		assert.ErrorIs(t, err, errors.ErrMerchantNotFound)

		_, err = svc.Create(ctx, b.ID, &CreateContractRequest{CategoryID: 404, AnnualFeeID: fx.annualFee.ID})
		assert.ErrorIs(t, err, errors.ErrCategoryNotRegistered)

		_, err = svc.Create(ctx, b.ID, &CreateContractRequest{CategoryID: fx.category.ID, AnnualFeeID: 404})
		assert.ErrorIs(t, err, errors.ErrAnnualFeeNotFound)

		_, err = svc.Create(ctx, b.ID, &CreateContractRequest{CategoryID: fx.category.ID, AnnualFeeID: fx.annualFee.ID, Frequency: "hourly"})
		assert.ErrorIs(t, err, errors.ErrInvalidFrequency)

		_, err = svc.Create(ctx, b.ID, &CreateContractRequest{CategoryID: fx.category.ID, AnnualFeeID: fx.annualFee.ID, StartDate: "2026.01.01"})
		assert.ErrorIs(t, err, errors.ErrInvalidParams)

		_, err = svc.Create(ctx, b.ID, &CreateContractRequest{CategoryID: fx.category.ID, AnnualFeeID: fx.annualFee.ID, PlaceID: utils.Int64Ptr(fx.placeA.ID)})
		assert.ErrorIs(t, err, errors.ErrPlaceAlreadyAssigned)
	})
}

func TestContractService_ConcurrentPlace(t *testing.T) {
	db := setupTestDB(t)
	fx := seed(t, db)
	merchants, svc := newServices(db)
	ctx := context.Background()

	const n = 5
	ids := make([]int64, n)
	for i := range ids {
		m, err := merchants.Create(ctx, &CreateMerchantRequest{Name: fmt.Sprintf("M%d", i), NationalID: fmt.Sprintf("K%d", i)})
		require.NoError(t, err)
		ids[i] = m.ID
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, ids[i], &CreateContractRequest{
				CategoryID:  fx.category.ID,
				AnnualFeeID: fx.annualFee.ID,
				PlaceID:     utils.Int64Ptr(fx.placeB.ID),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, errors.ErrPlaceAlreadyAssigned)
	}
	assert.Equal(t, 1, succeeded)

	// 失败的合同随事务回滚
	var count int64
	require.NoError(t, db.Model(&models.Contract{}).Where("place_id = ?", fx.placeB.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
