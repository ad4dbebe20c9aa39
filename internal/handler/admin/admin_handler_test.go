package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/market-merchant-backend/internal/common/cache"
	"github.com/dumeirei/market-merchant-backend/internal/common/crypto"
	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/jwt"
	"github.com/dumeirei/market-merchant-backend/internal/common/qrcode"
	"github.com/dumeirei/market-merchant-backend/internal/middleware"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	authService "github.com/dumeirei/market-merchant-backend/internal/service/auth"
	catalogService "github.com/dumeirei/market-merchant-backend/internal/service/catalog"
	"github.com/dumeirei/market-merchant-backend/internal/service/importer"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
	merchantService "github.com/dumeirei/market-merchant-backend/internal/service/merchant"
	paymentService "github.com/dumeirei/market-merchant-backend/internal/service/payment"
	uploadService "github.com/dumeirei/market-merchant-backend/internal/service/upload"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	token  string
}

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

// setupRouter 按服务启动时的方式装配全部管理路由
func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	manager := jwt.NewManager(&jwt.Config{
		Secret:            "handler-test-secret",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "market-test",
	})
	blacklist := cache.NewTokenBlacklist(rdb)

	calc := market.NewCalculator("en")
	assembler := market.NewAssembler(calc)
	merchantRepo := repository.NewMerchantRepository(db)

	referenceHandler := NewReferenceHandler(catalogService.NewReferenceService(repository.NewReferenceRepository(db), repository.NewContractRepository(db)))
	authHandler := NewAuthHandler(authService.NewAuthService(repository.NewAdminRepository(db), manager, blacklist))
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		authHandler,
		NewMerchantHandler(
			merchantService.NewMerchantService(db, assembler, qrcode.NewGenerator()),
			merchantService.NewContractService(db, assembler),
			uploadService.NewPhotoService(nil, merchantRepo, 0),
		),
		NewPaymentHandler(paymentService.NewPaymentService(db, calc, "MAD")),
		NewLocationHandler(catalogService.NewLocationService(repository.NewLocationRepository(db), assembler)),
		referenceHandler,
		NewImportHandler(importer.NewImporter(db, rdb, importer.Config{MaxRows: 50})),
	}

	r := gin.New()
	api := r.Group("/api/admin")
	authHandler.RegisterPublicRoutes(api)
	protected := api.Group("")
	protected.Use(middleware.AdminAuth(manager, blacklist))
	for _, h := range handlers {
		h.RegisterRoutes(protected)
	}
	tariffs := protected.Group("")
	tariffs.Use(middleware.RequireRole(models.RoleSuperAdmin))
	referenceHandler.RegisterManageRoutes(tariffs)

	hash, err := crypto.HashPassword("secret123")
	require.NoError(t, err)
	for username, role := range map[string]string{"root": models.RoleSuperAdmin, "agent01": models.RoleAgent} {
		require.NoError(t, db.Create(&models.Admin{
			Username: username, PasswordHash: hash, Name: username, Role: role, Status: models.AdminStatusActive,
		}).Error)
	}

	env := &testEnv{router: r, db: db}
	env.login(t, "root")
	return env
}

// login 以指定管理员身份登录并保存访问令牌
func (e *testEnv) login(t *testing.T, username string) {
	t.Helper()
	e.token = ""
	w := e.do(t, http.MethodPost, "/api/admin/auth/login", map[string]string{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login authService.LoginResponse
	decode(t, w, &login)
	e.token = login.Token.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out), w.Body.String())
	}
	return resp
}

// created 断言 201 并返回 data.id
func created(t *testing.T, w *httptest.ResponseRecorder) int64 {
	t.Helper()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var obj struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &obj)
	require.NotZero(t, obj.ID)
	return obj.ID
}

func TestAdminAPI_AuthFlow(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/admin/auth/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info authService.AdminInfo
	decode(t, w, &info)
	assert.Equal(t, "root", info.Username)
	assert.Equal(t, models.RoleSuperAdmin, info.Role)

	w = env.do(t, http.MethodPost, "/api/admin/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.token = ""
	w = env.do(t, http.MethodGet, "/api/admin/merchants", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/auth/login", map[string]string{"username": "root", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, errors.ErrPasswordError.Code, resp.Code)

	w = env.do(t, http.MethodPost, "/api/admin/auth/login", map[string]string{"username": "root"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminAPI_TariffsRequireSuperAdmin(t *testing.T) {
	env := setupRouter(t)
	categoryID := created(t, env.do(t, http.MethodPost, "/api/admin/categories", map[string]interface{}{"name": "CLASSE_B", "fee": "50"}))

	env.login(t, "agent01")
	w := env.do(t, http.MethodPost, "/api/admin/categories", map[string]interface{}{"name": "CLASSE_C", "fee": "20"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/categories/%d", categoryID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 查询不受角色限制
	w = env.do(t, http.MethodGet, "/api/admin/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Category
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, models.CategoryClasseB, list[0].Name)
	assert.Equal(t, "50.00", list[0].Fee.StringFixed(2))
}

func TestAdminAPI_MerchantLifecycle(t *testing.T) {
	env := setupRouter(t)

	marcheeID := created(t, env.do(t, http.MethodPost, "/api/admin/marchees", map[string]interface{}{"name": "Marché Central"}))
	zoneID := created(t, env.do(t, http.MethodPost, "/api/admin/zones", map[string]interface{}{"name": "Zone Nord", "marchee_id": marcheeID}))
	hallID := created(t, env.do(t, http.MethodPost, "/api/admin/halls", map[string]interface{}{"name": "Hall 1", "zone_id": zoneID}))
	placeID := created(t, env.do(t, http.MethodPost, "/api/admin/places", map[string]interface{}{"name": "A1", "hall_id": hallID}))
	categoryID := created(t, env.do(t, http.MethodPost, "/api/admin/categories", map[string]interface{}{"name": "vip", "fee": "300"}))
	feeID := created(t, env.do(t, http.MethodPost, "/api/admin/annual-fees", map[string]interface{}{"amount": "150.50", "label": "Standard"}))

	// 摊位只能有一个上级
	w := env.do(t, http.MethodPost, "/api/admin/places", map[string]interface{}{"name": "B1", "hall_id": hallID, "zone_id": zoneID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	merchantID := created(t, env.do(t, http.MethodPost, "/api/admin/merchants", map[string]interface{}{
		"name": "Fatima", "national_id": "AB123456", "phone": "0600000000",
	}))

	w = env.do(t, http.MethodPost, "/api/admin/merchants", map[string]interface{}{"name": "Other", "national_id": "AB123456"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.ErrNationalIDExists.Code, decode(t, w, nil).Code)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/merchants/%d/contracts", merchantID), map[string]interface{}{
		"category_id": categoryID, "annual_fee_id": feeID, "place_id": placeID, "frequency": "monthly", "start_date": "2026-01-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var contract market.ContractDTO
	decode(t, w, &contract)
	assert.Equal(t, models.FrequencyMonthly, contract.Frequency)
	assert.Equal(t, "VIP", contract.Category)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/admin/merchants/%d", merchantID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail market.MerchantDTO
	decode(t, w, &detail)
	assert.Equal(t, "AB123456", detail.NationalID)
	require.Len(t, detail.Places, 1)
	assert.Equal(t, "A1", detail.Places[0].Name)
	require.NotNil(t, detail.ActiveContract)
	assert.Equal(t, contract.ID, detail.ActiveContract.ID)

	w = env.do(t, http.MethodGet, "/api/admin/merchants?keyword=Fati", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		List  []market.MerchantDTO `json:"list"`
		Total int64                `json:"total"`
	}
	decode(t, w, &page)
	assert.EqualValues(t, 1, page.Total)
	assert.NotEqual(t, "AB123456", page.List[0].NationalID, "列表中身份证号脱敏")

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/admin/merchants/%d/payment-summary", merchantID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary market.PaymentSummary
	decode(t, w, &summary)
	assert.Equal(t, "150.50", summary.AnnualFeeAmount)
	assert.Equal(t, "300.00", summary.StallFeeAmount)

	// 被合同引用的类别不能删除
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/categories/%d", categoryID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/merchants/%d", merchantID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/merchants/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/merchants/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminAPI_Payments(t *testing.T) {
	env := setupRouter(t)

	hallID := created(t, env.do(t, http.MethodPost, "/api/admin/halls", map[string]interface{}{"name": "Hall 1"}))
	placeID := created(t, env.do(t, http.MethodPost, "/api/admin/places", map[string]interface{}{"name": "A1", "hall_id": hallID}))
	categoryID := created(t, env.do(t, http.MethodPost, "/api/admin/categories", map[string]interface{}{"name": "CLASSE_A", "fee": "120"}))
	feeID := created(t, env.do(t, http.MethodPost, "/api/admin/annual-fees", map[string]interface{}{"amount": "80", "label": "Reduced"}))
	merchantID := created(t, env.do(t, http.MethodPost, "/api/admin/merchants", map[string]interface{}{"name": "Karim", "national_id": "CD998877"}))

	recordPath := fmt.Sprintf("/api/admin/merchants/%d/payments", merchantID)

	w := env.do(t, http.MethodPost, recordPath, map[string]string{"type": "annual"})
	assert.Equal(t, errors.ErrNoActiveContract.Code, decode(t, w, nil).Code)

	created(t, env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/merchants/%d/contracts", merchantID), map[string]interface{}{
		"category_id": categoryID, "annual_fee_id": feeID, "place_id": placeID, "frequency": "WEEKLY", "start_date": "2026-01-01",
	}))

	w = env.do(t, http.MethodPost, recordPath, map[string]string{"type": "annual", "payment_date": "2026-02-01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var annual market.PaymentDTO
	decode(t, w, &annual)
	assert.Equal(t, models.PaymentTypeAnnualFee, annual.Type)
	assert.Equal(t, "80.00", annual.Amount)

	w = env.do(t, http.MethodPost, recordPath, map[string]string{"type": "stall"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var stall market.PaymentDTO
	decode(t, w, &stall)
	assert.Equal(t, "120.00", stall.Amount)
	assert.Equal(t, "Payment for the 1st week (1 January 2026 – 7 January 2026)", stall.Motif)

	w = env.do(t, http.MethodPost, recordPath, map[string]string{"type": "rent"})
	assert.Equal(t, errors.ErrInvalidPaymentType.Code, decode(t, w, nil).Code)

	w = env.do(t, http.MethodGet, "/api/admin/payments?type=STALL_FEE", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		List  []market.PaymentDTO `json:"list"`
		Total int64               `json:"total"`
	}
	decode(t, w, &page)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, stall.ID, page.List[0].ID)

	w = env.do(t, http.MethodGet, "/api/admin/payments?type=rent", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/payments?start_date=bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/admin/payments/%d/receipt", annual.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var receipt paymentService.Receipt
	decode(t, w, &receipt)
	assert.Equal(t, "eighty MAD", receipt.AmountInWords)
	assert.Equal(t, "CD998877", receipt.NationalID)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/admin/payments/export?merchant_id=%d", merchantID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payments_")
	assert.NotEmpty(t, w.Body.Bytes())

	w = env.do(t, http.MethodGet, "/api/admin/payments/4040", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAPI_QRCodeAndPhoto(t *testing.T) {
	env := setupRouter(t)
	merchantID := created(t, env.do(t, http.MethodPost, "/api/admin/merchants", map[string]interface{}{"name": "Samira", "national_id": "EE112233"}))

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/admin/merchants/%d/qrcode", merchantID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	// 未配置对象存储
	w = env.upload(t, fmt.Sprintf("/api/admin/merchants/%d/photo", merchantID), "me.png", []byte("\x89PNG\r\n\x1a\n"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/admin/merchants/%d/photo", merchantID), nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAPI_Import(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/admin/merchants/import/template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	template := w.Body.Bytes()
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	w = env.upload(t, "/api/admin/merchants/import", "merchants.csv", []byte("a,b"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload(t, "/api/admin/merchants/import?dry_run=maybe", "merchants.xlsx", template)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 只有表头的模板是合法的空导入
	w = env.upload(t, "/api/admin/merchants/import?dry_run=true", "merchants.xlsx", template)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report importer.Report
	decode(t, w, &report)
	assert.True(t, report.DryRun)
	assert.Zero(t, report.Total)

	w = env.upload(t, "/api/admin/merchants/import", "merchants.xlsx", []byte("not a workbook"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrImportFileInvalid.Code, decode(t, w, nil).Code)
}
