package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
)

func setupOperationLogTestDB(t *testing.T) *gorm.DB {
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

	require.NoError(t, db.AutoMigrate(&models.Admin{}, &models.OperationLog{}))
	return db
}

// newAuditRouter 模拟 AdminAuth 注入 admin_id 后挂载审计中间件
func newAuditRouter(op *OperationLogger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	admin := r.Group("/api/admin")
	admin.Use(func(c *gin.Context) {
		c.Set("admin_id", int64(1))
		c.Next()
	})
	admin.Use(op.Log())

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"code": 0}) }
	admin.POST("/merchants", ok)
	admin.PUT("/merchants/:id", ok)
	admin.POST("/merchants/:id/places/:place_id", ok)
	admin.DELETE("/halls/:id", ok)
	admin.GET("/merchants", ok)
	return r
}

func lastLog(t *testing.T, db *gorm.DB) *models.OperationLog {
	t.Helper()
	var log models.OperationLog
	require.NoError(t, db.Order("id DESC").First(&log).Error)
	return &log
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOperationLogger_MappedRoutes(t *testing.T) {
	db := setupOperationLogTestDB(t)
	op := NewOperationLogger(repository.NewOperationLogRepository(db))
	op.async = false
	r := newAuditRouter(op)

	w := doJSON(r, http.MethodPost, "/api/admin/merchants", map[string]interface{}{
		"name":        "Ali",
		"national_id": "AB123456",
	})
	require.Equal(t, http.StatusOK, w.Code)

	log := lastLog(t, db)
	assert.Equal(t, "merchant", log.Module)
	assert.Equal(t, "create", log.Action)
	assert.Equal(t, int64(1), log.AdminID)
	assert.Equal(t, http.StatusOK, log.StatusCode)
	require.NotNil(t, log.TargetType)
	assert.Equal(t, "merchant", *log.TargetType)
	assert.Nil(t, log.TargetID)
	assert.Equal(t, "Ali", log.AfterData["name"])
	assert.Equal(t, "***", log.AfterData["national_id"])

	doJSON(r, http.MethodPut, "/api/admin/merchants/42", map[string]interface{}{"address": "Rue 1"})
	log = lastLog(t, db)
	assert.Equal(t, "update", log.Action)
	require.NotNil(t, log.TargetID)
	assert.Equal(t, int64(42), *log.TargetID)

	doJSON(r, http.MethodPost, "/api/admin/merchants/42/places/9", nil)
	log = lastLog(t, db)
	assert.Equal(t, "assign_place", log.Action)
	require.NotNil(t, log.TargetID)
	assert.Equal(t, int64(9), *log.TargetID)
}

func TestOperationLogger_InferredAndSkipped(t *testing.T) {
	db := setupOperationLogTestDB(t)
	op := NewOperationLogger(repository.NewOperationLogRepository(db))
	op.async = false
	r := newAuditRouter(op)

	doJSON(r, http.MethodDelete, "/api/admin/halls/3", nil)
	log := lastLog(t, db)
	assert.Equal(t, "hall", log.Module)
	assert.Equal(t, "delete", log.Action)
	require.NotNil(t, log.TargetID)
	assert.Equal(t, int64(3), *log.TargetID)

	// 读操作不记录
	doJSON(r, http.MethodGet, "/api/admin/merchants", nil)
	var count int64
	require.NoError(t, db.Model(&models.OperationLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOperationLogger_Async(t *testing.T) {
	db := setupOperationLogTestDB(t)
	op := NewOperationLogger(repository.NewOperationLogRepository(db))
	r := newAuditRouter(op)

	doJSON(r, http.MethodPost, "/api/admin/merchants", map[string]interface{}{"name": "Sara"})

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&models.OperationLog{}).Count(&count)
		return count == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestOperationLogger_NoAdmin(t *testing.T) {
	db := setupOperationLogTestDB(t)
	op := NewOperationLogger(repository.NewOperationLogRepository(db))
	op.async = false

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(op.Log())
	r.POST("/api/admin/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	doJSON(r, http.MethodPost, "/api/admin/auth/login", map[string]interface{}{"password": "x"})
	var count int64
	require.NoError(t, db.Model(&models.OperationLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMaskSensitive(t *testing.T) {
	in := map[string]interface{}{
		"username": "root",
		"password": "secret",
		"nested":   []interface{}{map[string]interface{}{"refresh_token": "abc"}},
	}
	out := maskSensitive(in).(map[string]interface{})
	assert.Equal(t, "root", out["username"])
	assert.Equal(t, "***", out["password"])
	nested := out["nested"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "***", nested["refresh_token"])
}
