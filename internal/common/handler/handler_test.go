package handler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/response"
	"github.com/dumeirei/market-merchant-backend/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 辅助函数：创建测试上下文
func createTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

// 辅助函数：解析响应
func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ============================================================================
// 错误处理测试
// ============================================================================

func TestHandleError_NilError(t *testing.T) {
	c, _ := createTestContext("/")
	assert.False(t, HandleError(c, nil))
}

func TestHandleError_AppErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"merchant not found", errors.ErrMerchantNotFound, http.StatusNotFound},
		{"place not in hall", errors.ErrPlaceNotFoundInHall.WithMessage("展厅 H1 内不存在摊位 P1"), http.StatusNotFound},
		{"national id conflict", errors.ErrNationalIDExists, http.StatusConflict},
		{"invalid category", errors.ErrInvalidCategoryName, http.StatusBadRequest},
		{"invalid params", errors.ErrInvalidParams, http.StatusBadRequest},
		{"token expired", errors.ErrTokenExpired, http.StatusUnauthorized},
		{"permission denied", errors.ErrPermissionDenied, http.StatusForbidden},
		{"database error", errors.ErrDatabaseError, http.StatusInternalServerError},
		{"storage unavailable", errors.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("load: %w", errors.ErrContractNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := createTestContext("/")

			assert.True(t, HandleError(c, tt.err))
			assert.Equal(t, tt.wantStatus, w.Code)

			appErr := errors.GetAppError(tt.err)
			resp := parseResponse(t, w)
			assert.Equal(t, appErr.Code, resp.Code)
			assert.Equal(t, appErr.Message, resp.Message)
		})
	}
}

func TestHandleError_PlainErrorHidesDetails(t *testing.T) {
	c, w := createTestContext("/api/admin/merchants")

	assert.True(t, HandleErrorWithMessage(c, stderrors.New("pq: connection refused"), "操作失败"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	resp := parseResponse(t, w)
	assert.Equal(t, "操作失败", resp.Message)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestMustSucceed(t *testing.T) {
	c, w := createTestContext("/")
	MustSucceed(c, nil, map[string]string{"name": "Karim"})
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = createTestContext("/")
	MustCreate(c, nil, map[string]int64{"id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = createTestContext("/")
	MustSucceedPage(c, errors.ErrDatabaseError, nil, 0, 1, 10)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ============================================================================
// 认证检查测试
// ============================================================================

func TestRequireAdminID(t *testing.T) {
	c, w := createTestContext("/")
	_, ok := RequireAdminID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, _ = createTestContext("/")
	c.Set(middleware.ContextKeyAdminID, int64(9))
	id, ok := RequireAdminID(c)
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
}

func TestRequireAdminAndParseID(t *testing.T) {
	c, _ := createTestContext("/")
	c.Set(middleware.ContextKeyAdminID, int64(1))
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	adminID, id, ok := RequireAdminAndParseID(c, "商户")
	assert.True(t, ok)
	assert.Equal(t, int64(1), adminID)
	assert.Equal(t, int64(42), id)
}

// ============================================================================
// 参数解析测试
// ============================================================================

func TestParseParamID(t *testing.T) {
	tests := []struct {
		value  string
		wantOK bool
	}{
		{"12", true},
		{"0", false},
		{"-3", false},
		{"abc", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			c, w := createTestContext("/")
			c.Params = gin.Params{{Key: "place_id", Value: tt.value}}

			_, ok := ParseParamID(c, "place_id", "摊位")
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, parseResponse(t, w).Message, "摊位")
			}
		})
	}
}

func TestParseQueryID(t *testing.T) {
	c, _ := createTestContext("/")
	id, ok := ParseQueryID(c, "merchant_id", "商户")
	assert.True(t, ok)
	assert.Nil(t, id)

	c, _ = createTestContext("/?merchant_id=5")
	id, ok = ParseQueryID(c, "merchant_id", "商户")
	assert.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, int64(5), *id)

	c, w := createTestContext("/?merchant_id=x")
	_, ok = ParseQueryID(c, "merchant_id", "商户")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseDate("2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseDate(" 01/02/2024 ")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseDate("Feb 1 2024")
	assert.Error(t, err)
}

func TestParseQueryDateRange(t *testing.T) {
	c, _ := createTestContext("/?start_date=2024-01-01&end_date=2024-01-31")
	start, end, ok := ParseQueryDateRange(c)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *start)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), *end)

	c, w := createTestContext("/?start_date=bad")
	_, _, ok = ParseQueryDateRange(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBindPagination(t *testing.T) {
	c, _ := createTestContext("/?page=3&page_size=500")
	p := BindPagination(c)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.PageSize)

	c, _ = createTestContext("/")
	p = BindPagination(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PageSize)
}
