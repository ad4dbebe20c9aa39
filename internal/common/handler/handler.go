// Package handler 提供 API Handler 的通用辅助函数
// 用于减少 Handler 层的代码重复，统一错误处理、认证检查、参数解析等操作
package handler

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/common/response"
	"github.com/dumeirei/market-merchant-backend/internal/common/utils"
	"github.com/dumeirei/market-merchant-backend/internal/middleware"
)

// ============================================================================
// 统一错误处理
// ============================================================================

var (
	notFoundErrors = []*errors.AppError{
		errors.ErrNotFound, errors.ErrMerchantNotFound, errors.ErrHallNotFound,
		errors.ErrZoneNotFound, errors.ErrMarcheeNotFound, errors.ErrPlaceNotFound,
		errors.ErrContractNotFound, errors.ErrPaymentNotFound, errors.ErrCategoryNotRegistered,
		errors.ErrAnnualFeeNotFound, errors.ErrPlaceNotFoundInHall, errors.ErrPlaceNotFoundInZone,
		errors.ErrPlaceNotFoundInMarchee,
	}
	conflictErrors = []*errors.AppError{
		errors.ErrAlreadyExists, errors.ErrNationalIDExists, errors.ErrLocationNameExists,
		errors.ErrAnnualFeeExists, errors.ErrPlaceAlreadyAssigned, errors.ErrMerchantHasRecords,
		errors.ErrLocationInUse, errors.ErrReferenceInUse, errors.ErrImportInProgress,
	}
)

// StatusOf 业务错误码对应的 HTTP 状态码
func StatusOf(appErr *errors.AppError) int {
	for _, e := range notFoundErrors {
		if e.Code == appErr.Code {
			return http.StatusNotFound
		}
	}
	for _, e := range conflictErrors {
		if e.Code == appErr.Code {
			return http.StatusConflict
		}
	}
	switch {
	case appErr.Code == errors.ErrPermissionDenied.Code || appErr.Code == errors.ErrAccountDisabled.Code:
		return http.StatusForbidden
	case appErr.Code >= 2000 && appErr.Code < 3000:
		return http.StatusUnauthorized
	case appErr.Code == errors.ErrRateLimitExceed.Code:
		return http.StatusTooManyRequests
	case appErr.Code == errors.ErrStorageUnavailable.Code || appErr.Code == errors.ErrExternalService.Code:
		return http.StatusServiceUnavailable
	case appErr.Code == errors.ErrUnknown.Code || appErr.Code == errors.ErrDatabaseError.Code ||
		appErr.Code == errors.ErrInternalError.Code || appErr.Code == errors.ErrExportFailed.Code:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// HandleError 处理错误并发送适当的响应
// 如果 err 为 nil，返回 false（表示无错误需要处理）
// 如果 err 不为 nil，发送错误响应并返回 true（表示已处理错误，调用方应该 return）
//
// 使用示例:
//
//	result, err := service.DoSomething()
//	if HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	return HandleErrorWithMessage(c, err, "")
}

// HandleErrorWithMessage 处理错误，对非 AppError 使用自定义消息，内部错误详情只写日志
func HandleErrorWithMessage(c *gin.Context, err error, message string) bool {
	if err == nil {
		return false
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		response.Error(c, StatusOf(appErr), appErr.Code, appErr.Message)
		return true
	}
	logger.Error("请求处理失败",
		logger.RequestID(c.GetString("request_id")),
		logger.Path(c.Request.URL.Path),
		logger.Err(err),
	)
	response.InternalError(c, message)
	return true
}

// MustSucceed 便捷封装：如果有错误则返回错误响应，否则返回成功响应
// 调用 MustSucceed 后必须 return
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustCreate 便捷封装：创建类接口返回 201
func MustCreate(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Created(c, data)
}

// MustSucceedPage 便捷封装：分页响应版本
//
// 使用示例:
//
//	list, total, err := service.List(ctx, p.GetOffset(), p.GetLimit())
//	MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
//	return
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize)
}

// ============================================================================
// 管理员认证检查
// ============================================================================

// RequireAdminID 获取当前管理员ID，如果未登录则返回401响应
// 返回 (0, false) 时已发送响应，调用方应该 return
func RequireAdminID(c *gin.Context) (int64, bool) {
	adminID := middleware.GetAdminID(c)
	if adminID == 0 {
		response.Unauthorized(c, "请先登录")
		return 0, false
	}
	return adminID, true
}

// ============================================================================
// ID 参数解析
// ============================================================================

// ParseID 解析路径参数 "id" 为 int64
// 返回 (0, false) 表示解析失败（已发送400响应，调用方应该 return）
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为 int64
//
// 使用示例:
//
//	placeID, ok := handler.ParseParamID(c, "place_id", "摊位")
//	if !ok {
//	    return
//	}
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析查询参数中的可选 ID
// 如果参数为空返回 (nil, true)，解析失败返回 (nil, false)（已发送400响应）
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return &id, true
}

// ============================================================================
// 时间解析辅助
// ============================================================================

// 日期格式常量
// ParseDate 解析日期字符串，支持 YYYY-MM-DD 与 DD/MM/YYYY
func ParseDate(s string) (time.Time, error) {
	t, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, errors.ErrInvalidParams.WithMessage("日期格式错误")
	}
	return t, nil
}

// ParseQueryDateRange 从查询参数解析日期范围（start_date, end_date）
// 结束日期会自动调整为当天结束时间（23:59:59）
// 返回 (nil, nil, false) 如果解析失败（已发送400响应）
func ParseQueryDateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	var start, end *time.Time

	if startStr := c.Query("start_date"); startStr != "" {
		t, err := ParseDate(startStr)
		if err != nil {
			response.BadRequest(c, "无效的开始日期格式")
			return nil, nil, false
		}
		start = &t
	}

	if endStr := c.Query("end_date"); endStr != "" {
		t, err := ParseDate(endStr)
		if err != nil {
			response.BadRequest(c, "无效的结束日期格式")
			return nil, nil, false
		}
		endOfDay := t.Add(24*time.Hour - time.Second)
		end = &endOfDay
	}

	return start, end, true
}

// ============================================================================
// 分页处理
// ============================================================================

// BindPagination 从查询参数绑定并规范化分页参数
// 默认 page=1, pageSize=10, 最大 pageSize=100
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}

// RequireAdminAndParseID 组合：检查管理员登录 + 解析ID参数
func RequireAdminAndParseID(c *gin.Context, resourceName string) (adminID, resourceID int64, ok bool) {
	adminID, ok = RequireAdminID(c)
	if !ok {
		return 0, 0, false
	}
	resourceID, ok = ParseID(c, resourceName)
	if !ok {
		return 0, 0, false
	}
	return adminID, resourceID, true
}
