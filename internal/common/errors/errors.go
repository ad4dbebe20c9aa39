// Package errors 定义业务错误码和错误处理
package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 错误码相同即视为同一错误，WithMessage 派生的错误仍可被 errors.Is 匹配
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrAlreadyExists   = New(1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = New(1007, "外部服务错误")
	ErrRateLimitExceed = New(1008, "请求过于频繁")
	ErrOperationFailed = New(1009, "操作失败")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrTokenRefreshFail = New(2003, "刷新令牌失败")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrAccountDisabled  = New(2005, "账号已禁用")
	ErrPasswordError    = New(2007, "用户名或密码错误")
)

// 商户错误码 (3000-3999)
var (
	ErrMerchantNotFound   = New(3000, "商户不存在")
	ErrNationalIDExists   = New(3001, "身份证号已存在")
	ErrMerchantHasRecords = New(3002, "商户存在合同或缴费记录")
	ErrPhotoInvalid       = New(3003, "无效的照片文件")
	ErrPhotoTooLarge      = New(3004, "照片文件过大")
	ErrStorageUnavailable = New(3005, "对象存储未配置")
)

// 位置错误码 (4000-4999)
var (
	ErrHallNotFound           = New(4000, "展厅不存在")
	ErrZoneNotFound           = New(4001, "区域不存在")
	ErrMarcheeNotFound        = New(4002, "市场不存在")
	ErrPlaceNotFound          = New(4003, "摊位不存在")
	ErrPlaceNotFoundInHall    = New(4004, "展厅内不存在该摊位")
	ErrPlaceNotFoundInZone    = New(4005, "区域内不存在该摊位")
	ErrPlaceNotFoundInMarchee = New(4006, "市场内不存在该摊位")
	ErrNoLocationHierarchy    = New(4007, "未提供展厅、区域或市场")
	ErrLocationNameExists     = New(4008, "位置名称已存在")
	ErrLocationInUse          = New(4009, "位置仍被引用")
	ErrPlaceAlreadyAssigned   = New(4010, "摊位已分配给其他商户")
)

// 参考数据与合同错误码 (5000-5999)
var (
	ErrCategoryMissing       = New(5000, "摊位类别为空")
	ErrInvalidCategoryName   = New(5001, "无效的摊位类别")
	ErrCategoryNotRegistered = New(5002, "摊位类别未登记")
	ErrAnnualFeeMissing      = New(5003, "年费金额为空")
	ErrAnnualFeeNotFound     = New(5004, "年费金额未登记")
	ErrAnnualFeeExists       = New(5005, "年费金额已存在")
	ErrContractNotFound      = New(5006, "合同不存在")
	ErrNoActiveContract      = New(5007, "商户无有效合同")
	ErrInvalidFrequency      = New(5008, "无效的缴费频率")
	ErrReferenceInUse        = New(5009, "参考数据仍被合同引用")
)

// 缴费与导入错误码 (6000-6999)
var (
	ErrPaymentNotFound    = New(6000, "缴费记录不存在")
	ErrInvalidPaymentType = New(6001, "无效的缴费类型")
	ErrFrequencyUndefined = New(6002, "合同未设置缴费频率")
	ErrExportFailed       = New(6003, "导出失败")
	ErrImportFileInvalid  = New(6100, "无效的导入文件")
	ErrImportSheetMissing = New(6101, "工作表不存在")
	ErrImportTooManyRows  = New(6102, "导入行数超出限制")
	ErrInvalidCellValue   = New(6103, "单元格格式错误")
	ErrImportInProgress   = New(6104, "已有导入任务在运行")
)

// IsAppError 判断错误链中是否包含应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
