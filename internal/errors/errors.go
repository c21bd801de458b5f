package errors

import (
	"fmt"

	"github.com/weiwangfds/snapshare/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	// 通用错误码 (1000-1999)
	ErrSuccess            ErrorCode = 0    // 成功
	ErrInternalServer     ErrorCode = 1000 // 服务器内部错误
	ErrInvalidParams      ErrorCode = 1001 // 参数错误
	ErrUnauthorized       ErrorCode = 1002 // 未授权
	ErrForbidden          ErrorCode = 1003 // 禁止访问
	ErrNotFound           ErrorCode = 1004 // 资源未找到
	ErrTooManyRequests    ErrorCode = 1005 // 请求过于频繁
	ErrServiceUnavailable ErrorCode = 1006 // 服务不可用

	// 文件相关错误码 (2000-2999)
	ErrFileNotFound       ErrorCode = 2000 // 文件未找到
	ErrFileUploadFailed   ErrorCode = 2001 // 文件上传失败
	ErrFileDeleteFailed   ErrorCode = 2002 // 文件删除失败
	ErrFileReadFailed     ErrorCode = 2003 // 文件读取失败
	ErrFileSizeTooLarge   ErrorCode = 2004 // 文件大小超限
	ErrFileTypeNotAllowed ErrorCode = 2005 // 文件类型不允许
	ErrQuotaExceeded      ErrorCode = 2006 // 存储配额不足
	ErrShareNotFound      ErrorCode = 2007 // 分享未找到或已禁用
	ErrTagNotFound        ErrorCode = 2008 // 标签未找到
	ErrTagAlreadyExists   ErrorCode = 2009 // 标签已存在
	ErrTagOwnerMismatch   ErrorCode = 2010 // 标签与文件不属于同一用户

	// 对象存储相关错误码 (3000-3999)
	ErrStorageConfigNotFound       ErrorCode = 3000 // 存储配置未找到
	ErrStorageConfigInvalid        ErrorCode = 3001 // 存储配置无效
	ErrStorageConnectionFailed     ErrorCode = 3002 // 存储连接失败
	ErrStorageWriteFailed          ErrorCode = 3003 // 对象写入失败
	ErrStorageReadFailed           ErrorCode = 3004 // 对象读取失败
	ErrStorageDeleteFailed         ErrorCode = 3005 // 对象删除失败
	ErrStorageListFailed           ErrorCode = 3006 // 对象列表获取失败
	ErrStorageProviderNotSupported ErrorCode = 3007 // 存储提供商不支持

	// 数据库相关错误码 (4000-4999)
	ErrDatabaseQuery       ErrorCode = 4000 // 数据库查询错误
	ErrDatabaseInsert      ErrorCode = 4001 // 数据库插入错误
	ErrDatabaseUpdate      ErrorCode = 4002 // 数据库更新错误
	ErrDatabaseDelete      ErrorCode = 4003 // 数据库删除错误
	ErrRecordNotFound      ErrorCode = 4004 // 记录未找到
	ErrRecordAlreadyExists ErrorCode = 4005 // 记录已存在

	// 索引与嵌入相关错误码 (5000-5999)
	ErrEmbeddingDisabled  ErrorCode = 5000 // 向量后端未配置
	ErrEmbeddingFailed    ErrorCode = 5001 // 嵌入生成失败
	ErrVectorIndexFailed  ErrorCode = 5002 // 向量索引操作失败
	ErrIndexDegraded      ErrorCode = 5003 // 索引降级，已回退词法检索
	ErrAdoptionSkipped    ErrorCode = 5004 // 无管理员可认领孤儿对象
	ErrSyncInProgress     ErrorCode = 5005 // 对账清扫正在进行中
)

// AppError 应用错误结构体
// @Description 应用程序统一错误格式
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误消息
	Message string `json:"message"`
	// 详细错误信息
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误，支持errors.Is/As链式判断
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// WithDetails 添加详细错误信息
func (e *AppError) WithDetails(details string) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithOriginalError 添加原始错误
func (e *AppError) WithOriginalError(err error) *AppError {
	clone := *e
	clone.OriginalError = err
	if clone.Details == "" && err != nil {
		clone.Details = err.Error()
	}
	return &clone
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	appErr := &AppError{
		Code:          code,
		Message:       message,
		OriginalError: err,
	}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// IsCode 判断错误是否携带指定错误码
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

// GetAppError 获取应用错误
func GetAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// 预定义的常用错误
var (
	// 通用错误
	ErrInternalServerError = New(ErrInternalServer, GetErrorMessage(ErrInternalServer))
	ErrInvalidParameters   = New(ErrInvalidParams, GetErrorMessage(ErrInvalidParams))
	ErrUnauthorizedAccess  = New(ErrUnauthorized, GetErrorMessage(ErrUnauthorized))
	ErrForbiddenAccess     = New(ErrForbidden, GetErrorMessage(ErrForbidden))
	ErrResourceNotFound    = New(ErrNotFound, GetErrorMessage(ErrNotFound))

	// 文件相关错误
	ErrFileNotFoundError       = New(ErrFileNotFound, GetErrorMessage(ErrFileNotFound))
	ErrFileUploadFailedError   = New(ErrFileUploadFailed, GetErrorMessage(ErrFileUploadFailed))
	ErrFileDeleteFailedError   = New(ErrFileDeleteFailed, GetErrorMessage(ErrFileDeleteFailed))
	ErrFileReadFailedError     = New(ErrFileReadFailed, GetErrorMessage(ErrFileReadFailed))
	ErrFileSizeTooLargeError   = New(ErrFileSizeTooLarge, GetErrorMessage(ErrFileSizeTooLarge))
	ErrFileTypeNotAllowedError = New(ErrFileTypeNotAllowed, GetErrorMessage(ErrFileTypeNotAllowed))
	ErrQuotaExceededError      = New(ErrQuotaExceeded, GetErrorMessage(ErrQuotaExceeded))
	ErrShareNotFoundError      = New(ErrShareNotFound, GetErrorMessage(ErrShareNotFound))
	ErrTagNotFoundError        = New(ErrTagNotFound, GetErrorMessage(ErrTagNotFound))
	ErrTagAlreadyExistsError   = New(ErrTagAlreadyExists, GetErrorMessage(ErrTagAlreadyExists))
	ErrTagOwnerMismatchError   = New(ErrTagOwnerMismatch, GetErrorMessage(ErrTagOwnerMismatch))

	// 对象存储相关错误
	ErrStorageConfigNotFoundError       = New(ErrStorageConfigNotFound, GetErrorMessage(ErrStorageConfigNotFound))
	ErrStorageConfigInvalidError        = New(ErrStorageConfigInvalid, GetErrorMessage(ErrStorageConfigInvalid))
	ErrStorageConnectionFailedError     = New(ErrStorageConnectionFailed, GetErrorMessage(ErrStorageConnectionFailed))
	ErrStorageWriteFailedError          = New(ErrStorageWriteFailed, GetErrorMessage(ErrStorageWriteFailed))
	ErrStorageReadFailedError           = New(ErrStorageReadFailed, GetErrorMessage(ErrStorageReadFailed))
	ErrStorageDeleteFailedError         = New(ErrStorageDeleteFailed, GetErrorMessage(ErrStorageDeleteFailed))
	ErrStorageListFailedError           = New(ErrStorageListFailed, GetErrorMessage(ErrStorageListFailed))
	ErrStorageProviderNotSupportedError = New(ErrStorageProviderNotSupported, GetErrorMessage(ErrStorageProviderNotSupported))

	// 数据库相关错误
	ErrDatabaseQueryError       = New(ErrDatabaseQuery, GetErrorMessage(ErrDatabaseQuery))
	ErrDatabaseInsertError      = New(ErrDatabaseInsert, GetErrorMessage(ErrDatabaseInsert))
	ErrDatabaseUpdateError      = New(ErrDatabaseUpdate, GetErrorMessage(ErrDatabaseUpdate))
	ErrDatabaseDeleteError      = New(ErrDatabaseDelete, GetErrorMessage(ErrDatabaseDelete))
	ErrRecordNotFoundError      = New(ErrRecordNotFound, GetErrorMessage(ErrRecordNotFound))
	ErrRecordAlreadyExistsError = New(ErrRecordAlreadyExists, GetErrorMessage(ErrRecordAlreadyExists))

	// 索引与嵌入相关错误
	ErrEmbeddingDisabledError = New(ErrEmbeddingDisabled, GetErrorMessage(ErrEmbeddingDisabled))
	ErrEmbeddingFailedError   = New(ErrEmbeddingFailed, GetErrorMessage(ErrEmbeddingFailed))
	ErrVectorIndexFailedError = New(ErrVectorIndexFailed, GetErrorMessage(ErrVectorIndexFailed))
	ErrIndexDegradedError     = New(ErrIndexDegraded, GetErrorMessage(ErrIndexDegraded))
	ErrAdoptionSkippedError   = New(ErrAdoptionSkipped, GetErrorMessage(ErrAdoptionSkipped))
	ErrSyncInProgressError    = New(ErrSyncInProgress, GetErrorMessage(ErrSyncInProgress))
)

// 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:            "success",
	ErrInternalServer:     "internal_server_error",
	ErrInvalidParams:      "invalid_params",
	ErrUnauthorized:       "unauthorized",
	ErrForbidden:          "forbidden",
	ErrNotFound:           "not_found",
	ErrTooManyRequests:    "too_many_requests",
	ErrServiceUnavailable: "service_unavailable",

	ErrFileNotFound:       "file_not_found",
	ErrFileUploadFailed:   "file_upload_failed",
	ErrFileDeleteFailed:   "file_delete_failed",
	ErrFileReadFailed:     "file_read_failed",
	ErrFileSizeTooLarge:   "file_size_too_large",
	ErrFileTypeNotAllowed: "file_type_not_allowed",
	ErrQuotaExceeded:      "quota_exceeded",
	ErrShareNotFound:      "share_not_found",
	ErrTagNotFound:        "tag_not_found",
	ErrTagAlreadyExists:   "tag_already_exists",
	ErrTagOwnerMismatch:   "tag_owner_mismatch",

	ErrStorageConfigNotFound:       "storage_config_not_found",
	ErrStorageConfigInvalid:        "storage_config_invalid",
	ErrStorageConnectionFailed:     "storage_connection_failed",
	ErrStorageWriteFailed:          "storage_write_failed",
	ErrStorageReadFailed:           "storage_read_failed",
	ErrStorageDeleteFailed:         "storage_delete_failed",
	ErrStorageListFailed:           "storage_list_failed",
	ErrStorageProviderNotSupported: "storage_provider_not_supported",

	ErrDatabaseQuery:       "database_query",
	ErrDatabaseInsert:      "database_insert",
	ErrDatabaseUpdate:      "database_update",
	ErrDatabaseDelete:      "database_delete",
	ErrRecordNotFound:      "record_not_found",
	ErrRecordAlreadyExists: "record_already_exists",

	ErrEmbeddingDisabled: "embedding_disabled",
	ErrEmbeddingFailed:   "embedding_failed",
	ErrVectorIndexFailed: "vector_index_failed",
	ErrIndexDegraded:     "index_degraded",
	ErrAdoptionSkipped:   "adoption_skipped",
	ErrSyncInProgress:    "sync_in_progress",
}

// GetErrorMessage 根据错误码获取错误消息（使用默认语言）
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	// 获取错误码对应的i18n键
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}

	// 使用i18n获取翻译
	return i18n.GetInstance().Translate(key, lang)
}
