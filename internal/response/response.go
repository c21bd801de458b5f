package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/weiwangfds/snapshare/internal/errors"
)

// Response 统一返回值结构体
// @Description API统一响应格式
type Response struct {
	// 状态码，0表示成功，非0表示失败
	Code int `json:"code" example:"0"`
	// 响应消息
	Message string `json:"message" example:"success"`
	// 响应数据
	Data interface{} `json:"data,omitempty"`
	// 请求ID，用于链路追踪
	RequestID string `json:"request_id,omitempty" example:"req_123456789"`
	// 时间戳
	Timestamp int64 `json:"timestamp" example:"1640995200"`
}

// PageData 分页数据结构体
// @Description 分页响应数据格式
type PageData struct {
	// 数据列表
	List interface{} `json:"list"`
	// 总数
	Total int64 `json:"total" example:"100"`
	// 当前页码
	Page int `json:"page" example:"1"`
	// 每页大小
	PageSize int `json:"page_size" example:"10"`
	// 总页数
	TotalPages int `json:"total_pages" example:"10"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	response := Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusOK, response)
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	response := Response{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusOK, response)
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	pageData := PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}

	response := Response{
		Code:      0,
		Message:   "success",
		Data:      pageData,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusOK, response)
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	response := Response{
		Code:      code,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusOK, response)
}

// ErrorWithData 带数据的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	response := Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusOK, response)
}

// AppError 应用错误响应
// 根据请求的Accept-Language翻译错误消息，HTTP状态码由错误码推导
func AppError(c *gin.Context, err *apperrors.AppError) {
	lang := c.GetHeader("Accept-Language")
	message := apperrors.GetErrorMessageWithLang(err.Code, lang)
	if message == "" {
		message = err.Message
	}

	var data interface{}
	if err.Details != "" {
		data = gin.H{"details": err.Details}
	}

	response := Response{
		Code:      int(err.Code),
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(httpStatusFor(err.Code), response)
}

// FromError 通用错误响应
// 如果是AppError则按错误码处理，否则返回内部错误
func FromError(c *gin.Context, err error) {
	if appErr, ok := apperrors.GetAppError(err); ok {
		AppError(c, appErr)
		return
	}
	InternalServerError(c, err.Error())
}

// httpStatusFor 根据错误码推导HTTP状态码
func httpStatusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrNotFound, apperrors.ErrFileNotFound,
		apperrors.ErrShareNotFound, apperrors.ErrTagNotFound,
		apperrors.ErrRecordNotFound, apperrors.ErrStorageConfigNotFound:
		return http.StatusNotFound
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden, apperrors.ErrTagOwnerMismatch:
		return http.StatusForbidden
	case apperrors.ErrInvalidParams, apperrors.ErrFileTypeNotAllowed,
		apperrors.ErrFileSizeTooLarge, apperrors.ErrQuotaExceeded,
		apperrors.ErrTagAlreadyExists:
		return http.StatusBadRequest
	case apperrors.ErrSyncInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest 400错误响应
func BadRequest(c *gin.Context, message string) {
	response := Response{
		Code:      400,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusBadRequest, response)
}

// Unauthorized 401错误响应
func Unauthorized(c *gin.Context, message string) {
	response := Response{
		Code:      401,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusUnauthorized, response)
}

// Forbidden 403错误响应
func Forbidden(c *gin.Context, message string) {
	response := Response{
		Code:      403,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusForbidden, response)
}

// NotFound 404错误响应
func NotFound(c *gin.Context, message string) {
	response := Response{
		Code:      404,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusNotFound, response)
}

// InternalServerError 500错误响应
func InternalServerError(c *gin.Context, message string) {
	response := Response{
		Code:      500,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	}
	c.JSON(http.StatusInternalServerError, response)
}

// getRequestID 从gin上下文中获取请求ID，用于链路追踪
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
