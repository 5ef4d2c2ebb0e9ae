package handler

import (
	"errors"
	"net/http"

	"github.com/blues/ffb/internal/logic"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// LogicErrorResponse 按业务错误类型映射HTTP状态码
func LogicErrorResponse(c *gin.Context, err error) {
	ErrorResponse(c, statusFromError(err), err.Error())
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, logic.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, logic.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, logic.ErrInvalidParameter), errors.Is(err, logic.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, logic.ErrInvalidState), errors.Is(err, logic.ErrTimeWindow), errors.Is(err, logic.ErrPaused):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
