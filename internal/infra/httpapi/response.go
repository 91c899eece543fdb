package httpapi

import (
	"errors"
	"net/http"

	"chama_admin/internal/app"

	"github.com/gin-gonic/gin"
)

// Response is the data part of a successful reply.
type Response map[string]interface{}

// Business error codes carried next to the HTTP status.
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeConflict     = 40901
	CodeServerErr    = 50001
	CodeUnavailable  = 50301
)

// Success writes {"code":0,"data":...} with status 200.
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Created is Success with status 201.
func Created(c *gin.Context, data Response) {
	c.JSON(http.StatusCreated, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error writes {"code":...,"message":...}.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// ServiceError maps a service error onto a status, code and display message.
func ServiceError(c *gin.Context, err error) {
	status, code := classify(err)
	Error(c, status, code, app.Message(err))
}

func classify(err error) (int, int) {
	switch {
	case errors.Is(err, app.ErrValidation):
		return http.StatusBadRequest, CodeInvalidParam
	case errors.Is(err, app.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, app.ErrUnauthorized):
		return http.StatusForbidden, CodeForbidden
	default:
		return http.StatusServiceUnavailable, CodeUnavailable
	}
}
