package handler

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/logging"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}

func badRequest(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// respondError maps a core error onto its status and code. Server-side
// failures are logged and their details are not exposed.
func respondError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
		message = http.StatusText(status)
	}
	abortWithError(c, status, errs.Code(err), message)
}
