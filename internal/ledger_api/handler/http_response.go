package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/ledger_api/middleware"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, page, perPage int, totalItems int64) *Response {
	totalPages := int(totalItems / int64(perPage))
	if totalItems%int64(perPage) > 0 {
		totalPages++
	}

	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

// statusByKind maps error kinds to HTTP status codes. Unlisted kinds are 500.
var statusByKind = map[error]int{
	shared.ErrInvalidArgument:   http.StatusBadRequest,
	shared.ErrNotFound:          http.StatusNotFound,
	shared.ErrAlreadyExists:     http.StatusConflict,
	shared.ErrConflict:          http.StatusConflict,
	shared.ErrWalletNotActive:   http.StatusConflict,
	shared.ErrInsufficientFunds: http.StatusUnprocessableEntity,
	shared.ErrLimitExceeded:     http.StatusUnprocessableEntity,
	shared.ErrPinLocked:         http.StatusLocked,
	shared.ErrBusy:              http.StatusServiceUnavailable,
}

// StatusFor returns the HTTP status for err's kind
func StatusFor(err error) int {
	if status, ok := statusByKind[shared.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithPaginatedData sends a JSON response with paginated data
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage int, totalItems int64) {
	response := NewPaginatedResponse(data, page, perPage, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondNoContent sends a 204 No Content response
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, shared.KindName(shared.ErrInvalidArgument), message)
}

// RespondDomainError maps a ledger error to its status and stable code.
// Internal errors are logged and answered with a generic message.
func RespondDomainError(c *gin.Context, logger *slog.Logger, op string, err error) {
	status := StatusFor(err)
	code := shared.KindName(err)
	_ = c.Error(err)

	if status == http.StatusInternalServerError {
		if c.Request.Context().Err() != nil {
			logger.Warn("Request canceled", "operation", op, "correlation_id", middleware.GetCorrelationID(c))
		} else {
			logger.Error("Operation failed", "operation", op, "error", err, "correlation_id", middleware.GetCorrelationID(c))
		}
		RespondWithError(c, status, code, "An internal server error occurred")
		return
	}
	RespondWithError(c, status, code, err.Error())
}
