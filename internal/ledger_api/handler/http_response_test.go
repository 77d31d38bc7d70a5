package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-ledger/internal/domain/shared"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{shared.ErrInvalidArgument, http.StatusBadRequest},
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrAlreadyExists, http.StatusConflict},
		{shared.ErrConflict, http.StatusConflict},
		{shared.ErrWalletNotActive, http.StatusConflict},
		{shared.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{shared.ErrLimitExceeded, http.StatusUnprocessableEntity},
		{shared.ErrPinLocked, http.StatusLocked},
		{shared.ErrBusy, http.StatusServiceUnavailable},
		{shared.ErrInternal, http.StatusInternalServerError},
		{errors.New("connection refused"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", shared.ErrLimitExceeded), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.err))
		})
	}
}

func TestRespondDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("business error keeps its message", func(t *testing.T) {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

		RespondDomainError(c, logger, "debit", fmt.Errorf("%w: daily withdrawal limit exceeded", shared.ErrLimitExceeded))

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "LIMIT_EXCEEDED", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "daily withdrawal limit")
	})

	t.Run("internal error is masked", func(t *testing.T) {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

		RespondDomainError(c, logger, "debit", errors.New("pq: password authentication failed"))

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "INTERNAL", resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "password")
	})

	t.Run("canceled request", func(t *testing.T) {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)

		RespondDomainError(c, logger, "credit", ctx.Err())
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]int{1, 2}, 2, 10, 21)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, int64(21), resp.Meta.TotalItems)

	resp = NewPaginatedResponse([]int{}, 1, 10, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}
