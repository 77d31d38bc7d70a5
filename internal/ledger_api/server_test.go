package ledger_api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-ledger/internal/config"
	"github.com/wallet-ledger/internal/data/memory"
	"github.com/wallet-ledger/internal/ledger"
	"github.com/wallet-ledger/internal/reconciliation"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type pageMeta struct {
	TotalItems int64 `json:"total_items"`
}

type envelope struct {
	Data          json.RawMessage `json:"data"`
	Error         *apiError       `json:"error"`
	CorrelationID string          `json:"correlation_id"`
	Meta          *pageMeta       `json:"meta"`
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func (a *apiClient) do(method, path string, body interface{}, headers ...string) (int, envelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func newTestServer(t *testing.T) (*apiClient, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	engine := ledger.NewEngine(store, &config.LedgerConfig{
		LockTimeout:              time.Second,
		DefaultDailyWithdrawal:   decimal.NewFromInt(500),
		DefaultMonthlyWithdrawal: decimal.NewFromInt(2000),
		DefaultMaxBalance:        decimal.NewFromInt(1000),
		DefaultMinWithdrawal:     decimal.NewFromInt(10),
		PinMaxAttempts:           3,
		PinLockDuration:          time.Minute,
	}, logger)

	recon, err := reconciliation.NewService(store, engine, nil, &config.ReconciliationConfig{
		StalenessWindow:   time.Hour,
		BatchSize:         10,
		Tolerance:         decimal.RequireFromString("0.01"),
		MaxVersionRetries: 3,
	}, 2, logger)
	require.NoError(t, err)
	t.Cleanup(recon.Shutdown)

	cfg := &config.Config{Server: config.ServerConfig{Port: 0, ShutdownTimeout: time.Second}}
	server := NewServer(logger, cfg, engine, engine, recon)
	return &apiClient{t: t, handler: server.Handler()}, store
}

type walletBody struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Balance          string `json:"balance"`
	AvailableBalance string `json:"available_balance"`
	PendingDebits    string `json:"pending_debits"`
	PinSet           bool   `json:"pin_set"`
	IsFlagged        bool   `json:"is_flagged"`
	Version          int    `json:"version"`
}

type movementBody struct {
	Wallet      walletBody `json:"wallet"`
	Transaction struct {
		ID     string `json:"id"`
		Amount string `json:"amount"`
		Status string `json:"status"`
	} `json:"transaction"`
}

func createWallet(t *testing.T, api *apiClient, userID string) walletBody {
	t.Helper()
	code, env := api.do(http.MethodPost, "/api/v1/wallets", map[string]interface{}{
		"user_id":  userID,
		"currency": "usd",
	})
	require.Equal(t, http.StatusCreated, code)
	return decode[walletBody](t, env.Data)
}

func TestServer_WalletLifecycle(t *testing.T) {
	api, _ := newTestServer(t)
	w := createWallet(t, api, "user-http-1")
	assert.Equal(t, "active", w.Status)
	assert.Equal(t, "0.00", w.Balance)

	code, env := api.do(http.MethodPost, "/api/v1/wallets", map[string]interface{}{"user_id": "user-http-1", "currency": "USD"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)

	base := "/api/v1/wallets/" + w.ID
	code, env = api.do(http.MethodPost, base+"/credit", map[string]interface{}{"amount": "100.005", "category": "survey_reward"},
		"Idempotency-Key", "credit-1", "X-Correlation-ID", "corr-http")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "corr-http", env.CorrelationID)
	credited := decode[movementBody](t, env.Data)
	assert.Equal(t, "100.00", credited.Wallet.Balance)

	// Replayed key returns the first transaction without moving money again
	code, env = api.do(http.MethodPost, base+"/credit", map[string]interface{}{"amount": "100.00", "category": "survey_reward"},
		"Idempotency-Key", "credit-1")
	require.Equal(t, http.StatusOK, code)
	replayed := decode[movementBody](t, env.Data)
	assert.Equal(t, credited.Transaction.ID, replayed.Transaction.ID)
	assert.Equal(t, "100.00", replayed.Wallet.Balance)

	code, env = api.do(http.MethodPost, base+"/debit", map[string]interface{}{"amount": "150", "category": "withdrawal"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "INSUFFICIENT_FUNDS", env.Error.Code)

	code, env = api.do(http.MethodPost, base+"/debits/reserve", map[string]interface{}{"amount": "40"})
	require.Equal(t, http.StatusOK, code)
	held := decode[walletBody](t, env.Data)
	assert.Equal(t, "60.00", held.AvailableBalance)
	assert.Equal(t, "40.00", held.PendingDebits)

	code, env = api.do(http.MethodPost, base+"/debits/confirm", map[string]interface{}{"amount": "40"})
	require.Equal(t, http.StatusOK, code)
	confirmed := decode[movementBody](t, env.Data)
	assert.Equal(t, "60.00", confirmed.Wallet.Balance)
	assert.Equal(t, "0.00", confirmed.Wallet.PendingDebits)

	code, env = api.do(http.MethodPost, base+"/freeze", map[string]interface{}{"reason": "review"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "frozen", decode[walletBody](t, env.Data).Status)

	code, env = api.do(http.MethodPost, base+"/credit", map[string]interface{}{"amount": "1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "WALLET_NOT_ACTIVE", env.Error.Code)

	code, _ = api.do(http.MethodPost, base+"/unfreeze", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/v1/users/user-http-1/wallet", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, w.ID, decode[walletBody](t, env.Data).ID)

	code, env = api.do(http.MethodGet, base+"/transactions?per_page=1", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.TotalItems)

	code, _ = api.do(http.MethodGet, base+"/withdrawal-usage", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_PinLockout(t *testing.T) {
	api, _ := newTestServer(t)
	w := createWallet(t, api, "user-pin")
	base := "/api/v1/wallets/" + w.ID

	code, _ := api.do(http.MethodPut, base+"/pin", map[string]string{"pin": "4821"})
	require.Equal(t, http.StatusNoContent, code)

	code, env := api.do(http.MethodPost, base+"/pin/verify", map[string]string{"pin": "4821"})
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"verified":true}`, string(env.Data))

	for i := 0; i < 3; i++ {
		code, _ = api.do(http.MethodPost, base+"/pin/verify", map[string]string{"pin": "0000"})
		assert.NotEqual(t, http.StatusOK, code)
	}
	code, env = api.do(http.MethodPost, base+"/pin/verify", map[string]string{"pin": "4821"})
	assert.Equal(t, http.StatusLocked, code)
	assert.Equal(t, "PIN_LOCKED", env.Error.Code)
}

func TestServer_PendingTransactionAndReconcile(t *testing.T) {
	api, _ := newTestServer(t)
	w := createWallet(t, api, "user-recon")

	code, env := api.do(http.MethodPost, "/api/v1/transactions", map[string]interface{}{
		"wallet_id": w.ID,
		"amount":    "25",
		"is_inflow": true,
		"category":  "app_reward",
	})
	require.Equal(t, http.StatusCreated, code)
	txn := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, env.Data)
	assert.Equal(t, "pending", txn.Status)

	code, _ = api.do(http.MethodPatch, "/api/v1/transactions/"+txn.ID, map[string]interface{}{"status": "successful"})
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/v1/wallets/"+w.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "25.00", decode[walletBody](t, env.Data).Balance)

	code, env = api.do(http.MethodPost, "/api/v1/wallets/"+w.ID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, code)
	report := decode[struct {
		Outcome         string `json:"outcome"`
		ComputedBalance string `json:"computed_balance"`
	}](t, env.Data)
	assert.Equal(t, "matched", report.Outcome)
	assert.Equal(t, "25.00", report.ComputedBalance)

	code, env = api.do(http.MethodPost, "/api/v1/admin/reconciliation/run", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"checked":0,"discrepant":0,"failed":0}`, string(env.Data))

	code, _ = api.do(http.MethodDelete, "/api/v1/transactions/"+txn.ID, nil)
	require.Equal(t, http.StatusNoContent, code)

	code, env = api.do(http.MethodGet, "/api/v1/wallets/"+w.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.00", decode[walletBody](t, env.Data).Balance)
}

func TestServer_BadInput(t *testing.T) {
	api, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"malformed wallet id", http.MethodGet, "/api/v1/wallets/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown wallet", http.MethodGet, "/api/v1/wallets/6f1c1f5e-7a43-4b8e-9d55-0c7e4f7f1a11", nil, http.StatusNotFound},
		{"missing user id", http.MethodPost, "/api/v1/wallets", map[string]string{"currency": "USD"}, http.StatusBadRequest},
		{"unsupported currency", http.MethodPost, "/api/v1/wallets", map[string]string{"user_id": "u", "currency": "XXX"}, http.StatusBadRequest},
		{"bad summary period", http.MethodGet, "/api/v1/wallets/6f1c1f5e-7a43-4b8e-9d55-0c7e4f7f1a11/summary?from=yesterday&to=today", nil, http.StatusBadRequest},
		{"bad direction", http.MethodGet, "/api/v1/wallets/6f1c1f5e-7a43-4b8e-9d55-0c7e4f7f1a11/transactions?direction=sideways", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := api.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, env.Error)
			assert.NotEmpty(t, env.Error.Code)
		})
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	api, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr = httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ready"`)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ledger_http_requests_total")
}
