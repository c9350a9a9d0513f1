package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fundmesh/transfer-service/internal/handlers"
	"github.com/fundmesh/transfer-service/internal/services"
	"github.com/fundmesh/transfer-service/internal/views"
	"github.com/fundmesh/transfer-service/pkg"
	middleware "github.com/fundmesh/transfer-service/pkg/middlewares"
	pkgviews "github.com/fundmesh/transfer-service/pkg/views"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTransferService struct {
	transferFn func(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error)
	previewFn  func(traceID string, fromCurrency, toCurrency string, amount decimal.Decimal) (views.PreviewResult, error)
}

func (s stubTransferService) Transfer(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error) {
	return s.transferFn(ctx, traceID, req)
}

func (s stubTransferService) PreviewConversion(traceID string, fromCurrency, toCurrency string, amount decimal.Decimal) (views.PreviewResult, error) {
	return s.previewFn(traceID, fromCurrency, toCurrency, amount)
}

func passThrough(c *gin.Context) { c.Next() }

func newTransferRouter(svc services.TransferService, rateLimit gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	handlers.NewTransferHandler(zap.NewNop(), svc).RegisterRoutes(api, rateLimit)
	return r
}

func decodeError(t *testing.T, body *bytes.Buffer) pkg.ErrorResponse {
	t.Helper()
	var out pkg.ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &out))
	return out
}

func TestCreateTransfer_Success(t *testing.T) {
	// Arrange
	result := views.TransferResult{
		FromAccount:     pkgviews.AccountView{ID: "a1", Currency: "USD", Balance: decimal.NewFromInt(900)},
		ToAccount:       pkgviews.AccountView{ID: "a2", Currency: "EUR", Balance: decimal.NewFromInt(590)},
		ConvertedAmount: decimal.NewFromInt(90),
	}
	r := newTransferRouter(stubTransferService{
		transferFn: func(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error) {
			assert.NotEmpty(t, traceID)
			assert.Equal(t, "a1", req.FromAccountID)
			return result, nil
		},
	}, passThrough)

	payload := `{"fromAccountId":"a1","toAccountId":"a2","amount":100}`

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(payload))
	r.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(pkg.HeaderTraceId))

	var out views.TransferResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "a1", out.FromAccount.ID)
	assert.True(t, out.ConvertedAmount.Equal(decimal.NewFromInt(90)))
}

func TestCreateTransfer_MissingFields(t *testing.T) {
	r := newTransferRouter(stubTransferService{
		transferFn: func(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error) {
			t.Fatal("service must not be called for an unparseable request")
			return views.TransferResult{}, nil
		},
	}, passThrough)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{"amount":100}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decodeError(t, w.Body)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, out.Code)
}

func TestCreateTransfer_ServiceErrorMapped(t *testing.T) {
	r := newTransferRouter(stubTransferService{
		transferFn: func(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error) {
			return views.TransferResult{}, pkg.NewAppError(pkg.ErrInsufficientFundsCode, "insufficient balance", nil)
		},
	}, passThrough)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
		bytes.NewBufferString(`{"fromAccountId":"a1","toAccountId":"a2","amount":100}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	out := decodeError(t, w.Body)
	assert.Equal(t, pkg.ErrInsufficientFundsCode.Code, out.Code)
	assert.False(t, out.Retryable)
}

func TestCreateTransfer_RetryableErrorMapped(t *testing.T) {
	r := newTransferRouter(stubTransferService{
		transferFn: func(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error) {
			return views.TransferResult{}, pkg.NewAppError(pkg.ErrSQLRetryableCode, "row lock wait timed out", nil)
		},
	}, passThrough)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
		bytes.NewBufferString(`{"fromAccountId":"a1","toAccountId":"a2","amount":100}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	out := decodeError(t, w.Body)
	assert.Equal(t, pkg.ErrSQLRetryableCode.Code, out.Code)
	assert.True(t, out.Retryable)
}

func TestCreateTransfer_RateLimited(t *testing.T) {
	limiter := pkg.NewDistributedLimiter(nil, "test:transfer_rate", 1, 1, time.Minute, zap.NewNop())
	r := newTransferRouter(stubTransferService{
		transferFn: func(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error) {
			return views.TransferResult{}, nil
		},
	}, middleware.RateLimit(limiter))

	payload := `{"fromAccountId":"a1","toAccountId":"a2","amount":100}`

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(payload)))
	assert.Equal(t, http.StatusOK, first.Code)

	// Burst of 1 and rate of 1/s: an immediate second request must be rejected.
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(payload)))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	out := decodeError(t, second.Body)
	assert.True(t, out.Retryable)
}

func TestPreviewConversion_Success(t *testing.T) {
	r := newTransferRouter(stubTransferService{
		previewFn: func(traceID string, fromCurrency, toCurrency string, amount decimal.Decimal) (views.PreviewResult, error) {
			assert.Equal(t, "USD", fromCurrency)
			assert.Equal(t, "EUR", toCurrency)
			assert.True(t, amount.Equal(decimal.NewFromInt(100)))
			return views.PreviewResult{ConvertedAmount: decimal.NewFromInt(90)}, nil
		},
	}, passThrough)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/preview?fromCurrency=USD&toCurrency=EUR&amount=100", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var out views.PreviewResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.ConvertedAmount.Equal(decimal.NewFromInt(90)))
}

func TestPreviewConversion_MissingParams(t *testing.T) {
	r := newTransferRouter(stubTransferService{}, passThrough)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/preview?fromCurrency=USD&amount=100", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decodeError(t, w.Body)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, out.Code)
}

func TestPreviewConversion_MalformedAmount(t *testing.T) {
	r := newTransferRouter(stubTransferService{}, passThrough)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/preview?fromCurrency=USD&toCurrency=EUR&amount=abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decodeError(t, w.Body)
	assert.Equal(t, pkg.ErrInvalidAmountCode.Code, out.Code)
}
