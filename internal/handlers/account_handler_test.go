package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

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

type stubAccountService struct {
	createFn func(ctx context.Context, traceID string, req views.CreateAccountRequest) (pkgviews.AccountView, error)
	getFn    func(ctx context.Context, traceID string, id string) (pkgviews.AccountView, error)
	listFn   func(ctx context.Context, traceID string, query views.ListAccountsQuery) ([]pkgviews.AccountView, error)
	deleteFn func(ctx context.Context, traceID string, id string) error
}

func (s stubAccountService) CreateAccount(ctx context.Context, traceID string, req views.CreateAccountRequest) (pkgviews.AccountView, error) {
	return s.createFn(ctx, traceID, req)
}

func (s stubAccountService) GetAccount(ctx context.Context, traceID string, id string) (pkgviews.AccountView, error) {
	return s.getFn(ctx, traceID, id)
}

func (s stubAccountService) ListAccounts(ctx context.Context, traceID string, query views.ListAccountsQuery) ([]pkgviews.AccountView, error) {
	return s.listFn(ctx, traceID, query)
}

func (s stubAccountService) DeleteAccount(ctx context.Context, traceID string, id string) error {
	return s.deleteFn(ctx, traceID, id)
}

func (s stubAccountService) ListCurrencies() []views.CurrencyView {
	return []views.CurrencyView{
		{Code: "EUR", Rates: map[string]decimal.Decimal{"EUR": decimal.NewFromInt(1)}},
		{Code: "USD", Rates: map[string]decimal.Decimal{"USD": decimal.NewFromInt(1)}},
	}
}

func newAccountRouter(svc services.AccountService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	handlers.NewAccountHandler(zap.NewNop(), svc).RegisterRoutes(api)
	return r
}

func TestCreateAccount_Success(t *testing.T) {
	r := newAccountRouter(stubAccountService{
		createFn: func(ctx context.Context, traceID string, req views.CreateAccountRequest) (pkgviews.AccountView, error) {
			assert.Equal(t, int64(7), req.OwnerID)
			assert.Equal(t, "USD", req.Currency)
			return pkgviews.AccountView{ID: "acc-1", OwnerID: 7, Currency: "USD", Balance: req.Balance}, nil
		},
	})

	payload := `{"ownerId":7,"ownerName":"Alice","ownerAddress":"1 Main St","currency":"USD","balance":1000}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewBufferString(payload)))

	assert.Equal(t, http.StatusCreated, w.Code)
	var out pkgviews.AccountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "acc-1", out.ID)
}

func TestCreateAccount_MissingFields(t *testing.T) {
	r := newAccountRouter(stubAccountService{
		createFn: func(ctx context.Context, traceID string, req views.CreateAccountRequest) (pkgviews.AccountView, error) {
			t.Fatal("service must not be called for an unparseable request")
			return pkgviews.AccountView{}, nil
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewBufferString(`{"ownerId":7}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decodeError(t, w.Body)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, out.Code)
}

func TestGetAccount_NotFound(t *testing.T) {
	r := newAccountRouter(stubAccountService{
		getFn: func(ctx context.Context, traceID string, id string) (pkgviews.AccountView, error) {
			return pkgviews.AccountView{}, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "account not found", nil)
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/0c3f8e8e-0000-0000-0000-000000000000", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	out := decodeError(t, w.Body)
	assert.Equal(t, pkg.ErrRecordNotFoundCode.Code, out.Code)
}

func TestListAccounts_ForwardsQuery(t *testing.T) {
	r := newAccountRouter(stubAccountService{
		listFn: func(ctx context.Context, traceID string, query views.ListAccountsQuery) ([]pkgviews.AccountView, error) {
			assert.Equal(t, "alice", query.Query)
			assert.Equal(t, "EUR", query.Currency)
			assert.Equal(t, 10, query.Limit)
			assert.Equal(t, 20, query.Offset)
			return []pkgviews.AccountView{{ID: "acc-1"}}, nil
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/accounts?q=alice&currency=EUR&limit=10&offset=20", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var out []pkgviews.AccountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out, 1)
}

func TestDeleteAccount_NoContent(t *testing.T) {
	called := false
	r := newAccountRouter(stubAccountService{
		deleteFn: func(ctx context.Context, traceID string, id string) error {
			called = true
			return nil
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/accounts/0c3f8e8e-0000-0000-0000-000000000000", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, called)
}

func TestListCurrencies(t *testing.T) {
	r := newAccountRouter(stubAccountService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/currencies", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var out []views.CurrencyView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "EUR", out[0].Code)
}
