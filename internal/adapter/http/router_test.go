package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/app/checkout"
	"github.com/YelzhanWeb/ordertrack/internal/app/projection"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheckout struct {
	got interfaces.PlaceOrderCommand
	err error
}

func (f *fakeCheckout) PlaceOrder(ctx context.Context, cmd interfaces.PlaceOrderCommand) (*domain.Order, error) {
	f.got = cmd
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Order{ID: "o-1", Number: "ORD_20261017_001", Status: "pending", Total: decimal.RequireFromString("13")}, nil
}

type fakeAdmin struct {
	calls []string
	err   error
}

func (f *fakeAdmin) Advance(ctx context.Context, orderID, next, actor string) (*domain.Order, error) {
	f.calls = append(f.calls, fmt.Sprintf("advance %s %s %s", orderID, next, actor))
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Order{ID: orderID, Status: next}, nil
}

func (f *fakeAdmin) Cancel(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	f.calls = append(f.calls, fmt.Sprintf("cancel %s %s", orderID, actor))
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Order{ID: orderID, Status: "cancelled"}, nil
}

func (f *fakeAdmin) Delete(ctx context.Context, orderID, actor string) error {
	f.calls = append(f.calls, fmt.Sprintf("delete %s %s", orderID, actor))
	return f.err
}

type fakeTracking struct {
	groups    domain.StatusGroups
	groupsErr error
	scope     domain.OrderScope
	err       error
	panics    bool
}

func (f *fakeTracking) StatusGroups(ctx context.Context) (domain.StatusGroups, error) {
	return f.groups, f.groupsErr
}

func (f *fakeTracking) GetOrder(ctx context.Context, id string) (*projection.View, error) {
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &projection.View{ID: id, DisplayName: "Ana", ElapsedText: "12 min"}, nil
}

func (f *fakeTracking) ListOrders(ctx context.Context, scope domain.OrderScope) ([]projection.View, error) {
	f.scope = scope
	return []projection.View{{ID: "o-1"}, {ID: "o-2"}}, f.err
}

func (f *fakeTracking) GetOrderHistory(ctx context.Context, id string) ([]*domain.StatusLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*domain.StatusLog{
		{Status: "pending", ChangedBy: "system", ChangedAt: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)},
	}, nil
}

type fixture struct {
	checkout *fakeCheckout
	admin    *fakeAdmin
	tracking *fakeTracking
	handler  http.Handler
}

func newFixture() *fixture {
	f := &fixture{checkout: &fakeCheckout{}, admin: &fakeAdmin{}, tracking: &fakeTracking{}}
	lgr := logger.NewNop()
	f.handler = NewRouter(
		NewOrderHandler(f.checkout, f.admin, lgr),
		NewTrackingHandler(f.tracking, map[string]bool{"cancelled": true}, lgr),
		lgr,
	)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := newFixture().do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"alive": true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestStatusGroups(t *testing.T) {
	f := newFixture()
	f.tracking.groups = domain.StatusGroups{domain.CategoryNew: {"pending"}}

	rec := f.do(http.MethodGet, "/statuses/groups", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"new":["pending"]`)

	f.tracking.groupsErr = errors.New("failed to load statuses")
	rec = f.do(http.MethodGet, "/statuses/groups", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to load statuses")
}

func TestListOrders_Scopes(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantKey  string
	}{
		{"user", "?user_id=u-1", http.StatusOK, "user.u-1"},
		{"guest", "?fingerprint=fp-1", http.StatusOK, "device.fp-1"},
		{"admin", "?admin=true", http.StatusOK, "admin"},
		{"missing", "", http.StatusBadRequest, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(http.MethodGet, "/orders"+tc.query, "")
			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantKey != "" {
				assert.Equal(t, tc.wantKey, f.tracking.scope.Key())
			}
		})
	}

	t.Run("admin hides terminal", func(t *testing.T) {
		f := newFixture()
		f.do(http.MethodGet, "/orders?admin=true", "")
		assert.True(t, f.tracking.scope.Terminal["cancelled"])
	})
}

func TestGetOrder(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/orders/o-9", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view projection.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "o-9", view.ID)
	assert.Equal(t, "Ana", view.DisplayName)

	f.tracking.err = domain.ErrOrderNotFound
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/orders/o-9", "").Code)

	f.tracking.err = errors.New("db down")
	rec = f.do(http.MethodGet, "/orders/o-9", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestGetOrderHistory(t *testing.T) {
	rec := newFixture().do(http.MethodGet, "/orders/o-1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"status":"pending","timestamp":"2026-10-17T12:00:00Z","changed_by":"system"}]`, rec.Body.String())
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	body := `{"device_fingerprint":"fp-1","order_type":"pickup","items":[{"product_id":"p-1","name":"Tortilla","quantity":2,"unit_price":"6.50"}]}`

	rec := f.do(http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"o-1","order_number":"ORD_20261017_001","status":"pending","total":"13.00"}`, rec.Body.String())
	assert.Equal(t, "fp-1", *f.checkout.got.DeviceFingerprint)
	assert.True(t, f.checkout.got.Items[0].UnitPrice.Equal(decimal.RequireFromString("6.50")))
}

func TestCreateOrder_Errors(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/orders", "bad json").Code)

	f.checkout.err = checkout.ErrNoOwner
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/orders", `{}`).Code)

	f.checkout.err = fmt.Errorf("validation failed: %w", domain.ErrMissingAddress)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/orders", `{}`).Code)

	f.checkout.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, f.do(http.MethodPost, "/orders", `{}`).Code)
}

func TestCreateOrder_ValidationDetails(t *testing.T) {
	type item struct {
		Quantity int `json:"quantity" validate:"min=1"`
	}
	type command struct {
		Items []item `json:"items" validate:"dive"`
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	verr := v.Struct(command{Items: []item{{Quantity: 0}}})
	require.Error(t, verr)

	f := newFixture()
	f.checkout.err = fmt.Errorf("validation failed: %w", verr)
	rec := f.do(http.MethodPost, "/orders", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "items[0].quantity", resp.Errors[0].Field)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPatch, "/orders/o-1/status", `{"status":"confirmed","changed_by":"maria"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"o-1","status":"confirmed"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/orders/o-1/cancel", "").Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/orders/o-1?changed_by=maria", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/orders/o-1/status", `{}`).Code)

	assert.Equal(t, []string{
		"advance o-1 confirmed maria",
		"cancel o-1 admin",
		"delete o-1 maria",
	}, f.admin.calls)

	f.admin.err = fmt.Errorf("%w: pending -> delivered", domain.ErrInvalidStatusTransition)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPatch, "/orders/o-1/status", `{"status":"delivered"}`).Code)

	f.admin.err = domain.ErrOrderNotFound
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/orders/o-1", "").Code)
}

func TestRecovery(t *testing.T) {
	f := newFixture()
	f.tracking.panics = true

	rec := f.do(http.MethodGet, "/orders/o-1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	newFixture().handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
