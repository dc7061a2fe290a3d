package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/server/http/dto"
	"github.com/polkiloo/boxoffice/internal/server/http/middleware"
	testhelpers "github.com/polkiloo/boxoffice/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(t *testing.T, method, route, path string, handler gin.HandlerFunc, setup func(*gin.Context), body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, route, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asUser(id int64) func(*gin.Context) {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, id)
	}
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", resp.Body.String(), err)
	}
	return body
}

func TestCurrentUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentUserID(c); got != 0 {
		t.Fatalf("expected 0 when not set, got %d", got)
	}

	c.Set(middleware.UserIDContextKey, int64(42))
	if got := CurrentUserID(c); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestCheckoutHandlerCreate(t *testing.T) {
	expires := time.Date(2026, 6, 1, 18, 15, 0, 0, time.UTC)
	name := testhelpers.RandomASCIIString(5, 12)
	var got model.CheckoutRequest
	handler := NewCheckoutHandler(testhelpers.CheckoutFacadeStub{CheckoutFn: func(_ context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
		got = req
		return &model.CheckoutResult{
			Order:    &model.Order{ID: 9, Number: "BO-20260601-0000ABCD", Total: 1300, ExpiresAt: &expires},
			Redirect: model.Redirect{Endpoint: "https://pay.example.com", Fields: map[string]string{"order_ref": "BO-20260601-0000ABCD"}},
		}, nil
	}})

	body := []byte(fmt.Sprintf(`{
		"items":[{"type":"ticket","entry_id":1,"quantity":2},{"type":"product","entry_id":3,"quantity":1}],
		"billing":{"name":%q,"email":"buyer@example.com","phone":"+1"},
		"promo_code":"FRIENDS",
		"client_total":1300
	}`, name))
	resp := performRequest(t, http.MethodPost, "/orders", "/orders", handler.Create, asUser(7), body, jsonHeaders)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	if got.UserID != 7 || len(got.Items) != 2 || got.Items[1].Type != model.ItemTypeProduct || got.Items[0].Quantity != 2 {
		t.Fatalf("unexpected request passed to facade %+v", got)
	}
	if got.Billing.Name != name || got.PromoCode != "FRIENDS" || got.ClientTotal == nil || *got.ClientTotal != 1300 {
		t.Fatalf("unexpected billing or totals %+v", got)
	}

	var decoded dto.CheckoutResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.OrderID != 9 || decoded.Total != 1300 || decoded.ExpiresAt == nil || !decoded.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected response %+v", decoded)
	}
	if decoded.Redirect.Fields["order_ref"] != "BO-20260601-0000ABCD" {
		t.Fatalf("unexpected redirect %+v", decoded.Redirect)
	}
}

func TestCheckoutHandlerCreateFailures(t *testing.T) {
	valid := []byte(`{"items":[{"type":"ticket","entry_id":1,"quantity":1}]}`)
	failWith := func(err error) testhelpers.CheckoutFacadeStub {
		return testhelpers.CheckoutFacadeStub{CheckoutFn: func(context.Context, model.CheckoutRequest) (*model.CheckoutResult, error) {
			return nil, err
		}}
	}

	tests := []struct {
		name   string
		facade testhelpers.CheckoutFacadeStub
		body   []byte
		status int
		code   string
	}{
		{name: "bad json", body: []byte("not json"), status: http.StatusBadRequest, code: "invalid_request"},
		{name: "invalid", body: valid, facade: failWith(fmt.Errorf("%w: no items", domainErrors.ErrInvalidRequest)), status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unavailable", body: valid, facade: failWith(&domainErrors.UnavailableError{EntryID: 1, Reason: "is not on sale"}), status: http.StatusUnprocessableEntity, code: "item_unavailable"},
		{name: "out of stock", body: valid, facade: failWith(&domainErrors.StockError{EntryID: 1, Requested: 2, Remaining: 1}), status: http.StatusConflict, code: "out_of_stock"},
		{name: "internal", body: valid, facade: failWith(errors.New("db down")), status: http.StatusInternalServerError, code: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/orders", "/orders", NewCheckoutHandler(tt.facade).Create, asUser(1), tt.body, jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			body := decodeError(t, resp)
			if body.Error != tt.code {
				t.Fatalf("expected code %q, got %+v", tt.code, body)
			}
			if tt.code == "internal" && body.Message == "db down" {
				t.Fatal("expected internal error text to stay private")
			}
		})
	}
}

func TestCheckoutHandlerPriceChangedCarriesTotal(t *testing.T) {
	handler := NewCheckoutHandler(testhelpers.CheckoutFacadeStub{CheckoutFn: func(context.Context, model.CheckoutRequest) (*model.CheckoutResult, error) {
		return nil, &domainErrors.PriceMismatchError{Client: 900, Computed: 800}
	}})
	resp := performRequest(t, http.MethodPost, "/orders", "/orders", handler.Create, asUser(1), []byte(`{"items":[]}`), jsonHeaders)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	body := decodeError(t, resp)
	if body.Error != "price_changed" || body.Total == nil || *body.Total != 800 {
		t.Fatalf("expected computed total in body, got %+v", body)
	}
}

func TestCheckoutHandlerGet(t *testing.T) {
	paidAt := time.Date(2026, 6, 1, 18, 5, 0, 0, time.UTC)
	handler := NewCheckoutHandler(testhelpers.CheckoutFacadeStub{OrderFn: func(_ context.Context, userID, orderID int64) (*model.Order, error) {
		if userID != 4 || orderID != 12 {
			t.Fatalf("unexpected ids %d %d", userID, orderID)
		}
		return &model.Order{
			ID: 12, Number: "BO-12", Status: model.OrderStatusPaid, Total: 1000, PaidAt: &paidAt,
			Items:   []model.LineItem{{Type: model.ItemTypeTicket, EntryID: 1, Name: "GA", Quantity: 2, UnitPrice: 500}},
			Tickets: []model.IssuedTicket{{Code: "T1", EntryID: 1}, {Code: "T2", EntryID: 1}},
		}, nil
	}})

	resp := performRequest(t, http.MethodGet, "/orders/:id", "/orders/12", handler.Get, asUser(4), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var decoded dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.Status != "paid" || len(decoded.Tickets) != 2 || decoded.Items[0].Total != 1000 || decoded.ExpiresAt != nil {
		t.Fatalf("unexpected order response %+v", decoded)
	}
}

func TestCheckoutHandlerOrderErrors(t *testing.T) {
	stub := testhelpers.CheckoutFacadeStub{
		OrderFn: func(context.Context, int64, int64) (*model.Order, error) {
			return nil, domainErrors.ErrOrderNotFound
		},
		RepayFn: func(context.Context, int64, int64) (*model.CheckoutResult, error) {
			return nil, domainErrors.ErrExpired
		},
		CancelFn: func(context.Context, int64, int64) (*model.Order, error) {
			return nil, fmt.Errorf("%w: order is paid", domainErrors.ErrInvalidStateTransition)
		},
	}
	handler := NewCheckoutHandler(stub)

	tests := []struct {
		name    string
		method  string
		route   string
		path    string
		handler gin.HandlerFunc
		status  int
		code    string
	}{
		{"get missing", http.MethodGet, "/orders/:id", "/orders/5", handler.Get, http.StatusNotFound, "order_not_found"},
		{"get bad id", http.MethodGet, "/orders/:id", "/orders/abc", handler.Get, http.StatusNotFound, "order_not_found"},
		{"repay expired", http.MethodPost, "/orders/:id/repay", "/orders/5/repay", handler.Repay, http.StatusGone, "expired"},
		{"repay bad id", http.MethodPost, "/orders/:id/repay", "/orders/-1/repay", handler.Repay, http.StatusNotFound, "order_not_found"},
		{"cancel paid", http.MethodPost, "/orders/:id/cancel", "/orders/5/cancel", handler.Cancel, http.StatusConflict, "invalid_state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, tt.method, tt.route, tt.path, tt.handler, asUser(1), nil, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			if body := decodeError(t, resp); body.Error != tt.code {
				t.Fatalf("expected code %q, got %+v", tt.code, body)
			}
		})
	}
}

func TestCheckoutHandlerRepayAndCancel(t *testing.T) {
	handler := NewCheckoutHandler(testhelpers.CheckoutFacadeStub{})

	resp := performRequest(t, http.MethodPost, "/orders/:id/repay", "/orders/8/repay", handler.Repay, asUser(1), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var repaid dto.CheckoutResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &repaid); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if repaid.OrderID != 8 || repaid.Redirect.Fields["attempt_ref"] != "r2" {
		t.Fatalf("unexpected repay response %+v", repaid)
	}

	resp = performRequest(t, http.MethodPost, "/orders/:id/cancel", "/orders/8/cancel", handler.Cancel, asUser(1), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var cancelled dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if cancelled.Status != "cancelled" || cancelled.CancelReason != model.CancelReasonCancelled {
		t.Fatalf("unexpected cancel response %+v", cancelled)
	}
}

func TestPaymentHandlerCallback(t *testing.T) {
	payload := []byte("order_ref=BO-1&attempt_ref=a&status=success&signature=abc")
	var got []byte
	handler := NewPaymentHandler(testhelpers.CheckoutFacadeStub{CallbackFn: func(_ context.Context, raw []byte) error {
		got = raw
		return nil
	}})

	resp := performRequest(t, http.MethodPost, "/callback", "/callback", handler.Callback, nil, payload, map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if resp.Code != http.StatusOK || resp.Body.String() != "OK" {
		t.Fatalf("expected plain OK ack, got %d %q", resp.Code, resp.Body.String())
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected raw payload to reach facade, got %q", got)
	}
}

func TestPaymentHandlerCallbackFailures(t *testing.T) {
	failWith := func(err error) testhelpers.CheckoutFacadeStub {
		return testhelpers.CheckoutFacadeStub{CallbackFn: func(context.Context, []byte) error { return err }}
	}
	tests := []struct {
		name   string
		facade testhelpers.CheckoutFacadeStub
		body   []byte
		status int
		code   string
	}{
		{name: "empty", body: nil, status: http.StatusBadRequest, code: "invalid_callback"},
		{name: "bad signature", body: []byte("x=1"), facade: failWith(fmt.Errorf("%w: signature mismatch", domainErrors.ErrInvalidCallback)), status: http.StatusBadRequest, code: "invalid_callback"},
		{name: "unknown order", body: []byte("x=1"), facade: failWith(domainErrors.ErrOrderNotFound), status: http.StatusNotFound, code: "order_not_found"},
		{name: "internal", body: []byte("x=1"), facade: failWith(errors.New("boom")), status: http.StatusInternalServerError, code: "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/callback", "/callback", NewPaymentHandler(tt.facade).Callback, nil, tt.body, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			if body := decodeError(t, resp); body.Error != tt.code {
				t.Fatalf("expected code %q, got %+v", tt.code, body)
			}
		})
	}
}

func TestPaymentHandlerCallbackAcknowledgesClosedAttempts(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("%w: attempt superseded", domainErrors.ErrInvalidStateTransition),
		fmt.Errorf("%w: attempt is failure", domainErrors.ErrInvalidStateTransition),
	} {
		handler := NewPaymentHandler(testhelpers.CheckoutFacadeStub{CallbackFn: func(context.Context, []byte) error { return err }})
		resp := performRequest(t, http.MethodPost, "/callback", "/callback", handler.Callback, nil, []byte("x=1"), nil)
		if resp.Code != http.StatusOK || resp.Body.String() != "OK" {
			t.Fatalf("expected %v to be acknowledged, got %d %q", err, resp.Code, resp.Body.String())
		}
	}
}

func TestPaymentHandlerConfirmSandbox(t *testing.T) {
	var gotUser, gotOrder int64
	handler := NewPaymentHandler(testhelpers.CheckoutFacadeStub{ConfirmSandboxFn: func(_ context.Context, userID, orderID int64) (*model.Order, error) {
		gotUser, gotOrder = userID, orderID
		return &model.Order{ID: orderID, Status: model.OrderStatusPaid}, nil
	}})
	resp := performRequest(t, http.MethodPost, "/sandbox/:id/confirm", "/sandbox/31/confirm", handler.ConfirmSandbox, asUser(3), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotUser != 3 || gotOrder != 31 {
		t.Fatalf("unexpected ids %d %d", gotUser, gotOrder)
	}

	handler = NewPaymentHandler(testhelpers.CheckoutFacadeStub{ConfirmSandboxFn: func(context.Context, int64, int64) (*model.Order, error) {
		return nil, domainErrors.ErrExpired
	}})
	resp = performRequest(t, http.MethodPost, "/sandbox/:id/confirm", "/sandbox/31/confirm", handler.ConfirmSandbox, asUser(3), nil, nil)
	if resp.Code != http.StatusGone {
		t.Fatalf("expected status 410, got %d", resp.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(testhelpers.CheckoutFacadeStub{}).Check, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	unhealthy := testhelpers.CheckoutFacadeStub{HealthFn: func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatal("expected health check to be bounded")
		}
		return errors.New("connection refused")
	}}
	resp = performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(unhealthy).Check, nil, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
	var decoded dto.HealthResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil || decoded.Status != "unavailable" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}
