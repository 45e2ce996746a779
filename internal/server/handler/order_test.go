package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swaprouter/internal/domain"
	"github.com/alanyoungcy/swaprouter/internal/service"
)

// stubOrderService backs the handlers with canned responses.
type stubOrderService struct {
	submitResult service.SubmitResult
	submitErr    error
	order        domain.Order
	orderErr     error
	recent       []domain.Order
	report       service.AttestationReport
	reportErr    error
	lastSubmit   service.SubmitRequest
}

func (s *stubOrderService) Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error) {
	s.lastSubmit = req
	return s.submitResult, s.submitErr
}

func (s *stubOrderService) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.order, s.orderErr
}

func (s *stubOrderService) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Order, error) {
	return s.recent, nil
}

func (s *stubOrderService) VerifyAttestation(ctx context.Context, id string) (service.AttestationReport, error) {
	return s.report, s.reportErr
}

func newOrderMux(svc OrderService) *http.ServeMux {
	h := NewOrderHandler(svc, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", h.SubmitOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /api/orders/{id}/attestation", h.VerifyAttestation)
	return mux
}

func TestSubmitOrderAccepted(t *testing.T) {
	svc := &stubOrderService{submitResult: service.SubmitResult{
		OrderID:          "abc",
		SubscriptionHint: "/ws/orders/abc",
	}}
	mux := newOrderMux(svc)

	body := `{"token_in":"SOL","token_out":"USDC","amount":2.5}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var res service.SubmitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "abc", res.OrderID)
	assert.Equal(t, "/ws/orders/abc", res.SubscriptionHint)
	assert.Equal(t, "SOL", svc.lastSubmit.TokenIn)
	assert.Equal(t, 2.5, svc.lastSubmit.Amount)
}

func TestSubmitOrderInvalidBody(t *testing.T) {
	mux := newOrderMux(&stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitOrderValidationErrorMaps400(t *testing.T) {
	svc := &stubOrderService{
		submitErr: fmt.Errorf("%w: amount must be greater than zero", domain.ErrInvalidOrder),
	}
	mux := newOrderMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"token_in":"SOL","token_out":"USDC","amount":-1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "amount must be greater than zero")
}

func TestGetOrderNotFoundMaps404(t *testing.T) {
	mux := newOrderMux(&stubOrderService{orderErr: domain.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderReturnsRecord(t *testing.T) {
	mux := newOrderMux(&stubOrderService{order: domain.Order{
		ID:     "abc",
		Status: domain.OrderStatusConfirmed,
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)
}

func TestVerifyAttestationReturnsReport(t *testing.T) {
	mux := newOrderMux(&stubOrderService{report: service.AttestationReport{
		OrderID:       "abc",
		TransactionID: "tx-1",
		Valid:         true,
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/abc/attestation", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got service.AttestationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Valid)
	assert.Equal(t, "tx-1", got.TransactionID)
}

func TestVerifyAttestationMissingMaps404(t *testing.T) {
	mux := newOrderMux(&stubOrderService{reportErr: domain.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/abc/attestation", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrdersEmptyIsJSONArray(t *testing.T) {
	mux := newOrderMux(&stubOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[]}`, rec.Body.String())
}
