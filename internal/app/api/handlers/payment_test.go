package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/paygate/internal/app/service/payment"
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/wechat/protocol"
	"github.com/fatflowers/paygate/pkg/types"
)

type stubPaymentMgr struct {
	createResult *payment.CreatePaymentResult
	cancelResult types.ServiceResult
	getResult    *models.PaymentTransaction
}

func (s *stubPaymentMgr) CreatePayment(_ context.Context, _ *payment.CreatePaymentRequest) *payment.CreatePaymentResult {
	return s.createResult
}

func (s *stubPaymentMgr) ProcessPaymentSuccess(_ context.Context, _ string, _ *protocol.Fields) types.ServiceResult {
	panic("not used")
}

func (s *stubPaymentMgr) CancelPayment(_ context.Context, _ string) types.ServiceResult {
	return s.cancelResult
}

func (s *stubPaymentMgr) GetPayment(_ context.Context, _ string) (*models.PaymentTransaction, bool) {
	return s.getResult, s.getResult != nil
}

func (s *stubPaymentMgr) ScanPayments(_ context.Context, _ *payment.ScanPaymentsRequest) (*payment.ScanPaymentsResponse, error) {
	return &payment.ScanPaymentsResponse{
		Items: []*models.PaymentTransaction{s.getResult},
		Total: 1,
	}, nil
}

func paymentRouter(mgr payment.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPaymentRoutes(r.Group("/api/v1"), mgr)
	return r
}

func TestApiCreatePayment_ReturnsPrepayParams(t *testing.T) {
	mgr := &stubPaymentMgr{createResult: &payment.CreatePaymentResult{
		ServiceResult: types.OKResult("payment created successfully"),
		Transaction:   &models.PaymentTransaction{TransactionID: "pay_abc123"},
		PrepayID:      "wx20260828prepay",
		PaymentParams: map[string]string{"package": "prepay_id=wx20260828prepay"},
	}}
	r := paymentRouter(mgr)

	body, _ := json.Marshal(map[string]any{"order_id": "order-1", "user_id": "user-1", "method": "wechat_pay"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "wx20260828prepay")
	require.Contains(t, w.Body.String(), `"code":0`)
}

func TestApiCreatePayment_ServiceFailureStaysHTTP200(t *testing.T) {
	mgr := &stubPaymentMgr{createResult: &payment.CreatePaymentResult{
		ServiceResult: types.FailResult("order is not awaiting payment"),
	}}
	r := paymentRouter(mgr)

	body, _ := json.Marshal(map[string]any{"order_id": "order-1", "user_id": "user-1", "method": "wechat_pay"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiGetPayment_NotFound(t *testing.T) {
	r := paymentRouter(&stubPaymentMgr{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/pay_missing", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40400`)
}

func TestApiCancelPayment(t *testing.T) {
	mgr := &stubPaymentMgr{cancelResult: types.OKResult("payment cancelled successfully")}
	r := paymentRouter(mgr)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/pay_abc123/cancel", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":0`)
}

func TestRegisterPaymentRoutes_RegistersEndpoints(t *testing.T) {
	r := paymentRouter(&stubPaymentMgr{})

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/payments"))
	require.True(t, contains("POST /api/v1/payments/:id/cancel"))
	require.True(t, contains("GET /api/v1/payments/:id"))
}
