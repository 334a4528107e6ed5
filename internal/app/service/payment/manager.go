package payment

import (
	"context"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/wechat/protocol"
	"github.com/fatflowers/paygate/pkg/types"
)

type CreatePaymentRequest struct {
	UserID      string                  `json:"user_id"`
	OrderID     string                  `json:"order_id"`
	Method      types.PaymentMethodName `json:"method"`
	OpenID      string                  `json:"openid"`
	Description string                  `json:"description"`
	ClientIP    string                  `json:"client_ip"`
	ReturnURL   string                  `json:"return_url"`
	NotifyURL   string                  `json:"notify_url"`
}

type CreatePaymentResult struct {
	types.ServiceResult
	Transaction *models.PaymentTransaction `json:"transaction,omitempty"`
	PrepayID    string                     `json:"prepay_id,omitempty"`
	// PaymentParams are the signed client-side parameters (JSAPI) the payer
	// uses to complete the prepay session.
	PaymentParams map[string]string `json:"payment_params,omitempty"`
}

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.PaymentTransaction `json:"items"`
	Total int64                        `json:"total"`
}

// Manager is the payment transaction ledger surface consumed by the HTTP
// layer and the callback processor. Operations return explicit results, not
// raised errors.
type Manager interface {
	// Create a pending transaction and obtain a prepay session from the gateway.
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) *CreatePaymentResult
	// Idempotently apply a successful payment; only a pending row transitions.
	ProcessPaymentSuccess(ctx context.Context, transactionID string, callback *protocol.Fields) types.ServiceResult
	// Cancel a pending/processing transaction.
	CancelPayment(ctx context.Context, transactionID string) types.ServiceResult
	// Option-style lookup by merchant transaction id.
	GetPayment(ctx context.Context, transactionID string) (*models.PaymentTransaction, bool)
	// Paginated/admin listing with filters.
	ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error)
}
