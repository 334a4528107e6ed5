package refund

import (
	"context"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/wechat/protocol"
	"github.com/fatflowers/paygate/pkg/types"
)

type CreateRefundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
}

type CreateRefundResult struct {
	types.ServiceResult
	Refund *models.RefundRequest `json:"refund,omitempty"`
}

type RejectRefundRequest struct {
	RefundID    string `json:"refund_id"`
	ProcessedBy string `json:"processed_by"`
	AdminNotes  string `json:"admin_notes"`
}

type ScanRefundsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanRefundsResponse struct {
	Items []*models.RefundRequest `json:"items"`
	Total int64                   `json:"total"`
}

// Manager is the refund request ledger surface. Refund completion arrives
// exclusively through the refund callback channel, never by polling.
type Manager interface {
	// Create an amount-conserving refund request against a successful payment
	// and hand it to the gateway.
	CreateRefundRequest(ctx context.Context, req *CreateRefundRequest) *CreateRefundResult
	// Apply a refund completion delivered by the callback channel.
	CompleteRefund(ctx context.Context, refundID string, callback *protocol.Fields) types.ServiceResult
	// Administratively reject a pending refund; no gateway round-trip.
	RejectRefund(ctx context.Context, req *RejectRefundRequest) types.ServiceResult
	// Option-style lookup by merchant refund id.
	GetRefund(ctx context.Context, refundID string) (*models.RefundRequest, bool)
	// Paginated/admin listing with filters.
	ScanRefunds(ctx context.Context, req *ScanRefundsRequest) (*ScanRefundsResponse, error)
}
