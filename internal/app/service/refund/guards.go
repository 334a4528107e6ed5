package refund

import "github.com/fatflowers/paygate/internal/models"

// canComplete gates the callback-driven completion transition. Pending is
// included because the gateway may deliver the refund notification before
// our own refund call returns.
func canComplete(s models.RefundStatus) bool {
	return s == models.RefundStatusPending || s == models.RefundStatusProcessing
}

// canReject gates administrative rejection; once a refund has been handed to
// the gateway it can no longer be rejected locally.
func canReject(s models.RefundStatus) bool {
	return s == models.RefundStatusPending
}
