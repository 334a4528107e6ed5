package payment

import "github.com/fatflowers/paygate/internal/models"

// canApplySuccess is the idempotency guard: only a pending transaction may
// transition to success, and only one such transition can ever occur because
// the check runs against a transactionally-locked row.
func canApplySuccess(s models.PaymentStatus) bool {
	return s == models.PaymentStatusPending
}

func canCancel(s models.PaymentStatus) bool {
	return s == models.PaymentStatusPending || s == models.PaymentStatusProcessing
}

func canFail(s models.PaymentStatus) bool {
	return s == models.PaymentStatusPending
}
