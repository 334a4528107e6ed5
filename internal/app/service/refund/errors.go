package refund

import "errors"

// Sentinel errors stay internal to the package; callers only ever see the
// ServiceResult translation.
var (
	errRefundNotFound       = errors.New("refund request not found")
	errRefundNotPending     = errors.New("refund request is not pending")
	errRefundAlreadyFinal   = errors.New("refund request already finalized")
	errPaymentNotFound      = errors.New("payment transaction not found")
	errPaymentNotRefundable = errors.New("payment transaction is not refundable")
	errAmountExceedsParent  = errors.New("refund amount exceeds refundable balance")
)
