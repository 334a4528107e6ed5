package payment

import "errors"

var (
	errPaymentNotFound       = errors.New("payment transaction not found")
	errPaymentNotPending     = errors.New("payment is not in pending status")
	errPaymentNotCancellable = errors.New("payment cannot be cancelled in current status")
)
