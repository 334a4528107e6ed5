package tool

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GeneratePaymentID returns a merchant-side transaction id ("pay_" + 16 hex).
func GeneratePaymentID() string {
	return "pay_" + randomHex()[:16]
}

// GenerateRefundID returns a merchant-side refund id ("refund_" + 16 hex).
func GenerateRefundID() string {
	return "refund_" + randomHex()[:16]
}

// GenerateNonce returns the 32-char random string used as the gateway
// signature nonce.
func GenerateNonce() string {
	return randomHex()
}
