package refund

import (
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/types"
)

// reservedAmount sums the amounts of refund requests that still count
// against the parent transaction. Failed and rejected requests release
// their reservation.
func reservedAmount(siblings []*models.RefundRequest) int64 {
	var total int64
	for _, r := range siblings {
		if r.Status.CountsAgainstAmount() {
			total += r.Amount
		}
	}
	return total
}

// refundedAmount sums only completed refunds, used when rolling the parent
// transaction up to refunded / partial_refund.
func refundedAmount(siblings []*models.RefundRequest) int64 {
	var total int64
	for _, r := range siblings {
		if r.Status == models.RefundStatusSuccess {
			total += r.Amount
		}
	}
	return total
}

// exceedsParent reports whether adding requested to the currently reserved
// amount would overrun the parent transaction amount.
func exceedsParent(parentAmount, requested int64, siblings []*models.RefundRequest) bool {
	return reservedAmount(siblings)+requested > parentAmount
}

func classifyRefundType(parentAmount, requested int64) types.RefundType {
	if requested >= parentAmount {
		return types.RefundTypeFull
	}
	return types.RefundTypePartial
}
