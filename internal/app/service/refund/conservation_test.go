package refund

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/types"
)

func refundWith(status models.RefundStatus, amount int64) *models.RefundRequest {
	return &models.RefundRequest{Status: status, Amount: amount}
}

func TestReservedAmount(t *testing.T) {
	siblings := []*models.RefundRequest{
		refundWith(models.RefundStatusPending, 10),
		refundWith(models.RefundStatusProcessing, 20),
		refundWith(models.RefundStatusSuccess, 30),
		refundWith(models.RefundStatusFailed, 40),
		refundWith(models.RefundStatusRejected, 50),
	}
	// failed and rejected release their reservation
	assert.Equal(t, int64(60), reservedAmount(siblings))
	assert.Equal(t, int64(30), refundedAmount(siblings))
}

func TestExceedsParent(t *testing.T) {
	tests := []struct {
		name      string
		parent    int64
		requested int64
		siblings  []*models.RefundRequest
		exceeds   bool
	}{
		{
			name:      "full refund on untouched parent",
			parent:    100,
			requested: 100,
			exceeds:   false,
		},
		{
			name:      "one minor unit over",
			parent:    100,
			requested: 101,
			exceeds:   true,
		},
		{
			name:      "second partial over the balance",
			parent:    100,
			requested: 50,
			siblings:  []*models.RefundRequest{refundWith(models.RefundStatusSuccess, 60)},
			exceeds:   true,
		},
		{
			name:      "second partial within the balance",
			parent:    100,
			requested: 40,
			siblings:  []*models.RefundRequest{refundWith(models.RefundStatusSuccess, 60)},
			exceeds:   false,
		},
		{
			name:      "pending sibling reserves its amount",
			parent:    100,
			requested: 50,
			siblings:  []*models.RefundRequest{refundWith(models.RefundStatusPending, 60)},
			exceeds:   true,
		},
		{
			name:      "failed sibling releases its amount",
			parent:    100,
			requested: 100,
			siblings:  []*models.RefundRequest{refundWith(models.RefundStatusFailed, 60)},
			exceeds:   false,
		},
		{
			name:      "rejected sibling releases its amount",
			parent:    100,
			requested: 100,
			siblings:  []*models.RefundRequest{refundWith(models.RefundStatusRejected, 60)},
			exceeds:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.exceeds, exceedsParent(tt.parent, tt.requested, tt.siblings))
		})
	}
}

func TestClassifyRefundType(t *testing.T) {
	assert.Equal(t, types.RefundTypeFull, classifyRefundType(100, 100))
	assert.Equal(t, types.RefundTypePartial, classifyRefundType(100, 99))
}
