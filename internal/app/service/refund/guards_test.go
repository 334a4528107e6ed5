package refund

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fatflowers/paygate/internal/models"
)

func TestCanComplete(t *testing.T) {
	tests := []struct {
		status models.RefundStatus
		want   bool
	}{
		{models.RefundStatusPending, true},
		{models.RefundStatusProcessing, true},
		{models.RefundStatusSuccess, false},
		{models.RefundStatusFailed, false},
		{models.RefundStatusRejected, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, canComplete(tt.status))
		})
	}
}

func TestCanReject(t *testing.T) {
	tests := []struct {
		status models.RefundStatus
		want   bool
	}{
		{models.RefundStatusPending, true},
		{models.RefundStatusProcessing, false},
		{models.RefundStatusSuccess, false},
		{models.RefundStatusFailed, false},
		{models.RefundStatusRejected, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, canReject(tt.status))
		})
	}
}
