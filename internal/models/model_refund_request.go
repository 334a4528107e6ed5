package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/paygate/pkg/types"
)

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusSuccess    RefundStatus = "success"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusRejected   RefundStatus = "rejected"
)

// CountsAgainstAmount reports whether a refund in this status is reserved
// against the parent transaction's amount for conservation checks.
func (s RefundStatus) CountsAgainstAmount() bool {
	switch s {
	case RefundStatusPending, RefundStatusProcessing, RefundStatusSuccess:
		return true
	}
	return false
}

// RefundRequest records one refund attempt against a payment transaction.
// The sum of amounts across non-failed, non-rejected refunds on one
// transaction never exceeds the transaction amount; the check runs at
// creation time inside the same database transaction.
type RefundRequest struct {
	ID string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	// RefundID is the merchant refund number presented to the gateway
	// (out_refund_no on the wire).
	RefundID string `gorm:"column:refund_id;type:varchar(64);not null;uniqueIndex" json:"refund_id"`
	// TransactionID references the parent PaymentTransaction by its merchant
	// transaction id.
	TransactionID string `gorm:"column:transaction_id;type:varchar(64);not null;index" json:"transaction_id"`
	OrderID       string `gorm:"column:order_id;type:varchar(64);not null;index" json:"order_id"`

	RefundType types.RefundType `gorm:"column:refund_type;type:varchar(16);not null;default:'full'" json:"refund_type"`
	Amount     int64            `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Reason     string           `gorm:"column:reason;type:text" json:"reason"`
	Status     RefundStatus     `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	ExternalRefundID string `gorm:"column:external_refund_id;type:varchar(128);index" json:"external_refund_id"`

	RequestedAt time.Time  `gorm:"column:requested_at;not null" json:"requested_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at;default:null" json:"processed_at"`
	CompletedAt *time.Time `gorm:"column:completed_at;default:null" json:"completed_at"`

	RefundData datatypes.JSON `gorm:"column:refund_data;type:jsonb;default:'{}'" json:"refund_data"`

	ErrorCode    string `gorm:"column:error_code;type:varchar(64)" json:"error_code"`
	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`

	// ProcessedBy / AdminNotes track administrative rejection.
	ProcessedBy string `gorm:"column:processed_by;type:varchar(64)" json:"processed_by"`
	AdminNotes  string `gorm:"column:admin_notes;type:text" json:"admin_notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RefundRequest) TableName() string { return "refund_request" }
