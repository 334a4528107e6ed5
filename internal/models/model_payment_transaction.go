package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/paygate/pkg/types"
)

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusProcessing    PaymentStatus = "processing"
	PaymentStatusSuccess       PaymentStatus = "success"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusCancelled     PaymentStatus = "cancelled"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusPartialRefund PaymentStatus = "partial_refund"
)

// PaymentTransaction records one attempted payment per (order, attempt).
// Rows are created pending, mutated only through the payment service, and
// never deleted. Amounts are stored in minor currency units.
type PaymentTransaction struct {
	ID string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	// TransactionID is the merchant order number presented to the gateway
	// (out_trade_no on the wire).
	TransactionID string `gorm:"column:transaction_id;type:varchar(64);not null;uniqueIndex" json:"transaction_id"`
	// OrderID references the external Order aggregate; the partial unique
	// index keeps a second transaction for the same order from also reaching
	// success.
	OrderID       string                  `gorm:"column:order_id;type:varchar(64);not null;index;uniqueIndex:uniq_order_success,where:status = 'success'" json:"order_id"`
	UserID        string                  `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PaymentMethod types.PaymentMethodName `gorm:"column:payment_method;type:varchar(32);not null" json:"payment_method"`
	Amount        int64                   `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency      string                  `gorm:"column:currency;type:varchar(8);not null;default:'CNY'" json:"currency"`
	Status        PaymentStatus           `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	// ExternalTransactionID is the gateway-assigned id, set only on success.
	ExternalTransactionID string `gorm:"column:external_transaction_id;type:varchar(128);index" json:"external_transaction_id"`

	PaidAt    *time.Time `gorm:"column:paid_at;default:null" json:"paid_at"`
	ExpiredAt *time.Time `gorm:"column:expired_at;default:null" json:"expired_at"`

	// PaymentData holds caller-supplied context (return/notify urls etc).
	PaymentData datatypes.JSON `gorm:"column:payment_data;type:jsonb;default:'{}'" json:"payment_data"`
	// CallbackData holds the last raw callback payload, for audit.
	CallbackData       datatypes.JSON `gorm:"column:callback_data;type:jsonb;default:'{}'" json:"callback_data"`
	CallbackReceivedAt *time.Time     `gorm:"column:callback_received_at;default:null" json:"callback_received_at"`

	ErrorCode    string `gorm:"column:error_code;type:varchar(64)" json:"error_code"`
	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transaction" }

// Refundable reports whether this transaction can accept a new refund request.
func (t *PaymentTransaction) Refundable() bool {
	if t == nil {
		return false
	}
	return t.Status == PaymentStatusSuccess || t.Status == PaymentStatusPartialRefund
}
