package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/paygate/pkg/types"
)

// PaymentCallbackLog is an append-only forensic record of every inbound
// gateway delivery. One row per HTTP delivery, not per logical event:
// duplicate deliveries produce duplicate rows by design.
type PaymentCallbackLog struct {
	ID            string                  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Channel       types.CallbackChannel   `gorm:"column:channel;type:varchar(16);not null;index" json:"channel"`
	PaymentMethod types.PaymentMethodName `gorm:"column:payment_method;type:varchar(32);not null" json:"payment_method"`

	RequestMethod  string         `gorm:"column:request_method;type:varchar(10);not null" json:"request_method"`
	RequestPath    string         `gorm:"column:request_path;type:varchar(200);not null" json:"request_path"`
	RequestHeaders datatypes.JSON `gorm:"column:request_headers;type:jsonb;default:'{}'" json:"request_headers"`
	RequestBody    string         `gorm:"column:request_body;type:text" json:"request_body"`
	SourceIP       string         `gorm:"column:source_ip;type:varchar(64)" json:"source_ip"`

	Processed       bool   `gorm:"column:processed;not null;default:false;index" json:"processed"`
	ProcessingError string `gorm:"column:processing_error;type:text" json:"processing_error"`

	TransactionID string `gorm:"column:transaction_id;type:varchar(64);index" json:"transaction_id"`
	RefundID      string `gorm:"column:refund_id;type:varchar(64);index" json:"refund_id"`

	ResponseStatus int    `gorm:"column:response_status;not null" json:"response_status"`
	ResponseBody   string `gorm:"column:response_body;type:text" json:"response_body"`

	ReceivedAt time.Time `gorm:"column:received_at;not null;index" json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (PaymentCallbackLog) TableName() string { return "payment_callback_log" }
