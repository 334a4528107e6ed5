package models

import (
	"time"

	"gorm.io/datatypes"
)

// WeChatPayment is the gateway-specific protocol sub-record, 1:1 with a
// PaymentTransaction. Created once at outbound-creation time and updated once
// more when the gateway responds.
type WeChatPayment struct {
	ID                   string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	PaymentTransactionID string `gorm:"column:payment_transaction_id;type:uuid;not null;uniqueIndex" json:"payment_transaction_id"`

	AppID    string `gorm:"column:app_id;type:varchar(64);not null" json:"app_id"`
	MchID    string `gorm:"column:mch_id;type:varchar(64);not null" json:"mch_id"`
	NonceStr string `gorm:"column:nonce_str;type:varchar(32);not null" json:"nonce_str"`

	// Body is the order description shown to the payer.
	Body string `gorm:"column:body;type:varchar(128);not null" json:"body"`
	// OutTradeNo mirrors PaymentTransaction.TransactionID on the wire.
	OutTradeNo string `gorm:"column:out_trade_no;type:varchar(64);not null;index" json:"out_trade_no"`
	// TotalFee is the amount in minor currency units (fen).
	TotalFee       int64  `gorm:"column:total_fee;type:bigint;not null" json:"total_fee"`
	SpbillCreateIP string `gorm:"column:spbill_create_ip;type:varchar(64)" json:"spbill_create_ip"`

	// PrepayID is the opaque prepay session token returned by unified order.
	PrepayID string `gorm:"column:prepay_id;type:varchar(64);index" json:"prepay_id"`
	CodeURL  string `gorm:"column:code_url;type:varchar(256)" json:"code_url"`

	// GatewayTransactionID is set from the payment notify callback.
	GatewayTransactionID string `gorm:"column:gateway_transaction_id;type:varchar(64);index" json:"gateway_transaction_id"`
	BankType             string `gorm:"column:bank_type;type:varchar(32)" json:"bank_type"`

	Sign     string `gorm:"column:sign;type:varchar(64)" json:"sign"`
	SignType string `gorm:"column:sign_type;type:varchar(16);default:'MD5'" json:"sign_type"`

	GatewayData datatypes.JSON `gorm:"column:gateway_data;type:jsonb;default:'{}'" json:"gateway_data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WeChatPayment) TableName() string { return "wechat_payment" }
