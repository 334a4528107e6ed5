package types

// PaymentMethodName identifies a supported payment channel.
type PaymentMethodName string

const (
	PaymentMethodWeChatPay PaymentMethodName = "wechat_pay"
	PaymentMethodAlipay    PaymentMethodName = "alipay"
	PaymentMethodBankCard  PaymentMethodName = "bank_card"
	PaymentMethodBalance   PaymentMethodName = "balance"
)

// CallbackChannel distinguishes the two inbound gateway notification channels.
type CallbackChannel string

const (
	CallbackChannelPayment CallbackChannel = "payment"
	CallbackChannelRefund  CallbackChannel = "refund"
)

// RefundType marks whether a refund covers the whole original payment.
type RefundType string

const (
	RefundTypeFull    RefundType = "full"
	RefundTypePartial RefundType = "partial"
)
