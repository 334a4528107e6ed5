package protocol

// Wire field names shared across V2 messages.
const (
	FieldSign          = "sign"
	FieldSignType      = "sign_type"
	FieldReturnCode    = "return_code"
	FieldReturnMsg     = "return_msg"
	FieldResultCode    = "result_code"
	FieldErrCode       = "err_code"
	FieldErrCodeDes    = "err_code_des"
	FieldAppID         = "appid"
	FieldMchID         = "mch_id"
	FieldNonceStr      = "nonce_str"
	FieldBody          = "body"
	FieldOutTradeNo    = "out_trade_no"
	FieldOutRefundNo   = "out_refund_no"
	FieldTotalFee      = "total_fee"
	FieldRefundFee     = "refund_fee"
	FieldFeeType       = "fee_type"
	FieldSpbillIP      = "spbill_create_ip"
	FieldNotifyURL     = "notify_url"
	FieldTradeType     = "trade_type"
	FieldOpenID        = "openid"
	FieldPrepayID      = "prepay_id"
	FieldCodeURL       = "code_url"
	FieldTransactionID = "transaction_id"
	FieldRefundID      = "refund_id"
	FieldRefundStatus  = "refund_status"
	FieldBankType      = "bank_type"
	FieldTimeEnd       = "time_end"
	FieldCashFee       = "cash_fee"
	FieldSettlementFee = "settlement_total_fee"
	FieldRefundDesc    = "refund_desc"
)

const (
	CodeSuccess = "SUCCESS"
	CodeFail    = "FAIL"

	RefundStatusSuccess = "SUCCESS"
	RefundStatusClosed  = "CLOSED"
	RefundStatusChange  = "CHANGE"

	TradeTypeJSAPI  = "JSAPI"
	TradeTypeNative = "NATIVE"

	SignTypeMD5 = "MD5"
)

// MessageType names the known V2 message shapes; each carries an allow-list
// of field names validated at the protocol boundary.
type MessageType string

const (
	MessageUnifiedOrderRequest  MessageType = "unified_order_request"
	MessageUnifiedOrderResponse MessageType = "unified_order_response"
	MessageRefundRequest        MessageType = "refund_request"
	MessageRefundResponse       MessageType = "refund_response"
	MessagePaymentNotify        MessageType = "payment_notify"
	MessageRefundNotify         MessageType = "refund_notify"
)

func fieldSet(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

var knownFields = map[MessageType]map[string]struct{}{
	MessageUnifiedOrderRequest: fieldSet(
		FieldAppID, FieldMchID, FieldNonceStr, FieldBody, FieldOutTradeNo,
		FieldTotalFee, FieldFeeType, FieldSpbillIP, FieldNotifyURL,
		FieldTradeType, FieldOpenID, FieldSignType, FieldSign,
	),
	MessageUnifiedOrderResponse: fieldSet(
		FieldReturnCode, FieldReturnMsg, FieldAppID, FieldMchID, FieldNonceStr,
		FieldResultCode, FieldErrCode, FieldErrCodeDes, FieldTradeType,
		FieldPrepayID, FieldCodeURL, FieldSign,
	),
	MessageRefundRequest: fieldSet(
		FieldAppID, FieldMchID, FieldNonceStr, FieldOutTradeNo, FieldOutRefundNo,
		FieldTotalFee, FieldRefundFee, FieldRefundDesc, FieldNotifyURL,
		FieldSignType, FieldSign,
	),
	MessageRefundResponse: fieldSet(
		FieldReturnCode, FieldReturnMsg, FieldAppID, FieldMchID, FieldNonceStr,
		FieldResultCode, FieldErrCode, FieldErrCodeDes, FieldOutTradeNo,
		FieldOutRefundNo, FieldRefundID, FieldRefundFee, FieldTotalFee, FieldSign,
	),
	MessagePaymentNotify: fieldSet(
		FieldReturnCode, FieldReturnMsg, FieldAppID, FieldMchID, FieldNonceStr,
		FieldResultCode, FieldErrCode, FieldErrCodeDes, FieldOpenID,
		FieldTradeType, FieldBankType, FieldTotalFee, FieldCashFee,
		FieldSettlementFee, FieldFeeType, FieldTransactionID, FieldOutTradeNo,
		FieldTimeEnd, FieldSign,
	),
	MessageRefundNotify: fieldSet(
		FieldReturnCode, FieldReturnMsg, FieldAppID, FieldMchID, FieldNonceStr,
		FieldResultCode, FieldErrCode, FieldErrCodeDes, FieldOutTradeNo,
		FieldOutRefundNo, FieldRefundID, FieldTransactionID, FieldRefundStatus,
		FieldRefundFee, FieldTotalFee, FieldSign,
	),
}
