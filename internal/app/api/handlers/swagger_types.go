package handlers

import (
	"github.com/fatflowers/paygate/internal/app/service/payment"
	"github.com/fatflowers/paygate/internal/app/service/refund"
	"github.com/fatflowers/paygate/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespCreatePayment wraps CreatePaymentResult in the standard envelope.
type RespCreatePayment struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    payment.CreatePaymentResult `json:"data"`
}

// RespGetPayment wraps one payment transaction in the standard envelope.
type RespGetPayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    PaymentItem              `json:"data"`
}

// RespCreateRefund wraps CreateRefundResult in the standard envelope.
type RespCreateRefund struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    refund.CreateRefundResult `json:"data"`
}

// RespGetRefund wraps one refund request in the standard envelope.
type RespGetRefund struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    RefundItem               `json:"data"`
}

// RespListPayments wraps ListPaymentsResponse in the standard envelope.
type RespListPayments struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ListPaymentsResponse     `json:"data"`
}

// RespListRefunds wraps ListRefundsResponse in the standard envelope.
type RespListRefunds struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ListRefundsResponse      `json:"data"`
}
