// Package callback turns raw gateway deliveries into ledger transitions.
// Every delivery is audited before parsing, processed at most once by the
// owning ledger, and answered with exactly one acknowledgement envelope over
// HTTP 200; the envelope body alone tells the gateway whether to redeliver.
package callback

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/wechat/protocol"
	cfgpkg "github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/metrics"
	"github.com/fatflowers/paygate/pkg/types"
)

// PaymentLedger applies payment success transitions; implemented by the
// payment service.
type PaymentLedger interface {
	ProcessPaymentSuccess(ctx context.Context, transactionID string, callback *protocol.Fields) types.ServiceResult
}

// RefundLedger applies refund completions; implemented by the refund service.
type RefundLedger interface {
	CompleteRefund(ctx context.Context, refundID string, callback *protocol.Fields) types.ServiceResult
}

// AuditRecorder persists the forensic trail; implemented by the auditlog
// service.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.PaymentCallbackLog) *models.PaymentCallbackLog
	Finish(ctx context.Context, entry *models.PaymentCallbackLog)
}

// Delivery is one inbound HTTP delivery from the gateway, captured before
// any parsing.
type Delivery struct {
	Method   string
	Path     string
	Headers  map[string]string
	Body     []byte
	SourceIP string
}

type Processor struct {
	cfg      *cfgpkg.Config
	log      *zap.SugaredLogger
	payments PaymentLedger
	refunds  RefundLedger
	audit    AuditRecorder
	metrics  *metrics.Prometheus
}

func NewProcessor(cfg *cfgpkg.Config, log *zap.SugaredLogger, payments PaymentLedger, refunds RefundLedger, audit AuditRecorder, m *metrics.Prometheus) *Processor {
	return &Processor{cfg: cfg, log: log, payments: payments, refunds: refunds, audit: audit, metrics: m}
}

// HandlePaymentCallback processes one payment notification delivery and
// returns the acknowledgement to send back. The caller always answers
// HTTP 200 with the returned envelope.
func (p *Processor) HandlePaymentCallback(ctx context.Context, d *Delivery) protocol.Ack {
	return p.handle(ctx, types.CallbackChannelPayment, d)
}

// HandleRefundCallback processes one refund notification delivery.
func (p *Processor) HandleRefundCallback(ctx context.Context, d *Delivery) protocol.Ack {
	return p.handle(ctx, types.CallbackChannelRefund, d)
}

func (p *Processor) handle(ctx context.Context, channel types.CallbackChannel, d *Delivery) (ack protocol.Ack) {
	entry := p.record(ctx, channel, d)
	defer func() {
		if r := recover(); r != nil {
			logctx.FromCtx(ctx, p.log).Errorw("callback_panic", "channel", channel, "panic", r)
			ack = protocol.AckFail("")
			entry.ProcessingError = "internal error"
		}
		entry.ResponseStatus = http.StatusOK
		entry.ResponseBody = string(ack.Encode())
		p.audit.Finish(ctx, entry)
		outcome := "fail"
		if ack.OK() {
			outcome = "success"
		}
		p.metrics.ObserveCallback(string(channel), outcome)
	}()

	f, err := p.decodeAndVerify(d.Body)
	if err != nil {
		entry.ProcessingError = err.Error()
		return protocol.AckFail(err.Error())
	}

	if f.Get(protocol.FieldReturnCode) != protocol.CodeSuccess {
		entry.ProcessingError = "callback reported communication failure"
		return protocol.AckFail("communication failure reported")
	}
	if f.Get(protocol.FieldResultCode) != protocol.CodeSuccess {
		// verified business failure; never applied, and answered FAIL so the
		// redelivery channel stays open for a retried attempt
		entry.ProcessingError = "callback reported business failure: " + f.Get(protocol.FieldErrCode)
		return protocol.AckFail("business failure reported")
	}

	var result types.ServiceResult
	switch channel {
	case types.CallbackChannelPayment:
		f = f.Restrict(protocol.MessagePaymentNotify)
		transactionID := f.Get(protocol.FieldOutTradeNo)
		if transactionID == "" {
			entry.ProcessingError = "missing out_trade_no"
			return protocol.AckFail("missing out_trade_no")
		}
		entry.TransactionID = transactionID
		result = p.payments.ProcessPaymentSuccess(ctx, transactionID, f)
	case types.CallbackChannelRefund:
		f = f.Restrict(protocol.MessageRefundNotify)
		refundID := f.Get(protocol.FieldOutRefundNo)
		if refundID == "" {
			entry.ProcessingError = "missing out_refund_no"
			return protocol.AckFail("missing out_refund_no")
		}
		entry.RefundID = refundID
		result = p.refunds.CompleteRefund(ctx, refundID, f)
	default:
		entry.ProcessingError = "unknown callback channel"
		return protocol.AckFail("")
	}

	if !result.Success {
		entry.ProcessingError = result.Message
		return protocol.AckFail(result.Message)
	}
	entry.Processed = true
	return protocol.AckSuccess()
}

// record writes the audit row before any parsing so the trail survives
// malformed and tampered deliveries.
func (p *Processor) record(ctx context.Context, channel types.CallbackChannel, d *Delivery) *models.PaymentCallbackLog {
	headers, _ := json.Marshal(d.Headers)
	return p.audit.Record(ctx, &models.PaymentCallbackLog{
		Channel:        channel,
		PaymentMethod:  types.PaymentMethodWeChatPay,
		RequestMethod:  d.Method,
		RequestPath:    d.Path,
		RequestHeaders: datatypes.JSON(headers),
		RequestBody:    string(d.Body),
		SourceIP:       d.SourceIP,
	})
}

// decodeAndVerify parses the envelope and checks its signature. The ledgers
// are never consulted for a delivery that fails here.
func (p *Processor) decodeAndVerify(body []byte) (*protocol.Fields, error) {
	f := protocol.Decode(body)
	if f.Len() == 0 {
		return nil, errMalformedCallback
	}
	sign := f.Get(protocol.FieldSign)
	if sign == "" {
		return nil, errMissingSignature
	}
	f.Delete(protocol.FieldSign)
	if !protocol.Verify(f, sign, p.cfg.WeChatPay.APIKey) {
		return nil, errInvalidSignature
	}
	return f, nil
}
