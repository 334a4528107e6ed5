package callback

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/wechat/protocol"
	cfgpkg "github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/metrics"
	"github.com/fatflowers/paygate/pkg/types"
)

const testAPIKey = "test-api-key"

type stubPaymentLedger struct {
	calls   []string
	results []types.ServiceResult
}

func (s *stubPaymentLedger) ProcessPaymentSuccess(_ context.Context, transactionID string, _ *protocol.Fields) types.ServiceResult {
	s.calls = append(s.calls, transactionID)
	if len(s.results) > 0 {
		r := s.results[0]
		s.results = s.results[1:]
		return r
	}
	return types.OKResult("payment processed successfully")
}

type stubRefundLedger struct {
	calls  []string
	result types.ServiceResult
}

func (s *stubRefundLedger) CompleteRefund(_ context.Context, refundID string, _ *protocol.Fields) types.ServiceResult {
	s.calls = append(s.calls, refundID)
	return s.result
}

type stubAudit struct {
	recorded []*models.PaymentCallbackLog
	finished []*models.PaymentCallbackLog
}

func (s *stubAudit) Record(_ context.Context, entry *models.PaymentCallbackLog) *models.PaymentCallbackLog {
	entry.ID = "audit-entry"
	s.recorded = append(s.recorded, entry)
	return entry
}

func (s *stubAudit) Finish(_ context.Context, entry *models.PaymentCallbackLog) {
	s.finished = append(s.finished, entry)
}

func newTestProcessor(pl *stubPaymentLedger, rl *stubRefundLedger, audit *stubAudit) *Processor {
	cfg := &cfgpkg.Config{}
	cfg.WeChatPay.APIKey = testAPIKey
	log := zap.NewNop().Sugar()
	return NewProcessor(cfg, log, pl, rl, audit, metrics.NewDefault(log))
}

func signedPaymentNotify(transactionID string) []byte {
	f := protocol.NewFields()
	f.Set(protocol.FieldReturnCode, protocol.CodeSuccess)
	f.Set(protocol.FieldResultCode, protocol.CodeSuccess)
	f.Set(protocol.FieldOutTradeNo, transactionID)
	f.Set(protocol.FieldTransactionID, "4200001234")
	f.Set(protocol.FieldTotalFee, "100")
	f.Set(protocol.FieldSign, protocol.Sign(f, testAPIKey))
	return protocol.Encode(f)
}

func signedRefundNotify(refundID, refundStatus string) []byte {
	f := protocol.NewFields()
	f.Set(protocol.FieldReturnCode, protocol.CodeSuccess)
	f.Set(protocol.FieldResultCode, protocol.CodeSuccess)
	f.Set(protocol.FieldOutRefundNo, refundID)
	f.Set(protocol.FieldRefundID, "50000001")
	f.Set(protocol.FieldRefundStatus, refundStatus)
	f.Set(protocol.FieldSign, protocol.Sign(f, testAPIKey))
	return protocol.Encode(f)
}

func delivery(body []byte) *Delivery {
	return &Delivery{
		Method:   http.MethodPost,
		Path:     "/api/v1/callbacks/wechat/payment",
		Body:     body,
		SourceIP: "203.0.113.9",
	}
}

func TestPaymentCallbackApplied(t *testing.T) {
	pl := &stubPaymentLedger{}
	audit := &stubAudit{}
	p := newTestProcessor(pl, &stubRefundLedger{}, audit)

	ack := p.HandlePaymentCallback(context.Background(), delivery(signedPaymentNotify("pay_abc123")))

	assert.True(t, ack.OK())
	assert.Equal(t, []string{"pay_abc123"}, pl.calls)
	require.Len(t, audit.finished, 1)
	entry := audit.finished[0]
	assert.True(t, entry.Processed)
	assert.Equal(t, "pay_abc123", entry.TransactionID)
	assert.Equal(t, http.StatusOK, entry.ResponseStatus)
	assert.Contains(t, entry.ResponseBody, protocol.CodeSuccess)
}

func TestPaymentCallbackRedelivery(t *testing.T) {
	// the ledger applies the first delivery and refuses the duplicate; the
	// processor acknowledges each delivery on its own
	pl := &stubPaymentLedger{results: []types.ServiceResult{
		types.OKResult("payment processed successfully"),
		types.FailResult("payment is not in pending status"),
	}}
	audit := &stubAudit{}
	p := newTestProcessor(pl, &stubRefundLedger{}, audit)

	body := signedPaymentNotify("pay_abc123")
	first := p.HandlePaymentCallback(context.Background(), delivery(body))
	second := p.HandlePaymentCallback(context.Background(), delivery(body))

	assert.True(t, first.OK())
	assert.False(t, second.OK())
	assert.Equal(t, []string{"pay_abc123", "pay_abc123"}, pl.calls)
	// one audit row per HTTP delivery
	assert.Len(t, audit.recorded, 2)
}

func TestPaymentCallbackTamperedSignature(t *testing.T) {
	pl := &stubPaymentLedger{}
	audit := &stubAudit{}
	p := newTestProcessor(pl, &stubRefundLedger{}, audit)

	f := protocol.NewFields()
	f.Set(protocol.FieldReturnCode, protocol.CodeSuccess)
	f.Set(protocol.FieldResultCode, protocol.CodeSuccess)
	f.Set(protocol.FieldOutTradeNo, "pay_abc123")
	f.Set(protocol.FieldTotalFee, "100")
	f.Set(protocol.FieldSign, protocol.Sign(f, testAPIKey))
	f.Set(protocol.FieldTotalFee, "1") // tampered after signing

	ack := p.HandlePaymentCallback(context.Background(), delivery(protocol.Encode(f)))

	assert.False(t, ack.OK())
	assert.Empty(t, pl.calls)
	require.Len(t, audit.finished, 1)
	assert.False(t, audit.finished[0].Processed)
	assert.Equal(t, "invalid signature", audit.finished[0].ProcessingError)
}

func TestPaymentCallbackMalformedBody(t *testing.T) {
	pl := &stubPaymentLedger{}
	audit := &stubAudit{}
	p := newTestProcessor(pl, &stubRefundLedger{}, audit)

	ack := p.HandlePaymentCallback(context.Background(), delivery([]byte("<xml><broken")))

	assert.False(t, ack.OK())
	assert.Empty(t, pl.calls)
	// the raw body is still on record even though parsing failed
	require.Len(t, audit.recorded, 1)
	assert.Equal(t, "<xml><broken", audit.recorded[0].RequestBody)
}

func TestPaymentCallbackMissingSignature(t *testing.T) {
	pl := &stubPaymentLedger{}
	p := newTestProcessor(pl, &stubRefundLedger{}, &stubAudit{})

	f := protocol.NewFields()
	f.Set(protocol.FieldReturnCode, protocol.CodeSuccess)
	f.Set(protocol.FieldOutTradeNo, "pay_abc123")

	ack := p.HandlePaymentCallback(context.Background(), delivery(protocol.Encode(f)))

	assert.False(t, ack.OK())
	assert.Empty(t, pl.calls)
}

func TestPaymentCallbackCommunicationFailure(t *testing.T) {
	pl := &stubPaymentLedger{}
	p := newTestProcessor(pl, &stubRefundLedger{}, &stubAudit{})

	f := protocol.NewFields()
	f.Set(protocol.FieldReturnCode, protocol.CodeFail)
	f.Set(protocol.FieldReturnMsg, "system error")
	f.Set(protocol.FieldSign, protocol.Sign(f, testAPIKey))

	ack := p.HandlePaymentCallback(context.Background(), delivery(protocol.Encode(f)))

	assert.False(t, ack.OK())
	assert.Empty(t, pl.calls)
}

func TestPaymentCallbackBusinessFailure(t *testing.T) {
	// a verified business failure is answered FAIL without touching the
	// ledger, keeping redelivery open for a retried attempt
	pl := &stubPaymentLedger{}
	audit := &stubAudit{}
	p := newTestProcessor(pl, &stubRefundLedger{}, audit)

	f := protocol.NewFields()
	f.Set(protocol.FieldReturnCode, protocol.CodeSuccess)
	f.Set(protocol.FieldResultCode, protocol.CodeFail)
	f.Set(protocol.FieldErrCode, "SYSTEMERROR")
	f.Set(protocol.FieldOutTradeNo, "pay_abc123")
	f.Set(protocol.FieldSign, protocol.Sign(f, testAPIKey))

	ack := p.HandlePaymentCallback(context.Background(), delivery(protocol.Encode(f)))

	assert.False(t, ack.OK())
	assert.Empty(t, pl.calls)
	require.Len(t, audit.finished, 1)
	assert.False(t, audit.finished[0].Processed)
	assert.Contains(t, audit.finished[0].ProcessingError, "SYSTEMERROR")
}

func TestRefundCallbackApplied(t *testing.T) {
	rl := &stubRefundLedger{result: types.OKResult("refund processed successfully")}
	audit := &stubAudit{}
	p := newTestProcessor(&stubPaymentLedger{}, rl, audit)

	ack := p.HandleRefundCallback(context.Background(), delivery(signedRefundNotify("refund_def456", protocol.RefundStatusSuccess)))

	assert.True(t, ack.OK())
	assert.Equal(t, []string{"refund_def456"}, rl.calls)
	require.Len(t, audit.finished, 1)
	assert.Equal(t, "refund_def456", audit.finished[0].RefundID)
	assert.Equal(t, types.CallbackChannelRefund, audit.finished[0].Channel)
}

func TestRefundCallbackLedgerRefusal(t *testing.T) {
	rl := &stubRefundLedger{result: types.FailResult("refund request not found")}
	p := newTestProcessor(&stubPaymentLedger{}, rl, &stubAudit{})

	ack := p.HandleRefundCallback(context.Background(), delivery(signedRefundNotify("refund_unknown", protocol.RefundStatusSuccess)))

	assert.False(t, ack.OK())
	assert.Equal(t, "refund request not found", ack.ReturnMsg)
}

func TestEveryDeliveryIsAcknowledged(t *testing.T) {
	// whatever happens inside, the processor hands back a well-formed envelope
	p := newTestProcessor(&stubPaymentLedger{}, &stubRefundLedger{}, &stubAudit{})

	bodies := [][]byte{
		nil,
		[]byte(""),
		[]byte("not xml at all"),
		signedPaymentNotify("pay_abc123"),
	}
	for _, body := range bodies {
		ack := p.HandlePaymentCallback(context.Background(), delivery(body))
		decoded := protocol.Decode(ack.Encode())
		assert.NotEmpty(t, decoded.Get(protocol.FieldReturnCode))
	}
}
