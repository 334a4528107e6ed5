package wechat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/platform/wechat/protocol"
	cfgpkg "github.com/fatflowers/paygate/pkg/config"
)

const testAPIKey = "unit-test-key"

func newTestClient(t *testing.T, gatewayURL string) *Client {
	t.Helper()
	cfg := &cfgpkg.Config{}
	cfg.WeChatPay = cfgpkg.WeChatPayConfig{
		AppID:          "wx-app",
		MchID:          "mch-001",
		APIKey:         testAPIKey,
		GatewayURL:     gatewayURL,
		TimeoutSeconds: 5,
	}
	c, err := NewClient(cfg, NewFileCertificateSource(cfg), zap.NewNop().Sugar())
	require.NoError(t, err)
	return c
}

func signedResponse(set func(f *protocol.Fields)) []byte {
	f := protocol.NewFields()
	f.Set(protocol.FieldReturnCode, protocol.CodeSuccess)
	f.Set(protocol.FieldResultCode, protocol.CodeSuccess)
	set(f)
	f.Set(protocol.FieldSign, protocol.Sign(f, testAPIKey))
	return protocol.Encode(f)
}

func TestUnifiedOrder(t *testing.T) {
	var received *protocol.Fields
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received = protocol.Decode(body)
		_, _ = w.Write(signedResponse(func(f *protocol.Fields) {
			f.Set(protocol.FieldPrepayID, "wxprepay001")
			f.Set(protocol.FieldTradeType, protocol.TradeTypeJSAPI)
		}))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	resp, err := c.UnifiedOrder(context.Background(), &UnifiedOrderRequest{
		OutTradeNo: "pay_abc123",
		Body:       "Order order-1",
		TotalFee:   9900,
		ClientIP:   "203.0.113.9",
		NotifyURL:  "https://merchant.example/api/v1/callbacks/wechat/payment",
		TradeType:  protocol.TradeTypeJSAPI,
		NonceStr:   "fixedfixedfixedfixedfixedfixed32",
	})
	require.NoError(t, err)
	assert.Equal(t, "wxprepay001", resp.PrepayID)

	// the outbound envelope carries the merchant identity, the caller's
	// nonce and a valid sign, and the sign is reported back to the caller
	require.NotNil(t, received)
	assert.Equal(t, "wx-app", received.Get(protocol.FieldAppID))
	assert.Equal(t, "mch-001", received.Get(protocol.FieldMchID))
	assert.Equal(t, "9900", received.Get(protocol.FieldTotalFee))
	assert.Equal(t, "fixedfixedfixedfixedfixedfixed32", received.Get(protocol.FieldNonceStr))
	sign := received.Get(protocol.FieldSign)
	assert.Equal(t, sign, resp.RequestSign)
	received.Delete(protocol.FieldSign)
	assert.True(t, protocol.Verify(received, sign, testAPIKey))
}

func TestUnifiedOrderGatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := protocol.NewFields()
		f.Set(protocol.FieldReturnCode, protocol.CodeSuccess)
		f.Set(protocol.FieldResultCode, protocol.CodeFail)
		f.Set(protocol.FieldErrCode, "ORDERPAID")
		f.Set(protocol.FieldErrCodeDes, "order already paid")
		f.Set(protocol.FieldSign, protocol.Sign(f, testAPIKey))
		_, _ = w.Write(protocol.Encode(f))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.UnifiedOrder(context.Background(), &UnifiedOrderRequest{
		OutTradeNo: "pay_abc123", Body: "x", TotalFee: 100, TradeType: protocol.TradeTypeJSAPI,
	})
	require.Error(t, err)
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "ORDERPAID", ge.Code)
}

func TestUnifiedOrderBadResponseSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := protocol.NewFields()
		f.Set(protocol.FieldReturnCode, protocol.CodeSuccess)
		f.Set(protocol.FieldResultCode, protocol.CodeSuccess)
		f.Set(protocol.FieldPrepayID, "wxprepay001")
		f.Set(protocol.FieldSign, "0000000000000000000000000000000W")
		_, _ = w.Write(protocol.Encode(f))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.UnifiedOrder(context.Background(), &UnifiedOrderRequest{
		OutTradeNo: "pay_abc123", Body: "x", TotalFee: 100, TradeType: protocol.TradeTypeJSAPI,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestUnifiedOrderCommunicationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := protocol.NewFields()
		f.Set(protocol.FieldReturnCode, protocol.CodeFail)
		f.Set(protocol.FieldReturnMsg, "system busy")
		_, _ = w.Write(protocol.Encode(f))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.UnifiedOrder(context.Background(), &UnifiedOrderRequest{
		OutTradeNo: "pay_abc123", Body: "x", TotalFee: 100, TradeType: protocol.TradeTypeJSAPI,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system busy")
}

func TestRefundWithoutCertificate(t *testing.T) {
	c := newTestClient(t, "https://gateway.invalid")
	_, err := c.Refund(context.Background(), &RefundCallRequest{
		OutTradeNo: "pay_abc123", OutRefundNo: "refund_def456", TotalFee: 100, RefundFee: 100,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "certificate")
}

func TestBuildJSAPIParams(t *testing.T) {
	c := newTestClient(t, "https://gateway.invalid")
	f := c.BuildJSAPIParams("wxprepay001")

	assert.Equal(t, "prepay_id=wxprepay001", f.Get("package"))
	assert.Equal(t, "wx-app", f.Get("appId"))

	sign := f.Get("paySign")
	require.NotEmpty(t, sign)
	f.Delete("paySign")
	assert.Equal(t, sign, protocol.Sign(f, testAPIKey))
}
