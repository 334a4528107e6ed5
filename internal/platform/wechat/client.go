// Package wechat talks to the pay gateway over its V2 XML protocol:
// unified-order for payment creation and the certificate-protected refund
// API. Calls are bounded by the configured timeout and never retried here;
// callers retry by creating a new transaction.
package wechat

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/platform/wechat/protocol"
	cfgpkg "github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/tool"
)

const (
	unifiedOrderPath = "/pay/unifiedorder"
	refundPath       = "/secapi/pay/refund"
)

// GatewayError is a failed or rejected outbound gateway call. The owning
// transaction is recorded failed; a retry means a brand-new transaction.
type GatewayError struct {
	Code string
	Msg  string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %s: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("gateway error: %s", e.Msg)
}

type UnifiedOrderRequest struct {
	OutTradeNo string
	Body       string
	TotalFee   int64
	ClientIP   string
	NotifyURL  string
	TradeType  string
	OpenID     string
	// NonceStr, when set, is used instead of a freshly generated nonce so the
	// caller's protocol record matches the envelope on the wire.
	NonceStr string
}

type UnifiedOrderResponse struct {
	PrepayID string
	CodeURL  string
	NonceStr string
	// RequestSign is the signature the outbound envelope carried.
	RequestSign string
	Raw         *protocol.Fields
}

type RefundCallRequest struct {
	OutTradeNo  string
	OutRefundNo string
	TotalFee    int64
	RefundFee   int64
	Reason      string
	NotifyURL   string
}

type RefundCallResponse struct {
	RefundID string
	Raw      *protocol.Fields
}

// Gateway is the outbound surface the payment/refund services depend on.
type Gateway interface {
	UnifiedOrder(ctx context.Context, req *UnifiedOrderRequest) (*UnifiedOrderResponse, error)
	Refund(ctx context.Context, req *RefundCallRequest) (*RefundCallResponse, error)
	// BuildJSAPIParams derives the client-side payment parameters for a
	// prepay session token.
	BuildJSAPIParams(prepayID string) *protocol.Fields
}

type Client struct {
	cfg   *cfgpkg.WeChatPayConfig
	certs CertificateSource
	http  *http.Client
	log   *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, certs *FileCertificateSource, log *zap.SugaredLogger) (*Client, error) {
	wc := &cfg.WeChatPay
	if err := wc.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:   wc,
		certs: certs,
		http:  &http.Client{Timeout: wc.Timeout()},
		log:   log,
	}, nil
}

func (c *Client) baseFields() *protocol.Fields {
	f := protocol.NewFields()
	f.Set(protocol.FieldAppID, c.cfg.AppID)
	f.Set(protocol.FieldMchID, c.cfg.MchID)
	f.Set(protocol.FieldNonceStr, tool.GenerateNonce())
	f.Set(protocol.FieldSignType, protocol.SignTypeMD5)
	return f
}

// UnifiedOrder issues a prepay session for the given merchant order number.
func (c *Client) UnifiedOrder(ctx context.Context, req *UnifiedOrderRequest) (*UnifiedOrderResponse, error) {
	f := c.baseFields()
	if req.NonceStr != "" {
		f.Set(protocol.FieldNonceStr, req.NonceStr)
	}
	f.Set(protocol.FieldBody, req.Body)
	f.Set(protocol.FieldOutTradeNo, req.OutTradeNo)
	f.Set(protocol.FieldTotalFee, strconv.FormatInt(req.TotalFee, 10))
	f.Set(protocol.FieldSpbillIP, req.ClientIP)
	f.Set(protocol.FieldNotifyURL, req.NotifyURL)
	f.Set(protocol.FieldTradeType, req.TradeType)
	if req.OpenID != "" {
		f.Set(protocol.FieldOpenID, req.OpenID)
	}
	f = f.Restrict(protocol.MessageUnifiedOrderRequest)
	sign := protocol.Sign(f, c.cfg.APIKey)
	f.Set(protocol.FieldSign, sign)

	resp, err := c.post(ctx, c.http, unifiedOrderPath, f, protocol.MessageUnifiedOrderResponse)
	if err != nil {
		return nil, err
	}

	prepayID := resp.Get(protocol.FieldPrepayID)
	if prepayID == "" {
		return nil, &GatewayError{Msg: "no prepay_id in gateway response"}
	}
	return &UnifiedOrderResponse{
		PrepayID:    prepayID,
		CodeURL:     resp.Get(protocol.FieldCodeURL),
		NonceStr:    resp.Get(protocol.FieldNonceStr),
		RequestSign: sign,
		Raw:         resp,
	}, nil
}

// Refund calls the gateway's refund API over a mutual-TLS channel.
func (c *Client) Refund(ctx context.Context, req *RefundCallRequest) (*RefundCallResponse, error) {
	certFile, keyFile, err := c.certs.ClientCertificate(ctx)
	if err != nil {
		return nil, &GatewayError{Msg: fmt.Sprintf("client certificate unavailable: %v", err)}
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, &GatewayError{Msg: fmt.Sprintf("failed to load client certificate: %v", err)}
	}
	mtlsClient := &http.Client{
		Timeout: c.cfg.Timeout(),
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
		},
	}

	reason := req.Reason
	if len(reason) > 80 {
		reason = reason[:80]
	}

	f := c.baseFields()
	f.Set(protocol.FieldOutTradeNo, req.OutTradeNo)
	f.Set(protocol.FieldOutRefundNo, req.OutRefundNo)
	f.Set(protocol.FieldTotalFee, strconv.FormatInt(req.TotalFee, 10))
	f.Set(protocol.FieldRefundFee, strconv.FormatInt(req.RefundFee, 10))
	f.Set(protocol.FieldRefundDesc, reason)
	if req.NotifyURL != "" {
		f.Set(protocol.FieldNotifyURL, req.NotifyURL)
	}
	f = f.Restrict(protocol.MessageRefundRequest)
	f.Set(protocol.FieldSign, protocol.Sign(f, c.cfg.APIKey))

	resp, err := c.post(ctx, mtlsClient, refundPath, f, protocol.MessageRefundResponse)
	if err != nil {
		return nil, err
	}
	return &RefundCallResponse{
		RefundID: resp.Get(protocol.FieldRefundID),
		Raw:      resp,
	}, nil
}

// BuildJSAPIParams signs the client-side parameter set a JSAPI payer needs to
// complete the prepay session.
func (c *Client) BuildJSAPIParams(prepayID string) *protocol.Fields {
	f := protocol.NewFields()
	f.Set("appId", c.cfg.AppID)
	f.Set("timeStamp", strconv.FormatInt(time.Now().Unix(), 10))
	f.Set("nonceStr", tool.GenerateNonce())
	f.Set("package", "prepay_id="+prepayID)
	f.Set("signType", protocol.SignTypeMD5)
	f.Set("paySign", protocol.Sign(f, c.cfg.APIKey))
	return f
}

// post sends an envelope and returns the verified, allow-listed response
// fields; transport and protocol failures come back as *GatewayError.
func (c *Client) post(ctx context.Context, hc *http.Client, path string, f *protocol.Fields, respType protocol.MessageType) (*protocol.Fields, error) {
	url := c.cfg.GatewayURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(protocol.Encode(f)))
	if err != nil {
		return nil, &GatewayError{Msg: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")

	start := time.Now()
	httpResp, err := hc.Do(httpReq)
	if err != nil {
		logctx.FromCtx(ctx, c.log).Errorw("gateway_call_failed", "path", path, "err", err)
		return nil, &GatewayError{Msg: err.Error()}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &GatewayError{Msg: err.Error()}
	}
	logctx.FromCtx(ctx, c.log).Infow("gateway_call",
		"path", path, "status", httpResp.StatusCode, "latency_ms", time.Since(start).Milliseconds())

	if httpResp.StatusCode != http.StatusOK {
		return nil, &GatewayError{Msg: fmt.Sprintf("gateway returned HTTP %d", httpResp.StatusCode)}
	}

	resp := protocol.Decode(body)
	if resp.Len() == 0 {
		return nil, &GatewayError{Msg: "malformed gateway response"}
	}
	if resp.Get(protocol.FieldReturnCode) != protocol.CodeSuccess {
		return nil, &GatewayError{Msg: resp.Get(protocol.FieldReturnMsg)}
	}

	sign := resp.Get(protocol.FieldSign)
	resp.Delete(protocol.FieldSign)
	if !protocol.Verify(resp, sign, c.cfg.APIKey) {
		return nil, &GatewayError{Msg: "invalid gateway response signature"}
	}
	if resp.Get(protocol.FieldResultCode) != protocol.CodeSuccess {
		return nil, &GatewayError{
			Code: resp.Get(protocol.FieldErrCode),
			Msg:  resp.Get(protocol.FieldErrCodeDes),
		}
	}
	return resp.Restrict(respType), nil
}

var Module = fx.Options(
	fx.Provide(NewFileCertificateSource),
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) Gateway { return c }),
)
