package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/paygate/internal/app/service/callback"
)

const ackContentType = "text/xml; charset=utf-8"

func captureDelivery(c *gin.Context) *callback.Delivery {
	body, _ := io.ReadAll(c.Request.Body)
	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.Request.Header.Get(k)
	}
	return &callback.Delivery{
		Method:   c.Request.Method,
		Path:     c.FullPath(),
		Headers:  headers,
		Body:     body,
		SourceIP: c.ClientIP(),
	}
}

// @Summary      WeChat Payment Callback
// @Description  Receives payment result notifications from the gateway. Always answers HTTP 200 with an XML acknowledgement envelope.
// @Tags         Callback
// @Accept       xml
// @Produce      xml
// @Success      200  {string}  string  "acknowledgement envelope"
// @Router       /api/v1/callbacks/wechat/payment [post]
func ApiWeChatPaymentCallback(p *callback.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ack := p.HandlePaymentCallback(c.Request.Context(), captureDelivery(c))
		c.Data(http.StatusOK, ackContentType, ack.Encode())
	}
}

// @Summary      WeChat Refund Callback
// @Description  Receives refund result notifications from the gateway. Always answers HTTP 200 with an XML acknowledgement envelope.
// @Tags         Callback
// @Accept       xml
// @Produce      xml
// @Success      200  {string}  string  "acknowledgement envelope"
// @Router       /api/v1/callbacks/wechat/refund [post]
func ApiWeChatRefundCallback(p *callback.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ack := p.HandleRefundCallback(c.Request.Context(), captureDelivery(c))
		c.Data(http.StatusOK, ackContentType, ack.Encode())
	}
}

func RegisterCallbackRoutes(r gin.IRouter, p *callback.Processor) {
	r.POST("/callbacks/wechat/payment", ApiWeChatPaymentCallback(p))
	r.POST("/callbacks/wechat/refund", ApiWeChatRefundCallback(p))
}
