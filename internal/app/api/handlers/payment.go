package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/paygate/internal/app/service/payment"
	"github.com/fatflowers/paygate/pkg/response"
)

// @Summary      Create Payment
// @Description  Creates a pending payment transaction for an order and returns the prepay session parameters.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body payment.CreatePaymentRequest true "Create payment request"
// @Success      200  {object}  handlers.RespCreatePayment
// @Router       /api/v1/payments [post]
func ApiCreatePayment(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.CreatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.ClientIP == "" {
			req.ClientIP = c.ClientIP()
		}

		res := mgr.CreatePayment(c.Request.Context(), &req)
		if !res.Success {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, res.Message))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Cancel Payment
// @Description  Cancels a pending or processing payment transaction.
// @Tags         Payment
// @Produce      json
// @Param        id path string true "Merchant transaction id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payments/{id}/cancel [post]
func ApiCancelPayment(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := mgr.CancelPayment(c.Request.Context(), c.Param("id"))
		if !res.Success {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, res.Message))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Payment
// @Description  Returns one payment transaction by its merchant transaction id.
// @Tags         Payment
// @Produce      json
// @Param        id path string true "Merchant transaction id"
// @Success      200  {object}  handlers.RespGetPayment
// @Router       /api/v1/payments/{id} [get]
func ApiGetPayment(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		txn, ok := mgr.GetPayment(c.Request.Context(), c.Param("id"))
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(txn))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, mgr payment.Manager) {
	r.POST("/payments", ApiCreatePayment(mgr))
	r.POST("/payments/:id/cancel", ApiCancelPayment(mgr))
	r.GET("/payments/:id", ApiGetPayment(mgr))
}
