package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/paygate/internal/app/service/refund"
	"github.com/fatflowers/paygate/pkg/response"
)

type rejectRefundBody struct {
	ProcessedBy string `json:"processed_by"`
	AdminNotes  string `json:"admin_notes"`
}

// @Summary      Create Refund
// @Description  Creates a refund request against a successful payment transaction and hands it to the gateway.
// @Tags         Refund
// @Accept       json
// @Produce      json
// @Param        request body refund.CreateRefundRequest true "Create refund request"
// @Success      200  {object}  handlers.RespCreateRefund
// @Router       /api/v1/refunds [post]
func ApiCreateRefund(mgr refund.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refund.CreateRefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res := mgr.CreateRefundRequest(c.Request.Context(), &req)
		if !res.Success {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, res.Message))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Reject Refund (Admin)
// @Description  Administratively rejects a pending refund request; no gateway round-trip.
// @Tags         Refund
// @Accept       json
// @Produce      json
// @Param        id path string true "Merchant refund id"
// @Param        request body rejectRefundBody true "Rejection operator and notes"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/refunds/{id}/reject [post]
func ApiRejectRefund(mgr refund.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body rejectRefundBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res := mgr.RejectRefund(c.Request.Context(), &refund.RejectRefundRequest{
			RefundID:    c.Param("id"),
			ProcessedBy: body.ProcessedBy,
			AdminNotes:  body.AdminNotes,
		})
		if !res.Success {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, res.Message))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Refund
// @Description  Returns one refund request by its merchant refund id.
// @Tags         Refund
// @Produce      json
// @Param        id path string true "Merchant refund id"
// @Success      200  {object}  handlers.RespGetRefund
// @Router       /api/v1/refunds/{id} [get]
func ApiGetRefund(mgr refund.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := mgr.GetRefund(c.Request.Context(), c.Param("id"))
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(row))
	}
}

func RegisterRefundRoutes(r gin.IRouter, mgr refund.Manager) {
	r.POST("/refunds", ApiCreateRefund(mgr))
	r.POST("/refunds/:id/reject", ApiRejectRefund(mgr))
	r.GET("/refunds/:id", ApiGetRefund(mgr))
}
