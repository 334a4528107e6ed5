package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/fatflowers/paygate/internal/app/service/payment"
	"github.com/fatflowers/paygate/internal/app/service/refund"
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/response"
	"github.com/fatflowers/paygate/pkg/types"
)

type ListRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type PaymentItem struct {
	ID                    string                  `json:"id"`
	TransactionID         string                  `json:"transaction_id"`
	OrderID               string                  `json:"order_id"`
	UserID                string                  `json:"user_id"`
	PaymentMethod         types.PaymentMethodName `json:"payment_method"`
	Amount                int64                   `json:"amount"`
	Currency              string                  `json:"currency"`
	Status                models.PaymentStatus    `json:"status"`
	ExternalTransactionID string                  `json:"external_transaction_id"`
	PaidAt                *time.Time              `json:"paid_at"`
	ExpiredAt             *time.Time              `json:"expired_at"`
	CreatedAt             time.Time               `json:"created_at"`
	UpdatedAt             time.Time               `json:"updated_at"`
}

func toPaymentItem(m *models.PaymentTransaction) *PaymentItem {
	return &PaymentItem{
		ID:                    m.ID,
		TransactionID:         m.TransactionID,
		OrderID:               m.OrderID,
		UserID:                m.UserID,
		PaymentMethod:         m.PaymentMethod,
		Amount:                m.Amount,
		Currency:              m.Currency,
		Status:                m.Status,
		ExternalTransactionID: m.ExternalTransactionID,
		PaidAt:                m.PaidAt,
		ExpiredAt:             m.ExpiredAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

type RefundItem struct {
	ID               string              `json:"id"`
	RefundID         string              `json:"refund_id"`
	TransactionID    string              `json:"transaction_id"`
	OrderID          string              `json:"order_id"`
	RefundType       types.RefundType    `json:"refund_type"`
	Amount           int64               `json:"amount"`
	Reason           string              `json:"reason"`
	Status           models.RefundStatus `json:"status"`
	ExternalRefundID string              `json:"external_refund_id"`
	RequestedAt      time.Time           `json:"requested_at"`
	ProcessedAt      *time.Time          `json:"processed_at"`
	CompletedAt      *time.Time          `json:"completed_at"`
	ProcessedBy      string              `json:"processed_by"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func toRefundItem(m *models.RefundRequest) *RefundItem {
	return &RefundItem{
		ID:               m.ID,
		RefundID:         m.RefundID,
		TransactionID:    m.TransactionID,
		OrderID:          m.OrderID,
		RefundType:       m.RefundType,
		Amount:           m.Amount,
		Reason:           m.Reason,
		Status:           m.Status,
		ExternalRefundID: m.ExternalRefundID,
		RequestedAt:      m.RequestedAt,
		ProcessedAt:      m.ProcessedAt,
		CompletedAt:      m.CompletedAt,
		ProcessedBy:      m.ProcessedBy,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

type ListPaymentsResponse struct {
	Items []*PaymentItem `json:"items"`
	Total int64          `json:"total"`
}

type ListRefundsResponse struct {
	Items []*RefundItem `json:"items"`
	Total int64         `json:"total"`
}

// @Summary      List Payment Transactions (Admin)
// @Description  Retrieves a paginated and filterable list of payment transactions.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/payments/list [post]
func ApiListPayments(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := mgr.ScanPayments(c.Request.Context(), &payment.ScanPaymentsRequest{
			Filters: req.Filters, From: req.From, Size: req.Size,
			SortBy: req.SortBy, SortOrder: req.SortOrder,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		items := lo.Map(res.Items, func(it *models.PaymentTransaction, _ int) *PaymentItem { return toPaymentItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListPaymentsResponse{Items: items, Total: res.Total}))
	}
}

// @Summary      List Refund Requests (Admin)
// @Description  Retrieves a paginated and filterable list of refund requests.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListRefunds
// @Router       /api/v1/admin/refunds/list [post]
func ApiListRefunds(mgr refund.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := mgr.ScanRefunds(c.Request.Context(), &refund.ScanRefundsRequest{
			Filters: req.Filters, From: req.From, Size: req.Size,
			SortBy: req.SortBy, SortOrder: req.SortOrder,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		items := lo.Map(res.Items, func(it *models.RefundRequest, _ int) *RefundItem { return toRefundItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListRefundsResponse{Items: items, Total: res.Total}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, payMgr payment.Manager, refMgr refund.Manager) {
	r.POST("/payments/list", ApiListPayments(payMgr))
	r.POST("/refunds/list", ApiListRefunds(refMgr))
}
