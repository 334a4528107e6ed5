// Package payment owns the payment transaction ledger: one row per
// (order, attempt), created pending, transitioned only through the service
// methods here, never deleted.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/paygate/internal/app/service/ordersync"
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/wechat"
	"github.com/fatflowers/paygate/internal/platform/wechat/protocol"
	cfgpkg "github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/metrics"
	"github.com/fatflowers/paygate/pkg/tool"
	"github.com/fatflowers/paygate/pkg/types"
)

type Service struct {
	cfg       *cfgpkg.Config
	db        *gorm.DB
	log       *zap.SugaredLogger
	gateway   wechat.Gateway
	orderSync *ordersync.Service
	metrics   *metrics.Prometheus
}

func NewService(cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger, gw wechat.Gateway, sync *ordersync.Service, m *metrics.Prometheus) *Service {
	return &Service{cfg: cfg, db: db, log: log, gateway: gw, orderSync: sync, metrics: m}
}

// CreatePayment validates the method, creates a pending transaction with its
// protocol sub-record and asks the gateway for a prepay session. An adapter
// failure transitions the new row to failed and is reported in the result;
// failed rows are never reused, the caller retries with a new transaction.
func (s *Service) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (res *CreatePaymentResult) {
	res = &CreatePaymentResult{}
	defer func() {
		if r := recover(); r != nil {
			logctx.FromCtx(ctx, s.log).Errorw("create_payment_panic", "panic", r)
			*res = CreatePaymentResult{ServiceResult: types.FailResult("failed to create payment")}
		}
	}()

	if req == nil || req.OrderID == "" || req.UserID == "" {
		res.ServiceResult = types.FailResult("order_id and user_id are required")
		return res
	}

	var method models.PaymentMethod
	err := s.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", req.Method, true).First(&method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		res.ServiceResult = types.FailResult("invalid payment method")
		return res
	}
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to load payment method: %v", err)
		res.ServiceResult = types.FailResult("failed to create payment")
		return res
	}
	if method.Name != types.PaymentMethodWeChatPay {
		res.ServiceResult = types.FailResult("payment method not implemented")
		return res
	}

	var order models.Order
	err = s.db.WithContext(ctx).Where("id = ?", req.OrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		res.ServiceResult = types.FailResult("order not found")
		return res
	}
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to load order: %v", err)
		res.ServiceResult = types.FailResult("failed to create payment")
		return res
	}
	if order.Status != models.OrderStatusAwaitingPayment {
		res.ServiceResult = types.FailResult("order is not awaiting payment")
		return res
	}

	now := time.Now()
	expiry := now.Add(s.cfg.WeChatPay.PaymentExpiry())
	paymentData, _ := json.Marshal(map[string]string{
		"return_url": req.ReturnURL,
		"notify_url": req.NotifyURL,
	})
	txn := &models.PaymentTransaction{
		ID:            tool.GenerateUUIDV7(),
		TransactionID: tool.GeneratePaymentID(),
		OrderID:       order.ID,
		UserID:        req.UserID,
		PaymentMethod: method.Name,
		Amount:        order.Amount,
		Currency:      "CNY",
		Status:        models.PaymentStatusPending,
		ExpiredAt:     &expiry,
		PaymentData:   paymentData,
	}
	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Order %s", order.ID)
	}
	sub := &models.WeChatPayment{
		ID:                   tool.GenerateUUIDV7(),
		PaymentTransactionID: txn.ID,
		AppID:                s.cfg.WeChatPay.AppID,
		MchID:                s.cfg.WeChatPay.MchID,
		NonceStr:             tool.GenerateNonce(),
		Body:                 description,
		OutTradeNo:           txn.TransactionID,
		TotalFee:             txn.Amount,
		SpbillCreateIP:       req.ClientIP,
		SignType:             protocol.SignTypeMD5,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to create payment transaction: %v", err)
		res.ServiceResult = types.FailResult("failed to create payment")
		return res
	}

	notifyURL := req.NotifyURL
	if notifyURL == "" {
		notifyURL = s.cfg.WeChatPay.NotifyURL
	}
	gwResp, gwErr := s.gateway.UnifiedOrder(ctx, &wechat.UnifiedOrderRequest{
		OutTradeNo: txn.TransactionID,
		Body:       description,
		TotalFee:   txn.Amount,
		ClientIP:   req.ClientIP,
		NotifyURL:  notifyURL,
		TradeType:  protocol.TradeTypeJSAPI,
		OpenID:     req.OpenID,
		NonceStr:   sub.NonceStr,
	})
	if gwErr != nil {
		s.recordGatewayFailure(ctx, txn, gwErr)
		res.ServiceResult = types.FailResult(gwErr.Error())
		res.Transaction = txn
		return res
	}

	gatewayData, _ := json.Marshal(gwResp.Raw.Map())
	err = s.db.WithContext(ctx).Model(&models.WeChatPayment{}).
		Where("payment_transaction_id = ?", txn.ID).
		Updates(map[string]any{
			"prepay_id":    gwResp.PrepayID,
			"code_url":     gwResp.CodeURL,
			"sign":         gwResp.RequestSign,
			"gateway_data": datatypes.JSON(gatewayData),
		}).Error
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to store prepay session: %v", err)
	}

	s.metrics.ObserveTransition("payment", string(models.PaymentStatusPending))
	res.ServiceResult = types.OKResult("payment created successfully")
	res.Transaction = txn
	res.PrepayID = gwResp.PrepayID
	res.PaymentParams = s.gateway.BuildJSAPIParams(gwResp.PrepayID).Map()
	return res
}

// recordGatewayFailure transitions a fresh pending row to failed with the
// adapter's error. Old failed rows stay in the ledger untouched.
func (s *Service) recordGatewayFailure(ctx context.Context, txn *models.PaymentTransaction, gwErr error) {
	if !canFail(txn.Status) {
		return
	}
	errCode := ""
	var ge *wechat.GatewayError
	if errors.As(gwErr, &ge) {
		errCode = ge.Code
	}
	err := s.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("transaction_id = ? AND status = ?", txn.TransactionID, models.PaymentStatusPending).
		Updates(map[string]any{
			"status":        models.PaymentStatusFailed,
			"error_code":    errCode,
			"error_message": gwErr.Error(),
		}).Error
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to record gateway failure: %v", err)
		return
	}
	txn.Status = models.PaymentStatusFailed
	txn.ErrorCode = errCode
	txn.ErrorMessage = gwErr.Error()
	s.metrics.ObserveTransition("payment", string(models.PaymentStatusFailed))
}

// ProcessPaymentSuccess applies the success transition at most once. Any
// current status other than pending returns a failure result without
// mutating the row or re-running side effects. The ledger update and the
// order synchronization share one database transaction; racing deliveries
// serialize on the row lock and the loser short-circuits on the guard.
func (s *Service) ProcessPaymentSuccess(ctx context.Context, transactionID string, callback *protocol.Fields) (res types.ServiceResult) {
	defer func() {
		if r := recover(); r != nil {
			logctx.FromCtx(ctx, s.log).Errorw("process_payment_success_panic", "panic", r)
			res = types.FailResult("failed to process payment")
		}
	}()

	var paidOrder *models.Order
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.PaymentTransaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", transactionID).First(&txn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errPaymentNotFound
		}
		if err != nil {
			return err
		}
		if !canApplySuccess(txn.Status) {
			return errPaymentNotPending
		}

		updates := map[string]any{
			"status":               models.PaymentStatusSuccess,
			"paid_at":              now,
			"callback_received_at": now,
		}
		externalID := ""
		if callback != nil {
			cbData, _ := json.Marshal(callback.Map())
			updates["callback_data"] = datatypes.JSON(cbData)
			externalID = callback.Get(protocol.FieldTransactionID)
			if externalID != "" {
				updates["external_transaction_id"] = externalID
			}
		}
		if err := tx.Model(&models.PaymentTransaction{}).
			Where("id = ?", txn.ID).Updates(updates).Error; err != nil {
			return err
		}

		if callback != nil {
			subUpdates := map[string]any{}
			if externalID != "" {
				subUpdates["gateway_transaction_id"] = externalID
			}
			if bt := callback.Get(protocol.FieldBankType); bt != "" {
				subUpdates["bank_type"] = bt
			}
			if len(subUpdates) > 0 {
				if err := tx.Model(&models.WeChatPayment{}).
					Where("payment_transaction_id = ?", txn.ID).Updates(subUpdates).Error; err != nil {
					return err
				}
			}
		}

		order, syncErr := s.orderSync.MarkOrderPaid(ctx, tx, txn.OrderID, now)
		switch {
		case syncErr == nil:
			paidOrder = order
		case errors.Is(syncErr, ordersync.ErrOrderNotFound), errors.Is(syncErr, ordersync.ErrOrderNotAwaiting):
			// the payment ledger is the source of truth; an order that was
			// already moved (or lives elsewhere) must not undo the payment
			logctx.FromCtx(ctx, s.log).Warnw("order_sync_skipped",
				"transaction_id", transactionID, "order_id", txn.OrderID, "reason", syncErr.Error())
		default:
			return syncErr
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errPaymentNotFound):
		return types.FailResult("payment transaction not found")
	case errors.Is(err, errPaymentNotPending):
		return types.FailResult("payment is not in pending status")
	default:
		logctx.FromCtx(ctx, s.log).Errorf("failed to process payment success: %v", err)
		return types.FailResult("failed to process payment")
	}

	s.metrics.ObserveTransition("payment", string(models.PaymentStatusSuccess))
	s.orderSync.NotifyOrderPaid(ctx, paidOrder)
	return types.OKResult("payment processed successfully")
}

// CancelPayment is legal only from pending/processing.
func (s *Service) CancelPayment(ctx context.Context, transactionID string) (res types.ServiceResult) {
	defer func() {
		if r := recover(); r != nil {
			logctx.FromCtx(ctx, s.log).Errorw("cancel_payment_panic", "panic", r)
			res = types.FailResult("failed to cancel payment")
		}
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.PaymentTransaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", transactionID).First(&txn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errPaymentNotFound
		}
		if err != nil {
			return err
		}
		if !canCancel(txn.Status) {
			return errPaymentNotCancellable
		}
		return tx.Model(&models.PaymentTransaction{}).
			Where("id = ?", txn.ID).
			Update("status", models.PaymentStatusCancelled).Error
	})

	switch {
	case err == nil:
	case errors.Is(err, errPaymentNotFound):
		return types.FailResult("payment transaction not found")
	case errors.Is(err, errPaymentNotCancellable):
		return types.FailResult("payment cannot be cancelled in current status")
	default:
		logctx.FromCtx(ctx, s.log).Errorf("failed to cancel payment: %v", err)
		return types.FailResult("failed to cancel payment")
	}

	s.metrics.ObserveTransition("payment", string(models.PaymentStatusCancelled))
	return types.OKResult("payment cancelled successfully")
}

// GetPayment treats "not found" as a named outcome, not an error.
func (s *Service) GetPayment(ctx context.Context, transactionID string) (*models.PaymentTransaction, bool) {
	var txn models.PaymentTransaction
	err := s.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logctx.FromCtx(ctx, s.log).Errorf("failed to load payment transaction: %v", err)
		}
		return nil, false
	}
	return &txn, true
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanPayments implements paginated/admin listing with filters.
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.PaymentTransaction{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payment transactions: %w", err)
	}

	var rows []*models.PaymentTransaction
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}
	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}
