// Package refund owns the refund request ledger. Every refund is a row tied
// to its parent payment transaction; the sum of live refund amounts on one
// transaction never exceeds the transaction amount, enforced at creation
// time inside the same database transaction that inserts the row.
package refund

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
	cfg     *cfgpkg.Config
	db      *gorm.DB
	log     *zap.SugaredLogger
	gateway wechat.Gateway
	metrics *metrics.Prometheus
}

func NewService(cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger, gw wechat.Gateway, m *metrics.Prometheus) *Service {
	return &Service{cfg: cfg, db: db, log: log, gateway: gw, metrics: m}
}

// CreateRefundRequest inserts a pending refund after checking the parent and
// the amount reservation inside one database transaction, then hands it to
// the gateway. Gateway acceptance moves it to processing; completion arrives
// later through the refund callback channel.
func (s *Service) CreateRefundRequest(ctx context.Context, req *CreateRefundRequest) (res *CreateRefundResult) {
	res = &CreateRefundResult{}
	defer func() {
		if r := recover(); r != nil {
			logctx.FromCtx(ctx, s.log).Errorw("create_refund_panic", "panic", r)
			*res = CreateRefundResult{ServiceResult: types.FailResult("failed to create refund")}
		}
	}()

	if req == nil || req.TransactionID == "" {
		res.ServiceResult = types.FailResult("transaction_id is required")
		return res
	}
	if req.Amount <= 0 {
		res.ServiceResult = types.FailResult("refund amount must be positive")
		return res
	}

	var (
		parent models.PaymentTransaction
		row    *models.RefundRequest
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the parent so two concurrent requests serialize their
		// reservation checks.
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", req.TransactionID).First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errPaymentNotFound
		}
		if err != nil {
			return err
		}
		if !parent.Refundable() {
			return errPaymentNotRefundable
		}

		var siblings []*models.RefundRequest
		if err := tx.Where("transaction_id = ?", parent.TransactionID).Find(&siblings).Error; err != nil {
			return err
		}
		if exceedsParent(parent.Amount, req.Amount, siblings) {
			return errAmountExceedsParent
		}

		row = &models.RefundRequest{
			ID:            tool.GenerateUUIDV7(),
			RefundID:      tool.GenerateRefundID(),
			TransactionID: parent.TransactionID,
			OrderID:       parent.OrderID,
			RefundType:    classifyRefundType(parent.Amount, req.Amount),
			Amount:        req.Amount,
			Reason:        req.Reason,
			Status:        models.RefundStatusPending,
			RequestedAt:   time.Now(),
		}
		return tx.Create(row).Error
	})

	switch {
	case err == nil:
	case errors.Is(err, errPaymentNotFound):
		res.ServiceResult = types.FailResult("payment transaction not found")
		return res
	case errors.Is(err, errPaymentNotRefundable):
		res.ServiceResult = types.FailResult("payment is not refundable")
		return res
	case errors.Is(err, errAmountExceedsParent):
		res.ServiceResult = types.FailResult("refund amount exceeds refundable balance")
		return res
	default:
		logctx.FromCtx(ctx, s.log).Errorf("failed to create refund request: %v", err)
		res.ServiceResult = types.FailResult("failed to create refund")
		return res
	}
	s.metrics.ObserveTransition("refund", string(models.RefundStatusPending))

	gwResp, gwErr := s.gateway.Refund(ctx, &wechat.RefundCallRequest{
		OutTradeNo:  parent.TransactionID,
		OutRefundNo: row.RefundID,
		TotalFee:    parent.Amount,
		RefundFee:   row.Amount,
		Reason:      row.Reason,
		NotifyURL:   s.cfg.WeChatPay.RefundNotifyURL,
	})
	if gwErr != nil {
		s.recordGatewayFailure(ctx, row, gwErr)
		res.ServiceResult = types.FailResult(gwErr.Error())
		res.Refund = row
		return res
	}

	now := time.Now()
	updates := map[string]any{
		"status":       models.RefundStatusProcessing,
		"processed_at": now,
	}
	if gwResp.RefundID != "" {
		updates["external_refund_id"] = gwResp.RefundID
	}
	err = s.db.WithContext(ctx).Model(&models.RefundRequest{}).
		Where("refund_id = ? AND status = ?", row.RefundID, models.RefundStatusPending).
		Updates(updates).Error
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to mark refund processing: %v", err)
	} else {
		row.Status = models.RefundStatusProcessing
		row.ProcessedAt = &now
		row.ExternalRefundID = gwResp.RefundID
		s.metrics.ObserveTransition("refund", string(models.RefundStatusProcessing))
	}

	res.ServiceResult = types.OKResult("refund request created successfully")
	res.Refund = row
	return res
}

// recordGatewayFailure releases the reservation of a refund the gateway
// rejected; the pending-status guard keeps a racing callback from being
// overwritten.
func (s *Service) recordGatewayFailure(ctx context.Context, row *models.RefundRequest, gwErr error) {
	errCode := ""
	var ge *wechat.GatewayError
	if errors.As(gwErr, &ge) {
		errCode = ge.Code
	}
	err := s.db.WithContext(ctx).Model(&models.RefundRequest{}).
		Where("refund_id = ? AND status = ?", row.RefundID, models.RefundStatusPending).
		Updates(map[string]any{
			"status":        models.RefundStatusFailed,
			"error_code":    errCode,
			"error_message": gwErr.Error(),
		}).Error
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to record refund gateway failure: %v", err)
		return
	}
	row.Status = models.RefundStatusFailed
	row.ErrorCode = errCode
	row.ErrorMessage = gwErr.Error()
	s.metrics.ObserveTransition("refund", string(models.RefundStatusFailed))
}

// CompleteRefund applies a refund completion delivered by the callback
// channel, at most once. A refund_status of SUCCESS completes the refund and
// rolls the parent transaction up to refunded or partial_refund inside the
// same database transaction; CLOSED releases the reservation as failed. Any
// other wire status leaves the row untouched and reports failure so the
// gateway redelivers.
func (s *Service) CompleteRefund(ctx context.Context, refundID string, callback *protocol.Fields) (res types.ServiceResult) {
	defer func() {
		if r := recover(); r != nil {
			logctx.FromCtx(ctx, s.log).Errorw("complete_refund_panic", "panic", r)
			res = types.FailResult("failed to process refund")
		}
	}()

	wireStatus := ""
	if callback != nil {
		wireStatus = callback.Get(protocol.FieldRefundStatus)
	}
	var target models.RefundStatus
	switch wireStatus {
	case protocol.RefundStatusSuccess:
		target = models.RefundStatusSuccess
	case protocol.RefundStatusClosed:
		target = models.RefundStatusFailed
	default:
		return types.FailResult("unrecognized refund status")
	}

	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.RefundRequest
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("refund_id = ?", refundID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errRefundNotFound
		}
		if err != nil {
			return err
		}
		if !canComplete(row.Status) {
			return errRefundAlreadyFinal
		}

		updates := map[string]any{
			"status":       target,
			"completed_at": now,
		}
		cbData, _ := json.Marshal(callback.Map())
		updates["refund_data"] = datatypes.JSON(cbData)
		if extID := callback.Get(protocol.FieldRefundID); extID != "" {
			updates["external_refund_id"] = extID
		}
		if target == models.RefundStatusFailed {
			updates["error_message"] = "refund closed by gateway"
		}
		if err := tx.Model(&models.RefundRequest{}).
			Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return err
		}

		if target == models.RefundStatusSuccess {
			return s.rollUpParent(tx, row.TransactionID, row.ID, row.Amount)
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errRefundNotFound):
		return types.FailResult("refund request not found")
	case errors.Is(err, errRefundAlreadyFinal):
		return types.FailResult("refund request already finalized")
	default:
		logctx.FromCtx(ctx, s.log).Errorf("failed to complete refund: %v", err)
		return types.FailResult("failed to process refund")
	}

	s.metrics.ObserveTransition("refund", string(target))
	return types.OKResult("refund processed successfully")
}

// rollUpParent recomputes the parent transaction status from its completed
// refunds. Runs inside the caller's transaction; justRow/justAmount account
// for the row whose update may not yet be visible to the re-read.
func (s *Service) rollUpParent(tx *gorm.DB, transactionID, justRowID string, justAmount int64) error {
	var parent models.PaymentTransaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).First(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// orphan refund; keep the refund row, nothing to roll up
		s.log.Warnw("refund_parent_missing", "transaction_id", transactionID)
		return nil
	}
	if err != nil {
		return err
	}

	var siblings []*models.RefundRequest
	if err := tx.Where("transaction_id = ? AND id <> ?", transactionID, justRowID).
		Find(&siblings).Error; err != nil {
		return err
	}
	total := refundedAmount(siblings) + justAmount

	target := models.PaymentStatusPartialRefund
	if total >= parent.Amount {
		target = models.PaymentStatusRefunded
	}
	if parent.Status == target {
		return nil
	}
	if err := tx.Model(&models.PaymentTransaction{}).
		Where("id = ?", parent.ID).Update("status", target).Error; err != nil {
		return err
	}
	s.metrics.ObserveTransition("payment", string(target))
	return nil
}

// RejectRefund is the administrative path: pending-only, no gateway call.
func (s *Service) RejectRefund(ctx context.Context, req *RejectRefundRequest) (res types.ServiceResult) {
	defer func() {
		if r := recover(); r != nil {
			logctx.FromCtx(ctx, s.log).Errorw("reject_refund_panic", "panic", r)
			res = types.FailResult("failed to reject refund")
		}
	}()

	if req == nil || req.RefundID == "" {
		return types.FailResult("refund_id is required")
	}

	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.RefundRequest
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("refund_id = ?", req.RefundID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errRefundNotFound
		}
		if err != nil {
			return err
		}
		if !canReject(row.Status) {
			return errRefundNotPending
		}
		return tx.Model(&models.RefundRequest{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"status":       models.RefundStatusRejected,
				"processed_by": req.ProcessedBy,
				"admin_notes":  req.AdminNotes,
				"processed_at": now,
			}).Error
	})

	switch {
	case err == nil:
	case errors.Is(err, errRefundNotFound):
		return types.FailResult("refund request not found")
	case errors.Is(err, errRefundNotPending):
		return types.FailResult("refund cannot be rejected in current status")
	default:
		logctx.FromCtx(ctx, s.log).Errorf("failed to reject refund: %v", err)
		return types.FailResult("failed to reject refund")
	}

	s.metrics.ObserveTransition("refund", string(models.RefundStatusRejected))
	return types.OKResult("refund rejected successfully")
}

// GetRefund treats "not found" as a named outcome, not an error.
func (s *Service) GetRefund(ctx context.Context, refundID string) (*models.RefundRequest, bool) {
	var row models.RefundRequest
	err := s.db.WithContext(ctx).Where("refund_id = ?", refundID).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logctx.FromCtx(ctx, s.log).Errorf("failed to load refund request: %v", err)
		}
		return nil, false
	}
	return &row, true
}

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

// ScanRefunds implements paginated/admin listing with filters.
func (s *Service) ScanRefunds(ctx context.Context, req *ScanRefundsRequest) (*ScanRefundsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.RefundRequest{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count refund requests: %w", err)
	}

	var rows []*models.RefundRequest
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list refund requests: %w", err)
	}
	return &ScanRefundsResponse{Items: rows, Total: total}, nil
}
