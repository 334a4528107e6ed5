// Package auditlog keeps the append-only forensic trail of inbound gateway
// deliveries. Records are written synchronously before processing so the
// trail survives even when parsing or verification fails.
package auditlog

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Record persists the raw delivery before processing starts. A storage
// failure is logged but does not block callback processing; the
// acknowledgement contract outranks the audit write.
func (s *Service) Record(ctx context.Context, entry *models.PaymentCallbackLog) *models.PaymentCallbackLog {
	if entry == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to record callback audit entry: %v", err)
	}
	return entry
}

// Finish updates the entry with its processing outcome and the response sent
// back to the gateway. Rows are never deleted.
func (s *Service) Finish(ctx context.Context, entry *models.PaymentCallbackLog) {
	if entry == nil || entry.ID == "" {
		return
	}
	updates := map[string]any{
		"processed":        entry.Processed,
		"processing_error": entry.ProcessingError,
		"transaction_id":   entry.TransactionID,
		"refund_id":        entry.RefundID,
		"response_status":  entry.ResponseStatus,
		"response_body":    entry.ResponseBody,
	}
	err := s.db.WithContext(ctx).Model(&models.PaymentCallbackLog{}).
		Where("id = ?", entry.ID).Updates(updates).Error
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to finish callback audit entry: %v", err)
	}
}

var Module = fx.Options(
	fx.Provide(New),
)
