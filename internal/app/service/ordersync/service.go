// Package ordersync propagates a successful payment into the order
// aggregate's own status field and fans the event out to downstream
// collaborators on a best-effort basis.
package ordersync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/logctx"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotAwaiting = errors.New("order is not awaiting payment")
)

// Notifier is a downstream collaborator interested in paid orders (points
// accrual and the like). Failures are logged, never replayed: the payment
// state change is the source of truth and may outrun slower bookkeeping.
type Notifier interface {
	Name() string
	OrderPaid(ctx context.Context, order *models.Order) error
}

type Service struct {
	db        *gorm.DB
	log       *zap.SugaredLogger
	notifiers []Notifier
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// AddNotifier registers a downstream collaborator. Not safe for concurrent
// use; call during wiring only.
func (s *Service) AddNotifier(n Notifier) {
	if n != nil {
		s.notifiers = append(s.notifiers, n)
	}
}

// MarkOrderPaid moves the order from awaiting_payment to paid inside the
// caller's database transaction, stamping pay_time. It must run in the same
// atomic unit of work as the payment-success ledger update.
func (s *Service) MarkOrderPaid(ctx context.Context, tx *gorm.DB, orderID string, paidAt time.Time) (*models.Order, error) {
	var order models.Order
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusAwaitingPayment {
		return nil, ErrOrderNotAwaiting
	}

	order.Status = models.OrderStatusPaid
	order.PayTime = &paidAt
	if err := tx.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]any{"status": order.Status, "pay_time": order.PayTime}).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// NotifyOrderPaid runs the best-effort side effect chain after the payment
// transaction has committed. It never returns an error.
func (s *Service) NotifyOrderPaid(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	for _, n := range s.notifiers {
		if err := n.OrderPaid(ctx, order); err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("order_paid_notify_failed",
				"notifier", n.Name(), "order_id", order.ID, "error", err.Error())
		}
	}
}

var Module = fx.Options(
	fx.Provide(New),
)
