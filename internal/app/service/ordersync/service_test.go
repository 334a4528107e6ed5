package ordersync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/models"
)

type recordingNotifier struct {
	name   string
	err    error
	orders []string
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) OrderPaid(_ context.Context, order *models.Order) error {
	n.orders = append(n.orders, order.ID)
	return n.err
}

func TestNotifyOrderPaid_BestEffort(t *testing.T) {
	s := New(nil, zap.NewNop().Sugar())
	failing := &recordingNotifier{name: "points", err: errors.New("points service down")}
	healthy := &recordingNotifier{name: "audit"}
	s.AddNotifier(failing)
	s.AddNotifier(healthy)

	now := time.Now()
	order := &models.Order{ID: "R1001", Status: models.OrderStatusPaid, PayTime: &now}

	// a failing notifier must not stop the chain or panic
	s.NotifyOrderPaid(context.Background(), order)

	require.Equal(t, []string{"R1001"}, failing.orders)
	require.Equal(t, []string{"R1001"}, healthy.orders)
}

func TestNotifyOrderPaid_NilOrderIgnored(t *testing.T) {
	s := New(nil, zap.NewNop().Sugar())
	n := &recordingNotifier{name: "points"}
	s.AddNotifier(n)

	s.NotifyOrderPaid(context.Background(), nil)
	require.Empty(t, n.orders)
}
