package callback

import (
	"go.uber.org/fx"

	"github.com/fatflowers/paygate/internal/app/service/auditlog"
	"github.com/fatflowers/paygate/internal/app/service/payment"
	"github.com/fatflowers/paygate/internal/app/service/refund"
)

// Module wires the processor against the concrete ledgers.
var Module = fx.Options(
	fx.Provide(func(s *payment.Service) PaymentLedger { return s }),
	fx.Provide(func(s *refund.Service) RefundLedger { return s }),
	fx.Provide(func(s *auditlog.Service) AuditRecorder { return s }),
	fx.Provide(NewProcessor),
)
