package refund

import "go.uber.org/fx"

// Module exposes the refund ledger service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) Manager { return s }),
)
