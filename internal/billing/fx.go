package billing

import "go.uber.org/fx"

var Module = fx.Module("billing.orchestrator",
	fx.Provide(New),
)
