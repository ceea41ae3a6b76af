package gateway

import (
	"net/http"
	"time"

	"github.com/smallbiznis/planbilling/internal/config"
	"github.com/smallbiznis/planbilling/internal/gateway/adapters/sandbox"
	"github.com/smallbiznis/planbilling/internal/gateway/adapters/stripe"
	"github.com/smallbiznis/planbilling/internal/gateway/adapters/toss"
	"github.com/smallbiznis/planbilling/internal/gateway/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway",
	fx.Provide(func() *Registry {
		return NewRegistry(toss.NewFactory(), stripe.NewFactory(), sandbox.NewFactory())
	}),
	fx.Provide(NewGateway),
)

// NewGateway builds the adapter selected by PAYMENT_GATEWAY.
func NewGateway(registry *Registry, cfg config.Config, log *zap.Logger) (domain.Gateway, error) {
	client := &http.Client{
		// The orchestrator bounds each charge with its own deadline; this
		// only catches calls made without one.
		Timeout:   2 * cfg.Gateway.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	if client.Timeout <= 0 {
		client.Timeout = 30 * time.Second
	}

	gw, err := registry.NewAdapter(cfg.Gateway.Provider, domain.AdapterConfig{
		SecretKey:  cfg.Gateway.SecretKey,
		AccountID:  cfg.Gateway.AccountID,
		BaseURL:    cfg.Gateway.BaseURL,
		HTTPClient: client,
	})
	if err != nil {
		return nil, err
	}
	log.Info("payment gateway configured", zap.String("provider", gw.Provider()))
	return gw, nil
}
