// Package errtrack reports unexpected billing failures to Sentry.
package errtrack

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/smallbiznis/planbilling/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Tracker captures errors when a DSN is configured and is a no-op otherwise.
type Tracker struct {
	enabled bool
}

func New(lc fx.Lifecycle, cfg Config, log *zap.Logger) *Tracker {
	if cfg.DSN == "" {
		return &Tracker{}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		log.Warn("sentry initialization failed", zap.Error(err))
		return &Tracker{}
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				sentry.Flush(2 * time.Second)
				return nil
			},
		})
	}
	return &Tracker{enabled: true}
}

// Capture reports err with the given extras attached to the event scope.
func (t *Tracker) Capture(ctx context.Context, err error, extras map[string]any) {
	if t == nil || !t.enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range correlation.Metadata(ctx) {
			scope.SetTag(key, value)
		}
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		sentry.CaptureException(err)
	})
}
