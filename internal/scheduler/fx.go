package scheduler

import (
	"context"
	"strings"

	"github.com/smallbiznis/planbilling/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

// NewScheduler starts the billing loop with the application, on the cron
// spec when one is set and on a fixed interval otherwise.
func NewScheduler(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.Scheduler.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			if strings.TrimSpace(sched.cfg.CronSpec) != "" {
				c, err := sched.StartCron(ctx)
				if err != nil {
					cancel()
					return err
				}
				lc.Append(fx.Hook{
					OnStop: func(stopCtx context.Context) error {
						cancel()
						select {
						case <-c.Stop().Done():
						case <-stopCtx.Done():
						}
						return nil
					},
				})
				return nil
			}

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
