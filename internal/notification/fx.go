package notification

import (
	"context"
	"strings"

	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/config"
	memberdomain "github.com/smallbiznis/planbilling/internal/member/domain"
	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"github.com/smallbiznis/planbilling/internal/notification/repository"
	"github.com/smallbiznis/planbilling/internal/notification/service"
	"github.com/smallbiznis/planbilling/internal/notification/sink"
	"github.com/smallbiznis/planbilling/internal/observability/metrics"
	"github.com/smallbiznis/planbilling/internal/providers/email"
	"github.com/smallbiznis/planbilling/internal/providers/slack"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(NewSinks),
	fx.Provide(ProvideDispatcher),
)

type SinkParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Store     domain.Service
	Members   memberdomain.Service
	Email     email.Provider
}

// NewSinks assembles the sinks enabled in config. The store sink is always on.
func NewSinks(p SinkParams) ([]domain.Sink, error) {
	sinks := []domain.Sink{sink.NewStore(p.Store)}

	if p.Config.Email.Enabled {
		sinks = append(sinks, sink.NewEmail(p.Email, p.Members))
	}
	if p.Config.Slack.Enabled && strings.TrimSpace(p.Config.Slack.WebhookURL) != "" {
		sinks = append(sinks, sink.NewSlack(slack.NewWebhook(p.Config.Slack.WebhookURL, nil), p.Config.Slack.ChannelID))
	}
	if p.Config.Kafka.Enabled && len(p.Config.Kafka.Brokers) > 0 {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(p.Config.Kafka.Brokers...),
			kgo.DefaultProduceTopic(p.Config.Kafka.Topic),
		)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				client.Close()
				return nil
			},
		})
		sinks = append(sinks, sink.NewKafka(client, p.Config.Kafka.Topic))
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	p.Log.Info("notification sinks configured", zap.Strings("sinks", names))
	return sinks, nil
}

type DispatcherParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics
	Clock     clock.Clock
	Sinks     []domain.Sink
}

func ProvideDispatcher(p DispatcherParams) (*Dispatcher, domain.Notifier) {
	d := NewDispatcher(DispatcherConfig{
		QueueSize: p.Config.Notification.QueueSize,
		Workers:   p.Config.Notification.Workers,
	}, p.Log, p.Metrics, p.Clock, p.Sinks...)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return d.Stop(ctx)
		},
	})
	return d, d
}
