package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	ExhaustedActionCancel = "cancel"
	ExhaustedActionNone   = "none"
)

// BillingConfig carries the tunable billing policy read from billing.yml.
type BillingConfig struct {
	Dunning DunningPolicy `mapstructure:"dunning"`
}

// DunningPolicy controls retries of failed recurring charges.
type DunningPolicy struct {
	MaxAttempts     int           `mapstructure:"maxAttempts"`
	InitialBackoff  time.Duration `mapstructure:"initialBackoff"`
	MaxBackoff      time.Duration `mapstructure:"maxBackoff"`
	Multiplier      float64       `mapstructure:"multiplier"`
	ExhaustedAction string        `mapstructure:"exhaustedAction"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Dunning: DunningPolicy{
			MaxAttempts:     4,
			InitialBackoff:  24 * time.Hour,
			MaxBackoff:      72 * time.Hour,
			Multiplier:      2,
			ExhaustedAction: ExhaustedActionCancel,
		},
	}
}

// Backoff returns the delay before the next retry after the given number of
// consecutive failures.
func (p DunningPolicy) Backoff(failures int) time.Duration {
	if failures <= 0 || p.InitialBackoff <= 0 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(p.InitialBackoff)
	for i := 1; i < failures; i++ {
		delay *= multiplier
		if p.MaxBackoff > 0 && delay >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && time.Duration(delay) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(delay)
}

// Exhausted reports whether the failure count reached the retry ceiling.
func (p DunningPolicy) Exhausted(failures int) bool {
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}

// CancelOnExhaustion reports whether exhausted memberships are cancelled.
func (p DunningPolicy) CancelOnExhaustion() bool {
	return strings.EqualFold(strings.TrimSpace(p.ExhaustedAction), ExhaustedActionCancel)
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder wraps a fixed config without file watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("billing.config")

	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/planbilling/config")
	v.AddConfigPath("/etc/planbilling")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PLANBILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.dunning.maxAttempts", defaults.Dunning.MaxAttempts)
	v.SetDefault("billing.dunning.initialBackoff", defaults.Dunning.InitialBackoff)
	v.SetDefault("billing.dunning.maxBackoff", defaults.Dunning.MaxBackoff)
	v.SetDefault("billing.dunning.multiplier", defaults.Dunning.Multiplier)
	v.SetDefault("billing.dunning.exhaustedAction", defaults.Dunning.ExhaustedAction)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("billing config reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Warn("invalid billing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	cfg, ok := h.current.Load().(BillingConfig)
	if !ok {
		return DefaultBillingConfig()
	}
	return cfg
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.Dunning.MaxAttempts < 0 {
		return errors.New("billing.dunning.maxAttempts cannot be negative")
	}
	if cfg.Dunning.InitialBackoff < 0 || cfg.Dunning.MaxBackoff < 0 {
		return errors.New("billing.dunning backoff cannot be negative")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Dunning.ExhaustedAction)) {
	case ExhaustedActionCancel, ExhaustedActionNone:
	default:
		return errors.New("billing.dunning.exhaustedAction must be cancel or none")
	}
	return nil
}
