package lock

import (
	"context"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/planbilling/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyMembership = "planbilling:membership:"

// MembershipLocker guards one membership per billing run across processes.
// A nil MembershipLocker always grants the lock, leaving the database row
// lock as the only guard.
type MembershipLocker struct {
	locker *Locker
	ttl    time.Duration
}

func NewMembershipLocker(client redis.UniversalClient, ttl time.Duration) *MembershipLocker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MembershipLocker{locker: NewLocker(client), ttl: ttl}
}

func (m *MembershipLocker) Enabled() bool {
	return m != nil && m.locker != nil
}

func MembershipKey(membershipID int64) string {
	return keyMembership + strconv.FormatInt(membershipID, 10)
}

// Acquire returns a release func when the lock was taken. ok is false when
// another worker holds it.
func (m *MembershipLocker) Acquire(ctx context.Context, membershipID int64) (release func(), ok bool, err error) {
	if !m.Enabled() {
		return func() {}, true, nil
	}
	key := MembershipKey(membershipID)
	token, ok, err := m.locker.TryLock(ctx, key, m.ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	return func() {
		// The billing ctx may already be cancelled; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.locker.Release(releaseCtx, key, token)
	}, true, nil
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// Provide builds the redis-backed locker when REDIS_ENABLED is set.
func Provide(p Params) *MembershipLocker {
	cfg := p.Config.Redis
	if !cfg.Enabled || strings.TrimSpace(cfg.Addr) == "" {
		p.Log.Info("redis membership lock disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.Addr),
		Password: strings.TrimSpace(cfg.Password),
		DB:       cfg.DB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				p.Log.Warn("redis ping failed", zap.String("addr", cfg.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewMembershipLocker(client, cfg.LockTTL)
}
