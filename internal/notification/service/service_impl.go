package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Save(ctx context.Context, msg domain.Message) (*domain.Notification, error) {
	if msg.MemberID == 0 {
		return nil, domain.ErrInvalidMember
	}
	if !msg.Type.Valid() {
		return nil, domain.ErrInvalidType
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	n := &domain.Notification{
		ID:        s.genID.Generate().Int64(),
		MemberID:  msg.MemberID,
		Type:      msg.Type,
		Title:     strings.TrimSpace(msg.Title),
		Content:   strings.TrimSpace(msg.Content),
		CreatedAt: createdAt,
	}
	if err := s.repo.Insert(ctx, s.db, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) ListByMember(ctx context.Context, memberID int64, limit int) ([]domain.Notification, error) {
	if memberID == 0 {
		return nil, domain.ErrInvalidMember
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByMember(ctx, s.db, memberID, limit)
}

func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, domain.ErrInvalidRetention
	}
	cutoff := s.clock.Now().Add(-retention)
	deleted, err := s.repo.DeleteCreatedBefore(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("notifications cleaned up",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
