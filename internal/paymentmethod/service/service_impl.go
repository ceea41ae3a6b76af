package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planbilling/internal/clock"
	memberdomain "github.com/smallbiznis/planbilling/internal/member/domain"
	"github.com/smallbiznis/planbilling/internal/paymentmethod/domain"
	"github.com/smallbiznis/planbilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Members memberdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	members memberdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("paymentmethod.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		members: p.Members,
	}
}

func (s *Service) WithTx(tx *gorm.DB) domain.Service {
	if tx == nil {
		return s
	}
	next := *s
	next.db = tx
	return &next
}

// RegisterMethod stores a tokenized card. A (member, customerRef) pair can be
// registered once; the duplicate check runs before anything is written.
func (s *Service) RegisterMethod(ctx context.Context, req domain.RegisterMethodRequest) (*domain.PaymentMethod, error) {
	customerRef := strings.TrimSpace(req.CustomerRef)
	if customerRef == "" {
		return nil, domain.ErrInvalidReference
	}
	token := strings.TrimSpace(req.GatewayToken)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	exists, err := s.repo.Exists(ctx, s.db, req.MemberID, customerRef)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateMethod
	}
	if _, err := s.members.GetMember(ctx, req.MemberID); err != nil {
		return nil, err
	}

	method := &domain.PaymentMethod{
		ID:           s.genID.Generate().Int64(),
		MemberID:     req.MemberID,
		CustomerRef:  customerRef,
		GatewayToken: token,
		CardBrand:    strings.TrimSpace(req.Card.Brand),
		CardBIN:      strings.TrimSpace(req.Card.BIN),
		CardLast4:    strings.TrimSpace(req.Card.Last4),
		Active:       true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, method); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateMethod
		}
		return nil, err
	}

	s.log.Info("payment method registered",
		zap.Int64("member_id", method.MemberID),
		zap.Int64("payment_method_id", method.ID),
		zap.String("card_last4", method.CardLast4),
	)
	return method, nil
}

func (s *Service) FindMethod(ctx context.Context, memberID int64, customerRef string) (*domain.PaymentMethod, error) {
	method, err := s.repo.FindByMemberAndRef(ctx, s.db, memberID, strings.TrimSpace(customerRef))
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, domain.ErrMethodNotFound
	}
	return method, nil
}

func (s *Service) ListMethods(ctx context.Context, memberID int64) ([]domain.PaymentMethod, error) {
	return s.repo.ListByMember(ctx, s.db, memberID)
}

func (s *Service) DefaultMethod(ctx context.Context, memberID int64) (*domain.PaymentMethod, error) {
	method, err := s.repo.FindNewestActive(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, domain.ErrMethodNotFound
	}
	return method, nil
}

func (s *Service) DeactivateMethod(ctx context.Context, memberID int64, customerRef string) error {
	method, err := s.FindMethod(ctx, memberID, customerRef)
	if err != nil {
		return err
	}
	if !method.Active {
		return nil
	}
	return s.repo.Deactivate(ctx, s.db, method.ID)
}
