package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/config"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	memberdomain "github.com/smallbiznis/planbilling/internal/member/domain"
	"github.com/smallbiznis/planbilling/internal/membership/domain"
	plandomain "github.com/smallbiznis/planbilling/internal/plan/domain"
	"github.com/smallbiznis/planbilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Members  memberdomain.Service
	Plans    plandomain.Service
	Invoices invoicedomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	members  memberdomain.Service
	plans    plandomain.Service
	invoices invoicedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("membership.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		members:  p.Members,
		plans:    p.Plans,
		invoices: p.Invoices,
	}
}

// Subscribe creates an ACTIVE membership whose first charge falls one term
// after now.
func (s *Service) Subscribe(ctx context.Context, req domain.SubscribeRequest) (*domain.Membership, error) {
	if req.TermMonths <= 0 {
		return nil, domain.ErrInvalidTerm
	}
	mode := plandomain.NormalizeBillingMode(req.BillingMode)

	if _, err := s.members.GetMember(ctx, req.MemberID); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, domain.ErrPlanInactive
	}
	price, err := s.plans.ResolvePrice(ctx, req.PlanID, req.TermMonths, mode)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	membership := &domain.Membership{
		ID:            s.genID.Generate().Int64(),
		MemberID:      req.MemberID,
		PlanID:        req.PlanID,
		TermID:        price.TermID,
		TermMonths:    price.TermMonths,
		BillingMode:   string(mode),
		Status:        domain.StatusActive,
		NextBillingAt: domain.AddMonths(now, price.TermMonths),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		live, err := s.repo.FindLiveByMember(ctx, tx, req.MemberID)
		if err != nil {
			return err
		}
		if live != nil {
			return domain.ErrAlreadySubscribed
		}
		if err := s.repo.Insert(ctx, tx, membership); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadySubscribed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("membership created",
		zap.Int64("membership_id", membership.ID),
		zap.Int64("member_id", membership.MemberID),
		zap.Int64("plan_id", membership.PlanID),
		zap.Int("term_months", membership.TermMonths),
		zap.Time("next_billing_at", membership.NextBillingAt),
	)
	return membership, nil
}

// Cancel is terminal and idempotent. It takes the billing row lock, so an
// in-flight charge commits before the cancel applies.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*domain.Membership, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.CancelReasonRequested
	}

	var out *domain.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.LockForBilling(ctx, tx, id)
		if err != nil {
			return err
		}
		out = m
		if m.Status == domain.StatusCancelled {
			return nil
		}

		now := s.clock.Now()
		if err := s.voidOpenInvoice(ctx, tx, m, reason, now); err != nil {
			return err
		}
		m.Status = domain.StatusCancelled
		m.CanceledAt = &now
		m.CancelReason = &reason
		m.RetryAfter = nil
		m.UpdatedAt = now
		return s.repo.UpdateState(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("membership cancelled",
		zap.Int64("membership_id", out.ID),
		zap.String("cancel_reason", reason),
	)
	return out, nil
}

func (s *Service) voidOpenInvoice(ctx context.Context, tx *gorm.DB, m *domain.Membership, reason string, at time.Time) error {
	invoice, err := s.invoices.FindOpenForPeriod(ctx, tx, m.ID, m.NextBillingAt)
	if errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.invoices.Void(ctx, tx, invoice.ID, reason, at); err != nil {
		return fmt.Errorf("void invoice %s: %w", invoice.UID, err)
	}
	return nil
}

func (s *Service) Pause(ctx context.Context, id int64) (*domain.Membership, error) {
	return s.transition(ctx, id, domain.StatusPaused, domain.StatusActive)
}

// Resume reactivates a paused membership. A next_billing_at already in the
// past makes it due on the next tick.
func (s *Service) Resume(ctx context.Context, id int64) (*domain.Membership, error) {
	return s.transition(ctx, id, domain.StatusActive, domain.StatusPaused)
}

func (s *Service) transition(ctx context.Context, id int64, target domain.Status, from domain.Status) (*domain.Membership, error) {
	var out *domain.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.LockForBilling(ctx, tx, id)
		if err != nil {
			return err
		}
		out = m
		if m.Status == target {
			return nil
		}
		if m.Status != from {
			return domain.ErrInvalidTransition
		}
		m.Status = target
		m.UpdatedAt = s.clock.Now()
		return s.repo.UpdateState(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Membership, error) {
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrMembershipNotFound
	}
	return m, nil
}

func (s *Service) ListByMember(ctx context.Context, memberID int64) ([]domain.Membership, error) {
	return s.repo.ListByMember(ctx, s.db, memberID)
}

func (s *Service) DueForBilling(ctx context.Context, asOf time.Time) ([]domain.Membership, error) {
	return s.repo.ListDue(ctx, s.db, asOf)
}

func (s *Service) LockForBilling(ctx context.Context, tx *gorm.DB, id int64) (*domain.Membership, error) {
	m, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrMembershipNotFound
	}
	return m, nil
}

// RecordSuccess closes the paid cycle and moves next_billing_at one term ahead.
func (s *Service) RecordSuccess(ctx context.Context, tx *gorm.DB, m *domain.Membership, at time.Time) error {
	m.NextBillingAt = domain.AddMonths(m.NextBillingAt, m.TermMonths)
	m.Status = domain.StatusActive
	m.FailedAttempts = 0
	m.RetryAfter = nil
	m.LastAttemptAt = &at
	m.UpdatedAt = at
	return s.repo.UpdateState(ctx, tx, m)
}

// RecordFailure counts a failed charge. next_billing_at never moves here; the
// dunning policy only delays the retry.
func (s *Service) RecordFailure(ctx context.Context, tx *gorm.DB, m *domain.Membership, at time.Time, policy config.DunningPolicy) (domain.FailureOutcome, error) {
	m.FailedAttempts++
	m.LastAttemptAt = &at
	m.UpdatedAt = at

	outcome := domain.FailureOutcome{FailedAttempts: m.FailedAttempts}
	if policy.Exhausted(m.FailedAttempts) && policy.CancelOnExhaustion() {
		reason := domain.CancelReasonDunningExhausted
		m.Status = domain.StatusCancelled
		m.CanceledAt = &at
		m.CancelReason = &reason
		m.RetryAfter = nil
		outcome.Cancelled = true
	} else {
		retryAfter := at.Add(policy.Backoff(m.FailedAttempts))
		m.Status = domain.StatusPastDue
		m.RetryAfter = &retryAfter
		outcome.RetryAfter = &retryAfter
	}

	if err := s.repo.UpdateState(ctx, tx, m); err != nil {
		return domain.FailureOutcome{}, err
	}
	return outcome, nil
}
