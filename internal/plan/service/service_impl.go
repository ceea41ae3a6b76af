package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/plan/domain"
	"github.com/smallbiznis/planbilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
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

func (s *Service) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	code := slug.Make(strings.TrimSpace(req.Code))
	if code == "" {
		code = slug.Make(name)
	}

	now := s.clock.Now()
	plan := &domain.Plan{
		ID:        s.genID.Generate().Int64(),
		Code:      code,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindPlanByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicatePlanCode
		}
		if err := s.repo.InsertPlan(ctx, tx, plan); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicatePlanCode
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan created", zap.Int64("plan_id", plan.ID), zap.String("code", plan.Code))
	return plan, nil
}

func (s *Service) GetPlan(ctx context.Context, id int64) (*domain.Plan, error) {
	plan, err := s.repo.FindPlanByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) SetPlanActive(ctx context.Context, id int64, active bool) error {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	if plan.Active == active {
		return nil
	}
	return s.repo.UpdatePlanActive(ctx, s.db, id, active, s.clock.Now())
}

// DeletePlan removes benefits, prices and then the plan in one transaction.
// Any membership row, cancelled ones included, keeps the plan referenced.
func (s *Service) DeletePlan(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := s.repo.FindPlanByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if plan == nil {
			return domain.ErrPlanNotFound
		}

		// Cancelled memberships still reference the plan row, so any
		// membership at all blocks the delete.
		memberships, err := s.repo.CountMemberships(ctx, tx, id)
		if err != nil {
			return err
		}
		if memberships > 0 {
			return domain.ErrPlanInUse
		}

		if err := s.repo.DeleteBenefitsByPlan(ctx, tx, id); err != nil {
			return fmt.Errorf("delete benefits: %w", err)
		}
		if err := s.repo.DeletePricesByPlan(ctx, tx, id); err != nil {
			return fmt.Errorf("delete prices: %w", err)
		}
		if err := s.repo.DeletePlan(ctx, tx, id); err != nil {
			return fmt.Errorf("delete plan: %w", err)
		}
		s.log.Info("plan deleted", zap.Int64("plan_id", id))
		return nil
	})
}

func (s *Service) AddBenefit(ctx context.Context, req domain.AddBenefitRequest) (*domain.PlanBenefit, error) {
	if _, err := s.GetPlan(ctx, req.PlanID); err != nil {
		return nil, err
	}
	if req.PriceCap != nil && *req.PriceCap < 0 {
		return nil, domain.ErrInvalidAmount
	}
	benefit := &domain.PlanBenefit{
		ID:        s.genID.Generate().Int64(),
		PlanID:    req.PlanID,
		PriceCap:  req.PriceCap,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertBenefit(ctx, s.db, benefit); err != nil {
		return nil, err
	}
	return benefit, nil
}

func (s *Service) ListBenefits(ctx context.Context, planID int64) ([]domain.PlanBenefit, error) {
	return s.repo.ListBenefits(ctx, s.db, planID)
}

// EnsureTerm returns the term for the given length, creating it when missing.
func (s *Service) EnsureTerm(ctx context.Context, months int, label string) (*domain.PlanTerm, error) {
	if months <= 0 {
		return nil, domain.ErrInvalidTerm
	}
	term, err := s.repo.FindTermByMonths(ctx, s.db, months)
	if err != nil {
		return nil, err
	}
	if term != nil {
		return term, nil
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = fmt.Sprintf("%d month", months)
		if months > 1 {
			label += "s"
		}
	}
	term = &domain.PlanTerm{
		ID:        s.genID.Generate().Int64(),
		Months:    months,
		Label:     label,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertTerm(ctx, s.db, term); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindTermByMonths(ctx, s.db, months)
		}
		return nil, err
	}
	return term, nil
}

func (s *Service) UpsertPrice(ctx context.Context, req domain.UpsertPriceRequest) (*domain.PlanPrice, error) {
	mode := domain.NormalizeBillingMode(string(req.BillingMode))
	if mode != domain.Recurring && mode != domain.Prepaid {
		return nil, domain.ErrInvalidBillingMode
	}
	// Gateways refuse zero charges, so a price must bill something.
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}
	if _, err := s.GetPlan(ctx, req.PlanID); err != nil {
		return nil, err
	}
	term, err := s.EnsureTerm(ctx, req.TermMonths, "")
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	now := s.clock.Now()

	var price *domain.PlanPrice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindPrice(ctx, tx, req.PlanID, term.ID, mode)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Amount = req.Amount
			existing.Currency = currency
			existing.Active = active
			existing.UpdatedAt = now
			price = existing
			return s.repo.UpdatePrice(ctx, tx, existing)
		}
		price = &domain.PlanPrice{
			ID:          s.genID.Generate().Int64(),
			PlanID:      req.PlanID,
			TermID:      term.ID,
			BillingMode: mode,
			Amount:      req.Amount,
			Currency:    currency,
			Active:      active,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.repo.InsertPrice(ctx, tx, price)
	})
	if err != nil {
		return nil, err
	}
	return price, nil
}

func (s *Service) SetPriceActive(ctx context.Context, priceID int64, active bool) error {
	affected, err := s.repo.UpdatePriceActive(ctx, s.db, priceID, active, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrPriceNotFound
	}
	return nil
}

func (s *Service) ResolvePrice(ctx context.Context, planID int64, termMonths int, mode domain.BillingMode) (*domain.ResolvedPrice, error) {
	if termMonths <= 0 {
		return nil, domain.ErrPriceNotFound
	}
	term, err := s.repo.FindTermByMonths(ctx, s.db, termMonths)
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, domain.ErrPriceNotFound
	}

	price, err := s.repo.FindActivePrice(ctx, s.db, planID, term.ID, domain.NormalizeBillingMode(string(mode)))
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, domain.ErrPriceNotFound
	}
	return &domain.ResolvedPrice{PlanPrice: *price, TermMonths: term.Months}, nil
}

func (s *Service) ListActivePrices(ctx context.Context, planID int64) ([]domain.ResolvedPrice, error) {
	return s.repo.ListActivePrices(ctx, s.db, planID)
}
