package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/planbilling/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPlan(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (id, code, name, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.Code,
		plan.Name,
		plan.Active,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

func (r *repo) FindPlanByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM plans WHERE id = ?`,
		id,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

func (r *repo) FindPlanByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM plans WHERE code = ?`,
		code,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

func (r *repo) UpdatePlanActive(ctx context.Context, db *gorm.DB, id int64, active bool, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE plans SET active = ?, updated_at = ? WHERE id = ?`,
		active,
		updatedAt,
		id,
	).Error
}

func (r *repo) DeletePlan(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM plans WHERE id = ?`, id).Error
}

func (r *repo) InsertBenefit(ctx context.Context, db *gorm.DB, benefit *domain.PlanBenefit) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plan_benefits (id, plan_id, price_cap, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		benefit.ID,
		benefit.PlanID,
		benefit.PriceCap,
		benefit.Note,
		benefit.CreatedAt,
	).Error
}

func (r *repo) ListBenefits(ctx context.Context, db *gorm.DB, planID int64) ([]domain.PlanBenefit, error) {
	var items []domain.PlanBenefit
	err := db.WithContext(ctx).Raw(
		`SELECT id, plan_id, price_cap, note, created_at
		 FROM plan_benefits WHERE plan_id = ? ORDER BY id ASC`,
		planID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteBenefitsByPlan(ctx context.Context, db *gorm.DB, planID int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM plan_benefits WHERE plan_id = ?`, planID).Error
}

func (r *repo) FindTermByMonths(ctx context.Context, db *gorm.DB, months int) (*domain.PlanTerm, error) {
	var term domain.PlanTerm
	err := db.WithContext(ctx).Raw(
		`SELECT id, months, label, created_at FROM plan_terms WHERE months = ?`,
		months,
	).Scan(&term).Error
	if err != nil {
		return nil, err
	}
	if term.ID == 0 {
		return nil, nil
	}
	return &term, nil
}

func (r *repo) InsertTerm(ctx context.Context, db *gorm.DB, term *domain.PlanTerm) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plan_terms (id, months, label, created_at) VALUES (?, ?, ?, ?)`,
		term.ID,
		term.Months,
		term.Label,
		term.CreatedAt,
	).Error
}

func (r *repo) FindPrice(ctx context.Context, db *gorm.DB, planID, termID int64, mode domain.BillingMode) (*domain.PlanPrice, error) {
	var price domain.PlanPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, plan_id, term_id, billing_mode, amount, currency, active, created_at, updated_at
		 FROM plan_prices WHERE plan_id = ? AND term_id = ? AND billing_mode = ?`,
		planID,
		termID,
		mode,
	).Scan(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ID == 0 {
		return nil, nil
	}
	return &price, nil
}

func (r *repo) FindActivePrice(ctx context.Context, db *gorm.DB, planID, termID int64, mode domain.BillingMode) (*domain.PlanPrice, error) {
	var price domain.PlanPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, plan_id, term_id, billing_mode, amount, currency, active, created_at, updated_at
		 FROM plan_prices
		 WHERE plan_id = ? AND term_id = ? AND billing_mode = ? AND active = ?`,
		planID,
		termID,
		mode,
		true,
	).Scan(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ID == 0 {
		return nil, nil
	}
	return &price, nil
}

func (r *repo) ListActivePrices(ctx context.Context, db *gorm.DB, planID int64) ([]domain.ResolvedPrice, error) {
	var items []domain.ResolvedPrice
	err := db.WithContext(ctx).Raw(
		`SELECT p.id, p.plan_id, p.term_id, p.billing_mode, p.amount, p.currency, p.active,
		        p.created_at, p.updated_at, t.months AS term_months
		 FROM plan_prices p
		 JOIN plan_terms t ON t.id = p.term_id
		 WHERE p.plan_id = ? AND p.active = ?
		 ORDER BY t.months ASC, p.billing_mode ASC`,
		planID,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertPrice(ctx context.Context, db *gorm.DB, price *domain.PlanPrice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plan_prices (id, plan_id, term_id, billing_mode, amount, currency, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		price.ID,
		price.PlanID,
		price.TermID,
		price.BillingMode,
		price.Amount,
		price.Currency,
		price.Active,
		price.CreatedAt,
		price.UpdatedAt,
	).Error
}

func (r *repo) UpdatePrice(ctx context.Context, db *gorm.DB, price *domain.PlanPrice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE plan_prices SET amount = ?, currency = ?, active = ?, updated_at = ? WHERE id = ?`,
		price.Amount,
		price.Currency,
		price.Active,
		price.UpdatedAt,
		price.ID,
	).Error
}

func (r *repo) UpdatePriceActive(ctx context.Context, db *gorm.DB, priceID int64, active bool, updatedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE plan_prices SET active = ?, updated_at = ? WHERE id = ?`,
		active,
		updatedAt,
		priceID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) DeletePricesByPlan(ctx context.Context, db *gorm.DB, planID int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM plan_prices WHERE plan_id = ?`, planID).Error
}

func (r *repo) CountMemberships(ctx context.Context, db *gorm.DB, planID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM plan_members WHERE plan_id = ?`,
		planID,
	).Scan(&count).Error
	return count, err
}
