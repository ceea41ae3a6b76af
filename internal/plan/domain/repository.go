package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertPlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindPlanByID(ctx context.Context, db *gorm.DB, id int64) (*Plan, error)
	FindPlanByCode(ctx context.Context, db *gorm.DB, code string) (*Plan, error)
	UpdatePlanActive(ctx context.Context, db *gorm.DB, id int64, active bool, updatedAt time.Time) error
	DeletePlan(ctx context.Context, db *gorm.DB, id int64) error

	InsertBenefit(ctx context.Context, db *gorm.DB, benefit *PlanBenefit) error
	ListBenefits(ctx context.Context, db *gorm.DB, planID int64) ([]PlanBenefit, error)
	DeleteBenefitsByPlan(ctx context.Context, db *gorm.DB, planID int64) error

	FindTermByMonths(ctx context.Context, db *gorm.DB, months int) (*PlanTerm, error)
	InsertTerm(ctx context.Context, db *gorm.DB, term *PlanTerm) error

	FindPrice(ctx context.Context, db *gorm.DB, planID, termID int64, mode BillingMode) (*PlanPrice, error)
	FindActivePrice(ctx context.Context, db *gorm.DB, planID, termID int64, mode BillingMode) (*PlanPrice, error)
	ListActivePrices(ctx context.Context, db *gorm.DB, planID int64) ([]ResolvedPrice, error)
	InsertPrice(ctx context.Context, db *gorm.DB, price *PlanPrice) error
	UpdatePrice(ctx context.Context, db *gorm.DB, price *PlanPrice) error
	UpdatePriceActive(ctx context.Context, db *gorm.DB, priceID int64, active bool, updatedAt time.Time) (int64, error)
	DeletePricesByPlan(ctx context.Context, db *gorm.DB, planID int64) error

	CountMemberships(ctx context.Context, db *gorm.DB, planID int64) (int64, error)
}
