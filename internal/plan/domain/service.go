package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	// WithTx returns a Service whose reads and writes join tx.
	WithTx(tx *gorm.DB) Service

	CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	GetPlan(ctx context.Context, id int64) (*Plan, error)
	SetPlanActive(ctx context.Context, id int64, active bool) error
	DeletePlan(ctx context.Context, id int64) error

	AddBenefit(ctx context.Context, req AddBenefitRequest) (*PlanBenefit, error)
	ListBenefits(ctx context.Context, planID int64) ([]PlanBenefit, error)

	EnsureTerm(ctx context.Context, months int, label string) (*PlanTerm, error)
	UpsertPrice(ctx context.Context, req UpsertPriceRequest) (*PlanPrice, error)
	SetPriceActive(ctx context.Context, priceID int64, active bool) error

	// ResolvePrice returns the single active price for the combination.
	ResolvePrice(ctx context.Context, planID int64, termMonths int, mode BillingMode) (*ResolvedPrice, error)
	ListActivePrices(ctx context.Context, planID int64) ([]ResolvedPrice, error)
}

type CreatePlanRequest struct {
	Code string
	Name string
}

type AddBenefitRequest struct {
	PlanID   int64
	PriceCap *int64
	Note     string
}

type UpsertPriceRequest struct {
	PlanID      int64
	TermMonths  int
	BillingMode BillingMode
	Amount      int64
	Currency    string
	Active      *bool
}

var (
	ErrPlanNotFound       = errors.New("plan_not_found")
	ErrPriceNotFound      = errors.New("price_not_found")
	ErrTermNotFound       = errors.New("term_not_found")
	ErrDuplicatePlanCode  = errors.New("duplicate_plan_code")
	ErrPlanInUse          = errors.New("plan_in_use")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidTerm        = errors.New("invalid_term")
	ErrInvalidBillingMode = errors.New("invalid_billing_mode")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidCurrency    = errors.New("invalid_currency")
)
