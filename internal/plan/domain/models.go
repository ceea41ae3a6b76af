package domain

import (
	"strings"
	"time"
)

type BillingMode string

var (
	Recurring BillingMode = "RECURRING"
	Prepaid   BillingMode = "PREPAID"
)

// NormalizeBillingMode upper-cases and trims a billing mode.
func NormalizeBillingMode(mode string) BillingMode {
	return BillingMode(strings.ToUpper(strings.TrimSpace(mode)))
}

type Plan struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"type:text;not null;uniqueIndex:ux_plans_code"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Plan) TableName() string { return "plans" }

// PlanBenefit belongs to exactly one plan and is removed with it.
type PlanBenefit struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	PlanID    int64     `json:"plan_id" gorm:"not null;index:idx_plan_benefits_plan"`
	PriceCap  *int64    `json:"price_cap,omitempty"`
	Note      string    `json:"note" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (PlanBenefit) TableName() string { return "plan_benefits" }

type PlanTerm struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Months    int       `json:"months" gorm:"not null;uniqueIndex:ux_plan_terms_months"`
	Label     string    `json:"label" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (PlanTerm) TableName() string { return "plan_terms" }

type PlanPrice struct {
	ID          int64       `json:"id" gorm:"primaryKey"`
	PlanID      int64       `json:"plan_id" gorm:"not null;uniqueIndex:ux_plan_prices_combo,priority:1"`
	TermID      int64       `json:"term_id" gorm:"not null;uniqueIndex:ux_plan_prices_combo,priority:2"`
	BillingMode BillingMode `json:"billing_mode" gorm:"type:text;not null;uniqueIndex:ux_plan_prices_combo,priority:3"`
	Amount      int64       `json:"amount" gorm:"not null"`
	Currency    string      `json:"currency" gorm:"type:text;not null"`
	Active      bool        `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time   `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"not null"`
}

func (PlanPrice) TableName() string { return "plan_prices" }

// ResolvedPrice is a price row joined with its term length.
type ResolvedPrice struct {
	PlanPrice
	TermMonths int `json:"term_months"`
}
