// Package domain contains persistence models for plan invoices.
package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var cycleNamespace = uuid.MustParse("6f1c2a8e-4b7d-5e3a-9c0f-2d8b7e61a4c5")

// CycleUID derives the invoice uid of a billing cycle. The same membership and
// period start always yield the same uid, so a cycle whose transaction rolled
// back after a charge is retried under the same idempotency key.
func CycleUID(membershipID int64, periodStart time.Time) string {
	name := strconv.FormatInt(membershipID, 10) + ":" + periodStart.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(cycleNamespace, []byte(name)).String()
}

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "OPEN"
	InvoiceStatusPaid InvoiceStatus = "PAID"
	InvoiceStatusVoid InvoiceStatus = "VOID"
)

// Invoice is the charge obligation of one membership billing cycle.
type Invoice struct {
	ID           int64             `json:"id" gorm:"primaryKey"`
	UID          string            `json:"uid" gorm:"column:uid;type:text;not null;uniqueIndex:ux_plan_invoices_uid"`
	MembershipID int64             `json:"membership_id" gorm:"not null;uniqueIndex:ux_plan_invoices_cycle,priority:1"`
	PlanID       int64             `json:"plan_id" gorm:"not null"`
	PriceID      int64             `json:"price_id" gorm:"not null"`
	TermMonths   int               `json:"term_months" gorm:"not null"`
	BillingMode  string            `json:"billing_mode" gorm:"type:text;not null"`
	Amount       int64             `json:"amount" gorm:"not null"`
	Currency     string            `json:"currency" gorm:"type:text;not null"`
	PeriodStart  time.Time         `json:"period_start" gorm:"not null;uniqueIndex:ux_plan_invoices_cycle,priority:2"`
	PeriodEnd    time.Time         `json:"period_end" gorm:"not null"`
	Status       InvoiceStatus     `json:"status" gorm:"type:text;not null"`
	PaidAt       *time.Time        `json:"paid_at,omitempty"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "plan_invoices" }
