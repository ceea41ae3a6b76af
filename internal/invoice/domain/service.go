package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	// FindOpenForPeriod returns the OPEN invoice of the cycle starting at
	// periodStart, or ErrInvoiceNotFound.
	FindOpenForPeriod(ctx context.Context, tx *gorm.DB, membershipID int64, periodStart time.Time) (*Invoice, error)
	Create(ctx context.Context, tx *gorm.DB, req CreateInvoiceRequest) (*Invoice, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, id int64, paidAt time.Time) error
	Void(ctx context.Context, tx *gorm.DB, id int64, reason string, at time.Time) error

	GetByUID(ctx context.Context, uid string) (*Invoice, error)
	// ListByMembership returns invoices newest first.
	ListByMembership(ctx context.Context, membershipID int64) ([]Invoice, error)
}

type CreateInvoiceRequest struct {
	MembershipID int64
	PlanID       int64
	PriceID      int64
	TermMonths   int
	BillingMode  string
	Amount       int64
	Currency     string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Metadata     map[string]any
}

var (
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrDuplicateInvoice = errors.New("duplicate_invoice")
	ErrInvoiceNotOpen   = errors.New("invoice_not_open")
)
