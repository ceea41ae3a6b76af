package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	// RecordAttempt appends an attempt inside tx. Attempts are never updated.
	RecordAttempt(ctx context.Context, tx *gorm.DB, req RecordRequest) (*Attempt, error)
	// History returns the attempts of an invoice newest first.
	History(ctx context.Context, invoiceID int64) ([]Attempt, error)
	HistoryByInvoiceUID(ctx context.Context, uid string) ([]Attempt, error)
}

type RecordRequest struct {
	InvoiceID         int64
	AttemptedAt       time.Time
	Result            Result
	FailureReason     string
	FailureMessage    string
	ExternalAttemptID string
	ReceiptURL        string
	RawResponse       []byte
}

var (
	ErrInvalidResult  = errors.New("invalid_attempt_result")
	ErrInvalidInvoice = errors.New("invalid_invoice")
)
