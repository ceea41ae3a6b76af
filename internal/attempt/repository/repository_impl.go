package repository

import (
	"context"

	"github.com/smallbiznis/planbilling/internal/attempt/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *domain.Attempt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plan_attempts (
			id, invoice_id, attempted_at, result, failure_reason, failure_message,
			external_attempt_id, receipt_url, raw_response, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.InvoiceID,
		a.AttemptedAt,
		a.Result,
		a.FailureReason,
		a.FailureMessage,
		a.ExternalAttemptID,
		a.ReceiptURL,
		a.RawResponse,
		a.CreatedAt,
	).Error
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID int64) ([]domain.Attempt, error) {
	var items []domain.Attempt
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, attempted_at, result, failure_reason, failure_message,
			external_attempt_id, receipt_url, raw_response, created_at
		 FROM plan_attempts
		 WHERE invoice_id = ?
		 ORDER BY attempted_at DESC, id DESC`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
