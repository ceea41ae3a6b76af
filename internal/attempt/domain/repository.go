package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, attempt *Attempt) error
	ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID int64) ([]Attempt, error)
}
