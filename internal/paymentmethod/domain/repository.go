package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, method *PaymentMethod) error
	Exists(ctx context.Context, db *gorm.DB, memberID int64, customerRef string) (bool, error)
	FindByMemberAndRef(ctx context.Context, db *gorm.DB, memberID int64, customerRef string) (*PaymentMethod, error)
	ListByMember(ctx context.Context, db *gorm.DB, memberID int64) ([]PaymentMethod, error)
	FindNewestActive(ctx context.Context, db *gorm.DB, memberID int64) (*PaymentMethod, error)
	Deactivate(ctx context.Context, db *gorm.DB, id int64) error
}
