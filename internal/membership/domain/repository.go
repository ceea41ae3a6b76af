package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, m *Membership) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Membership, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*Membership, error)
	FindLiveByMember(ctx context.Context, db *gorm.DB, memberID int64) (*Membership, error)
	ListByMember(ctx context.Context, db *gorm.DB, memberID int64) ([]Membership, error)
	ListDue(ctx context.Context, db *gorm.DB, asOf time.Time) ([]Membership, error)
	// UpdateState persists the mutable billing fields of m.
	UpdateState(ctx context.Context, db *gorm.DB, m *Membership) error
}
