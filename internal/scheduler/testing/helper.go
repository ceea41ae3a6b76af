// Package testing holds helpers that move billing state through time.
package testing

import (
	"context"
	"time"

	membershipdomain "github.com/smallbiznis/planbilling/internal/membership/domain"
	"gorm.io/gorm"
)

// TimeAccelerator rewrites membership schedules so billing paths can be
// exercised without waiting a full term.
type TimeAccelerator struct {
	db *gorm.DB
}

func NewTimeAccelerator(db *gorm.DB) *TimeAccelerator {
	return &TimeAccelerator{db: db}
}

// MakeDue moves next_billing_at to at and clears any dunning delay.
func (ta *TimeAccelerator) MakeDue(ctx context.Context, membershipID int64, at time.Time) error {
	return ta.db.WithContext(ctx).Exec(
		`UPDATE plan_members
		 SET next_billing_at = ?, retry_after = NULL, updated_at = ?
		 WHERE id = ?`,
		at,
		at,
		membershipID,
	).Error
}

// MakeAllDue moves every billable membership scheduled after at back to at.
func (ta *TimeAccelerator) MakeAllDue(ctx context.Context, at time.Time) (int64, error) {
	result := ta.db.WithContext(ctx).Exec(
		`UPDATE plan_members
		 SET next_billing_at = ?, retry_after = NULL, updated_at = ?
		 WHERE status IN ? AND next_billing_at > ?`,
		at,
		at,
		[]membershipdomain.Status{membershipdomain.StatusActive, membershipdomain.StatusPastDue},
		at,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExpireRetry lets a PAST_DUE membership be retried on the next tick.
func (ta *TimeAccelerator) ExpireRetry(ctx context.Context, membershipID int64, at time.Time) error {
	return ta.db.WithContext(ctx).Exec(
		`UPDATE plan_members SET retry_after = ?, updated_at = ? WHERE id = ?`,
		at.Add(-time.Minute),
		at,
		membershipID,
	).Error
}
