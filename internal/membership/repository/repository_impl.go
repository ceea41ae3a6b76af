package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/planbilling/internal/membership/domain"
	"gorm.io/gorm"
)

const membershipColumns = `id, member_id, plan_id, term_id, term_months, billing_mode, status,
	next_billing_at, failed_attempts, retry_after, last_attempt_at, canceled_at, cancel_reason,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *domain.Membership) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plan_members (`+membershipColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.MemberID,
		m.PlanID,
		m.TermID,
		m.TermMonths,
		m.BillingMode,
		m.Status,
		m.NextBillingAt,
		m.FailedAttempts,
		m.RetryAfter,
		m.LastAttemptAt,
		m.CanceledAt,
		m.CancelReason,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT `+membershipColumns+` FROM plan_members WHERE id = ?`,
		id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT `+membershipColumns+` FROM plan_members WHERE id = ? FOR UPDATE`,
		id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) FindLiveByMember(ctx context.Context, db *gorm.DB, memberID int64) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT `+membershipColumns+`
		 FROM plan_members
		 WHERE member_id = ? AND status IN ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		memberID,
		[]domain.Status{domain.StatusActive, domain.StatusPastDue},
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID int64) ([]domain.Membership, error) {
	var items []domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT `+membershipColumns+`
		 FROM plan_members
		 WHERE member_id = ?
		 ORDER BY created_at DESC, id DESC`,
		memberID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, asOf time.Time) ([]domain.Membership, error) {
	var items []domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT `+membershipColumns+`
		 FROM plan_members
		 WHERE status IN ? AND next_billing_at <= ?
		 ORDER BY next_billing_at ASC, id ASC`,
		[]domain.Status{domain.StatusActive, domain.StatusPastDue},
		asOf,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, m *domain.Membership) error {
	return db.WithContext(ctx).Exec(
		`UPDATE plan_members
		 SET status = ?, next_billing_at = ?, failed_attempts = ?, retry_after = ?,
		     last_attempt_at = ?, canceled_at = ?, cancel_reason = ?, updated_at = ?
		 WHERE id = ?`,
		m.Status,
		m.NextBillingAt,
		m.FailedAttempts,
		m.RetryAfter,
		m.LastAttemptAt,
		m.CanceledAt,
		m.CancelReason,
		m.UpdatedAt,
		m.ID,
	).Error
}
