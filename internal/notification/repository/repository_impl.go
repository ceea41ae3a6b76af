package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (id, member_id, type, title, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.MemberID,
		n.Type,
		n.Title,
		n.Content,
		n.CreatedAt,
	).Error
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID int64, limit int) ([]domain.Notification, error) {
	var items []domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, type, title, content, created_at
		 FROM notifications
		 WHERE member_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		memberID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteCreatedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM notifications WHERE created_at < ?`,
		cutoff,
	)
	return result.RowsAffected, result.Error
}
