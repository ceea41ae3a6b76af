package repository

import (
	"context"

	"github.com/smallbiznis/planbilling/internal/paymentmethod/domain"
	"gorm.io/gorm"
)

const methodColumns = `id, member_id, customer_ref, gateway_token, card_brand, card_bin, card_last4, active, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, method *domain.PaymentMethod) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plan_payments (`+methodColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		method.ID,
		method.MemberID,
		method.CustomerRef,
		method.GatewayToken,
		method.CardBrand,
		method.CardBIN,
		method.CardLast4,
		method.Active,
		method.CreatedAt,
	).Error
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, memberID int64, customerRef string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM plan_payments WHERE member_id = ? AND customer_ref = ?`,
		memberID,
		customerRef,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) FindByMemberAndRef(ctx context.Context, db *gorm.DB, memberID int64, customerRef string) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := db.WithContext(ctx).Raw(
		`SELECT `+methodColumns+`
		 FROM plan_payments
		 WHERE member_id = ? AND customer_ref = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		memberID,
		customerRef,
	).Scan(&method).Error
	if err != nil {
		return nil, err
	}
	if method.ID == 0 {
		return nil, nil
	}
	return &method, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID int64) ([]domain.PaymentMethod, error) {
	var items []domain.PaymentMethod
	err := db.WithContext(ctx).Raw(
		`SELECT `+methodColumns+`
		 FROM plan_payments
		 WHERE member_id = ?
		 ORDER BY created_at DESC, id DESC`,
		memberID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindNewestActive(ctx context.Context, db *gorm.DB, memberID int64) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := db.WithContext(ctx).Raw(
		`SELECT `+methodColumns+`
		 FROM plan_payments
		 WHERE member_id = ? AND active = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		memberID,
		true,
	).Scan(&method).Error
	if err != nil {
		return nil, err
	}
	if method.ID == 0 {
		return nil, nil
	}
	return &method, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE plan_payments SET active = ? WHERE id = ?`,
		false,
		id,
	).Error
}
