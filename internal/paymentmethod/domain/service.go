package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	WithTx(tx *gorm.DB) Service

	RegisterMethod(ctx context.Context, req RegisterMethodRequest) (*PaymentMethod, error)
	FindMethod(ctx context.Context, memberID int64, customerRef string) (*PaymentMethod, error)
	// ListMethods returns the member's methods newest first.
	ListMethods(ctx context.Context, memberID int64) ([]PaymentMethod, error)
	// DefaultMethod returns the newest active method.
	DefaultMethod(ctx context.Context, memberID int64) (*PaymentMethod, error)
	DeactivateMethod(ctx context.Context, memberID int64, customerRef string) error
}

type RegisterMethodRequest struct {
	MemberID     int64
	CustomerRef  string
	GatewayToken string
	Card         CardMeta
}

var (
	ErrDuplicateMethod  = errors.New("duplicate_payment_method")
	ErrMethodNotFound   = errors.New("payment_method_not_found")
	ErrInvalidReference = errors.New("invalid_customer_ref")
	ErrInvalidToken     = errors.New("invalid_gateway_token")
)
