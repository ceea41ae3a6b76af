package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planbilling/internal/attempt/domain"
	"github.com/smallbiznis/planbilling/internal/clock"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Invoices invoicedomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	invoices invoicedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("attempt.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		invoices: p.Invoices,
	}
}

func (s *Service) RecordAttempt(ctx context.Context, tx *gorm.DB, req domain.RecordRequest) (*domain.Attempt, error) {
	if req.InvoiceID == 0 {
		return nil, domain.ErrInvalidInvoice
	}
	switch req.Result {
	case domain.ResultSuccess, domain.ResultFailure, domain.ResultPending:
	default:
		return nil, domain.ErrInvalidResult
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now()
	attemptedAt := req.AttemptedAt
	if attemptedAt.IsZero() {
		attemptedAt = now
	}
	raw := req.RawResponse
	if raw == nil {
		raw = []byte{}
	}

	attempt := &domain.Attempt{
		ID:                s.genID.Generate().Int64(),
		InvoiceID:         req.InvoiceID,
		AttemptedAt:       attemptedAt,
		Result:            req.Result,
		FailureReason:     optionalString(req.FailureReason),
		FailureMessage:    optionalString(req.FailureMessage),
		ExternalAttemptID: strings.TrimSpace(req.ExternalAttemptID),
		ReceiptURL:        optionalString(req.ReceiptURL),
		RawResponse:       raw,
		CreatedAt:         now,
	}
	if err := s.repo.Insert(ctx, tx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *Service) History(ctx context.Context, invoiceID int64) ([]domain.Attempt, error) {
	return s.repo.ListByInvoice(ctx, s.db, invoiceID)
}

func (s *Service) HistoryByInvoiceUID(ctx context.Context, uid string) ([]domain.Attempt, error) {
	invoice, err := s.invoices.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.History(ctx, invoice.ID)
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
