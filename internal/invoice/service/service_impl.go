package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/planbilling/internal/clock"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	"github.com/smallbiznis/planbilling/pkg/db"
	"github.com/smallbiznis/planbilling/pkg/db/option"
	"github.com/smallbiznis/planbilling/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	invoicerepo repository.Repository[invoicedomain.Invoice]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}
}

func (s *Service) FindOpenForPeriod(ctx context.Context, tx *gorm.DB, membershipID int64, periodStart time.Time) (*invoicedomain.Invoice, error) {
	item, err := s.invoicerepo.WithTrx(tx).FindOne(ctx, &invoicedomain.Invoice{
		MembershipID: membershipID,
		Status:       invoicedomain.InvoiceStatusOpen,
	}, option.ApplyOperator(option.Condition{
		Field:    "period_start",
		Operator: option.EQ,
		Value:    periodStart,
	}))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return item, nil
}

// Create opens the invoice of a billing cycle. Its uid is derived from the cycle.
func (s *Service) Create(ctx context.Context, tx *gorm.DB, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	now := s.clock.Now()
	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	invoice := &invoicedomain.Invoice{
		ID:           s.genID.Generate().Int64(),
		UID:          invoicedomain.CycleUID(req.MembershipID, req.PeriodStart),
		MembershipID: req.MembershipID,
		PlanID:       req.PlanID,
		PriceID:      req.PriceID,
		TermMonths:   req.TermMonths,
		BillingMode:  req.BillingMode,
		Amount:       req.Amount,
		Currency:     strings.ToUpper(req.Currency),
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		Status:       invoicedomain.InvoiceStatusOpen,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.invoicerepo.WithTrx(tx).Create(ctx, invoice); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, invoicedomain.ErrDuplicateInvoice
		}
		return nil, err
	}

	s.log.Debug("invoice opened",
		zap.Int64("membership_id", invoice.MembershipID),
		zap.String("invoice_uid", invoice.UID),
		zap.Time("period_start", invoice.PeriodStart),
	)
	return invoice, nil
}

func (s *Service) MarkPaid(ctx context.Context, tx *gorm.DB, id int64, paidAt time.Time) error {
	return s.transition(ctx, tx, id, invoicedomain.InvoiceStatusPaid, map[string]any{
		"status":     invoicedomain.InvoiceStatusPaid,
		"paid_at":    paidAt,
		"updated_at": paidAt,
	})
}

func (s *Service) Void(ctx context.Context, tx *gorm.DB, id int64, reason string, at time.Time) error {
	invoice, err := s.invoicerepo.WithTrx(tx).FindOne(ctx, &invoicedomain.Invoice{ID: id})
	if err != nil {
		return err
	}
	if invoice == nil {
		return invoicedomain.ErrInvoiceNotFound
	}
	metadata := datatypes.JSONMap{}
	for key, value := range invoice.Metadata {
		metadata[key] = value
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		metadata["void_reason"] = reason
	}
	return s.transition(ctx, tx, id, invoicedomain.InvoiceStatusVoid, map[string]any{
		"status":     invoicedomain.InvoiceStatusVoid,
		"metadata":   metadata,
		"updated_at": at,
	})
}

// transition applies updates to an OPEN invoice. Repeating the transition
// that already happened is a no-op.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, id int64, target invoicedomain.InvoiceStatus, updates map[string]any) error {
	store := s.invoicerepo.WithTrx(tx)
	invoice, err := store.FindOne(ctx, &invoicedomain.Invoice{ID: id})
	if err != nil {
		return err
	}
	if invoice == nil {
		return invoicedomain.ErrInvoiceNotFound
	}
	if invoice.Status == target {
		return nil
	}
	if invoice.Status != invoicedomain.InvoiceStatusOpen {
		return invoicedomain.ErrInvoiceNotOpen
	}
	return store.Update(ctx, strconv.FormatInt(id, 10), updates)
}

func (s *Service) GetByUID(ctx context.Context, uid string) (*invoicedomain.Invoice, error) {
	uid = strings.TrimSpace(uid)
	if _, err := uuid.Parse(uid); err != nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	item, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{UID: uid})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return item, nil
}

func (s *Service) ListByMembership(ctx context.Context, membershipID int64) ([]invoicedomain.Invoice, error) {
	items, err := s.invoicerepo.Find(ctx, &invoicedomain.Invoice{MembershipID: membershipID},
		option.WithSortBy(option.QuerySortBy{Field: "period_start", Direction: "desc"}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}
