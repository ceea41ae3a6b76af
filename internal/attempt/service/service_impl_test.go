package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/planbilling/internal/attempt/domain"
	"github.com/smallbiznis/planbilling/internal/attempt/repository"
	"github.com/smallbiznis/planbilling/internal/clock"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/planbilling/internal/invoice/service"
	"github.com/smallbiznis/planbilling/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	svc      domain.Service
	invoices invoicedomain.Service
}

func setupAttemptService(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	invoices := invoiceservice.NewService(invoiceservice.ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk})
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Invoices: invoices,
	})
	return fixture{db: db, clock: clk, svc: svc, invoices: invoices}
}

func (f fixture) openInvoice(t *testing.T) *invoicedomain.Invoice {
	t.Helper()
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	invoice, err := f.invoices.Create(context.Background(), f.db, invoicedomain.CreateInvoiceRequest{
		MembershipID: 1,
		PlanID:       1,
		PriceID:      1,
		TermMonths:   1,
		BillingMode:  "RECURRING",
		Amount:       9900,
		Currency:     "KRW",
		PeriodStart:  start,
		PeriodEnd:    start.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	return invoice
}

func TestRawResponseRoundTripsVerbatim(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()
	invoice := f.openInvoice(t)

	raw := []byte("{\"status\":\"DONE\",  \"amount\": 9900,\n\"note\":\"\xea\xb2\xb0\xec\xa0\x9c\"}\x00\xff")
	_, err := f.svc.RecordAttempt(ctx, f.db, domain.RecordRequest{
		InvoiceID:         invoice.ID,
		Result:            domain.ResultSuccess,
		ExternalAttemptID: "pay_123",
		ReceiptURL:        "https://receipts.example.com/pay_123",
		RawResponse:       raw,
	})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, raw, history[0].RawResponse)
	assert.Equal(t, "pay_123", history[0].ExternalAttemptID)
	require.NotNil(t, history[0].ReceiptURL)
	assert.Nil(t, history[0].FailureReason)
}

func TestHistoryNewestFirst(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()
	invoice := f.openInvoice(t)

	for _, reason := range []string{domain.ReasonGatewayTimeout, "CARD_DECLINED"} {
		_, err := f.svc.RecordAttempt(ctx, f.db, domain.RecordRequest{
			InvoiceID:      invoice.ID,
			Result:         domain.ResultFailure,
			FailureReason:  reason,
			FailureMessage: "charge failed",
		})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
	}

	history, err := f.svc.HistoryByInvoiceUID(ctx, invoice.UID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].FailureReason)
	assert.Equal(t, "CARD_DECLINED", *history[0].FailureReason)
	assert.Equal(t, domain.ReasonGatewayTimeout, *history[1].FailureReason)
}

func TestRecordAttemptValidation(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()

	_, err := f.svc.RecordAttempt(ctx, f.db, domain.RecordRequest{Result: domain.ResultSuccess})
	assert.ErrorIs(t, err, domain.ErrInvalidInvoice)

	_, err = f.svc.RecordAttempt(ctx, f.db, domain.RecordRequest{InvoiceID: 1, Result: "MAYBE"})
	assert.ErrorIs(t, err, domain.ErrInvalidResult)

	_, err = f.svc.HistoryByInvoiceUID(ctx, "3b241101-e2bb-4255-8caf-4136c566a962")
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}
