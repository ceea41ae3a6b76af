package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/planbilling/internal/clock"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	"github.com/smallbiznis/planbilling/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupInvoiceService(t *testing.T) (*gorm.DB, invoicedomain.Service) {
	t.Helper()
	db := dbtest.Open(t)
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
	})
	return db, svc
}

func cycleRequest(membershipID int64, start time.Time) invoicedomain.CreateInvoiceRequest {
	return invoicedomain.CreateInvoiceRequest{
		MembershipID: membershipID,
		PlanID:       10,
		PriceID:      20,
		TermMonths:   1,
		BillingMode:  "RECURRING",
		Amount:       9900,
		Currency:     "krw",
		PeriodStart:  start,
		PeriodEnd:    start.AddDate(0, 1, 0),
		Metadata:     map[string]any{"plan_code": "standard"},
	}
}

func TestCreateInvoiceOncePerCycle(t *testing.T) {
	db, svc := setupInvoiceService(t)
	ctx := context.Background()
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	created, err := svc.Create(ctx, db, cycleRequest(1, start))
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusOpen, created.Status)
	assert.Equal(t, "KRW", created.Currency)
	assert.NotEmpty(t, created.UID)

	_, err = svc.Create(ctx, db, cycleRequest(1, start))
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateInvoice)

	found, err := svc.FindOpenForPeriod(ctx, db, 1, start)
	require.NoError(t, err)
	assert.Equal(t, created.UID, found.UID)
	assert.Equal(t, "standard", found.Metadata["plan_code"])

	_, err = svc.FindOpenForPeriod(ctx, db, 1, start.AddDate(0, 1, 0))
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestInvoiceTransitions(t *testing.T) {
	db, svc := setupInvoiceService(t)
	ctx := context.Background()
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	paidAt := start.Add(time.Hour)

	paid, err := svc.Create(ctx, db, cycleRequest(1, start))
	require.NoError(t, err)
	require.NoError(t, svc.MarkPaid(ctx, db, paid.ID, paidAt))
	require.NoError(t, svc.MarkPaid(ctx, db, paid.ID, paidAt))
	assert.ErrorIs(t, svc.Void(ctx, db, paid.ID, "REQUESTED", paidAt), invoicedomain.ErrInvoiceNotOpen)

	_, err = svc.FindOpenForPeriod(ctx, db, 1, start)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	reloaded, err := svc.GetByUID(ctx, paid.UID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
	require.NotNil(t, reloaded.PaidAt)
	assert.True(t, reloaded.PaidAt.Equal(paidAt))

	voided, err := svc.Create(ctx, db, cycleRequest(2, start))
	require.NoError(t, err)
	require.NoError(t, svc.Void(ctx, db, voided.ID, "DUNNING_EXHAUSTED", paidAt))
	reloaded, err = svc.GetByUID(ctx, voided.UID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusVoid, reloaded.Status)
	assert.Equal(t, "DUNNING_EXHAUSTED", reloaded.Metadata["void_reason"])
	assert.ErrorIs(t, svc.MarkPaid(ctx, db, voided.ID, paidAt), invoicedomain.ErrInvoiceNotOpen)

	assert.ErrorIs(t, svc.MarkPaid(ctx, db, 424242, paidAt), invoicedomain.ErrInvoiceNotFound)
}

func TestListByMembershipNewestFirst(t *testing.T) {
	db, svc := setupInvoiceService(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, db, cycleRequest(5, start.AddDate(0, i, 0)))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, db, cycleRequest(6, start))
	require.NoError(t, err)

	items, err := svc.ListByMembership(ctx, 5)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].PeriodStart.Equal(start.AddDate(0, 2, 0)))
	assert.True(t, items[2].PeriodStart.Equal(start))
}

func TestGetByUIDRejectsMalformed(t *testing.T) {
	_, svc := setupInvoiceService(t)

	_, err := svc.GetByUID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestInvoiceUIDDerivedFromCycle(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	db, svc := setupInvoiceService(t)
	first, err := svc.Create(ctx, db, cycleRequest(7, start))
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.CycleUID(7, start), first.UID)

	// The same cycle opened on a database where the first insert never
	// committed gets the same uid.
	otherDB, other := setupInvoiceService(t)
	second, err := other.Create(ctx, otherDB, cycleRequest(7, start.In(time.FixedZone("KST", 9*3600))))
	require.NoError(t, err)
	assert.Equal(t, first.UID, second.UID)

	assert.NotEqual(t, first.UID, invoicedomain.CycleUID(7, start.AddDate(0, 1, 0)))
	assert.NotEqual(t, first.UID, invoicedomain.CycleUID(8, start))
}
