package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/planbilling/internal/clock"
	membershipdomain "github.com/smallbiznis/planbilling/internal/membership/domain"
	"github.com/smallbiznis/planbilling/internal/plan/domain"
	"github.com/smallbiznis/planbilling/internal/plan/repository"
	"github.com/smallbiznis/planbilling/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupPlanService(t *testing.T) (*gorm.DB, domain.Service) {
	t.Helper()
	db := dbtest.Open(t)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return db, svc
}

func TestCreatePlanSlugifiesCode(t *testing.T) {
	_, svc := setupPlanService(t)
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Name: "Standard Plus"})
	require.NoError(t, err)
	assert.Equal(t, "standard-plus", plan.Code)
	assert.True(t, plan.Active)

	_, err = svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "Standard Plus", Name: "Other"})
	assert.ErrorIs(t, err, domain.ErrDuplicatePlanCode)

	_, err = svc.CreatePlan(ctx, domain.CreatePlanRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestResolvePrice(t *testing.T) {
	_, svc := setupPlanService(t)
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "standard", Name: "Standard"})
	require.NoError(t, err)
	price, err := svc.UpsertPrice(ctx, domain.UpsertPriceRequest{
		PlanID:      plan.ID,
		TermMonths:  1,
		BillingMode: domain.Recurring,
		Amount:      9900,
		Currency:    "krw",
	})
	require.NoError(t, err)

	resolved, err := svc.ResolvePrice(ctx, plan.ID, 1, "recurring")
	require.NoError(t, err)
	assert.Equal(t, price.ID, resolved.ID)
	assert.Equal(t, int64(9900), resolved.Amount)
	assert.Equal(t, "KRW", resolved.Currency)
	assert.Equal(t, 1, resolved.TermMonths)

	_, err = svc.ResolvePrice(ctx, plan.ID, 3, domain.Recurring)
	assert.ErrorIs(t, err, domain.ErrPriceNotFound)

	_, err = svc.ResolvePrice(ctx, plan.ID, 1, domain.Prepaid)
	assert.ErrorIs(t, err, domain.ErrPriceNotFound)

	require.NoError(t, svc.SetPriceActive(ctx, price.ID, false))
	_, err = svc.ResolvePrice(ctx, plan.ID, 1, domain.Recurring)
	assert.ErrorIs(t, err, domain.ErrPriceNotFound)

	assert.ErrorIs(t, svc.SetPriceActive(ctx, 12345, true), domain.ErrPriceNotFound)
}

func TestUpsertPriceUpdatesExistingCombination(t *testing.T) {
	db, svc := setupPlanService(t)
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "standard", Name: "Standard"})
	require.NoError(t, err)

	first, err := svc.UpsertPrice(ctx, domain.UpsertPriceRequest{PlanID: plan.ID, TermMonths: 1, BillingMode: domain.Recurring, Amount: 9900, Currency: "KRW"})
	require.NoError(t, err)
	second, err := svc.UpsertPrice(ctx, domain.UpsertPriceRequest{PlanID: plan.ID, TermMonths: 1, BillingMode: domain.Recurring, Amount: 12900, Currency: "KRW"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&domain.PlanPrice{}).Where("plan_id = ?", plan.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.UpsertPrice(ctx, domain.UpsertPriceRequest{PlanID: plan.ID, TermMonths: 1, BillingMode: "WEEKLY", Amount: 1, Currency: "KRW"})
	assert.ErrorIs(t, err, domain.ErrInvalidBillingMode)
	_, err = svc.UpsertPrice(ctx, domain.UpsertPriceRequest{PlanID: plan.ID, TermMonths: 0, BillingMode: domain.Recurring, Amount: 1, Currency: "KRW"})
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)
}

func TestUpsertPriceRejectsFreeAmount(t *testing.T) {
	_, svc := setupPlanService(t)
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "trial", Name: "Trial"})
	require.NoError(t, err)

	for _, amount := range []int64{0, -100} {
		_, err = svc.UpsertPrice(ctx, domain.UpsertPriceRequest{PlanID: plan.ID, TermMonths: 1, BillingMode: domain.Recurring, Amount: amount, Currency: "KRW"})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %d", amount)
	}
	_, err = svc.ResolvePrice(ctx, plan.ID, 1, domain.Recurring)
	assert.ErrorIs(t, err, domain.ErrPriceNotFound)
}

func TestListActivePricesOrdering(t *testing.T) {
	_, svc := setupPlanService(t)
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "standard", Name: "Standard"})
	require.NoError(t, err)

	inactive := false
	for _, req := range []domain.UpsertPriceRequest{
		{PlanID: plan.ID, TermMonths: 12, BillingMode: domain.Recurring, Amount: 99000, Currency: "KRW"},
		{PlanID: plan.ID, TermMonths: 1, BillingMode: domain.Recurring, Amount: 9900, Currency: "KRW"},
		{PlanID: plan.ID, TermMonths: 1, BillingMode: domain.Prepaid, Amount: 9500, Currency: "KRW"},
		{PlanID: plan.ID, TermMonths: 3, BillingMode: domain.Recurring, Amount: 27000, Currency: "KRW", Active: &inactive},
	} {
		_, err := svc.UpsertPrice(ctx, req)
		require.NoError(t, err)
	}

	prices, err := svc.ListActivePrices(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, prices, 3)
	assert.Equal(t, 1, prices[0].TermMonths)
	assert.Equal(t, domain.Prepaid, prices[0].BillingMode)
	assert.Equal(t, 1, prices[1].TermMonths)
	assert.Equal(t, domain.Recurring, prices[1].BillingMode)
	assert.Equal(t, 12, prices[2].TermMonths)
}

func TestDeletePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("removes benefits with the plan", func(t *testing.T) {
		db, svc := setupPlanService(t)
		plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "basic", Name: "Basic"})
		require.NoError(t, err)
		priceCap := int64(50000)
		_, err = svc.AddBenefit(ctx, domain.AddBenefitRequest{PlanID: plan.ID, PriceCap: &priceCap, Note: "rent up to 50,000"})
		require.NoError(t, err)

		require.NoError(t, svc.DeletePlan(ctx, plan.ID))

		var benefits int64
		require.NoError(t, db.Model(&domain.PlanBenefit{}).Where("plan_id = ?", plan.ID).Count(&benefits).Error)
		assert.Zero(t, benefits)
		_, err = svc.GetPlan(ctx, plan.ID)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})

	t.Run("refused while a membership references the plan", func(t *testing.T) {
		db, svc := setupPlanService(t)
		plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "basic", Name: "Basic"})
		require.NoError(t, err)
		_, err = svc.AddBenefit(ctx, domain.AddBenefitRequest{PlanID: plan.ID, Note: "free delivery"})
		require.NoError(t, err)

		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, db.Create(&membershipdomain.Membership{
			ID:            77,
			MemberID:      1,
			PlanID:        plan.ID,
			TermID:        1,
			TermMonths:    1,
			BillingMode:   string(domain.Recurring),
			Status:        membershipdomain.StatusActive,
			NextBillingAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}).Error)

		assert.ErrorIs(t, svc.DeletePlan(ctx, plan.ID), domain.ErrPlanInUse)

		benefits, err := svc.ListBenefits(ctx, plan.ID)
		require.NoError(t, err)
		assert.Len(t, benefits, 1)
	})

	t.Run("removes prices with the plan", func(t *testing.T) {
		db, svc := setupPlanService(t)
		plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "basic", Name: "Basic"})
		require.NoError(t, err)
		_, err = svc.UpsertPrice(ctx, domain.UpsertPriceRequest{PlanID: plan.ID, TermMonths: 1, BillingMode: domain.Recurring, Amount: 9900, Currency: "KRW"})
		require.NoError(t, err)

		require.NoError(t, svc.DeletePlan(ctx, plan.ID))

		var prices int64
		require.NoError(t, db.Model(&domain.PlanPrice{}).Where("plan_id = ?", plan.ID).Count(&prices).Error)
		assert.Zero(t, prices)
		_, err = svc.GetPlan(ctx, plan.ID)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})

	t.Run("refused while a cancelled membership references the plan", func(t *testing.T) {
		db, svc := setupPlanService(t)
		plan, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Code: "basic", Name: "Basic"})
		require.NoError(t, err)
		_, err = svc.UpsertPrice(ctx, domain.UpsertPriceRequest{PlanID: plan.ID, TermMonths: 1, BillingMode: domain.Recurring, Amount: 9900, Currency: "KRW"})
		require.NoError(t, err)

		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, db.Create(&membershipdomain.Membership{
			ID:            78,
			MemberID:      1,
			PlanID:        plan.ID,
			TermID:        1,
			TermMonths:    1,
			BillingMode:   string(domain.Recurring),
			Status:        membershipdomain.StatusCancelled,
			NextBillingAt: now,
			CanceledAt:    &now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}).Error)

		assert.ErrorIs(t, svc.DeletePlan(ctx, plan.ID), domain.ErrPlanInUse)
		_, err = svc.ResolvePrice(ctx, plan.ID, 1, domain.Recurring)
		assert.NoError(t, err)
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, svc := setupPlanService(t)
		assert.ErrorIs(t, svc.DeletePlan(ctx, 999), domain.ErrPlanNotFound)
	})
}
