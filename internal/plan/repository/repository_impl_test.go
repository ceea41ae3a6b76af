package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smallbiznis/planbilling/internal/plan/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock database: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open gorm connection: %v", err)
	}
	return db, mock
}

func TestFindPlanByCode(t *testing.T) {
	query := regexp.QuoteMeta(`FROM plans WHERE code = $1`)
	columns := []string{"id", "code", "name", "active", "created_at", "updated_at"}

	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(query).
			WithArgs("standard").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(11), "standard", "Standard", true, now, now))

		plan, err := Provide().FindPlanByCode(context.Background(), db, "standard")
		require.NoError(t, err)
		require.NotNil(t, plan)
		assert.Equal(t, int64(11), plan.ID)
		assert.Equal(t, "Standard", plan.Name)
		assert.True(t, plan.Active)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing returns nil", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectQuery(query).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(columns))

		plan, err := Provide().FindPlanByCode(context.Background(), db, "missing")
		require.NoError(t, err)
		assert.Nil(t, plan)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindActivePriceBindsActiveFlag(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE plan_id = $1 AND term_id = $2 AND billing_mode = $3 AND active = $4`)).
		WithArgs(int64(1), int64(2), "RECURRING", true).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_id", "term_id", "billing_mode", "amount", "currency", "active", "created_at", "updated_at",
		}).AddRow(int64(3), int64(1), int64(2), "RECURRING", int64(9900), "KRW", true, now, now))

	price, err := Provide().FindActivePrice(context.Background(), db, 1, 2, domain.Recurring)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, int64(9900), price.Amount)
	assert.Equal(t, "KRW", price.Currency)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountMemberships(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(1) FROM plan_members WHERE plan_id = $1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := Provide().CountMemberships(context.Background(), db, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePriceActiveReportsAffectedRows(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE plan_prices SET active = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs(false, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := Provide().UpdatePriceActive(context.Background(), db, 7, false, time.Now())
	require.NoError(t, err)
	assert.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}
