package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ordermgr/internal/db"
	"ordermgr/internal/logger"
	"ordermgr/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.NewSQLite("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared", logger.Nop())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	require.NoError(t, err)
	return d
}

func seedOrder(t *testing.T, repo OrderRepository, customer, project string, sales int64, day string) *model.Order {
	t.Helper()
	order := &model.Order{
		CustomerName:   customer,
		ProjectName:    project,
		SalesAmount:    decimal.NewFromInt(sales),
		OrderAmount:    decimal.NewFromInt(sales / 2),
		InvoicedAmount: decimal.NewFromInt(sales / 4),
		OrderDate:      date(t, day),
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestOrderRepository_List(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	seedOrder(t, repo, "Acme", "Alpha", 100, "2024-01-01")
	seedOrder(t, repo, "Globex", "Beta", 200, "2024-01-02")
	last := seedOrder(t, repo, "Initech", "Alpha", 300, "2024-01-03")

	orders, total, err := repo.List(ctx, OrderListParams{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, orders, 2)
	assert.Equal(t, last.ID, orders[0].ID)

	orders, total, err = repo.List(ctx, OrderListParams{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 1)

	orders, total, err = repo.List(ctx, OrderListParams{Page: 1, PerPage: 50, Search: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)
}

func TestOrderRepository_ListSearchIsLiteral(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	seedOrder(t, repo, "Acme", "50% off", 1, "2024-01-01")
	seedOrder(t, repo, "Globex", "snake_case", 1, "2024-01-01")
	seedOrder(t, repo, "Initech", "Wow!", 1, "2024-01-01")
	seedOrder(t, repo, "Umbrella", "plain", 1, "2024-01-01")

	tests := []struct {
		search string
		want   int64
	}{
		{"%", 1},
		{"_", 1},
		{"!", 1},
		{"50%", 1},
		{"e_c", 1},
		{"xyz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			_, total, err := repo.List(ctx, OrderListParams{Page: 1, PerPage: 50, Search: tt.search})
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}
}

func TestOrderRepository_ListProjects(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))

	projects, err := repo.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.NotNil(t, projects)

	seedOrder(t, repo, "A", "Zeta", 1, "2024-01-01")
	seedOrder(t, repo, "B", "Alpha", 1, "2024-01-01")
	seedOrder(t, repo, "C", "Zeta", 1, "2024-01-01")

	projects, err = repo.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Zeta"}, projects)
}

func TestOrderRepository_Totals(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	seedOrder(t, repo, "A", "X", 1000, "2023-01-01")
	seedOrder(t, repo, "B", "X", 2000, "2023-01-31")
	seedOrder(t, repo, "C", "Y", 4000, "2023-01-15")
	seedOrder(t, repo, "D", "X", 8000, "2023-02-01")

	start, end := date(t, "2023-01-01"), date(t, "2023-01-31")

	tests := []struct {
		name   string
		filter OrderFilter
		sales  int64
		count  int64
	}{
		{"no filter", OrderFilter{}, 15000, 4},
		{"project", OrderFilter{ProjectName: "X"}, 11000, 3},
		{"inclusive range", OrderFilter{StartDate: &start, EndDate: &end}, 7000, 3},
		{"project and range", OrderFilter{ProjectName: "X", StartDate: &start, EndDate: &end}, 3000, 2},
		{"no match", OrderFilter{ProjectName: "missing"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := repo.Totals(ctx, tt.filter)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(tt.sales).Equal(totals.SalesAmount), totals.SalesAmount.String())
			assert.Equal(t, tt.count, totals.Count)
		})
	}
}

func TestOrderRepository_TotalsAreExactToCents(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	for _, amount := range []string{"0.10", "0.20", "1234.56", "0.07"} {
		order := &model.Order{
			CustomerName:   "A",
			ProjectName:    "X",
			SalesAmount:    decimal.RequireFromString(amount),
			OrderAmount:    decimal.RequireFromString(amount),
			InvoicedAmount: decimal.RequireFromString(amount),
			OrderDate:      date(t, "2024-01-01"),
		}
		require.NoError(t, repo.Create(ctx, order))
	}

	totals, err := repo.Totals(ctx, OrderFilter{})
	require.NoError(t, err)

	want := decimal.RequireFromString("1234.93")
	assert.Equal(t, want.String(), totals.SalesAmount.String())
	assert.Equal(t, want.String(), totals.OrderAmount.String())
	assert.Equal(t, want.String(), totals.InvoicedAmount.String())
}

func TestOrderRepository_DeleteMissing(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))

	err := repo.Delete(context.Background(), 42)

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_WithTransactionRollsBack(t *testing.T) {
	gormDB := newTestDB(t)
	repo := NewOrderRepository(gormDB)
	boom := errors.New("boom")

	err := repo.WithTransaction(context.Background(), func(ctx context.Context, tx OrderRepository) error {
		seedOrder(t, tx, "A", "X", 1, "2024-01-01")
		return boom
	})

	assert.ErrorIs(t, err, boom)
	var count int64
	require.NoError(t, gormDB.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrderRepository_WithTransactionMySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `orders`").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	repo := NewOrderRepository(gormDB)
	err = repo.WithTransaction(context.Background(), func(ctx context.Context, tx OrderRepository) error {
		return tx.Create(ctx, &model.Order{CustomerName: "A", ProjectName: "X", OrderDate: time.Now().UTC()})
	})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	found, err = repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, repo.Delete(ctx, user.ID))
	assert.ErrorIs(t, repo.Delete(ctx, user.ID), gorm.ErrRecordNotFound)
}
