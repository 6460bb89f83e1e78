package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/model"
	"ordermgr/internal/repository"
)

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOrderService_ListOrders_Paging(t *testing.T) {
	tests := []struct {
		name     string
		in       repository.OrderListParams
		expected repository.OrderListParams
		total    int64
		pages    int
	}{
		{
			name:     "defaults",
			in:       repository.OrderListParams{},
			expected: repository.OrderListParams{Page: 1, PerPage: 50},
			total:    0,
			pages:    0,
		},
		{
			name:     "per page capped",
			in:       repository.OrderListParams{Page: 2, PerPage: 500, Search: " acme "},
			expected: repository.OrderListParams{Page: 2, PerPage: 100, Search: "acme"},
			total:    101,
			pages:    2,
		},
		{
			name:     "negative page",
			in:       repository.OrderListParams{Page: -3, PerPage: 10},
			expected: repository.OrderListParams{Page: 1, PerPage: 10},
			total:    25,
			pages:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			mockRepo.On("List", mock.Anything, tt.expected).Return([]model.Order{}, tt.total, nil)

			page, err := NewOrderService(mockRepo).ListOrders(context.Background(), tt.in)

			require.NoError(t, err)
			assert.Equal(t, tt.expected.Page, page.Page)
			assert.Equal(t, tt.expected.PerPage, page.PerPage)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.pages, page.Pages)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
		return o.CustomerName == "Acme" && o.SalesAmount.Equal(decimal.NewFromInt(1000))
	})).Return(nil)

	order, err := NewOrderService(mockRepo).CreateOrder(context.Background(), OrderInput{
		CustomerName: " Acme ",
		ProjectName:  "Alpha",
		SalesAmount:  decimal.NewFromInt(1000),
		OrderDate:    date("2024-04-01"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Alpha", order.ProjectName)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_UpdateOrder_NotFound(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockRepo.On("FindByID", mock.Anything, uint(42)).Return(nil, gorm.ErrRecordNotFound)

	_, err := NewOrderService(mockRepo).UpdateOrder(context.Background(), 42, OrderInput{CustomerName: "x"})

	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestOrderService_DeleteOrder(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		mockRepo.On("Delete", mock.Anything, uint(9)).Return(gorm.ErrRecordNotFound)

		err := NewOrderService(mockRepo).DeleteOrder(context.Background(), 9)
		assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
	})

	t.Run("database failure is wrapped", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		mockRepo.On("Delete", mock.Anything, uint(9)).Return(errors.New("deadlock"))

		err := NewOrderService(mockRepo).DeleteOrder(context.Background(), 9)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrOrderNotFound)
	})
}

func TestOrderService_Profit(t *testing.T) {
	start := date("2024-01-01")
	end := date("2024-12-31")

	tests := []struct {
		name           string
		query          ProfitQuery
		expectedFilter repository.OrderFilter
		totals         *model.OrderTotals
		profit         string
		rate           string
	}{
		{
			name: "all projects with costs",
			query: ProfitQuery{
				ProjectName:  "all",
				StartDate:    &start,
				EndDate:      &end,
				EmployeeCost: decimal.NewFromInt(300),
				BPCost:       decimal.NewFromInt(200),
			},
			expectedFilter: repository.OrderFilter{StartDate: &start, EndDate: &end},
			totals: &model.OrderTotals{
				SalesAmount:    decimal.NewFromInt(2000),
				OrderAmount:    decimal.NewFromInt(1500),
				InvoicedAmount: decimal.NewFromInt(1000),
				Count:          2,
			},
			profit: "1500",
			rate:   "75",
		},
		{
			name:           "no sales yields zero rate",
			query:          ProfitQuery{ProjectName: "Alpha", EmployeeCost: decimal.NewFromInt(100)},
			expectedFilter: repository.OrderFilter{ProjectName: "Alpha"},
			totals:         &model.OrderTotals{},
			profit:         "-100",
			rate:           "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			mockRepo.On("Totals", mock.Anything, tt.expectedFilter).Return(tt.totals, nil)

			report, err := NewOrderService(mockRepo).Profit(context.Background(), tt.query)

			require.NoError(t, err)
			assert.True(t, report.Profit.Equal(decimal.RequireFromString(tt.profit)), report.Profit.String())
			assert.True(t, report.ProfitRate.Equal(decimal.RequireFromString(tt.rate)), report.ProfitRate.String())
			assert.Equal(t, tt.totals.Count, report.OrderCount)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestOrderService_Profit_Rejects(t *testing.T) {
	start := date("2024-06-01")
	end := date("2024-01-01")
	svc := NewOrderService(new(MockOrderRepository))

	_, err := svc.Profit(context.Background(), ProfitQuery{StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)

	_, err = svc.Profit(context.Background(), ProfitQuery{BPCost: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCost)
}
