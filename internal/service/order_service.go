package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/model"
	"ordermgr/internal/repository"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 100

	// AllProjects selects every project in a profit query.
	AllProjects = "all"
)

// OrderInput carries validated order fields.
type OrderInput struct {
	CustomerName   string
	ProjectName    string
	SalesAmount    decimal.Decimal
	OrderAmount    decimal.Decimal
	InvoicedAmount decimal.Decimal
	OrderDate      time.Time
	ContractType   string
	SalesStage     string
	BillingMonth   *time.Time
	WorkInProgress bool
	Description    string
}

func (in OrderInput) apply(o *model.Order) {
	o.CustomerName = strings.TrimSpace(in.CustomerName)
	o.ProjectName = strings.TrimSpace(in.ProjectName)
	o.SalesAmount = in.SalesAmount
	o.OrderAmount = in.OrderAmount
	o.InvoicedAmount = in.InvoicedAmount
	o.OrderDate = in.OrderDate
	o.ContractType = in.ContractType
	o.SalesStage = in.SalesStage
	o.BillingMonth = in.BillingMonth
	o.WorkInProgress = in.WorkInProgress
	o.Description = in.Description
}

// OrderPage is one page of the order list.
type OrderPage struct {
	Orders  []model.Order
	Total   int64
	Page    int
	PerPage int
	Pages   int
}

// ProfitQuery selects the orders and cost inputs of a profit rollup.
type ProfitQuery struct {
	ProjectName  string
	StartDate    *time.Time
	EndDate      *time.Time
	EmployeeCost decimal.Decimal
	BPCost       decimal.Decimal
}

// ProfitReport is the result of a profit rollup.
type ProfitReport struct {
	TotalSalesAmount    decimal.Decimal
	TotalOrderAmount    decimal.Decimal
	TotalInvoicedAmount decimal.Decimal
	OrderCount          int64
	EmployeeCost        decimal.Decimal
	BPCost              decimal.Decimal
	TotalCost           decimal.Decimal
	Profit              decimal.Decimal
	ProfitRate          decimal.Decimal
}

// OrderService handles order business logic.
type OrderService interface {
	ListOrders(ctx context.Context, params repository.OrderListParams) (*OrderPage, error)
	GetOrder(ctx context.Context, id uint) (*model.Order, error)
	CreateOrder(ctx context.Context, in OrderInput) (*model.Order, error)
	UpdateOrder(ctx context.Context, id uint, in OrderInput) (*model.Order, error)
	DeleteOrder(ctx context.Context, id uint) error
	ListProjects(ctx context.Context) ([]string, error)
	Profit(ctx context.Context, q ProfitQuery) (*ProfitReport, error)
}

type orderService struct {
	repo repository.OrderRepository
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository) OrderService {
	return &orderService{repo: repo}
}

// ListOrders returns one page of orders. Out-of-range paging falls back to defaults.
func (s *orderService) ListOrders(ctx context.Context, params repository.OrderListParams) (*OrderPage, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = DefaultPerPage
	}
	if params.PerPage > MaxPerPage {
		params.PerPage = MaxPerPage
	}
	params.Search = strings.TrimSpace(params.Search)

	orders, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	pages := int((total + int64(params.PerPage) - 1) / int64(params.PerPage))
	return &OrderPage{
		Orders:  orders,
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
		Pages:   pages,
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uint) (*model.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateOrderErr(err, "find order")
	}
	return order, nil
}

// CreateOrder persists a new order inside a transaction.
func (s *orderService) CreateOrder(ctx context.Context, in OrderInput) (*model.Order, error) {
	order := &model.Order{}
	in.apply(order)

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.OrderRepository) error {
		return repo.Create(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// UpdateOrder overwrites every editable field of an existing order.
func (s *orderService) UpdateOrder(ctx context.Context, id uint, in OrderInput) (*model.Order, error) {
	var order *model.Order
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.OrderRepository) error {
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			return translateOrderErr(err, "find order")
		}
		in.apply(existing)
		if err := repo.Update(ctx, existing); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, id uint) error {
	return s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.OrderRepository) error {
		if err := repo.Delete(ctx, id); err != nil {
			return translateOrderErr(err, "delete order")
		}
		return nil
	})
}

func (s *orderService) ListProjects(ctx context.Context) ([]string, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Profit sums the matching orders and derives profit and profit rate from the supplied
// costs. The rate is a percentage rounded to two places, zero when there are no sales.
func (s *orderService) Profit(ctx context.Context, q ProfitQuery) (*ProfitReport, error) {
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return nil, apperrors.ErrInvalidDateRange
	}
	if q.EmployeeCost.IsNegative() || q.BPCost.IsNegative() {
		return nil, apperrors.ErrInvalidCost
	}

	filter := repository.OrderFilter{
		ProjectName: strings.TrimSpace(q.ProjectName),
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
	}
	if strings.EqualFold(filter.ProjectName, AllProjects) {
		filter.ProjectName = ""
	}

	totals, err := s.repo.Totals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("sum orders: %w", err)
	}

	totalCost := q.EmployeeCost.Add(q.BPCost)
	profit := totals.SalesAmount.Sub(totalCost)
	rate := decimal.Zero
	if !totals.SalesAmount.IsZero() {
		rate = profit.Div(totals.SalesAmount).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &ProfitReport{
		TotalSalesAmount:    totals.SalesAmount,
		TotalOrderAmount:    totals.OrderAmount,
		TotalInvoicedAmount: totals.InvoicedAmount,
		OrderCount:          totals.Count,
		EmployeeCost:        q.EmployeeCost,
		BPCost:              q.BPCost,
		TotalCost:           totalCost,
		Profit:              profit,
		ProfitRate:          rate,
	}, nil
}

func translateOrderErr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrOrderNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
