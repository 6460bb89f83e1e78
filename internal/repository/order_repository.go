package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"ordermgr/internal/model"
)

// likeEscaper makes search input match literally, with '!' as the LIKE escape character.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// OrderListParams selects one page of orders.
type OrderListParams struct {
	Page    int
	PerPage int
	Search  string
}

// OrderFilter narrows aggregate queries. Zero values mean "no constraint".
type OrderFilter struct {
	ProjectName string
	StartDate   *time.Time
	EndDate     *time.Time
}

// OrderRepository defines order persistence operations.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	Update(ctx context.Context, order *model.Order) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	List(ctx context.Context, params OrderListParams) ([]model.Order, int64, error)
	ListProjects(ctx context.Context) ([]string, error)
	Totals(ctx context.Context, filter OrderFilter) (*model.OrderTotals, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates a new order.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update saves every column of an existing order.
func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// Delete removes an order, returning gorm.ErrRecordNotFound when no row matched.
func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Order{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds an order by ID.
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns one page of orders, newest first, and the total match count.
func (r *orderRepository) List(ctx context.Context, params OrderListParams) ([]model.Order, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Order{})
		if params.Search != "" {
			like := "%" + likeEscaper.Replace(params.Search) + "%"
			q = q.Where(
				"customer_name LIKE ? ESCAPE '!' OR project_name LIKE ? ESCAPE '!' OR contract_type LIKE ? ESCAPE '!' OR "+
					"sales_stage LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!'",
				like, like, like, like, like,
			)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	err := base().
		Order("created_at DESC").
		Order("id DESC").
		Offset((params.Page - 1) * params.PerPage).
		Limit(params.PerPage).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListProjects returns the distinct project names in ascending order.
func (r *orderRepository) ListProjects(ctx context.Context) ([]string, error) {
	projects := []string{}
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Distinct("project_name").
		Order("project_name ASC").
		Pluck("project_name", &projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Totals sums the amount columns of every order matching filter. Sums are rounded to
// cents, the precision of the columns.
func (r *orderRepository) Totals(ctx context.Context, filter OrderFilter) (*model.OrderTotals, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).Select(
		"COALESCE(SUM(sales_amount), 0) AS sales_amount, " +
			"COALESCE(SUM(order_amount), 0) AS order_amount, " +
			"COALESCE(SUM(invoiced_amount), 0) AS invoiced_amount, " +
			"COUNT(*) AS count",
	)
	if filter.ProjectName != "" {
		q = q.Where("project_name = ?", filter.ProjectName)
	}
	if filter.StartDate != nil {
		q = q.Where("order_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("order_date <= ?", *filter.EndDate)
	}

	var totals model.OrderTotals
	if err := q.Scan(&totals).Error; err != nil {
		return nil, err
	}
	// SQLite sums NUMERIC columns as floats
	totals.SalesAmount = totals.SalesAmount.Round(2)
	totals.OrderAmount = totals.OrderAmount.Round(2)
	totals.InvoicedAmount = totals.InvoicedAmount.Round(2)
	return &totals, nil
}

// WithTransaction executes a function within a database transaction.
func (r *orderRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &orderRepository{db: tx})
	})
}
