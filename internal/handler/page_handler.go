package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ordermgr/internal/model"
	"ordermgr/internal/service"
)

// PageHandler renders the pages behind login.
type PageHandler struct {
	orders service.OrderService
}

// NewPageHandler creates a new page handler.
func NewPageHandler(orders service.OrderService) *PageHandler {
	return &PageHandler{orders: orders}
}

// OrdersPage is the data of the order list template.
type OrdersPage struct {
	Orders   []model.Order
	Search   string
	Total    int64
	Page     int
	Pages    int
	PrevPage int
	NextPage int
}

// ProfitPage is the data of the profit analysis template.
type ProfitPage struct {
	Projects []string
}

// Index sends visitors to the order list or the login page.
func (h *PageHandler) Index(c echo.Context) error {
	if CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/orders")
	}
	return c.Redirect(http.StatusFound, "/login")
}

// Orders renders the order list.
func (h *PageHandler) Orders(c echo.Context) error {
	page, err := h.orders.ListOrders(c.Request().Context(), listParams(c))
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, "orders.html", "受注一覧", OrdersPage{
		Orders:   page.Orders,
		Search:   c.QueryParam("search"),
		Total:    page.Total,
		Page:     page.Page,
		Pages:    page.Pages,
		PrevPage: page.Page - 1,
		NextPage: page.Page + 1,
	})
}

// ProfitAnalysis renders the profit analysis form.
func (h *PageHandler) ProfitAnalysis(c echo.Context) error {
	projects, err := h.orders.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, "profit_analysis.html", "利益分析", ProfitPage{Projects: projects})
}
