package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/model"
	"ordermgr/internal/repository"
	"ordermgr/internal/service"
	"ordermgr/internal/validation"
)

// OrderHandler serves the order API.
type OrderHandler struct {
	orders service.OrderService
	log    zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders service.OrderService, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// OrderListResponse is one page of orders.
type OrderListResponse struct {
	Orders  []model.OrderResponse `json:"orders"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
	Pages   int                   `json:"pages"`
}

// OrderMutationResponse is returned by create and update.
type OrderMutationResponse struct {
	Message string              `json:"message"`
	Order   model.OrderResponse `json:"order"`
}

// ProjectsResponse lists the known project names.
type ProjectsResponse struct {
	Projects []string `json:"projects"`
}

// ProfitResponse is the profit rollup.
type ProfitResponse struct {
	TotalSalesAmount    float64 `json:"total_sales_amount"`
	TotalOrderAmount    float64 `json:"total_order_amount"`
	TotalInvoicedAmount float64 `json:"total_invoiced_amount"`
	OrderCount          int64   `json:"order_count"`
	EmployeeCost        float64 `json:"employee_cost"`
	BPCost              float64 `json:"bp_cost"`
	TotalCost           float64 `json:"total_cost"`
	Profit              float64 `json:"profit"`
	ProfitRate          float64 `json:"profit_rate"`
	PeriodStart         *string `json:"period_start"`
	PeriodEnd           *string `json:"period_end"`
}

// ListOrders godoc
// @Summary List orders
// @Description Newest first. per_page is capped at 100.
// @Tags orders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Page size" default(50)
// @Param search query string false "Substring matched against text columns"
// @Success 200 {object} OrderListResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 429 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/orders [get]
func (h *OrderHandler) ListOrders(c echo.Context) error {
	page, err := h.orders.ListOrders(c.Request().Context(), listParams(c))
	if err != nil {
		return apiError(err, apperrors.MsgFetchFailed)
	}

	resp := OrderListResponse{
		Orders:  make([]model.OrderResponse, 0, len(page.Orders)),
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PerPage,
		Pages:   page.Pages,
	}
	for i := range page.Orders {
		resp.Orders = append(resp.Orders, page.Orders[i].ToResponse())
	}
	return c.JSON(http.StatusOK, resp)
}

// GetOrder godoc
// @Summary Get an order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} model.OrderResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return apiError(apperrors.ErrOrderNotFound, apperrors.MsgFetchFailed)
	}

	order, err := h.orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		return apiError(err, apperrors.MsgFetchFailed)
	}
	return c.JSON(http.StatusOK, order.ToResponse())
}

// CreateOrder godoc
// @Summary Create an order
// @Tags orders
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body OrderRequest true "Order fields"
// @Success 201 {object} OrderMutationResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 429 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/orders [post]
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	in, err := bindOrder(c)
	if err != nil {
		return err
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), in)
	if err != nil {
		h.log.Error().Err(err).Msg("error creating order")
		return apiError(err, apperrors.MsgOrderCreateFailed)
	}

	h.log.Info().Uint("order_id", order.ID).Str("by", username(c)).Msg("order created")
	return c.JSON(http.StatusCreated, OrderMutationResponse{
		Message: MsgOrderCreated,
		Order:   order.ToResponse(),
	})
}

// UpdateOrder godoc
// @Summary Update an order
// @Tags orders
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path int true "Order ID"
// @Param request body OrderRequest true "Order fields"
// @Success 200 {object} OrderMutationResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := parseID(c, "id")
	if !ok {
		return apiError(apperrors.ErrOrderNotFound, apperrors.MsgOrderUpdateFailed)
	}
	// an absent order is reported before any validation failure
	if _, err := h.orders.GetOrder(ctx, id); err != nil {
		return apiError(err, apperrors.MsgOrderUpdateFailed)
	}

	in, err := bindOrder(c)
	if err != nil {
		return err
	}

	order, err := h.orders.UpdateOrder(ctx, id, in)
	if err != nil {
		h.log.Error().Err(err).Uint("order_id", id).Msg("error updating order")
		return apiError(err, apperrors.MsgOrderUpdateFailed)
	}

	h.log.Info().Uint("order_id", order.ID).Str("by", username(c)).Msg("order updated")
	return c.JSON(http.StatusOK, OrderMutationResponse{
		Message: MsgOrderUpdated,
		Order:   order.ToResponse(),
	})
}

// DeleteOrder godoc
// @Summary Delete an order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return apiError(apperrors.ErrOrderNotFound, apperrors.MsgOrderDeleteFailed)
	}

	if err := h.orders.DeleteOrder(c.Request().Context(), id); err != nil {
		return apiError(err, apperrors.MsgOrderDeleteFailed)
	}

	h.log.Info().Uint("order_id", id).Str("by", username(c)).Msg("order deleted")
	return c.JSON(http.StatusOK, MessageResponse{Message: MsgOrderDeleted})
}

// ListProjects godoc
// @Summary List project names
// @Tags orders
// @Produce json
// @Success 200 {object} ProjectsResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/projects [get]
func (h *OrderHandler) ListProjects(c echo.Context) error {
	projects, err := h.orders.ListProjects(c.Request().Context())
	if err != nil {
		return apiError(err, apperrors.MsgFetchFailed)
	}
	return c.JSON(http.StatusOK, ProjectsResponse{Projects: projects})
}

// ProfitData godoc
// @Summary Profit rollup
// @Description Sums the orders of a project (or all) between two inclusive dates and derives profit from the supplied costs.
// @Tags orders
// @Produce json
// @Param project_name query string false "Project name, empty or all for every project"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Param employee_cost query number false "Employee cost"
// @Param bp_cost query number false "Business partner cost"
// @Success 200 {object} ProfitResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/profit-data [get]
func (h *OrderHandler) ProfitData(c echo.Context) error {
	start, err := optionalDate(c.QueryParam("start_date"))
	if err != nil {
		return apiError(err, apperrors.MsgProfitFailed)
	}
	end, err := optionalDate(c.QueryParam("end_date"))
	if err != nil {
		return apiError(err, apperrors.MsgProfitFailed)
	}
	employeeCost, err := costParam(c.QueryParam("employee_cost"))
	if err != nil {
		return apiError(err, apperrors.MsgProfitFailed)
	}
	bpCost, err := costParam(c.QueryParam("bp_cost"))
	if err != nil {
		return apiError(err, apperrors.MsgProfitFailed)
	}

	report, err := h.orders.Profit(c.Request().Context(), service.ProfitQuery{
		ProjectName:  c.QueryParam("project_name"),
		StartDate:    start,
		EndDate:      end,
		EmployeeCost: employeeCost,
		BPCost:       bpCost,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("error calculating profit data")
		return apiError(err, apperrors.MsgProfitFailed)
	}

	return c.JSON(http.StatusOK, ProfitResponse{
		TotalSalesAmount:    report.TotalSalesAmount.InexactFloat64(),
		TotalOrderAmount:    report.TotalOrderAmount.InexactFloat64(),
		TotalInvoicedAmount: report.TotalInvoicedAmount.InexactFloat64(),
		OrderCount:          report.OrderCount,
		EmployeeCost:        report.EmployeeCost.InexactFloat64(),
		BPCost:              report.BPCost.InexactFloat64(),
		TotalCost:           report.TotalCost.InexactFloat64(),
		Profit:              report.Profit.InexactFloat64(),
		ProfitRate:          report.ProfitRate.InexactFloat64(),
		PeriodStart:         formatDate(start),
		PeriodEnd:           formatDate(end),
	})
}

func bindOrder(c echo.Context) (service.OrderInput, error) {
	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return service.OrderInput{}, echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
			Error: apperrors.MsgInvalidRequest,
			Code:  "INVALID_REQUEST",
		}).SetInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return service.OrderInput{}, apiError(err, apperrors.MsgValidation)
	}
	in, err := req.ToInput()
	if err != nil {
		return service.OrderInput{}, apiError(&apperrors.ValidationError{}, apperrors.MsgValidation)
	}
	return in, nil
}

func listParams(c echo.Context) repository.OrderListParams {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	return repository.OrderListParams{
		Page:    page,
		PerPage: perPage,
		Search:  c.QueryParam("search"),
	}
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := validation.ParseDate(s)
	if err != nil {
		return nil, apperrors.ErrInvalidDate
	}
	return &t, nil
}

func costParam(s string) (decimal.Decimal, error) {
	d, err := validation.ParseAmount(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, apperrors.ErrInvalidCost
	}
	return d, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(model.DateLayout)
	return &s
}

func username(c echo.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.Username
	}
	return ""
}
