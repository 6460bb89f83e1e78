package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

const timestampLayout = "2006-01-02 15:04:05"

// Order is a sales record shared by every authenticated user.
type Order struct {
	ID             uint            `gorm:"primaryKey"`
	CustomerName   string          `gorm:"size:255;not null"`
	ProjectName    string          `gorm:"size:255;not null;index"`
	SalesAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OrderAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	InvoicedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OrderDate      time.Time       `gorm:"type:date;not null;index"`
	ContractType   string          `gorm:"size:16"`
	SalesStage     string          `gorm:"size:16"`
	BillingMonth   *time.Time      `gorm:"type:date"`
	WorkInProgress bool            `gorm:"not null"`
	Description    string          `gorm:"size:255"`
	CreatedAt      time.Time       `gorm:"index"`
	UpdatedAt      time.Time
}

// OrderResponse is the JSON shape of an order.
type OrderResponse struct {
	ID             uint    `json:"id"`
	CustomerName   string  `json:"customer_name"`
	ProjectName    string  `json:"project_name"`
	SalesAmount    float64 `json:"sales_amount"`
	OrderAmount    float64 `json:"order_amount"`
	InvoicedAmount float64 `json:"invoiced_amount"`
	OrderDate      string  `json:"order_date"`
	ContractType   string  `json:"contract_type"`
	SalesStage     string  `json:"sales_stage"`
	BillingMonth   *string `json:"billing_month"`
	WorkInProgress bool    `json:"work_in_progress"`
	Description    string  `json:"description"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// ToResponse converts the order for JSON output.
func (o *Order) ToResponse() OrderResponse {
	resp := OrderResponse{
		ID:             o.ID,
		CustomerName:   o.CustomerName,
		ProjectName:    o.ProjectName,
		SalesAmount:    o.SalesAmount.InexactFloat64(),
		OrderAmount:    o.OrderAmount.InexactFloat64(),
		InvoicedAmount: o.InvoicedAmount.InexactFloat64(),
		OrderDate:      o.OrderDate.Format(DateLayout),
		ContractType:   o.ContractType,
		SalesStage:     o.SalesStage,
		WorkInProgress: o.WorkInProgress,
		Description:    o.Description,
		CreatedAt:      o.CreatedAt.Format(timestampLayout),
		UpdatedAt:      o.UpdatedAt.Format(timestampLayout),
	}
	if o.BillingMonth != nil {
		s := o.BillingMonth.Format(DateLayout)
		resp.BillingMonth = &s
	}
	return resp
}

// OrderTotals holds the summed amount columns of a set of orders.
type OrderTotals struct {
	SalesAmount    decimal.Decimal
	OrderAmount    decimal.Decimal
	InvoicedAmount decimal.Decimal
	Count          int64
}
