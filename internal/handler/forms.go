package handler

import (
	"bytes"
	"encoding/json"
	"strings"

	"ordermgr/internal/service"
	"ordermgr/internal/validation"
)

// Amount is a monetary input accepted as a JSON number, a JSON string or a form value.
// Validation happens through the "amount" rule.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(b)
	}
	return nil
}

// Flag is a checkbox input: "on", "true", "1", "y" and "yes" are true.
type Flag bool

// UnmarshalParam implements echo.BindUnmarshaler for form values.
func (f *Flag) UnmarshalParam(param string) error {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "on", "true", "1", "y", "yes":
		*f = true
	default:
		*f = false
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case float64:
		*f = t != 0
	case string:
		return f.UnmarshalParam(t)
	default:
		*f = false
	}
	return nil
}

// OrderRequest is the body of order create and update calls.
type OrderRequest struct {
	CustomerName   string `json:"customer_name" form:"customer_name" validate:"required,notblank,max=255" label:"顧客名"`
	ProjectName    string `json:"project_name" form:"project_name" validate:"required,notblank,max=255" label:"案件名"`
	SalesAmount    Amount `json:"sales_amount" form:"sales_amount" validate:"amount" label:"売上金額"`
	OrderAmount    Amount `json:"order_amount" form:"order_amount" validate:"amount" label:"受注金額"`
	InvoicedAmount Amount `json:"invoiced_amount" form:"invoiced_amount" validate:"amount" label:"請求金額"`
	OrderDate      string `json:"order_date" form:"order_date" validate:"required,date" label:"受注日"`
	ContractType   string `json:"contract_type" form:"contract_type" validate:"max=16" label:"契約形態"`
	SalesStage     string `json:"sales_stage" form:"sales_stage" validate:"max=16" label:"営業段階"`
	BillingMonth   string `json:"billing_month" form:"billing_month" validate:"omitempty,month" label:"請求月"`
	WorkInProgress Flag   `json:"work_in_progress" form:"work_in_progress"`
	Description    string `json:"description" form:"description" validate:"max=255" label:"備考"`
}

// ToInput converts a validated request.
func (r *OrderRequest) ToInput() (service.OrderInput, error) {
	in := service.OrderInput{
		CustomerName:   r.CustomerName,
		ProjectName:    r.ProjectName,
		ContractType:   strings.TrimSpace(r.ContractType),
		SalesStage:     strings.TrimSpace(r.SalesStage),
		WorkInProgress: bool(r.WorkInProgress),
		Description:    strings.TrimSpace(r.Description),
	}

	var err error
	if in.SalesAmount, err = validation.ParseAmount(string(r.SalesAmount)); err != nil {
		return in, err
	}
	if in.OrderAmount, err = validation.ParseAmount(string(r.OrderAmount)); err != nil {
		return in, err
	}
	if in.InvoicedAmount, err = validation.ParseAmount(string(r.InvoicedAmount)); err != nil {
		return in, err
	}
	if in.OrderDate, err = validation.ParseDate(r.OrderDate); err != nil {
		return in, err
	}
	if strings.TrimSpace(r.BillingMonth) != "" {
		month, err := validation.ParseMonth(r.BillingMonth)
		if err != nil {
			return in, err
		}
		in.BillingMonth = &month
	}
	in.SalesAmount = in.SalesAmount.Round(2)
	in.OrderAmount = in.OrderAmount.Round(2)
	in.InvoicedAmount = in.InvoicedAmount.Round(2)
	return in, nil
}

// LoginRequest is the login form.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=64" label:"ユーザー名"`
	Password string `json:"password" form:"password" validate:"required" label:"パスワード"`
}

// RegisterRequest is the self-registration form.
type RegisterRequest struct {
	Username        string `json:"username" form:"username" validate:"required,min=3,max=64,username" label:"ユーザー名"`
	Email           string `json:"email" form:"email" validate:"required,email,max=120" label:"メールアドレス"`
	Password        string `json:"password" form:"password" validate:"required,min=8" label:"パスワード"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm" validate:"required,eqfield=Password" label:"パスワード（確認）"`
}

// CreateUserRequest is the admin user provisioning form.
type CreateUserRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=64,username" label:"ユーザー名"`
	Email    string `json:"email" form:"email" validate:"required,email,max=120" label:"メールアドレス"`
	Password string `json:"password" form:"password" validate:"required,min=8" label:"パスワード"`
	IsAdmin  Flag   `json:"is_admin" form:"is_admin"`
}

// DeleteUserRequest is the body of the self-service deletion call.
type DeleteUserRequest struct {
	ID uint `json:"id" form:"id"`
}
