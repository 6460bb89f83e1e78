package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "ordermgr/internal/errors"
)

// MaxAmount caps every monetary field.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Validator implements echo.Validator and reports failures as *apperrors.ValidationError
// keyed by the JSON field name.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the application's custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "amount", validateAmount)
	mustRegister(v, "date", validateDate)
	mustRegister(v, "month", validateMonth)
	mustRegister(v, "username", validateUsername)
	mustRegister(v, "notblank", validateNotBlank)

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Validate implements echo.Validator interface.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &apperrors.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), message(fe, labelOf(i, fe.StructField())))
	}
	return verr
}

// labelOf returns the `label` tag of the named field, or the field name.
func labelOf(i interface{}, field string) string {
	t := reflect.TypeOf(i)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return field
	}
	if f, ok := t.FieldByName(field); ok {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
	}
	return field
}

func message(fe validator.FieldError, label string) string {
	switch fe.Tag() {
	case "required", "notblank":
		return label + "は必須です"
	case "max":
		return fmt.Sprintf("%sは%s文字以下で入力してください", label, fe.Param())
	case "min":
		return fmt.Sprintf("%sは%s文字以上で入力してください", label, fe.Param())
	case "email":
		return "正しいメールアドレスを入力してください"
	case "amount":
		return label + "は0以上1,000,000,000以下の数値で入力してください"
	case "date":
		return label + "はYYYY-MM-DD形式で入力してください"
	case "month":
		return label + "はYYYY-MM形式で入力してください"
	case "eqfield":
		return "パスワードが一致しません"
	case "username":
		return "ユーザー名は英数字とアンダースコアのみ使用できます"
	default:
		return label + "の値が正しくありません"
	}
}

// ParseAmount parses a monetary value; the empty string is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

// ParseMonth accepts YYYY-MM or YYYY-MM-DD and returns the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-01", s)
	if err != nil {
		if t, err = ParseDate(s); err != nil {
			return time.Time{}, err
		}
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

func validateAmount(fl validator.FieldLevel) bool {
	d, err := ParseAmount(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.LessThanOrEqual(MaxAmount)
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

func validateMonth(fl validator.FieldLevel) bool {
	_, err := ParseMonth(fl.Field().String())
	return err == nil
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// validateNotBlank rejects strings made only of whitespace.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
