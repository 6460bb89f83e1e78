package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ordermgr/internal/errors"
)

type sampleForm struct {
	Name     string `json:"name" validate:"required,max=5" label:"名前"`
	Amount   string `json:"amount" validate:"omitempty,amount" label:"金額"`
	Date     string `json:"date" validate:"required,date" label:"日付"`
	Month    string `json:"month" validate:"omitempty,month" label:"請求月"`
	Username string `json:"username" validate:"omitempty,username"`
}

func TestValidator_Valid(t *testing.T) {
	v := New()
	err := v.Validate(&sampleForm{Name: "abc", Amount: "1,000.50", Date: "2024-03-01", Month: "2024-03"})
	assert.NoError(t, err)
}

func TestValidator_FieldErrorsUseJSONNames(t *testing.T) {
	v := New()
	err := v.Validate(&sampleForm{Name: "", Amount: "-1", Date: "03/01/2024", Username: "bad name!"})

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"名前は必須です"}, verr.Fields["name"])
	assert.Contains(t, verr.Fields, "amount")
	assert.Equal(t, []string{"日付はYYYY-MM-DD形式で入力してください"}, verr.Fields["date"])
	assert.Contains(t, verr.Fields, "username")
	assert.NotContains(t, verr.Fields, "month")
}

func TestValidator_NotBlank(t *testing.T) {
	type form struct {
		Name string `json:"name" validate:"required,notblank" label:"顧客名"`
	}
	v := New()

	for _, blank := range []string{" ", "   ", "\t\n", "\u3000"} {
		err := v.Validate(&form{Name: blank})
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr, "%q", blank)
		assert.Equal(t, []string{"顧客名は必須です"}, verr.Fields["name"])
	}
	assert.NoError(t, v.Validate(&form{Name: " Acme "}))
}

func TestValidator_MaxCountsCharactersNotBytes(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&sampleForm{Name: "あいうえお", Date: "2024-01-01"}))
	assert.Error(t, v.Validate(&sampleForm{Name: "あいうえおか", Date: "2024-01-01"}))
}

func TestValidator_AmountUpperBound(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&sampleForm{Name: "a", Date: "2024-01-01", Amount: "1000000000"}))
	assert.Error(t, v.Validate(&sampleForm{Name: "a", Date: "2024-01-01", Amount: "1000000000.01"}))
	assert.Error(t, v.Validate(&sampleForm{Name: "a", Date: "2024-01-01", Amount: "abc"}))
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-02-17")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", m.Format("2006-01-02"))

	m, err = ParseMonth("2024-11")
	require.NoError(t, err)
	assert.Equal(t, "2024-11-01", m.Format("2006-01-02"))

	_, err = ParseMonth("November")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = ParseAmount(" 12,345.67 ")
	require.NoError(t, err)
	assert.Equal(t, "12345.67", d.String())
}
