package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_ParsesEveryPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	for _, name := range []string{"login.html", "register.html", "orders.html", "profit_analysis.html", "admin_users.html", "admin_create_user.html", "error.html"} {
		assert.Contains(t, r.pages, name)
	}
	assert.NotContains(t, r.pages, "layout.html")
}

func TestRenderer_RendersFlashes(t *testing.T) {
	r := MustNew()

	var buf bytes.Buffer
	err := r.Render(&buf, "error.html", Page{
		Title:   "Not Found",
		Flashes: []Flash{{Category: "error", Message: "見つかりません"}},
		Data: map[string]interface{}{
			"Status":  404,
			"Message": "ページが見つかりません",
			"Detail":  "",
		},
	}, nil)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "flash-error")
	assert.Contains(t, buf.String(), "ページが見つかりません")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	err := MustNew().Render(&bytes.Buffer{}, "missing.html", Page{}, nil)
	assert.Error(t, err)
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "0", formatThousands("0"))
	assert.Equal(t, "999", formatThousands("999"))
	assert.Equal(t, "1,000", formatThousands("1000"))
	assert.Equal(t, "1,000,000,000", formatThousands("1000000000"))
	assert.Equal(t, "-12,345", formatThousands("-12345"))
}
