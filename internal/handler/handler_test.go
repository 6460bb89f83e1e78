package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/logger"
	"ordermgr/internal/view"
)

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                       "",
		"/orders":                "/orders",
		"/orders?page=2":         "/orders?page=2",
		"//evil.example.com":     "",
		"/\\evil.example.com":    "",
		"https://evil.example":   "",
		"orders":                 "",
		"javascript:alert(1)":    "",
		"/profit-analysis#chart": "/profit-analysis#chart",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}

func TestFlash_RoundTrip(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), rec)
	AddFlash(c, FlashSuccess, MsgLoggedIn)
	AddFlash(c, FlashInfo, "second")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	last := cookies[len(cookies)-1]
	assert.Equal(t, flashCookie, last.Name)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(last)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)

	flashes := PopFlashes(c)
	require.Len(t, flashes, 2)
	assert.Equal(t, view.Flash{Category: FlashSuccess, Message: MsgLoggedIn}, flashes[0])
	assert.Empty(t, PopFlashes(c))

	cleared := rec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Equal(t, -1, cleared[len(cleared)-1].MaxAge)
}

func TestFlash_SameRequest(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), httptest.NewRecorder())

	AddFlash(c, FlashError, apperrors.MsgBadCredentials)
	flashes := PopFlashes(c)

	require.Len(t, flashes, 1)
	assert.Equal(t, apperrors.MsgBadCredentials, flashes[0].Message)
}

func TestErrorHandler_JSON(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		debug      bool
		wantStatus int
		wantError  string
		wantDetail string
	}{
		{
			name:       "domain error",
			err:        apiError(apperrors.ErrOrderNotFound, apperrors.MsgOrderDeleteFailed),
			wantStatus: http.StatusNotFound,
			wantError:  apperrors.MsgOrderNotFound,
		},
		{
			name:       "unexpected error hides detail",
			err:        apiError(errors.New("db down"), apperrors.MsgProfitFailed),
			wantStatus: http.StatusInternalServerError,
			wantError:  apperrors.MsgProfitFailed,
		},
		{
			name:       "unexpected error with debug",
			err:        apiError(errors.New("db down"), apperrors.MsgProfitFailed),
			debug:      true,
			wantStatus: http.StatusInternalServerError,
			wantError:  apperrors.MsgProfitFailed,
			wantDetail: "db down",
		},
		{
			name:       "framework not found",
			err:        echo.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  apperrors.MsgNotFound,
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  apperrors.MsgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/orders", nil), rec)

			NewErrorHandler(logger.Nop(), tt.debug)(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, tt.wantDetail, body.Detail)
		})
	}
}

func TestErrorHandler_HTML(t *testing.T) {
	e := echo.New()
	e.Renderer = view.MustNew()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/nowhere", nil), rec)

	NewErrorHandler(logger.Nop(), false)(echo.ErrNotFound, c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
	assert.Contains(t, rec.Body.String(), apperrors.MsgNotFound)
}
