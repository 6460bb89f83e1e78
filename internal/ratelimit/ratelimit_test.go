package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr    string
		want    Limit
		wantErr bool
	}{
		{expr: "5 per minute", want: Limit{Count: 5, Period: time.Minute}},
		{expr: "60/minute", want: Limit{Count: 60, Period: time.Minute}},
		{expr: "3 per hour", want: Limit{Count: 3, Period: time.Hour}},
		{expr: "10 per 5 minutes", want: Limit{Count: 10, Period: 5 * time.Minute}},
		{expr: " 100 Per Day ", want: Limit{Count: 100, Period: 24 * time.Hour}},
		{expr: "0 per minute", wantErr: true},
		{expr: "five per minute", wantErr: true},
		{expr: "5 per fortnight", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Parse(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryStore_AllowsCountThenRejects(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	limit := Limit{Count: 5, Period: time.Minute}

	for i := 0; i < 5; i++ {
		res, err := store.Take(context.Background(), "k", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
	}

	res, err := store.Take(context.Background(), "k", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.InDelta(t, 12*time.Second, res.RetryAfter, float64(time.Second))

	// other keys are unaffected
	res, err = store.Take(context.Background(), "other", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// a token refills after Period/Count
	now = now.Add(12 * time.Second)
	res, err = store.Take(context.Background(), "k", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryStore_SweepsIdleBuckets(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	limit := Limit{Count: 1, Period: time.Second}

	_, _ = store.Take(context.Background(), "a", limit)
	require.Equal(t, 1, store.Len())

	now = now.Add(2 * time.Second)
	store.mu.Lock()
	store.sweepLocked(now)
	store.mu.Unlock()
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore_NilClientAllows(t *testing.T) {
	store := NewRedisStore(nil)

	res, err := store.Take(context.Background(), "k", Limit{Count: 1, Period: time.Minute})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

type failingStore struct{}

func (failingStore) Take(context.Context, string, Limit) (Result, error) {
	return Result{}, errors.New("connection refused")
}

func newEcho(l *Limiter, expr string) *echo.Echo {
	e := echo.New()
	ok := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	login := l.Limit("login", expr)
	e.GET("/login", ok, login)
	e.POST("/login", ok, login)
	e.POST("/register", ok, l.Limit("register", expr))
	return e
}

func do(e *echo.Echo, method, ip string) *httptest.ResponseRecorder {
	return doPath(e, method, "/login", ip)
}

func doPath(e *echo.Echo, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLimiter_Returns429AfterLimit(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), true, zerolog.Nop(), nil)
	e := newEcho(l, "5 per minute")

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "192.0.2.1").Code)
	}

	rec := do(e, http.MethodPost, "192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "アクセス制限に達しました")

	// separate client and separate endpoint are counted separately
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "192.0.2.2").Code)
	assert.Equal(t, http.StatusOK, doPath(e, http.MethodPost, "/register", "192.0.2.1").Code)
}

func TestLimiter_MethodsOfOneEndpointShareBudget(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), true, zerolog.Nop(), nil)
	e := newEcho(l, "5 per minute")

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "192.0.2.1").Code)
	}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "192.0.2.1").Code)
	}

	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "192.0.2.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodGet, "192.0.2.1").Code)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), false, zerolog.Nop(), nil)
	e := newEcho(l, "1 per minute")

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "192.0.2.1").Code)
	}
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := NewLimiter(failingStore{}, true, zerolog.Nop(), nil)
	e := newEcho(l, "1 per minute")

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "192.0.2.1").Code)
	}
}
