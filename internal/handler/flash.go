package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ordermgr/internal/view"
)

const (
	flashCookie     = "flash"
	flashPendingKey = "flash_pending"
)

// AddFlash queues a message for the next rendered page.
func AddFlash(c echo.Context, category, message string) {
	pending, _ := c.Get(flashPendingKey).([]view.Flash)
	if pending == nil {
		pending = readFlashes(c)
	}
	pending = append(pending, view.Flash{Category: category, Message: message})
	c.Set(flashPendingKey, pending)

	payload, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlashes returns the queued messages and clears them.
func PopFlashes(c echo.Context) []view.Flash {
	if pending, ok := c.Get(flashPendingKey).([]view.Flash); ok {
		c.Set(flashPendingKey, []view.Flash{})
		clearFlashes(c)
		return pending
	}

	flashes := readFlashes(c)
	if len(flashes) > 0 {
		clearFlashes(c)
	}
	c.Set(flashPendingKey, []view.Flash{})
	return flashes
}

func readFlashes(c echo.Context) []view.Flash {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flashes []view.Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}

func clearFlashes(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}
