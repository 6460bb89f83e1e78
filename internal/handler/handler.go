package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/model"
	"ordermgr/internal/view"
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Messages shown after successful actions.
const (
	MsgLoggedIn       = "ログインしました"
	MsgLoggedOut      = "ログアウトしました"
	MsgRegistered     = "アカウントが作成されました。ログインしてください。"
	MsgOrderCreated   = "受注が登録されました"
	MsgOrderUpdated   = "受注が更新されました"
	MsgOrderDeleted   = "受注が削除されました"
	MsgUserDeleted    = "ユーザーが削除されました"
	MsgUserDeletedAdm = "ユーザーが削除されました。"
	MsgUserCreated    = "ユーザーが作成されました。"
	MsgAdminToggled   = "管理者権限がトグルされました。"
	MsgLoginRequired  = "このページにアクセスするにはログインしてください"
	MsgAdminRequired  = "管理者権限が必要です"
)

// MessageResponse is the body of a successful mutation without payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// apiError converts a service error into an echo.HTTPError carrying an ErrorResponse.
// Unexpected failures are reported to the client with fallback as message.
func apiError(err error, fallback string) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode == http.StatusInternalServerError {
		httpErr.Message = fallback
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// newPage collects the per-request template data.
func newPage(c echo.Context, title string, data interface{}) view.Page {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return view.Page{
		Title:     title,
		User:      CurrentUser(c),
		Flashes:   PopFlashes(c),
		CSRFToken: token,
		Data:      data,
	}
}

func render(c echo.Context, status int, name, title string, data interface{}) error {
	return c.Render(status, name, newPage(c, title, data))
}

// wantsJSON reports whether the client expects a JSON response rather than a page.
func wantsJSON(c echo.Context) bool {
	req := c.Request()
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return true
	}
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return true
	}
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// safeNext accepts only same-site relative paths as redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}

// CurrentUser returns the authenticated user of the request, if any.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(userContextKey).(*model.User)
	return user
}
