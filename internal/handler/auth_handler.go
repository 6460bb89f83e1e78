package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"ordermgr/internal/auth"
	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/metrics"
	"ordermgr/internal/service"
)

// AuthHandler handles the login, logout and registration pages.
type AuthHandler struct {
	authService         service.AuthService
	sessions            *auth.SessionService
	metrics             *metrics.Metrics
	log                 zerolog.Logger
	registrationEnabled bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, sessions *auth.SessionService, m *metrics.Metrics, log zerolog.Logger, registrationEnabled bool) *AuthHandler {
	return &AuthHandler{
		authService:         authService,
		sessions:            sessions,
		metrics:             m,
		log:                 log,
		registrationEnabled: registrationEnabled,
	}
}

// LoginPage is the data of the login template.
type LoginPage struct {
	Username            string
	Next                string
	Errors              map[string][]string
	RegistrationEnabled bool
}

// RegisterPage is the data of the registration template.
type RegisterPage struct {
	Username string
	Email    string
	Errors   map[string][]string
}

// ShowLogin renders the login form.
func (h *AuthHandler) ShowLogin(c echo.Context) error {
	if CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/orders")
	}
	return h.renderLogin(c, http.StatusOK, LoginPage{})
}

// Login godoc
// @Summary Log in
// @Description Verifies credentials and sets the session cookie.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Param next query string false "Relative path to continue to"
// @Success 302
// @Failure 429 {object} apperrors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	if CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/orders")
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{Error: apperrors.MsgInvalidRequest})
	}

	data := LoginPage{Username: req.Username}
	if err := c.Validate(&req); err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			data.Errors = verr.Fields
			return h.renderLogin(c, http.StatusOK, data)
		}
		return err
	}

	ctx := c.Request().Context()
	user, token, claims, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			h.metrics.LoginAttempt("failure")
			h.log.Warn().Str("username", req.Username).Str("ip", c.RealIP()).Msg("failed login attempt")
			AddFlash(c, FlashError, apperrors.MsgBadCredentials)
			return h.renderLogin(c, http.StatusOK, data)
		}
		return err
	}

	h.sessions.SetCookie(c, token, claims.ExpiresAt.Time)
	h.metrics.LoginAttempt("success")
	h.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user logged in")
	AddFlash(c, FlashSuccess, MsgLoggedIn)

	next := safeNext(c.QueryParam("next"))
	if next == "" {
		next = "/orders"
	}
	return c.Redirect(http.StatusFound, next)
}

// Logout godoc
// @Summary Log out
// @Description Revokes the current session and clears the cookie.
// @Tags auth
// @Success 302
// @Router /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), Claims(c)); err != nil {
		h.log.Error().Err(err).Msg("failed to revoke session")
	}
	if user := CurrentUser(c); user != nil {
		h.log.Info().Uint("user_id", user.ID).Msg("user logged out")
	}

	h.sessions.ClearCookie(c)
	AddFlash(c, FlashInfo, MsgLoggedOut)
	return c.Redirect(http.StatusFound, "/login")
}

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(c echo.Context) error {
	if CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/orders")
	}
	return render(c, http.StatusOK, "register.html", "新規登録", RegisterPage{})
}

// Register godoc
// @Summary Register an account
// @Description Only available when self-registration is enabled.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param password formData string true "Password (8+ characters)"
// @Param password_confirm formData string true "Password confirmation"
// @Success 302
// @Failure 429 {object} apperrors.ErrorResponse
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	if CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/orders")
	}

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{Error: apperrors.MsgInvalidRequest})
	}

	data := RegisterPage{Username: req.Username, Email: req.Email}
	if err := c.Validate(&req); err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			data.Errors = verr.Fields
			return render(c, http.StatusOK, "register.html", "新規登録", data)
		}
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, apperrors.ErrUsernameTaken):
		data.Errors = map[string][]string{"username": {apperrors.MsgUsernameTaken}}
		return render(c, http.StatusOK, "register.html", "新規登録", data)
	case errors.Is(err, apperrors.ErrEmailTaken):
		data.Errors = map[string][]string{"email": {apperrors.MsgEmailTaken}}
		return render(c, http.StatusOK, "register.html", "新規登録", data)
	case err != nil:
		h.log.Error().Err(err).Str("username", req.Username).Msg("error creating user")
		AddFlash(c, FlashError, apperrors.MsgRegisterFailed)
		return render(c, http.StatusOK, "register.html", "新規登録", data)
	}

	h.log.Info().Str("username", user.Username).Msg("new user registered")
	AddFlash(c, FlashSuccess, MsgRegistered)
	return c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) renderLogin(c echo.Context, status int, data LoginPage) error {
	data.RegistrationEnabled = h.registrationEnabled
	if data.Next == "" {
		data.Next = safeNext(c.QueryParam("next"))
	}
	return render(c, status, "login.html", "ログイン", data)
}
