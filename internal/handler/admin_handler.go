package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/model"
	"ordermgr/internal/service"
)

// AdminHandler serves the user administration pages.
type AdminHandler struct {
	users service.UserService
	log   zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(users service.UserService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{users: users, log: log}
}

// UsersPage is the data of the user list template.
type UsersPage struct {
	Users []model.User
}

// CreateUserPage is the data of the user creation template.
type CreateUserPage struct {
	Username string
	Email    string
	IsAdmin  bool
	Errors   map[string][]string
}

// ListUsers renders every account.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, "admin_users.html", "ユーザー管理", UsersPage{Users: users})
}

// ShowCreateUser renders the user creation form.
func (h *AdminHandler) ShowCreateUser(c echo.Context) error {
	return render(c, http.StatusOK, "admin_create_user.html", "ユーザー作成", CreateUserPage{})
}

// CreateUser provisions an account.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{Error: apperrors.MsgInvalidRequest})
	}

	data := CreateUserPage{Username: req.Username, Email: req.Email, IsAdmin: bool(req.IsAdmin)}
	if err := c.Validate(&req); err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			data.Errors = verr.Fields
			return h.renderCreate(c, data)
		}
		return err
	}

	user, err := h.users.CreateUser(c.Request().Context(), service.NewUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  bool(req.IsAdmin),
	})
	switch {
	case errors.Is(err, apperrors.ErrUsernameTaken):
		data.Errors = map[string][]string{"username": {apperrors.MsgUsernameTaken}}
		return h.renderCreate(c, data)
	case errors.Is(err, apperrors.ErrEmailTaken):
		data.Errors = map[string][]string{"email": {apperrors.MsgEmailTaken}}
		return h.renderCreate(c, data)
	case err != nil:
		h.log.Error().Err(err).Str("username", req.Username).Msg("error creating user")
		AddFlash(c, FlashError, apperrors.MsgUserCreateFailed)
		return h.renderCreate(c, data)
	}

	h.log.Info().
		Uint("user_id", user.ID).
		Bool("is_admin", user.IsAdmin).
		Uint("by", CurrentUser(c).ID).
		Msg("user created by admin")
	AddFlash(c, FlashSuccess, MsgUserCreated)
	return c.Redirect(http.StatusFound, "/admin/users")
}

// DeleteUser removes another user's account.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	actor := CurrentUser(c)
	err := h.users.AdminDeleteUser(c.Request().Context(), actor, id)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, apperrors.ErrorResponse{Error: apperrors.MsgUserNotFound})
	case errors.Is(err, apperrors.ErrSelfModification):
		AddFlash(c, FlashError, apperrors.MsgSelfModify)
	case err != nil:
		h.log.Error().Err(err).Uint("user_id", id).Msg("error deleting user")
		AddFlash(c, FlashError, apperrors.MsgUserDeleteFailed)
	default:
		h.log.Info().Uint("user_id", id).Uint("by", actor.ID).Msg("user deleted by admin")
		AddFlash(c, FlashSuccess, MsgUserDeletedAdm)
	}
	return c.Redirect(http.StatusFound, "/admin/users")
}

// ToggleAdmin flips another user's admin flag.
func (h *AdminHandler) ToggleAdmin(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	actor := CurrentUser(c)
	user, err := h.users.ToggleAdmin(c.Request().Context(), actor, id)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, apperrors.ErrorResponse{Error: apperrors.MsgUserNotFound})
	case errors.Is(err, apperrors.ErrSelfModification):
		AddFlash(c, FlashError, apperrors.MsgSelfModify)
	case err != nil:
		h.log.Error().Err(err).Uint("user_id", id).Msg("Error toggling admin status")
		AddFlash(c, FlashError, apperrors.MsgToggleFailed)
	default:
		h.log.Info().Uint("user_id", id).Bool("is_admin", user.IsAdmin).Uint("by", actor.ID).Msg("admin status toggled")
		AddFlash(c, FlashSuccess, MsgAdminToggled)
	}
	return c.Redirect(http.StatusFound, "/admin/users")
}

func (h *AdminHandler) renderCreate(c echo.Context, data CreateUserPage) error {
	return render(c, http.StatusOK, "admin_create_user.html", "ユーザー作成", data)
}
