package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"ordermgr/internal/auth"
	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/service"
)

// UserHandler serves the self-service user endpoints.
type UserHandler struct {
	users       service.UserService
	authService service.AuthService
	sessions    *auth.SessionService
	log         zerolog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users service.UserService, authService service.AuthService, sessions *auth.SessionService, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:       users,
		authService: authService,
		sessions:    sessions,
		log:         log,
	}
}

// DeleteUser godoc
// @Summary Delete a user account
// @Description Any user may delete their own account. Deleting someone else's requires admin rights.
// @Tags users
// @Accept json
// @Produce json
// @Param request body DeleteUserRequest true "User to delete"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 429 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /user/delete [post]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	var req DeleteUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
			Error: apperrors.MsgInvalidRequest,
			Code:  "INVALID_REQUEST",
		}).SetInternal(err)
	}

	actor := CurrentUser(c)
	ctx := c.Request().Context()
	if err := h.users.DeleteUser(ctx, actor, req.ID); err != nil {
		if apperrors.MapErrorToHTTP(err).StatusCode == http.StatusInternalServerError {
			h.log.Error().Err(err).Uint("user_id", req.ID).Msg("error deleting user")
		}
		return apiError(err, apperrors.MsgUserDeleteFailed)
	}

	h.log.Info().Uint("user_id", req.ID).Uint("by", actor.ID).Msg("user deleted")
	if req.ID == actor.ID {
		if err := h.authService.Logout(ctx, Claims(c)); err != nil {
			h.log.Error().Err(err).Msg("failed to revoke session")
		}
		h.sessions.ClearCookie(c)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: MsgUserDeleted})
}
