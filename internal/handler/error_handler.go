package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "ordermgr/internal/errors"
)

// ErrorPage is the data of the error template.
type ErrorPage struct {
	Status  int
	Message string
	Detail  string
}

// NewErrorHandler returns an echo.HTTPErrorHandler that answers API clients with the
// JSON error envelope and browsers with the error page. Underlying errors are exposed
// only when debug is set.
func NewErrorHandler(log zerolog.Logger, debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			he = apiError(err, apperrors.MsgInternal).(*echo.HTTPError)
		}

		resp := errorResponse(he)
		internal := he.Internal
		if internal == nil && he.Code >= http.StatusInternalServerError {
			internal = err
		}

		if he.Code >= http.StatusInternalServerError {
			log.Error().Err(internal).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}
		if debug && internal != nil {
			resp.Detail = internal.Error()
		}

		var sendErr error
		switch {
		case c.Request().Method == http.MethodHead:
			sendErr = c.NoContent(he.Code)
		case wantsJSON(c):
			sendErr = c.JSON(he.Code, resp)
		default:
			sendErr = render(c, he.Code, "error.html", http.StatusText(he.Code), ErrorPage{
				Status:  he.Code,
				Message: resp.Error,
				Detail:  resp.Detail,
			})
		}
		if sendErr != nil {
			log.Error().Err(sendErr).Msg("failed to send error response")
		}
	}
}

// errorResponse normalises the message of an echo.HTTPError. Framework errors carry
// plain English strings; those are replaced by the localised text for their status.
func errorResponse(he *echo.HTTPError) apperrors.ErrorResponse {
	switch msg := he.Message.(type) {
	case apperrors.ErrorResponse:
		return msg
	case *apperrors.ErrorResponse:
		return *msg
	}

	switch he.Code {
	case http.StatusNotFound:
		return apperrors.ErrorResponse{Error: apperrors.MsgNotFound}
	case http.StatusUnauthorized:
		return apperrors.ErrorResponse{Error: apperrors.MsgUnauthorized}
	case http.StatusForbidden:
		return apperrors.ErrorResponse{Error: apperrors.MsgForbidden}
	case http.StatusTooManyRequests:
		return apperrors.ErrorResponse{Error: apperrors.MsgRateLimited}
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return apperrors.ErrorResponse{Error: apperrors.MsgInvalidRequest}
	default:
		if he.Code >= http.StatusInternalServerError {
			return apperrors.ErrorResponse{Error: apperrors.MsgInternal}
		}
		return apperrors.ErrorResponse{Error: http.StatusText(he.Code)}
	}
}
