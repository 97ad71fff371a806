package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/bacalhau-project/tiercache/pkg/publicapi/apimodels"
)

// CustomHTTPErrorHandler renders every handler error as an apimodels.APIError.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	var (
		apiErr  *apimodels.APIError
		httpErr *echo.HTTPError
		code    int
		message string
	)

	switch {
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
		message = apiErr.Message

	case errors.As(err, &httpErr):
		// raised by echo itself or a middleware, e.g. an unknown route or a
		// body over the size limit
		code = httpErr.Code
		message, _ = httpErr.Message.(string)
		if c.Echo().Debug && httpErr.Internal != nil {
			message += ". " + httpErr.Internal.Error()
		}

	default:
		code = http.StatusInternalServerError
		message = "Internal server error"
		if c.Echo().Debug {
			message += ". " + err.Error()
		}
	}

	// Don't override the status code if it is already been set.
	if c.Response().Committed {
		return
	}

	var responseErr error
	if c.Request().Method == http.MethodHead {
		responseErr = c.NoContent(code)
	} else {
		responseErr = c.JSON(code, apimodels.APIError{
			HTTPStatusCode: code,
			Message:        message,
			RequestID:      c.Response().Header().Get(echo.HeaderXRequestID),
			Code:           apimodels.CodeForStatus(code),
		})
	}
	if responseErr != nil {
		log.Error().Err(responseErr).
			Str("original_error", err.Error()).
			Msg("Failed to send error response")
	}
}
