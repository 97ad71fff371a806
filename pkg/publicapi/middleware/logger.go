package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per request. Client errors are logged at warn
// and server errors at error, whatever logLevel is.
func RequestLogger(logger zerolog.Logger, logLevel zerolog.Level) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			level := logLevel
			if v.Status >= http.StatusInternalServerError && level < zerolog.ErrorLevel {
				level = zerolog.ErrorLevel
			} else if v.Status >= http.StatusBadRequest && level < zerolog.WarnLevel {
				level = zerolog.WarnLevel
			}
			event := logger.WithLevel(level).
				Str("Method", v.Method).
				Str("URI", v.URI).
				Str("RemoteAddr", v.RemoteIP).
				Str("RequestID", v.RequestID).
				Int("StatusCode", v.Status).
				Dur("Duration", v.Latency)
			if v.Error != nil {
				event = event.Err(v.Error)
			}
			event.Send()
			return nil
		},
	})
}

// DefaultRequestLogger logs through the global logger at debug level.
func DefaultRequestLogger() echo.MiddlewareFunc {
	return RequestLogger(log.Logger, zerolog.DebugLevel)
}

// SetContentType returns a middleware which sets the response content type.
func SetContentType(contentType string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderContentType, contentType)
			return next(c)
		}
	}
}
