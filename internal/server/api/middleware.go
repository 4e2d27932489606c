package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/filebroker/internal/logging"
)

const (
	allowOrigin  = "*"
	allowHeaders = "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token"
	allowMethods = "GET,POST,PUT,DELETE,OPTIONS"
)

// CORS attaches the permissive cross-origin headers to every response,
// including routing misses, and short-circuits a preflight OPTIONS request
// with a bare 200.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, allowOrigin)
			h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
			h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)

			if c.Request().Method == http.MethodOptions {
				return c.JSON(http.StatusOK, map[string]string{"message": "OK"})
			}

			return next(c)
		}
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(c.Request().Context(), "request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start).String(),
			)

			return err
		}
	}
}
