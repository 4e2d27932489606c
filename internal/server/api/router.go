package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrijs2005/filebroker/internal/logging"
)

// route is one entry of the dispatch table.
type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
}

// routes returns the dispatch table. The current generation of paths comes
// first, the legacy aliases after it. Both generations dispatch to the same
// handlers and must keep doing so.
func (h *Handler) routes() []route {
	return []route{
		{http.MethodPost, "/api/files/upload", h.HandleUpload},
		{http.MethodGet, "/api/files", h.HandleList},
		{http.MethodGet, "/api/files/config", h.HandleConfig},
		{http.MethodGet, "/api/files/download/:id", h.HandleDownload},
		{http.MethodDelete, "/api/files/:id", h.HandleDelete},

		// legacy aliases
		{http.MethodPost, "/api/files/generate-upload-url", h.HandleUpload},
		{http.MethodGet, "/api/files/generate-download-url/:id", h.HandleDownload},
		{http.MethodGet, "/api/files/list", h.HandleList},
		{http.MethodDelete, "/api/files/delete/:id", h.HandleDelete},
		{http.MethodGet, "/api/config", h.HandleConfig},
	}
}

// SetupRouter builds the echo instance with the middleware chain, the error
// handler and the route table. Registration fails on a duplicate method+path
// pair so an alias mistake surfaces at startup instead of as a silently
// shadowed route.
func SetupRouter(h *Handler, logger logging.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler()

	e.Use(middleware.Recover())
	e.Use(RequestLogger(logger))
	e.Use(CORS())

	seen := make(map[string]struct{})
	for _, r := range h.routes() {
		key := r.method + " " + r.path
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("duplicate route %s", key)
		}
		seen[key] = struct{}{}
		e.Add(r.method, r.path, r.handler)
	}

	return e, nil
}

// errorHandler converts routing misses into the structured not-found response
// that echoes the offending method and path. A method mismatch on a known
// path counts as unmapped too, so 405 collapses into the same 404 shape.
func errorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		switch code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			_ = c.JSON(http.StatusNotFound, notFoundResponse{
				Error:   "Not found",
				Path:    c.Request().URL.Path,
				Method:  c.Request().Method,
				Message: "The requested endpoint does not exist",
			})
		default:
			_ = c.JSON(code, errorResponse{Error: "Internal server error", Message: err.Error()})
		}
	}
}
