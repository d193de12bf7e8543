package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/nano-midea/socialape/internal/middleware"
	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/labstack/echo/v4"
)

// httpError maps an AppError code onto an HTTP status.
func httpError(err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	switch appErr.Code {
	case models.CodeNotFound:
		return echo.NewHTTPError(http.StatusNotFound, appErr.Message)
	case models.CodeConflict:
		return echo.NewHTTPError(http.StatusConflict, appErr.Message)
	case models.CodeForbidden:
		return echo.NewHTTPError(http.StatusForbidden, appErr.Message)
	case models.CodeValidation:
		return echo.NewHTTPError(http.StatusBadRequest, appErr.Message)
	case models.CodeStoreUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Service temporarily unavailable")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

func currentHandle(c echo.Context) (string, error) {
	handle, _ := c.Get(middleware.ContextKeyHandle).(string)
	if handle == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Unauthenticated")
	}
	return handle, nil
}

// bindAndValidate decodes the request body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}
