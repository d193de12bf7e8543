package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports liveness plus static deployment details such as the store driver.
// It never touches the store, so it stays up during a store outage.
func HealthCheck(details map[string]string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := map[string]string{
			"status":  "healthy",
			"service": "socialape-api",
		}
		for k, v := range details {
			if _, reserved := body[k]; !reserved {
				body[k] = v
			}
		}
		return c.JSON(http.StatusOK, body)
	}
}
