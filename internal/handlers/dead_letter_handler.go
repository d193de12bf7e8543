package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/labstack/echo/v4"
)

// DeadLetterHandler exposes failed trigger events to operators
type DeadLetterHandler struct {
	deadLetterService *services.DeadLetterService
}

func NewDeadLetterHandler(deadLetterService *services.DeadLetterService) *DeadLetterHandler {
	return &DeadLetterHandler{deadLetterService: deadLetterService}
}

func (h *DeadLetterHandler) RegisterDeadLetterRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/admin/dead-letters", h.GetDeadLetters, auth)
}

// GetDeadLetters lists dead letters, filtered by kind and entityId when given
func (h *DeadLetterHandler) GetDeadLetters(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	entries, err := h.deadLetterService.List(c.Request().Context(), handle, c.QueryParam("kind"), c.QueryParam("entityId"), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"deadLetters": entries})
}
