package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	counters *services.CounterService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(counters *services.CounterService) *LikeHandler {
	return &LikeHandler{counters: counters}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/posts/:post_id/like", h.LikePost, auth)
	g.DELETE("/posts/:post_id/like", h.UnlikePost, auth)
}

// LikePost handles liking a post and returns the post with its new count
func (h *LikeHandler) LikePost(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}
	post, err := h.counters.Like(c.Request().Context(), c.Param("post_id"), handle)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// UnlikePost handles unliking a post
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}
	post, err := h.counters.Unlike(c.Request().Context(), c.Param("post_id"), handle)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}
