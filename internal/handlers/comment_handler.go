package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	postService *services.PostService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(postService *services.PostService) *CommentHandler {
	return &CommentHandler{postService: postService}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/posts/:post_id/comments", h.CreateComment, auth)
	g.DELETE("/comments/:id", h.DeleteComment, auth)
}

// CreateComment adds a comment to a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.postService.CreateComment(c.Request().Context(), c.Param("post_id"), handle, req.Body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// DeleteComment deletes a comment owned by the caller
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}
	if err := h.postService.DeleteComment(c.Request().Context(), c.Param("id"), handle); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}
