package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// RegisterPostRoutes registers post-related routes; writes go through auth
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:post_id", h.GetPost)
	g.POST("/posts", h.CreatePost, auth)
	g.DELETE("/posts/:post_id", h.DeletePost, auth)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.postService.CreatePost(c.Request().Context(), handle, req.Body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost retrieves a post with its comments
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postService.GetPost(c.Request().Context(), c.Param("post_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// GetPosts retrieves the newest posts
func (h *PostHandler) GetPosts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	posts, err := h.postService.ListPosts(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

// DeletePost deletes a post owned by the caller
func (h *PostHandler) DeletePost(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}
	if err := h.postService.DeletePost(c.Request().Context(), c.Param("post_id"), handle); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}
