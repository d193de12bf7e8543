package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/users/:handle", h.GetUserDetails)
	g.GET("/user", h.GetAuthenticatedUser, auth)
	g.POST("/user", h.AddUserDetails, auth)
	g.POST("/user/image", h.UpdateImage, auth)
}

// GetUserDetails retrieves a public profile with the user's posts
func (h *UserHandler) GetUserDetails(c echo.Context) error {
	details, err := h.userService.GetUserDetails(c.Request().Context(), c.Param("handle"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, details)
}

// GetAuthenticatedUser retrieves the caller's own profile, likes and notifications
func (h *UserHandler) GetAuthenticatedUser(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}
	me, err := h.userService.GetAuthenticatedUser(c.Request().Context(), handle)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, me)
}

// AddUserDetails updates bio, website and location
func (h *UserHandler) AddUserDetails(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}

	var req models.UpdateUserDetailsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.userService.AddUserDetails(c.Request().Context(), handle, req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Details added successfully"})
}

// UpdateImage sets the profile image to an uploaded URL
func (h *UserHandler) UpdateImage(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}

	var req models.UpdateImageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.userService.UpdateImageURL(c.Request().Context(), handle, req.ImageURL); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Image updated successfully"})
}
