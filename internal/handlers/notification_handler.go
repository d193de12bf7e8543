package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/notifications", h.GetNotifications, auth)
	g.POST("/notifications/read", h.MarkAsRead, auth)
	g.POST("/notifications/dismiss", h.DismissNotifications, auth)
}

// notificationPage is one page of notifications; NextBefore is empty on the last page
type notificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	NextBefore    string                `json:"nextBefore,omitempty"`
}

// GetNotifications pages through the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > services.MaxNotificationLimit {
		limit = services.DefaultNotificationLimit
	}

	list, err := h.notificationService.ListForRecipient(c.Request().Context(), handle, limit, c.QueryParam("before"))
	if err != nil {
		return httpError(err)
	}
	page := notificationPage{Notifications: list}
	if len(list) == limit {
		page.NextBefore = models.NotificationCursor(list[len(list)-1])
	}
	return c.JSON(http.StatusOK, page)
}

// MarkAsRead flags the given notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}

	var req models.NotificationIDsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	n, err := h.notificationService.MarkRead(c.Request().Context(), handle, req.IDs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": n})
}

// DismissNotifications hides the given notifications from the caller's listing
func (h *NotificationHandler) DismissNotifications(c echo.Context) error {
	handle, err := currentHandle(c)
	if err != nil {
		return err
	}

	var req models.NotificationIDsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	n, err := h.notificationService.Dismiss(c.Request().Context(), handle, req.IDs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"dismissed": n})
}
