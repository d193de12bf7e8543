package router

import (
	"github.com/anonto42/nano-midea/socialape/internal/handlers"
	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
	"github.com/labstack/echo/v4"
)

// Services are the dependencies of the HTTP layer
type Services struct {
	Posts         *services.PostService
	Counters      *services.CounterService
	Users         *services.UserService
	Notifications *services.NotificationService
	// DeadLetters is nil when no dead-letter database is configured
	DeadLetters *services.DeadLetterService

	// Info is echoed by /health
	Info map[string]string
}

// SetupRoutes configures all application routes. auth guards every write and every
// route that reads the caller's own data.
func SetupRoutes(e *echo.Echo, svc Services, auth echo.MiddlewareFunc, log *logger.Logger) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck(svc.Info))

	api := e.Group("/api/v1")

	// Post routes
	postHandler := handlers.NewPostHandler(svc.Posts)
	postHandler.RegisterPostRoutes(api, auth)
	log.Debug("post routes configured")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(svc.Posts)
	commentHandler.RegisterCommentRoutes(api, auth)
	log.Debug("comment routes configured")

	// Like routes
	likeHandler := handlers.NewLikeHandler(svc.Counters)
	likeHandler.RegisterLikeRoutes(api, auth)
	log.Debug("like routes configured")

	// User profile routes
	userHandler := handlers.NewUserHandler(svc.Users)
	userHandler.RegisterProfileRoutes(api, auth)
	log.Debug("user profile routes configured")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	notificationHandler.RegisterNotificationRoutes(api, auth)
	log.Debug("notification routes configured")

	if svc.DeadLetters != nil {
		deadLetterHandler := handlers.NewDeadLetterHandler(svc.DeadLetters)
		deadLetterHandler.RegisterDeadLetterRoutes(api, auth)
		log.Debug("dead letter routes configured")
	}

	log.Info("all routes configured")
}
