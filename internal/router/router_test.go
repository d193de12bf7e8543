package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/nano-midea/socialape/internal/events"
	"github.com/anonto42/nano-midea/socialape/internal/middleware"
	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
	"github.com/anonto42/nano-midea/socialape/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// headerAuth trusts X-Handle, standing in for the token middlewares.
func headerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		handle := c.Request().Header.Get("X-Handle")
		if handle == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthenticated")
		}
		c.Set(middleware.ContextKeyHandle, handle)
		return next(c)
	}
}

type api struct {
	t    *testing.T
	e    *echo.Echo
	mem  *store.MemoryStore
	repo repositories.NotificationRepository
}

func newAPI(t *testing.T, opts ...func(*Services)) *api {
	t.Helper()
	log := logger.NewNop()
	mem := store.NewMemoryStore(0)
	posts := repositories.NewDocumentPostRepository(mem)
	likes := repositories.NewDocumentLikeRepository(mem)
	comments := repositories.NewDocumentCommentRepository(mem)
	users := repositories.NewDocumentUserRepository(mem)
	notifications := repositories.NewDocumentNotificationRepository(mem)
	for _, h := range []string{"alice", "bob"} {
		require.NoError(t, users.CreateUser(context.Background(), &models.User{Handle: h, ImageURL: "https://img/" + h}))
	}

	counters := services.NewCounterService(posts, likes, log)
	svc := Services{
		Posts:         services.NewPostService(posts, comments, users, counters, log),
		Counters:      counters,
		Users:         services.NewUserService(users, posts, likes, notifications, log),
		Notifications: services.NewNotificationService(notifications),
		Info:          map[string]string{"store": "memory", "status": "overridden"},
	}
	for _, opt := range opts {
		opt(&svc)
	}
	e := echo.New()
	e.Validator = validators.NewValidator()
	SetupRoutes(e, svc, headerAuth, log)
	return &api{t: t, e: e, mem: mem, repo: notifications}
}

func (a *api) do(method, path, handle, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if handle != "" {
		req.Header.Set("X-Handle", handle)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestRoutes_PostLifecycle(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/posts", "alice", `{"body":"hello world"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post models.Post
	decode(t, rec, &post)
	assert.Equal(t, "alice", post.AuthorHandle)
	assert.Equal(t, "https://img/alice", post.AuthorImageURL)

	rec = a.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/like", "bob", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &post)
	assert.Equal(t, int64(1), post.LikeCount)

	rec = a.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/like", "bob", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/comments", "bob", `{"body":"nice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/posts/"+post.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var full models.PostWithComments
	decode(t, rec, &full)
	assert.Equal(t, int64(1), full.CommentCount)
	assert.Len(t, full.Comments, 1)

	rec = a.do(http.MethodDelete, "/api/v1/posts/"+post.ID, "bob", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodDelete, "/api/v1/posts/"+post.ID, "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodGet, "/api/v1/posts/"+post.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_ValidationAndAuth(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/v1/posts", "", `{"body":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/posts", "alice", `{"body":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/posts", "alice", `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/user/image", "alice", `{"imageUrl":"not a url"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/notifications/read", "alice", `{"ids":[]}`).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/v1/posts/none/like", "alice", "").Code)

	rec := a.do(http.MethodPost, "/api/v1/posts", "alice", `{"body":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var post models.Post
	decode(t, rec, &post)
	assert.Equal(t, http.StatusConflict, a.do(http.MethodDelete, "/api/v1/posts/"+post.ID+"/like", "bob", "").Code)
}

func TestRoutes_UserAndNotifications(t *testing.T) {
	ctx := context.Background()
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/user", "alice", `{"bio":" hi ","website":"alice.dev"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/v1/users/alice", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var details models.UserDetails
	decode(t, rec, &details)
	assert.Equal(t, "hi", details.User.Bio)
	assert.Equal(t, "http://alice.dev", details.User.Website)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/users/nobody", "", "").Code)

	for _, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, a.repo.SaveNotification(ctx, &models.Notification{
			ID: id, Recipient: "alice", Sender: "bob", Type: models.NotificationLike,
			CreatedAt: "2024-01-01T00:00:0" + id[1:] + ".000Z",
		}))
	}

	rec = a.do(http.MethodGet, "/api/v1/notifications?limit=2", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page notificationPageBody
	decode(t, rec, &page)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "n3", page.Notifications[0].ID)
	require.NotEmpty(t, page.NextBefore)

	rec = a.do(http.MethodGet, "/api/v1/notifications?limit=2&before="+page.NextBefore, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var last notificationPageBody
	decode(t, rec, &last)
	require.Len(t, last.Notifications, 1)
	assert.Equal(t, "n1", last.Notifications[0].ID)
	assert.Empty(t, last.NextBefore)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/v1/notifications/read", "bob", `{"ids":["n1"]}`).Code)
	rec = a.do(http.MethodPost, "/api/v1/notifications/read", "alice", `{"ids":["n1","n2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	n, err := a.repo.GetNotificationByID(ctx, "n2")
	require.NoError(t, err)
	assert.True(t, n.Read)

	rec = a.do(http.MethodPost, "/api/v1/notifications/dismiss", "alice", `{"ids":["n3"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, a.mem.Count(store.CollectionNotifications))

	rec = a.do(http.MethodGet, "/api/v1/user", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.AuthenticatedUser
	decode(t, rec, &me)
	assert.Equal(t, "alice", me.Credentials.Handle)
	assert.Len(t, me.Notifications, 2)
}

func TestRoutes_StoreOutageIsServiceUnavailable(t *testing.T) {
	a := newAPI(t)
	a.mem.SetFault(func(op, _ string) error {
		if op == "query" {
			return store.ErrUnavailable
		}
		return nil
	})
	assert.Equal(t, http.StatusServiceUnavailable, a.do(http.MethodGet, "/api/v1/posts", "", "").Code)
	rec := a.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]string
	decode(t, rec, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "memory", health["store"])
}

type notificationPageBody struct {
	Notifications []models.Notification `json:"notifications"`
	NextBefore    string                `json:"nextBefore"`
}

func TestRoutes_DeadLettersForOperatorsOnly(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, newAPI(t).do(http.MethodGet, "/api/v1/admin/dead-letters", "ops", "").Code)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	repo, err := repositories.NewPostgresDeadLetterRepository(db)
	require.NoError(t, err)
	require.NoError(t, repo.Record(context.Background(), "fanout", events.Event{Kind: events.KindLike, Op: events.Created, ID: "l1"}, nil))

	a := newAPI(t, func(s *Services) { s.DeadLetters = services.NewDeadLetterService(repo, []string{"ops"}) })
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/admin/dead-letters", "", "").Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/v1/admin/dead-letters", "alice", "").Code)

	rec := a.do(http.MethodGet, "/api/v1/admin/dead-letters?kind=like&entityId=l1", "ops", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		DeadLetters []models.DeadLetter `json:"deadLetters"`
	}
	decode(t, rec, &body)
	require.Len(t, body.DeadLetters, 1)
	assert.Equal(t, "fanout", body.DeadLetters[0].Handler)
}
