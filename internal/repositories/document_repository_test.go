package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CountersAndQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentPostRepository(store.NewMemoryStore(0))

	first := &models.Post{Body: "one", AuthorHandle: "alice", CreatedAt: "2024-01-01T00:00:00.000Z"}
	second := &models.Post{Body: "two", AuthorHandle: "alice", CreatedAt: "2024-01-02T00:00:00.000Z"}
	other := &models.Post{Body: "three", AuthorHandle: "bob"}
	for _, p := range []*models.Post{first, second, other} {
		require.NoError(t, repo.CreatePost(ctx, p))
		require.NotEmpty(t, p.ID)
	}

	n, err := repo.IncrementLikesCount(ctx, first.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.IncrementCommentsCount(ctx, first.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)

	got, err := repo.GetPostByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LikeCount)

	byAlice, err := repo.GetPostsByAuthor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, byAlice, 2)
	assert.Equal(t, second.ID, byAlice[0].ID)

	ids, err := repo.GetPostIDsByAuthor(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids)

	_, err = repo.IncrementLikesCount(ctx, "missing", 1)
	assert.True(t, models.IsNotFound(err))
	_, err = repo.GetPostByID(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestLikeRepository_GetLikeByPostAndAuthor(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentLikeRepository(store.NewMemoryStore(0))

	require.NoError(t, repo.CreateLike(ctx, &models.Like{PostID: "p1", AuthorHandle: "bob"}))
	require.NoError(t, repo.CreateLike(ctx, &models.Like{PostID: "p2", AuthorHandle: "bob"}))

	like, err := repo.GetLike(ctx, "p1", "bob")
	require.NoError(t, err)
	assert.Equal(t, "p1", like.PostID)
	assert.NotEmpty(t, like.CreatedAt)

	_, err = repo.GetLike(ctx, "p1", "carol")
	assert.True(t, models.IsNotFound(err))

	likes, err := repo.GetLikesByAuthor(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, likes, 2)
}

func TestUserRepository_HandleIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentUserRepository(store.NewMemoryStore(0))

	require.NoError(t, repo.CreateUser(ctx, &models.User{Handle: "alice", UserID: "uid-1"}))
	err := repo.CreateUser(ctx, &models.User{Handle: "alice"})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	u, err := repo.GetUserByUID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Handle)

	err = repo.UpdateUser(ctx, "nobody", store.Document{models.FieldBio: "x"})
	assert.True(t, models.IsNotFound(err))
}

func TestNotificationRepository_PagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentNotificationRepository(store.NewMemoryStore(0))

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.SaveNotification(ctx, &models.Notification{
			ID:        fmt.Sprintf("n%d", i),
			Recipient: "alice",
			Sender:    "bob",
			Type:      models.NotificationLike,
			PostID:    "p1",
			CreatedAt: fmt.Sprintf("2024-01-0%dT00:00:00.000Z", i),
		}))
	}

	page, err := repo.GetByRecipient(ctx, "alice", 2, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "n5", page[0].ID)
	assert.Equal(t, "n4", page[1].ID)

	page, err = repo.GetByRecipient(ctx, "alice", 2, models.NotificationCursor(page[1]))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "n3", page[0].ID)

	n, err := repo.MarkAsRead(ctx, []string{"n1", "n2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := repo.GetNotificationByID(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, got.Read)
}

func TestCommitChunked_WrapsChunkFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore(2)
	repo := NewDocumentNotificationRepository(mem)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.SaveNotification(ctx, &models.Notification{ID: fmt.Sprintf("n%d", i), Recipient: "alice"}))
	}

	calls := 0
	mem.SetFault(func(op, _ string) error {
		if op != "commit" {
			return nil
		}
		calls++
		if calls > 2 {
			return store.ErrUnavailable
		}
		return nil
	})

	n, err := repo.DismissNotifications(ctx, []string{"n0", "n1", "n2", "n3", "n4"})
	require.Error(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, models.HasCode(err, models.CodeBatchChunkFailure))
	assert.True(t, models.IsRetryable(err))

	var chunkErr *store.ChunkError
	require.True(t, errors.As(err, &chunkErr))
	assert.Equal(t, 1, chunkErr.Index)

	mem.SetFault(nil)
	visible, err := repo.GetByRecipient(ctx, "alice", 10, "")
	require.NoError(t, err)
	assert.Len(t, visible, 3)
	assert.Equal(t, 5, mem.Count(store.CollectionNotifications))
}

func TestNotificationRepository_PagesAcrossEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentNotificationRepository(store.NewMemoryStore(0))
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, repo.SaveNotification(ctx, &models.Notification{
			ID: id, Recipient: "alice", CreatedAt: "2024-01-01T00:00:00.000Z",
		}))
	}

	var seen []string
	cursor := ""
	for {
		page, err := repo.GetByRecipient(ctx, "alice", 2, cursor)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, n := range page {
			seen = append(seen, n.ID)
		}
		cursor = models.NotificationCursor(page[len(page)-1])
	}
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, seen)
}

func TestNotificationRepository_DismissHidesWithoutDeleting(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore(0)
	repo := NewDocumentNotificationRepository(mem)
	require.NoError(t, repo.SaveNotification(ctx, &models.Notification{ID: "n1", Recipient: "alice", CreatedAt: "2024-01-01T00:00:00.000Z"}))
	require.NoError(t, repo.SaveNotification(ctx, &models.Notification{ID: "n2", Recipient: "alice", CreatedAt: "2024-01-02T00:00:00.000Z"}))

	n, err := repo.DismissNotifications(ctx, []string{"n2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	visible, err := repo.GetByRecipient(ctx, "alice", 10, "")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "n1", visible[0].ID)

	got, err := repo.GetNotificationByID(ctx, "n2")
	require.NoError(t, err)
	assert.True(t, got.Dismissed)
	assert.Equal(t, 2, mem.Count(store.CollectionNotifications))
}
