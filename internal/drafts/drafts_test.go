package drafts

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/stackapp/internal/services"
)

func exerciseStore(t *testing.T, s services.DraftStore, user string) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	want := services.QuestionDraft{Title: "Why?", Body: "X"}
	require.NoError(t, s.Set(ctx, user, want))
	got, ok, err := s.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, s.Delete(ctx, user))
	_, ok, err = s.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(), "u1")
}

func TestMemoryStoreExpires(t *testing.T) {
	m := NewMemoryStore()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	require.NoError(t, m.Set(context.Background(), "u1", services.QuestionDraft{Title: "T"}))

	now = now.Add(ttl)
	_, ok, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDraftKey(t *testing.T) {
	assert.Equal(t, "stackapp:draft:u42", draftKey("u42"))
}

// Needs a live server: STACKAPP_TEST_REDIS_ADDR=localhost:6379 go test ./internal/drafts
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("STACKAPP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STACKAPP_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	s := NewRedisStore(client)
	user := "test-" + time.Now().Format("150405.000000")
	exerciseStore(t, s, user)
}
