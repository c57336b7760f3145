package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/stackapp/internal/services"
)

const ttl = 24 * time.Hour

// RedisStore keeps one ask-form draft per user as JSON with a 24h TTL.
type RedisStore struct {
	client *redis.Client
}

var _ services.DraftStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, userID string) (services.QuestionDraft, bool, error) {
	v, err := r.client.Get(ctx, draftKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return services.QuestionDraft{}, false, nil
	}
	if err != nil {
		return services.QuestionDraft{}, false, err
	}

	var d services.QuestionDraft
	if err := json.Unmarshal([]byte(v), &d); err != nil {
		return services.QuestionDraft{}, false, err
	}
	return d, true, nil
}

func (r *RedisStore) Set(ctx context.Context, userID string, d services.QuestionDraft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, draftKey(userID), b, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, draftKey(userID)).Err()
}

func draftKey(userID string) string {
	return "stackapp:draft:" + userID
}
