package drafts

import (
	"context"
	"sync"
	"time"

	"github.com/soaringjerry/stackapp/internal/services"
)

// MemoryStore is used when no Redis address is configured.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	draft   services.QuestionDraft
	expires time.Time
}

var _ services.DraftStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memoryItem{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (services.QuestionDraft, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[userID]
	if !ok {
		return services.QuestionDraft{}, false, nil
	}
	if !m.now().Before(it.expires) {
		delete(m.items, userID)
		return services.QuestionDraft{}, false, nil
	}
	return it.draft, true, nil
}

func (m *MemoryStore) Set(_ context.Context, userID string, d services.QuestionDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[userID] = memoryItem{draft: d, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}
