package transcript

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/createlo/assistant/backend/internal/model/chat"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrRoleRequired    = errors.New("turn role is required")
)

// Store is the append-only per-session conversation log. Sessions are
// created implicitly on first append; reading an unknown session yields an
// empty transcript. Implementations must keep occurred-at timestamps
// non-decreasing within a session and must not interleave concurrent
// appends inside a single turn.
type Store interface {
	Append(ctx context.Context, sessionID, role, content string) (chat.Turn, error)
	ReadAll(ctx context.Context, sessionID string) ([]chat.Turn, error)
}

// MemoryStore implements Store with in-memory maps, suitable for a single
// process deployment and for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]chat.Turn
}

// NewMemoryStore bootstraps an empty in-memory transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns: make(map[string][]chat.Turn),
	}
}

// Append records one turn at the end of the session's transcript. The store
// assigns the turn id and the occurred-at timestamp; the timestamp never
// moves backwards within a session even if the wall clock does.
func (s *MemoryStore) Append(_ context.Context, sessionID, role, content string) (chat.Turn, error) {
	if sessionID == "" {
		return chat.Turn{}, ErrSessionRequired
	}
	if role == "" {
		return chat.Turn{}, ErrRoleRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	occurredAt := time.Now().UTC()
	if existing := s.turns[sessionID]; len(existing) > 0 {
		if last := existing[len(existing)-1].OccurredAt; occurredAt.Before(last) {
			occurredAt = last
		}
	}

	turn := chat.Turn{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Role:       role,
		Content:    content,
		OccurredAt: occurredAt,
	}

	s.turns[sessionID] = append(s.turns[sessionID], turn)
	return turn, nil
}

// ReadAll returns the session's turns oldest first. Unknown sessions yield
// an empty slice.
func (s *MemoryStore) ReadAll(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}
