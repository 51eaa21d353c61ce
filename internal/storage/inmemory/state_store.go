package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
)

// StateStore implements domain.StateStore for a single process. Tokens are
// kept until Prune drops the ones past their expiry.
type StateStore struct {
	mu     sync.Mutex
	tokens map[string]domain.StateToken
}

func NewStateStore() *StateStore {
	return &StateStore{
		tokens: make(map[string]domain.StateToken),
	}
}

func (s *StateStore) Save(ctx context.Context, token domain.StateToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.Value] = token

	return nil
}

func (s *StateStore) Consume(ctx context.Context, value string, session domain.Session, now time.Time) (domain.StateToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[value]
	if !ok {
		return domain.StateToken{}, domain.ErrStateNotFound
	}

	switch token.Status {
	case domain.StateStatusConsumed:
		return domain.StateToken{}, domain.ErrStateConsumed
	case domain.StateStatusExpired:
		return domain.StateToken{}, domain.ErrStateExpired
	}

	if token.IsExpired(now) {
		token.Status = domain.StateStatusExpired
		s.tokens[value] = token

		return domain.StateToken{}, domain.ErrStateExpired
	}

	if !token.BelongsTo(session) {
		return domain.StateToken{}, domain.ErrStateMismatch
	}

	token.Status = domain.StateStatusConsumed
	s.tokens[value] = token

	return token, nil
}

// Prune removes tokens that expired before now and returns how many were
// dropped.
func (s *StateStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for value, token := range s.tokens {
		if token.IsExpired(now) {
			delete(s.tokens, value)
			pruned++
		}
	}

	return pruned
}
