package inmemory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_UpsertKeepsEmail(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	require.NoError(t, store.UpsertUser(ctx, "alice", "alice@example.com"))
	require.NoError(t, store.UpsertUser(ctx, "alice", ""))

	user, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice@example.com", user.Email)

	byEmail, err := store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "alice", byEmail.Username)
}

func TestUserStore_MissingUser(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	user, err := store.FindByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = store.FindByEmail(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, user)

	err = store.SetLinkedAccount(ctx, "nobody", domain.LinkedAccount{RefreshToken: "r"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserStore_LinkedAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	require.NoError(t, store.UpsertUser(ctx, "alice", ""))

	expiry := time.Now().Add(time.Hour)
	account := domain.LinkedAccount{
		ExternalID:        "g-1",
		Email:             "alice@gmail.com",
		RefreshToken:      "r",
		AccessToken:       "a",
		AccessTokenExpiry: &expiry,
		Scopes:            []string{"s1"},
	}
	require.NoError(t, store.SetLinkedAccount(ctx, "alice", account))

	user, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user.LinkedAccount)
	assert.Equal(t, "g-1", user.LinkedAccount.ExternalID)

	// returned records are copies
	user.LinkedAccount.Scopes[0] = "mutated"
	again, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, again.LinkedAccount.Scopes)

	require.NoError(t, store.UnsetLinkedAccount(ctx, "alice"))
	user, err = store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, user.LinkedAccount)
}

func newState(value string, now time.Time) domain.StateToken {
	return domain.StateToken{
		Value:     value,
		Username:  "alice",
		SessionID: "sess-1",
		Status:    domain.StateStatusInitiated,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

func TestStateStore_Consume(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := domain.Session{ID: "sess-1", Username: "alice"}

	tests := []struct {
		name    string
		setup   func(s *StateStore)
		value   string
		session domain.Session
		now     time.Time
		wantErr error
	}{
		{
			name:    "valid",
			setup:   func(s *StateStore) { _ = s.Save(ctx, newState("st", now)) },
			value:   "st",
			session: session,
			now:     now.Add(time.Minute),
		},
		{
			name:    "unknown",
			setup:   func(s *StateStore) {},
			value:   "missing",
			session: session,
			now:     now,
			wantErr: domain.ErrStateNotFound,
		},
		{
			name:    "expired",
			setup:   func(s *StateStore) { _ = s.Save(ctx, newState("st", now)) },
			value:   "st",
			session: session,
			now:     now.Add(10 * time.Minute),
			wantErr: domain.ErrStateExpired,
		},
		{
			name:    "other session",
			setup:   func(s *StateStore) { _ = s.Save(ctx, newState("st", now)) },
			value:   "st",
			session: domain.Session{ID: "sess-2", Username: "alice"},
			now:     now,
			wantErr: domain.ErrStateMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStateStore()
			tt.setup(store)

			token, err := store.Consume(ctx, tt.value, tt.session, tt.now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrInvalidState)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.StateStatusConsumed, token.Status)
			assert.Equal(t, "alice", token.Username)
		})
	}
}

func TestStateStore_SingleUse(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	session := domain.Session{ID: "sess-1", Username: "alice"}
	store := NewStateStore()
	require.NoError(t, store.Save(ctx, newState("st", now)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "st", session, now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	_, err := store.Consume(ctx, "st", session, now)
	assert.ErrorIs(t, err, domain.ErrStateConsumed)
}

func TestStateStore_MismatchDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewStateStore()
	require.NoError(t, store.Save(ctx, newState("st", now)))

	_, err := store.Consume(ctx, "st", domain.Session{ID: "other", Username: "mallory"}, now)
	require.ErrorIs(t, err, domain.ErrStateMismatch)

	_, err = store.Consume(ctx, "st", domain.Session{ID: "sess-1", Username: "alice"}, now)
	assert.NoError(t, err)
}

func TestStateStore_Prune(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewStateStore()
	require.NoError(t, store.Save(ctx, newState("old", now.Add(-time.Hour))))
	require.NoError(t, store.Save(ctx, newState("fresh", now)))

	assert.Equal(t, 1, store.Prune(now))

	_, err := store.Consume(ctx, "old", domain.Session{ID: "sess-1", Username: "alice"}, now)
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}
