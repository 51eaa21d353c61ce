package inmemory

import (
	"context"
	"sync"

	"github.com/micuatri/calendarlink/internal/domain"
)

// UserStore implements domain.UserStore in process memory
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*domain.LocalUser
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]*domain.LocalUser),
	}
}

func (s *UserStore) UpsertUser(ctx context.Context, username, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		user = &domain.LocalUser{Username: username}
		s.users[username] = user
	}

	if email != "" {
		user.Email = email
	}

	return nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*domain.LocalUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, nil
	}

	return copyUser(user), nil
}

// FindByEmail returns the first match. Emails are not unique.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.LocalUser, error) {
	if email == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}

	return nil, nil
}

func (s *UserStore) SetLinkedAccount(ctx context.Context, username string, account domain.LinkedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}

	stored := account.Normalized()
	user.LinkedAccount = &stored

	return nil
}

func (s *UserStore) UnsetLinkedAccount(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[username]; ok {
		user.LinkedAccount = nil
	}

	return nil
}

func copyUser(user *domain.LocalUser) *domain.LocalUser {
	out := &domain.LocalUser{
		Username: user.Username,
		Email:    user.Email,
	}

	if user.LinkedAccount != nil {
		account := user.LinkedAccount.Normalized()
		out.LinkedAccount = &account
	}

	return out
}
