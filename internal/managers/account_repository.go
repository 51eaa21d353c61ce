package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/rs/zerolog/log"
)

type accountRepository struct {
	store     domain.UserStore
	protector domain.TokenProtector
}

type AccountRepositoryDependencies struct {
	Store     domain.UserStore
	Protector domain.TokenProtector
}

func NewAccountRepository(deps AccountRepositoryDependencies) domain.AccountRepository {
	return &accountRepository{
		store:     deps.Store,
		protector: deps.Protector,
	}
}

// UpsertUser relies on the store's unique username index. Two first-time
// upserts racing on one username leave one of them with a conflict; retrying
// once turns that into a plain update.
func (r *accountRepository) UpsertUser(ctx context.Context, username, email string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	}

	err := r.store.UpsertUser(ctx, username, email)
	if errors.Is(err, domain.ErrStorageConflict) {
		log.Debug().Str("username", username).Msg("Retrying user upsert after duplicate key")

		err = r.store.UpsertUser(ctx, username, email)
	}

	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.LocalUser, error) {
	user, err := r.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return r.unprotect(user), nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.LocalUser, error) {
	user, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return r.unprotect(user), nil
}

// UpsertLinkedAccount replaces the whole linked account. Callers pass the
// complete state including fields that did not change.
func (r *accountRepository) UpsertLinkedAccount(ctx context.Context, username string, account domain.LinkedAccount) error {
	protected := account.Normalized()
	protected.RefreshToken = r.protector.Protect(protected.RefreshToken)
	protected.AccessToken = r.protector.Protect(protected.AccessToken)

	if err := r.store.SetLinkedAccount(ctx, username, protected); err != nil {
		return fmt.Errorf("failed to upsert linked account: %w", err)
	}

	return nil
}

func (r *accountRepository) RemoveLinkedAccount(ctx context.Context, username string) error {
	if err := r.store.UnsetLinkedAccount(ctx, username); err != nil {
		return fmt.Errorf("failed to remove linked account: %w", err)
	}

	return nil
}

func (r *accountRepository) unprotect(user *domain.LocalUser) *domain.LocalUser {
	if user == nil || user.LinkedAccount == nil {
		return user
	}

	account := user.LinkedAccount.Normalized()
	account.RefreshToken = r.protector.Unprotect(account.RefreshToken)
	account.AccessToken = r.protector.Unprotect(account.AccessToken)
	user.LinkedAccount = &account

	return user
}
