package domain

import "context"

// AccountRepository is the encryption boundary around UserStore. Tokens
// going in are protected and tokens coming out are unprotected.
type AccountRepository interface {
	UpsertUser(ctx context.Context, username, email string) error
	GetByUsername(ctx context.Context, username string) (*LocalUser, error)
	GetByEmail(ctx context.Context, email string) (*LocalUser, error)
	UpsertLinkedAccount(ctx context.Context, username string, account LinkedAccount) error
	RemoveLinkedAccount(ctx context.Context, username string) error
}
