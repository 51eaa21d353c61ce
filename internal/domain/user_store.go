package domain

import "context"

// UserStore is the document store holding LocalUser records with their
// embedded linked account. It persists token fields exactly as given.
//
// Find methods return nil, nil when no record matches.
type UserStore interface {
	UpsertUser(ctx context.Context, username, email string) error
	FindByUsername(ctx context.Context, username string) (*LocalUser, error)
	FindByEmail(ctx context.Context, email string) (*LocalUser, error)
	SetLinkedAccount(ctx context.Context, username string, account LinkedAccount) error
	UnsetLinkedAccount(ctx context.Context, username string) error
}
