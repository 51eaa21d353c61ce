package domain

import "context"

type TokenManager interface {
	// GetValidAccessToken returns a usable access token for the account,
	// refreshing and persisting it first when the cached one is stale.
	GetValidAccessToken(ctx context.Context, username string, account LinkedAccount) (string, LinkedAccount, error)
}
