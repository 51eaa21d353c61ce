package domain

import "context"

type LinkManager interface {
	Connect(ctx context.Context, session Session) (ConnectResult, error)
	Callback(ctx context.Context, session Session, params CallbackParams) (ConnectionStatus, error)
	Status(ctx context.Context, username string) (ConnectionStatus, error)
	Disconnect(ctx context.Context, username string) error
}
