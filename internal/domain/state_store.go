package domain

import (
	"context"
	"time"
)

// StateStore keeps pending linking attempts.
//
// Consume is an atomic check-and-transition: an initiated, unexpired token
// that belongs to the session moves to consumed and is returned. Otherwise it
// fails with ErrStateNotFound, ErrStateConsumed, ErrStateExpired or
// ErrStateMismatch. An expired token moves to expired; a mismatched one is
// left untouched. Two concurrent Consume calls for the same value never both
// succeed.
type StateStore interface {
	Save(ctx context.Context, token StateToken) error
	Consume(ctx context.Context, value string, session Session, now time.Time) (StateToken, error)
}
