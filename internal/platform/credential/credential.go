// Package credential persists the bearer credential of each portal session.
//
// The portal keeps one opaque token per browser session under a fixed key.
// Backends are interchangeable: an in-process map for development, Postgres
// when several portal replicas share sessions, and Redis when credentials
// should expire on their own.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenKey is the fixed key the bearer token is stored under.
const TokenKey = "access_token"

// ErrNotFound is returned by Store.Get when no value is stored.
var ErrNotFound = errors.New("credential not found")

// Store persists string values scoped to a session.
type Store interface {
	Get(ctx context.Context, sessionID uuid.UUID, key string) (string, error)
	Set(ctx context.Context, sessionID uuid.UUID, key, value string) error
	Delete(ctx context.Context, sessionID uuid.UUID, key string) error
}

// Pruner is implemented by stores that need explicit cleanup of stale values.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// Slot is the token slot of a single session.
type Slot struct {
	store     Store
	sessionID uuid.UUID
}

func NewSlot(store Store, sessionID uuid.UUID) Slot {
	return Slot{store: store, sessionID: sessionID}
}

// Token returns the persisted token. ok is false when none is stored.
func (s Slot) Token(ctx context.Context) (token string, ok bool, err error) {
	v, err := s.store.Get(ctx, s.sessionID, TokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read credential: %w", err)
	}
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

func (s Slot) SetToken(ctx context.Context, token string) error {
	if err := s.store.Set(ctx, s.sessionID, TokenKey, token); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

func (s Slot) ClearToken(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.sessionID, TokenKey); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
