package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps credentials in the portal_credential table so that
// several portal replicas can serve the same browser session.
type PostgresStore struct {
	db querier
}

// NewPostgresStore accepts a *pgxpool.Pool or anything exposing the same
// Exec/QueryRow methods.
func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, sessionID uuid.UUID, key string) (string, error) {
	var value string
	// Reads refresh updated_at so Prune only drops idle credentials.
	err := s.db.QueryRow(ctx,
		`UPDATE portal_credential SET updated_at = now() WHERE session_id = $1 AND key = $2 RETURNING value`,
		sessionID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credential get: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, sessionID uuid.UUID, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO portal_credential (session_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		sessionID, key, value,
	)
	if err != nil {
		return fmt.Errorf("credential set: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID uuid.UUID, key string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM portal_credential WHERE session_id = $1 AND key = $2`,
		sessionID, key,
	)
	if err != nil {
		return fmt.Errorf("credential delete: %w", err)
	}
	return nil
}

// Prune removes credentials not read or written since olderThan.
func (s *PostgresStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM portal_credential WHERE updated_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("credential prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
