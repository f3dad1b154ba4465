package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// migrationLockID serializes schema setup across summaryd replicas.
const migrationLockID = 7_264_511

// PostgresStore keeps summaries in a single table keyed by SummaryKey.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore opens dsn with the pgx driver and creates the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db, now: time.Now}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema while holding the advisory lock. Lock, DDL and
// unlock share one pinned connection because advisory locks belong to a
// session. A replica that finds the lock taken waits for it, so the table
// exists by the time NewPostgresStore returns.
func (s *PostgresStore) migrate(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			key TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS summaries_expires_at_idx ON summaries (expires_at);`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate summaries table: %w", err)
		}
	}
	return nil
}

// GetSummary returns the stored summary unless it has expired.
func (s *PostgresStore) GetSummary(ctx context.Context, key string) (string, bool, error) {
	var summary string
	err := s.db.QueryRowContext(ctx,
		`SELECT summary FROM summaries WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`,
		key, s.now()).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return summary, true, nil
}

// SetSummary upserts a summary. A zero ttl never expires.
func (s *PostgresStore) SetSummary(ctx context.Context, key, summary string, ttl time.Duration) error {
	if summary == "" {
		return nil
	}
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: s.now().Add(ttl), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries(key, summary, expires_at) VALUES($1,$2,$3)
		 ON CONFLICT (key) DO UPDATE SET summary = EXCLUDED.summary, expires_at = EXCLUDED.expires_at`,
		key, summary, expiresAt)
	return err
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
