package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/thought"
)

// PostgresStore archives thought state transitions into PostgreSQL. It
// implements the engine's observer interface: every changed thought is
// upserted as a JSONB document keyed by id, deletions are removed. The
// archive is append-from-deltas, so it reflects the last synced state
// even if the process dies between snapshots.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects a pgx pool and verifies it.
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("PostgreSQL connected")
	return &PostgresStore{db: pool, logger: logger}, nil
}

// EnsureSchema creates the archive table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS thoughts (
			id          TEXT PRIMARY KEY,
			root_id     TEXT NOT NULL,
			kind        TEXT NOT NULL,
			status      TEXT NOT NULL,
			doc         JSONB NOT NULL,
			modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure thoughts table: %w", err)
	}
	_, err = p.db.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS thoughts_root_idx ON thoughts (root_id);
		CREATE INDEX IF NOT EXISTS thoughts_status_idx ON thoughts (status)`)
	if err != nil {
		return fmt.Errorf("ensure thoughts indexes: %w", err)
	}
	return nil
}

// SyncThoughts applies one delta batch to the archive.
func (p *PostgresStore) SyncThoughts(ctx context.Context, changed []*thought.Thought, deleted []string) error {
	for _, t := range changed {
		doc, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal thought %s: %w", t.ID, err)
		}
		_, err = p.db.Exec(ctx, `
			INSERT INTO thoughts (id, root_id, kind, status, doc, modified_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (id)
			DO UPDATE SET root_id = $2, kind = $3, status = $4, doc = $5, modified_at = now()`,
			t.ID, t.Metadata.RootID, string(t.Kind), string(t.Status), doc,
		)
		if err != nil {
			return fmt.Errorf("archive thought %s: %w", t.ID, err)
		}
	}
	for _, id := range deleted {
		if _, err := p.db.Exec(ctx, `DELETE FROM thoughts WHERE id = $1`, id); err != nil {
			return fmt.Errorf("unarchive thought %s: %w", id, err)
		}
	}
	p.logger.Debug("archive synced",
		zap.Int("changed", len(changed)),
		zap.Int("deleted", len(deleted)))
	return nil
}

// LoadByStatus returns archived thoughts in the given status.
func (p *PostgresStore) LoadByStatus(ctx context.Context, status thought.Status) ([]*thought.Thought, error) {
	rows, err := p.db.Query(ctx,
		`SELECT doc FROM thoughts WHERE status = $1 ORDER BY modified_at ASC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("load thoughts: %w", err)
	}
	defer rows.Close()

	var out []*thought.Thought
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan thought: %w", err)
		}
		var t thought.Thought
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("decode thought: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.db.Close()
}
