package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/johnayoung/legal-consensus/internal/output"
)

// Schema creates the audit table.
const Schema = `CREATE TABLE IF NOT EXISTS verification_audit (
	id               UUID PRIMARY KEY,
	created_at       TIMESTAMPTZ NOT NULL,
	question         TEXT NOT NULL,
	consensus_level  TEXT NOT NULL,
	outcome          TEXT NOT NULL,
	succeeded_count  INTEGER NOT NULL,
	shared_citations JSONB NOT NULL,
	result           JSONB NOT NULL
)`

const insertRecord = `INSERT INTO verification_audit
	(id, created_at, question, consensus_level, outcome, succeeded_count, shared_citations, result)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink stores records in the verification_audit table.
type PostgresSink struct {
	db   execer
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool, verifies it and ensures the schema exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresSink{db: pool, pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newPostgresSink(db execer) *PostgresSink {
	return &PostgresSink{db: db}
}

func (p *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the audit table if needed.
func (p *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// Save inserts one record. Saving the same ID twice is a no-op.
func (p *PostgresSink) Save(ctx context.Context, r *output.Result) error {
	resultJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	sharedJSON, err := json.Marshal(r.Consensus.Shared)
	if err != nil {
		return fmt.Errorf("failed to marshal shared citations: %w", err)
	}

	_, err = p.db.Exec(ctx, insertRecord,
		r.ID, r.Timestamp, r.Question,
		string(r.Consensus.Level), string(r.Outcome), r.Consensus.SucceededCount,
		sharedJSON, resultJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit record %s: %w", r.ID, err)
	}
	return nil
}

// Close closes the connection pool, if this sink owns one.
func (p *PostgresSink) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
