// Package store provides the profile document store and verification
// history store, backed by PostgreSQL or process memory.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

// DBPool is the subset of *pgxpool.Pool the store uses.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const (
	DefaultDocumentsTable = "documents"
	DefaultHistoryTable   = "verify_history"
)

// PostgresOptions configures the PostgreSQL store.
type PostgresOptions struct {
	ConnString     string
	DocumentsTable string // default "documents"
	HistoryTable   string // default "verify_history"
}

// Postgres keeps profile documents as JSONB rows keyed by (collection, id)
// and verification history in its own table.
type Postgres struct {
	pool      DBPool
	documents string
	history   string
}

var (
	_ ports.DocumentStore = (*Postgres)(nil)
	_ ports.HistoryStore  = (*Postgres)(nil)
)

// NewPostgres connects a pool.
func NewPostgres(ctx context.Context, opts PostgresOptions) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewPostgresWithPool(pool, opts.DocumentsTable, opts.HistoryTable), nil
}

// NewPostgresWithPool wraps an existing pool. Used with pgxmock in tests.
func NewPostgresWithPool(pool DBPool, documentsTable, historyTable string) *Postgres {
	if documentsTable == "" {
		documentsTable = DefaultDocumentsTable
	}
	if historyTable == "" {
		historyTable = DefaultHistoryTable
	}
	return &Postgres{pool: pool, documents: documentsTable, history: historyTable}
}

// InitSchema creates both tables if missing.
func (s *Postgres) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data JSONB NOT NULL,
			PRIMARY KEY (collection, id)
		);
		CREATE TABLE IF NOT EXISTS %[2]s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			university TEXT NOT NULL,
			verified BOOLEAN NOT NULL,
			score INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[2]s_created_at ON %[2]s (created_at DESC);
	`, s.documents, s.history)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Postgres) Close() { s.pool.Close() }

// PutDocument inserts or replaces a document.
func (s *Postgres) PutDocument(ctx context.Context, collection string, doc domain.Document) error {
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return ports.NewStoreError(collection, "PutDocument", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (collection, id, data) VALUES ($1, $2, $3) `+
		`ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`, s.documents)
	if _, err := s.pool.Exec(ctx, query, collection, doc.ID, data); err != nil {
		return ports.NewStoreError(collection, "PutDocument", err)
	}
	return nil
}

// Query matches filters against top-level JSON fields by text equality.
func (s *Postgres) Query(ctx context.Context, collection string, filters []ports.Filter, limit int) ([]domain.Document, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, data FROM %s WHERE collection = $1", s.documents)
	args := []any{collection}
	for _, f := range filters {
		fmt.Fprintf(&b, " AND data->>$%d = $%d", len(args)+1, len(args)+2)
		args = append(args, f.Field, f.Value)
	}
	fmt.Fprintf(&b, " ORDER BY id LIMIT $%d", len(args)+1)
	args = append(args, limit)

	docs, err := s.queryDocuments(ctx, b.String(), args...)
	if err != nil {
		return nil, ports.NewStoreError(collection, "Query", err)
	}
	return docs, nil
}

// Scan returns up to limit documents ordered by id.
func (s *Postgres) Scan(ctx context.Context, collection string, limit int) ([]domain.Document, error) {
	query := fmt.Sprintf("SELECT id, data FROM %s WHERE collection = $1 ORDER BY id LIMIT $2", s.documents)
	docs, err := s.queryDocuments(ctx, query, collection, limit)
	if err != nil {
		return nil, ports.NewStoreError(collection, "Scan", err)
	}
	return docs, nil
}

func (s *Postgres) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc := domain.Document{ID: id}
		if err := json.Unmarshal(data, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Record appends a history entry.
func (s *Postgres) Record(ctx context.Context, entry domain.HistoryEntry) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, name, university, verified, score, created_at) `+
		`VALUES ($1, $2, $3, $4, $5, $6)`, s.history)
	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.Name, entry.University, entry.Verified, entry.Score, entry.CreatedAt)
	if err != nil {
		return ports.NewStoreError(s.history, "Record", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (s *Postgres) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	query := fmt.Sprintf(`SELECT id, name, university, verified, score, created_at FROM %s `+
		`ORDER BY created_at DESC LIMIT $1`, s.history)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, ports.NewStoreError(s.history, "Recent", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.University, &e.Verified, &e.Score, &e.CreatedAt); err != nil {
			return nil, ports.NewStoreError(s.history, "Recent", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewStoreError(s.history, "Recent", err)
	}
	return entries, nil
}
