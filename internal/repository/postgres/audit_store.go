package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studio-backend/internal/audit"
	"studio-backend/internal/domain"
	"studio-backend/internal/observability"
)

// DefaultAuditDocument is the row name holding the audit log.
const DefaultAuditDocument = "audit-log"

const createAuditDocumentsTable = `
		CREATE TABLE IF NOT EXISTS audit_documents (
			name       TEXT PRIMARY KEY,
			document   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`

// AuditStore keeps the audit log as one JSONB document row.
type AuditStore struct {
	db       *sql.DB
	name     string
	now      func() time.Time
	loadStmt *sql.Stmt
	saveStmt *sql.Stmt
}

// NewAuditStore creates the audit_documents table if needed and prepares statements.
func NewAuditStore(db *sql.DB, name string) (*AuditStore, error) {
	if name == "" {
		name = DefaultAuditDocument
	}
	store := &AuditStore{db: db, name: name, now: time.Now}

	if _, err := db.Exec(createAuditDocumentsTable); err != nil {
		return nil, fmt.Errorf("failed to create audit_documents table: %w", err)
	}

	var err error
	store.loadStmt, err = db.Prepare(`SELECT document FROM audit_documents WHERE name = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare load statement: %w", err)
	}

	store.saveStmt, err = db.Prepare(`
		INSERT INTO audit_documents (name, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare save statement: %w", err)
	}

	return store, nil
}

func (s *AuditStore) Load(ctx context.Context) ([]domain.AuditLogEntry, error) {
	defer observeQuery("load", time.Now())

	var document []byte
	err := s.loadStmt.QueryRowContext(ctx, s.name).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load audit document: %w", err)
	}

	return audit.DecodeDocument(document)
}

func (s *AuditStore) Save(ctx context.Context, entries []domain.AuditLogEntry) error {
	defer observeQuery("save", time.Now())

	document, err := audit.EncodeDocument(entries)
	if err != nil {
		return err
	}

	if _, err := s.saveStmt.ExecContext(ctx, s.name, string(document), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save audit document: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *AuditStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the prepared statements. The *sql.DB is owned by the caller.
func (s *AuditStore) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.loadStmt, s.saveStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func observeQuery(operation string, start time.Time) {
	observability.DBQueryDuration.WithLabelValues(operation, "audit_documents").Observe(time.Since(start).Seconds())
}
