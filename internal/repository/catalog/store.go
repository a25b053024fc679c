// Package catalog keeps document records in SQLite for backends whose
// vector store has no place for them.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kailas-cloud/evidex/internal/domain"
	domcorpus "github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/repository/catalog/migrations"
)

// Store implements corpus.DocumentStore on SQLite.
type Store struct {
	db      *sql.DB
	weights quality.Weights
}

var _ domcorpus.DocumentStore = (*Store)(nil)

// Open opens (or creates) the catalog database file and applies migrations.
func Open(path string, w quality.Weights) (*Store, error) {
	if path == "" {
		return nil, errors.New("catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	// SQLite allows one writer; serialize at the pool.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, weights: w}
	if err := s.migrate(context.Background(), migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Ping verifies the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies every NNN_*.up.sql newer than the recorded version.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(ctx, version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, version int, stmt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// Put inserts or replaces a document record.
func (s *Store) Put(ctx context.Context, doc document.Metadata) error {
	if doc.ID == "" {
		return domain.NewFieldError(metadata.FieldDocumentID, "is required")
	}
	raw, err := json.Marshal(metadata.FlattenDocument(doc))
	if err != nil {
		return fmt.Errorf("marshalling document %s: %w", doc.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, content_hash, source_path, document_type, subject_id, total_chunks, record, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			content_hash = excluded.content_hash,
			source_path = excluded.source_path,
			document_type = excluded.document_type,
			subject_id = excluded.subject_id,
			total_chunks = excluded.total_chunks,
			record = excluded.record,
			updated_at = excluded.updated_at
	`, doc.ID, doc.ContentHash, doc.SourcePath, string(doc.Classification.Type), doc.SubjectID, doc.TotalChunks, string(raw))
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns a document by id.
func (s *Store) Get(ctx context.Context, id string) (document.Metadata, error) {
	row := s.db.QueryRowContext(ctx, "SELECT record FROM documents WHERE id = ?", id)
	return s.scan(row)
}

// FindByContentHash returns the document ingested from identical text.
func (s *Store) FindByContentHash(ctx context.Context, hash string) (document.Metadata, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT record FROM documents WHERE content_hash = ? ORDER BY id LIMIT 1", hash)
	return s.scan(row)
}

// Delete removes a document record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// List returns every document ordered by id.
func (s *Store) List(ctx context.Context) ([]document.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT record FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Metadata
	for rows.Next() {
		doc, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(row scanner) (document.Metadata, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return document.Metadata{}, domain.ErrDocumentNotFound
		}
		return document.Metadata{}, fmt.Errorf("scanning document: %w", err)
	}
	var rec metadata.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return document.Metadata{}, fmt.Errorf("decoding document record: %w", err)
	}
	return metadata.UnflattenDocument(rec, s.weights)
}
