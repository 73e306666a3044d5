// Package local is the embedded backend of the document store: SQLite holds
// the documents and their vectors, Bleve holds the full-text index.
// It needs no server and is meant for development and single-node installs.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
)

const memoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_key     TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	body        TEXT NOT NULL,
	embedding   BLOB,
	indexed_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_indexed_at ON documents(indexed_at);
`

// Config locates the on-disk files. An empty or ":memory:" Path keeps everything in memory.
type Config struct {
	Path      string
	IndexPath string
}

// Store implements the document store on SQLite and Bleve.
type Store struct {
	db   *sql.DB
	text bleve.Index
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp indexed_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates the database and the text index.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	inMemory := cfg.Path == "" || cfg.Path == memoryPath

	dsn := cfg.Path
	if inMemory {
		dsn = memoryPath
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: writes are serialized and an in-memory database stays alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	var text bleve.Index
	if inMemory || cfg.IndexPath == "" {
		text, err = bleve.NewMemOnly(textMapping())
	} else {
		text, err = openTextIndex(cfg.IndexPath)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, text: text, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close releases the database and the text index.
func (s *Store) Close() error {
	return errors.Join(s.text.Close(), s.db.Close())
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// UpsertDocuments writes docs in one transaction, then indexes their text.
// indexed_at is stamped with the current time.
func (s *Store) UpsertDocuments(ctx context.Context, docs []document.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidDocument, docs[i].Key(), err)
		}
	}

	indexedAt := s.now().UnixMilli()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (doc_key, source_type, body, embedding, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_key) DO UPDATE SET
			source_type = excluded.source_type,
			body        = excluded.body,
			embedding   = excluded.embedding,
			indexed_at  = excluded.indexed_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range docs {
		d := &docs[i]
		body, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", d.Key(), err)
		}
		var vec []byte
		if len(d.Embedding) > 0 {
			vec = encodeVector(d.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, d.Key(), string(d.SourceType), string(body), vec, indexedAt); err != nil {
			return fmt.Errorf("upsert %s: %w", d.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return s.indexText(docs)
}

// GetDocument returns one document, including its embedding.
func (s *Store) GetDocument(ctx context.Context, t document.SourceType, sourceID string) (document.SearchDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT body, embedding, indexed_at FROM documents WHERE doc_key = ?`, document.Key(t, sourceID))
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return document.SearchDocument{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return document.SearchDocument{}, err
	}
	return d, nil
}

// DeleteDocument removes one document.
func (s *Store) DeleteDocument(ctx context.Context, t document.SourceType, sourceID string) error {
	key := document.Key(t, sourceID)
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDocumentNotFound
	}
	return s.unindexText([]string{key})
}

// DeleteStaleDocuments removes every document with indexed_at strictly before cutoff.
// When types are given only documents of those source types are considered.
func (s *Store) DeleteStaleDocuments(ctx context.Context, cutoff time.Time, types ...document.SourceType) (int, error) {
	q := `DELETE FROM documents WHERE indexed_at < ?`
	args := []any{cutoff.UnixMilli()}
	if len(types) > 0 {
		q += ` AND source_type IN (?` + strings.Repeat(", ?", len(types)-1) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	rows, err := s.db.QueryContext(ctx, q+` RETURNING doc_key`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete stale: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return 0, fmt.Errorf("scan stale key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("delete stale: %w", err)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("delete stale: %w", err)
	}

	if err := s.unindexText(keys); err != nil {
		return len(keys), err
	}
	return len(keys), nil
}

// Count returns how many documents match f.
func (s *Store) Count(ctx context.Context, f filter.Filters) (int, error) {
	if f.IsEmpty() {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
			return 0, fmt.Errorf("count: %w", err)
		}
		return n, nil
	}

	docs, err := s.scan(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// scan loads every document matching f, keyed by document key.
func (s *Store) scan(ctx context.Context, f filter.Filters) (map[string]document.SearchDocument, error) {
	q := `SELECT body, embedding, indexed_at FROM documents`
	var args []any
	if f.SourceType != nil {
		q += ` WHERE source_type = ?`
		args = append(args, string(*f.SourceType))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]document.SearchDocument)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if f.Matches(&d) {
			out[d.Key()] = d
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (document.SearchDocument, error) {
	var (
		body      string
		vec       []byte
		indexedAt int64
	)
	if err := r.Scan(&body, &vec, &indexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return document.SearchDocument{}, err
		}
		return document.SearchDocument{}, fmt.Errorf("scan row: %w", err)
	}

	var d document.SearchDocument
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return document.SearchDocument{}, fmt.Errorf("decode document: %w", err)
	}
	if len(vec) > 0 {
		v, err := decodeVector(vec)
		if err != nil {
			return document.SearchDocument{}, fmt.Errorf("decode %s: %w", d.Key(), err)
		}
		d.Embedding = v
	}
	d.IndexedAt = time.UnixMilli(indexedAt).UTC()
	return d, nil
}
