package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hubenschmidt/go-wikidex/core"
)

// SQLiteStore is a single-file vector store. Vectors are stored as JSON
// and ranked brute-force in Go, which is fine for the collection sizes
// an embedded deployment holds.
type SQLiteStore struct {
	db         *sql.DB
	table      string
	vectorSize int
}

// NewSQLiteStore opens (creating directories as needed) a sqlite-backed
// store for one collection.
func NewSQLiteStore(path, collection string, vectorSize int) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return &SQLiteStore{db: db, table: pgIdent(collection), vectorSize: vectorSize}, nil
}

// EnsureCollection creates the collection table when missing.
func (s *SQLiteStore) EnsureCollection(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			text_md5 TEXT NOT NULL,
			embedding TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.table, err)
	}
	return nil
}

// Upsert writes the batch in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, docs []core.Document) ([]string, error) {
	for _, doc := range docs {
		if len(doc.Embedding) != s.vectorSize {
			return nil, fmt.Errorf("upsert %q: embedding size %d, collection expects %d",
				doc.ID, len(doc.Embedding), s.vectorSize)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (id, text, text_md5, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, s.table)

	now := time.Now().UTC().Format(time.RFC3339)
	ids := make([]string, len(docs))
	for i, doc := range docs {
		embedding, err := json.Marshal(doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("marshal embedding: %w", err)
		}
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, doc.ID, doc.Text, doc.TextMD5,
			string(embedding), string(metadata), now); err != nil {
			return nil, fmt.Errorf("upsert document %q: %w", doc.ID, err)
		}
		ids[i] = doc.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return ids, nil
}

// Query loads the collection and ranks per query in Go.
func (s *SQLiteStore) Query(ctx context.Context, queries []core.Query) ([]core.QueryResult, error) {
	candidates, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]core.QueryResult, len(queries))
	for i, q := range queries {
		results[i] = core.QueryResult{Query: q.Query, Results: rank(candidates, q)}
	}
	return results, nil
}

func (s *SQLiteStore) load(ctx context.Context) ([]point, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, text, text_md5, embedding, metadata, created_at FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	defer rows.Close()

	var points []point
	for rows.Next() {
		var (
			p                   point
			embedding, metadata string
		)
		if err := rows.Scan(&p.ID, &p.Text, &p.TextMD5, &embedding, &metadata, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &p.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Delete removes documents per the selector.
func (s *SQLiteStore) Delete(ctx context.Context, sel DeleteSelector) (bool, error) {
	if err := sel.Validate(); err != nil {
		return false, err
	}

	switch {
	case sel.All:
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
			return false, fmt.Errorf("delete all: %w", err)
		}
	case len(sel.IDs) > 0:
		if err := s.deleteIDs(ctx, sel.IDs); err != nil {
			return false, err
		}
	default:
		points, err := s.load(ctx)
		if err != nil {
			return false, err
		}
		var ids []string
		for _, p := range points {
			if matchesFilter(p, sel.Filter) {
				ids = append(ids, p.ID)
			}
		}
		if err := s.deleteIDs(ctx, ids); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *SQLiteStore) deleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.table, strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete by ids: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
