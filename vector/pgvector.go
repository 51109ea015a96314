package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hubenschmidt/go-wikidex/core"
)

// PgVectorStore is a PostgreSQL-based vector store using pgvector.
type PgVectorStore struct {
	db         *sql.DB
	table      string
	vectorSize int
}

var identPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// pgIdent reduces a collection name to a safe SQL identifier.
func pgIdent(collection string) string {
	ident := identPattern.ReplaceAllString(strings.ToLower(collection), "_")
	ident = strings.Trim(ident, "_")
	if ident == "" {
		ident = "documents"
	}
	return ident
}

// NewPgVectorStore opens a pgvector-backed store for one collection.
// vectorSize is the embedding dimension the collection is created with.
func NewPgVectorStore(dsn, collection string, vectorSize int) (*PgVectorStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PgVectorStore{db: db, table: pgIdent(collection), vectorSize: vectorSize}, nil
}

// EnsureCollection creates the collection table and hnsw index when they
// do not exist. An existing collection is left untouched.
func (s *PgVectorStore) EnsureCollection(ctx context.Context) error {
	var reg sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1)`, s.table).Scan(&reg); err != nil {
		return fmt.Errorf("check collection %s: %w", s.table, err)
	}
	if reg.Valid {
		return nil
	}

	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			text_md5 TEXT NOT NULL,
			embedding vector(%d),
			metadata JSONB DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table, s.vectorSize),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)`,
			s.table, s.table),
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("create collection %s: %w", s.table, err)
		}
	}
	return nil
}

// Upsert writes the batch in one transaction: the whole batch commits or
// the call fails. created_at is the server clock at write time.
func (s *PgVectorStore) Upsert(ctx context.Context, docs []core.Document) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, text, text_md5, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			text_md5 = EXCLUDED.text_md5,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			created_at = EXCLUDED.created_at`, s.table)

	ids := make([]string, len(docs))
	for i, doc := range docs {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, doc.ID, doc.Text, doc.TextMD5,
			formatEmbedding(doc.Embedding), metadata); err != nil {
			return nil, fmt.Errorf("upsert document %q: %w", doc.ID, err)
		}
		ids[i] = doc.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return ids, nil
}

// Query runs one cosine sub-search per query, preserving input order.
func (s *PgVectorStore) Query(ctx context.Context, queries []core.Query) ([]core.QueryResult, error) {
	results := make([]core.QueryResult, len(queries))
	for i, q := range queries {
		hits, err := s.search(ctx, q)
		if err != nil {
			return nil, err
		}
		results[i] = core.QueryResult{Query: q.Query, Results: hits}
	}
	return results, nil
}

func (s *PgVectorStore) search(ctx context.Context, q core.Query) ([]core.ScoredDocument, error) {
	args := []any{formatEmbedding(q.Embedding)}
	where := filterClauses(q.Filter, &args)

	query := fmt.Sprintf(`
		SELECT id, text, text_md5, metadata, created_at, 1 - (embedding <=> $1) AS score
		FROM %s`, s.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, q.TopK)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	hits := make([]core.ScoredDocument, 0, q.TopK)
	for rows.Next() {
		var (
			hit           core.ScoredDocument
			metadataBytes []byte
			createdAt     time.Time
		)
		if err := rows.Scan(&hit.ID, &hit.Text, &hit.TextMD5, &metadataBytes, &createdAt, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &hit.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		hit.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Delete removes documents per the selector.
func (s *PgVectorStore) Delete(ctx context.Context, sel DeleteSelector) (bool, error) {
	if err := sel.Validate(); err != nil {
		return false, err
	}

	switch {
	case sel.All:
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", s.table)); err != nil {
			return false, fmt.Errorf("delete all: %w", err)
		}
	case len(sel.IDs) > 0:
		placeholders := make([]string, len(sel.IDs))
		args := make([]any, len(sel.IDs))
		for i, id := range sel.IDs {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.table, strings.Join(placeholders, ","))
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("delete by ids: %w", err)
		}
	default:
		var args []any
		where := filterClauses(sel.Filter, &args)
		query := fmt.Sprintf("DELETE FROM %s WHERE %s", s.table, strings.Join(where, " AND "))
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("delete by filter: %w", err)
		}
	}
	return true, nil
}

// Close closes the database connection.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

// filterClauses translates the metadata predicate into SQL, appending
// bind values to args and continuing its placeholder numbering.
func filterClauses(f *core.MetadataFilter, args *[]any) []string {
	if f.IsZero() {
		return nil
	}

	var clauses []string
	add := func(clause string, val any) {
		*args = append(*args, val)
		clauses = append(clauses, fmt.Sprintf(clause, len(*args)))
	}

	if f.DocumentID != "" {
		add("id = $%d", f.DocumentID)
	}
	if f.Source != "" {
		add("metadata->>'source' = $%d", f.Source)
	}
	if f.SourceID != "" {
		add("metadata->>'source_id' = $%d", f.SourceID)
	}
	if f.Author != "" {
		add("metadata->>'author' = $%d", f.Author)
	}
	if f.StartDate != "" {
		add("created_at >= $%d", f.StartDate)
	}
	if f.EndDate != "" {
		add("created_at <= $%d", f.EndDate)
	}
	return clauses
}

// formatEmbedding converts an embedding to pgvector text format: "[0.1,0.2]"
func formatEmbedding(embedding []float64) string {
	if len(embedding) == 0 {
		return ""
	}

	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
