package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore persists documents and chunks in Postgres with pgvector.
type PostgresStore struct {
	db        *sql.DB
	dimension int
}

// NewPostgres opens the database and runs migrations. dimension fixes the
// width of the vector column; writes with any other width are rejected.
func NewPostgres(dsn string, dimension int) (*PostgresStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db, dimension: dimension}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps concurrent service starts from racing migrations.
	const lockID = 264809271

	var acquired bool
	if err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// Another service is running migrations; wait briefly and skip.
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			status TEXT NOT NULL,
			processing_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_at TIMESTAMPTZ
		);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			chunk_index INT NOT NULL,
			chunk_text TEXT NOT NULL,
			chunk_size INT NOT NULL,
			embedding vector(%d),
			page_number INT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (document_id, chunk_index)
		);`, s.dimension),
		`CREATE INDEX IF NOT EXISTS document_chunks_user_idx ON document_chunks (user_id);`,
		`CREATE INDEX IF NOT EXISTS document_chunks_document_idx ON document_chunks (document_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
		ON document_chunks USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, userID, filename string) (Document, error) {
	doc := Document{
		ID:        uuid.New(),
		UserID:    userID,
		Filename:  filename,
		Status:    StatusUploaded,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(id, user_id, filename, status) VALUES($1,$2,$3,$4)`,
		doc.ID, doc.UserID, doc.Filename, doc.Status)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	var doc Document
	var procErr sql.NullString
	var processedAt sql.NullTime
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, filename, status, processing_error, created_at, processed_at
		FROM documents WHERE id=$1`, id)
	err := row.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.Status, &procErr, &doc.CreatedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.Error = procErr.String
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}
	return doc, nil
}

func (s *PostgresStore) AcquireProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status=$1, processing_error=NULL
		WHERE id=$2 AND status IN ($3, $4, $5)`,
		StatusProcessing, id, StatusUploaded, StatusFailed, StatusCompleted)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, StatusCompleted, "")
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	return s.setStatus(ctx, id, StatusFailed, cause)
}

func (s *PostgresStore) setStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, cause string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status=$1, processing_error=NULLIF($2, ''), processed_at=now()
		WHERE id=$3`,
		status, cause, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ReplaceChunks(ctx context.Context, docID uuid.UUID, chunks []Chunk) ([]Chunk, error) {
	for _, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return nil, fmt.Errorf("chunk %d: %w: got %d, want %d", c.Index, ErrDimensionMismatch, len(c.Embedding), s.dimension)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id=$1`, docID); err != nil {
		return nil, err
	}

	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.DocumentID = docID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO document_chunks(id, document_id, user_id, chunk_index, chunk_text, chunk_size, embedding, page_number)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			c.ID, c.DocumentID, c.UserID, c.Index, c.Text, c.Size, pgvector.NewVector(c.Embedding), c.PageNumber)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpsertChunk(ctx context.Context, chunk Chunk) error {
	if len(chunk.Embedding) != 0 && len(chunk.Embedding) != s.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(chunk.Embedding), s.dimension)
	}
	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}
	var embedding any
	if len(chunk.Embedding) > 0 {
		embedding = pgvector.NewVector(chunk.Embedding)
	}
	// DO NOTHING keeps the operation idempotent and the embedding immutable
	// once set.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_chunks(id, document_id, user_id, chunk_index, chunk_text, chunk_size, embedding, page_number)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING`,
		chunk.ID, chunk.DocumentID, chunk.UserID, chunk.Index, chunk.Text, chunk.Size, embedding, chunk.PageNumber)
	return err
}

func (s *PostgresStore) ListChunks(ctx context.Context, docID uuid.UUID) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, chunk_index, chunk_text, chunk_size, page_number, created_at
		FROM document_chunks WHERE document_id=$1 ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		c := Chunk{DocumentID: docID}
		var page sql.NullInt64
		if err := rows.Scan(&c.ID, &c.UserID, &c.Index, &c.Text, &c.Size, &page, &c.CreatedAt); err != nil {
			return nil, err
		}
		if page.Valid {
			p := int(page.Int64)
			c.PageNumber = &p
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Search(ctx context.Context, params SearchParams) ([]SearchResult, error) {
	if len(params.Vector) != s.dimension {
		return nil, fmt.Errorf("query vector: %w: got %d, want %d", ErrDimensionMismatch, len(params.Vector), s.dimension)
	}
	if params.TopK <= 0 {
		params.TopK = 5
	}
	queryVec := pgvector.NewVector(params.Vector)

	// Candidates are scoped to the owner (and filter) BEFORE ranking, ranked
	// by cosine distance with chunk id as the stable tie-break, and limited
	// to top-k. The threshold is applied afterwards, so fewer than top-k
	// rows may come back. This order of operations is a compatibility
	// requirement; do not fold the threshold into the WHERE clause.
	var rows *sql.Rows
	var err error
	if len(params.DocumentIDs) > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, document_id, user_id, chunk_index, chunk_text, chunk_size, page_number,
				1 - (embedding <=> $1) AS similarity
			FROM document_chunks
			WHERE user_id = $2 AND embedding IS NOT NULL AND document_id = ANY($3::uuid[])
			ORDER BY embedding <=> $1, id
			LIMIT $4`,
			queryVec, params.UserID, pq.Array(uuidStrings(params.DocumentIDs)), params.TopK)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, document_id, user_id, chunk_index, chunk_text, chunk_size, page_number,
				1 - (embedding <=> $1) AS similarity
			FROM document_chunks
			WHERE user_id = $2 AND embedding IS NOT NULL
			ORDER BY embedding <=> $1, id
			LIMIT $3`,
			queryVec, params.UserID, params.TopK)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var page sql.NullInt64
		if err := rows.Scan(&r.Chunk.ID, &r.Chunk.DocumentID, &r.Chunk.UserID, &r.Chunk.Index,
			&r.Chunk.Text, &r.Chunk.Size, &page, &r.Score); err != nil {
			return nil, err
		}
		if page.Valid {
			p := int(page.Int64)
			r.Chunk.PageNumber = &p
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return FilterByThreshold(results, params.Threshold), nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// FilterByThreshold drops ranked results scoring below threshold, preserving
// order. It runs after the top-k limit, never before.
func FilterByThreshold(results []SearchResult, threshold float64) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
