// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/latentfs/internal/models"
	"github.com/hyperjump/latentfs/internal/vector"
)

// SQLiteStorage implements Storage using SQLite. Embeddings are stored as
// little-endian float32 blobs, metadata as JSON.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: the cluster store is the single writer, and in-memory
	// databases get a fresh schema per connection otherwise.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL,
		cluster_id TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_cluster_id ON documents(cluster_id);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertDocument inserts or replaces a document. CreatedAt is set on first
// insert; UpdatedAt is set on every call.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, text, embedding, cluster_id, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   text = excluded.text,
		   embedding = excluded.embedding,
		   cluster_id = excluded.cluster_id,
		   metadata = excluded.metadata,
		   updated_at = excluded.updated_at`,
		doc.ID, doc.Text, vector.ToBytes(doc.Embedding), nullable(doc.ClusterID),
		string(metadataJSON), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, embedding, cluster_id, metadata, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetAllDocuments returns all documents ordered by creation time, then id.
func (s *SQLiteStorage) GetAllDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, embedding, cluster_id, metadata, created_at, updated_at
		 FROM documents ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var embeddingBlob []byte
	var clusterID sql.NullString
	var metadataJSON string

	err := row.Scan(&doc.ID, &doc.Text, &embeddingBlob, &clusterID, &metadataJSON,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Embedding = vector.FromBytes(embeddingBlob)
	if clusterID.Valid {
		doc.ClusterID = clusterID.String
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
