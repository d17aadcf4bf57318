// Package storage defines the persistence interface for documents.
package storage

import (
	"context"

	"github.com/hyperjump/latentfs/internal/models"
)

// Storage defines durable document persistence. The cluster store is the only
// writer; the backing implementation needs no cross-writer coordination.
type Storage interface {
	UpsertDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetAllDocuments(ctx context.Context) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	CountDocuments(ctx context.Context) (int64, error)
	Close() error
}
