package ports

import (
	"context"

	"github.com/assetmanager/core/internal/domain/entities"
)

// DocumentRepository defines the interface for document persistence.
// Load returns entities.ErrDocumentNotFound when nothing has been stored yet.
type DocumentRepository interface {
	Load(ctx context.Context) (entities.Document, error)
	Save(ctx context.Context, doc entities.Document) error
	Delete(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Driver() string
	Close() error
}
