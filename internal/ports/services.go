package ports

import (
	"context"

	"github.com/assetmanager/core/internal/domain/entities"
)

// DocumentService interface for reading and overwriting the client document
type DocumentService interface {
	// Load never fails: a missing, unreadable or corrupted document is
	// reported as entities.EmptyDocument.
	Load(ctx context.Context) entities.Document
	Save(ctx context.Context, raw []byte) error
	Check(ctx context.Context) (entities.Document, error)
	Reset(ctx context.Context) error
	// SavedByServer tells the server's own writes apart from external edits
	SavedByServer(doc entities.Document) bool
	HealthCheck(ctx context.Context) error
	Driver() string
}
