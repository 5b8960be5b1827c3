package services

import (
	"context"
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/infrastructure/logger"
	"github.com/assetmanager/core/internal/infrastructure/metrics"
	"github.com/assetmanager/core/internal/ports"
)

// DocumentService handles reading and overwriting the client document
type DocumentService struct {
	repo    ports.DocumentRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
	indent  string

	mu        sync.Mutex
	lastSaved entities.Document
}

// NewDocumentService creates a new document service. indent is the unit used
// to pretty-print stored documents; m may be nil.
func NewDocumentService(repo ports.DocumentRepository, indent string, logger *logger.Logger, m *metrics.Metrics) *DocumentService {
	return &DocumentService{
		repo:    repo,
		logger:  logger.WithComponent("document"),
		metrics: m,
		indent:  indent,
	}
}

// Load returns the stored document. A missing document, a corrupted one and
// a failed read all yield entities.EmptyDocument; only the log tells them apart.
func (s *DocumentService) Load(ctx context.Context) entities.Document {
	doc, err := s.Check(ctx)
	switch {
	case err == nil:
		s.metrics.RecordLoad(metrics.ResultOK)
		return doc

	case errors.Is(err, entities.ErrDocumentNotFound):
		s.metrics.RecordLoad(metrics.ResultMissing)
		s.logger.Debugw("No document stored yet, serving empty document", "driver", s.repo.Driver())

	case errors.Is(err, entities.ErrCorruptDocument):
		s.metrics.RecordLoad(metrics.ResultCorrupt)
		s.logger.Warnw("Stored document is corrupted, serving empty document",
			"driver", s.repo.Driver(),
			"size_bytes", doc.Size(),
		)

	default:
		s.metrics.RecordLoad(metrics.ResultError)
		s.logger.Errorw("Failed to read document, serving empty document",
			"driver", s.repo.Driver(),
			"error", err,
		)
	}

	return entities.EmptyDocument
}

// Check reads the stored document without absorbing failures. A document
// that is not valid JSON is returned together with ErrCorruptDocument.
func (s *DocumentService) Check(ctx context.Context) (entities.Document, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !doc.Valid() {
		return doc, entities.ErrCorruptDocument
	}
	return doc, nil
}

// Save validates raw as JSON, pretty-prints it and overwrites the stored
// document. Invalid input leaves the stored document untouched and returns an
// error wrapping entities.ErrInvalidDocument.
func (s *DocumentService) Save(ctx context.Context, raw []byte) error {
	doc, err := entities.Parse(raw)
	if err != nil {
		s.metrics.RecordSave(metrics.ResultInvalid, 0)
		s.logger.Warnw("Rejected invalid document", "size_bytes", len(raw), "error", err)
		return err
	}

	formatted, err := doc.Format(s.indent)
	if err != nil {
		s.metrics.RecordSave(metrics.ResultInvalid, 0)
		return err
	}

	if err := s.repo.Save(ctx, formatted); err != nil {
		s.metrics.RecordSave(metrics.ResultError, 0)
		s.logger.LogDocumentEvent("save", formatted.Size(), err)
		return fmt.Errorf("failed to save document: %w", err)
	}

	s.mu.Lock()
	s.lastSaved = formatted
	s.mu.Unlock()

	s.metrics.RecordSave(metrics.ResultOK, formatted.Size())
	s.logger.LogDocumentEvent("save", formatted.Size(), nil)

	return nil
}

// Reset removes the stored document; the next Load yields an empty document
func (s *DocumentService) Reset(ctx context.Context) error {
	if err := s.repo.Delete(ctx); err != nil {
		return fmt.Errorf("failed to reset document: %w", err)
	}
	s.mu.Lock()
	s.lastSaved = nil
	s.mu.Unlock()
	s.logger.Infow("Document reset", "driver", s.repo.Driver())
	return nil
}

// SavedByServer reports whether doc is exactly what this service last wrote
func (s *DocumentService) SavedByServer(doc entities.Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved != nil && bytes.Equal(s.lastSaved, doc)
}

// HealthCheck reports whether the storage backend is usable
func (s *DocumentService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

// Driver names the storage backend
func (s *DocumentService) Driver() string {
	return s.repo.Driver()
}
