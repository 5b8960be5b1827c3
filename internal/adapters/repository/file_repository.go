package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/ports"
)

const (
	dataFileMode = 0o644
	dataDirMode  = 0o755
)

// FileRepositoryImpl stores the document as a single JSON file on disk
type FileRepositoryImpl struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates a file-backed document repository
func NewFileRepository(path string) ports.DocumentRepository {
	return &FileRepositoryImpl{path: filepath.Clean(path)}
}

func (r *FileRepositoryImpl) Driver() string {
	return "file"
}

func (r *FileRepositoryImpl) Load(ctx context.Context) (entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, entities.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("read document file: %w", err)
	}

	return entities.Document(data), nil
}

// Save writes to a temporary file in the target directory and renames it
// over the document, so readers never observe a partial write.
func (r *FileRepositoryImpl) Save(ctx context.Context, doc entities.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, dataDirMode); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(doc.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, dataFileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace document file: %w", err)
	}
	committed = true

	return nil
}

func (r *FileRepositoryImpl) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove document file: %w", err)
	}
	return nil
}

// HealthCheck succeeds when the data directory exists or can still be created
func (r *FileRepositoryImpl) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(filepath.Dir(r.path))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("stat data directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("data directory %s is not a directory", filepath.Dir(r.path))
	}
	return nil
}

func (r *FileRepositoryImpl) Close() error {
	return nil
}
