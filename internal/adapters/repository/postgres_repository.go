package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/infrastructure/database"
	"github.com/assetmanager/core/internal/ports"
)

// PostgresRepositoryImpl stores the document as one row of the documents table.
// The column type is json, not jsonb, so the stored text keeps its layout.
type PostgresRepositoryImpl struct {
	db   *database.DB
	name string
}

// NewPostgresRepository creates a postgres-backed document repository
func NewPostgresRepository(db *database.DB, name string) ports.DocumentRepository {
	return &PostgresRepositoryImpl{db: db, name: name}
}

func (r *PostgresRepositoryImpl) Driver() string {
	return "postgres"
}

func (r *PostgresRepositoryImpl) Load(ctx context.Context) (entities.Document, error) {
	query := `SELECT body::text FROM documents WHERE name = $1`

	var body string
	err := r.db.DB.GetContext(ctx, &body, query, r.name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return entities.Document(body), nil
}

func (r *PostgresRepositoryImpl) Save(ctx context.Context, doc entities.Document) error {
	query := `
		INSERT INTO documents (name, body, updated_at)
		VALUES ($1, $2::json, NOW())
		ON CONFLICT (name) DO UPDATE
		SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.DB.ExecContext(ctx, query, r.name, string(doc)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (r *PostgresRepositoryImpl) Delete(ctx context.Context) error {
	query := `DELETE FROM documents WHERE name = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, r.name); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (r *PostgresRepositoryImpl) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

func (r *PostgresRepositoryImpl) Close() error {
	return r.db.Close()
}
