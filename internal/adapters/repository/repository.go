package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/assetmanager/core/internal/infrastructure/config"
	"github.com/assetmanager/core/internal/infrastructure/database"
	"github.com/assetmanager/core/internal/ports"
)

// New opens the document repository selected by cfg.Storage.Driver.
// The postgres schema is migrated up before the repository is returned.
func New(cfg *config.Config) (ports.DocumentRepository, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile, "":
		return NewFileRepository(cfg.Storage.DataFile), nil

	case config.DriverBolt:
		return NewBoltRepository(cfg.Storage.BoltPath, cfg.Storage.DocumentName)

	case config.DriverPostgres:
		if _, err := database.Migrate(cfg.Database, database.MigrateUp); err != nil {
			return nil, err
		}
		db, err := database.New(cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepository(db, cfg.Storage.DocumentName), nil

	case config.DriverS3:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return NewS3Repository(ctx, cfg.S3)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
