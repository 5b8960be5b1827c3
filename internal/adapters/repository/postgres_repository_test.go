package repository

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/infrastructure/config"
	"github.com/assetmanager/core/internal/infrastructure/database"
)

// testDatabaseConfig reads TEST_DB_* variables; tests are skipped without TEST_DB_HOST.
func testDatabaseConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	return config.DatabaseConfig{
		Host:         host,
		Port:         port,
		Name:         os.Getenv("TEST_DB_NAME"),
		User:         os.Getenv("TEST_DB_USER"),
		Password:     os.Getenv("TEST_DB_PASSWORD"),
		SSLMode:      "disable",
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}
}

func TestDatabaseNew_Unreachable(t *testing.T) {
	_, err := database.New(config.DatabaseConfig{
		Host:    "127.0.0.1",
		Port:    1,
		Name:    "none",
		User:    "none",
		SSLMode: "disable",
	})
	assert.Error(t, err)
}

func TestPostgresRepository_RoundTrip(t *testing.T) {
	cfg := &config.Config{
		Storage:  config.StorageConfig{Driver: config.DriverPostgres, DocumentName: "test-" + t.Name()},
		Database: testDatabaseConfig(t),
	}
	ctx := context.Background()

	repo, err := New(cfg)
	require.NoError(t, err)
	defer repo.Close()
	defer repo.Delete(ctx)

	require.NoError(t, repo.Delete(ctx))
	_, err = repo.Load(ctx)
	assert.True(t, errors.Is(err, entities.ErrDocumentNotFound))

	formatted := entities.Document("{\n  \"zeta\": 1,\n  \"alpha\": \"épée\"\n}")
	require.NoError(t, repo.Save(ctx, formatted))
	require.NoError(t, repo.Save(ctx, formatted))

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(formatted), string(doc))
	assert.NoError(t, repo.HealthCheck(ctx))
}
