package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/assetmanager/core/internal/adapters/repository"
	"github.com/assetmanager/core/internal/application/services"
	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/infrastructure/logger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "assetserver "+Version)
}

func TestDataCommands(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "SAVE", "data.json")
	importFile := filepath.Join(dir, "import.json")
	require.NoError(t, os.WriteFile(importFile, []byte(`{"items":[{"id":1,"name":"sword"}]}`), 0o644))

	// Nothing stored yet
	out, err := execute(t, "data", "show", "--data-file", dataFile)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", out)

	_, err = execute(t, "data", "check", "--data-file", dataFile)
	assert.True(t, errors.Is(err, entities.ErrDocumentNotFound))

	out, err = execute(t, "data", "import", importFile, "--data-file", dataFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")

	stored, err := os.ReadFile(dataFile)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"items\": [\n    {\n      \"id\": 1,\n      \"name\": \"sword\"\n    }\n  ]\n}", string(stored))

	out, err = execute(t, "data", "check", "--data-file", dataFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Document OK (file")

	out, err = execute(t, "data", "show", "--data-file", dataFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"id":1,"name":"sword"}]}`, out)

	_, err = execute(t, "data", "reset", "--data-file", dataFile)
	require.NoError(t, err)
	_, err = os.Stat(dataFile)
	assert.True(t, os.IsNotExist(err))
}

func TestDataImportRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "data.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))

	_, err := execute(t, "data", "import", bad, "--data-file", dataFile)
	assert.True(t, errors.Is(err, entities.ErrInvalidDocument))

	_, err = os.Stat(dataFile)
	assert.True(t, os.IsNotExist(err))

	_, err = execute(t, "data", "import", filepath.Join(dir, "nope.json"), "--data-file", dataFile)
	assert.Error(t, err)
}

func TestDataCheckCorruptDocument(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(dataFile, []byte(`{"half":`), 0o644))

	_, err := execute(t, "data", "check", "--data-file", dataFile)
	assert.True(t, errors.Is(err, entities.ErrCorruptDocument))

	out, err := execute(t, "data", "show", "--data-file", dataFile)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", out)
}

func TestDocumentChanged(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()

	core, logs := observer.New(zapcore.DebugLevel)
	appLogger := logger.NewFromZap(zap.New(core))
	svc := services.NewDocumentService(repository.NewFileRepository(dataFile), "  ", logger.NewNop(), nil)
	onChange := documentChanged(ctx, svc, appLogger)

	lastEntry := func() observer.LoggedEntry {
		t.Helper()
		all := logs.TakeAll()
		require.NotEmpty(t, all)
		return all[len(all)-1]
	}

	// The server's own save is not reported as an external change
	require.NoError(t, svc.Save(ctx, []byte(`{"a":1}`)))
	onChange(dataFile)
	entry := lastEntry()
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	assert.Contains(t, entry.Message, "rewritten by the server")

	require.NoError(t, os.WriteFile(dataFile, []byte(`{"edited":true}`), 0o644))
	onChange(dataFile)
	entry = lastEntry()
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "Document file changed on disk", entry.Message)
	assert.Equal(t, int64(len(`{"edited":true}`)), entry.ContextMap()["size_bytes"])

	require.NoError(t, os.WriteFile(dataFile, []byte(`{"edited":`), 0o644))
	onChange(dataFile)
	entry = lastEntry()
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, "not valid JSON")

	require.NoError(t, os.Remove(dataFile))
	onChange(dataFile)
	entry = lastEntry()
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "Document file removed", entry.Message)

	require.NoError(t, os.Mkdir(dataFile, 0o755))
	onChange(dataFile)
	entry = lastEntry()
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Contains(t, entry.Message, "could not be read")
}
