package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vitrine/catalog/internal/catalog"
	"github.com/vitrine/catalog/internal/config"
)

func TestNewDiskVariantWithSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DBDriver:      config.DBDriverSQLite,
		DatabaseURL:   filepath.Join(dir, "catalog.db"),
		StorageDriver: config.StorageDriverDisk,
		UploadDir:     filepath.Join(dir, "uploads"),
	}

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, catalog.VariantDisk, a.Service.Variant())
	assert.Equal(t, cfg.UploadDir, a.UploadDir)

	items, err := a.Service.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNewFailsOnBadSQLitePath(t *testing.T) {
	cfg := &config.Config{
		DBDriver:      config.DBDriverSQLite,
		DatabaseURL:   filepath.Join(t.TempDir(), "missing", "dir", "catalog.db"),
		StorageDriver: config.StorageDriverDisk,
		UploadDir:     t.TempDir(),
	}

	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
