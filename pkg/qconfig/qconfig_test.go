package qconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesOnlyFieldsSetInFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataDir: /var/lib/quaddb\npageSize: 4096\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/quaddb", cfg.DataDir)
	assert.Equal(t, 4096, cfg.PageSize)
	assert.Equal(t, Default().MaxCachePages, cfg.MaxCachePages)
	assert.Equal(t, Default().WALSyncMode, cfg.WALSyncMode)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadPageSize(t *testing.T) {
	cfg := Default()
	cfg.PageSize = 1000 // not a power of two
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyDataDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownSyncMode(t *testing.T) {
	cfg := Default()
	cfg.WALSyncMode = "sometimes"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveStorePoolSize(t *testing.T) {
	cfg := Default()
	cfg.StorePoolSize = 0
	assert.Error(t, cfg.Validate())
}
