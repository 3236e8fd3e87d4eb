package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "toughpos.yml")
	content := `
system:
  workdir: ` + dir + `
  location: UTC
web:
  port: 8088
database:
  type: sqlite
  name: pos.db
pos:
  low_stock_threshold: 7
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o644))

	t.Setenv("TOUGHPOS_WEB_PORT", "9099")
	t.Setenv("TOUGHPOS_DB_DEBUG", "true")

	cfg := LoadConfig(cfile)
	assert.Equal(t, dir, cfg.System.Workdir)
	assert.Equal(t, "UTC", cfg.System.Location)
	assert.Equal(t, 9099, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Database.Debug)
	assert.Equal(t, 7, cfg.Pos.LowStockThreshold)
	// untouched sections keep defaults
	assert.Equal(t, DefaultAppConfig.Pos.MaxPageSize, cfg.Pos.MaxPageSize)
	assert.DirExists(t, cfg.GetUploadDir())
}

func TestLoadConfigIgnoresBadEnvInt(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOUGHPOS_SYSTEM_WORKER_DIR", dir)
	t.Setenv("TOUGHPOS_WEB_PORT", "not-a-port")
	cfg := LoadConfig(filepath.Join(dir, "missing.yml"))
	assert.Equal(t, DefaultAppConfig.Web.Port, cfg.Web.Port)
	assert.Equal(t, dir, cfg.System.Workdir)
}
