package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/kvs/kvs"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, kvs.DefaultPath, cfg.Store.Path)
	assert.Equal(t, EngineLog, cfg.Store.Engine)
	assert.False(t, cfg.Store.NoSync)
	assert.NoError(t, cfg.Validate())

	cfg, err := Parse(nil)
	assert.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig(t *testing.T) {
	s := `
store:
  path: data/my.db
  engine: leveldb
  no_sync: true
logging:
  dir: logs
  verbose: true
remote:
  endpoint: localhost:9000
  access: key
  secret: secret
  bucket: backups
  insecure: true
`
	path := filepath.Join(t.TempDir(), "kvs.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(s), 0644))
	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "data/my.db", cfg.Store.Path)
	assert.Equal(t, EngineLevelDB, cfg.Store.Engine)
	assert.True(t, cfg.Store.NoSync)
	assert.Equal(t, "logs", cfg.Logging.Dir)
	assert.True(t, cfg.Logging.Verbose)

	rc := cfg.Remote.Backup()
	assert.NoError(t, rc.Validate())
	assert.Equal(t, "backups", rc.Bucket)
	assert.True(t, rc.Insecure)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("store: [1, 2"))
	assert.Error(t, err)

	_, err = Parse([]byte("store:\n  engine: bolt\n"))
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bolt"), "got %v", err)

	// remote is optional until used
	cfg, err := Parse([]byte("remote:\n  bucket: b\n"))
	assert.NoError(t, err)
	assert.Error(t, cfg.Remote.Backup().Validate())
}
