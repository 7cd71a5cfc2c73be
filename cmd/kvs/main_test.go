package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runArgs(args ...string) result {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return result{code, stdout.String(), stderr.String()}
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.db")

	r := runArgs("-path", path, "set", "a", "1")
	assert.Equal(t, 0, r.code, "stderr: %s", r.stderr)
	r = runArgs("-path", path, "set", "b", "2")
	assert.Equal(t, 0, r.code)

	r = runArgs("-path", path, "get", "a")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "1\n", r.stdout)

	r = runArgs("-path", path, "get", "missing")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "Key not found\n", r.stdout)

	r = runArgs("-path", path, "rm", "a")
	assert.Equal(t, 0, r.code)
	r = runArgs("-path", path, "rm", "a")
	assert.Equal(t, 1, r.code)
	assert.Equal(t, "Key not found\n", r.stdout)

	r = runArgs("-path", path, "keys")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "b\n", r.stdout)

	r = runArgs("-path", path, "stats")
	assert.Equal(t, 0, r.code)
	assert.True(t, strings.Contains(r.stdout, "records: 3\n"), "got %s", r.stdout)

	r = runArgs("-path", path, "verify")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "ok: 3 records, 1 keys\n", r.stdout)

	r = runArgs("-path", path, "dump")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, 3, strings.Count(r.stdout, "\n"))
	assert.True(t, strings.HasPrefix(r.stdout, `0 {"key":"a","value":"1","op":"set"}`), "got %s", r.stdout)
}

func TestBackupRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.db")
	archive := filepath.Join(dir, "backup.db.zst")
	restored := filepath.Join(dir, "restored.db")

	assert.Equal(t, 0, runArgs("-path", path, "set", "k", "v").code)
	r := runArgs("-path", path, "backup", archive)
	assert.Equal(t, 0, r.code, "stderr: %s", r.stderr)
	r = runArgs("-path", restored, "restore", archive)
	assert.Equal(t, 0, r.code, "stderr: %s", r.stderr)
	r = runArgs("-path", restored, "get", "k")
	assert.Equal(t, "v\n", r.stdout)

	// refuses to overwrite
	r = runArgs("-path", restored, "restore", archive)
	assert.Equal(t, 1, r.code)
}

func TestLevelDBEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ldb")
	assert.Equal(t, 0, runArgs("-engine", "leveldb", "-path", path, "set", "k", "v").code)
	r := runArgs("-engine", "leveldb", "-path", path, "get", "k")
	assert.Equal(t, "v\n", r.stdout)
	r = runArgs("-engine", "leveldb", "-path", path, "keys")
	assert.Equal(t, "k\n", r.stdout)
	r = runArgs("-engine", "leveldb", "-path", path, "dump")
	assert.Equal(t, 1, r.code)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kvs.yaml")
	dbPath := filepath.Join(dir, "from-config.db")
	s := "store:\n  path: " + dbPath + "\n  no_sync: true\n"
	assert.NoError(t, os.WriteFile(cfgPath, []byte(s), 0644))

	assert.Equal(t, 0, runArgs("-config", cfgPath, "set", "k", "v").code)
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)

	r := runArgs("-config", filepath.Join(dir, "missing.yaml"), "keys")
	assert.Equal(t, 1, r.code)
}

func TestBadUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.db")
	for _, args := range [][]string{
		{},
		{"-path", path, "nope"},
		{"-path", path, "set", "k"},
		{"-path", path, "get"},
		{"-engine", "bolt", "-path", path, "keys"},
		{"-unknown-flag"},
		{"-path", path, "upload", "a.gz", "a.gz"},
	} {
		r := runArgs(args...)
		assert.Equal(t, 1, r.code, "args: %v", args)
		assert.NotEqual(t, "", r.stderr, "args: %v", args)
	}
	assert.Equal(t, 0, runArgs("-h").code)
}

func TestCorruptLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.db")
	assert.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0644))
	r := runArgs("-path", path, "get", "k")
	assert.Equal(t, 1, r.code)
	assert.True(t, strings.Contains(r.stderr, "offset 0"), "got %s", r.stderr)
	r = runArgs("-path", path, "verify")
	assert.Equal(t, 1, r.code)
}
