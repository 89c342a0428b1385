package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowmap/db"
)

func setupDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cli.db")
	d, err := db.Open(ctx, db.Config{Driver: "sqlite", Database: path})
	require.NoError(t, err)
	defer d.Close()
	for _, stmt := range []string{
		"CREATE TABLE orgs (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, org_id INTEGER REFERENCES orgs(id), team_id INTEGER)",
		"INSERT INTO orgs (name) VALUES ('Musketeers')",
		"INSERT INTO users (name, org_id) VALUES ('Aramis', 1)",
	} {
		_, err := d.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Columns(t *testing.T) {
	path := setupDB(t)
	code, out, errOut := runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "columns", "users")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Column")
	assert.Contains(t, out, "Primary Key")
	assert.Contains(t, out, "org_id")
	assert.Contains(t, out, "INTEGER")

	code, _, errOut = runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "columns", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "has no columns")
}

func TestRun_Get(t *testing.T) {
	path := setupDB(t)
	code, out, errOut := runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "get", "users", "1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Aramis")
	assert.Contains(t, out, "team_id  NULL")

	code, _, errOut = runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "get", "users", "42")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not found")

	code, _, _ = runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "get", "users", "abc")
	assert.Equal(t, 2, code)
}

func TestRun_Candidates(t *testing.T) {
	path := setupDB(t)
	code, out, errOut := runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "candidates", "users", "-plural")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "org_id -> orgs(id)\nteam_id -> teams(id)\n", out)
}

func TestRun_Constraints(t *testing.T) {
	path := setupDB(t)
	code, out, errOut := runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "constraints", "-dry-run", "-plural", "users")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Exists")
	assert.Contains(t, out, "Missing")

	code, out, errOut = runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "constraints", "-plural", "users")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Skipped (Exists)")
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "0 created, 1 skipped, 1 failed")
}

func TestRun_References(t *testing.T) {
	path := setupDB(t)
	code, out, errOut := runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "references", "orgs")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "users.org_id\n", out)
}

func TestRun_Usage(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "usage: rowmap")

	code, _, errOut = runCLI(t, "drop")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "drop"`)

	path := setupDB(t)
	code, _, _ = runCLI(t, "-driver", "sqlite", "-dsn", "file:"+path, "candidates")
	assert.Equal(t, 2, code)

	code, _, errOut = runCLI(t, "-driver", "oracle", "-dsn", "x", "columns", "users")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unsupported database type")
}

func TestLoadConfig(t *testing.T) {
	path := setupDB(t)
	file := filepath.Join(t.TempDir(), "rowmap.yaml")
	require.NoError(t, os.WriteFile(file, []byte("driver: sqlite\ndatabase: "+path+"\ndebug: true\nslow_threshold: 250ms\n"), 0o600))

	cfg, err := loadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, path, cfg.Database)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowThreshold)
	assert.Len(t, cfg.options(), 2)

	t.Setenv(envDriver, "mysql")
	t.Setenv(envDSN, "root@tcp(127.0.0.1:3306)/shop")
	cfg, err = loadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Driver)
	assert.Equal(t, "root@tcp(127.0.0.1:3306)/shop", cfg.DSN)

	cfg.apply(globalFlags{driver: "sqlite", dsn: "file:" + path})
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "file:"+path, cfg.DSN)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRun_ConfigFile(t *testing.T) {
	path := setupDB(t)
	file := filepath.Join(t.TempDir(), "rowmap.yaml")
	require.NoError(t, os.WriteFile(file, []byte("driver: sqlite\ndatabase: "+path+"\n"), 0o600))

	code, out, errOut := runCLI(t, "-config", file, "references", "orgs")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "users.org_id\n", out)
}

func TestApplyDefaultDriver(t *testing.T) {
	cfg := &fileConfig{}
	cfg.apply(globalFlags{})
	assert.Equal(t, defaultDriver, cfg.Driver)
}
