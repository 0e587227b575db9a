package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/auth"
	"github.com/erazemk/knjiznica/internal/config"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

func TestLevelRouter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, cleanup, err := newLogger(&stdout, &stderr, "")
	require.NoError(t, err)
	defer cleanup()

	logger.Info("item added", "item_id", 1)
	logger.Warn("login failed")
	logger.Error("store failure")
	logger.Debug("dropped")

	assert.Contains(t, stdout.String(), "item added")
	assert.Contains(t, stdout.String(), "login failed")
	assert.NotContains(t, stdout.String(), "store failure")
	assert.Contains(t, stderr.String(), "store failure")
	assert.NotContains(t, stdout.String()+stderr.String(), "dropped")
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knjiznica.log")
	logger, cleanup, err := newLogger(&bytes.Buffer{}, &bytes.Buffer{}, path)
	require.NoError(t, err)

	logger.With(slog.String("component", "test")).Info("hello")
	cleanup()

	var out bytes.Buffer
	_, err = out.ReadFrom(mustOpen(t, path))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "component=test")
}

func TestInitDatabaseCreatesAdmin(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lib.sqlite3")

	database, password, err := initDatabase(ctx, path, "Root@Example.com", "Root")
	require.NoError(t, err)
	defer database.Close()

	assert.Len(t, password, 16)

	user, err := auth.Authenticate(ctx, database, "root@example.com", password)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Equal(t, "Root", user.FirstName)
}

func TestReadPasswordFromPipe(t *testing.T) {
	got, err := readPassword(strings.NewReader("  s3cret pass \r\nignored\n"), &bytes.Buffer{}, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "  s3cret pass ", got, "surrounding spaces are part of the password")

	got, err = readPassword(strings.NewReader("no-newline"), &bytes.Buffer{}, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	require.NoError(t, err)
	b, err := generatePassword(16)
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{config.EnvDB, config.EnvAddr, config.EnvLog, config.EnvAdminEmail, config.EnvAdminName} {
		t.Setenv(k, "")
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestUsersCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.sqlite3")

	out, err := run(t, "", "--db", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin account created")

	_, err = run(t, "", "--db", path, "init")
	assert.Error(t, err, "init refuses to overwrite")

	out, err = run(t, "alice-password\n", "--db", path, "users", "add", "--name", "alice", "--email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Created user alice <alice@example.com>")

	_, err = run(t, "short\n", "--db", path, "users", "add", "--name", "bob", "--email", "bob@example.com")
	assert.Error(t, err, "password below minimum length")

	_, err = run(t, "another-password\n", "--db", path, "users", "add", "--name", "alicia", "--email", "ALICE@example.com")
	assert.ErrorIs(t, err, store.ErrConflict)

	out, err = run(t, "", "--db", path, "users", "list", "--role", "user")
	require.NoError(t, err)
	assert.Contains(t, out, "alice@example.com")
	assert.NotContains(t, out, "admin@")

	_, err = run(t, "", "--db", path, "users", "list", "--role", "manager")
	assert.Error(t, err, "unknown role is rejected")

	out, err = run(t, "", "--db", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 1")
}

func TestEnsureDatabaseWritesToCommandOutput(t *testing.T) {
	ctx := context.Background()
	c := &cli{cfg: &config.Config{
		DBPath:     filepath.Join(t.TempDir(), "lib.sqlite3"),
		AdminEmail: "root@example.com",
		AdminName:  "Root",
	}}

	var out bytes.Buffer
	require.NoError(t, c.ensureDatabase(ctx, &out))
	assert.Contains(t, out.String(), "Admin account created")
	assert.Contains(t, out.String(), "root@example.com")

	out.Reset()
	require.NoError(t, c.ensureDatabase(ctx, &out))
	assert.Empty(t, out.String(), "existing database is left alone")
}

func TestCommandsNeedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sqlite3")

	_, err := run(t, "", "--db", path, "users", "list")
	assert.Error(t, err)
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
