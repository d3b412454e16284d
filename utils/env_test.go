package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/crm")

	url, err := GetDatabaseURL()

	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/crm", url)
}

func TestGetDatabaseURL_Missing(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := GetDatabaseURL()

	assert.ErrorIs(t, err, ErrDatabaseURLMissing)
}

func TestLoadEnv_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_URL=postgres://from-dotenv/db\n"), 0644))
	testChdir(t, dir)
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	LoadEnv(zap.NewNop())

	url, err := GetDatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-dotenv/db", url)
}

func TestLoadEnv_EnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_URL=postgres://from-dotenv/db\n"), 0644))
	testChdir(t, dir)
	t.Setenv("DATABASE_URL", "postgres://from-env/db")

	LoadEnv(nil)

	url, err := GetDatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-env/db", url)
}

func TestLoadEnv_NoFile(t *testing.T) {
	testChdir(t, t.TempDir())

	assert.NotPanics(t, func() { LoadEnv(zap.NewNop()) })
}
