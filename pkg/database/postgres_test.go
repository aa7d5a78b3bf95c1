package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/pkg/config"
)

func TestNew(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := New(config.DatabaseConfig{
		URL:             url,
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, config.DriverPostgres, status.Driver)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(config.DatabaseConfig{URL: "postgres://%zz"})
	assert.Error(t, err)
}

func TestOpenSQLite_Memory(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	status, err := db.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, config.DriverSQLite, status.Driver)
}

func TestOpenSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "momentor.db")

	db, err := OpenSQLiteFromConfig(config.DatabaseConfig{URL: "sqlite://" + path})
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}
