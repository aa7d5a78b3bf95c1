package runs

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/config"
	"github.com/CedricEugeni/MoMentor/pkg/database"
)

// TEST_DATABASE_URL=postgres://... go test ./internal/runs/
func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.New(config.DatabaseConfig{URL: url, MaxConns: 2, MinConns: 1})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	repo := NewPostgresRepository(db.Pool)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Reset(ctx))
	defer repo.Reset(ctx)

	run := sampleRun()
	require.NoError(t, repo.CreateRun(ctx, run))
	assert.ErrorIs(t, repo.CreateRun(ctx, sampleRun()), contracts.ErrPreconditionViolation)

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Allocations, 2)
	assert.Len(t, got.SwapMoves, 2)

	require.NoError(t, repo.CompleteRun(ctx, &contracts.Confirmation{
		RunID:    run.ID,
		Holdings: []contracts.Holding{{Symbol: "VOO", Shares: d("7.5"), AvgPrice: d("400")}},
		Cash:     d("10"),
		Key:      "pg",
	}))

	latest, err := repo.GetLatestConfirmation(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "pg", latest.Key)
}
