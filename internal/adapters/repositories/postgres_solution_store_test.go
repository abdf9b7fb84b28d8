//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"vrp-solution-service/internal/adapters/storetest"
	"vrp-solution-service/internal/platform/db"
	"vrp-solution-service/internal/ports"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresSolutionStoreConformance(t *testing.T) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("vrp"),
		postgres.WithUsername("vrp"),
		postgres.WithPassword("vrp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, InitSchema(ctx, conn, Postgres))
	// a second run must be a no-op
	require.NoError(t, InitSchema(ctx, conn, Postgres))

	storetest.RunSolutionStoreConformance(t, func(t *testing.T) ports.SolutionStore {
		_, err := conn.ExecContext(ctx, `TRUNCATE solutions`)
		require.NoError(t, err)
		return NewPostgresSolutionStore(conn, 5*time.Second)
	})
}
