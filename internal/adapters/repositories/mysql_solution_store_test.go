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
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

func TestMySQLSolutionStoreConformance(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("vrp"),
		tcmysql.WithUsername("vrp"),
		tcmysql.WithPassword("vrp"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	conn, err := db.OpenMySQL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, InitSchema(ctx, conn, MySQL))
	require.NoError(t, InitSchema(ctx, conn, MySQL))

	storetest.RunSolutionStoreConformance(t, func(t *testing.T) ports.SolutionStore {
		_, err := conn.ExecContext(ctx, `TRUNCATE TABLE solutions`)
		require.NoError(t, err)
		return NewMySQLSolutionStore(conn, 5*time.Second)
	})
}
