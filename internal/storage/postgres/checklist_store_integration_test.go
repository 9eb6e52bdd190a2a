//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestChecklistStoreAgainstPostgres(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("compliance"),
		tcpostgres.WithUsername("compliance"),
		tcpostgres.WithPassword("secret"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	store, err := Open(ctx, Config{
		Host:     host,
		Port:     port.Int(),
		User:     "compliance",
		Password: "secret",
		Database: "compliance",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	first, err := store.AddTask(ctx, "biz-1", "Publish privacy policy")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.AddTask(ctx, "biz-1", "Review cookie banner")
	require.NoError(t, err)
	_, err = store.AddTask(ctx, "biz-2", "Unrelated")
	require.NoError(t, err)

	tasks, err := store.ListTasks(ctx, "biz-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, second.ID, tasks[0].ID)
	require.Equal(t, first.ID, tasks[1].ID)

	// Schema creation is idempotent across restarts.
	require.NoError(t, store.EnsureSchema(ctx))
}
