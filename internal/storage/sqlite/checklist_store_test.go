package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// openTestStore returns a store over a private in-memory database.
func openTestStore(t *testing.T, clock compliance.Clock) *ChecklistStore {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:test_%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name)
	store, err := openDSN(context.Background(), dsn, clock)
	if err != nil {
		t.Fatalf("openTestStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddAndListTasks(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := openTestStore(t, clock)
	ctx := context.Background()

	first, err := store.AddTask(ctx, "biz-1", "Publish privacy policy")
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, time.Date(2024, 5, 1, 9, 0, 1, 0, time.UTC), first.CreatedAt)

	second, err := store.AddTask(ctx, "biz-1", "Review cookie banner")
	require.NoError(t, err)
	_, err = store.AddTask(ctx, "biz-2", "Other tenant")
	require.NoError(t, err)

	tasks, err := store.ListTasks(ctx, "biz-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, second, tasks[0])
	require.Equal(t, first, tasks[1])
}

func TestListTasksTiesBreakByID(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store := openTestStore(t, frozenClock(fixed))
	ctx := context.Background()

	a, err := store.AddTask(ctx, "biz", "a")
	require.NoError(t, err)
	b, err := store.AddTask(ctx, "biz", "b")
	require.NoError(t, err)

	tasks, err := store.ListTasks(ctx, "biz")
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID, a.ID}, []int64{tasks[0].ID, tasks[1].ID})
}

func TestListTasksUnknownBusiness(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, nil)
	tasks, err := store.ListTasks(context.Background(), "ghost")
	require.NoError(t, err)
	require.NotNil(t, tasks)
	require.Empty(t, tasks)
}

func TestAddTaskRejectsLongBusinessID(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, nil)
	_, err := store.AddTask(context.Background(), strings.Repeat("x", 101), "task")
	require.Error(t, err)

	tasks, err := store.ListTasks(context.Background(), strings.Repeat("x", 101))
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestOpenFileDatabase(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "compliance.db")
	store, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	_, err = store.AddTask(context.Background(), "biz", "persist me")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	tasks, err := reopened.ListTasks(context.Background(), "biz")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "persist me", tasks[0].Task)
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "", nil)
	require.Error(t, err)
}

type frozenClock time.Time

func (c frozenClock) Now() time.Time { return time.Time(c) }
