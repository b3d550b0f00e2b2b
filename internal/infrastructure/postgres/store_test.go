package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/infrastructure/postgres"
	"github.com/example/meal-scheduler/internal/internaltypes"
)

var (
	jan10 = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	jan11 = time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
)

// testPool connects to TEST_DATABASE_URL and skips when it is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

// seedUser creates a uniquely named user and removes it (with its rows)
// when the test ends.
func seedUser(t *testing.T, repo *postgres.UserRepo) user.User {
	t.Helper()
	id := uuid.NewString()
	u := user.User{ID: id, Email: id + "@example.com", Active: true, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	require.NoError(t, repo.Create(context.Background(), u))
	t.Cleanup(func() { _ = repo.Delete(context.Background(), id) })
	return u
}

func TestUserRepo(t *testing.T) {
	pool := testPool(t)
	repo := postgres.NewUserRepo(pool)
	ctx := context.Background()
	u := seedUser(t, repo)

	got, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.Active)
	assert.Nil(t, got.LastRunAt)

	require.NoError(t, repo.SetActive(ctx, u.ID, false))
	at := time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastRun(ctx, u.ID, at))

	got, err = repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, at.Equal(*got.LastRunAt))

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	for _, a := range active {
		assert.NotEqual(t, u.ID, a.ID)
	}

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.Get(ctx, u.ID)
	assert.ErrorIs(t, err, internaltypes.ErrNotFound)
	assert.ErrorIs(t, repo.SetActive(ctx, u.ID, true), internaltypes.ErrNotFound)
}

func TestSnapshotStore_ReplaceHorizon(t *testing.T) {
	pool := testPool(t)
	u := seedUser(t, postgres.NewUserRepo(pool))
	snaps := postgres.NewSnapshotStore(pool)
	ctx := context.Background()

	first := []meal.Slot{
		{ID: "t1", Label: "午餐", Date: jan10, TargetTime: jan10.Add(3 * time.Hour), Status: meal.StatusAvailable},
		{ID: "t2", Label: "晚餐", Date: jan11, TargetTime: jan11.Add(10 * time.Hour), Status: meal.StatusAvailable},
	}
	require.NoError(t, snaps.ReplaceHorizon(ctx, u.ID, jan10, first))

	second := []meal.Slot{
		{ID: "t1", Label: "午餐", Date: jan10, TargetTime: jan10.Add(3 * time.Hour), Status: meal.StatusOrdered},
	}
	require.NoError(t, snaps.ReplaceHorizon(ctx, u.ID, jan10, second))

	got, err := snaps.ListEligible(ctx, u.ID, jan10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].SlotID)
	assert.Equal(t, meal.StatusOrdered, got[0].Status)
}

func TestOrderLedger(t *testing.T) {
	pool := testPool(t)
	u := seedUser(t, postgres.NewUserRepo(pool))
	ledger := postgres.NewOrderLedger(pool)
	ctx := context.Background()

	ok, err := ledger.HasSuccess(ctx, u.ID, jan10, "午餐")
	require.NoError(t, err)
	assert.False(t, ok)

	msg := "sold out"
	require.NoError(t, ledger.Upsert(ctx, u.ID, jan10, "午餐", meal.OrderOutcome{Success: false, Error: &msg}))
	require.NoError(t, ledger.Upsert(ctx, u.ID, jan10, "午餐", meal.OrderOutcome{DishName: "自助套餐", Success: true}))

	ok, err = ledger.HasSuccess(ctx, u.ID, jan10, "午餐")
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := ledger.ListOutcomes(ctx, u.ID, jan10, jan11)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "自助套餐", rows[0].DishName)
	assert.Nil(t, rows[0].Error)
}
