package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
)

// UserRun is the outcome of one (user, session) run.
type UserRun struct {
	RunID   string     `json:"run_id"`
	UserID  string     `json:"user_id"`
	Email   string     `json:"email"`
	Synced  int        `json:"synced_slots"`
	Summary RunSummary `json:"summary"`
	Err     error      `json:"-"`
}

func (r UserRun) ErrMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// AutoOrder ties login, refresh and ordering together for one user or for
// every active user.
type AutoOrder struct {
	Users      user.Repository
	Creds      CredentialsService
	Catalog    meal.Catalog
	Reconciler Reconciler
	Runner     OrderRunner

	Keyword      string
	HorizonDays  int
	FetchRetries int
	RetryBackoff time.Duration
	Concurrency  int

	Now func() time.Time
	Log *slog.Logger
}

// RunUser logs in once, refreshes the snapshot (retrying transient fetch
// failures) and runs the executor over it.
func (a AutoOrder) RunUser(ctx context.Context, u user.User) UserRun {
	run := UserRun{RunID: uuid.NewString(), UserID: u.ID, Email: u.Email}
	log := a.log().With("run_id", run.RunID, "user", u.Email)

	sess, err := a.login(ctx, u)
	if err != nil {
		run.Err = err
		log.Warn("login failed", "error", err)
		return run
	}

	slots, err := a.refresh(ctx, sess, u)
	if err != nil {
		run.Err = err
		log.Warn("refresh failed", "error", err)
		return run
	}
	run.Synced = len(slots)

	run.Summary, run.Err = a.Runner.Run(ctx, sess, u, a.Keyword)
	if run.Err != nil {
		log.Warn("order run stopped", "error", run.Err)
	}
	if err := a.Users.TouchLastRun(ctx, u.ID, a.now().UTC()); err != nil {
		log.Error("touch last run", "error", err)
	}
	return run
}

// RunAll runs every active user. Users are independent: one failing never
// affects another. The returned slice follows the repository's user order.
func (a AutoOrder) RunAll(ctx context.Context) ([]UserRun, error) {
	users, err := a.Users.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	a.log().Info("auto order starting", "users", len(users))

	runs := make([]UserRun, len(users))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			r := a.RunUser(gctx, u)
			mu.Lock()
			runs[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	a.log().Info("auto order finished", "users", len(users))
	return runs, nil
}

// Sync logs in and refreshes the snapshot without ordering.
func (a AutoOrder) Sync(ctx context.Context, u user.User) ([]meal.Slot, error) {
	sess, err := a.login(ctx, u)
	if err != nil {
		return nil, err
	}
	return a.refresh(ctx, sess, u)
}

func (a AutoOrder) login(ctx context.Context, u user.User) (meal.Session, error) {
	pw, err := a.Creds.PasswordFor(u)
	if err != nil {
		return meal.Session{}, err
	}
	return a.Catalog.Login(ctx, u.Email, pw)
}

func (a AutoOrder) refresh(ctx context.Context, s meal.Session, u user.User) ([]meal.Slot, error) {
	attempts := a.FetchRetries
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		var slots []meal.Slot
		slots, err = a.Reconciler.Refresh(ctx, s, u, a.HorizonDays)
		if err == nil || !meal.IsTransient(err) {
			return slots, err
		}
		if i == attempts {
			break
		}
		a.log().Info("refresh failed, retrying", "user", u.Email, "attempt", i, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * a.RetryBackoff):
		}
	}
	return nil, err
}

func (a AutoOrder) concurrency() int {
	if a.Concurrency < 1 {
		return 1
	}
	return a.Concurrency
}

func (a AutoOrder) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a AutoOrder) log() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return slog.Default()
}
