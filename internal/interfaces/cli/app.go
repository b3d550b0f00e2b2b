package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/example/meal-scheduler/internal/application/usecases"
	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/infrastructure/config"
	"github.com/example/meal-scheduler/internal/infrastructure/crypto"
	"github.com/example/meal-scheduler/internal/infrastructure/logging"
	"github.com/example/meal-scheduler/internal/infrastructure/meican"
	"github.com/example/meal-scheduler/internal/infrastructure/postgres"
	"github.com/example/meal-scheduler/internal/infrastructure/sqlite"
	"github.com/example/meal-scheduler/internal/internaltypes"
)

// backend is one persistence implementation behind the domain interfaces.
type backend struct {
	users     user.Repository
	operators user.OperatorRepository
	snapshots meal.SlotSnapshotStore
	ledger    meal.OrderLedger
	close     func()
}

// openBackend picks the store from the DATABASE_URL scheme:
// postgres:// or postgresql:// for Postgres, sqlite:<path> for SQLite.
func openBackend(ctx context.Context, databaseURL string) (backend, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		pool, err := postgres.Open(ctx, databaseURL)
		if err != nil {
			return backend{}, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return backend{}, fmt.Errorf("migrate: %w", err)
		}
		repo := postgres.NewUserRepo(pool)
		return backend{
			users:     repo,
			operators: repo,
			snapshots: postgres.NewSnapshotStore(pool),
			ledger:    postgres.NewOrderLedger(pool),
			close:     pool.Close,
		}, nil
	case strings.HasPrefix(databaseURL, "sqlite:"):
		s, err := sqlite.New(strings.TrimPrefix(databaseURL, "sqlite:"))
		if err != nil {
			return backend{}, err
		}
		return backend{users: s, operators: s, snapshots: s, ledger: s, close: func() { _ = s.Close() }}, nil
	}
	return backend{}, fmt.Errorf("unsupported DATABASE_URL %q (want postgres://... or sqlite:<path>)", databaseURL)
}

// app is everything a command needs, built from config.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	loc     *time.Location
	db      backend
	catalog *meican.Client
	creds   usecases.CredentialsService
}

func loadApp(ctx context.Context, opts *RootOptions) (*app, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}

	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	creds := usecases.CredentialsService{GlobalPassword: cfg.MeicanGlobalPassword}
	if len(cfg.CredEncKey) > 0 {
		if creds.AEAD, err = crypto.New(cfg.CredEncKey); err != nil {
			return nil, err
		}
	}

	openCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	db, err := openBackend(openCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg: cfg,
		log: log,
		loc: loc,
		db:  db,
		catalog: meican.New(meican.Options{
			BaseURL:  cfg.MeicanBaseURL,
			Timeout:  cfg.HTTPTimeout,
			Location: loc,
			Logger:   log,
		}),
		creds: creds,
	}, nil
}

func (a *app) Close() { a.db.close() }

func (a *app) autoOrder(keyword string) usecases.AutoOrder {
	if keyword == "" {
		keyword = a.cfg.OrderKeyword
	}
	return usecases.AutoOrder{
		Users:   a.db.users,
		Creds:   a.creds,
		Catalog: a.catalog,
		Reconciler: usecases.Reconciler{
			Catalog:   a.catalog,
			Snapshots: a.db.snapshots,
			Ledger:    a.db.ledger,
			Location:  a.loc,
			Log:       a.log,
		},
		Runner: usecases.OrderRunner{
			Catalog:   a.catalog,
			Snapshots: a.db.snapshots,
			Ledger:    a.db.ledger,
			Location:  a.loc,
			AddressID: a.cfg.MeicanAddressID,
			Log:       a.log,
		},
		Keyword:      keyword,
		HorizonDays:  a.cfg.HorizonDays,
		FetchRetries: a.cfg.FetchRetries,
		RetryBackoff: 2 * time.Second,
		Concurrency:  a.cfg.RunConcurrency,
		Log:          a.log,
	}
}

func (a *app) userService() usecases.UserService {
	return usecases.UserService{Users: a.db.users, Catalog: a.catalog, Creds: a.creds}
}

// findUser resolves an email or a user id.
func findUser(ctx context.Context, repo user.Repository, ref string) (user.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return user.User{}, errors.New("user email or id required")
	}
	var (
		u   user.User
		err error
	)
	if strings.Contains(ref, "@") {
		u, err = repo.GetByEmail(ctx, ref)
	} else {
		u, err = repo.Get(ctx, ref)
	}
	if errors.Is(err, internaltypes.ErrNotFound) {
		return user.User{}, fmt.Errorf("no user %q", ref)
	}
	return u, err
}
