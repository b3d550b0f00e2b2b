package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/meal-scheduler/internal/application/scheduler"
	"github.com/example/meal-scheduler/internal/application/usecases"
	"github.com/example/meal-scheduler/internal/interfaces/web"
)

func newServerCmd(opts *RootOptions) *cobra.Command {
	var (
		noScheduler bool
		corsOrigins []string
	)
	c := &cobra.Command{
		Use:   "server",
		Short: "Start the web UI, JSON API and daily auto-order scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireSessionKeys(); err != nil {
				return err
			}
			tmpl, err := web.ParseTemplates()
			if err != nil {
				return err
			}

			auto := a.autoOrder("")
			srv := web.New(web.Deps{
				Addr:        a.cfg.ListenAddr,
				Sessions:    web.NewSessionManager(a.cfg.CookieHashKey, a.cfg.CookieBlockKey),
				Auth:        usecases.AuthService{Operators: a.db.operators},
				Users:       a.db.users,
				UserService: a.userService(),
				AutoOrder:   auto,
				Ledger:      a.db.ledger,
				Templates:   tmpl,
				Location:    a.loc,
				CORSOrigins: corsOrigins,
				Log:         a.log,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(gctx) })
			if !noScheduler {
				daily := &scheduler.Daily{
					At:       a.cfg.DailyRunAt,
					Location: a.loc,
					Log:      a.log,
					Job: func(ctx context.Context) error {
						runs, err := auto.RunAll(ctx)
						for _, r := range runs {
							if r.Err != nil {
								a.log.Warn("user run failed", "user", r.Email, "run_id", r.RunID, "error", r.Err)
							}
						}
						return err
					},
				}
				g.Go(func() error { return daily.Run(gctx) })
			}

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	c.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the UI only, without the daily run")
	c.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "origin allowed to call /api with credentials (repeatable)")
	return c
}
