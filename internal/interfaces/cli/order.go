package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/example/meal-scheduler/internal/application/usecases"
)

func newOrderCmd(opts *RootOptions) *cobra.Command {
	var email, keyword string
	c := &cobra.Command{
		Use:   "order",
		Short: "Run auto ordering now for one account or every active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			auto := a.autoOrder(keyword)
			var runs []usecases.UserRun
			if email != "" {
				u, err := findUser(cmd.Context(), a.db.users, email)
				if err != nil {
					return err
				}
				runs = []usecases.UserRun{auto.RunUser(cmd.Context(), u)}
			} else if runs, err = auto.RunAll(cmd.Context()); err != nil {
				return err
			}

			if err := renderRuns(cmd.OutOrStdout(), opts.Format, runs); err != nil {
				return err
			}
			for _, r := range runs {
				if r.Err != nil {
					return errors.New("one or more accounts failed")
				}
			}
			return nil
		},
	}
	c.Flags().StringVar(&email, "email", "", "only this account (email or id)")
	c.Flags().StringVar(&keyword, "keyword", "", "slot label filter (default ORDER_KEYWORD)")
	return c
}

func newSyncCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <email|id>",
		Short: "Refresh an account's slot snapshot without ordering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := findUser(cmd.Context(), a.db.users, args[0])
			if err != nil {
				return err
			}
			slots, err := a.autoOrder("").Sync(cmd.Context(), u)
			if err != nil {
				return err
			}
			return renderSlots(cmd.OutOrStdout(), opts.Format, slots)
		},
	}
}
