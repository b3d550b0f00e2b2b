package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/meal-scheduler/internal/application/usecases"
)

func newPingCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping <email|id>",
		Short: "Check that an account can log in to Meican",
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
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			uc := usecases.PingUser{Catalog: a.catalog, Creds: a.creds}
			if err := uc.Execute(ctx, u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", u.Email)
			return nil
		},
	}
}
