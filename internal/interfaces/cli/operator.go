package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/meal-scheduler/internal/application/usecases"
)

func newOperatorCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage web UI logins",
	}
	cmd.AddCommand(newOperatorAddCmd(opts))
	return cmd
}

func newOperatorAddCmd(opts *RootOptions) *cobra.Command {
	var username, password string
	c := &cobra.Command{
		Use:   "add",
		Short: "Create a web UI login",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			op, err := usecases.NewOperator(username, password)
			if err != nil {
				return err
			}
			if err := a.db.operators.CreateOperator(cmd.Context(), op); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created operator:", op.Username)
			return nil
		},
	}
	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
