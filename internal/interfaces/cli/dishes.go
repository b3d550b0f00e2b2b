package cli

import (
	"github.com/spf13/cobra"
)

func newDishesCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dishes <email|id>",
		Short: "List the dishes of an account's next available slot",
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
			menu, err := a.autoOrder("").NextMenu(cmd.Context(), u)
			if err != nil {
				return err
			}
			return renderMenu(cmd.OutOrStdout(), opts.Format, menu)
		},
	}
}
