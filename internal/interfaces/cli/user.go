package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/meal-scheduler/internal/application/usecases"
	"github.com/example/meal-scheduler/internal/domain/user"
)

func newUserCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage Meican accounts",
	}
	cmd.AddCommand(newUserAddCmd(opts))
	cmd.AddCommand(newUserListCmd(opts))
	cmd.AddCommand(newUserRemoveCmd(opts))
	cmd.AddCommand(newUserActiveCmd(opts, "enable", true))
	cmd.AddCommand(newUserActiveCmd(opts, "disable", false))
	return cmd
}

func newUserAddCmd(opts *RootOptions) *cobra.Command {
	var in usecases.NewUserInput
	c := &cobra.Command{
		Use:   "add",
		Short: "Add an account after verifying it can log in to Meican",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.userService().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), toUserOutput(u))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	c.Flags().StringVar(&in.Email, "email", "", "Meican account email")
	c.Flags().StringVar(&in.Password, "password", "", "Meican password (empty: use MEICAN_GLOBAL_PASSWORD)")
	c.Flags().StringVar(&in.AddressID, "address", "", "corp address unique id for orders")
	_ = c.MarkFlagRequired("email")
	return c
}

func newUserListCmd(opts *RootOptions) *cobra.Command {
	var activeOnly bool
	c := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.db.users.List(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				out := make([]userOutput, 0, len(users))
				for _, u := range users {
					out = append(out, toUserOutput(u))
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tACTIVE\tOWN PASSWORD\tLAST RUN")
			for _, u := range users {
				last := "-"
				if u.LastRunAt != nil {
					last = u.LastRunAt.In(a.loc).Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", u.ID, u.Email, u.Active, u.PasswordEnc != "", last)
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVar(&activeOnly, "active", false, "only active accounts")
	return c
}

func newUserRemoveCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email|id>",
		Short: "Delete an account with its slots and order history",
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
			if err := a.db.users.Delete(cmd.Context(), u.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed user %s\n", u.Email)
			return nil
		},
	}
}

func newUserActiveCmd(opts *RootOptions, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <email|id>",
		Short: verb + " automatic ordering for an account",
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
			if err := a.db.users.SetActive(cmd.Context(), u.ID, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sd user %s\n", verb, u.Email)
			return nil
		},
	}
}

type userOutput struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Active         bool   `json:"active"`
	HasOwnPassword bool   `json:"has_own_password"`
	AddressID      string `json:"address_id,omitempty"`
}

func toUserOutput(u user.User) userOutput {
	return userOutput{
		ID:             u.ID,
		Email:          u.Email,
		Active:         u.Active,
		HasOwnPassword: u.PasswordEnc != "",
		AddressID:      u.AddressID,
	}
}
