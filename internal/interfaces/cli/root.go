package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// RootOptions holds the persistent flags every command sees.
type RootOptions struct {
	Format     string // "text" | "json"
	ConfigPath string
}

var validFormats = []string{"text", "json"}

func NewRoot() *cobra.Command {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:           "mealsched",
		Short:         "Meican meal auto-ordering: scheduler, web UI and CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (overrides CONFIG_FILE)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newKeysCmd())
	cmd.AddCommand(newServerCmd(opts))
	cmd.AddCommand(newUserCmd(opts))
	cmd.AddCommand(newOperatorCmd(opts))
	cmd.AddCommand(newOrderCmd(opts))
	cmd.AddCommand(newSyncCmd(opts))
	cmd.AddCommand(newPingCmd(opts))
	cmd.AddCommand(newDishesCmd(opts))
	return cmd
}

func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mealsched %s (commit=%s, built=%s)\n", Version, CommitSHA, BuildDate)
		},
	}
}
