// Package cli implements rosterctl, the batch tool for roster files.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format    string // "json" | "text"
	LogLevel  string
	CallerID  int64
	Admin     bool
	SkipSetup bool
}

var ValidFormats = []string{"text", "json"}

// ErrRejected is returned when a command ran but the roster was refused. Output has
// already been written, so main only needs to exit non-zero.
var ErrRejected = errors.New("roster rejected")

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rosterctl",
		Short: "Validate and synchronize opportunity participant rosters",
		Long: `rosterctl reads roster files (YAML or JSON) and checks or applies them against
the dealroster database configured through the usual DATABASE_* environment.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().Int64Var(&opts.CallerID, "caller-id", 0, "user id the roster changes are attributed to")
	cmd.PersistentFlags().BoolVar(&opts.Admin, "admin", false, "act as a platform admin")
	cmd.PersistentFlags().BoolVar(&opts.SkipSetup, "skip-migrations", false, "do not apply schema migrations before running")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewBulkSyncCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
