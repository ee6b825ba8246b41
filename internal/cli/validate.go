package cli

import (
	"github.com/spf13/cobra"
)

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <roster-file>",
		Short: "Check a participant list without writing anything",
		Long: `Check the top-level participants list of a roster file: required fields, known
roles, live organizations, duplicates, commission bounds, a customer and at most one
primary per role. Every problem is reported. Exits non-zero when the list is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readRosterFile(args[0])
			if err != nil {
				return err
			}

			ctx, err := callerContext(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}

			eng, err := openEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.close()

			result, err := eng.roster.ValidateParticipants(ctx, inputs(file.Participants))
			if err != nil {
				return err
			}

			out := newFormatter(rootOpts, cmd.OutOrStdout())
			status := "ok"
			if !result.Valid {
				status = "rejected"
			}
			if out.Format == "json" {
				if err := out.JSON(status, result); err != nil {
					return err
				}
			} else if result.Valid {
				out.Printf("valid: %d participants, %d customers\n", result.Summary.Total, result.Summary.CustomerCount)
			} else {
				out.Printf("invalid: %d problems\n", len(result.Errors))
				for _, msg := range result.Errors {
					out.Printf("  %s\n", msg)
				}
			}

			if !result.Valid {
				return ErrRejected
			}
			return nil
		},
	}
}
