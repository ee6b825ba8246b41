package cli

import (
	"github.com/spf13/cobra"
)

func NewBulkSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-sync <roster-file>",
		Short: "Replace the rosters of every opportunity listed under items",
		Long: `Synchronize each item of a roster file to exactly the participants it lists. Items
are applied one at a time in file order; a failing item is reported and does not stop
the others. Exits non-zero when any item failed.`,
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

			result, err := eng.roster.BulkSync(ctx, file.syncRequests())
			if err != nil {
				return err
			}

			out := newFormatter(rootOpts, cmd.OutOrStdout())
			status := "ok"
			if result.Failed > 0 {
				status = "rejected"
			}
			if out.Format == "json" {
				if err := out.JSON(status, result); err != nil {
					return err
				}
			} else {
				for _, item := range result.Items {
					if item.Success {
						out.Printf("#%d %s: upserted %d, deleted %d, total %d\n",
							item.Index, item.OpportunityID, item.Result.Upserted, item.Result.Deleted, item.Result.Total)
						continue
					}
					out.Printf("#%d %s: %s: %s\n", item.Index, item.OpportunityID, item.Error.Type, item.Error.Message)
					for _, msg := range item.Error.Errors {
						out.Printf("    %s\n", msg)
					}
				}
				out.Printf("%d succeeded, %d failed\n", result.Succeeded, result.Failed)
			}

			if result.Failed > 0 {
				return ErrRejected
			}
			return nil
		},
	}
}
