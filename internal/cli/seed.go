package cli

import (
	"github.com/smallbiznis/dealroster/internal/seed"
	"github.com/spf13/cobra"
)

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture-file>",
		Short: "Load reference organizations, capabilities, members and opportunities",
		Long: `Load a fixture of reference data owned by the entity-CRUD layer. Records that
already exist are left untouched, so a fixture can be applied repeatedly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := readFixture(args[0])
			if err != nil {
				return err
			}

			eng, err := openEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.close()

			if err := seed.Apply(cmd.Context(), eng.db, eng.node, fixture); err != nil {
				return err
			}

			out := newFormatter(rootOpts, cmd.OutOrStdout())
			if out.Format == "json" {
				return out.JSON("ok", map[string]int{
					"organizations": len(fixture.Organizations),
					"opportunities": len(fixture.Opportunities),
				})
			}
			out.Printf("seeded %d organizations and %d opportunities\n", len(fixture.Organizations), len(fixture.Opportunities))
			return nil
		},
	}
}
