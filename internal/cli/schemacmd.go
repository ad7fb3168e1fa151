package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivseb/strapi-sync-wizard/internal/schema"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect schema compatibility between the instances",
	}
	cmd.AddCommand(newSchemaCheckCommand(rootOpts))
	return cmd
}

func newSchemaCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the target schema can receive the source content",
		Long: `Compare the source and target content-type schemas field by field.
Content can only sync when every source type and field exists on the
target with a compatible shape; extra target-side fields are fine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			src, err := app.fetcher.Load(ctx, app.source, rootOpts.Refresh)
			if err != nil {
				return err
			}
			dst, err := app.fetcher.Load(ctx, app.target, rootOpts.Refresh)
			if err != nil {
				return err
			}

			incompat := schema.CheckCompatibility(src.ContentTypes, dst.ContentTypes)
			out := cmd.OutOrStdout()
			if len(incompat) == 0 {
				fmt.Fprintln(out, successColor.Sprint("schemas are compatible"))
				return nil
			}

			for _, inc := range incompat {
				fmt.Fprintf(out, "%s %s\n", errorColor.Sprint("incompatible:"), inc)
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d incompatible field(s)", len(incompat)))
		},
	}
}
