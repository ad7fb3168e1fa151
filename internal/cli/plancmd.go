package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivseb/strapi-sync-wizard/internal/plan"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <merge-request-id>",
		Short: "Show the execution plan for a merge request's selections",
		Long: `Build the dependency-ordered execution plan for the recorded
selections of a merge request: layered batches, isolated circular
edges, missing dependencies and trailing deletions.

Example:
  strapi-sync plan mr-2024-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runPlan(cmd *cobra.Command, opts *RootOptions, mergeRequestID string) error {
	app, err := newApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	cmp, err := app.loadComparison(ctx, opts.Refresh)
	if err != nil {
		return err
	}

	items, existing, err := app.buildItems(ctx, mergeRequestID, cmp)
	if err != nil {
		return err
	}

	p, err := plan.Build(items, existing)
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), plan.Render(p))
	return nil
}
