package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivseb/strapi-sync-wizard/internal/compare"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	ShowIdentical bool
	ShowDiff      bool
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the content of the source and target instance",
		Long: `Fetch both instances (through the snapshot cache), verify schema
compatibility and classify every record as ONLY_IN_SOURCE,
ONLY_IN_TARGET, DIFFERENT or IDENTICAL.

Example:
  strapi-sync compare
  strapi-sync compare --diff --refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.ShowIdentical, "all", false, "include IDENTICAL records in the listing")
	cmd.Flags().BoolVar(&opts.ShowDiff, "diff", false, "print a unified diff for DIFFERENT records")

	return cmd
}

func runCompare(cmd *cobra.Command, opts *CompareOptions) error {
	app, err := newApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	cmp, err := app.loadComparison(cmd.Context(), opts.Refresh)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, uid := range cmp.order {
		results := cmp.results[uid]
		counts := map[compare.State]int{}
		for _, r := range results {
			counts[r.State]++
		}

		fmt.Fprintf(out, "%s  (%d source-only, %d target-only, %d different, %d identical)\n",
			uid,
			counts[compare.StateOnlyInSource],
			counts[compare.StateOnlyInTarget],
			counts[compare.StateDifferent],
			counts[compare.StateIdentical],
		)

		for _, r := range results {
			if r.State == compare.StateIdentical && !opts.ShowIdentical {
				continue
			}
			fmt.Fprintf(out, "  %-16s %s\n", colorState(r.State), r.DocumentID())

			if opts.ShowDiff && r.State == compare.StateDifferent {
				diff, err := compare.Diff(r)
				if err != nil {
					return fmt.Errorf("diff %s/%s: %w", uid, r.DocumentID(), err)
				}
				fmt.Fprintln(out, indent(diff, "    "))
			}
		}
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return prefix + strings.Join(lines, "\n"+prefix)
}
