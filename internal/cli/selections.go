package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivseb/strapi-sync-wizard/internal/plan"
)

// NewSelectionsCommand creates the selections command group.
func NewSelectionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selections",
		Short: "Record and inspect the selections of a merge request",
	}
	cmd.AddCommand(newSelectionsSetCommand(rootOpts))
	cmd.AddCommand(newSelectionsListCommand(rootOpts))
	return cmd
}

func newSelectionsSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <merge-request-id> <table/documentId:DIRECTION>...",
		Short: "Replace the selection set of a merge request",
		Long: `Replace the full selection set of a merge request. Each argument is
table/documentId:DIRECTION with DIRECTION one of TO_CREATE, TO_UPDATE
or TO_DELETE. Outcome columns reset to not-yet-attempted.

Example:
  strapi-sync selections set mr-1 api::author.author/a1:TO_CREATE api::book.book/b1:TO_CREATE`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			selections := make([]plan.Selection, 0, len(args)-1)
			for _, arg := range args[1:] {
				sel, err := parseSelection(arg)
				if err != nil {
					return NewExitError(ExitCommandError, err.Error())
				}
				selections = append(selections, sel)
			}

			if err := app.store.ReplaceSelections(cmd.Context(), args[0], selections); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d selection(s) for %s\n", len(selections), args[0])
			return nil
		},
	}
}

func newSelectionsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <merge-request-id>",
		Short: "List the selections of a merge request with their last outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			rows, err := app.store.Selections(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, row := range rows {
				outcome := "not attempted"
				switch {
				case row.SyncSuccess.Valid && row.SyncSuccess.Bool:
					outcome = successColor.Sprint("synced")
				case row.SyncSuccess.Valid:
					outcome = errorColor.Sprintf("failed: %s", row.SyncFailureResponse.String)
				}
				fmt.Fprintf(out, "%-10s %s/%s  %s\n", row.Direction, row.TableName, row.DocumentID, outcome)
			}
			return nil
		},
	}
}

// parseSelection parses "table/documentId:DIRECTION". Content type
// uids contain colons ("api::a.a"), so the direction splits off the
// last colon, not the first.
func parseSelection(arg string) (plan.Selection, error) {
	rest, direction, ok := cutLast(arg, ":")
	if !ok {
		return plan.Selection{}, fmt.Errorf("selection %q: missing :DIRECTION suffix", arg)
	}
	table, doc, ok := cutLast(rest, "/")
	if !ok || table == "" || doc == "" {
		return plan.Selection{}, fmt.Errorf("selection %q: expected table/documentId", arg)
	}

	switch plan.Direction(direction) {
	case plan.ToCreate, plan.ToUpdate, plan.ToDelete:
	default:
		return plan.Selection{}, fmt.Errorf("selection %q: direction must be TO_CREATE, TO_UPDATE or TO_DELETE", arg)
	}

	return plan.Selection{TableName: table, DocumentID: doc, Direction: plan.Direction(direction)}, nil
}

// cutLast splits around the last occurrence of sep. Content type uids
// contain no slash but this keeps documentIds with slashes safe.
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
