package cli

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivseb/strapi-sync-wizard/internal/plan"
	"github.com/ivseb/strapi-sync-wizard/internal/run"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <merge-request-id>",
		Short: "Execute the plan for a merge request against the target",
		Long: `Build the execution plan for the merge request's selections and
apply it: creates and updates in dependency order, deferred circular
relations in a second pass, deletions last. Each selection's outcome
is recorded exactly once per run.

Interrupting the run stops it between items; applied writes stay
applied and a later run resumes from the persisted mappings.

Example:
  strapi-sync sync mr-2024-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runSync(cmd *cobra.Command, opts *RootOptions, mergeRequestID string) error {
	app, err := newApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	out := cmd.OutOrStdout()
	sink := func(ev run.Event) {
		renderEvent(out, ev)
	}

	// The target schema is authoritative for payload field names.
	exec := run.NewExecutor(app.store, app.source, app.target, mergeRequestID,
		cmp.target.ContentTypes, cmp.target.Components, sink)

	outcomes, err := exec.Execute(ctx, p)
	if err != nil {
		if run.IsRunInProgress(err) {
			return NewExitError(ExitFailure, err.Error())
		}
		if ctx.Err() != nil {
			fmt.Fprintln(out, pendingColor.Sprint("run interrupted; applied items remain applied"))
			return NewExitError(ExitFailure, "run interrupted")
		}
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if !o.Success {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(out, "%s: %d of %d item(s) failed\n", errorColor.Sprint("sync finished with errors"), failed, len(outcomes))
		return NewExitError(ExitFailure, fmt.Sprintf("%d item(s) failed", failed))
	}
	fmt.Fprintf(out, "%s: %d item(s) applied\n", successColor.Sprint("sync complete"), len(outcomes))
	return nil
}

func renderEvent(out io.Writer, ev run.Event) {
	switch ev.Kind {
	case run.EventBatch:
		label := fmt.Sprintf("batch %d", ev.Batch)
		if ev.Message != "" {
			label = ev.Message
		}
		fmt.Fprintf(out, "== %s ==\n", label)
	case run.EventItem:
		switch ev.Status {
		case run.StatusInProgress:
			fmt.Fprintf(out, "  %-15s %s ...\n", ev.Operation, ev.ItemKey)
		case run.StatusSuccess:
			fmt.Fprintf(out, "  %-15s %s %s\n", ev.Operation, ev.ItemKey, successColor.Sprint("ok"))
		case run.StatusPending:
			fmt.Fprintf(out, "  %-15s %s %s\n", ev.Operation, ev.ItemKey, pendingColor.Sprint(ev.Message))
		case run.StatusError:
			fmt.Fprintf(out, "  %-15s %s %s: %s\n", ev.Operation, ev.ItemKey, errorColor.Sprint("failed"), ev.Message)
		}
	}
}
