package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewFilesCommand creates the files command group: operator overrides
// for media comparison.
func NewFilesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage media associations and exclusions",
	}
	cmd.AddCommand(newFilesAssociateCommand(rootOpts))
	cmd.AddCommand(newFilesExcludeCommand(rootOpts))
	cmd.AddCommand(newFilesIncludeCommand(rootOpts))
	return cmd
}

func newFilesAssociateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "associate <source-documentId> <target-documentId>",
		Short: "Pair a source and a target media document by hand",
		Long: `Record that a source media document corresponds to a target one even
though their identifiers and digests differ. The pair compares as a
match from then on.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			err = app.store.RecordFileAssociation(cmd.Context(),
				app.source.InstanceID(), app.target.InstanceID(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "associated %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func newFilesExcludeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <documentId>",
		Short: "Never propose this media document for sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.store.ExcludeFile(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "excluded %s\n", args[0])
			return nil
		},
	}
}

func newFilesIncludeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "include <documentId>",
		Short: "Remove a media document from the exclusion list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.store.IncludeFile(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "included %s\n", args[0])
			return nil
		},
	}
}
