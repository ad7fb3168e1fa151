package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMappingsCommand creates the mappings command group.
func NewMappingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect the persisted cross-instance document mappings",
	}
	cmd.AddCommand(newMappingsListCommand(rootOpts))
	cmd.AddCommand(newMappingsForgetCommand(rootOpts))
	return cmd
}

func newMappingsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every mapping toward the configured target instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			rows, err := app.store.AllMappings(cmd.Context(), app.target.InstanceID())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range rows {
				locale := m.Locale
				if locale == "" {
					locale = "-"
				}
				fmt.Fprintf(out, "%s  %s -> %s  (locale %s)\n", m.ContentType, m.SourceDocumentID, m.TargetDocumentID, locale)
			}
			fmt.Fprintf(out, "%d mapping(s)\n", len(rows))
			return nil
		},
	}
}

func newMappingsForgetCommand(rootOpts *RootOptions) *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "forget <content-type> <source-documentId>",
		Short: "Drop one mapping so the next sync treats the document as unseen",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.store.DeleteMapping(cmd.Context(), app.target.InstanceID(), args[0], args[1], locale); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot mapping %s/%s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "locale of the mapping row")
	return cmd
}
