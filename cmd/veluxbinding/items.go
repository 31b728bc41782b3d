package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-velux/internal/bridges/velux"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/config"
)

// itemsOptions holds flags for the items command.
type itemsOptions struct {
	ItemsFile string
	Import    bool
}

// newItemsCommand creates the items command.
func newItemsCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &itemsOptions{}

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List bound items and their capabilities",
		Long: `Resolve every entry of the items file against the item type catalog and
print it with its capabilities and refresh divider.

With --import the entries are written to the velux_items table of the
configured database, replacing its contents. Stored items are served by
the "sqlite" provider.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runItems(cmd.Context(), rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.ItemsFile, "items-file", "f", "", "items file (default: velux.items_file from config)")
	cmd.Flags().BoolVar(&opts.Import, "import", false, "replace the stored items with the file's entries")

	return cmd
}

func runItems(ctx context.Context, rootOpts *rootOptions, opts *itemsOptions, out io.Writer) error {
	var cfg *config.Config
	path := opts.ItemsFile
	if path == "" || opts.Import {
		var err error
		if cfg, err = config.Load(rootOpts.ConfigPath); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if path == "" {
			path = cfg.Velux.ItemsFile
		}
	}

	file, err := velux.LoadItemsFile(path)
	if err != nil {
		return err
	}
	providers, err := file.BuildProviders()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	registry := velux.NewRegistry()
	for _, p := range providers {
		registry.Add(p)
	}
	printItems(out, registry.Items())

	if !opts.Import {
		return nil
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // read-mostly CLI session

	store := velux.NewSQLiteProvider(db.DB, velux.DefaultSQLiteProvider, nil)
	if err := store.Seed(ctx, file.Items); err != nil {
		return fmt.Errorf("importing items: %w", err)
	}
	fmt.Fprintf(out, "imported %d items into %s\n", len(file.Items), cfg.Database.Path)
	return nil
}

// printItems writes one aligned row per item.
func printItems(out io.Writer, items []velux.BoundItem) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tITEM\tTYPE\tCAPABILITIES\tDIVIDER\tTHING")
	for _, it := range items {
		if !it.Valid {
			fmt.Fprintf(tw, "%s\t%s\t-\tinvalid\t-\t-\n", it.Provider, it.Name)
			continue
		}
		divider := "-"
		if it.Config.Type.IsRefreshable() {
			divider = fmt.Sprintf("%d", it.Config.Type.RefreshDivider)
		}
		thing := it.Config.Thing
		if thing == "" {
			thing = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.Provider, it.Name, it.Config.Type.Name, it.Config.Type.Capabilities, divider, thing)
	}
	tw.Flush() //nolint:errcheck // writes to a terminal or buffer
	fmt.Fprintf(out, "%d items\n", len(items))
}
