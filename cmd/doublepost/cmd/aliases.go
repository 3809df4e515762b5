package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"doublepost/internal/aliases"
	"doublepost/pkg/logger"
)

var similarThreshold float64

// aliasesCmd groups the merchant alias management subcommands.
var aliasesCmd = &cobra.Command{
	Use:   "aliases",
	Short: "Manage the merchant alias database",
	Long: `Aliases map raw statement descriptions to a merchant's primary name so
that differently-worded descriptions reconcile against each other. Lookups
during matching are exact; use "aliases similar" to discover near-duplicates
worth adding.

Examples:
  doublepost aliases add "TJ'S #552" "Trader Joe's" --aliases-db aliases.db
  doublepost aliases list --aliases-db aliases.db
  doublepost aliases similar "trader joes" --aliases-db aliases.db
  doublepost aliases delete "TJ'S #552" --aliases-db aliases.db`,
}

var aliasesAddCmd = &cobra.Command{
	Use:   "add <alias> <primary-name>",
	Short: "Add or update an alias",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAliasStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Add(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Alias %q -> %q stored\n", args[0], args[1])
		return nil
	},
}

var aliasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all aliases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAliasStore()
		if err != nil {
			return err
		}
		defer store.Close()

		all, err := store.List(context.Background())
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("No aliases stored")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ALIAS\tPRIMARY NAME\tUSES")
		for _, a := range all {
			fmt.Fprintf(w, "%s\t%s\t%d\n", a.Name, a.PrimaryName, a.UsageCount)
		}
		return w.Flush()
	},
}

var aliasesDeleteCmd = &cobra.Command{
	Use:   "delete <alias>",
	Short: "Delete an alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAliasStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Alias %q deleted\n", args[0])
		return nil
	},
}

var aliasesSimilarCmd = &cobra.Command{
	Use:   "similar <description>",
	Short: "Find stored aliases similar to a description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAliasStore()
		if err != nil {
			return err
		}
		defer store.Close()

		matches, err := store.FindSimilar(context.Background(), args[0], similarThreshold)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No similar aliases found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SIMILARITY\tALIAS\tPRIMARY NAME")
		for _, m := range matches {
			fmt.Fprintf(w, "%.2f\t%s\t%s\n", m.Similarity, m.Alias.Name, m.Alias.PrimaryName)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(aliasesCmd)
	aliasesCmd.AddCommand(aliasesAddCmd, aliasesListCmd, aliasesDeleteCmd, aliasesSimilarCmd)

	aliasesSimilarCmd.Flags().Float64Var(&similarThreshold, "threshold", 0.5, "minimum similarity (0.0-1.0)")
}

func openAliasStore() (*aliases.Store, error) {
	dbPath := viper.GetString("aliases-db")
	if dbPath == "" {
		return nil, fmt.Errorf("aliases-db is required (pass --aliases-db or set DOUBLEPOST_ALIASES_DB)")
	}
	return aliases.Open(dbPath, logger.GetGlobalLogger())
}
