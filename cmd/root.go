// Package cmd implements the tierloop command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/tierloop/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "tierloop",
	Short: "Tiered diagnostic and remediation sessions",
	Long: "tierloop runs learners through recognition, comprehension and application bundles,\n" +
		"with remediation rounds for every missed question.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite event store (overrides TIERLOOP_DB)")
	rootCmd.PersistentFlags().String("bank", "", "Item bank file or directory (overrides TIERLOOP_BANK)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path: --db flag, then TIERLOOP_DB,
// then the default XDG path.
func resolveDBPath(cmd *cobra.Command, fromEnv string) (string, error) {
	p, _ := cmd.Flags().GetString("db")
	if p == "" {
		p = fromEnv
	}
	if p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
