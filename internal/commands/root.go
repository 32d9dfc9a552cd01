// Package commands wires the import engine into a CLI.
package commands

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quidbooks/quidbooks/internal/config"
	"github.com/quidbooks/quidbooks/internal/store"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quidbooks",
		Short: "Bank statement import and reconciliation for self-assessment bookkeeping",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("business", "default", "business the command operates on")

	rootCmd.AddCommand(newDetectCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newUndoCommand())
	rootCmd.AddCommand(newLockCommand())
	rootCmd.AddCommand(newAnalyzeCommand())

	return rootCmd
}

// readStatement loads a CSV statement, returning the header row and the
// data rows. Ragged rows are tolerated; the parser decides what to do with
// short ones.
func readStatement(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read statement: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("statement %q is empty", path)
	}
	return all[0], all[1:], nil
}

// openStore opens the configured ledger database.
func openStore(cfg config.Config) (*store.Store, error) {
	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	return s, nil
}
