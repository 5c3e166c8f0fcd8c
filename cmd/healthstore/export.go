// Export and import commands for JSONL backups.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	exportDir string
	importDir string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every record to a JSONL file",
	Long: `Export writes every stored record, all packages included, to
records.jsonl in the given directory.

Example:
  healthstore export --dir ./backup`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Detach()

		count, err := store.Export(cmd.Context(), exportDir)
		if err != nil {
			return fmt.Errorf("export records: %w", err)
		}
		fmt.Printf("Exported %d record(s) to %s\n", count, exportDir)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import records from a JSONL export",
	Long: `Import upserts every record found in records.jsonl in the given
directory, preserving each record's original package attribution.

Example:
  healthstore import --dir ./backup`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Detach()

		count, err := store.Import(cmd.Context(), importDir)
		if err != nil {
			return fmt.Errorf("import records: %w", err)
		}
		fmt.Printf("Imported %d record(s) from %s\n", count, importDir)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", ".", "directory to write the export to")
	importCmd.Flags().StringVar(&importDir, "dir", ".", "directory holding records.jsonl")
}
