// Insert command writes records read from a JSON file.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	insertType string
	insertFile string
)

var insertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert or update records from a JSON file",
	Long: `Insert writes a JSON array of records of one type, on behalf of the
package named by --as. Records carrying a uuid update the stored record with
that identity; records without one are created.

Example:
  healthstore insert --type steps --file steps.json
  cat steps.json | healthstore insert --type steps --file - --as com.example.fit`,
	Args: cobra.NoArgs,
	RunE: runInsert,
}

func init() {
	insertCmd.Flags().StringVar(&insertType, "type", "", "record type (required)")
	insertCmd.Flags().StringVar(&insertFile, "file", "", "JSON file to read, - for stdin (required)")
	_ = insertCmd.MarkFlagRequired("type")
	_ = insertCmd.MarkFlagRequired("file")
}

func runInsert(cmd *cobra.Command, args []string) error {
	if err := checkRecordType(insertType); err != nil {
		return err
	}
	data, err := readInput(insertFile)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	records, err := parseRecords(insertType, data)
	if err != nil {
		return err
	}

	store, err := attachStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Detach()

	uuids, err := store.Insert(cmd.Context(), flagAs, records)
	if err != nil {
		return fmt.Errorf("insert records: %w", err)
	}

	if flagJSON {
		return printJSON(map[string]any{"uuids": uuids})
	}
	fmt.Printf("Inserted %d record(s)\n", len(uuids))
	for _, id := range uuids {
		fmt.Println(" ", id)
	}
	return nil
}
