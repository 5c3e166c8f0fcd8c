// Get command reads records by UUID.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getType string

var getCmd = &cobra.Command{
	Use:   "get UUID [UUID...]",
	Short: "Read records by UUID",
	Long: `Get reads the caller's records with the given UUIDs. UUIDs owned by
other packages are silently absent from the result.

Example:
  healthstore get --type steps 0191e0a8-4c3f-7a1b-8f21-3e5d6c7b8a90`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getType, "type", "", "record type (required)")
	_ = getCmd.MarkFlagRequired("type")
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := checkRecordType(getType); err != nil {
		return err
	}

	store, err := attachStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Detach()

	records, err := store.ReadByIDs(cmd.Context(), flagAs, getType, args)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}

	if flagJSON {
		return printJSON(records)
	}
	for _, rec := range records {
		printRecordSummary(rec)
	}
	fmt.Printf("%d of %d record(s) found\n", len(records), len(args))
	return nil
}
