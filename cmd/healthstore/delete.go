// Delete command removes records by UUID or filter.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perch-health/healthstore/pkg/types"
)

var (
	deleteType     string
	deleteUUIDs    []string
	deletePackages []string
	deleteStart    int64
	deleteEnd      int64
	deleteAll      bool
	deleteAnyOwner bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete records by UUID or filter",
	Long: `Delete removes the records matched by the filter. Without --any-owner,
records owned by other packages abort the delete. An unfiltered delete
removes every record of the type and requires --all.

Example:
  healthstore delete --type steps --uuid 0191e0a8-4c3f-7a1b-8f21-3e5d6c7b8a90
  healthstore delete --type steps --start 0 --end 1700000000000
  healthstore delete --type steps --all --any-owner`,
	Args: cobra.NoArgs,
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteType, "type", "", "record type (required)")
	deleteCmd.Flags().StringSliceVar(&deleteUUIDs, "uuid", nil, "record UUIDs to delete")
	deleteCmd.Flags().StringSliceVar(&deletePackages, "package", nil, "limit to records owned by these packages")
	deleteCmd.Flags().Int64Var(&deleteStart, "start", -1, "start of the time range, unix millis")
	deleteCmd.Flags().Int64Var(&deleteEnd, "end", -1, "end of the time range, unix millis")
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "allow an unfiltered delete of the whole type")
	deleteCmd.Flags().BoolVar(&deleteAnyOwner, "any-owner", false, "skip the ownership check")
	_ = deleteCmd.MarkFlagRequired("type")
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := checkRecordType(deleteType); err != nil {
		return err
	}
	filter := types.DeleteFilter{
		RecordType: deleteType,
		UUIDs:      deleteUUIDs,
		Packages:   deletePackages,
		Time:       types.TimeRange{StartMillis: deleteStart, EndMillis: deleteEnd},
	}
	if len(filter.UUIDs) == 0 && len(filter.Packages) == 0 && !filter.Time.IsSet() && !deleteAll {
		return fmt.Errorf("refusing an unfiltered delete; pass --all to delete every %s record", deleteType)
	}

	store, err := attachStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Detach()

	deleted, err := store.Delete(cmd.Context(), flagAs, filter, !deleteAnyOwner)
	if err != nil {
		return fmt.Errorf("delete records: %w", err)
	}

	if flagJSON {
		return printJSON(map[string]any{"deleted": deleted})
	}
	fmt.Printf("Deleted %d record(s)\n", len(deleted))
	return nil
}
