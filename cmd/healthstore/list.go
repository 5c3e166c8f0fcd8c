// List command reads one page of records by filter.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perch-health/healthstore/pkg/types"
)

var (
	listType      string
	listPackages  []string
	listStart     int64
	listEnd       int64
	listPageSize  int
	listPageToken string
	listAscending bool
	listSelfOnly  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records of one type",
	Long: `List reads one page of records matching the filter. The next page
token, when printed, feeds the next call's --page-token.

Example:
  healthstore list --type steps
  healthstore list --type heart_rate --package com.example.fit --asc
  healthstore list --type steps --page-size 100 --page-token 12345`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "record type (required)")
	listCmd.Flags().StringSliceVar(&listPackages, "package", nil, "limit to records owned by these packages")
	listCmd.Flags().Int64Var(&listStart, "start", -1, "start of the time range, unix millis")
	listCmd.Flags().Int64Var(&listEnd, "end", -1, "end of the time range, unix millis")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "page size (default 1000, max 5000)")
	listCmd.Flags().StringVar(&listPageToken, "page-token", "", "token from a previous page")
	listCmd.Flags().BoolVar(&listAscending, "asc", false, "oldest records first")
	listCmd.Flags().BoolVar(&listSelfOnly, "self-only", false, "read only the caller's own records")
	_ = listCmd.MarkFlagRequired("type")
}

func runList(cmd *cobra.Command, args []string) error {
	if err := checkRecordType(listType); err != nil {
		return err
	}

	store, err := attachStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Detach()

	filter := types.ReadFilter{
		RecordType: listType,
		Packages:   listPackages,
		Time:       types.TimeRange{StartMillis: listStart, EndMillis: listEnd},
		PageSize:   listPageSize,
		PageToken:  listPageToken,
		Ascending:  listAscending,
	}
	records, nextToken, err := store.Read(cmd.Context(), flagAs, filter, listSelfOnly)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}

	if flagJSON {
		return printJSON(map[string]any{
			"records":         records,
			"next_page_token": nextToken,
		})
	}
	for _, rec := range records {
		printRecordSummary(rec)
	}
	fmt.Printf("%d record(s)\n", len(records))
	if nextToken != "" {
		fmt.Println("next page token:", nextToken)
	}
	return nil
}

// printRecordSummary writes one human-readable line per record.
func printRecordSummary(rec types.Record) {
	meta := rec.Meta()
	switch r := rec.(type) {
	case *types.StepsRecord:
		fmt.Printf("%s  %s  [%d, %d]  count=%d  (%s)\n",
			rec.RecordType(), meta.UUID, r.StartTimeMillis, r.EndTimeMillis, r.Count, meta.PackageName)
	case *types.HeartRateRecord:
		fmt.Printf("%s  %s  [%d, %d]  samples=%d  (%s)\n",
			rec.RecordType(), meta.UUID, r.StartTimeMillis, r.EndTimeMillis, len(r.Samples), meta.PackageName)
	case *types.BloodPressureRecord:
		fmt.Printf("%s  %s  [%d]  %g/%g mmHg  (%s)\n",
			rec.RecordType(), meta.UUID, r.TimeMillis, r.SystolicMmHg, r.DiastolicMmHg, meta.PackageName)
	default:
		fmt.Printf("%s  %s  (%s)\n", rec.RecordType(), meta.UUID, meta.PackageName)
	}
}
