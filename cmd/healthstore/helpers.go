// Shared helpers for healthstore CLI commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/perch-health/healthstore/internal/sqlite"
	"github.com/perch-health/healthstore/pkg/types"
)

// validRecordTypesStr is a comma-separated list of record types for error
// output.
var validRecordTypesStr = strings.Join(types.AllRecordTypes, ", ")

// attachStore resolves the data directory, creates a SQLite store, and
// attaches it. The caller must defer store.Detach().
func attachStore(ctx context.Context) (*sqlite.Store, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend:              types.BackendSQLite,
		DataDir:              dataDir,
		HistoricalAccessDays: configHistoricalDays,
	}

	store := sqlite.NewStore(newLogger())
	if err := store.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return store, nil
}

// newLogger builds the CLI logger: human-readable debug output with
// --verbose, silent otherwise.
func newLogger() *zap.Logger {
	if !flagVerbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// checkRecordType validates a --type flag value.
func checkRecordType(recordType string) error {
	for _, rt := range types.AllRecordTypes {
		if rt == recordType {
			return nil
		}
	}
	return fmt.Errorf("unknown record type %q (valid: %s)", recordType, validRecordTypesStr)
}

// parseRecords decodes a JSON array of records of one type.
func parseRecords(recordType string, data []byte) ([]types.Record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing record array: %w", err)
	}
	records := make([]types.Record, 0, len(raw))
	for i, payload := range raw {
		var rec types.Record
		switch recordType {
		case types.RecordTypeSteps:
			rec = &types.StepsRecord{}
		case types.RecordTypeHeartRate:
			rec = &types.HeartRateRecord{}
		case types.RecordTypeBloodPressure:
			rec = &types.BloodPressureRecord{}
		default:
			return nil, fmt.Errorf("unknown record type %q (valid: %s)", recordType, validRecordTypesStr)
		}
		if err := json.Unmarshal(payload, rec); err != nil {
			return nil, fmt.Errorf("parsing record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// readInput reads the given file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
