// Package integration provides shared test helpers for integration tests.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/perch-health/healthstore/internal/sqlite"
	"github.com/perch-health/healthstore/pkg/types"
)

const (
	pkgFit     = "com.example.fit"
	pkgTracker = "com.other.tracker"
)

// newAttachedStore creates a store attached to an isolated temp directory.
// Each test case gets its own store instance for isolation.
func newAttachedStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	dir := t.TempDir()
	return attachStoreAt(t, dir), dir
}

// attachStoreAt attaches a fresh store to an existing data directory, so
// tests can simulate detach/re-attach cycles against the same files.
func attachStoreAt(t *testing.T, dir string) *sqlite.Store {
	t.Helper()
	s := sqlite.NewStore(nil)
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir, HistoricalAccessDays: 30}
	require.NoError(t, s.Attach(context.Background(), cfg), "Attach must succeed")
	t.Cleanup(func() { s.Detach() })
	return s
}

// mustInsert inserts records on behalf of caller and returns their UUIDs.
func mustInsert(t *testing.T, s *sqlite.Store, caller string, records ...types.Record) []string {
	t.Helper()
	ids, err := s.Insert(context.Background(), caller, records)
	require.NoError(t, err, "Insert must succeed")
	require.Len(t, ids, len(records))
	return ids
}

// readAll drains every page of a read filter and returns the records.
func readAll(t *testing.T, s *sqlite.Store, caller string, filter types.ReadFilter) []types.Record {
	t.Helper()
	var out []types.Record
	for {
		page, next, err := s.Read(context.Background(), caller, filter, false)
		require.NoError(t, err, "Read must succeed")
		out = append(out, page...)
		if next == "" {
			return out
		}
		filter.PageToken = next
	}
}

func stepsRecord(start, end time.Duration, count int64) *types.StepsRecord {
	return &types.StepsRecord{
		StartTimeMillis: start.Milliseconds(),
		EndTimeMillis:   end.Milliseconds(),
		Count:           count,
	}
}

func heartRateRecord(start, end time.Duration, bpms ...int64) *types.HeartRateRecord {
	rec := &types.HeartRateRecord{
		StartTimeMillis: start.Milliseconds(),
		EndTimeMillis:   end.Milliseconds(),
	}
	for i, bpm := range bpms {
		rec.Samples = append(rec.Samples, types.HeartRateSample{
			EpochMillis:    start.Milliseconds() + int64(i)*1000,
			BeatsPerMinute: bpm,
		})
	}
	return rec
}

func bloodPressureRecord(at time.Duration, systolic, diastolic float64) *types.BloodPressureRecord {
	return &types.BloodPressureRecord{
		TimeMillis:    at.Milliseconds(),
		SystolicMmHg:  systolic,
		DiastolicMmHg: diastolic,
	}
}

// nowOffset returns a duration placing a record relative to the wall clock,
// so historical-access assertions hold no matter when the test runs.
func nowOffset(delta time.Duration) time.Duration {
	return time.Duration(time.Now().UnixMilli())*time.Millisecond + delta
}
