package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/perch-health/healthstore/pkg/types"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := attachedStore(t, testConfig(t))

	hr := &types.HeartRateRecord{
		StartTimeMillis: 1000,
		EndTimeMillis:   2000,
		Samples:         []types.HeartRateSample{{EpochMillis: 1200, BeatsPerMinute: 64}},
	}
	if _, err := source.Insert(ctx, testPackageFit, []types.Record{
		stepsRecord(1000, 2000, 30),
		hr,
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := source.Insert(ctx, testPackageOther, []types.Record{
		&types.BloodPressureRecord{TimeMillis: 1500, SystolicMmHg: 120, DiastolicMmHg: 80},
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	exportDir := t.TempDir()
	count, err := source.Export(ctx, exportDir)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if count != 3 {
		t.Errorf("exported %d records, want 3", count)
	}

	target := attachedStore(t, testConfig(t))
	imported, err := target.Import(ctx, exportDir)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported != 3 {
		t.Errorf("imported %d records, want 3", imported)
	}

	// Package attribution survives the round trip.
	records, _, err := target.Read(ctx, testPackageOther, types.ReadFilter{
		RecordType: types.RecordTypeBloodPressure,
		Packages:   []string{testPackageOther},
	}, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(records) != 1 || records[0].(*types.BloodPressureRecord).SystolicMmHg != 120 {
		t.Errorf("blood pressure records = %v", records)
	}

	// Child rows survive too.
	hrRecords, _, err := target.Read(ctx, testPackageFit, types.ReadFilter{
		RecordType: types.RecordTypeHeartRate,
	}, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(hrRecords) != 1 || len(hrRecords[0].(*types.HeartRateRecord).Samples) != 1 {
		t.Errorf("heart rate records = %v", hrRecords)
	}
}

func TestImportSkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	content := `not json at all
{"record_type": "bogus", "record": {}}
{"record_type": "steps", "record": {"uuid": "s-1", "package_name": "com.example.fit", "start_time_millis": 100, "end_time_millis": 200, "count": 7}}
`
	if err := os.WriteFile(filepath.Join(dir, exportFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := attachedStore(t, testConfig(t))
	imported, err := s.Import(ctx, dir)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported != 1 {
		t.Errorf("imported %d, want 1: malformed lines are skipped", imported)
	}

	records, err := s.ReadByIDs(ctx, testPackageFit, types.RecordTypeSteps, []string{"s-1"})
	if err != nil {
		t.Fatalf("ReadByIDs failed: %v", err)
	}
	if len(records) != 1 || records[0].(*types.StepsRecord).Count != 7 {
		t.Errorf("records = %v", records)
	}
}

func TestImportMissingFile(t *testing.T) {
	s := attachedStore(t, testConfig(t))
	if _, err := s.Import(context.Background(), t.TempDir()); err == nil {
		t.Error("Import of a missing file must fail")
	}
}
