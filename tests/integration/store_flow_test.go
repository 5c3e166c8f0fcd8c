// Integration tests for the public store API: attach/detach cycles,
// multi-type record flows, ownership enforcement, pagination, the
// changelog, and JSONL export/import between stores.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-health/healthstore/pkg/types"
)

func TestMultiTypeInsertAndRead(t *testing.T) {
	s, _ := newAttachedStore(t)

	mustInsert(t, s, pkgFit,
		stepsRecord(1*time.Hour, 2*time.Hour, 500),
		heartRateRecord(1*time.Hour, 2*time.Hour, 60, 62, 65),
		bloodPressureRecord(90*time.Minute, 120, 80),
	)

	for _, recordType := range types.AllRecordTypes {
		records := readAll(t, s, pkgFit, types.ReadFilter{RecordType: recordType, Ascending: true})
		require.Len(t, records, 1, "one %s record expected", recordType)
		meta := records[0].Meta()
		assert.NotEmpty(t, meta.UUID)
		assert.Equal(t, pkgFit, meta.PackageName)
		assert.Equal(t, types.RecordingMethodUnknown, meta.RecordingMethod)
	}

	hr := readAll(t, s, pkgFit, types.ReadFilter{RecordType: types.RecordTypeHeartRate, Ascending: true})
	samples := hr[0].(*types.HeartRateRecord).Samples
	require.Len(t, samples, 3)
	assert.Equal(t, int64(60), samples[0].BeatsPerMinute)
	assert.Equal(t, int64(65), samples[2].BeatsPerMinute)
}

func TestReinsertReplacesSamples(t *testing.T) {
	s, _ := newAttachedStore(t)

	rec := heartRateRecord(1*time.Hour, 2*time.Hour, 70, 72, 74, 76)
	rec.ClientRecordID = "morning-run"
	mustInsert(t, s, pkgFit, rec)

	// Same client record id, fewer samples: the old sample set must not
	// survive the update.
	again := heartRateRecord(1*time.Hour, 2*time.Hour, 71, 73)
	again.ClientRecordID = "morning-run"
	mustInsert(t, s, pkgFit, again)

	records := readAll(t, s, pkgFit, types.ReadFilter{RecordType: types.RecordTypeHeartRate, Ascending: true})
	require.Len(t, records, 1, "reinsert must update, not duplicate")
	samples := records[0].(*types.HeartRateRecord).Samples
	require.Len(t, samples, 2)
	assert.Equal(t, int64(71), samples[0].BeatsPerMinute)
	assert.Equal(t, int64(73), samples[1].BeatsPerMinute)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	s, _ := newAttachedStore(t)
	ctx := context.Background()

	ids := mustInsert(t, s, pkgFit, stepsRecord(1*time.Hour, 2*time.Hour, 100))
	mine := mustInsert(t, s, pkgTracker, stepsRecord(3*time.Hour, 4*time.Hour, 200))

	filter := types.DeleteFilter{RecordType: types.RecordTypeSteps, UUIDs: ids}
	_, err := s.Delete(ctx, pkgTracker, filter, true)
	require.ErrorIs(t, err, types.ErrNotOwned)

	// The foreign record survives an aborted delete.
	got, err := s.ReadByIDs(ctx, pkgFit, types.RecordTypeSteps, ids)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Deleting our own record works and reports its UUID.
	deleted, err := s.Delete(ctx, pkgTracker,
		types.DeleteFilter{RecordType: types.RecordTypeSteps, UUIDs: mine}, true)
	require.NoError(t, err)
	assert.Equal(t, mine, deleted)
}

func TestDeleteMissingUUIDFails(t *testing.T) {
	s, _ := newAttachedStore(t)

	filter := types.DeleteFilter{
		RecordType: types.RecordTypeSteps,
		UUIDs:      []string{"00000000-0000-0000-0000-000000000000"},
	}
	_, err := s.Delete(context.Background(), pkgFit, filter, true)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestPaginationAcrossPages(t *testing.T) {
	s, _ := newAttachedStore(t)

	var records []types.Record
	for i := int64(1); i <= 7; i++ {
		records = append(records, stepsRecord(time.Duration(i)*time.Hour, time.Duration(i+1)*time.Hour, i))
	}
	mustInsert(t, s, pkgFit, records...)

	filter := types.ReadFilter{RecordType: types.RecordTypeSteps, PageSize: 3, Ascending: true}
	var counts []int64
	pages := 0
	for {
		page, next, err := s.Read(context.Background(), pkgFit, filter, false)
		require.NoError(t, err)
		pages++
		for _, rec := range page {
			counts = append(counts, rec.(*types.StepsRecord).Count)
		}
		if next == "" {
			break
		}
		require.LessOrEqual(t, len(page), 3)
		filter.PageToken = next
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, counts, "pages must cover every record in time order")
}

func TestHistoricalAccessWindowAcrossApps(t *testing.T) {
	s, _ := newAttachedStore(t)

	old := stepsRecord(nowOffset(-45*24*time.Hour), nowOffset(-45*24*time.Hour+time.Hour), 11)
	recent := stepsRecord(nowOffset(-2*time.Hour), nowOffset(-time.Hour), 22)
	mustInsert(t, s, pkgFit, old, recent)

	// Another app only sees data inside the 30-day window.
	foreign := readAll(t, s, pkgTracker, types.ReadFilter{
		RecordType: types.RecordTypeSteps,
		Packages:   []string{pkgFit},
		Ascending:  true,
	})
	require.Len(t, foreign, 1)
	assert.Equal(t, int64(22), foreign[0].(*types.StepsRecord).Count)

	// The owner sees everything.
	own := readAll(t, s, pkgFit, types.ReadFilter{RecordType: types.RecordTypeSteps, Ascending: true})
	assert.Len(t, own, 2)
}

func TestChangeLogTracksMutations(t *testing.T) {
	s, _ := newAttachedStore(t)
	ctx := context.Background()

	ids := mustInsert(t, s, pkgFit,
		stepsRecord(1*time.Hour, 2*time.Hour, 10),
		bloodPressureRecord(90*time.Minute, 118, 76),
	)
	_, err := s.Delete(ctx, pkgFit,
		types.DeleteFilter{RecordType: types.RecordTypeSteps, UUIDs: ids[:1]}, true)
	require.NoError(t, err)

	logs, err := s.Changes(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, types.ChangeOperationUpsert, logs[0].Operation)
	assert.Equal(t, types.ChangeOperationUpsert, logs[1].Operation)
	assert.Equal(t, types.ChangeOperationDelete, logs[2].Operation)
	assert.Equal(t, ids[0], logs[2].UUID)
	assert.Equal(t, pkgFit, logs[2].PackageName)

	// Resuming from the last seen row id returns nothing new.
	tail, err := s.Changes(ctx, logs[2].RowID, 0)
	require.NoError(t, err)
	assert.Empty(t, tail)

	// Hydrating the page returns only the surviving upserted record.
	changed, err := s.ChangedRecords(ctx, pkgFit, logs)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, ids[1], changed[0].Meta().UUID)
	assert.Equal(t, types.RecordTypeBloodPressure, changed[0].RecordType())
}

func TestDataSurvivesReattach(t *testing.T) {
	s, dir := newAttachedStore(t)

	ids := mustInsert(t, s, pkgFit, heartRateRecord(1*time.Hour, 2*time.Hour, 58, 59))
	require.NoError(t, s.Detach())

	s2 := attachStoreAt(t, dir)
	records, err := s2.ReadByIDs(context.Background(), pkgFit, types.RecordTypeHeartRate, ids)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].(*types.HeartRateRecord).Samples, 2)
}

func TestExportImportBetweenStores(t *testing.T) {
	src, _ := newAttachedStore(t)
	ctx := context.Background()

	mustInsert(t, src, pkgFit,
		stepsRecord(1*time.Hour, 2*time.Hour, 300),
		heartRateRecord(2*time.Hour, 3*time.Hour, 80, 82),
	)
	mustInsert(t, src, pkgTracker, bloodPressureRecord(90*time.Minute, 130, 85))

	backupDir := t.TempDir()
	exported, err := src.Export(ctx, backupDir)
	require.NoError(t, err)
	assert.Equal(t, 3, exported)

	dst, _ := newAttachedStore(t)
	imported, err := dst.Import(ctx, backupDir)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	// Package attribution survives the round trip: each app still reads
	// its own records in the destination store.
	fit := readAll(t, dst, pkgFit, types.ReadFilter{RecordType: types.RecordTypeSteps, Ascending: true})
	require.Len(t, fit, 1)
	assert.Equal(t, pkgFit, fit[0].Meta().PackageName)

	bp := readAll(t, dst, pkgTracker, types.ReadFilter{RecordType: types.RecordTypeBloodPressure, Ascending: true})
	require.Len(t, bp, 1)
	assert.Equal(t, pkgTracker, bp[0].Meta().PackageName)
	assert.Equal(t, 130.0, bp[0].(*types.BloodPressureRecord).SystolicMmHg)

	hr := readAll(t, dst, pkgFit, types.ReadFilter{RecordType: types.RecordTypeHeartRate, Ascending: true})
	require.Len(t, hr, 1)
	assert.Len(t, hr[0].(*types.HeartRateRecord).Samples, 2)
}

func TestDetachedStoreRejectsOperations(t *testing.T) {
	s, _ := newAttachedStore(t)
	require.NoError(t, s.Detach())

	_, err := s.Insert(context.Background(), pkgFit, []types.Record{stepsRecord(0, time.Hour, 1)})
	require.ErrorIs(t, err, types.ErrStoreDetached)

	_, _, err = s.Read(context.Background(), pkgFit,
		types.ReadFilter{RecordType: types.RecordTypeSteps}, false)
	require.ErrorIs(t, err, types.ErrStoreDetached)

	// Detach is idempotent.
	require.NoError(t, s.Detach())
}
