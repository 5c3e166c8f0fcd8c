package sqlite

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/perch-health/healthstore/internal/request"
	"github.com/perch-health/healthstore/pkg/types"
)

// Compile-time interface checks.
var (
	_ RecordHelper  = (*heartRateHelper)(nil)
	_ childHydrator = (*heartRateHelper)(nil)
)

// heartRateHelper maps HeartRateRecord to heart_rate_record_table plus its
// samples child table. Samples have positional identity, so an update always
// wipes and rewrites the child rows.
type heartRateHelper struct {
	helperBase
}

func newHeartRateHelper(apps *appInfoTracker) *heartRateHelper {
	return &heartRateHelper{helperBase{
		recordType: types.RecordTypeHeartRate,
		table:      HeartRateRecordTable,
		timeColumn: ColumnStartTime,
		apps:       apps,
	}}
}

func (h *heartRateHelper) UpsertRequest(rec types.Record, appInfoID int64) (*request.UpsertTableRequest, error) {
	hr, ok := rec.(*types.HeartRateRecord)
	if !ok {
		return nil, fmt.Errorf("%w: expected heart rate record, got %T", types.ErrInvalidData, rec)
	}
	if err := validateMetadata(hr.Meta()); err != nil {
		return nil, err
	}
	if hr.StartTimeMillis < 0 || hr.EndTimeMillis < hr.StartTimeMillis {
		return nil, fmt.Errorf("%w: heart rate interval [%d, %d]", types.ErrInvalidData,
			hr.StartTimeMillis, hr.EndTimeMillis)
	}

	cv := metadataContentValues(hr.Meta(), appInfoID)
	cv[ColumnStartTime] = hr.StartTimeMillis
	cv[ColumnEndTime] = hr.EndTimeMillis

	children := make([]*request.UpsertTableRequest, 0, len(hr.Samples))
	for _, sample := range hr.Samples {
		if sample.BeatsPerMinute <= 0 {
			return nil, fmt.Errorf("%w: beats per minute %d", types.ErrInvalidData, sample.BeatsPerMinute)
		}
		children = append(children, request.NewUpsertTableRequest(HeartRateSamplesTable, map[string]any{
			ColumnEpochMillis:    sample.EpochMillis,
			ColumnBeatsPerMinute: sample.BeatsPerMinute,
		}).WithParentColumn(ColumnParentRowID))
	}

	return request.NewUpsertTableRequest(HeartRateRecordTable, cv).
		WithRecordType(types.RecordTypeHeartRate).
		WithUniqueColumns(uniqueColumns()...).
		WithUpdateScope(ownerScope(appInfoID)).
		WithChildRequests(children...).
		WithChildTablesToWipeOnUpdate(request.TableColumnPair{
			Table:  HeartRateSamplesTable,
			Column: ColumnParentRowID,
		}), nil
}

func (h *heartRateHelper) ScanRecord(row map[string]any) (types.Record, error) {
	return &types.HeartRateRecord{
		RecordMetadata:  scanMetadata(row),
		StartTimeMillis: cast.ToInt64(row[ColumnStartTime]),
		EndTimeMillis:   cast.ToInt64(row[ColumnEndTime]),
	}, nil
}

// ChildReadRequest fetches every sample belonging to the hydrated parents,
// ordered so samples land in their parents in insertion order.
func (h *heartRateHelper) ChildReadRequest(parentRowIDs []int64) *request.ReadTableRequest {
	return request.NewReadTableRequest(HeartRateSamplesTable).
		WithWhere(request.NewWhereClauses(request.LogicalAnd).
			AddInLongs(ColumnParentRowID, parentRowIDs)).
		WithOrderBy(request.NewOrderByClause().Add(ColumnRowID, true))
}

func (h *heartRateHelper) AttachChildRow(parent types.Record, row map[string]any) error {
	hr, ok := parent.(*types.HeartRateRecord)
	if !ok {
		return fmt.Errorf("%w: sample row attached to %T", types.ErrInvalidData, parent)
	}
	hr.Samples = append(hr.Samples, types.HeartRateSample{
		EpochMillis:    cast.ToInt64(row[ColumnEpochMillis]),
		BeatsPerMinute: cast.ToInt64(row[ColumnBeatsPerMinute]),
	})
	return nil
}
