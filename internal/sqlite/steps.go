package sqlite

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/perch-health/healthstore/internal/request"
	"github.com/perch-health/healthstore/pkg/types"
)

// Compile-time interface check.
var _ RecordHelper = (*stepsHelper)(nil)

// stepsHelper maps StepsRecord to steps_record_table.
type stepsHelper struct {
	helperBase
}

func newStepsHelper(apps *appInfoTracker) *stepsHelper {
	return &stepsHelper{helperBase{
		recordType: types.RecordTypeSteps,
		table:      StepsRecordTable,
		timeColumn: ColumnStartTime,
		apps:       apps,
	}}
}

func (h *stepsHelper) UpsertRequest(rec types.Record, appInfoID int64) (*request.UpsertTableRequest, error) {
	steps, ok := rec.(*types.StepsRecord)
	if !ok {
		return nil, fmt.Errorf("%w: expected steps record, got %T", types.ErrInvalidData, rec)
	}
	if err := validateMetadata(steps.Meta()); err != nil {
		return nil, err
	}
	if steps.StartTimeMillis < 0 || steps.EndTimeMillis < steps.StartTimeMillis {
		return nil, fmt.Errorf("%w: steps interval [%d, %d]", types.ErrInvalidData,
			steps.StartTimeMillis, steps.EndTimeMillis)
	}
	if steps.Count < 0 {
		return nil, fmt.Errorf("%w: negative step count %d", types.ErrInvalidData, steps.Count)
	}

	cv := metadataContentValues(steps.Meta(), appInfoID)
	cv[ColumnStartTime] = steps.StartTimeMillis
	cv[ColumnEndTime] = steps.EndTimeMillis
	cv[ColumnCount] = steps.Count

	return request.NewUpsertTableRequest(StepsRecordTable, cv).
		WithRecordType(types.RecordTypeSteps).
		WithUniqueColumns(uniqueColumns()...).
		WithUpdateScope(ownerScope(appInfoID)), nil
}

func (h *stepsHelper) ScanRecord(row map[string]any) (types.Record, error) {
	return &types.StepsRecord{
		RecordMetadata:  scanMetadata(row),
		StartTimeMillis: cast.ToInt64(row[ColumnStartTime]),
		EndTimeMillis:   cast.ToInt64(row[ColumnEndTime]),
		Count:           cast.ToInt64(row[ColumnCount]),
	}, nil
}
