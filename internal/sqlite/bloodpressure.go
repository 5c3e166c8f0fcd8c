package sqlite

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/perch-health/healthstore/internal/request"
	"github.com/perch-health/healthstore/pkg/types"
)

// Compile-time interface check.
var _ RecordHelper = (*bloodPressureHelper)(nil)

// bloodPressureHelper maps BloodPressureRecord to blood_pressure_record_table.
type bloodPressureHelper struct {
	helperBase
}

func newBloodPressureHelper(apps *appInfoTracker) *bloodPressureHelper {
	return &bloodPressureHelper{helperBase{
		recordType: types.RecordTypeBloodPressure,
		table:      BloodPressureTable,
		timeColumn: ColumnTime,
		apps:       apps,
	}}
}

func (h *bloodPressureHelper) UpsertRequest(rec types.Record, appInfoID int64) (*request.UpsertTableRequest, error) {
	bp, ok := rec.(*types.BloodPressureRecord)
	if !ok {
		return nil, fmt.Errorf("%w: expected blood pressure record, got %T", types.ErrInvalidData, rec)
	}
	if err := validateMetadata(bp.Meta()); err != nil {
		return nil, err
	}
	if bp.TimeMillis < 0 {
		return nil, fmt.Errorf("%w: negative record time %d", types.ErrInvalidData, bp.TimeMillis)
	}
	if bp.SystolicMmHg <= 0 || bp.DiastolicMmHg <= 0 {
		return nil, fmt.Errorf("%w: pressure %g/%g", types.ErrInvalidData,
			bp.SystolicMmHg, bp.DiastolicMmHg)
	}

	cv := metadataContentValues(bp.Meta(), appInfoID)
	cv[ColumnTime] = bp.TimeMillis
	cv[ColumnSystolic] = bp.SystolicMmHg
	cv[ColumnDiastolic] = bp.DiastolicMmHg

	return request.NewUpsertTableRequest(BloodPressureTable, cv).
		WithRecordType(types.RecordTypeBloodPressure).
		WithUniqueColumns(uniqueColumns()...).
		WithUpdateScope(ownerScope(appInfoID)), nil
}

func (h *bloodPressureHelper) ScanRecord(row map[string]any) (types.Record, error) {
	return &types.BloodPressureRecord{
		RecordMetadata: scanMetadata(row),
		TimeMillis:     cast.ToInt64(row[ColumnTime]),
		SystolicMmHg:   cast.ToFloat64(row[ColumnSystolic]),
		DiastolicMmHg:  cast.ToFloat64(row[ColumnDiastolic]),
	}, nil
}
