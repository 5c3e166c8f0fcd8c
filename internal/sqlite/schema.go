package sqlite

// Table names.
const (
	ApplicationInfoTable  = "application_info_table"
	StepsRecordTable      = "steps_record_table"
	HeartRateRecordTable  = "heart_rate_record_table"
	HeartRateSamplesTable = "heart_rate_samples_table"
	BloodPressureTable    = "blood_pressure_record_table"
	ChangeLogsTable       = "change_logs_table"
)

// Columns shared by every record table.
const (
	ColumnRowID            = "row_id"
	ColumnUUID             = "uuid"
	ColumnClientRecordID   = "client_record_id"
	ColumnAppInfoID        = "app_info_id"
	ColumnLastModifiedTime = "last_modified_time"
	ColumnRecordingMethod  = "recording_method"
)

// Columns specific to individual tables.
const (
	ColumnPackageName = "package_name"

	ColumnStartTime = "start_time"
	ColumnEndTime   = "end_time"
	ColumnCount     = "count"

	ColumnParentRowID    = "parent_row_id"
	ColumnEpochMillis    = "epoch_millis"
	ColumnBeatsPerMinute = "beats_per_minute"

	ColumnTime      = "time"
	ColumnSystolic  = "systolic"
	ColumnDiastolic = "diastolic"

	ColumnRecordType = "record_type"
	ColumnOperation  = "operation"
)

// noMatchAppID is used in package filters when none of the requested package
// names resolve to a known app. An empty IN list would widen the filter to
// every app, which is the opposite of what the caller asked for.
const noMatchAppID = int64(-1)
