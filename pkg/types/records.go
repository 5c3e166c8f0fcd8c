package types

// Record type identifiers. Each identifier maps to one RecordHelper in the
// store and one main table in the schema.
const (
	RecordTypeSteps         = "steps"
	RecordTypeHeartRate     = "heart_rate"
	RecordTypeBloodPressure = "blood_pressure"
)

// AllRecordTypes lists every supported record type for enumeration.
var AllRecordTypes = []string{
	RecordTypeSteps,
	RecordTypeHeartRate,
	RecordTypeBloodPressure,
}

// Recording methods, stored per record since schema v2.
const (
	RecordingMethodUnknown               = "unknown"
	RecordingMethodActivelyRecorded      = "actively_recorded"
	RecordingMethodAutomaticallyRecorded = "automatically_recorded"
	RecordingMethodManualEntry           = "manual_entry"
)

// RecordMetadata carries the identity and provenance fields shared by every
// record type. UUID is the stable external identity; the storage-assigned
// row id never leaves the store.
type RecordMetadata struct {
	UUID               string `json:"uuid"`
	ClientRecordID     string `json:"client_record_id,omitempty"`
	PackageName        string `json:"package_name"`
	LastModifiedMillis int64  `json:"last_modified_millis"`
	RecordingMethod    string `json:"recording_method,omitempty"`
}

// Record is one health-data entry owned by one app and scoped by time.
type Record interface {
	// RecordType returns the record type identifier.
	RecordType() string

	// Meta returns the mutable metadata block of the record.
	Meta() *RecordMetadata
}

// StepsRecord is an interval record counting steps between two instants.
type StepsRecord struct {
	RecordMetadata
	StartTimeMillis int64 `json:"start_time_millis"`
	EndTimeMillis   int64 `json:"end_time_millis"`
	Count           int64 `json:"count"`
}

func (r *StepsRecord) RecordType() string    { return RecordTypeSteps }
func (r *StepsRecord) Meta() *RecordMetadata { return &r.RecordMetadata }

// HeartRateSample is one detail row within a HeartRateRecord. Sample identity
// is positional: samples are never addressed individually by callers.
type HeartRateSample struct {
	EpochMillis    int64 `json:"epoch_millis"`
	BeatsPerMinute int64 `json:"beats_per_minute"`
}

// HeartRateRecord is a series record owning zero or more samples stored in a
// child table.
type HeartRateRecord struct {
	RecordMetadata
	StartTimeMillis int64             `json:"start_time_millis"`
	EndTimeMillis   int64             `json:"end_time_millis"`
	Samples         []HeartRateSample `json:"samples"`
}

func (r *HeartRateRecord) RecordType() string    { return RecordTypeHeartRate }
func (r *HeartRateRecord) Meta() *RecordMetadata { return &r.RecordMetadata }

// BloodPressureRecord is an instant record taken at a single point in time.
type BloodPressureRecord struct {
	RecordMetadata
	TimeMillis    int64   `json:"time_millis"`
	SystolicMmHg  float64 `json:"systolic_mmhg"`
	DiastolicMmHg float64 `json:"diastolic_mmhg"`
}

func (r *BloodPressureRecord) RecordType() string    { return RecordTypeBloodPressure }
func (r *BloodPressureRecord) Meta() *RecordMetadata { return &r.RecordMetadata }
