package types

import "errors"

// TimeRange bounds a read or delete by record time, in unix milliseconds.
// The zero value means "no time filter". A range is only applied when
// Start >= 0 and End >= Start; anything else is treated as unset so callers
// can pass sentinels without branching.
type TimeRange struct {
	StartMillis int64 `json:"start_millis"`
	EndMillis   int64 `json:"end_millis"`
}

// IsSet reports whether the range describes a usable time filter.
func (tr TimeRange) IsSet() bool {
	return tr.StartMillis >= 0 && tr.EndMillis >= tr.StartMillis && tr.EndMillis > 0
}

// Page size bounds for read-by-filter calls. A non-positive requested size
// falls back to the default; anything above the maximum is clamped.
const (
	DefaultPageSize = 1000
	MaxPageSize     = 5000
)

// ReadFilter describes one decoded read-by-filter API call for a single
// record type.
type ReadFilter struct {
	RecordType string
	// Packages limits results to records owned by these apps. Empty means
	// all apps the caller may read.
	Packages []string
	Time     TimeRange
	PageSize int
	// PageToken is the opaque cursor from a previous page, empty for the
	// first page.
	PageToken string
	Ascending bool
}

// DeleteFilter describes one decoded delete API call for a single record type.
type DeleteFilter struct {
	RecordType string
	// UUIDs targets specific records. When set, a pre-delete read runs so
	// ownership can be verified and deleted ids reported.
	UUIDs    []string
	Packages []string
	Time     TimeRange
}

// Changelog operations.
const (
	ChangeOperationUpsert = "UPSERT"
	ChangeOperationDelete = "DELETE"
)

// ChangeLog is one row of the append-only mutation log used for
// incremental sync.
type ChangeLog struct {
	RowID       int64  `json:"row_id"`
	UUID        string `json:"uuid"`
	RecordType  string `json:"record_type"`
	PackageName string `json:"package_name"`
	Operation   string `json:"operation"`
	TimeMillis  int64  `json:"time_millis"`
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Operation errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrNotOwned          = errors.New("record not owned by calling package")
	ErrUnknownRecordType = errors.New("unknown record type")
	ErrInvalidData       = errors.New("invalid record data")
	ErrInvalidFilter     = errors.New("invalid filter value")
	ErrInvalidPageToken  = errors.New("invalid page token")
)
