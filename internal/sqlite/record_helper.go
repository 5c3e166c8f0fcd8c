package sqlite

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/perch-health/healthstore/internal/request"
	"github.com/perch-health/healthstore/pkg/types"
)

// RecordHelper is the per-record-type strategy: it knows the record type's
// main table, how to turn a record into write requests, and how to hydrate a
// stored row back into a record. Helpers also implement
// request.ReadRequestProvider so transaction-level reads can be composed
// without the request package knowing about concrete record types.
type RecordHelper interface {
	request.ReadRequestProvider

	// MainTable returns the table holding one row per record.
	MainTable() string

	// TimeColumn returns the column used for time filters, ordering, and
	// pagination cursors.
	TimeColumn() string

	// UpsertRequest builds the write request for one validated record owned
	// by the given app. Returns a wrapped types.ErrInvalidData on a record
	// that must not be stored.
	UpsertRequest(rec types.Record, appInfoID int64) (*request.UpsertTableRequest, error)

	// ScanRecord hydrates one main-table row into a record. Child rows are
	// attached separately by the executor for types that have them.
	ScanRecord(row map[string]any) (types.Record, error)
}

// childHydrator is implemented by helpers whose record type stores detail
// rows in a child table.
type childHydrator interface {
	// ChildReadRequest builds the read fetching every child row belonging to
	// the given parent rows.
	ChildReadRequest(parentRowIDs []int64) *request.ReadTableRequest

	// AttachChildRow folds one child row into its hydrated parent.
	AttachChildRow(parent types.Record, row map[string]any) error
}

// helperBase carries the pieces shared by every record helper: identity,
// package-to-app-id resolution, and the common read request composition.
type helperBase struct {
	recordType string
	table      string
	timeColumn string
	apps       *appInfoTracker
}

func (h *helperBase) RecordType() string { return h.recordType }
func (h *helperBase) MainTable() string  { return h.table }
func (h *helperBase) TimeColumn() string { return h.timeColumn }

// ReadTableRequest builds the filtered read shared by all record types:
// package scoping, time range, historical-access window, pagination cursor,
// deterministic ordering, and a limit of one extra row so the executor can
// detect whether another page exists.
func (h *helperBase) ReadTableRequest(filter types.ReadFilter, callerPackage string,
	enforceSelfRead bool, historicalAccessStartMillis int64) (*request.ReadTableRequest, error) {
	w := request.NewWhereClauses(request.LogicalAnd)

	packages := filter.Packages
	if enforceSelfRead {
		packages = []string{callerPackage}
	}
	if len(packages) > 0 {
		appIDs := h.apps.ids(packages)
		if len(appIDs) == 0 {
			appIDs = []int64{noMatchAppID}
		}
		w.AddInLongs(ColumnAppInfoID, appIDs)
	}
	if filter.Time.IsSet() {
		w.AddBetweenTime(h.timeColumn, filter.Time.StartMillis, filter.Time.EndMillis)
	}
	if !enforceSelfRead && historicalAccessStartMillis > 0 {
		// Other apps' records older than the window stay invisible; the
		// caller's own records are never aged out.
		window := request.NewWhereClauses(request.LogicalOr)
		if callerID, ok := h.apps.id(callerPackage); ok {
			window.AddEqualsLong(ColumnAppInfoID, callerID)
		}
		window.AddGreaterThanOrEqual(h.timeColumn, historicalAccessStartMillis)
		w.AddNested(window)
	}

	pageSize := normalizePageSize(filter.PageSize)
	limit := int64(pageSize) + 1
	ascending := filter.Ascending
	if filter.PageToken != "" {
		token, err := request.DecodePageToken(filter.PageToken)
		if err != nil {
			return nil, err
		}
		ascending = token.Ascending
		if ascending {
			w.AddGreaterThanOrEqual(h.timeColumn, token.TimeMillis)
		} else {
			w.AddLessThanOrEqual(h.timeColumn, token.TimeMillis)
		}
		// Rows consumed at the boundary time are re-read and skipped by the
		// executor; the limit grows to keep the page full.
		limit += token.Offset
	}

	orderBy := request.NewOrderByClause().
		Add(h.timeColumn, ascending).
		Add(ColumnRowID, ascending)

	return request.NewReadTableRequest(h.table).
		WithRecordType(h.recordType).
		WithWhere(w).
		WithOrderBy(orderBy).
		WithLimit(limit), nil
}

// ReadTableRequestByIDs builds a read scoped to specific record UUIDs,
// restricted to rows the caller owns.
func (h *helperBase) ReadTableRequestByIDs(callerPackage string, uuids []string) *request.ReadTableRequest {
	w := request.NewWhereClauses(request.LogicalAnd).AddIn(ColumnUUID, uuids)
	if callerID, ok := h.apps.id(callerPackage); ok {
		w.AddEqualsLong(ColumnAppInfoID, callerID)
	} else {
		w.AddEqualsLong(ColumnAppInfoID, noMatchAppID)
	}
	return request.NewReadTableRequest(h.table).
		WithRecordType(h.recordType).
		WithWhere(w)
}

// uniqueColumns returns the identity columns shared by every record table.
// Matching either one means the write addresses an existing logical row.
func uniqueColumns() []request.ColumnInfo {
	return []request.ColumnInfo{
		{Name: ColumnUUID, Type: request.ColumnTypeText},
		{Name: ColumnClientRecordID, Type: request.ColumnTypeText},
	}
}

// ownerScope restricts an upsert's existence match to rows the writing app
// owns. Without it, a client-supplied id reused by another app would address
// that app's row.
func ownerScope(appInfoID int64) *request.WhereClauses {
	return request.NewWhereClauses(request.LogicalAnd).AddEqualsLong(ColumnAppInfoID, appInfoID)
}

// metadataContentValues renders the metadata block shared by every record
// table into content values.
func metadataContentValues(meta *types.RecordMetadata, appInfoID int64) map[string]any {
	cv := map[string]any{
		ColumnUUID:             meta.UUID,
		ColumnAppInfoID:        appInfoID,
		ColumnLastModifiedTime: meta.LastModifiedMillis,
		ColumnRecordingMethod:  meta.RecordingMethod,
	}
	if meta.ClientRecordID != "" {
		cv[ColumnClientRecordID] = meta.ClientRecordID
	}
	return cv
}

// scanMetadata hydrates the shared metadata columns. PackageName is resolved
// by the executor, which owns the app-info mapping for the whole result set.
func scanMetadata(row map[string]any) types.RecordMetadata {
	return types.RecordMetadata{
		UUID:               cast.ToString(row[ColumnUUID]),
		ClientRecordID:     cast.ToString(row[ColumnClientRecordID]),
		LastModifiedMillis: cast.ToInt64(row[ColumnLastModifiedTime]),
		RecordingMethod:    cast.ToString(row[ColumnRecordingMethod]),
	}
}

// validateMetadata rejects records that must not reach a write request.
func validateMetadata(meta *types.RecordMetadata) error {
	if meta.UUID == "" {
		return fmt.Errorf("%w: record has no uuid", types.ErrInvalidData)
	}
	return nil
}

// normalizePageSize clamps the requested page size into the supported range.
func normalizePageSize(pageSize int) int {
	switch {
	case pageSize <= 0:
		return types.DefaultPageSize
	case pageSize > types.MaxPageSize:
		return types.MaxPageSize
	default:
		return pageSize
	}
}
