package request

// DeleteTableRequest builds a filtered DELETE, optionally preceded by a read
// of (id, package) so the caller can verify ownership and report deleted ids
// before the rows disappear. Child rows are never enumerated here: the
// schema's ON DELETE foreign keys propagate the delete.
type DeleteTableRequest struct {
	table               string
	recordType          string
	idColumn            string
	ids                 []string
	packageColumn       string
	appIDs              []int64
	timeColumn          string
	startTimeMillis     int64
	endTimeMillis       int64
	extraWhere          *WhereClauses
	enforcePackageCheck bool
}

// NewDeleteTableRequest returns a delete over table with no filters. An
// unfiltered request deletes the entire table; callers must guard against
// that explicitly, the request object does not refuse it.
func NewDeleteTableRequest(table string) *DeleteTableRequest {
	return &DeleteTableRequest{table: table, startTimeMillis: -1, endTimeMillis: -1}
}

// Table returns the target table name.
func (d *DeleteTableRequest) Table() string { return d.table }

// WithRecordType tags the request with the record type it deletes for.
func (d *DeleteTableRequest) WithRecordType(recordType string) *DeleteTableRequest {
	d.recordType = recordType
	return d
}

// RecordType returns the record type tag, empty if untagged.
func (d *DeleteTableRequest) RecordType() string { return d.recordType }

// SetIDFilter targets specific rows by their id column. Setting an id filter
// makes the pre-delete read mandatory so deleted ids can be reported back.
func (d *DeleteTableRequest) SetIDFilter(idColumn string, ids ...string) *DeleteTableRequest {
	d.idColumn = idColumn
	d.ids = append(d.ids, ids...)
	return d
}

// IDs returns the targeted ids, nil when the delete is filter-based.
func (d *DeleteTableRequest) IDs() []string { return d.ids }

// IDColumn returns the id column name set by SetIDFilter or
// EnforcePackageCheck.
func (d *DeleteTableRequest) IDColumn() string { return d.idColumn }

// SetPackageFilter restricts the delete to rows owned by the given app ids.
func (d *DeleteTableRequest) SetPackageFilter(packageColumn string, appIDs []int64) *DeleteTableRequest {
	d.packageColumn = packageColumn
	d.appIDs = appIDs
	return d
}

// PackageColumn returns the package column name, empty if unset.
func (d *DeleteTableRequest) PackageColumn() string { return d.packageColumn }

// SetTimeFilter restricts the delete to rows whose timeColumn lies in
// [startMillis, endMillis]. No-op when startMillis is negative or endMillis
// precedes startMillis.
func (d *DeleteTableRequest) SetTimeFilter(timeColumn string, startMillis, endMillis int64) *DeleteTableRequest {
	if startMillis < 0 || endMillis < startMillis {
		return d
	}
	d.timeColumn = timeColumn
	d.startTimeMillis = startMillis
	d.endTimeMillis = endMillis
	return d
}

// SetExtraClauses nests additional filter clauses ANDed with the built-in
// filters.
func (d *DeleteTableRequest) SetExtraClauses(extra *WhereClauses) *DeleteTableRequest {
	d.extraWhere = extra
	return d
}

// EnforcePackageCheck requires the pre-delete read to verify that every
// targeted row belongs to the expected packages before it is removed. The
// check is two statements by design, not one atomic delete.
func (d *DeleteTableRequest) EnforcePackageCheck(packageColumn, idColumn string) *DeleteTableRequest {
	d.enforcePackageCheck = true
	d.packageColumn = packageColumn
	d.idColumn = idColumn
	return d
}

// PackageCheckEnforced reports whether ownership verification was requested.
func (d *DeleteTableRequest) PackageCheckEnforced() bool { return d.enforcePackageCheck }

// RequiresRead reports whether a SELECT of (id, package) must run before the
// delete: true for id-targeted deletes and for package-ownership checks.
func (d *DeleteTableRequest) RequiresRead() bool {
	return d.enforcePackageCheck || len(d.ids) > 0
}

// DeleteCommand renders the DELETE statement. All filters compose with AND;
// every filter is optional.
func (d *DeleteTableRequest) DeleteCommand() string {
	return "DELETE FROM " + d.table + d.whereClauses().Get(true)
}

// ReadCommand renders the pre-delete read of (id, package) under the same
// filters as DeleteCommand.
func (d *DeleteTableRequest) ReadCommand() string {
	return "SELECT " + d.idColumn + ", " + d.packageColumn + " FROM " + d.table +
		d.whereClauses().Get(true)
}

func (d *DeleteTableRequest) whereClauses() *WhereClauses {
	w := NewWhereClauses(LogicalAnd)
	w.AddInLongs(d.packageColumn, d.appIDs)
	w.AddBetweenTime(d.timeColumn, d.startTimeMillis, d.endTimeMillis)
	w.AddIn(d.idColumn, d.ids)
	w.AddNested(d.extraWhere)
	return w
}
