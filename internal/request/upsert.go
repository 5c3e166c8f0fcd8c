package request

// TableColumnPair names a table and one of its columns.
type TableColumnPair struct {
	Table  string
	Column string
}

// ColumnType describes the SQL affinity of a uniqueness column.
type ColumnType int

// Column affinities used by uniqueness checks.
const (
	ColumnTypeText ColumnType = iota
	ColumnTypeInteger
	ColumnTypeReal
	ColumnTypeBlob
)

// ColumnInfo pairs a uniqueness column with its affinity.
type ColumnInfo struct {
	Name string
	Type ColumnType
}

// RequiresUpdateFunc decides whether a matched existing row needs a physical
// update. existing holds the stored row keyed by column name. Returning
// false skips the UPDATE (and the child-table rewrite) when the new content
// is already stored; this is an optimization hook, not a correctness
// requirement.
type RequiresUpdateFunc func(existing map[string]any, req *UpsertTableRequest) bool

// UpsertTableRequest builds insert-or-update intent for one row plus its
// child-table rows. "Upsert" here is an existence read followed by INSERT or
// UPDATE, never a native SQL upsert: child rows and changelog bookkeeping
// need the two phases.
type UpsertTableRequest struct {
	table              string
	recordType         string
	contentValues      map[string]any
	uniqueColumns      []ColumnInfo
	updateScope        *WhereClauses
	childRequests      []*UpsertTableRequest
	parentColumn       string
	parentRowID        int64
	parentBound        bool
	requiresUpdate     RequiresUpdateFunc
	childTablesToWipe  []TableColumnPair
	postUpsertCommands []string
}

// NewUpsertTableRequest returns a request writing contentValues to table.
// Without uniqueness columns the request is insert-only.
func NewUpsertTableRequest(table string, contentValues map[string]any) *UpsertTableRequest {
	return &UpsertTableRequest{table: table, contentValues: contentValues}
}

// Table returns the target table name.
func (u *UpsertTableRequest) Table() string { return u.table }

// WithRecordType tags the request with the record type it writes for.
func (u *UpsertTableRequest) WithRecordType(recordType string) *UpsertTableRequest {
	u.recordType = recordType
	return u
}

// RecordType returns the record type tag, empty if untagged.
func (u *UpsertTableRequest) RecordType() string { return u.recordType }

// WithUniqueColumns declares the columns whose values identify an existing
// logical row. Any one of them matching means "same row" (see ReadRequest).
func (u *UpsertTableRequest) WithUniqueColumns(columns ...ColumnInfo) *UpsertTableRequest {
	u.uniqueColumns = append(u.uniqueColumns, columns...)
	return u
}

// UniqueColumns returns the declared uniqueness columns.
func (u *UpsertTableRequest) UniqueColumns() []ColumnInfo { return u.uniqueColumns }

// WithUpdateScope adds predicates ANDed around the uniqueness OR-block.
// Callers use it to restrict existence matches to rows the writing app owns,
// so one app's client-supplied id can never address another app's row.
func (u *UpsertTableRequest) WithUpdateScope(scope *WhereClauses) *UpsertTableRequest {
	u.updateScope = scope
	return u
}

// InsertOnly reports whether the request can never update in place.
func (u *UpsertTableRequest) InsertOnly() bool { return len(u.uniqueColumns) == 0 }

// WithParentColumn declares the column of this (child) request's table that
// holds the parent's row id. The value is stamped by WithParentKey after the
// parent insert has assigned an id.
func (u *UpsertTableRequest) WithParentColumn(column string) *UpsertTableRequest {
	u.parentColumn = column
	return u
}

// WithChildRequests attaches child-table requests. Each child must have
// declared its parent column; the executor binds the parent row id via
// WithParentKey once known.
func (u *UpsertTableRequest) WithChildRequests(children ...*UpsertTableRequest) *UpsertTableRequest {
	u.childRequests = append(u.childRequests, children...)
	return u
}

// ChildRequests returns the attached child-table requests.
func (u *UpsertTableRequest) ChildRequests() []*UpsertTableRequest { return u.childRequests }

// WithRequiresUpdate installs the update-detection predicate. The default
// (nil) always updates.
func (u *UpsertTableRequest) WithRequiresUpdate(fn RequiresUpdateFunc) *UpsertTableRequest {
	u.requiresUpdate = fn
	return u
}

// WithChildTablesToWipeOnUpdate lists (table, parent-reference column) pairs
// whose rows must be purged before the new child set is inserted on update.
// Child row identity is positional, so delete-then-insert is the only way to
// avoid orphans when the new write carries fewer children than the old one.
func (u *UpsertTableRequest) WithChildTablesToWipeOnUpdate(pairs ...TableColumnPair) *UpsertTableRequest {
	u.childTablesToWipe = append(u.childTablesToWipe, pairs...)
	return u
}

// ChildTablesToWipeOnUpdate returns the declared wipe list. Empty on insert
// paths and for record types without child tables.
func (u *UpsertTableRequest) ChildTablesToWipeOnUpdate() []TableColumnPair {
	return u.childTablesToWipe
}

// WithPostUpsertCommands attaches SQL statements the executor runs after the
// row and its children are written, in order, inside the same transaction.
func (u *UpsertTableRequest) WithPostUpsertCommands(commands ...string) *UpsertTableRequest {
	u.postUpsertCommands = append(u.postUpsertCommands, commands...)
	return u
}

// PostUpsertCommands returns the attached post-upsert statements.
func (u *UpsertTableRequest) PostUpsertCommands() []string { return u.postUpsertCommands }

// WithParentKey returns a copy of the request bound to the parent's row id.
// The original is never mutated: binding happens between the parent insert
// and the child inserts, and the unbound request must stay reusable.
func (u *UpsertTableRequest) WithParentKey(rowID int64) *UpsertTableRequest {
	bound := *u
	bound.parentRowID = rowID
	bound.parentBound = true
	return &bound
}

// ContentValues returns a copy of the write payload for parameterized
// insert/update. When a parent key is bound, the parent row id is injected
// into the declared parent column.
func (u *UpsertTableRequest) ContentValues() map[string]any {
	cv := make(map[string]any, len(u.contentValues)+1)
	for k, v := range u.contentValues {
		cv[k] = v
	}
	if u.parentBound && u.parentColumn != "" {
		cv[u.parentColumn] = u.parentRowID
	}
	return cv
}

// SetContentValue overwrites one column of the write payload in place. The
// executor uses it to carry stored values into an update, e.g. keeping a
// matched row's uuid when the caller addressed it by client id.
func (u *UpsertTableRequest) SetContentValue(column string, value any) *UpsertTableRequest {
	u.contentValues[column] = value
	return u
}

// ReadRequest builds the existence-check read over the uniqueness columns.
func (u *UpsertTableRequest) ReadRequest() *ReadTableRequest {
	return NewReadTableRequest(u.table).WithWhere(u.UpdateWhereClauses())
}

// UpdateWhereClauses renders the uniqueness predicate used both by the
// existence read and by the UPDATE statement. Columns are ORed, not ANDed:
// any one of several unique identifiers matching (client-supplied id or
// UUID) means this is the same logical row. Columns absent from the content
// values, or carrying empty values, contribute nothing. When an update scope
// is set, the OR-block is ANDed with it so identity matches stay inside the
// scope's rows.
func (u *UpsertTableRequest) UpdateWhereClauses() *WhereClauses {
	w := NewWhereClauses(LogicalOr)
	for _, col := range u.uniqueColumns {
		v, ok := u.contentValues[col.Name]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		if b, isBlob := v.([]byte); isBlob && len(b) == 0 {
			continue
		}
		w.add(col.Name + " = " + literal(v))
	}
	if u.updateScope.IsEmpty() || w.IsEmpty() {
		return w
	}
	return NewWhereClauses(LogicalAnd).AddNested(u.updateScope).AddNested(w)
}

// RequiresUpdate reports whether the matched existing row needs a physical
// update, delegating to the installed predicate. Defaults to true.
func (u *UpsertTableRequest) RequiresUpdate(existing map[string]any) bool {
	if u.requiresUpdate == nil {
		return true
	}
	return u.requiresUpdate(existing, u)
}
