package request

import (
	"strconv"
	"strings"
)

// UnionType selects how union members are combined. UNION ALL is the
// default: de-duplication is rarely needed across record tables and UNION
// pays a sort.
type UnionType string

// Supported union types.
const (
	UnionAll      UnionType = " UNION ALL "
	UnionDistinct UnionType = " UNION "
)

// ReadTableRequest builds one SELECT statement for a logical table,
// optionally joined, unioned with other requests, filtered, ordered, and
// limited.
type ReadTableRequest struct {
	table         string
	recordType    string
	columns       []string
	distinct      bool
	join          *SQLJoin
	where         *WhereClauses
	orderBy       *OrderByClause
	limit         int64
	unionType     UnionType
	unionRequests []*ReadTableRequest
	extraReads    []*ReadTableRequest
}

// NewReadTableRequest returns a request selecting every column of table.
func NewReadTableRequest(table string) *ReadTableRequest {
	return &ReadTableRequest{table: table, limit: -1, unionType: UnionAll}
}

// Table returns the primary table name.
func (r *ReadTableRequest) Table() string { return r.table }

// WithRecordType tags the request with the record type it reads for.
func (r *ReadTableRequest) WithRecordType(recordType string) *ReadTableRequest {
	r.recordType = recordType
	return r
}

// RecordType returns the record type tag, empty if untagged.
func (r *ReadTableRequest) RecordType() string { return r.recordType }

// WithColumns sets an explicit projection instead of the default "*".
func (r *ReadTableRequest) WithColumns(columns ...string) *ReadTableRequest {
	r.columns = columns
	return r
}

// Distinct marks the projection DISTINCT. Requires an explicit projection;
// rendering a DISTINCT request without one panics.
func (r *ReadTableRequest) Distinct() *ReadTableRequest {
	r.distinct = true
	return r
}

// WithJoin attaches a single join.
func (r *ReadTableRequest) WithJoin(join *SQLJoin) *ReadTableRequest {
	r.join = join
	return r
}

// WithWhere attaches the filter clauses.
func (r *ReadTableRequest) WithWhere(where *WhereClauses) *ReadTableRequest {
	r.where = where
	return r
}

// Where returns the attached filter clauses, nil if none.
func (r *ReadTableRequest) Where() *WhereClauses { return r.where }

// WithOrderBy attaches the ordering.
func (r *ReadTableRequest) WithOrderBy(orderBy *OrderByClause) *ReadTableRequest {
	r.orderBy = orderBy
	return r
}

// WithLimit caps the result row count. Negative means no limit.
func (r *ReadTableRequest) WithLimit(limit int64) *ReadTableRequest {
	r.limit = limit
	return r
}

// WithUnionType overrides the union flavor used for union members.
// Panics on an unknown union type.
func (r *ReadTableRequest) WithUnionType(t UnionType) *ReadTableRequest {
	if t != UnionAll && t != UnionDistinct {
		panic("request: invalid union type " + strconv.Quote(string(t)))
	}
	r.unionType = t
	return r
}

// WithUnionRequests attaches further requests unioned beneath this one.
// Union members render before the primary query; the primary is always last.
func (r *ReadTableRequest) WithUnionRequests(requests ...*ReadTableRequest) *ReadTableRequest {
	r.unionRequests = append(r.unionRequests, requests...)
	return r
}

// WithExtraReadRequests attaches auxiliary requests that the executor runs
// as separate statements after the primary read, e.g. to hydrate child rows.
// They are never rendered into this request's SQL.
func (r *ReadTableRequest) WithExtraReadRequests(requests ...*ReadTableRequest) *ReadTableRequest {
	r.extraReads = append(r.extraReads, requests...)
	return r
}

// ExtraReadRequests returns the attached auxiliary requests.
func (r *ReadTableRequest) ExtraReadRequests() []*ReadTableRequest { return r.extraReads }

// ReadCommand renders the SELECT statement.
func (r *ReadTableRequest) ReadCommand() string {
	var query string
	if r.join != nil {
		// The outer projection is applied around an inner SELECT * so the
		// join predicate operates on the full row.
		query = r.join.QueryCommand(r.selectClause(), r.buildQuery("SELECT * FROM "))
	} else {
		query = r.buildQuery(r.selectClause())
	}
	if len(r.unionRequests) == 0 {
		return query
	}
	var b strings.Builder
	for _, u := range r.unionRequests {
		b.WriteString("SELECT * FROM ( ")
		b.WriteString(u.ReadCommand())
		b.WriteString(" )")
		b.WriteString(string(r.unionType))
	}
	b.WriteString(query)
	return b.String()
}

func (r *ReadTableRequest) selectClause() string {
	if r.distinct && len(r.columns) == 0 {
		// SELECT DISTINCT * almost never expresses intended semantics over
		// record tables; treat it as a caller bug.
		panic("request: DISTINCT requires an explicit column projection")
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if r.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(r.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(r.columns, ", "))
	}
	b.WriteString(" FROM ")
	return b.String()
}

func (r *ReadTableRequest) buildQuery(selectClause string) string {
	var b strings.Builder
	b.WriteString(selectClause)
	b.WriteString(r.table)
	b.WriteString(r.where.Get(true))
	b.WriteString(r.orderBy.OrderBy())
	if r.limit >= 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatInt(r.limit, 10))
	}
	return b.String()
}
