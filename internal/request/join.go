package request

// JoinType selects the SQL join flavor.
type JoinType string

// Supported join types.
const (
	JoinInner JoinType = "INNER JOIN"
	JoinLeft  JoinType = "LEFT JOIN"
)

// SQLJoin joins one table onto a request's primary table on a single column
// pair. The join always wraps the unprojected inner query (see QueryCommand)
// so the ON predicate can reference every column of the primary table, not
// just the ones the caller asked to project.
type SQLJoin struct {
	selfTable  string
	joinTable  string
	selfColumn string
	joinColumn string
	joinType   JoinType
}

// NewSQLJoin returns an inner join of joinTable onto selfTable, matching
// selfTable.selfColumn against joinTable.joinColumn.
func NewSQLJoin(selfTable, joinTable, selfColumn, joinColumn string) *SQLJoin {
	return &SQLJoin{
		selfTable:  selfTable,
		joinTable:  joinTable,
		selfColumn: selfColumn,
		joinColumn: joinColumn,
		joinType:   JoinInner,
	}
}

// WithType overrides the join flavor.
func (j *SQLJoin) WithType(t JoinType) *SQLJoin {
	j.joinType = t
	return j
}

// JoinCommand renders the join fragment with a leading space:
// " INNER JOIN joined ON self.col = joined.col".
func (j *SQLJoin) JoinCommand() string {
	return " " + string(j.joinType) + " " + j.joinTable +
		" ON " + j.selfTable + "." + j.selfColumn +
		" = " + j.joinTable + "." + j.joinColumn
}

// QueryCommand wraps innerQuery as a derived table aliased to the primary
// table name and attaches the join. selectClause must end in "FROM " and
// carries the outer projection; innerQuery must select every column.
func (j *SQLJoin) QueryCommand(selectClause, innerQuery string) string {
	return selectClause + "( " + innerQuery + " ) AS " + j.selfTable + j.JoinCommand()
}
