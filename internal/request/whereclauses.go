// Package request builds the SQL statements executed by the healthstore
// storage layer. Every request type is a short-lived builder: it is
// constructed for one API call, rendered to SQL, and discarded. The builders
// never talk to the database themselves.
package request

import (
	"encoding/hex"
	"strings"

	"github.com/spf13/cast"
)

// LogicalOperator combines the direct children of one WhereClauses instance.
// Mixing operators requires nesting via AddNested.
type LogicalOperator string

// Supported logical operators.
const (
	LogicalAnd LogicalOperator = " AND "
	LogicalOr  LogicalOperator = " OR "
)

// WhereClauses is an ordered collection of predicate fragments combined by a
// single logical operator. All Add methods ignore null/empty/sentinel input
// and return the receiver, so callers can chain optional filters without
// pre-checking applicability.
type WhereClauses struct {
	op      LogicalOperator
	clauses []string
}

// NewWhereClauses returns an empty WhereClauses using the given operator.
func NewWhereClauses(op LogicalOperator) *WhereClauses {
	return &WhereClauses{op: op}
}

// AddEquals appends "column = 'value'". No-op when column or value is empty.
func (w *WhereClauses) AddEquals(column, value string) *WhereClauses {
	if column == "" || value == "" {
		return w
	}
	return w.add(column + " = " + literal(value))
}

// AddEqualsLong appends "column = value" for an integer value.
func (w *WhereClauses) AddEqualsLong(column string, value int64) *WhereClauses {
	if column == "" {
		return w
	}
	return w.add(column + " = " + literal(value))
}

// AddEqualsBlob appends a hex-encoded BLOB comparison. No-op when value is
// empty.
func (w *WhereClauses) AddEqualsBlob(column string, value []byte) *WhereClauses {
	if column == "" || len(value) == 0 {
		return w
	}
	return w.add(column + " = " + literal(value))
}

// AddIn appends "column IN ('a', 'b', ...)" with quoted values. No-op when
// the value list is empty.
func (w *WhereClauses) AddIn(column string, values []string) *WhereClauses {
	if column == "" || len(values) == 0 {
		return w
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = literal(v)
	}
	return w.add(column + " IN (" + strings.Join(quoted, ", ") + ")")
}

// AddInLongs appends "column IN (1, 2, ...)". No-op when the list is empty.
func (w *WhereClauses) AddInLongs(column string, values []int64) *WhereClauses {
	if column == "" || len(values) == 0 {
		return w
	}
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = literal(v)
	}
	return w.add(column + " IN (" + strings.Join(rendered, ", ") + ")")
}

// AddInWithoutQuotes appends an IN clause over values rendered verbatim.
// The caller owns the safety of the values; this is intended for column
// references and other already-rendered SQL, never for user input.
func (w *WhereClauses) AddInWithoutQuotes(column string, values []string) *WhereClauses {
	if column == "" || len(values) == 0 {
		return w
	}
	return w.add(column + " IN (" + strings.Join(values, ", ") + ")")
}

// AddInSubquery appends "column IN (<subquery>)" over a rendered read
// request. Used to scope child-table reads by a parent query.
func (w *WhereClauses) AddInSubquery(column string, sub *ReadTableRequest) *WhereClauses {
	if column == "" || sub == nil {
		return w
	}
	return w.add(column + " IN (" + sub.ReadCommand() + ")")
}

// AddBetweenTime appends "column BETWEEN start AND end" in unix millis.
// No-op when startMillis is negative or endMillis precedes startMillis, so
// callers can pass "no time filter" sentinels without branching.
func (w *WhereClauses) AddBetweenTime(column string, startMillis, endMillis int64) *WhereClauses {
	if column == "" || startMillis < 0 || endMillis < startMillis {
		return w
	}
	return w.add(column + " BETWEEN " + literal(startMillis) + " AND " + literal(endMillis))
}

// AddGreaterThan appends "column > value".
func (w *WhereClauses) AddGreaterThan(column string, value int64) *WhereClauses {
	if column == "" {
		return w
	}
	return w.add(column + " > " + literal(value))
}

// AddGreaterThanOrEqual appends "column >= value".
func (w *WhereClauses) AddGreaterThanOrEqual(column string, value int64) *WhereClauses {
	if column == "" {
		return w
	}
	return w.add(column + " >= " + literal(value))
}

// AddLessThan appends "column < value".
func (w *WhereClauses) AddLessThan(column string, value int64) *WhereClauses {
	if column == "" {
		return w
	}
	return w.add(column + " < " + literal(value))
}

// AddLessThanOrEqual appends "column <= value".
func (w *WhereClauses) AddLessThanOrEqual(column string, value int64) *WhereClauses {
	if column == "" {
		return w
	}
	return w.add(column + " <= " + literal(value))
}

// AddNested embeds another WhereClauses, possibly using the other logical
// operator, as one parenthesized fragment. This is how AND-of-ORs and
// OR-of-ANDs trees are built. No-op when other is nil or empty.
func (w *WhereClauses) AddNested(other *WhereClauses) *WhereClauses {
	if other == nil || len(other.clauses) == 0 {
		return w
	}
	return w.add("(" + other.body() + ")")
}

// Get renders the collected fragments. It returns "" when no fragments were
// added, so the result can always be concatenated onto a base query. With
// withWhere, the rendered string carries a leading " WHERE ".
func (w *WhereClauses) Get(withWhere bool) string {
	if w == nil || len(w.clauses) == 0 {
		return ""
	}
	if withWhere {
		return " WHERE " + w.body()
	}
	return " " + w.body()
}

// IsEmpty reports whether no fragments were added.
func (w *WhereClauses) IsEmpty() bool {
	return w == nil || len(w.clauses) == 0
}

func (w *WhereClauses) add(fragment string) *WhereClauses {
	w.clauses = append(w.clauses, fragment)
	return w
}

func (w *WhereClauses) body() string {
	return strings.Join(w.clauses, string(w.op))
}

// literal renders a Go value as a SQL literal. It is the single escaping
// chokepoint for every value that ends up inside a where clause: strings are
// quote-escaped, byte slices are hex-encoded, everything else is rendered
// numerically. Insert and update payloads never pass through here; they are
// bound as parameterized arguments by the executor.
func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(x)) + "'"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return cast.ToString(v)
	}
}
