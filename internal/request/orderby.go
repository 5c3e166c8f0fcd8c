package request

import "strings"

// OrderByClause is an ordered list of (column, direction) pairs.
type OrderByClause struct {
	terms []string
}

// NewOrderByClause returns an empty OrderByClause.
func NewOrderByClause() *OrderByClause {
	return &OrderByClause{}
}

// Add appends one ordering term. No-op when column is empty.
func (o *OrderByClause) Add(column string, ascending bool) *OrderByClause {
	if column == "" {
		return o
	}
	direction := " DESC"
	if ascending {
		direction = " ASC"
	}
	o.terms = append(o.terms, column+direction)
	return o
}

// OrderBy renders "" when no terms were added, otherwise
// " ORDER BY c1 ASC, c2 DESC" with a leading space for concatenation.
func (o *OrderByClause) OrderBy() string {
	if o == nil || len(o.terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(o.terms, ", ")
}
