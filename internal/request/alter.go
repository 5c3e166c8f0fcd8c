package request

import (
	"errors"
	"strings"
)

// ErrNotNullColumn rejects alter statements that would add a NOT NULL
// column. Adding NOT NULL to a table with existing rows is unsafe without a
// default, and the store has no migration-time backfill step.
var ErrNotNullColumn = errors.New("request: alter table must not add NOT NULL columns")

// ColumnDef describes one column for ALTER TABLE ... ADD COLUMN.
type ColumnDef struct {
	Name string
	// Type is the SQL column type, e.g. "INTEGER" or "TEXT".
	Type string
	// ForeignKey, when set, renders a REFERENCES parent(col) ON DELETE SET
	// NULL constraint on the added column.
	ForeignKey *TableColumnPair
}

// AlterTableRequest builds schema-migration ALTER TABLE statements.
type AlterTableRequest struct {
	table   string
	columns []ColumnDef
}

// NewAlterTableRequest returns a request adding columns to table.
func NewAlterTableRequest(table string, columns []ColumnDef) *AlterTableRequest {
	return &AlterTableRequest{table: table, columns: columns}
}

// Table returns the target table name.
func (a *AlterTableRequest) Table() string { return a.table }

// AddColumnCommands renders one ALTER TABLE statement per added column.
// SQLite historically rejected multi-column ADD COLUMN combined with
// constraints, so one statement per column is emitted unconditionally.
// Returns ErrNotNullColumn if any rendered statement would carry a NOT NULL
// constraint, checked case-insensitively over the full statement.
func (a *AlterTableRequest) AddColumnCommands() ([]string, error) {
	commands := make([]string, 0, len(a.columns))
	for _, col := range a.columns {
		var b strings.Builder
		b.WriteString("ALTER TABLE ")
		b.WriteString(a.table)
		b.WriteString(" ADD COLUMN ")
		b.WriteString(col.Name)
		b.WriteString(" ")
		b.WriteString(col.Type)
		if col.ForeignKey != nil {
			b.WriteString(" REFERENCES ")
			b.WriteString(col.ForeignKey.Table)
			b.WriteString("(")
			b.WriteString(col.ForeignKey.Column)
			b.WriteString(") ON DELETE SET NULL")
		}
		command := b.String()
		if strings.Contains(strings.ToUpper(command), "NOT NULL") {
			return nil, ErrNotNullColumn
		}
		commands = append(commands, command)
	}
	return commands, nil
}

// AddGeneratedColumnCommand renders an ALTER TABLE statement adding a
// generated column. Generated columns always have a computable value, so
// this narrower operation is exempt from the NOT NULL check.
func (a *AlterTableRequest) AddGeneratedColumnCommand(name, sqlType, expression string) string {
	return "ALTER TABLE " + a.table + " ADD COLUMN " + name + " " + sqlType +
		" GENERATED ALWAYS AS (" + expression + ")"
}
