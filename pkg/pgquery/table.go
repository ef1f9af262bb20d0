// Package pgquery compiles query.Filter trees over typed paths into
// parameterized PostgreSQL SELECT statements.
package pgquery

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Transpiler renders itself as a fragment of SQL.
type Transpiler interface {
	Transpile(b *strings.Builder)
}

// Transpile renders t into a string.
func Transpile(t Transpiler) string {
	var b strings.Builder
	t.Transpile(&b)
	return b.String()
}

// Alias disambiguates repeated joins of the same table. Depth is the position
// of the join in its relation chain and Branch counts distinct chains that
// reach the same table at the same depth.
type Alias struct {
	Depth  int
	Branch int
}

// Table is a reference to a table, optionally through an alias.
type Table struct {
	Name  string
	Alias *Alias
}

// Reference is the name used to qualify columns of the table.
func (t Table) Reference() string {
	if t.Alias == nil {
		return t.Name
	}
	return fmt.Sprintf("%s_%d_%d", t.Name, t.Alias.Depth, t.Alias.Branch)
}

func (t Table) Transpile(b *strings.Builder) {
	b.WriteString(pq.QuoteIdentifier(t.Reference()))
}

// VersionWindow adds a "latest_version" column to a table holding the
// maximum version per partition.
type VersionWindow struct {
	Version     string
	PartitionBy string
}

// LatestVersionColumn is the name of the column added by a VersionWindow.
const LatestVersionColumn = "latest_version"

// Source is a table as it appears in a FROM or JOIN clause.
type Source struct {
	Name   string
	Window *VersionWindow
}

// transpileAs renders the source, wrapping windowed tables in a derived table
// named by ref.
func (s Source) transpileAs(b *strings.Builder, ref Table) {
	if s.Window == nil {
		b.WriteString(pq.QuoteIdentifier(s.Name))
		if ref.Alias != nil {
			b.WriteString(" AS ")
			ref.Transpile(b)
		}
		return
	}

	inner := Table{Name: s.Name}
	window := Window{
		Expression:  Function{Name: FunctionMax, Argument: Column{Table: inner, Access: ColumnAccess(s.Window.Version)}},
		PartitionBy: Column{Table: inner, Access: ColumnAccess(s.Window.PartitionBy)},
	}
	b.WriteString("(SELECT *, ")
	window.Transpile(b)
	b.WriteString(" AS ")
	b.WriteString(pq.QuoteIdentifier(LatestVersionColumn))
	b.WriteString(" FROM ")
	b.WriteString(pq.QuoteIdentifier(s.Name))
	b.WriteString(") AS ")
	ref.Transpile(b)
}

// Relation is one hop from the current table to a joined table.
type Relation struct {
	// From is the column on the current table.
	From string
	// Join is the table being joined.
	Join Source
	// To is the column on the joined table matched against From.
	To string
	// ToMany is set when the hop may match more than one row.
	ToMany bool
}

func (r Relation) key() string {
	return r.From + "->" + r.Join.Name + "." + r.To
}

// Join is a compiled relation with its resolved aliases.
type Join struct {
	Source Source
	Table  Table
	On     Column
	Equals Column
	Left   bool
}

func (j Join) Transpile(b *strings.Builder) {
	if j.Left {
		b.WriteString("LEFT JOIN ")
	} else {
		b.WriteString("JOIN ")
	}
	j.Source.transpileAs(b, j.Table)
	b.WriteString(" ON ")
	j.On.Transpile(b)
	b.WriteString(" = ")
	j.Equals.Transpile(b)
}
