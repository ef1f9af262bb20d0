package pgquery

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// AccessKind selects how a column is read.
type AccessKind int

const (
	// AccessColumn reads a plain column.
	AccessColumn AccessKind = iota
	// AccessJSONField reads a fixed text field of a JSON column.
	AccessJSONField
	// AccessJSONParameter reads a JSON field whose key is bound as a parameter.
	AccessJSONParameter
	// AccessVersionedURI concatenates base_uri and version into a versioned URI.
	AccessVersionedURI
)

// Access describes how a path terminates in its table.
type Access struct {
	Kind   AccessKind
	Column string
	Field  string
	// Version marks the version column of a windowed table, which can be
	// compared against "latest".
	Version bool
}

func ColumnAccess(column string) Access {
	return Access{Kind: AccessColumn, Column: column}
}

// VersionAccess is the version column of a windowed table.
func VersionAccess(column string) Access {
	return Access{Kind: AccessColumn, Column: column, Version: true}
}

func JSONFieldAccess(column, field string) Access {
	return Access{Kind: AccessJSONField, Column: column, Field: field}
}

func JSONParameterAccess(column, key string) Access {
	return Access{Kind: AccessJSONParameter, Column: column, Field: key}
}

// VersionedURIAccess renders base_uri || 'v/' || version.
func VersionedURIAccess() Access {
	return Access{Kind: AccessVersionedURI}
}

// Expression is a scalar SQL expression.
type Expression interface {
	Transpiler
	isExpression()
}

// Column is an access into a table.
type Column struct {
	Table  Table
	Access Access
	// Parameter is the placeholder index of the key of a JSON parameter access.
	Parameter int
	// JSONB reads a JSON access as jsonb (->) instead of text (->>).
	JSONB bool
}

func (Column) isExpression() {}

func (c Column) Transpile(b *strings.Builder) {
	switch c.Access.Kind {
	case AccessJSONField:
		c.qualified(b, c.Access.Column)
		b.WriteString(c.jsonOperator())
		b.WriteString(pq.QuoteLiteral(c.Access.Field))
	case AccessJSONParameter:
		c.qualified(b, c.Access.Column)
		fmt.Fprintf(b, "%s$%d", c.jsonOperator(), c.Parameter)
	case AccessVersionedURI:
		b.WriteByte('(')
		c.qualified(b, "base_uri")
		b.WriteString(" || 'v/' || ")
		c.qualified(b, "version")
		b.WriteByte(')')
	default:
		c.qualified(b, c.Access.Column)
	}
}

func (c Column) jsonOperator() string {
	if c.JSONB {
		return "->"
	}
	return "->>"
}

// IsJSON reports whether the column reads a field of a JSON document.
func (a Access) IsJSON() bool {
	return a.Kind == AccessJSONField || a.Kind == AccessJSONParameter
}

func (c Column) qualified(b *strings.Builder, name string) {
	c.Table.Transpile(b)
	b.WriteByte('.')
	b.WriteString(pq.QuoteIdentifier(name))
}

// Sibling returns a plain column on the same table.
func (c Column) Sibling(name string) Column {
	return Column{Table: c.Table, Access: ColumnAccess(name)}
}

// LatestVersion returns the window column holding the latest version of the row's partition.
func (c Column) LatestVersion() Column {
	return c.Sibling(LatestVersionColumn)
}

// Asterisk selects every column.
type Asterisk struct{}

func (Asterisk) isExpression() {}

func (Asterisk) Transpile(b *strings.Builder) { b.WriteByte('*') }

// Parameter is a 1-based positional placeholder.
type Parameter int

func (Parameter) isExpression() {}

func (p Parameter) Transpile(b *strings.Builder) { fmt.Fprintf(b, "$%d", int(p)) }

// JSONParameter is a placeholder bound to JSON text and cast to jsonb.
type JSONParameter int

func (JSONParameter) isExpression() {}

func (p JSONParameter) Transpile(b *strings.Builder) { fmt.Fprintf(b, "$%d::jsonb", int(p)) }

// FunctionName is an aggregate function.
type FunctionName string

const (
	FunctionMin FunctionName = "MIN"
	FunctionMax FunctionName = "MAX"
)

// Function applies an aggregate to an expression.
type Function struct {
	Name     FunctionName
	Argument Expression
}

func (Function) isExpression() {}

func (f Function) Transpile(b *strings.Builder) {
	b.WriteString(string(f.Name))
	b.WriteByte('(')
	f.Argument.Transpile(b)
	b.WriteByte(')')
}

// Window evaluates an expression over a partition.
type Window struct {
	Expression  Expression
	PartitionBy Column
}

func (Window) isExpression() {}

func (w Window) Transpile(b *strings.Builder) {
	w.Expression.Transpile(b)
	b.WriteString(" OVER (PARTITION BY ")
	w.PartitionBy.Transpile(b)
	b.WriteByte(')')
}

// transpileOptional renders a nil expression as NULL.
func transpileOptional(b *strings.Builder, e Expression) {
	if e == nil {
		b.WriteString("NULL")
		return
	}
	e.Transpile(b)
}
