package pgquery

import (
	"strings"

	"github.com/lib/pq"

	"github.com/emergent-company/typegraph/pkg/query"
)

// Record maps the paths of one record kind onto tables.
type Record[P query.Path] interface {
	// Base is the table rows of this kind are read from.
	Base() Source
	// Relations is the chain of joins needed to reach the table a path terminates in.
	Relations(path P) []Relation
	// Access is how the path reads its terminating table.
	Access(path P) Access
}

// SelectExpression is one entry of the select list.
type SelectExpression struct {
	Expression Expression
	Alias      string
}

func (s SelectExpression) Transpile(b *strings.Builder) {
	s.Expression.Transpile(b)
	if s.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(pq.QuoteIdentifier(s.Alias))
	}
}

// SelectStatement is a compiled SELECT.
type SelectStatement struct {
	Distinct bool
	Selects  []SelectExpression
	From     Source
	Joins    []Join
	Where    Where
}

func (s SelectStatement) Transpile(b *strings.Builder) {
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.Selects) == 0 {
		Asterisk{}.Transpile(b)
	}
	for i, sel := range s.Selects {
		if i > 0 {
			b.WriteString(", ")
		}
		sel.Transpile(b)
	}

	b.WriteString("\nFROM ")
	base := Table{Name: s.From.Name}
	if s.From.Window != nil {
		s.From.transpileAs(b, base)
	} else {
		base.Transpile(b)
	}

	for _, j := range s.Joins {
		b.WriteByte('\n')
		j.Transpile(b)
	}
	if len(s.Where) > 0 {
		b.WriteByte('\n')
		s.Where.Transpile(b)
	}
}

type aliasKey struct {
	table string
	depth int
}

// Compiler builds a SelectStatement for record kind P. Joins are shared by
// paths with an identical relation prefix; distinct prefixes that reach the
// same table at the same depth are aliased with increasing branch numbers.
type Compiler[P query.Path] struct {
	record     Record[P]
	statement  SelectStatement
	parameters []any
	joined     map[string]Table
	branches   map[aliasKey]int
}

// NewCompiler creates a compiler reading from the record's base table.
func NewCompiler[P query.Path](record Record[P]) *Compiler[P] {
	return &Compiler[P]{
		record:    record,
		statement: SelectStatement{From: record.Base()},
		joined:    make(map[string]Table),
		branches:  make(map[aliasKey]int),
	}
}

// BaseColumn is a plain column of the base table.
func (c *Compiler[P]) BaseColumn(name string) Column {
	return Column{Table: Table{Name: c.record.Base().Name}, Access: ColumnAccess(name)}
}

// Column joins whatever the path needs and returns the column it terminates in.
func (c *Compiler[P]) Column(path P) Column {
	table := c.join(c.record.Relations(path))
	column := Column{Table: table, Access: c.record.Access(path)}
	if column.Access.Kind == AccessJSONParameter {
		column.Parameter = c.bind(column.Access.Field)
	}
	return column
}

func (c *Compiler[P]) join(relations []Relation) Table {
	current := Table{Name: c.record.Base().Name}
	left := false
	var prefix strings.Builder
	for depth, relation := range relations {
		prefix.WriteString(relation.key())
		prefix.WriteByte('|')
		key := prefix.String()
		left = left || relation.ToMany
		if relation.ToMany {
			c.statement.Distinct = true
		}

		if existing, ok := c.joined[key]; ok {
			current = existing
			continue
		}

		ak := aliasKey{table: relation.Join.Name, depth: depth}
		branch := c.branches[ak]
		c.branches[ak] = branch + 1

		table := Table{Name: relation.Join.Name, Alias: &Alias{Depth: depth, Branch: branch}}
		c.statement.Joins = append(c.statement.Joins, Join{
			Source: relation.Join,
			Table:  table,
			On:     Column{Table: table, Access: ColumnAccess(relation.To)},
			Equals: Column{Table: current, Access: ColumnAccess(relation.From)},
			Left:   left,
		})
		c.joined[key] = table
		current = table
	}
	return current
}

func (c *Compiler[P]) bind(value any) int {
	c.parameters = append(c.parameters, value)
	return len(c.parameters)
}

// Select appends an expression to the select list and returns its position.
func (c *Compiler[P]) Select(expression Expression, alias string) int {
	c.statement.Selects = append(c.statement.Selects, SelectExpression{Expression: expression, Alias: alias})
	return len(c.statement.Selects) - 1
}

// SelectPath selects the value a path terminates in.
func (c *Compiler[P]) SelectPath(path P) int {
	return c.Select(c.Column(path), "")
}

// Where adds a filter as a top-level condition.
func (c *Compiler[P]) Where(filter query.Filter[P]) {
	c.AddCondition(c.CompileFilter(filter))
}

// AddCondition adds an already compiled top-level condition.
func (c *Compiler[P]) AddCondition(condition Condition) {
	c.statement.Where = append(c.statement.Where, condition)
}

// CompileFilter turns a filter into a condition, binding its parameters.
func (c *Compiler[P]) CompileFilter(filter query.Filter[P]) Condition {
	switch filter.Op {
	case query.OpAll:
		conditions := make(All, 0, len(filter.Filters))
		for _, f := range filter.Filters {
			conditions = append(conditions, c.CompileFilter(f))
		}
		return conditions
	case query.OpAny:
		conditions := make(Any, 0, len(filter.Filters))
		for _, f := range filter.Filters {
			conditions = append(conditions, c.CompileFilter(f))
		}
		return conditions
	case query.OpNotEqual:
		if column, ok := c.latestVersion(filter.Left, filter.Right); ok {
			return NotEqual{Left: column, Right: column.LatestVersion()}
		}
		left, right := c.comparison(filter.Left, filter.Right)
		return NotEqual{Left: left, Right: right}
	default:
		if column, ok := c.latestVersion(filter.Left, filter.Right); ok {
			return Equal{Left: column, Right: column.LatestVersion()}
		}
		left, right := c.comparison(filter.Left, filter.Right)
		return Equal{Left: left, Right: right}
	}
}

// latestVersion recognizes a version path compared against the text "latest".
func (c *Compiler[P]) latestVersion(left, right *query.FilterExpression[P]) (Column, bool) {
	for _, pair := range [][2]*query.FilterExpression[P]{{left, right}, {right, left}} {
		path, param := pair[0], pair[1]
		if path == nil || path.Path == nil || param == nil || param.Parameter == nil {
			continue
		}
		if c.record.Access(*path.Path).Version && param.Parameter.IsText(query.Latest) {
			return c.Column(*path.Path), true
		}
	}
	return Column{}, false
}

// comparison compiles both sides of an equality. A JSON field compared with a
// parameter or another JSON field is compared as jsonb, so numbers and
// booleans keep their type and 30 equals 30.0.
func (c *Compiler[P]) comparison(left, right *query.FilterExpression[P]) (Expression, Expression) {
	jsonb := (c.isJSON(left) && (c.isJSON(right) || isParameter(right))) ||
		(c.isJSON(right) && isParameter(left))
	return c.operand(left, jsonb), c.operand(right, jsonb)
}

func (c *Compiler[P]) isJSON(e *query.FilterExpression[P]) bool {
	return e != nil && e.Path != nil && c.record.Access(*e.Path).IsJSON()
}

func isParameter[P query.Path](e *query.FilterExpression[P]) bool {
	return e != nil && e.Path == nil && e.Parameter != nil
}

func (c *Compiler[P]) operand(e *query.FilterExpression[P], jsonb bool) Expression {
	switch {
	case e == nil:
		return nil
	case e.Path != nil:
		column := c.Column(*e.Path)
		column.JSONB = jsonb && column.Access.IsJSON()
		return column
	case e.Parameter != nil:
		if jsonb {
			return JSONParameter(c.bind(e.Parameter.JSON()))
		}
		return Parameter(c.bind(e.Parameter.Value()))
	default:
		return nil
	}
}

// Statement returns the statement built so far.
func (c *Compiler[P]) Statement() SelectStatement {
	return c.statement
}

// Compile renders the statement and returns it with its bound parameters.
func (c *Compiler[P]) Compile() (string, []any) {
	return Transpile(c.statement), c.parameters
}
