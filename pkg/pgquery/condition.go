package pgquery

import "strings"

// Condition is a boolean SQL expression.
type Condition interface {
	Transpiler
	isCondition()
}

// All is a conjunction. An empty All is TRUE.
type All []Condition

// Any is a disjunction. An empty Any is FALSE.
type Any []Condition

// Equal compares two expressions; a nil side is NULL.
type Equal struct {
	Left, Right Expression
}

// NotEqual compares two expressions; a nil side is NULL.
type NotEqual struct {
	Left, Right Expression
}

func (All) isCondition()      {}
func (Any) isCondition()      {}
func (Equal) isCondition()    {}
func (NotEqual) isCondition() {}

func (a All) Transpile(b *strings.Builder) {
	if len(a) == 0 {
		b.WriteString("TRUE")
		return
	}
	for i, c := range a {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteByte('(')
		c.Transpile(b)
		b.WriteByte(')')
	}
}

func (a Any) Transpile(b *strings.Builder) {
	if len(a) == 0 {
		b.WriteString("FALSE")
		return
	}
	b.WriteByte('(')
	for i, c := range a {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteByte('(')
		c.Transpile(b)
		b.WriteByte(')')
	}
	b.WriteByte(')')
}

func (e Equal) Transpile(b *strings.Builder) {
	transpileComparison(b, e.Left, e.Right, " = ", " IS NULL")
}

func (e NotEqual) Transpile(b *strings.Builder) {
	transpileComparison(b, e.Left, e.Right, " != ", " IS NOT NULL")
}

func transpileComparison(b *strings.Builder, left, right Expression, op, nullCheck string) {
	switch {
	case right == nil:
		transpileOptional(b, left)
		b.WriteString(nullCheck)
	case left == nil:
		right.Transpile(b)
		b.WriteString(nullCheck)
	default:
		left.Transpile(b)
		b.WriteString(op)
		right.Transpile(b)
	}
}

// Where is the list of top-level conditions of a statement.
type Where []Condition

func (w Where) Transpile(b *strings.Builder) {
	if len(w) == 0 {
		return
	}
	b.WriteString("WHERE ")
	for i, c := range w {
		if i > 0 {
			b.WriteString("\n  AND ")
		}
		c.Transpile(b)
	}
}
