package query

import (
	"context"
	"encoding/json"
	"fmt"
)

// ExpressionOp is the node type of an interpreted expression.
type ExpressionOp string

const (
	ExprEqual    ExpressionOp = "eq"
	ExprNotEqual ExpressionOp = "ne"
	ExprAll      ExpressionOp = "all"
	ExprAny      ExpressionOp = "any"
	ExprLiteral  ExpressionOp = "literal"
	ExprPath     ExpressionOp = "path"
)

// Expression is an untyped predicate tree evaluated in memory against a
// Resolvable record. Records without a compiled SQL mapping are read by
// scanning and evaluating one of these per row.
type Expression struct {
	Op       ExpressionOp
	Operands []Expression
	Literal  Literal
	Path     []PathSegment
}

func EqualExpr(operands ...Expression) Expression {
	return Expression{Op: ExprEqual, Operands: operands}
}

func NotEqualExpr(operands ...Expression) Expression {
	return Expression{Op: ExprNotEqual, Operands: operands}
}

func AllExpr(operands ...Expression) Expression {
	return Expression{Op: ExprAll, Operands: operands}
}

func AnyExpr(operands ...Expression) Expression {
	return Expression{Op: ExprAny, Operands: operands}
}

func LiteralExpr(l Literal) Expression {
	return Expression{Op: ExprLiteral, Literal: l}
}

func PathExpr(segments ...PathSegment) Expression {
	return Expression{Op: ExprPath, Path: segments}
}

// Evaluate resolves the expression against record.
func (e Expression) Evaluate(ctx context.Context, record Resolvable, reader RecordReader) (Literal, error) {
	switch e.Op {
	case ExprLiteral:
		return e.Literal, nil
	case ExprPath:
		return record.Resolve(ctx, e.Path, reader)
	case ExprEqual, ExprNotEqual:
		equal, err := e.allEqual(ctx, record, reader)
		if err != nil {
			return Literal{}, err
		}
		if e.Op == ExprNotEqual {
			return BoolLiteral(!equal), nil
		}
		return BoolLiteral(equal), nil
	case ExprAll:
		for _, operand := range e.Operands {
			ok, err := operand.Matches(ctx, record, reader)
			if err != nil {
				return Literal{}, err
			}
			if !ok {
				return BoolLiteral(false), nil
			}
		}
		return BoolLiteral(true), nil
	case ExprAny:
		for _, operand := range e.Operands {
			ok, err := operand.Matches(ctx, record, reader)
			if err != nil {
				return Literal{}, err
			}
			if ok {
				return BoolLiteral(true), nil
			}
		}
		return BoolLiteral(false), nil
	default:
		return Literal{}, fmt.Errorf("unknown expression operation %q", e.Op)
	}
}

// Matches evaluates the expression as a predicate.
func (e Expression) Matches(ctx context.Context, record Resolvable, reader RecordReader) (bool, error) {
	value, err := e.Evaluate(ctx, record, reader)
	if err != nil {
		return false, err
	}
	b, ok := value.AsBool()
	if !ok {
		return false, fmt.Errorf("%w: got %s", ErrNonBoolean, value)
	}
	return b, nil
}

func (e Expression) allEqual(ctx context.Context, record Resolvable, reader RecordReader) (bool, error) {
	if len(e.Operands) < 2 {
		return true, nil
	}
	first, err := e.Operands[0].Evaluate(ctx, record, reader)
	if err != nil {
		return false, err
	}
	for _, operand := range e.Operands[1:] {
		value, err := operand.Evaluate(ctx, record, reader)
		if err != nil {
			return false, err
		}
		if !first.Equal(value) {
			return false, nil
		}
	}
	return true, nil
}

// FilterToExpression converts a typed filter into the interpreter's form so
// the same filter tree can be evaluated in memory.
func FilterToExpression[P Path](f Filter[P]) Expression {
	switch f.Op {
	case OpAll, OpAny:
		operands := make([]Expression, len(f.Filters))
		for i, child := range f.Filters {
			operands[i] = FilterToExpression(child)
		}
		if f.Op == OpAll {
			return AllExpr(operands...)
		}
		return AnyExpr(operands...)
	case OpNotEqual:
		return NotEqualExpr(operandToExpression(f.Left), operandToExpression(f.Right))
	default:
		return EqualExpr(operandToExpression(f.Left), operandToExpression(f.Right))
	}
}

func operandToExpression[P Path](e *FilterExpression[P]) Expression {
	switch {
	case e == nil:
		return LiteralExpr(NullLiteral())
	case e.Path != nil:
		return PathExpr((*e.Path).Segments()...)
	case e.Parameter != nil:
		return LiteralExpr(e.Parameter.Literal())
	default:
		return LiteralExpr(NullLiteral())
	}
}

func (e Expression) MarshalJSON() ([]byte, error) {
	switch e.Op {
	case ExprLiteral:
		return json.Marshal(map[string]any{string(e.Op): e.Literal})
	case ExprPath:
		return json.Marshal(map[string]any{string(e.Op): Tokens(e.Path)})
	case ExprEqual, ExprNotEqual, ExprAll, ExprAny:
		operands := e.Operands
		if operands == nil {
			operands = []Expression{}
		}
		return json.Marshal(map[string]any{string(e.Op): operands})
	default:
		return nil, fmt.Errorf("unknown expression operation %q", e.Op)
	}
}

func (e *Expression) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("expression must be an object: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("expression must have exactly one operation, got %d", len(raw))
	}

	for key, body := range raw {
		op := ExpressionOp(key)
		switch op {
		case ExprLiteral:
			var l Literal
			if err := json.Unmarshal(body, &l); err != nil {
				return fmt.Errorf("literal: %w", err)
			}
			*e = LiteralExpr(l)
		case ExprPath:
			var tokens []string
			if err := json.Unmarshal(body, &tokens); err != nil {
				return fmt.Errorf("path: %w", err)
			}
			*e = PathExpr(Segments(tokens...)...)
		case ExprEqual, ExprNotEqual, ExprAll, ExprAny:
			var operands []Expression
			if err := json.Unmarshal(body, &operands); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*e = Expression{Op: op, Operands: operands}
		default:
			return fmt.Errorf("unknown variant `%s`, expected %s", key, ExpectingOneOf(
				string(ExprEqual), string(ExprNotEqual), string(ExprAll), string(ExprAny), string(ExprLiteral), string(ExprPath)))
		}
	}
	return nil
}
