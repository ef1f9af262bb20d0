package query

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FilterOp is the node type of a filter tree.
type FilterOp string

const (
	OpAll      FilterOp = "all"
	OpAny      FilterOp = "any"
	OpEqual    FilterOp = "equal"
	OpNotEqual FilterOp = "notEqual"
)

// Filter is a predicate over records addressed by paths of type P.
//
// JSON form:
//
//	{"all": [<filter>, ...]}
//	{"any": [<filter>, ...]}
//	{"equal": [<operand>, <operand>]}
//	{"notEqual": [<operand>, <operand>]}
//
// where an operand is null, {"path": [<token>, ...]} or {"parameter": <value>}.
type Filter[P Path] struct {
	Op      FilterOp
	Filters []Filter[P]
	Left    *FilterExpression[P]
	Right   *FilterExpression[P]
}

// FilterExpression is one side of a comparison. A nil *FilterExpression is SQL NULL.
type FilterExpression[P Path] struct {
	Path      *P
	Parameter *Parameter
}

// PathOperand wraps a path as a comparison operand.
func PathOperand[P Path](path P) *FilterExpression[P] {
	return &FilterExpression[P]{Path: &path}
}

// ParameterOperand wraps a parameter as a comparison operand.
func ParameterOperand[P Path](p Parameter) *FilterExpression[P] {
	return &FilterExpression[P]{Parameter: &p}
}

// All matches when every filter matches; an empty All matches everything.
func All[P Path](filters ...Filter[P]) Filter[P] {
	return Filter[P]{Op: OpAll, Filters: filters}
}

// Any matches when at least one filter matches; an empty Any matches nothing.
func Any[P Path](filters ...Filter[P]) Filter[P] {
	return Filter[P]{Op: OpAny, Filters: filters}
}

func Equal[P Path](left, right *FilterExpression[P]) Filter[P] {
	return Filter[P]{Op: OpEqual, Left: left, Right: right}
}

func NotEqual[P Path](left, right *FilterExpression[P]) Filter[P] {
	return Filter[P]{Op: OpNotEqual, Left: left, Right: right}
}

// Walk calls fn for every path referenced by the filter, depth first.
func (f Filter[P]) Walk(fn func(P)) {
	switch f.Op {
	case OpAll, OpAny:
		for _, child := range f.Filters {
			child.Walk(fn)
		}
	case OpEqual, OpNotEqual:
		for _, e := range []*FilterExpression[P]{f.Left, f.Right} {
			if e != nil && e.Path != nil {
				fn(*e.Path)
			}
		}
	}
}

func (f Filter[P]) MarshalJSON() ([]byte, error) {
	switch f.Op {
	case OpAll, OpAny:
		filters := f.Filters
		if filters == nil {
			filters = []Filter[P]{}
		}
		return json.Marshal(map[string]any{string(f.Op): filters})
	case OpEqual, OpNotEqual:
		return json.Marshal(map[string]any{string(f.Op): []*FilterExpression[P]{f.Left, f.Right}})
	default:
		return nil, fmt.Errorf("unknown filter operation %q", f.Op)
	}
}

func (f *Filter[P]) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("filter must be an object: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("filter must have exactly one operation, got %d", len(raw))
	}

	for key, body := range raw {
		op := FilterOp(key)
		switch op {
		case OpAll, OpAny:
			var filters []Filter[P]
			if err := json.Unmarshal(body, &filters); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*f = Filter[P]{Op: op, Filters: filters}
		case OpEqual, OpNotEqual:
			var operands []*FilterExpression[P]
			if err := json.Unmarshal(body, &operands); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if len(operands) != 2 {
				return fmt.Errorf("%s: expected 2 operands, got %d", key, len(operands))
			}
			*f = Filter[P]{Op: op, Left: operands[0], Right: operands[1]}
		default:
			return fmt.Errorf("unknown variant `%s`, expected %s", key,
				ExpectingOneOf(string(OpAll), string(OpAny), string(OpEqual), string(OpNotEqual)))
		}
	}
	return nil
}

func (e *FilterExpression[P]) MarshalJSON() ([]byte, error) {
	switch {
	case e == nil:
		return []byte("null"), nil
	case e.Path != nil:
		return json.Marshal(map[string]any{"path": Tokens((*e.Path).Segments())})
	case e.Parameter != nil:
		return json.Marshal(map[string]any{"parameter": *e.Parameter})
	default:
		return []byte("null"), nil
	}
}

func (e *FilterExpression[P]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw struct {
		Path      json.RawMessage `json:"path"`
		Parameter *Parameter      `json:"parameter"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Path != nil:
		var p P
		if err := json.Unmarshal(raw.Path, &p); err != nil {
			return err
		}
		e.Path = &p
	case raw.Parameter != nil:
		e.Parameter = raw.Parameter
	default:
		return fmt.Errorf("operand must be null, a path or a parameter")
	}
	return nil
}
