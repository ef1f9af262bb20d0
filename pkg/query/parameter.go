package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ParameterKind tags the value held by a Parameter.
type ParameterKind int

const (
	ParameterNumber ParameterKind = iota
	ParameterText
	ParameterBoolean
)

// Parameter is a scalar value supplied by the caller of a filter.
type Parameter struct {
	kind    ParameterKind
	number  float64
	text    string
	boolean bool
}

func Number(n float64) Parameter { return Parameter{kind: ParameterNumber, number: n} }
func Text(s string) Parameter    { return Parameter{kind: ParameterText, text: s} }
func Boolean(b bool) Parameter   { return Parameter{kind: ParameterBoolean, boolean: b} }

// Kind returns the parameter kind.
func (p Parameter) Kind() ParameterKind { return p.kind }

// Value returns the Go value bound to a statement placeholder. Whole numbers
// bind as int64 so they compare against integer columns.
func (p Parameter) Value() any {
	switch p.kind {
	case ParameterText:
		return p.text
	case ParameterBoolean:
		return p.boolean
	default:
		if p.number == math.Trunc(p.number) && math.Abs(p.number) < 1<<53 {
			return int64(p.number)
		}
		return p.number
	}
}

// JSON returns p as a JSON scalar.
func (p Parameter) JSON() string {
	switch p.kind {
	case ParameterText:
		b, _ := json.Marshal(p.text)
		return string(b)
	case ParameterBoolean:
		return strconv.FormatBool(p.boolean)
	default:
		return strconv.FormatFloat(p.number, 'g', -1, 64)
	}
}

// IsText reports whether p is the text value s.
func (p Parameter) IsText(s string) bool {
	return p.kind == ParameterText && p.text == s
}

// Literal converts p into the interpreter's value domain.
func (p Parameter) Literal() Literal {
	switch p.kind {
	case ParameterText:
		return StringLiteral(p.text)
	case ParameterBoolean:
		return BoolLiteral(p.boolean)
	default:
		return NumberLiteral(p.number)
	}
}

func (p Parameter) String() string {
	switch p.kind {
	case ParameterText:
		return strconv.Quote(p.text)
	case ParameterBoolean:
		return strconv.FormatBool(p.boolean)
	default:
		return strconv.FormatFloat(p.number, 'g', -1, 64)
	}
}

func (p Parameter) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}

func (p *Parameter) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*p = Number(v)
	case string:
		*p = Text(v)
	case bool:
		*p = Boolean(v)
	default:
		return fmt.Errorf("parameter must be a number, string or boolean, got %s", string(data))
	}
	return nil
}
