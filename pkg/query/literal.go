package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LiteralKind tags the value held by a Literal.
type LiteralKind int

const (
	LiteralNull LiteralKind = iota
	LiteralBool
	LiteralString
	LiteralNumber
	LiteralVersion
	LiteralList
	LiteralObject
	LiteralTimestamp
)

// Latest is the text that compares equal to the latest version of a type.
const Latest = "latest"

// Literal is a value a record resolves to.
type Literal struct {
	kind    LiteralKind
	boolean bool
	text    string
	number  float64
	version uint32
	at      time.Time
	latest  bool
	list    []Literal
	object  map[string]Literal
}

func NullLiteral() Literal            { return Literal{kind: LiteralNull} }
func BoolLiteral(b bool) Literal      { return Literal{kind: LiteralBool, boolean: b} }
func StringLiteral(s string) Literal  { return Literal{kind: LiteralString, text: s} }
func NumberLiteral(n float64) Literal { return Literal{kind: LiteralNumber, number: n} }

// VersionLiteral is a type version that also knows whether it is the latest
// version of its base URI.
func VersionLiteral(version uint32, isLatest bool) Literal {
	return Literal{kind: LiteralVersion, version: version, latest: isLatest}
}

// TimestampLiteral is an entity version. It equals another timestamp or an
// RFC 3339 string naming the same instant, and "latest" when isLatest is set.
func TimestampLiteral(at time.Time, isLatest bool) Literal {
	return Literal{kind: LiteralTimestamp, at: at, latest: isLatest}
}

func ListLiteral(items ...Literal) Literal {
	if items == nil {
		items = []Literal{}
	}
	return Literal{kind: LiteralList, list: items}
}

func ObjectLiteral(fields map[string]Literal) Literal {
	return Literal{kind: LiteralObject, object: fields}
}

// LiteralFromJSON converts a decoded JSON value (as produced by
// encoding/json into any) into a Literal.
func LiteralFromJSON(v any) (Literal, error) {
	switch value := v.(type) {
	case nil:
		return NullLiteral(), nil
	case bool:
		return BoolLiteral(value), nil
	case string:
		return StringLiteral(value), nil
	case float64:
		return NumberLiteral(value), nil
	case json.Number:
		n, err := value.Float64()
		if err != nil {
			return Literal{}, err
		}
		return NumberLiteral(n), nil
	case []any:
		items := make([]Literal, 0, len(value))
		for _, item := range value {
			l, err := LiteralFromJSON(item)
			if err != nil {
				return Literal{}, err
			}
			items = append(items, l)
		}
		return ListLiteral(items...), nil
	case map[string]any:
		fields := make(map[string]Literal, len(value))
		for k, item := range value {
			l, err := LiteralFromJSON(item)
			if err != nil {
				return Literal{}, err
			}
			fields[k] = l
		}
		return ObjectLiteral(fields), nil
	default:
		return Literal{}, fmt.Errorf("unsupported literal value of type %T", v)
	}
}

func (l Literal) Kind() LiteralKind { return l.kind }

func (l Literal) IsNull() bool { return l.kind == LiteralNull }

// AsBool returns the boolean value and whether l is a boolean.
func (l Literal) AsBool() (bool, bool) {
	return l.boolean, l.kind == LiteralBool
}

// AsString returns the text value and whether l is a string.
func (l Literal) AsString() (string, bool) {
	return l.text, l.kind == LiteralString
}

// AsNumber returns the numeric value and whether l is a number or a version.
func (l Literal) AsNumber() (float64, bool) {
	switch l.kind {
	case LiteralNumber:
		return l.number, true
	case LiteralVersion:
		return float64(l.version), true
	default:
		return 0, false
	}
}

// Items returns the elements of a list literal.
func (l Literal) Items() []Literal { return l.list }

// Equal compares two literals. A version equals a number with the same value,
// another version with the same value, and the text "latest" when it is the
// latest version.
func (l Literal) Equal(other Literal) bool {
	if l.kind == LiteralVersion || other.kind == LiteralVersion {
		return versionEqual(l, other)
	}
	if l.kind == LiteralTimestamp || other.kind == LiteralTimestamp {
		return timestampEqual(l, other)
	}
	if l.kind != other.kind {
		return false
	}
	switch l.kind {
	case LiteralNull:
		return true
	case LiteralBool:
		return l.boolean == other.boolean
	case LiteralString:
		return l.text == other.text
	case LiteralNumber:
		return l.number == other.number
	case LiteralList:
		if len(l.list) != len(other.list) {
			return false
		}
		for i := range l.list {
			if !l.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case LiteralObject:
		if len(l.object) != len(other.object) {
			return false
		}
		for k, v := range l.object {
			o, ok := other.object[k]
			if !ok || !v.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

func versionEqual(a, b Literal) bool {
	if a.kind != LiteralVersion {
		a, b = b, a
	}
	switch b.kind {
	case LiteralVersion:
		return a.version == b.version
	case LiteralNumber:
		return float64(a.version) == b.number
	case LiteralString:
		return b.text == Latest && a.latest
	default:
		return false
	}
}

func timestampEqual(a, b Literal) bool {
	if a.kind != LiteralTimestamp {
		a, b = b, a
	}
	switch b.kind {
	case LiteralTimestamp:
		return a.at.Equal(b.at)
	case LiteralString:
		if b.text == Latest {
			return a.latest
		}
		at, err := time.Parse(time.RFC3339Nano, b.text)
		return err == nil && a.at.Equal(at)
	default:
		return false
	}
}

func (l Literal) String() string {
	switch l.kind {
	case LiteralNull:
		return "null"
	case LiteralBool:
		return strconv.FormatBool(l.boolean)
	case LiteralString:
		return strconv.Quote(l.text)
	case LiteralNumber:
		return strconv.FormatFloat(l.number, 'g', -1, 64)
	case LiteralVersion:
		if l.latest {
			return fmt.Sprintf("v%d (latest)", l.version)
		}
		return fmt.Sprintf("v%d", l.version)
	case LiteralTimestamp:
		if l.latest {
			return l.at.Format(time.RFC3339Nano) + " (latest)"
		}
		return l.at.Format(time.RFC3339Nano)
	case LiteralList:
		parts := make([]string, len(l.list))
		for i, item := range l.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case LiteralObject:
		keys := make([]string, 0, len(l.object))
		for k := range l.object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ": " + l.object[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<invalid>"
}

func (l Literal) MarshalJSON() ([]byte, error) {
	switch l.kind {
	case LiteralNull:
		return []byte("null"), nil
	case LiteralBool:
		return json.Marshal(l.boolean)
	case LiteralString:
		return json.Marshal(l.text)
	case LiteralNumber:
		return json.Marshal(l.number)
	case LiteralVersion:
		return json.Marshal(l.version)
	case LiteralTimestamp:
		return json.Marshal(l.at.Format(time.RFC3339Nano))
	case LiteralList:
		return json.Marshal(l.list)
	case LiteralObject:
		return json.Marshal(l.object)
	}
	return nil, fmt.Errorf("invalid literal kind %d", l.kind)
}

func (l *Literal) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := LiteralFromJSON(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
