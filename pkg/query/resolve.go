package query

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnimplementedWildcard is returned for a single "*" applied to a
	// collection; only "**" can map over collections so far.
	ErrUnimplementedWildcard = errors.New("a single wildcard on a collection is not supported yet, use `**`")
	// ErrNonBoolean is returned when a predicate evaluates to a non-boolean value.
	ErrNonBoolean = errors.New("expression does not result in a boolean value")
	// ErrUnknownField is returned when a path segment names nothing on the record.
	ErrUnknownField = errors.New("unknown field")
	// ErrStoreRead is returned when a nested record could not be read.
	ErrStoreRead = errors.New("could not read record from the store")
)

// RecordKind names the record types a RecordReader can load.
type RecordKind string

const (
	KindDataType     RecordKind = "dataType"
	KindPropertyType RecordKind = "propertyType"
	KindLinkType     RecordKind = "linkType"
	KindEntityType   RecordKind = "entityType"
	KindEntity       RecordKind = "entity"
)

// Resolvable is a record that can resolve a path into a value.
type Resolvable interface {
	Resolve(ctx context.Context, path []PathSegment, reader RecordReader) (Literal, error)
}

// RecordReader loads related records while a path is being resolved. For
// ontology kinds id is a versioned URI; for entities it is the entity id and
// the latest version is returned.
type RecordReader interface {
	ReadRecord(ctx context.Context, kind RecordKind, id string) (Resolvable, error)
}

// ResolveRelation follows a single-valued relation. An empty path yields the
// related id; an optional leading "*" selects the one related record.
func ResolveRelation(ctx context.Context, path []PathSegment, reader RecordReader, kind RecordKind, id string) (Literal, error) {
	if len(path) == 0 {
		return StringLiteral(id), nil
	}
	if path[0] == Wildcard || path[0] == DeepWildcard {
		path = path[1:]
	}
	if len(path) == 0 {
		return StringLiteral(id), nil
	}
	record, err := readRecord(ctx, reader, kind, id)
	if err != nil {
		return Literal{}, err
	}
	return record.Resolve(ctx, path, reader)
}

// ResolveCollection follows a to-many relation. An empty path yields the list
// of related ids and "**" maps the rest of the path over every related record.
func ResolveCollection(ctx context.Context, path []PathSegment, reader RecordReader, kind RecordKind, ids []string) (Literal, error) {
	if len(path) == 0 {
		items := make([]Literal, len(ids))
		for i, id := range ids {
			items[i] = StringLiteral(id)
		}
		return ListLiteral(items...), nil
	}

	switch path[0] {
	case DeepWildcard:
		items := make([]Literal, 0, len(ids))
		for _, id := range ids {
			record, err := readRecord(ctx, reader, kind, id)
			if err != nil {
				return Literal{}, err
			}
			value, err := record.Resolve(ctx, path[1:], reader)
			if err != nil {
				return Literal{}, err
			}
			items = append(items, value)
		}
		return ListLiteral(items...), nil
	case Wildcard:
		return Literal{}, ErrUnimplementedWildcard
	default:
		return Literal{}, fmt.Errorf("%w: `%s` on a collection of %s", ErrUnknownField, path[0], kind)
	}
}

// ResolveJSON descends into a decoded JSON document.
func ResolveJSON(value any, path []PathSegment) (Literal, error) {
	for _, segment := range path {
		object, ok := value.(map[string]any)
		if !ok {
			return NullLiteral(), nil
		}
		value = object[string(segment)]
	}
	return LiteralFromJSON(value)
}

func readRecord(ctx context.Context, reader RecordReader, kind RecordKind, id string) (Resolvable, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: no reader for %s %s", ErrStoreRead, kind, id)
	}
	record, err := reader.ReadRecord(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrStoreRead, kind, id, err)
	}
	return record, nil
}
