package ontology

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/typegraph/pkg/query"
)

type memoryReader struct {
	records map[string]query.Resolvable
}

func (m memoryReader) ReadRecord(_ context.Context, kind query.RecordKind, id string) (query.Resolvable, error) {
	record, ok := m.records[string(kind)+" "+id]
	if !ok {
		return nil, errors.New("not found")
	}
	return record, nil
}

func mustRecord[T Type](t *testing.T, parse func([]byte) (T, error), doc string, isLatest bool) Record[T] {
	t.Helper()
	inner, err := parse([]byte(doc))
	require.NoError(t, err)
	owner := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	updater := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	return NewRecord(inner, owner, owner, updater, isLatest)
}

func TestRecord_ResolveLeaves(t *testing.T) {
	record := mustRecord(t, ParseDataType, textDataTypeJSON, true)
	ctx := context.Background()

	tests := []struct {
		path []string
		want query.Literal
	}{
		{path: nil, want: query.StringLiteral("https://example.com/data-type/text/v/1")},
		{path: []string{"ownedById"}, want: query.StringLiteral("00000000-0000-0000-0000-000000000001")},
		{path: []string{"updatedById"}, want: query.StringLiteral("00000000-0000-0000-0000-000000000002")},
		{path: []string{"baseUri"}, want: query.StringLiteral("https://example.com/data-type/text/")},
		{path: []string{"versionedUri"}, want: query.StringLiteral("https://example.com/data-type/text/v/1")},
		{path: []string{"version"}, want: query.VersionLiteral(1, true)},
		{path: []string{"title"}, want: query.StringLiteral("Text")},
		{path: []string{"description"}, want: query.StringLiteral("An ordered sequence of characters")},
		{path: []string{"type"}, want: query.StringLiteral("string")},
		{path: []string{"kind"}, want: query.StringLiteral("dataType")},
		{path: []string{"missing"}, want: query.NullLiteral()},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.path), func(t *testing.T) {
			got, err := record.Resolve(ctx, query.Segments(tt.path...), nil)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestRecord_ResolveLatestVersion(t *testing.T) {
	ctx := context.Background()
	latest := mustRecord(t, ParseDataType, textDataTypeJSON, true)
	older := mustRecord(t, ParseDataType, textDataTypeJSON, false)

	isLatest := query.EqualExpr(query.PathExpr("version"), query.LiteralExpr(query.StringLiteral(query.Latest)))

	ok, err := isLatest.Matches(ctx, latest, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = isLatest.Matches(ctx, older, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecord_ResolveLeafWithTail(t *testing.T) {
	record := mustRecord(t, ParseLinkType, friendLinkTypeJSON, true)
	_, err := record.Resolve(context.Background(), query.Segments("title", "length"), nil)
	assert.ErrorIs(t, err, query.ErrUnknownField)
}

func TestRecord_ResolveRelations(t *testing.T) {
	ctx := context.Background()
	text := mustRecord(t, ParseDataType, textDataTypeJSON, true)
	name := mustRecord(t, ParsePropertyType, namePropertyTypeJSON, true)
	person := mustRecord(t, ParseEntityType, personEntityTypeJSON, true)
	friend := mustRecord(t, ParseLinkType, friendLinkTypeJSON, true)

	reader := memoryReader{records: map[string]query.Resolvable{
		"dataType https://example.com/data-type/text/v/1":         text,
		"propertyType https://example.com/property-type/name/v/1": name,
		"linkType https://example.com/link-type/friend-of/v/1":    friend,
	}}

	got, err := name.Resolve(ctx, query.Segments("dataTypes", "**", "title"), reader)
	require.NoError(t, err)
	assert.True(t, query.ListLiteral(query.StringLiteral("Text")).Equal(got))

	got, err = name.Resolve(ctx, query.Segments("dataTypes"), reader)
	require.NoError(t, err)
	assert.True(t, query.ListLiteral(query.StringLiteral("https://example.com/data-type/text/v/1")).Equal(got))

	_, err = name.Resolve(ctx, query.Segments("dataTypes", "*", "title"), reader)
	assert.ErrorIs(t, err, query.ErrUnimplementedWildcard)

	got, err = friend.Resolve(ctx, query.Segments("relatedKeywords"), reader)
	require.NoError(t, err)
	assert.True(t, query.ListLiteral(query.StringLiteral("friend"), query.StringLiteral("companion")).Equal(got))

	// The address property type is not in the reader.
	_, err = person.Resolve(ctx, query.Segments("propertyTypes", "**", "title"), reader)
	assert.ErrorIs(t, err, query.ErrStoreRead)

	got, err = person.Resolve(ctx, query.Segments("linkTypes", "**", "relatedKeywords"), memoryReader{records: map[string]query.Resolvable{
		"linkType https://example.com/link-type/friend-of/v/1": friend,
		"linkType https://example.com/link-type/owns/v/1":      friend,
	}})
	require.NoError(t, err)
	assert.Len(t, got.Items(), 2)
}
