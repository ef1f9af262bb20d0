package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_UnmarshalJSON(t *testing.T) {
	input := `{
		"all": [
			{"equal": [{"path": ["parent", "*", "name"]}, {"parameter": "root"}]},
			{"notEqual": [{"path": ["tags"]}, null]},
			{"any": []}
		]
	}`

	var f Filter[namePath]
	require.NoError(t, json.Unmarshal([]byte(input), &f))

	assert.Equal(t, OpAll, f.Op)
	require.Len(t, f.Filters, 3)

	eq := f.Filters[0]
	assert.Equal(t, OpEqual, eq.Op)
	require.NotNil(t, eq.Left)
	require.NotNil(t, eq.Left.Path)
	assert.Equal(t, []string{"parent", "*", "name"}, Tokens(eq.Left.Path.Segments()))
	require.NotNil(t, eq.Right)
	require.NotNil(t, eq.Right.Parameter)
	assert.True(t, eq.Right.Parameter.IsText("root"))

	ne := f.Filters[1]
	assert.Equal(t, OpNotEqual, ne.Op)
	assert.Nil(t, ne.Right)

	assert.Equal(t, OpAny, f.Filters[2].Op)
	assert.Empty(t, f.Filters[2].Filters)
}

func TestFilter_UnmarshalJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "unknown operation",
			input:   `{"greater": []}`,
			wantErr: "unknown variant `greater`, expected one of `all`, `any`, `equal`, `notEqual`",
		},
		{
			name:    "wrong operand count",
			input:   `{"equal": [null]}`,
			wantErr: "equal: expected 2 operands, got 1",
		},
		{
			name:    "two operations",
			input:   `{"all": [], "any": []}`,
			wantErr: "filter must have exactly one operation, got 2",
		},
		{
			name:    "invalid path",
			input:   `{"equal": [{"path": ["name", "extra"]}, null]}`,
			wantErr: "invalid length 2, expected 1 element in sequence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Filter[namePath]
			err := json.Unmarshal([]byte(tt.input), &f)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFilter_MarshalJSON(t *testing.T) {
	f := All(
		Equal(PathOperand(namePath{field: "name"}), ParameterOperand[namePath](Text("a"))),
		NotEqual[namePath](PathOperand(namePath{field: "tags"}), nil),
		Any[namePath](),
	)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"all": [
		{"equal": [{"path": ["name"]}, {"parameter": "a"}]},
		{"notEqual": [{"path": ["tags"]}, null]},
		{"any": []}
	]}`, string(data))
}

func TestFilter_Walk(t *testing.T) {
	parent := namePath{field: "name"}
	f := Any(
		Equal[namePath](PathOperand(namePath{field: "name"}), nil),
		All(Equal(PathOperand(namePath{field: "parent", parent: &parent}), PathOperand(namePath{field: "tags"}))),
	)

	var visited [][]string
	f.Walk(func(p namePath) {
		visited = append(visited, Tokens(p.Segments()))
	})

	assert.Equal(t, [][]string{
		{"name"},
		{"parent", "*", "name"},
		{"tags"},
	}, visited)
}

func TestParameter_JSON(t *testing.T) {
	var p Parameter
	require.NoError(t, json.Unmarshal([]byte(`12`), &p))
	assert.Equal(t, ParameterNumber, p.Kind())
	assert.Equal(t, int64(12), p.Value())
	assert.Equal(t, 1.5, Number(1.5).Value())

	require.NoError(t, json.Unmarshal([]byte(`true`), &p))
	assert.Equal(t, ParameterBoolean, p.Kind())

	require.NoError(t, json.Unmarshal([]byte(`"latest"`), &p))
	assert.True(t, p.IsText(Latest))

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &p))
}
