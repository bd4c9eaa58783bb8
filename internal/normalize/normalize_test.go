package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

func parse(t *testing.T, src string) abstractsql.Node {
	t.Helper()
	n, err := abstractsql.Parse([]byte(src))
	require.NoError(t, err)
	return n
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "double negation",
			in:   `["Not",["Not",["Boolean",true]]]`,
			want: `["Boolean",true]`,
		},
		{
			name: "not exists",
			in:   `["Not",["Exists",["Field","a"]]]`,
			want: `["NotExists",["Field","a"]]`,
		},
		{
			name: "not not exists",
			in:   `["Not",["NotExists",["Field","a"]]]`,
			want: `["Exists",["Field","a"]]`,
		},
		{
			name: "not equals",
			in:   `["Not",["Equals",["Field","a"],["Number",1]]]`,
			want: `["NotEquals",["Field","a"],["Number",1]]`,
		},
		{
			name: "not not equals",
			in:   `["Not",["NotEquals",["Field","a"],["Number",1]]]`,
			want: `["Equals",["Field","a"],["Number",1]]`,
		},
		{
			name: "not less than untouched",
			in:   `["Not",["LessThan",["Field","a"],["Number",1]]]`,
			want: `["Not",["LessThan",["Field","a"],["Number",1]]]`,
		},
		{
			name: "flatten and",
			in:   `["And",["Field","a"],["And",["Field","b"],["Field","c"]]]`,
			want: `["And",["Field","a"],["Field","b"],["Field","c"]]`,
		},
		{
			name: "or inside and kept",
			in:   `["And",["Field","a"],["Or",["Field","b"],["Field","c"]]]`,
			want: `["And",["Field","a"],["Or",["Field","b"],["Field","c"]]]`,
		},
		{
			name: "inside subquery",
			in:   `["NotExists",["SelectQuery",["Select",[]],["From",["Table","t"]],["Where",["Not",["Not",["Field","a"]]]]]]`,
			want: `["NotExists",["SelectQuery",["Select",[]],["From",["Table","t"]],["Where",["Field","a"]]]]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(parse(t, tt.in))
			want := parse(t, tt.want)
			assert.True(t, abstractsql.Equal(want, got), "got %s", abstractsql.Key(got))
		})
	}
}

func TestNormalizeLeavesInputUntouched(t *testing.T) {
	in := parse(t, `["Not",["Not",["Field","a"]]]`)
	before := abstractsql.Key(in)
	_ = Normalize(in)
	assert.Equal(t, before, abstractsql.Key(in))
}
