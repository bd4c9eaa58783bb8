package abstractsql

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	trees := []string{
		`["SelectQuery",["Select",[["Field","a"],["Alias",["ReferencedField","t","b"],"c"]]],["From",["Alias",["Table","t"],"x"]],["Where",["And",["Equals",["Field","a"],["Bind",0]],["Like",["Field","b"],["Text","%x%"]]]],["OrderBy",["ASC",["Field","a"]],["DESC",["Field","b"]]],["Limit",["Number",10]],["Offset",["Number",5]]]`,
		`["UnionQuery",["SelectQuery",["Select",[]]],["SelectQuery",["Select",[]]]]`,
		`["InsertQuery",["From",["Table","t"]],["Fields",["a","b"]],["Values",[["Bind","x"],["Bind",["t","b"]]]]]`,
		`["InsertQuery",["From",["Table","t"]],["Fields",["a"]],["Values",["SelectQuery",["Select",[["Field","a"]]],["From",["Table","u"]]]]]`,
		`["Case",["When",["Boolean",true],["Number",1]],["Else",["Null"]]]`,
		`["Count","*"]`,
		`["AggregateJSON",["ReferencedField","t","*"]]`,
		`["ConvertRow",["ReferencedField","t","*"]]`,
		`["NotIn",["Field","a"],["Number",1],["Number",2]]`,
		`["Year",["Field","d"]]`,
		`["Cast",["Field","a"],"Integer"]`,
		`["Coalesce",["Field","a"],["Text","b"],["Null"]]`,
		`["FnCall","fn_t_f",["ReferencedField","t","*"]]`,
		`["Duration",{"day":1,"negative":true}]`,
	}
	for _, src := range trees {
		t.Run(src, func(t *testing.T) {
			n, err := Parse([]byte(src))
			require.NoError(t, err)
			out, err := Marshal(n)
			require.NoError(t, err)
			assert.JSONEq(t, src, string(out))
		})
	}
}

func TestParseShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown tag", `["Frobnicate",1]`},
		{"empty node", `[]`},
		{"non string tag", `[1,2]`},
		{"bare string", `"x"`},
		{"from a field", `["SelectQuery",["From",["Field","a"]]]`},
		{"value as clause", `["SelectQuery",["Field","a"]]`},
		{"count of field", `["Count",["Field","a"]]`},
		{"and without operands", `["And"]`},
		{"wrong arity", `["Equals",["Field","a"]]`},
		{"function arity", `["Right",["Field","a"]]`},
		{"convert row field", `["ConvertRow",["ReferencedField","t","a"]]`},
		{"empty duration", `["Duration",{}]`},
		{"else not last", `["Case",["Else",1],["When",true,1]]`},
		{"negative bind", `["Bind",-1]`},
		{"union of values", `["UnionQuery",["Number",1]]`},
		{"bad sort", `["OrderBy",["UP",["Field","a"]]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrShape)
		})
	}
}

func TestDecodeScalars(t *testing.T) {
	n, err := Decode(nil)
	require.NoError(t, err)
	assert.IsType(t, &Null{}, n)

	n, err = Decode(true)
	require.NoError(t, err)
	assert.Equal(t, &Boolean{Value: true}, n)

	n, err = Decode(json.Number("1.5"))
	require.NoError(t, err)
	assert.Equal(t, &Number{Value: "1.5"}, n)
}

func TestDecodeBindKinds(t *testing.T) {
	tests := []struct {
		src  string
		want *Bind
	}{
		{`["Bind",2]`, &Bind{Kind: BindPositional, Position: 2}},
		{`["Bind","name"]`, &Bind{Kind: BindNamed, Name: "name"}},
		{`["Bind",["pilot","id"]]`, &Bind{Kind: BindColumn, Table: "pilot", Field: "id"}},
	}
	for _, tt := range tests {
		n, err := Parse([]byte(tt.src))
		require.NoError(t, err)
		assert.Equal(t, tt.want, n)
	}
}

func TestShapeErrorMessage(t *testing.T) {
	err := Shapef("Count", "only COUNT(*) is supported")
	assert.EqualError(t, err, "malformed abstract sql: Count: only COUNT(*) is supported")
}

func TestSingleOperandJunction(t *testing.T) {
	n, err := Parse([]byte(`["And",["Boolean",true]]`))
	require.NoError(t, err)
	assert.Equal(t, &And{Exprs: []Node{&Boolean{Value: true}}}, n)

	n, err = Parse([]byte(`["Or",["Field","a"]]`))
	require.NoError(t, err)
	assert.Equal(t, &Or{Exprs: []Node{&Field{Name: "a"}}}, n)
}
