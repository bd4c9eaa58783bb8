package optimizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/schema"
)

func tree(t *testing.T, src string) abstractsql.Node {
	t.Helper()
	n, err := abstractsql.Parse([]byte(src))
	require.NoError(t, err)
	return n
}

func assertTree(t *testing.T, want string, got abstractsql.Node) {
	t.Helper()
	assert.Equal(t, abstractsql.Key(tree(t, want)), abstractsql.Key(got))
}

func table(name string, fields ...schema.FieldDef) *schema.TableDef {
	all := append([]schema.FieldDef{{FieldName: "id", DataType: "Serial", Required: true, Index: "PRIMARY KEY"}}, fields...)
	return &schema.TableDef{Name: name, ResourceName: name, IDField: "id", Fields: all}
}

func model(rules []*schema.Rule, tables ...*schema.TableDef) *schema.Model {
	m := &schema.Model{Rules: rules}
	for _, t := range tables {
		m.AddTable(t.Name, t)
	}
	return m
}

const positiveIDRule = `["NotExists",["SelectQuery",["Select",[]],
	["From",["Alias",["Table","t"],"t"]],
	["Where",["Not",["And",["LessThan",["Number",0],["ReferencedField","t","id"]],["Exists",["ReferencedField","t","id"]]]]]]]`

func TestCheckFromRule(t *testing.T) {
	body := tree(t, positiveIDRule)
	rule := &schema.Rule{Body: body, StructuredEnglish: "It is necessary that each t has an id that is greater than 0."}
	m := model([]*schema.Rule{rule}, table("t"))

	res := Optimize(m, DefaultOptions())

	assert.Equal(t, Result{Checks: 1}, res)
	assert.Empty(t, m.Rules)
	tbl := m.Table("t")
	require.Len(t, tbl.Checks, 1)
	chk := tbl.Checks[0]
	assertTree(t, `["And",["LessThan",["Number",0],["Field","id"]],["Exists",["Field","id"]]]`, chk.Expr)
	assert.Equal(t, Slug("t", body), chk.Name)
	assert.Equal(t, rule.StructuredEnglish, chk.Description)
}

func TestCheckFromCountRule(t *testing.T) {
	body := tree(t, `["Equals",["SelectQuery",["Select",[["Count","*"]]],
		["From",["Table","t"]],
		["Where",["LessThan",["ReferencedField","t","id"],["Number",0]]],
		["Where",["Exists",["ReferencedField","t","id"]]]],["Number",0]]`)
	m := model([]*schema.Rule{{Body: body, StructuredEnglish: "x"}}, table("t"))

	res := Optimize(m, DefaultOptions())

	assert.Equal(t, 1, res.Checks)
	require.Len(t, m.Table("t").Checks, 1)
	assertTree(t, `["Not",["And",["LessThan",["Field","id"],["Number",0]],["Exists",["Field","id"]]]]`, m.Table("t").Checks[0].Expr)
}

func TestRulesKeptWhenNoShapeMatches(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "two tables",
			body: `["NotExists",["SelectQuery",["Select",[]],["From",["Alias",["Table","t"],"a"]],["From",["Alias",["Table","t"],"b"]],
				["Where",["Equals",["ReferencedField","a","id"],["ReferencedField","b","id"]]]]]`,
		},
		{
			name: "unknown table",
			body: `["NotExists",["SelectQuery",["Select",[]],["From",["Table","ghost"]],["Where",["Exists",["Field","id"]]]]]`,
		},
		{
			name: "order by clause",
			body: `["NotExists",["SelectQuery",["Select",[]],["From",["Table","t"]],["Where",["Exists",["Field","id"]]],["OrderBy",["ASC",["Field","id"]]]]]`,
		},
		{
			name: "no where",
			body: `["NotExists",["SelectQuery",["Select",[]],["From",["Table","t"]]]]`,
		},
		{
			name: "count compared to one",
			body: `["Equals",["SelectQuery",["Select",[["Count","*"]]],["From",["Table","t"]],["Where",["Exists",["Field","id"]]]],["Number",1]]`,
		},
		{
			name: "exists instead of not exists",
			body: `["Exists",["SelectQuery",["Select",[]],["From",["Table","t"]],["Where",["Exists",["Field","id"]]]]]`,
		},
		{
			name: "parameterized",
			body: `["NotExists",["SelectQuery",["Select",[]],["From",["Alias",["Table","t"],"t"]],["Where",["Equals",["ReferencedField","t","id"],["Bind",0]]]]]`,
		},
		{
			name: "reference to an outer alias",
			body: `["NotExists",["SelectQuery",["Select",[]],["From",["Alias",["Table","t"],"t"]],["Where",["Exists",["ReferencedField","other","id"]]]]]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tree(t, tt.body)
			before := abstractsql.Key(body)
			rule := &schema.Rule{Body: body, StructuredEnglish: "x"}
			m := model([]*schema.Rule{rule}, table("t"))

			res := Optimize(m, DefaultOptions())

			assert.Equal(t, Result{RuntimeRules: 1}, res)
			require.Len(t, m.Rules, 1)
			assert.Same(t, rule, m.Rules[0])
			assert.Equal(t, before, abstractsql.Key(m.Rules[0].Body))
			assert.Empty(t, m.Table("t").Checks)
			assert.Empty(t, m.Table("t").Indexes)
		})
	}
}

func TestDisabledRewrites(t *testing.T) {
	m := model([]*schema.Rule{{Body: tree(t, positiveIDRule)}}, table("t"))
	res := Optimize(m, Options{})
	assert.Equal(t, Result{RuntimeRules: 1}, res)
	assert.Len(t, m.Rules, 1)
}

// uniqueNameRule says no two active children of the same parent share a name.
const uniqueNameRule = `["NotExists",["SelectQuery",["Select",[]],
	["From",["Alias",["Table","child"],"child.0"]],
	["From",["Alias",["Table","parent"],"parent.1"]],
	["Where",["And",
		["Equals",["ReferencedField","child.0","parent"],["ReferencedField","parent.1","id"]],
		["Exists",["ReferencedField","child.0","status"]],
		["Equals",["ReferencedField","child.0","status"],["Text","active"]],
		["GreaterThanOrEqual",["SelectQuery",["Select",[["Count","*"]]],
			["From",["Alias",["Table","child"],"child.2"]],
			["Where",["And",
				["Equals",["ReferencedField","child.2","name"],["ReferencedField","child.0","name"]],
				["Equals",["ReferencedField","child.2","parent"],["ReferencedField","parent.1","id"]],
				["Exists",["ReferencedField","child.2","status"]],
				["Equals",["ReferencedField","child.2","status"],["Text","active"]]]]],
			["Number",2]]]]]]`

func childTable(statusRequired bool) *schema.TableDef {
	return table("child",
		schema.FieldDef{FieldName: "name", DataType: "Short Text", Required: true},
		schema.FieldDef{FieldName: "parent", DataType: "ForeignKey", Required: true,
			References: &schema.Reference{ResourceName: "parent", FieldName: "id"}},
		schema.FieldDef{FieldName: "status", DataType: "Short Text", Required: statusRequired},
	)
}

func TestUniqueIndexElidesRequiredNullCheck(t *testing.T) {
	body := tree(t, uniqueNameRule)
	m := model([]*schema.Rule{{Body: body, StructuredEnglish: "names are unique per parent"}},
		table("parent"), childTable(true))

	res := Optimize(m, DefaultOptions())

	assert.Equal(t, Result{UniqueIndexes: 1}, res)
	assert.Empty(t, m.Rules)
	idx := m.Table("child").Indexes
	require.Len(t, idx, 1)
	assert.Equal(t, "UNIQUE", idx[0].Type)
	assert.Equal(t, Slug("child", body), idx[0].Name)
	assert.Equal(t, "names are unique per parent", idx[0].Description)
	assertTree(t, `["Equals",["Field","status"],["Text","active"]]`, idx[0].Predicate)
	assert.Empty(t, m.Table("parent").Indexes)
}

func TestUniqueIndexKeepsOptionalNullCheck(t *testing.T) {
	m := model([]*schema.Rule{{Body: tree(t, uniqueNameRule)}}, table("parent"), childTable(false))

	Optimize(m, DefaultOptions())

	idx := m.Table("child").Indexes
	require.Len(t, idx, 1)
	assertTree(t, `["And",["Exists",["Field","status"]],["Equals",["Field","status"],["Text","active"]]]`, idx[0].Predicate)
}

func TestUniqueIndexPutsForeignKeyFirst(t *testing.T) {
	m := model([]*schema.Rule{{Body: tree(t, uniqueNameRule)}}, table("parent"), childTable(true))

	Optimize(m, DefaultOptions())

	idx := m.Table("child").Indexes
	require.Len(t, idx, 1)
	assert.Equal(t, []string{"parent", "name"}, idx[0].Fields)
}

func TestUniqueIndexWithoutParent(t *testing.T) {
	body := tree(t, `["NotExists",["SelectQuery",["Select",[]],
		["From",["Alias",["Table","child"],"child.0"]],
		["Where",["And",
			["GreaterThanOrEqual",["SelectQuery",["Select",[["Count","*"]]],
				["From",["Alias",["Table","child"],"child.1"]],
				["Where",["And",
					["Equals",["ReferencedField","child.1","name"],["ReferencedField","child.0","name"]],
					["Equals",["ReferencedField","child.0","status"],["ReferencedField","child.1","status"]]]]],
				["Number",2]]]]]]`)
	m := model([]*schema.Rule{{Body: body}}, childTable(true))

	res := Optimize(m, DefaultOptions())

	assert.Equal(t, 1, res.UniqueIndexes)
	idx := m.Table("child").Indexes
	require.Len(t, idx, 1)
	assert.Equal(t, []string{"name", "status"}, idx[0].Fields)
	assert.Nil(t, idx[0].Predicate)
}

const singleKeyRule = `["NotExists",["SelectQuery",["Select",[]],
	["From",["Alias",["Table","child"],"child.0"]],
	["Where",["And",
		["GreaterThanOrEqual",["SelectQuery",["Select",[["Count","*"]]],
			["From",["Alias",["Table","child"],"child.1"]],
			["Where",["And",["Equals",["ReferencedField","child.1","name"],["ReferencedField","child.0","name"]]]]],
			["Number",2]]]]]]`

func TestUniqueIndexSingleKeyColumn(t *testing.T) {
	for name, opts := range map[string]Options{
		"normalized": DefaultOptions(),
		"raw":        {PartialUniqueIndexes: true},
	} {
		t.Run(name, func(t *testing.T) {
			m := model([]*schema.Rule{{Body: tree(t, singleKeyRule)}}, childTable(true))

			res := Optimize(m, opts)

			assert.Equal(t, Result{UniqueIndexes: 1}, res)
			idx := m.Table("child").Indexes
			require.Len(t, idx, 1)
			assert.Equal(t, []string{"name"}, idx[0].Fields)
			assert.Nil(t, idx[0].Predicate)
		})
	}
}

func TestUniqueIndexRejectsMismatchedConditions(t *testing.T) {
	// The outer row filters on "active" but the inner count on "archived".
	src := strings.Replace(uniqueNameRule, `["Equals",["ReferencedField","child.2","status"],["Text","active"]]`,
		`["Equals",["ReferencedField","child.2","status"],["Text","archived"]]`, 1)
	m := model([]*schema.Rule{{Body: tree(t, src)}}, table("parent"), childTable(true))

	res := Optimize(m, DefaultOptions())

	assert.Equal(t, Result{RuntimeRules: 1}, res)
	assert.Empty(t, m.Table("child").Indexes)
}

func TestUniqueIndexRequiresParentLink(t *testing.T) {
	src := strings.Replace(uniqueNameRule,
		`["Equals",["ReferencedField","child.0","parent"],["ReferencedField","parent.1","id"]],`, "", 1)
	m := model([]*schema.Rule{{Body: tree(t, src)}}, table("parent"), childTable(true))

	res := Optimize(m, DefaultOptions())

	assert.Equal(t, 1, res.RuntimeRules)
}

func TestUniqueIndexDisabled(t *testing.T) {
	m := model([]*schema.Rule{{Body: tree(t, uniqueNameRule)}}, table("parent"), childTable(true))
	opts := DefaultOptions()
	opts.PartialUniqueIndexes = false

	res := Optimize(m, opts)

	assert.Equal(t, Result{RuntimeRules: 1}, res)
}

func TestComputedExpansion(t *testing.T) {
	pilot := table("pilot",
		schema.FieldDef{FieldName: "years", DataType: "Integer", Required: true},
		schema.FieldDef{FieldName: "is experienced", DataType: "Boolean",
			Computed: &schema.Computed{Expr: tree(t, `["GreaterThan",["Field","years"],["Number",10]]`)}},
		schema.FieldDef{FieldName: "rank", DataType: "Integer",
			Computed: &schema.Computed{Fn: &schema.ComputedFn{Definition: tree(t, `["SelectQuery",["Select",[["Number",1]]]]`)}}},
	)
	m := model(nil, pilot)

	res := Optimize(m, DefaultOptions())

	assert.Equal(t, Result{ComputedFields: 2}, res)
	assertTree(t, `["SelectQuery",
		["Select",[["Field","*"],
			["Alias",["GreaterThan",["Field","years"],["Number",10]],"is experienced"],
			["Alias",["FnCall","fn_pilot_rank",["ReferencedField","pilot","*"]],"rank"]]],
		["From",["Table","pilot"]]]`, pilot.Definition)

	names := make([]string, len(pilot.ModifyFields))
	for i, f := range pilot.ModifyFields {
		names[i] = f.FieldName
	}
	assert.Equal(t, []string{"id", "years"}, names)

	exp := pilot.Field("is experienced")
	assert.True(t, exp.Computed.Expanded)
	assert.Nil(t, exp.Computed.Expr)
	rank := pilot.Field("rank")
	assert.True(t, rank.Computed.Expanded)
	assert.Equal(t, "fn_pilot_rank", rank.Computed.Fn.FnName)

	// Already expanded fields are left alone.
	res = Optimize(m, DefaultOptions())
	assert.Equal(t, 0, res.ComputedFields)
}

func TestComputedKeepsExplicitFunctionName(t *testing.T) {
	tbl := table("t", schema.FieldDef{FieldName: "f", DataType: "Integer",
		Computed: &schema.Computed{Fn: &schema.ComputedFn{FnName: "custom", Definition: &abstractsql.Null{}}}})
	Optimize(model(nil, tbl), DefaultOptions())
	assert.Equal(t, "custom", tbl.Field("f").Computed.Fn.FnName)
}

func TestFunctionNameLength(t *testing.T) {
	assert.Equal(t, "fn_t_f", FunctionName("t", "f"))
	assert.Len(t, FunctionName(strings.Repeat("a", 50), strings.Repeat("b", 50)), MaxIdentifierLength)
}

func TestSlug(t *testing.T) {
	body := tree(t, positiveIDRule)

	first := Slug("t", body)
	assert.Equal(t, first, Slug("t", tree(t, positiveIDRule)))
	assert.True(t, strings.HasPrefix(first, "t$"))
	assert.LessOrEqual(t, len(first), MaxIdentifierLength)
	assert.NotEqual(t, first, Slug("u", body))
	assert.NotEqual(t, first, Slug("t", tree(t, `["Boolean",true]`)))

	long := Slug(strings.Repeat("x", 100), body)
	assert.Len(t, long, MaxIdentifierLength)
	assert.True(t, strings.HasPrefix(long, strings.Repeat("x", 30)+"$"))

	wide := Slug(strings.Repeat("é", 40), body)
	assert.LessOrEqual(t, len(wide), MaxIdentifierLength)
	assert.True(t, utf8.ValidString(wide))
}

func TestOptimizeIsIdempotentOnNames(t *testing.T) {
	build := func() *schema.Model {
		return model([]*schema.Rule{{Body: tree(t, positiveIDRule)}}, table("t"))
	}
	a, b := build(), build()
	Optimize(a, DefaultOptions())
	Optimize(b, DefaultOptions())
	assert.Equal(t, a.Table("t").Checks[0].Name, b.Table("t").Checks[0].Name)
}
