package optimizer

import (
	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/schema"
)

// FunctionName is the default name of the function computing field.
func FunctionName(table, field string) string {
	return truncate("fn_"+table+"_"+field, MaxIdentifierLength)
}

// expandComputed turns computed fields into aliases of a read projection.
// Reads go through t.Definition; writes use t.ModifyFields.
func expandComputed(t *schema.TableDef) int {
	var aliases []abstractsql.Node
	for i := range t.Fields {
		f := &t.Fields[i]
		c := f.Computed
		if c == nil || c.Expanded {
			continue
		}
		switch {
		case c.Fn != nil:
			if c.Fn.FnName == "" {
				c.Fn.FnName = FunctionName(t.Name, f.FieldName)
			}
			aliases = append(aliases, &abstractsql.Alias{
				Expr: &abstractsql.FnCall{
					Name: c.Fn.FnName,
					Args: []abstractsql.Node{&abstractsql.ReferencedField{Table: t.Name, Field: "*"}},
				},
				As: f.FieldName,
			})
			c.Expanded = true
		case c.Expr != nil:
			aliases = append(aliases, &abstractsql.Alias{Expr: c.Expr, As: f.FieldName})
			f.Computed = &schema.Computed{Expanded: true}
		}
	}
	if len(aliases) == 0 {
		return 0
	}

	t.ModifyFields = t.ModifyFields[:0]
	for _, f := range t.Fields {
		if !f.IsComputed() {
			t.ModifyFields = append(t.ModifyFields, f)
		}
	}
	t.Definition = &abstractsql.SelectQuery{Clauses: []abstractsql.Clause{
		&abstractsql.Select{Fields: append([]abstractsql.Node{&abstractsql.Field{Name: "*"}}, aliases...)},
		&abstractsql.From{Source: &abstractsql.Table{Name: t.Name}},
	}}
	return len(aliases)
}
