package optimizer

import (
	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/normalize"
	"github.com/atlekbai/abstract_sql/internal/schema"
)

// checkFromRule matches a rule that only inspects single rows of one table
// and turns it into a CHECK constraint on that table.
func checkFromRule(m *schema.Model, body abstractsql.Node, norm normalize.Func) (*schema.TableDef, schema.Check, bool) {
	if countFroms(body) != 1 {
		return nil, schema.Check{}, false
	}
	q, ok := zeroViolations(body)
	if !ok {
		return nil, schema.Check{}, false
	}
	parts, ok := splitQuery(q)
	if !ok || len(parts.froms) != 1 || len(parts.wheres) == 0 {
		return nil, schema.Check{}, false
	}
	tableName, alias, ok := aliasedTable(parts.froms[0].Source, true)
	if !ok {
		return nil, schema.Check{}, false
	}
	t := m.Table(tableName)
	if t == nil {
		return nil, schema.Check{}, false
	}

	var expr abstractsql.Node = &abstractsql.Not{Expr: conjoin(parts.wheres)}
	if norm != nil {
		expr = norm(expr)
	}
	expr, ok = unqualify(expr, alias)
	if !ok {
		return nil, schema.Check{}, false
	}
	return t, schema.Check{Name: Slug(t.Name, body), Expr: expr}, true
}
