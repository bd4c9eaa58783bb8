package compiler

import (
	"strings"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

// query compiles a row-producing node at the current indentation.
func (c compiler) query(n abstractsql.Node) (string, error) {
	switch n := n.(type) {
	case *abstractsql.SelectQuery:
		return c.selectQuery(n)
	case *abstractsql.UnionQuery:
		return c.unionQuery(n)
	case nil:
		return "", abstractsql.Shapef("", "missing query")
	}
	return "", abstractsql.Shapef(n.Tag(), "expected SelectQuery or UnionQuery")
}

// selectClauses buckets the clauses of a SelectQuery by kind. Clause order in
// the tree does not matter; output order is fixed by kind.
type selectClauses struct {
	sel     *abstractsql.Select
	froms   []*abstractsql.From
	wheres  []abstractsql.Node
	groupBy *abstractsql.GroupBy
	having  *abstractsql.Having
	orderBy *abstractsql.OrderBy
	limit   *abstractsql.Limit
	offset  *abstractsql.Offset
}

func bucketSelect(n *abstractsql.SelectQuery) (*selectClauses, error) {
	b := &selectClauses{}
	dup := func(tag string) error {
		return abstractsql.Shapef(n.Tag(), "more than one %s clause", tag)
	}
	for _, cl := range n.Clauses {
		switch cl := cl.(type) {
		case *abstractsql.Select:
			if b.sel != nil {
				return nil, dup(cl.Tag())
			}
			b.sel = cl
		case *abstractsql.From:
			b.froms = append(b.froms, cl)
		case *abstractsql.Where:
			b.wheres = append(b.wheres, cl.Expr)
		case *abstractsql.GroupBy:
			if b.groupBy != nil {
				return nil, dup(cl.Tag())
			}
			b.groupBy = cl
		case *abstractsql.Having:
			if b.having != nil {
				return nil, dup(cl.Tag())
			}
			b.having = cl
		case *abstractsql.OrderBy:
			if b.orderBy != nil {
				return nil, dup(cl.Tag())
			}
			b.orderBy = cl
		case *abstractsql.Limit:
			if b.limit != nil {
				return nil, dup(cl.Tag())
			}
			b.limit = cl
		case *abstractsql.Offset:
			if b.offset != nil {
				return nil, dup(cl.Tag())
			}
			b.offset = cl
		default:
			return nil, abstractsql.Shapef(n.Tag(), "%s clause not allowed", cl.Tag())
		}
	}
	return b, nil
}

// selectQuery compiles clauses in output order so bindings follow the
// placeholders textually.
func (c compiler) selectQuery(n *abstractsql.SelectQuery) (string, error) {
	b, err := bucketSelect(n)
	if err != nil {
		return "", err
	}

	sel := "1"
	if b.sel != nil && len(b.sel.Fields) > 0 {
		fields := make([]string, len(b.sel.Fields))
		for i, f := range b.sel.Fields {
			if fields[i], err = c.selectField(f); err != nil {
				return "", err
			}
		}
		sel = joinComma(fields)
	}
	parts := []string{"SELECT " + sel}

	if len(b.froms) > 0 {
		sources := make([]string, len(b.froms))
		for i, f := range b.froms {
			if sources[i], err = c.fromSource(f.Source); err != nil {
				return "", err
			}
		}
		parts = append(parts, "FROM "+strings.Join(sources, ","+c.nested().indent))
	}
	if w, err := c.where(b.wheres); err != nil {
		return "", err
	} else if w != "" {
		parts = append(parts, w)
	}
	if b.groupBy != nil {
		vals, err := c.values(b.groupBy.Exprs...)
		if err != nil {
			return "", err
		}
		parts = append(parts, "GROUP BY "+joinComma(vals))
	}
	if b.having != nil {
		v, err := c.value(b.having.Expr)
		if err != nil {
			return "", err
		}
		parts = append(parts, "HAVING "+v)
	}
	if b.orderBy != nil {
		items := make([]string, len(b.orderBy.Items))
		for i, it := range b.orderBy.Items {
			v, err := c.value(it.Expr)
			if err != nil {
				return "", err
			}
			dir := " ASC"
			if it.Desc {
				dir = " DESC"
			}
			items[i] = v + dir
		}
		parts = append(parts, "ORDER BY "+joinComma(items))
	}
	if b.limit != nil {
		v, err := c.value(b.limit.Expr)
		if err != nil {
			return "", err
		}
		parts = append(parts, "LIMIT "+v)
	}
	if b.offset != nil {
		v, err := c.value(b.offset.Expr)
		if err != nil {
			return "", err
		}
		parts = append(parts, "OFFSET "+v)
	}
	return strings.Join(parts, c.indent), nil
}

// where merges every Where predicate of a query with AND.
func (c compiler) where(preds []abstractsql.Node) (string, error) {
	switch len(preds) {
	case 0:
		return "", nil
	case 1:
		v, err := c.value(preds[0])
		if err != nil {
			return "", err
		}
		return "WHERE " + v, nil
	}
	v, err := c.junction(preds, " AND ")
	if err != nil {
		return "", err
	}
	return "WHERE " + v, nil
}

// unionQuery places each member one level deeper than the UNION keywords.
func (c compiler) unionQuery(n *abstractsql.UnionQuery) (string, error) {
	if len(n.Queries) < 2 {
		return "", abstractsql.Shapef(n.Tag(), "expected at least 2 queries, got %d", len(n.Queries))
	}
	inner := c.nested()
	members := make([]string, len(n.Queries))
	for i, q := range n.Queries {
		sql, err := inner.query(q)
		if err != nil {
			return "", err
		}
		members[i] = "\t" + sql
	}
	return strings.Join(members, c.indent+"UNION"+c.indent), nil
}

// selectField renders one entry of a Select list, eliding self-aliases.
func (c compiler) selectField(n abstractsql.Node) (string, error) {
	a, ok := n.(*abstractsql.Alias)
	if !ok {
		return c.value(n)
	}
	switch e := a.Expr.(type) {
	case *abstractsql.Field:
		if e.Name == a.As {
			return c.value(e)
		}
	case *abstractsql.ReferencedField:
		if e.Field == a.As {
			return c.value(e)
		}
	case *abstractsql.Table:
		return "", abstractsql.Shapef(a.Tag(), "cannot select a table")
	}
	v, err := c.value(a.Expr)
	if err != nil {
		return "", err
	}
	return v + " AS " + c.ident(a.As), nil
}

// fromSource renders a table, an aliased table or a subquery source.
func (c compiler) fromSource(n abstractsql.Node) (string, error) {
	switch n := n.(type) {
	case *abstractsql.Table:
		return c.table(n.Name), nil
	case *abstractsql.Alias:
		if t, ok := n.Expr.(*abstractsql.Table); ok {
			if t.Name == n.As {
				return c.table(t.Name), nil
			}
			return c.table(t.Name) + " AS " + c.ident(n.As), nil
		}
		if !abstractsql.IsQuery(n.Expr) {
			return "", abstractsql.Shapef(n.Tag(), "cannot select from %s", n.Expr.Tag())
		}
		q, err := c.subquery(n.Expr)
		if err != nil {
			return "", err
		}
		return q + " AS " + c.ident(n.As), nil
	case *abstractsql.SelectQuery, *abstractsql.UnionQuery:
		return c.subquery(n)
	}
	return "", abstractsql.Shapef("From", "cannot select from %s", n.Tag())
}

// modifyClauses holds the clauses of an insert, update or delete.
type modifyClauses struct {
	table  string
	fields *abstractsql.Fields
	values *abstractsql.Values
	wheres []abstractsql.Node
}

func bucketModify(tag string, clauses []abstractsql.Clause) (*modifyClauses, error) {
	b := &modifyClauses{}
	for _, cl := range clauses {
		switch cl := cl.(type) {
		case *abstractsql.From:
			if b.table != "" {
				return nil, abstractsql.Shapef(tag, "more than one target table")
			}
			switch src := cl.Source.(type) {
			case *abstractsql.Table:
				b.table = src.Name
			case *abstractsql.Alias:
				t, ok := src.Expr.(*abstractsql.Table)
				if !ok {
					return nil, abstractsql.Shapef(tag, "target must be a table")
				}
				b.table = t.Name
			default:
				return nil, abstractsql.Shapef(tag, "target must be a table")
			}
		case *abstractsql.Fields:
			if b.fields != nil {
				return nil, abstractsql.Shapef(tag, "more than one Fields clause")
			}
			b.fields = cl
		case *abstractsql.Values:
			if b.values != nil {
				return nil, abstractsql.Shapef(tag, "more than one Values clause")
			}
			b.values = cl
		case *abstractsql.Where:
			b.wheres = append(b.wheres, cl.Expr)
		default:
			return nil, abstractsql.Shapef(tag, "%s clause not allowed", cl.Tag())
		}
	}
	if b.table == "" {
		return nil, abstractsql.Shapef(tag, "missing target table")
	}
	return b, nil
}

func (c compiler) fieldNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = c.ident(n)
	}
	return out
}

func (c compiler) insertQuery(n *abstractsql.InsertQuery) (string, error) {
	b, err := bucketModify(n.Tag(), n.Clauses)
	if err != nil {
		return "", err
	}
	if len(b.wheres) > 0 {
		return "", abstractsql.Shapef(n.Tag(), "Where clause not allowed")
	}
	head := "INSERT INTO " + c.table(b.table)
	if b.fields == nil || len(b.fields.Names) == 0 {
		if b.values != nil && (b.values.Query != nil || len(b.values.List) > 0) {
			return "", abstractsql.Shapef(n.Tag(), "values given without fields")
		}
		return head + c.engine.DefaultValues(), nil
	}
	head += " (" + joinComma(c.fieldNames(b.fields.Names)) + ")"
	if b.values == nil {
		return "", abstractsql.Shapef(n.Tag(), "fields given without values")
	}
	if b.values.Query != nil {
		q, err := c.query(b.values.Query)
		if err != nil {
			return "", err
		}
		return head + c.indent + q, nil
	}
	if len(b.values.List) != len(b.fields.Names) {
		return "", abstractsql.Shapef(n.Tag(), "%d fields but %d values", len(b.fields.Names), len(b.values.List))
	}
	vals, err := c.values(b.values.List...)
	if err != nil {
		return "", err
	}
	return head + c.indent + "VALUES (" + joinComma(vals) + ")", nil
}

// updateQuery zips Fields and Values into SET pairs in field order.
func (c compiler) updateQuery(n *abstractsql.UpdateQuery) (string, error) {
	b, err := bucketModify(n.Tag(), n.Clauses)
	if err != nil {
		return "", err
	}
	if b.fields == nil || len(b.fields.Names) == 0 {
		return "", abstractsql.Shapef(n.Tag(), "no fields to update")
	}
	if b.values == nil || b.values.Query != nil {
		return "", abstractsql.Shapef(n.Tag(), "expected a list of values")
	}
	if len(b.values.List) != len(b.fields.Names) {
		return "", abstractsql.Shapef(n.Tag(), "%d fields but %d values", len(b.fields.Names), len(b.values.List))
	}
	sets := make([]string, len(b.fields.Names))
	for i, name := range b.fields.Names {
		v, err := c.value(b.values.List[i])
		if err != nil {
			return "", err
		}
		sets[i] = c.ident(name) + " = " + v
	}
	parts := []string{
		"UPDATE " + c.table(b.table),
		"SET " + strings.Join(sets, ","+c.nested().indent),
	}
	w, err := c.where(b.wheres)
	if err != nil {
		return "", err
	}
	if w != "" {
		parts = append(parts, w)
	}
	return strings.Join(parts, c.indent), nil
}

func (c compiler) deleteQuery(n *abstractsql.DeleteQuery) (string, error) {
	b, err := bucketModify(n.Tag(), n.Clauses)
	if err != nil {
		return "", err
	}
	if b.fields != nil || b.values != nil {
		return "", abstractsql.Shapef(n.Tag(), "fields and values not allowed")
	}
	parts := []string{"DELETE FROM " + c.table(b.table)}
	w, err := c.where(b.wheres)
	if err != nil {
		return "", err
	}
	if w != "" {
		parts = append(parts, w)
	}
	return strings.Join(parts, c.indent), nil
}
