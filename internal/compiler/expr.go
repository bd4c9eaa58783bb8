package compiler

import (
	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/sqltypes"
)

var compareSymbols = map[abstractsql.CompareOp]string{
	abstractsql.OpEquals:             " = ",
	abstractsql.OpNotEquals:          " != ",
	abstractsql.OpGreaterThan:        " > ",
	abstractsql.OpGreaterThanOrEqual: " >= ",
	abstractsql.OpLessThan:           " < ",
	abstractsql.OpLessThanOrEqual:    " <= ",
	abstractsql.OpLike:               " LIKE ",
}

var arithSymbols = map[abstractsql.ArithOp]string{
	abstractsql.OpAdd:               " + ",
	abstractsql.OpSubtract:          " - ",
	abstractsql.OpMultiply:          " * ",
	abstractsql.OpDivide:            " / ",
	abstractsql.OpBitwiseAnd:        " & ",
	abstractsql.OpBitwiseShiftRight: " >> ",
}

// plainFunctions render as NAME(args...) on every engine.
var plainFunctions = map[abstractsql.FuncName]string{
	abstractsql.FnLower:     "LOWER",
	abstractsql.FnUpper:     "UPPER",
	abstractsql.FnTrim:      "TRIM",
	abstractsql.FnReplace:   "REPLACE",
	abstractsql.FnSubstring: "SUBSTRING",
	abstractsql.FnRound:     "ROUND",
	abstractsql.FnFloor:     "FLOOR",
	abstractsql.FnCeiling:   "CEILING",
	abstractsql.FnCoalesce:  "COALESCE",
}

// value compiles n in value position.
func (c compiler) value(n abstractsql.Node) (string, error) {
	if n == nil {
		return "", abstractsql.Shapef("", "missing value")
	}
	switch n := n.(type) {
	case *abstractsql.SelectQuery, *abstractsql.UnionQuery:
		return c.subquery(n)

	case *abstractsql.Field:
		if n.Name == "*" {
			return "*", nil
		}
		return c.ident(n.Name), nil
	case *abstractsql.ReferencedField:
		if n.Field == "*" {
			return c.ident(n.Table) + ".*", nil
		}
		return c.ident(n.Table, n.Field), nil
	case *abstractsql.Bind:
		return c.bindNode(n)
	case *abstractsql.Default:
		return "DEFAULT", nil
	case *abstractsql.Null:
		return "NULL", nil

	case *abstractsql.Text:
		if c.noBinds {
			return c.engine.QuoteLiteral(n.Value), nil
		}
		return c.bind(BindingText, n.Value), nil
	case *abstractsql.Number:
		if n.Value == "" {
			return "", abstractsql.Shapef(n.Tag(), "empty number")
		}
		return n.Value.String(), nil
	case *abstractsql.Boolean:
		return c.engine.Boolean(n.Value), nil
	case *abstractsql.Date:
		if c.noBinds {
			return c.engine.QuoteLiteral(n.Value), nil
		}
		return c.bind(BindingDate, n.Value), nil
	case *abstractsql.Duration:
		return c.engine.Duration(n)

	case *abstractsql.And:
		return c.junction(n.Exprs, " AND ")
	case *abstractsql.Or:
		return c.junction(n.Exprs, " OR ")
	case *abstractsql.Not:
		v, err := c.value(n.Expr)
		if err != nil {
			return "", err
		}
		return "NOT (" + v + ")", nil
	case *abstractsql.Exists:
		return c.exists(n.Expr, false)
	case *abstractsql.NotExists:
		return c.exists(n.Expr, true)
	case *abstractsql.Comparison:
		return c.comparison(n)
	case *abstractsql.Between:
		vals, err := c.values(n.Expr, n.Low, n.High)
		if err != nil {
			return "", err
		}
		return vals[0] + " BETWEEN " + vals[1] + " AND " + vals[2], nil
	case *abstractsql.In:
		return c.in(n)

	case *abstractsql.Arithmetic:
		vals, err := c.values(n.Left, n.Right)
		if err != nil {
			return "", err
		}
		return "(" + vals[0] + arithSymbols[n.Op] + vals[1] + ")", nil
	case *abstractsql.Concat:
		vals, err := c.values(n.Exprs...)
		if err != nil {
			return "", err
		}
		return c.engine.Concat(vals), nil
	case *abstractsql.Function:
		return c.function(n)
	case *abstractsql.DatePart:
		v, err := c.value(n.Expr)
		if err != nil {
			return "", err
		}
		return c.engine.DatePart(n.Part, v)
	case *abstractsql.Cast:
		return c.cast(n)
	case *abstractsql.Count:
		return "COUNT(*)", nil
	case *abstractsql.AggregateJSON:
		ref := c.ident(n.Table) + ".*"
		if n.Field != "*" {
			ref = c.ident(n.Table, n.Field)
		}
		return c.engine.AggregateJSON(ref)
	case *abstractsql.ConvertRow:
		return c.engine.ConvertRow(c.ident(n.Table))
	case *abstractsql.FnCall:
		args, err := c.values(n.Args...)
		if err != nil {
			return "", err
		}
		return c.ident(n.Name) + "(" + joinComma(args) + ")", nil
	case *abstractsql.Case:
		return c.caseExpr(n)
	}
	return "", abstractsql.Shapef(n.Tag(), "not allowed in value position")
}

func (c compiler) values(nodes ...abstractsql.Node) ([]string, error) {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		v, err := c.value(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// subquery renders a nested query in parentheses, one level deeper.
func (c compiler) subquery(n abstractsql.Node) (string, error) {
	inner := c.nested()
	q, err := inner.query(n)
	if err != nil {
		return "", err
	}
	return "(" + inner.indent + q + c.indent + ")", nil
}

func (c compiler) bindNode(n *abstractsql.Bind) (string, error) {
	if c.noBinds {
		return "", abstractsql.Shapef(n.Tag(), "binds are not allowed here")
	}
	switch n.Kind {
	case abstractsql.BindNamed:
		return c.bind(BindingBind, n.Name), nil
	case abstractsql.BindColumn:
		return c.bind(BindingBind, ColumnRef{Table: n.Table, Field: n.Field}), nil
	}
	return c.bind(BindingBind, n.Position), nil
}

func (c compiler) junction(exprs []abstractsql.Node, op string) (string, error) {
	vals, err := c.values(exprs...)
	if err != nil {
		return "", err
	}
	if len(vals) == 1 {
		return vals[0], nil
	}
	out := "("
	for i, v := range vals {
		if i > 0 {
			out += op
		}
		out += v
	}
	return out + ")", nil
}

func (c compiler) exists(n abstractsql.Node, negate bool) (string, error) {
	if abstractsql.IsQuery(n) {
		q, err := c.subquery(n)
		if err != nil {
			return "", err
		}
		if negate {
			return "NOT EXISTS " + q, nil
		}
		return "EXISTS " + q, nil
	}
	v, err := c.value(n)
	if err != nil {
		return "", err
	}
	if negate {
		return v + " IS NULL", nil
	}
	return v + " IS NOT NULL", nil
}

func (c compiler) comparison(n *abstractsql.Comparison) (string, error) {
	vals, err := c.values(n.Left, n.Right)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case abstractsql.OpIsDistinctFrom:
		return c.engine.DistinctFrom(vals[0], vals[1], true), nil
	case abstractsql.OpIsNotDistinctFrom:
		return c.engine.DistinctFrom(vals[0], vals[1], false), nil
	}
	sym, ok := compareSymbols[n.Op]
	if !ok {
		return "", abstractsql.Shapef(n.Tag(), "unknown comparison")
	}
	return vals[0] + sym + vals[1], nil
}

func (c compiler) in(n *abstractsql.In) (string, error) {
	left, err := c.value(n.Expr)
	if err != nil {
		return "", err
	}
	op := " IN "
	if n.Negate {
		op = " NOT IN "
	}
	if len(n.Values) == 1 && abstractsql.IsQuery(n.Values[0]) {
		q, err := c.subquery(n.Values[0])
		if err != nil {
			return "", err
		}
		return left + op + q, nil
	}
	vals, err := c.values(n.Values...)
	if err != nil {
		return "", err
	}
	return left + op + "(" + joinComma(vals) + ")", nil
}

func (c compiler) function(n *abstractsql.Function) (string, error) {
	args, err := c.values(n.Args...)
	if err != nil {
		return "", err
	}
	if name, ok := plainFunctions[n.Fn]; ok {
		return name + "(" + joinComma(args) + ")", nil
	}
	switch n.Fn {
	case abstractsql.FnRight:
		return c.engine.Right(args[0], args[1]), nil
	case abstractsql.FnCharacterLength:
		return c.engine.CharacterLength(args[0]), nil
	case abstractsql.FnStrPos:
		return c.engine.StrPos(args[0], args[1]), nil
	case abstractsql.FnToDate:
		return c.engine.ToDate(args[0]), nil
	case abstractsql.FnToTime:
		return c.engine.ToTime(args[0]), nil
	case abstractsql.FnNow:
		return "CURRENT_TIMESTAMP", nil
	case abstractsql.FnTotalSeconds:
		return c.engine.TotalSeconds(args[0])
	case abstractsql.FnRangeLower:
		return c.engine.RangeBound(false, args[0])
	case abstractsql.FnRangeUpper:
		return c.engine.RangeBound(true, args[0])
	}
	return "", abstractsql.Shapef(n.Tag(), "unknown function")
}

// cast maps the logical type through the type table. Declarations computed
// by a function, and serial types, are cast to a plain INTEGER instead.
func (c compiler) cast(n *abstractsql.Cast) (string, error) {
	v, err := c.value(n.Expr)
	if err != nil {
		return "", err
	}
	ct, err := c.types.Lookup(c.engine.Name(), n.Type)
	if err != nil {
		return "", abstractsql.Shapef(n.Tag(), "%v", err)
	}
	native := ct.Native
	if ct.Computed() || sqltypes.IsAutoIncrement(n.Type) {
		native = "INTEGER"
	}
	return "CAST(" + v + " AS " + native + ")", nil
}

func (c compiler) caseExpr(n *abstractsql.Case) (string, error) {
	out := "CASE"
	for _, w := range n.Whens {
		vals, err := c.values(w.Cond, w.Value)
		if err != nil {
			return "", err
		}
		out += " WHEN " + vals[0] + " THEN " + vals[1]
	}
	if n.Else != nil {
		v, err := c.value(n.Else)
		if err != nil {
			return "", err
		}
		out += " ELSE " + v
	}
	return out + " END", nil
}
