// Package normalize rewrites boolean structure into the canonical forms the
// schema optimizer matches against.
package normalize

import "github.com/atlekbai/abstract_sql/internal/abstractsql"

// Func is a pure tree normalizer.
type Func func(abstractsql.Node) abstractsql.Node

// Normalize returns a normalized copy of n; n itself is left untouched.
//
//	Not(Not x)          -> x
//	Not(Exists x)       -> NotExists x
//	Not(NotExists x)    -> Exists x
//	Not(Equals a b)     -> NotEquals a b
//	Not(NotEquals a b)  -> Equals a b
//	And(a, And(b, c))   -> And(a, b, c)    (same for Or)
//	And(a)              -> a               (same for Or)
func Normalize(n abstractsql.Node) abstractsql.Node {
	return abstractsql.Rewrite(n, step)
}

func step(n abstractsql.Node) abstractsql.Node {
	switch n := n.(type) {
	case *abstractsql.Not:
		return negate(n)
	case *abstractsql.And:
		return collapse(n, flatten(n.Exprs, func(x abstractsql.Node) ([]abstractsql.Node, bool) {
			a, ok := x.(*abstractsql.And)
			if !ok {
				return nil, false
			}
			return a.Exprs, true
		}), func(exprs []abstractsql.Node) abstractsql.Node { return &abstractsql.And{Exprs: exprs} })
	case *abstractsql.Or:
		return collapse(n, flatten(n.Exprs, func(x abstractsql.Node) ([]abstractsql.Node, bool) {
			o, ok := x.(*abstractsql.Or)
			if !ok {
				return nil, false
			}
			return o.Exprs, true
		}), func(exprs []abstractsql.Node) abstractsql.Node { return &abstractsql.Or{Exprs: exprs} })
	}
	return n
}

// negate pushes a Not into its operand where a direct negated form exists.
// Children are already normalized, so one level is enough.
func negate(n *abstractsql.Not) abstractsql.Node {
	switch x := n.Expr.(type) {
	case *abstractsql.Not:
		return x.Expr
	case *abstractsql.Exists:
		return &abstractsql.NotExists{Expr: x.Expr}
	case *abstractsql.NotExists:
		return &abstractsql.Exists{Expr: x.Expr}
	case *abstractsql.Comparison:
		switch x.Op {
		case abstractsql.OpEquals:
			return &abstractsql.Comparison{Op: abstractsql.OpNotEquals, Left: x.Left, Right: x.Right}
		case abstractsql.OpNotEquals:
			return &abstractsql.Comparison{Op: abstractsql.OpEquals, Left: x.Left, Right: x.Right}
		}
	}
	return n
}

func flatten(exprs []abstractsql.Node, same func(abstractsql.Node) ([]abstractsql.Node, bool)) []abstractsql.Node {
	out := make([]abstractsql.Node, 0, len(exprs))
	for _, e := range exprs {
		if inner, ok := same(e); ok {
			out = append(out, inner...)
			continue
		}
		out = append(out, e)
	}
	return out
}

func collapse(orig abstractsql.Node, exprs []abstractsql.Node, build func([]abstractsql.Node) abstractsql.Node) abstractsql.Node {
	switch len(exprs) {
	case 0:
		return orig
	case 1:
		return exprs[0]
	}
	return build(exprs)
}
