package abstractsql

// Walk calls fn for n and then, if fn returns true, for each child of n
// in source order (pre-order, left to right).
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *SelectQuery:
		return clauseNodes(n.Clauses)
	case *UnionQuery:
		return n.Queries
	case *InsertQuery:
		return clauseNodes(n.Clauses)
	case *UpdateQuery:
		return clauseNodes(n.Clauses)
	case *DeleteQuery:
		return clauseNodes(n.Clauses)
	case *UpsertQuery:
		return []Node{n.Insert, n.Update}
	case *Select:
		return n.Fields
	case *From:
		return []Node{n.Source}
	case *Where:
		return []Node{n.Expr}
	case *GroupBy:
		return n.Exprs
	case *Having:
		return []Node{n.Expr}
	case *OrderBy:
		out := make([]Node, len(n.Items))
		for i, it := range n.Items {
			out[i] = it.Expr
		}
		return out
	case *Limit:
		return []Node{n.Expr}
	case *Offset:
		return []Node{n.Expr}
	case *Values:
		if n.Query != nil {
			return []Node{n.Query}
		}
		return n.List
	case *Alias:
		return []Node{n.Expr}
	case *And:
		return n.Exprs
	case *Or:
		return n.Exprs
	case *Not:
		return []Node{n.Expr}
	case *Exists:
		return []Node{n.Expr}
	case *NotExists:
		return []Node{n.Expr}
	case *Comparison:
		return []Node{n.Left, n.Right}
	case *Between:
		return []Node{n.Expr, n.Low, n.High}
	case *In:
		return append([]Node{n.Expr}, n.Values...)
	case *Arithmetic:
		return []Node{n.Left, n.Right}
	case *Concat:
		return n.Exprs
	case *Function:
		return n.Args
	case *DatePart:
		return []Node{n.Expr}
	case *Cast:
		return []Node{n.Expr}
	case *FnCall:
		return n.Args
	case *Case:
		var out []Node
		for _, w := range n.Whens {
			out = append(out, w.Cond, w.Value)
		}
		if n.Else != nil {
			out = append(out, n.Else)
		}
		return out
	}
	return nil
}

// Rewrite rebuilds n bottom-up: children are rewritten first, then fn is
// applied to the rebuilt node. The input tree is never modified; every
// interior node of the result is a fresh copy.
func Rewrite(n Node, fn func(Node) Node) Node {
	if n == nil {
		return nil
	}
	var out Node
	switch n := n.(type) {
	case *SelectQuery:
		out = &SelectQuery{Clauses: rewriteClauses(n.Clauses, fn)}
	case *UnionQuery:
		out = &UnionQuery{Queries: rewriteList(n.Queries, fn)}
	case *InsertQuery:
		out = &InsertQuery{Clauses: rewriteClauses(n.Clauses, fn)}
	case *UpdateQuery:
		out = &UpdateQuery{Clauses: rewriteClauses(n.Clauses, fn)}
	case *DeleteQuery:
		out = &DeleteQuery{Clauses: rewriteClauses(n.Clauses, fn)}
	case *UpsertQuery:
		up := &UpsertQuery{Insert: n.Insert, Update: n.Update}
		if ins, ok := Rewrite(n.Insert, fn).(*InsertQuery); ok {
			up.Insert = ins
		}
		if upd, ok := Rewrite(n.Update, fn).(*UpdateQuery); ok {
			up.Update = upd
		}
		out = up
	case *Select:
		out = &Select{Fields: rewriteList(n.Fields, fn)}
	case *From:
		out = &From{Source: Rewrite(n.Source, fn)}
	case *Where:
		out = &Where{Expr: Rewrite(n.Expr, fn)}
	case *GroupBy:
		out = &GroupBy{Exprs: rewriteList(n.Exprs, fn)}
	case *Having:
		out = &Having{Expr: Rewrite(n.Expr, fn)}
	case *OrderBy:
		ob := &OrderBy{Items: make([]OrderItem, len(n.Items))}
		for i, it := range n.Items {
			ob.Items[i] = OrderItem{Desc: it.Desc, Expr: Rewrite(it.Expr, fn)}
		}
		out = ob
	case *Limit:
		out = &Limit{Expr: Rewrite(n.Expr, fn)}
	case *Offset:
		out = &Offset{Expr: Rewrite(n.Expr, fn)}
	case *Fields:
		out = &Fields{Names: append([]string(nil), n.Names...)}
	case *Values:
		if n.Query != nil {
			out = &Values{Query: Rewrite(n.Query, fn)}
		} else {
			out = &Values{List: rewriteList(n.List, fn)}
		}
	case *Alias:
		out = &Alias{Expr: Rewrite(n.Expr, fn), As: n.As}
	case *And:
		out = &And{Exprs: rewriteList(n.Exprs, fn)}
	case *Or:
		out = &Or{Exprs: rewriteList(n.Exprs, fn)}
	case *Not:
		out = &Not{Expr: Rewrite(n.Expr, fn)}
	case *Exists:
		out = &Exists{Expr: Rewrite(n.Expr, fn)}
	case *NotExists:
		out = &NotExists{Expr: Rewrite(n.Expr, fn)}
	case *Comparison:
		out = &Comparison{Op: n.Op, Left: Rewrite(n.Left, fn), Right: Rewrite(n.Right, fn)}
	case *Between:
		out = &Between{Expr: Rewrite(n.Expr, fn), Low: Rewrite(n.Low, fn), High: Rewrite(n.High, fn)}
	case *In:
		out = &In{Negate: n.Negate, Expr: Rewrite(n.Expr, fn), Values: rewriteList(n.Values, fn)}
	case *Arithmetic:
		out = &Arithmetic{Op: n.Op, Left: Rewrite(n.Left, fn), Right: Rewrite(n.Right, fn)}
	case *Concat:
		out = &Concat{Exprs: rewriteList(n.Exprs, fn)}
	case *Function:
		out = &Function{Fn: n.Fn, Args: rewriteList(n.Args, fn)}
	case *DatePart:
		out = &DatePart{Part: n.Part, Expr: Rewrite(n.Expr, fn)}
	case *Cast:
		out = &Cast{Expr: Rewrite(n.Expr, fn), Type: n.Type}
	case *FnCall:
		out = &FnCall{Name: n.Name, Args: rewriteList(n.Args, fn)}
	case *Case:
		c := &Case{Whens: make([]When, len(n.Whens)), Else: Rewrite(n.Else, fn)}
		for i, w := range n.Whens {
			c.Whens[i] = When{Cond: Rewrite(w.Cond, fn), Value: Rewrite(w.Value, fn)}
		}
		out = c
	default:
		out = copyLeaf(n)
	}
	return fn(out)
}

func copyLeaf(n Node) Node {
	switch n := n.(type) {
	case *Table:
		c := *n
		return &c
	case *Field:
		c := *n
		return &c
	case *ReferencedField:
		c := *n
		return &c
	case *Bind:
		c := *n
		return &c
	case *Text:
		c := *n
		return &c
	case *Number:
		c := *n
		return &c
	case *Boolean:
		c := *n
		return &c
	case *Date:
		c := *n
		return &c
	case *Duration:
		c := *n
		return &c
	case *AggregateJSON:
		c := *n
		return &c
	case *ConvertRow:
		c := *n
		return &c
	case *Default:
		return &Default{}
	case *Null:
		return &Null{}
	case *Count:
		return &Count{}
	}
	return n
}

func rewriteList(nodes []Node, fn func(Node) Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Rewrite(n, fn)
	}
	return out
}

func rewriteClauses(clauses []Clause, fn func(Node) Node) []Clause {
	out := make([]Clause, len(clauses))
	for i, c := range clauses {
		if rc, ok := Rewrite(c, fn).(Clause); ok {
			out[i] = rc
		} else {
			out[i] = c
		}
	}
	return out
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	return Rewrite(n, func(n Node) Node { return n })
}

func clauseNodes(clauses []Clause) []Node {
	out := make([]Node, len(clauses))
	for i, c := range clauses {
		out[i] = c
	}
	return out
}

// ClausesOf returns the clauses of a query node, or nil for other nodes.
func ClausesOf(n Node) []Clause {
	switch n := n.(type) {
	case *SelectQuery:
		return n.Clauses
	case *InsertQuery:
		return n.Clauses
	case *UpdateQuery:
		return n.Clauses
	case *DeleteQuery:
		return n.Clauses
	}
	return nil
}
