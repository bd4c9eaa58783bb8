package abstractsql

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Encode converts a typed tree back into its tagged-array form.
func Encode(n Node) any {
	switch n := n.(type) {
	case nil:
		return nil
	case *SelectQuery:
		return tagged(n, encodeClauses(n.Clauses)...)
	case *UnionQuery:
		return tagged(n, encodeList(n.Queries)...)
	case *InsertQuery:
		return tagged(n, encodeClauses(n.Clauses)...)
	case *UpdateQuery:
		return tagged(n, encodeClauses(n.Clauses)...)
	case *DeleteQuery:
		return tagged(n, encodeClauses(n.Clauses)...)
	case *UpsertQuery:
		return tagged(n, Encode(n.Insert), Encode(n.Update))
	case *Select:
		return tagged(n, encodeList(n.Fields))
	case *From:
		return tagged(n, Encode(n.Source))
	case *Where:
		return tagged(n, Encode(n.Expr))
	case *GroupBy:
		return tagged(n, encodeList(n.Exprs))
	case *Having:
		return tagged(n, Encode(n.Expr))
	case *OrderBy:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			dir := "ASC"
			if it.Desc {
				dir = "DESC"
			}
			items[i] = []any{dir, Encode(it.Expr)}
		}
		return tagged(n, items...)
	case *Limit:
		return tagged(n, Encode(n.Expr))
	case *Offset:
		return tagged(n, Encode(n.Expr))
	case *Fields:
		names := make([]any, len(n.Names))
		for i, s := range n.Names {
			names[i] = s
		}
		return tagged(n, names)
	case *Values:
		if n.Query != nil {
			return tagged(n, Encode(n.Query))
		}
		return tagged(n, encodeList(n.List))
	case *Table:
		return tagged(n, n.Name)
	case *Alias:
		return tagged(n, Encode(n.Expr), n.As)
	case *Field:
		return tagged(n, n.Name)
	case *ReferencedField:
		return tagged(n, n.Table, n.Field)
	case *Bind:
		switch n.Kind {
		case BindNamed:
			return tagged(n, n.Name)
		case BindColumn:
			return tagged(n, []any{n.Table, n.Field})
		}
		return tagged(n, json.Number(strconv.Itoa(n.Position)))
	case *Count:
		return tagged(n, "*")
	case *Default, *Null:
		return tagged(n)
	case *Text:
		return tagged(n, n.Value)
	case *Number:
		return tagged(n, n.Value)
	case *Boolean:
		return tagged(n, n.Value)
	case *Date:
		return tagged(n, n.Value)
	case *Duration:
		obj := map[string]any{}
		if n.Negative {
			obj["negative"] = true
		}
		for key, v := range map[string]*float64{"day": n.Day, "hour": n.Hour, "minute": n.Minute, "second": n.Second} {
			if v != nil {
				obj[key] = *v
			}
		}
		return tagged(n, obj)
	case *And:
		return tagged(n, encodeList(n.Exprs)...)
	case *Or:
		return tagged(n, encodeList(n.Exprs)...)
	case *Not:
		return tagged(n, Encode(n.Expr))
	case *Exists:
		return tagged(n, Encode(n.Expr))
	case *NotExists:
		return tagged(n, Encode(n.Expr))
	case *Comparison:
		return tagged(n, Encode(n.Left), Encode(n.Right))
	case *Between:
		return tagged(n, Encode(n.Expr), Encode(n.Low), Encode(n.High))
	case *In:
		return tagged(n, append([]any{Encode(n.Expr)}, encodeList(n.Values)...)...)
	case *Arithmetic:
		return tagged(n, Encode(n.Left), Encode(n.Right))
	case *Concat:
		return tagged(n, encodeList(n.Exprs)...)
	case *Function:
		return tagged(n, encodeList(n.Args)...)
	case *DatePart:
		return tagged(n, Encode(n.Expr))
	case *Cast:
		return tagged(n, Encode(n.Expr), n.Type)
	case *AggregateJSON:
		return tagged(n, []any{"ReferencedField", n.Table, n.Field})
	case *ConvertRow:
		return tagged(n, []any{"ReferencedField", n.Table, "*"})
	case *FnCall:
		return tagged(n, append([]any{n.Name}, encodeList(n.Args)...)...)
	case *Case:
		var branches []any
		for _, w := range n.Whens {
			branches = append(branches, []any{"When", Encode(w.Cond), Encode(w.Value)})
		}
		if n.Else != nil {
			branches = append(branches, []any{"Else", Encode(n.Else)})
		}
		return tagged(n, branches...)
	}
	panic("abstractsql: unhandled node " + n.Tag())
}

// Marshal returns the compact JSON of the tagged-array form.
// HTML characters are left unescaped so the output is stable across encoders.
func Marshal(n Node) ([]byte, error) {
	return MarshalValue(Encode(n))
}

// MarshalValue is Marshal for an already encoded value.
func MarshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Key returns a canonical string for structural comparison of two trees.
func Key(n Node) string {
	b, err := Marshal(n)
	if err != nil {
		// Encode only produces JSON-safe values; a failure means a NaN/Inf duration.
		return n.Tag()
	}
	return string(b)
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Node) bool {
	return Key(a) == Key(b)
}

func tagged(n Node, args ...any) []any {
	return append([]any{n.Tag()}, args...)
}

func encodeList(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = Encode(n)
	}
	return out
}

func encodeClauses(clauses []Clause) []any {
	out := make([]any, len(clauses))
	for i, c := range clauses {
		out[i] = Encode(c)
	}
	return out
}
