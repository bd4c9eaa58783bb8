package abstractsql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// functionArity is the [min, max] argument count of each Function; max < 0 is unbounded.
var functionArity = map[FuncName][2]int{
	FnLower:           {1, 1},
	FnUpper:           {1, 1},
	FnTrim:            {1, 1},
	FnReplace:         {3, 3},
	FnSubstring:       {2, 3},
	FnRight:           {2, 2},
	FnCharacterLength: {1, 1},
	FnStrPos:          {2, 2},
	FnRound:           {1, 1},
	FnFloor:           {1, 1},
	FnCeiling:         {1, 1},
	FnToDate:          {1, 1},
	FnToTime:          {1, 1},
	FnNow:             {0, 0},
	FnTotalSeconds:    {1, 1},
	FnCoalesce:        {2, -1},
	FnRangeLower:      {1, 1},
	FnRangeUpper:      {1, 1},
}

var compareOps = map[string]CompareOp{
	"Equals":             OpEquals,
	"NotEquals":          OpNotEquals,
	"GreaterThan":        OpGreaterThan,
	"GreaterThanOrEqual": OpGreaterThanOrEqual,
	"LessThan":           OpLessThan,
	"LessThanOrEqual":    OpLessThanOrEqual,
	"Like":               OpLike,
	"IsDistinctFrom":     OpIsDistinctFrom,
	"IsNotDistinctFrom":  OpIsNotDistinctFrom,
}

var arithOps = map[string]ArithOp{
	"Add":               OpAdd,
	"Subtract":          OpSubtract,
	"Multiply":          OpMultiply,
	"Divide":            OpDivide,
	"BitwiseAnd":        OpBitwiseAnd,
	"BitwiseShiftRight": OpBitwiseShiftRight,
}

var dateParts = map[string]DatePartName{
	"Year":              PartYear,
	"Month":             PartMonth,
	"Day":               PartDay,
	"Hour":              PartHour,
	"Minute":            PartMinute,
	"Second":            PartSecond,
	"Fractionalseconds": PartFractionalseconds,
}

// Parse decodes the JSON tagged-array form of a tree.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse abstract sql: %w", err)
	}
	return Decode(raw)
}

// Decode converts an untyped tree (as produced by encoding/json with UseNumber)
// into typed nodes. Bare scalars in value position decode to literals.
func Decode(raw any) (Node, error) {
	switch v := raw.(type) {
	case nil:
		return &Null{}, nil
	case bool:
		return &Boolean{Value: v}, nil
	case json.Number:
		return &Number{Value: v}, nil
	case float64:
		return &Number{Value: json.Number(strconv.FormatFloat(v, 'f', -1, 64))}, nil
	case int:
		return &Number{Value: json.Number(strconv.Itoa(v))}, nil
	case []any:
		return decodeNode(v)
	default:
		return nil, Shapef("", "unexpected %T in node position", raw)
	}
}

func decodeNode(arr []any) (Node, error) {
	if len(arr) == 0 {
		return nil, Shapef("", "empty node")
	}
	tag, ok := arr[0].(string)
	if !ok {
		return nil, Shapef("", "node tag must be a string, got %T", arr[0])
	}
	args := arr[1:]

	if op, ok := compareOps[tag]; ok {
		l, r, err := decodePair(tag, args)
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: op, Left: l, Right: r}, nil
	}
	if op, ok := arithOps[tag]; ok {
		l, r, err := decodePair(tag, args)
		if err != nil {
			return nil, err
		}
		return &Arithmetic{Op: op, Left: l, Right: r}, nil
	}
	if part, ok := dateParts[tag]; ok {
		if err := arity(tag, args, 1, 1); err != nil {
			return nil, err
		}
		e, err := Decode(args[0])
		if err != nil {
			return nil, err
		}
		return &DatePart{Part: part, Expr: e}, nil
	}
	if r, ok := functionArity[FuncName(tag)]; ok {
		if err := arity(tag, args, r[0], r[1]); err != nil {
			return nil, err
		}
		list, err := decodeList(args)
		if err != nil {
			return nil, err
		}
		return &Function{Fn: FuncName(tag), Args: list}, nil
	}

	switch tag {
	case "SelectQuery":
		clauses, err := decodeClauses(tag, args)
		if err != nil {
			return nil, err
		}
		return &SelectQuery{Clauses: clauses}, nil
	case "UnionQuery":
		q := &UnionQuery{}
		for _, a := range args {
			n, err := Decode(a)
			if err != nil {
				return nil, err
			}
			if !IsQuery(n) {
				return nil, Shapef(tag, "expected a query, got %s", n.Tag())
			}
			q.Queries = append(q.Queries, n)
		}
		return q, nil
	case "InsertQuery":
		clauses, err := decodeClauses(tag, args)
		if err != nil {
			return nil, err
		}
		return &InsertQuery{Clauses: clauses}, nil
	case "UpdateQuery":
		clauses, err := decodeClauses(tag, args)
		if err != nil {
			return nil, err
		}
		return &UpdateQuery{Clauses: clauses}, nil
	case "DeleteQuery":
		clauses, err := decodeClauses(tag, args)
		if err != nil {
			return nil, err
		}
		return &DeleteQuery{Clauses: clauses}, nil
	case "UpsertQuery":
		if err := arity(tag, args, 2, 2); err != nil {
			return nil, err
		}
		ins, err := Decode(args[0])
		if err != nil {
			return nil, err
		}
		upd, err := Decode(args[1])
		if err != nil {
			return nil, err
		}
		insert, ok := ins.(*InsertQuery)
		if !ok {
			return nil, Shapef(tag, "first child must be InsertQuery, got %s", ins.Tag())
		}
		update, ok := upd.(*UpdateQuery)
		if !ok {
			return nil, Shapef(tag, "second child must be UpdateQuery, got %s", upd.Tag())
		}
		return &UpsertQuery{Insert: insert, Update: update}, nil

	case "Select":
		if err := arity(tag, args, 1, 1); err != nil {
			return nil, err
		}
		items, ok := args[0].([]any)
		if !ok {
			return nil, Shapef(tag, "expected a list of fields")
		}
		list, err := decodeList(items)
		if err != nil {
			return nil, err
		}
		return &Select{Fields: list}, nil
	case "From":
		n, err := decodeUnary(tag, args)
		if err != nil {
			return nil, err
		}
		switch n.(type) {
		case *Table, *Alias, *SelectQuery, *UnionQuery:
		default:
			return nil, Shapef(tag, "cannot select from %s", n.Tag())
		}
		return &From{Source: n}, nil
	case "Where":
		n, err := decodeUnary(tag, args)
		if err != nil {
			return nil, err
		}
		return &Where{Expr: n}, nil
	case "Having":
		n, err := decodeUnary(tag, args)
		if err != nil {
			return nil, err
		}
		return &Having{Expr: n}, nil
	case "GroupBy":
		if err := arity(tag, args, 1, 1); err != nil {
			return nil, err
		}
		items, ok := args[0].([]any)
		if !ok {
			return nil, Shapef(tag, "expected a list of expressions")
		}
		list, err := decodeList(items)
		if err != nil {
			return nil, err
		}
		return &GroupBy{Exprs: list}, nil
	case "OrderBy":
		if len(args) == 0 {
			return nil, Shapef(tag, "expected at least one sort key")
		}
		ob := &OrderBy{}
		for _, a := range args {
			item, ok := a.([]any)
			if !ok || len(item) != 2 {
				return nil, Shapef(tag, "sort key must be [direction, expr]")
			}
			dir, _ := item[0].(string)
			if dir != "ASC" && dir != "DESC" {
				return nil, Shapef(tag, "unknown sort direction %v", item[0])
			}
			e, err := Decode(item[1])
			if err != nil {
				return nil, err
			}
			ob.Items = append(ob.Items, OrderItem{Desc: dir == "DESC", Expr: e})
		}
		return ob, nil
	case "Limit":
		n, err := decodeUnary(tag, args)
		if err != nil {
			return nil, err
		}
		return &Limit{Expr: n}, nil
	case "Offset":
		n, err := decodeUnary(tag, args)
		if err != nil {
			return nil, err
		}
		return &Offset{Expr: n}, nil
	case "Fields":
		if err := arity(tag, args, 1, 1); err != nil {
			return nil, err
		}
		items, ok := args[0].([]any)
		if !ok {
			return nil, Shapef(tag, "expected a list of field names")
		}
		names, err := stringList(tag, items)
		if err != nil {
			return nil, err
		}
		return &Fields{Names: names}, nil
	case "Values":
		if err := arity(tag, args, 1, 1); err != nil {
			return nil, err
		}
		items, ok := args[0].([]any)
		if !ok {
			return nil, Shapef(tag, "expected a query or a list of values")
		}
		if len(items) > 0 {
			if t, ok := items[0].(string); ok && (t == "SelectQuery" || t == "UnionQuery") {
				q, err := Decode(items)
				if err != nil {
					return nil, err
				}
				return &Values{Query: q}, nil
			}
		}
		list, err := decodeList(items)
		if err != nil {
			return nil, err
		}
		return &Values{List: list}, nil

	case "Table":
		s, err := stringArg(tag, args)
		if err != nil {
			return nil, err
		}
		return &Table{Name: s}, nil
	case "Alias":
		if err := arity(tag, args, 2, 2); err != nil {
			return nil, err
		}
		e, err := Decode(args[0])
		if err != nil {
			return nil, err
		}
		as, ok := args[1].(string)
		if !ok {
			return nil, Shapef(tag, "alias name must be a string")
		}
		return &Alias{Expr: e, As: as}, nil
	case "Field":
		s, err := stringArg(tag, args)
		if err != nil {
			return nil, err
		}
		return &Field{Name: s}, nil
	case "ReferencedField":
		t, f, err := stringPair(tag, args)
		if err != nil {
			return nil, err
		}
		return &ReferencedField{Table: t, Field: f}, nil
	case "Bind":
		return decodeBind(args)
	case "Default":
		if err := arity(tag, args, 0, 0); err != nil {
			return nil, err
		}
		return &Default{}, nil
	case "Null":
		if err := arity(tag, args, 0, 0); err != nil {
			return nil, err
		}
		return &Null{}, nil

	case "Text":
		s, err := stringArg(tag, args)
		if err != nil {
			return nil, err
		}
		return &Text{Value: s}, nil
	case "Number":
		if err := arity(tag, args, 1, 1); err != nil {
			return nil, err
		}
		n, err := Decode(args[0])
		if err != nil {
			return nil, err
		}
		num, ok := n.(*Number)
		if !ok {
			return nil, Shapef(tag, "expected a number, got %T", args[0])
		}
		return num, nil
	case "Boolean":
		if err := arity(tag, args, 1, 1); err != nil {
			return nil, err
		}
		b, ok := args[0].(bool)
		if !ok {
			return nil, Shapef(tag, "expected a boolean, got %T", args[0])
		}
		return &Boolean{Value: b}, nil
	case "Date":
		if err := arity(tag, args, 1, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case string:
			return &Date{Value: v}, nil
		case json.Number:
			return &Date{Value: v.String()}, nil
		}
		return nil, Shapef(tag, "expected a date string, got %T", args[0])
	case "Duration":
		return decodeDuration(args)

	case "And", "Or":
		if len(args) < 1 {
			return nil, Shapef(tag, "expected at least 1 operand")
		}
		list, err := decodeList(args)
		if err != nil {
			return nil, err
		}
		if tag == "And" {
			return &And{Exprs: list}, nil
		}
		return &Or{Exprs: list}, nil
	case "Not":
		n, err := decodeUnary(tag, args)
		if err != nil {
			return nil, err
		}
		return &Not{Expr: n}, nil
	case "Exists":
		n, err := decodeUnary(tag, args)
		if err != nil {
			return nil, err
		}
		return &Exists{Expr: n}, nil
	case "NotExists":
		n, err := decodeUnary(tag, args)
		if err != nil {
			return nil, err
		}
		return &NotExists{Expr: n}, nil
	case "Between":
		if err := arity(tag, args, 3, 3); err != nil {
			return nil, err
		}
		list, err := decodeList(args)
		if err != nil {
			return nil, err
		}
		return &Between{Expr: list[0], Low: list[1], High: list[2]}, nil
	case "In", "NotIn":
		if len(args) < 2 {
			return nil, Shapef(tag, "expected an expression and at least one value")
		}
		list, err := decodeList(args)
		if err != nil {
			return nil, err
		}
		return &In{Negate: tag == "NotIn", Expr: list[0], Values: list[1:]}, nil

	case "Concat":
		if len(args) < 1 {
			return nil, Shapef(tag, "expected at least 1 operand")
		}
		list, err := decodeList(args)
		if err != nil {
			return nil, err
		}
		return &Concat{Exprs: list}, nil
	case "Cast":
		if err := arity(tag, args, 2, 2); err != nil {
			return nil, err
		}
		e, err := Decode(args[0])
		if err != nil {
			return nil, err
		}
		typ, ok := args[1].(string)
		if !ok {
			return nil, Shapef(tag, "cast type must be a string")
		}
		return &Cast{Expr: e, Type: typ}, nil
	case "Count":
		if len(args) != 1 || args[0] != "*" {
			return nil, Shapef(tag, "only COUNT(*) is supported")
		}
		return &Count{}, nil
	case "AggregateJSON":
		ref, err := decodeRef(tag, args)
		if err != nil {
			return nil, err
		}
		return &AggregateJSON{Table: ref.Table, Field: ref.Field}, nil
	case "ConvertRow":
		ref, err := decodeRef(tag, args)
		if err != nil {
			return nil, err
		}
		if ref.Field != "*" {
			return nil, Shapef(tag, "expected a whole-row reference, got field %q", ref.Field)
		}
		return &ConvertRow{Table: ref.Table}, nil
	case "FnCall":
		if len(args) < 1 {
			return nil, Shapef(tag, "missing function name")
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, Shapef(tag, "function name must be a string")
		}
		list, err := decodeList(args[1:])
		if err != nil {
			return nil, err
		}
		return &FnCall{Name: name, Args: list}, nil
	case "Case":
		return decodeCase(args)
	}
	return nil, Shapef(tag, "unknown tag")
}

func decodeClauses(tag string, args []any) ([]Clause, error) {
	clauses := make([]Clause, 0, len(args))
	for _, a := range args {
		n, err := Decode(a)
		if err != nil {
			return nil, err
		}
		c, ok := n.(Clause)
		if !ok {
			return nil, Shapef(tag, "%s is not a clause", n.Tag())
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

func decodeBind(args []any) (Node, error) {
	if err := arity("Bind", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case json.Number:
		i, err := strconv.Atoi(v.String())
		if err != nil || i < 0 {
			return nil, Shapef("Bind", "positional bind must be a non-negative integer, got %s", v)
		}
		return &Bind{Kind: BindPositional, Position: i}, nil
	case float64:
		return &Bind{Kind: BindPositional, Position: int(v)}, nil
	case int:
		return &Bind{Kind: BindPositional, Position: v}, nil
	case string:
		return &Bind{Kind: BindNamed, Name: v}, nil
	case []any:
		t, f, err := stringPair("Bind", v)
		if err != nil {
			return nil, err
		}
		return &Bind{Kind: BindColumn, Table: t, Field: f}, nil
	}
	return nil, Shapef("Bind", "unexpected payload %T", args[0])
}

func decodeDuration(args []any) (Node, error) {
	if err := arity("Duration", args, 1, 1); err != nil {
		return nil, err
	}
	obj, ok := args[0].(map[string]any)
	if !ok {
		return nil, Shapef("Duration", "expected an object")
	}
	d := &Duration{}
	if neg, ok := obj["negative"].(bool); ok {
		d.Negative = neg
	}
	for key, dst := range map[string]**float64{
		"day":    &d.Day,
		"hour":   &d.Hour,
		"minute": &d.Minute,
		"second": &d.Second,
	} {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return nil, Shapef("Duration", "%s: %v", key, err)
		}
		*dst = &f
	}
	if d.Day == nil && d.Hour == nil && d.Minute == nil && d.Second == nil {
		return nil, Shapef("Duration", "duration has no components")
	}
	return d, nil
}

func decodeCase(args []any) (Node, error) {
	if len(args) == 0 {
		return nil, Shapef("Case", "expected at least one When")
	}
	c := &Case{}
	for i, a := range args {
		item, ok := a.([]any)
		if !ok || len(item) == 0 {
			return nil, Shapef("Case", "expected When or Else")
		}
		switch item[0] {
		case "When":
			if len(item) != 3 {
				return nil, Shapef("When", "expected condition and value")
			}
			list, err := decodeList(item[1:])
			if err != nil {
				return nil, err
			}
			c.Whens = append(c.Whens, When{Cond: list[0], Value: list[1]})
		case "Else":
			if i != len(args)-1 || len(item) != 2 {
				return nil, Shapef("Else", "must be the last branch with one value")
			}
			e, err := Decode(item[1])
			if err != nil {
				return nil, err
			}
			c.Else = e
		default:
			return nil, Shapef("Case", "unexpected branch %v", item[0])
		}
	}
	if len(c.Whens) == 0 {
		return nil, Shapef("Case", "expected at least one When")
	}
	return c, nil
}

func decodeRef(tag string, args []any) (*ReferencedField, error) {
	n, err := decodeUnary(tag, args)
	if err != nil {
		return nil, err
	}
	ref, ok := n.(*ReferencedField)
	if !ok {
		return nil, Shapef(tag, "expected ReferencedField, got %s", n.Tag())
	}
	return ref, nil
}

func decodeUnary(tag string, args []any) (Node, error) {
	if err := arity(tag, args, 1, 1); err != nil {
		return nil, err
	}
	return Decode(args[0])
}

func decodePair(tag string, args []any) (Node, Node, error) {
	if err := arity(tag, args, 2, 2); err != nil {
		return nil, nil, err
	}
	l, err := Decode(args[0])
	if err != nil {
		return nil, nil, err
	}
	r, err := Decode(args[1])
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func decodeList(args []any) ([]Node, error) {
	list := make([]Node, 0, len(args))
	for _, a := range args {
		n, err := Decode(a)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, nil
}

func arity(tag string, args []any, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		if min == max {
			return Shapef(tag, "expected %d arguments, got %d", min, len(args))
		}
		return Shapef(tag, "expected at least %d arguments, got %d", min, len(args))
	}
	return nil
}

func stringArg(tag string, args []any) (string, error) {
	if err := arity(tag, args, 1, 1); err != nil {
		return "", err
	}
	s, ok := args[0].(string)
	if !ok {
		return "", Shapef(tag, "expected a string, got %T", args[0])
	}
	return s, nil
}

func stringPair(tag string, args []any) (string, string, error) {
	if err := arity(tag, args, 2, 2); err != nil {
		return "", "", err
	}
	names, err := stringList(tag, args)
	if err != nil {
		return "", "", err
	}
	return names[0], names[1], nil
}

func stringList(tag string, items []any) ([]string, error) {
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, Shapef(tag, "expected a string at position %d, got %T", i, it)
		}
		out[i] = s
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
