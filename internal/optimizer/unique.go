package optimizer

import (
	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/schema"
)

// uniqueShape is a rule of the form "no row has 2 or more rows sharing its
// key": an outer query over the target table, optionally joined to a parent
// table, whose last condition counts matching inner rows.
type uniqueShape struct {
	target       *schema.TableDef
	outer, inner string
	parent       *schema.TableDef
	parentAlias  string
	outerConds   []abstractsql.Node
	innerConds   []abstractsql.Node
}

// uniqueIndexFromRule turns a uniqueness rule into a partial unique index on
// the target table.
func uniqueIndexFromRule(m *schema.Model, body abstractsql.Node) (*schema.TableDef, schema.Index, bool) {
	shape, ok := matchUniqueShape(m, body)
	if !ok {
		return nil, schema.Index{}, false
	}
	shape.outerConds = shape.dropRequiredChecks(shape.outerConds, shape.outer)
	shape.innerConds = shape.dropRequiredChecks(shape.innerConds, shape.inner)

	keys, rest, ok := shape.splitKeys()
	if !ok {
		return nil, schema.Index{}, false
	}
	outerRest, ok := shape.dropParentLink(keys.fk)
	if !ok || !sameConditions(outerRest, shape.substitute(rest)) {
		return nil, schema.Index{}, false
	}

	var preds []abstractsql.Node
	for _, r := range rest {
		p, ok := unqualify(r, shape.inner)
		if !ok {
			return nil, schema.Index{}, false
		}
		preds = append(preds, p)
	}
	idx := schema.Index{
		Type:      "UNIQUE",
		Name:      Slug(shape.target.Name, body),
		Fields:    keys.columns(),
		Predicate: conjoin(preds),
	}
	return shape.target, idx, true
}

func matchUniqueShape(m *schema.Model, body abstractsql.Node) (*uniqueShape, bool) {
	outerQ, ok := zeroViolations(body)
	if !ok {
		return nil, false
	}
	outer, ok := splitQuery(outerQ)
	if !ok || outer.selects != 1 || len(outer.wheres) != 1 || len(outer.froms) < 1 || len(outer.froms) > 2 {
		return nil, false
	}
	conds := conjuncts(outer.wheres[0])
	innerQ, ok := countAtLeastTwo(conds[len(conds)-1])
	if !ok {
		return nil, false
	}
	inner, ok := splitQuery(innerQ)
	if !ok || inner.selects != 1 || !selectsCount(innerQ) || len(inner.froms) != 1 || len(inner.wheres) != 1 {
		return nil, false
	}
	targetName, innerAlias, ok := aliasedTable(inner.froms[0].Source, false)
	if !ok {
		return nil, false
	}

	s := &uniqueShape{inner: innerAlias, innerConds: conjuncts(inner.wheres[0]), outerConds: conds[:len(conds)-1]}
	for _, f := range outer.froms {
		name, alias, ok := aliasedTable(f.Source, false)
		if !ok || alias == innerAlias {
			return nil, false
		}
		switch {
		case name == targetName && s.outer == "":
			s.outer = alias
		case s.parent == nil:
			if s.parent = m.Table(name); s.parent == nil {
				return nil, false
			}
			s.parentAlias = alias
		default:
			return nil, false
		}
	}
	if s.outer == "" {
		return nil, false
	}
	if s.target = m.Table(targetName); s.target == nil {
		return nil, false
	}
	return s, true
}

// conjuncts lists the operands of an And. A lone condition, which the
// normalizer leaves after collapsing a single-operand And, is its own list.
func conjuncts(n abstractsql.Node) []abstractsql.Node {
	if a, ok := n.(*abstractsql.And); ok {
		return a.Exprs
	}
	return []abstractsql.Node{n}
}

// countAtLeastTwo matches GreaterThanOrEqual(query, 2).
func countAtLeastTwo(n abstractsql.Node) (*abstractsql.SelectQuery, bool) {
	c, ok := n.(*abstractsql.Comparison)
	if !ok || c.Op != abstractsql.OpGreaterThanOrEqual || !isNumber(c.Right, "2") {
		return nil, false
	}
	q, ok := c.Left.(*abstractsql.SelectQuery)
	return q, ok
}

// dropRequiredChecks removes Exists(alias.f) conditions where the target
// table already declares f required.
func (s *uniqueShape) dropRequiredChecks(conds []abstractsql.Node, alias string) []abstractsql.Node {
	out := make([]abstractsql.Node, 0, len(conds))
	for _, c := range conds {
		if e, ok := c.(*abstractsql.Exists); ok {
			if rf, ok := e.Expr.(*abstractsql.ReferencedField); ok && rf.Table == alias {
				if f := s.target.Field(rf.Field); f != nil && f.Required {
					continue
				}
			}
		}
		out = append(out, c)
	}
	return out
}

type indexKeys struct {
	fk   string
	cols []string
}

// columns lists the key columns, foreign key first.
func (k indexKeys) columns() []string {
	if k.fk == "" {
		return k.cols
	}
	out := []string{k.fk}
	for _, c := range k.cols {
		if c != k.fk {
			out = append(out, c)
		}
	}
	return out
}

// refPair matches Equals(ReferencedField, ReferencedField).
func refPair(n abstractsql.Node) (a, b *abstractsql.ReferencedField, ok bool) {
	c, isCmp := n.(*abstractsql.Comparison)
	if !isCmp || c.Op != abstractsql.OpEquals {
		return nil, nil, false
	}
	a, okA := c.Left.(*abstractsql.ReferencedField)
	b, okB := c.Right.(*abstractsql.ReferencedField)
	return a, b, okA && okB
}

// splitKeys separates the inner key equalities from the remaining inner
// conditions, which may only mention the inner alias.
func (s *uniqueShape) splitKeys() (indexKeys, []abstractsql.Node, bool) {
	var (
		keys indexKeys
		rest []abstractsql.Node
		seen = map[string]bool{}
	)
	for _, c := range s.innerConds {
		a, b, isPair := refPair(c)
		if isPair && (a.Table == s.inner || b.Table == s.inner) {
			if b.Table == s.inner && a.Table != s.inner {
				a, b = b, a
			}
			switch {
			case b.Table == s.outer && a.Field == b.Field:
				if !seen[a.Field] {
					seen[a.Field] = true
					keys.cols = append(keys.cols, a.Field)
				}
			case s.parent != nil && b.Table == s.parentAlias && b.Field == s.parent.IDField:
				if keys.fk != "" {
					return indexKeys{}, nil, false
				}
				keys.fk = a.Field
			default:
				return indexKeys{}, nil, false
			}
			continue
		}
		if !onlyReferences(c, s.inner) {
			return indexKeys{}, nil, false
		}
		rest = append(rest, c)
	}
	if s.parent != nil && keys.fk == "" {
		return indexKeys{}, nil, false
	}
	if keys.fk == "" && len(keys.cols) == 0 {
		return indexKeys{}, nil, false
	}
	return keys, rest, true
}

// dropParentLink removes the outer condition joining the outer row to its
// parent through fk.
func (s *uniqueShape) dropParentLink(fk string) ([]abstractsql.Node, bool) {
	if s.parent == nil {
		return s.outerConds, true
	}
	var (
		out   []abstractsql.Node
		found bool
	)
	for _, c := range s.outerConds {
		if a, b, ok := refPair(c); ok && !found {
			if b.Table == s.outer {
				a, b = b, a
			}
			if a.Table == s.outer && a.Field == fk && b.Table == s.parentAlias && b.Field == s.parent.IDField {
				found = true
				continue
			}
		}
		out = append(out, c)
	}
	return out, found
}

// substitute renames the inner alias to the outer one.
func (s *uniqueShape) substitute(conds []abstractsql.Node) []abstractsql.Node {
	out := make([]abstractsql.Node, len(conds))
	for i, c := range conds {
		out[i] = abstractsql.Rewrite(c, func(n abstractsql.Node) abstractsql.Node {
			if rf, ok := n.(*abstractsql.ReferencedField); ok && rf.Table == s.inner {
				return &abstractsql.ReferencedField{Table: s.outer, Field: rf.Field}
			}
			return n
		})
	}
	return out
}

func onlyReferences(n abstractsql.Node, alias string) bool {
	ok := true
	abstractsql.Walk(n, func(n abstractsql.Node) bool {
		if rf, isRef := n.(*abstractsql.ReferencedField); isRef && rf.Table != alias {
			ok = false
		}
		return ok
	})
	return ok
}

// sameConditions compares two condition lists as multisets.
func sameConditions(a, b []abstractsql.Node) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, n := range a {
		counts[abstractsql.Key(n)]++
	}
	for _, n := range b {
		k := abstractsql.Key(n)
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}
