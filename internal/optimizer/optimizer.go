// Package optimizer rewrites a schema model before DDL generation: computed
// fields become a read projection, and rules that a table can enforce natively
// become CHECK constraints or partial unique indexes.
package optimizer

import (
	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/normalize"
	"github.com/atlekbai/abstract_sql/internal/schema"
)

type Options struct {
	CheckConstraints     bool
	PartialUniqueIndexes bool
	// Normalize is applied to each rule body before matching. Nil leaves
	// bodies as they are.
	Normalize normalize.Func
}

func DefaultOptions() Options {
	return Options{
		CheckConstraints:     true,
		PartialUniqueIndexes: true,
		Normalize:            normalize.Normalize,
	}
}

// Result counts what Optimize changed.
type Result struct {
	ComputedFields int
	Checks         int
	UniqueIndexes  int
	RuntimeRules   int
}

// Optimize rewrites m in place. Rules turned into constraints are removed from
// m.Rules; the others are kept unmodified.
func Optimize(m *schema.Model, opts Options) Result {
	var res Result
	for _, t := range m.Tables {
		res.ComputedFields += expandComputed(t)
	}

	kept := m.Rules[:0]
	for _, rule := range m.Rules {
		body := rule.Body
		if opts.Normalize != nil {
			body = opts.Normalize(body)
		}
		// Constraints are fixed DDL; a parameterized rule stays a runtime check.
		if hasBinds(body) {
			kept = append(kept, rule)
			continue
		}
		if opts.CheckConstraints {
			if t, chk, ok := checkFromRule(m, body, opts.Normalize); ok {
				chk.Description = rule.StructuredEnglish
				t.Checks = append(t.Checks, chk)
				res.Checks++
				continue
			}
		}
		if opts.PartialUniqueIndexes {
			if t, idx, ok := uniqueIndexFromRule(m, body); ok {
				idx.Description = rule.StructuredEnglish
				t.Indexes = append(t.Indexes, idx)
				res.UniqueIndexes++
				continue
			}
		}
		kept = append(kept, rule)
	}
	for i := len(kept); i < len(m.Rules); i++ {
		m.Rules[i] = nil
	}
	m.Rules = kept
	res.RuntimeRules = len(kept)
	return res
}

func hasBinds(n abstractsql.Node) bool {
	found := false
	abstractsql.Walk(n, func(n abstractsql.Node) bool {
		if _, ok := n.(*abstractsql.Bind); ok {
			found = true
		}
		return !found
	})
	return found
}

func countFroms(n abstractsql.Node) int {
	count := 0
	abstractsql.Walk(n, func(n abstractsql.Node) bool {
		if _, ok := n.(*abstractsql.From); ok {
			count++
		}
		return true
	})
	return count
}

// zeroViolations unwraps the two "no violating rows" shapes:
// NotExists(query) and Equals(query, 0).
func zeroViolations(body abstractsql.Node) (*abstractsql.SelectQuery, bool) {
	switch b := body.(type) {
	case *abstractsql.NotExists:
		q, ok := b.Expr.(*abstractsql.SelectQuery)
		return q, ok
	case *abstractsql.Comparison:
		if b.Op != abstractsql.OpEquals || !isNumber(b.Right, "0") {
			return nil, false
		}
		q, ok := b.Left.(*abstractsql.SelectQuery)
		if !ok || !selectsCount(q) {
			return nil, false
		}
		return q, true
	}
	return nil, false
}

func isNumber(n abstractsql.Node, v string) bool {
	num, ok := n.(*abstractsql.Number)
	return ok && num.Value.String() == v
}

// selectsCount reports whether q's only Select clause is exactly [Count(*)].
func selectsCount(q *abstractsql.SelectQuery) bool {
	var sel *abstractsql.Select
	for _, c := range q.Clauses {
		if s, ok := c.(*abstractsql.Select); ok {
			if sel != nil {
				return false
			}
			sel = s
		}
	}
	if sel == nil || len(sel.Fields) != 1 {
		return false
	}
	_, ok := sel.Fields[0].(*abstractsql.Count)
	return ok
}

// queryParts splits a query restricted to Select, From and Where clauses.
type queryParts struct {
	selects int
	froms   []*abstractsql.From
	wheres  []abstractsql.Node
}

func splitQuery(q *abstractsql.SelectQuery) (queryParts, bool) {
	var p queryParts
	for _, c := range q.Clauses {
		switch c := c.(type) {
		case *abstractsql.Select:
			p.selects++
		case *abstractsql.From:
			p.froms = append(p.froms, c)
		case *abstractsql.Where:
			p.wheres = append(p.wheres, c.Expr)
		default:
			return p, false
		}
	}
	return p, true
}

// aliasedTable matches Alias(Table name, alias). A bare Table is its own
// alias when bare is set.
func aliasedTable(n abstractsql.Node, bare bool) (table, alias string, ok bool) {
	switch n := n.(type) {
	case *abstractsql.Table:
		if bare {
			return n.Name, n.Name, true
		}
	case *abstractsql.Alias:
		if t, isTable := n.Expr.(*abstractsql.Table); isTable {
			return t.Name, n.As, true
		}
	}
	return "", "", false
}

// unqualify rewrites ReferencedField(alias, f) to Field(f). Any reference to
// another alias fails the rewrite.
func unqualify(n abstractsql.Node, alias string) (abstractsql.Node, bool) {
	ok := true
	out := abstractsql.Rewrite(n, func(n abstractsql.Node) abstractsql.Node {
		rf, isRef := n.(*abstractsql.ReferencedField)
		if !isRef {
			return n
		}
		if rf.Table != alias {
			ok = false
			return n
		}
		return &abstractsql.Field{Name: rf.Field}
	})
	return out, ok
}

func conjoin(exprs []abstractsql.Node) abstractsql.Node {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return &abstractsql.And{Exprs: exprs}
}
