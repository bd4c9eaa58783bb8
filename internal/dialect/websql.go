package dialect

import "github.com/atlekbai/abstract_sql/internal/abstractsql"

type websql struct{ base }

// WebSQL is the embedded (SQLite-compatible) engine profile.
var WebSQL Engine = websql{base{name: NameWebSQL}}

func (websql) Boolean(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// Right has no native form; a negative start counts from the end of the string.
func (websql) Right(s, n string) string {
	return "SUBSTRING(" + s + ", -(" + n + "))"
}

func (websql) DistinctFrom(a, b string, distinct bool) string {
	if distinct {
		return a + " IS NOT " + b
	}
	return a + " IS " + b
}

func (websql) DatePart(part abstractsql.DatePartName, expr string) (string, error) {
	return strftimePart(part, expr)
}

func (w websql) CreateView(query string, name ...string) string {
	return "CREATE VIEW IF NOT EXISTS " + w.QuoteIdent(name...) + " AS\n" + query + ";"
}

// Attached databases use a different DDL form than schemas.
func (websql) SupportsNamespaces() bool { return false }

func (websql) DeferredForeignKeys() bool { return false }
