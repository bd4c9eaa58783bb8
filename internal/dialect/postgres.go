package dialect

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

type postgres struct{ base }

// Postgres is the PostgreSQL profile.
var Postgres Engine = postgres{base{name: NamePostgres}}

func (postgres) StrPos(haystack, needle string) string {
	return "STRPOS(" + haystack + ", " + needle + ")"
}

func (postgres) ToTime(s string) string {
	return "CAST(" + s + " AS TIME)"
}

func (postgres) DistinctFrom(a, b string, distinct bool) string {
	if distinct {
		return a + " IS DISTINCT FROM " + b
	}
	return a + " IS NOT DISTINCT FROM " + b
}

func (postgres) Duration(d *abstractsql.Duration) (string, error) {
	return intervalLiteral(d, ""), nil
}

func (postgres) TotalSeconds(expr string) (string, error) {
	return "EXTRACT(EPOCH FROM " + expr + ")", nil
}

func (postgres) AggregateJSON(ref string) (string, error) {
	return "COALESCE(JSON_AGG(" + ref + "), '[]')", nil
}

func (postgres) ConvertRow(ref string) (string, error) {
	return "TO_JSON(" + ref + ")", nil
}

func (postgres) RangeBound(upper bool, expr string) (string, error) {
	if upper {
		return "UPPER(" + expr + ")", nil
	}
	return "LOWER(" + expr + ")", nil
}

func (postgres) SupportsFunctions() bool { return true }

func (postgres) Renumber(query string) (string, error) {
	return sq.Dollar.ReplacePlaceholders(query)
}
