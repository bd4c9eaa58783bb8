package dialect

import (
	"strings"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

type mysql struct{ base }

// MySQL is the MySQL profile. Identifiers are still double-quoted, so the
// server must run with ANSI_QUOTES.
var MySQL Engine = mysql{base{name: NameMySQL}}

// QuoteLiteral also doubles backslashes, which MySQL treats as escapes.
func (mysql) QuoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (mysql) Concat(args []string) string {
	return "CONCAT(" + strings.Join(args, ", ") + ")"
}

func (mysql) CharacterLength(s string) string {
	return "CHAR_LENGTH(" + s + ")"
}

func (mysql) DistinctFrom(a, b string, distinct bool) string {
	if distinct {
		return "NOT(" + a + " <=> " + b + ")"
	}
	return a + " <=> " + b
}

func (mysql) Duration(d *abstractsql.Duration) (string, error) {
	return intervalLiteral(d, " DAY_MICROSECOND"), nil
}

func (mysql) TotalSeconds(expr string) (string, error) {
	return "(TIMESTAMPDIFF(MICROSECOND, FROM_UNIXTIME(0), FROM_UNIXTIME(0) + " + expr + ") / 1000000)", nil
}

func (mysql) DefaultValues() string {
	return " () VALUES ()"
}

func (mysql) SupportsPartialIndexes() bool { return false }
