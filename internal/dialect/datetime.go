package dialect

import (
	"strconv"
	"strings"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

// extractFormats is the function-call table used by postgres and mysql.
var extractFormats = map[abstractsql.DatePartName]func(string) string{
	abstractsql.PartYear:   func(e string) string { return "EXTRACT(YEAR FROM " + e + ")" },
	abstractsql.PartMonth:  func(e string) string { return "EXTRACT(MONTH FROM " + e + ")" },
	abstractsql.PartDay:    func(e string) string { return "EXTRACT(DAY FROM " + e + ")" },
	abstractsql.PartHour:   func(e string) string { return "EXTRACT(HOUR FROM " + e + ")" },
	abstractsql.PartMinute: func(e string) string { return "EXTRACT(MINUTE FROM " + e + ")" },
	abstractsql.PartSecond: func(e string) string { return "FLOOR(EXTRACT(SECOND FROM " + e + "))" },
	abstractsql.PartFractionalseconds: func(e string) string {
		return "(EXTRACT(SECOND FROM " + e + ") - FLOOR(EXTRACT(SECOND FROM " + e + ")))"
	},
}

// strftimeFormats is the format-string table used by the embedded engine.
var strftimeFormats = map[abstractsql.DatePartName]string{
	abstractsql.PartYear:   "%Y",
	abstractsql.PartMonth:  "%m",
	abstractsql.PartDay:    "%d",
	abstractsql.PartHour:   "%H",
	abstractsql.PartMinute: "%M",
	abstractsql.PartSecond: "%S",
}

func extractPart(part abstractsql.DatePartName, expr string) (string, error) {
	f, ok := extractFormats[part]
	if !ok {
		return "", abstractsql.Shapef(string(part), "unknown date part")
	}
	return f(expr), nil
}

func strftimePart(part abstractsql.DatePartName, expr string) (string, error) {
	if part == abstractsql.PartFractionalseconds {
		// %f is SS.SSS; subtracting the whole seconds leaves the fraction.
		return "(CAST(STRFTIME('%f', " + expr + ") AS REAL) - CAST(STRFTIME('%S', " + expr + ") AS INTEGER))", nil
	}
	f, ok := strftimeFormats[part]
	if !ok {
		return "", abstractsql.Shapef(string(part), "unknown date part")
	}
	return "CAST(STRFTIME('" + f + "', " + expr + ") AS INTEGER)", nil
}

// intervalLiteral renders INTERVAL '[-]D [-]H:M:S.F' followed by suffix.
func intervalLiteral(d *abstractsql.Duration, suffix string) string {
	sign := ""
	if d.Negative {
		sign = "-"
	}
	var b strings.Builder
	b.WriteString("INTERVAL '")
	b.WriteString(sign)
	b.WriteString(formatComponent(d.Day))
	b.WriteString(" ")
	b.WriteString(sign)
	b.WriteString(formatComponent(d.Hour))
	b.WriteString(":")
	b.WriteString(formatComponent(d.Minute))
	b.WriteString(":")
	b.WriteString(formatSeconds(d.Second))
	b.WriteString("'")
	b.WriteString(suffix)
	return b.String()
}

func formatComponent(v *float64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// formatSeconds always keeps at least one fractional digit.
func formatSeconds(v *float64) string {
	s := "0"
	if v != nil {
		s = strconv.FormatFloat(*v, 'f', -1, 64)
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
