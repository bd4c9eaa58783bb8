// Package dialect holds the per-backend differences the compiler needs:
// identifier and literal quoting, engine-specific functions, date and
// interval rendering, and placeholder numbering.
package dialect

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

// Name identifies a target engine.
type Name string

const (
	NamePostgres Name = "postgres"
	NameMySQL    Name = "mysql"
	NameWebSQL   Name = "websql"
)

// ErrUnsupported is wrapped by every error for a feature an engine cannot express.
var ErrUnsupported = errors.New("unsupported by engine")

// UnsupportedError names the engine and the feature that was requested.
type UnsupportedError struct {
	Engine  Name
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s on %s", ErrUnsupported, e.Feature, e.Engine)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// Engine is one value object per backend. Every method is total: a capability
// the backend lacks returns an *UnsupportedError instead of degrading.
type Engine interface {
	Name() Name

	QuoteIdent(parts ...string) string
	QuoteLiteral(s string) string
	Boolean(v bool) string

	Concat(args []string) string
	CharacterLength(s string) string
	StrPos(haystack, needle string) string
	Right(s, n string) string
	ToDate(s string) string
	ToTime(s string) string
	DistinctFrom(a, b string, distinct bool) string

	DatePart(part abstractsql.DatePartName, expr string) (string, error)
	Duration(d *abstractsql.Duration) (string, error)
	TotalSeconds(expr string) (string, error)
	AggregateJSON(ref string) (string, error)
	ConvertRow(ref string) (string, error)
	RangeBound(upper bool, expr string) (string, error)

	// DefaultValues is appended to INSERT INTO "t" when no fields are given.
	DefaultValues() string
	// CreateView renders a complete view statement for an already compiled
	// query; name may be schema-qualified.
	CreateView(query string, name ...string) string
	// SupportsNamespaces reports whether objects can be created in a named schema.
	SupportsNamespaces() bool
	// SupportsFunctions reports whether SQL functions and triggers can be created.
	SupportsFunctions() bool
	// SupportsPartialIndexes reports whether CREATE INDEX accepts a WHERE clause.
	SupportsPartialIndexes() bool
	// DeferredForeignKeys reports whether foreign keys to tables created later
	// must be added afterwards with ALTER TABLE. Engines that resolve
	// references lazily declare them inline.
	DeferredForeignKeys() bool
	// Renumber rewrites '?' placeholders into the engine's positional form.
	// A doubled '??' is a literal question mark and comes out single.
	Renumber(query string) (string, error)
}

// Lookup returns the engine registered under name.
func Lookup(name string) (Engine, error) {
	switch Name(strings.ToLower(name)) {
	case NamePostgres:
		return Postgres, nil
	case NameMySQL:
		return MySQL, nil
	case NameWebSQL:
		return WebSQL, nil
	}
	return nil, fmt.Errorf("unknown engine %q", name)
}

// All returns every engine in a stable order.
func All() []Engine {
	return []Engine{Postgres, MySQL, WebSQL}
}

// base holds the behavior shared by all engines; each engine embeds it and
// overrides the axes on which it differs.
type base struct {
	name Name
}

func (b base) Name() Name { return b.name }

func (b base) unsupported(feature string) error {
	return &UnsupportedError{Engine: b.name, Feature: feature}
}

// QuoteIdent always double-quotes and joins the parts with dots.
func (base) QuoteIdent(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

func (base) QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (base) Boolean(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (base) Concat(args []string) string {
	return "(" + strings.Join(args, " || ") + ")"
}

func (base) CharacterLength(s string) string {
	return "LENGTH(" + s + ")"
}

func (base) StrPos(haystack, needle string) string {
	return "INSTR(" + haystack + ", " + needle + ")"
}

func (base) Right(s, n string) string {
	return "RIGHT(" + s + ", " + n + ")"
}

func (base) ToDate(s string) string {
	return "DATE(" + s + ")"
}

func (base) ToTime(s string) string {
	return "TIME(" + s + ")"
}

func (base) DatePart(part abstractsql.DatePartName, expr string) (string, error) {
	return extractPart(part, expr)
}

func (b base) Duration(*abstractsql.Duration) (string, error) {
	return "", b.unsupported("Duration")
}

func (b base) TotalSeconds(string) (string, error) {
	return "", b.unsupported("TotalSeconds")
}

func (b base) AggregateJSON(string) (string, error) {
	return "", b.unsupported("AggregateJSON")
}

func (b base) ConvertRow(string) (string, error) {
	return "", b.unsupported("ConvertRow")
}

func (b base) RangeBound(upper bool, _ string) (string, error) {
	if upper {
		return "", b.unsupported("RangeUpper")
	}
	return "", b.unsupported("RangeLower")
}

func (base) DefaultValues() string {
	return " DEFAULT VALUES"
}

func (b base) CreateView(query string, name ...string) string {
	return "CREATE OR REPLACE VIEW " + b.QuoteIdent(name...) + " AS\n" + query + ";"
}

func (base) SupportsNamespaces() bool { return true }

func (base) SupportsFunctions() bool { return false }

func (base) SupportsPartialIndexes() bool { return true }

func (base) DeferredForeignKeys() bool { return true }

func (base) Renumber(query string) (string, error) {
	return sq.Question.ReplacePlaceholders(strings.ReplaceAll(query, "??", "?"))
}
