// Package compiler renders AbstractSQL trees into SQL text for one engine,
// collecting positional bindings in the order their placeholders appear.
package compiler

import (
	"fmt"
	"strings"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/dialect"
	"github.com/atlekbai/abstract_sql/internal/sqltypes"
)

var (
	// ErrShape is wrapped by errors for malformed trees.
	ErrShape = abstractsql.ErrShape
	// ErrUnsupported is wrapped by errors for features the engine cannot express.
	ErrUnsupported = dialect.ErrUnsupported
)

// BindingKind is the kind of value a placeholder stands for.
type BindingKind string

const (
	BindingBind BindingKind = "Bind"
	BindingText BindingKind = "Text"
	BindingDate BindingKind = "Date"
)

// Binding is one positional parameter. For BindingBind the value is an int
// (positional), a string (named) or a ColumnRef resolved by the caller.
type Binding struct {
	Kind  BindingKind
	Value any
}

// ColumnRef is a deferred reference to a column value of an aliased row.
type ColumnRef struct {
	Table string
	Field string
}

// Statement is one compiled statement and its bindings.
type Statement struct {
	Query    string
	Bindings []Binding
}

type options struct {
	namespace string
	types     sqltypes.Mapper
	noBinds   bool
}

// Option configures a compilation.
type Option func(*options)

// WithNamespace qualifies bare table names with namespace.
func WithNamespace(namespace string) Option {
	return func(o *options) { o.namespace = namespace }
}

// WithTypes replaces the logical type table used by Cast.
func WithTypes(m sqltypes.Mapper) Option {
	return func(o *options) { o.types = m }
}

// WithoutBinds inlines text and date literals; Bind nodes become errors.
// DDL bodies (checks, index predicates, views) are compiled this way.
func WithoutBinds() Option {
	return func(o *options) { o.noBinds = true }
}

// compiler is the per-call context. It is passed by value so nesting only
// changes the copy; the bindings slice is the one shared, mutable part and is
// allocated fresh for every statement.
type compiler struct {
	engine    dialect.Engine
	types     sqltypes.Mapper
	namespace string
	noBinds   bool
	indent    string
	bindings  *[]Binding
}

func newCompiler(e dialect.Engine, opts []Option) compiler {
	o := options{types: sqltypes.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return compiler{
		engine:    e,
		types:     o.types,
		namespace: o.namespace,
		noBinds:   o.noBinds,
		indent:    "\n",
		bindings:  &[]Binding{},
	}
}

// fresh returns a copy with an empty bindings accumulator and top-level indent.
func (c compiler) fresh() compiler {
	c.indent = "\n"
	c.bindings = &[]Binding{}
	return c
}

func (c compiler) nested() compiler {
	c.indent += "\t"
	return c
}

func (c compiler) bind(kind BindingKind, value any) string {
	*c.bindings = append(*c.bindings, Binding{Kind: kind, Value: value})
	return "?"
}

func (c compiler) ident(parts ...string) string {
	q := c.engine.QuoteIdent(parts...)
	if c.noBinds {
		return q
	}
	// Renumber reads '??' as a literal question mark, not a placeholder.
	return strings.ReplaceAll(q, "?", "??")
}

// table renders a bare table name, schema-qualified under a namespace.
func (c compiler) table(name string) string {
	if c.namespace != "" {
		return c.ident(c.namespace, name)
	}
	return c.ident(name)
}

func (c compiler) statement(query string) (Statement, error) {
	if !c.noBinds {
		q, err := c.engine.Renumber(query)
		if err != nil {
			return Statement{}, fmt.Errorf("renumber placeholders: %w", err)
		}
		query = q
	}
	return Statement{Query: query, Bindings: *c.bindings}, nil
}

// Compile renders a top-level tree. Query nodes dispatch to their statement
// compiler; an UpsertQuery yields two independent statements; any other
// node is treated as a value and selected as "result".
func Compile(e dialect.Engine, n abstractsql.Node, opts ...Option) ([]Statement, error) {
	c := newCompiler(e, opts)
	if up, ok := n.(*abstractsql.UpsertQuery); ok {
		return c.upsert(up)
	}
	stmt, err := c.process(n)
	if err != nil {
		return nil, err
	}
	return []Statement{stmt}, nil
}

// CompileQuery is Compile for trees that produce exactly one statement.
func CompileQuery(e dialect.Engine, n abstractsql.Node, opts ...Option) (Statement, error) {
	if _, ok := n.(*abstractsql.UpsertQuery); ok {
		return Statement{}, abstractsql.Shapef(n.Tag(), "compiles to two statements, use Compile")
	}
	return newCompiler(e, opts).process(n)
}

// CompileExpr renders a value expression on its own, without a SELECT wrapper.
func CompileExpr(e dialect.Engine, n abstractsql.Node, opts ...Option) (string, []Binding, error) {
	c := newCompiler(e, opts)
	sql, err := c.value(n)
	if err != nil {
		return "", nil, err
	}
	stmt, err := c.statement(sql)
	if err != nil {
		return "", nil, err
	}
	return stmt.Query, stmt.Bindings, nil
}

func (c compiler) process(n abstractsql.Node) (Statement, error) {
	var (
		sql string
		err error
	)
	switch n := n.(type) {
	case *abstractsql.SelectQuery:
		sql, err = c.selectQuery(n)
	case *abstractsql.UnionQuery:
		sql, err = c.unionQuery(n)
	case *abstractsql.InsertQuery:
		sql, err = c.insertQuery(n)
	case *abstractsql.UpdateQuery:
		sql, err = c.updateQuery(n)
	case *abstractsql.DeleteQuery:
		sql, err = c.deleteQuery(n)
	default:
		var v string
		v, err = c.value(n)
		sql = "SELECT " + v + " AS " + c.ident("result")
	}
	if err != nil {
		return Statement{}, err
	}
	return c.statement(sql)
}

func (c compiler) upsert(n *abstractsql.UpsertQuery) ([]Statement, error) {
	ins, err := c.fresh().process(n.Insert)
	if err != nil {
		return nil, fmt.Errorf("upsert insert: %w", err)
	}
	upd, err := c.fresh().process(n.Update)
	if err != nil {
		return nil, fmt.Errorf("upsert update: %w", err)
	}
	return []Statement{ins, upd}, nil
}

func joinComma(parts []string) string {
	return strings.Join(parts, ", ")
}

// CompileRule compiles a rule body. Rule bodies are boolean value trees, so
// the statement selects the verdict as "result".
func CompileRule(e dialect.Engine, body abstractsql.Node, opts ...Option) (Statement, error) {
	if abstractsql.IsQuery(body) {
		return Statement{}, abstractsql.Shapef(body.Tag(), "rule body must be a boolean value")
	}
	return newCompiler(e, opts).process(body)
}
