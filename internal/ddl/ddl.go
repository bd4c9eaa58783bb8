// Package ddl generates the statements that create and drop a schema model,
// plus the SQL of rules that remain runtime checks.
package ddl

import (
	"fmt"
	"strings"

	"github.com/atlekbai/abstract_sql/internal/compiler"
	"github.com/atlekbai/abstract_sql/internal/dialect"
	"github.com/atlekbai/abstract_sql/internal/schema"
	"github.com/atlekbai/abstract_sql/internal/sqltypes"
)

const (
	maxIdentifierLength = 63
	modifiedAtField     = "modified at"
	modifiedAtFunction  = "trigger_update_modified_at"
)

type Options struct {
	Types       sqltypes.Mapper
	IfNotExists bool
	// Namespace, when set, is the schema every table, view and function is
	// created in. Index, constraint and trigger names stay unqualified.
	Namespace string
}

func DefaultOptions() Options {
	return Options{Types: sqltypes.Default, IfNotExists: true}
}

// Rule is a rule left for runtime checking.
type Rule struct {
	SQL               string
	StructuredEnglish string
	Bindings          []compiler.Binding
}

type SQLModel struct {
	CreateSchema []string
	DropSchema   []string
	Rules        []Rule
}

type builder struct {
	engine  dialect.Engine
	opts    Options
	model   *schema.Model
	created map[string]bool

	create   []string
	drop     []string
	deferred []string
	// undefer drops the deferred foreign keys before any table goes.
	undefer []string

	modifiedAtReady bool
}

// CompileSchema emits DDL for every table of m in declaration order. Foreign
// keys to tables that are not created yet are added at the end.
func CompileSchema(m *schema.Model, e dialect.Engine, opts Options) (*SQLModel, error) {
	if opts.Types == nil {
		opts.Types = sqltypes.Default
	}
	if opts.Namespace != "" && !e.SupportsNamespaces() {
		return nil, &dialect.UnsupportedError{Engine: e.Name(), Feature: "namespace " + opts.Namespace}
	}
	b := &builder{engine: e, opts: opts, model: m, created: map[string]bool{}}
	for _, t := range m.Tables {
		if t.Primitive {
			continue
		}
		if err := b.table(t); err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Name, err)
		}
		b.created[t.Name] = true
	}

	out := &SQLModel{
		CreateSchema: append(b.create, b.deferred...),
		DropSchema:   append(make([]string, 0, len(b.undefer)+len(b.drop)), b.undefer...),
	}
	for i := len(b.drop) - 1; i >= 0; i-- {
		out.DropSchema = append(out.DropSchema, b.drop[i])
	}
	for i, r := range m.Rules {
		stmt, err := compiler.CompileRule(e, r.Body, b.compileOptions()...)
		if err != nil {
			return nil, fmt.Errorf("rule %d %q: %w", i, r.StructuredEnglish, err)
		}
		out.Rules = append(out.Rules, Rule{
			SQL:               stmt.Query,
			StructuredEnglish: r.StructuredEnglish,
			Bindings:          stmt.Bindings,
		})
	}
	if out.CreateSchema == nil {
		out.CreateSchema = []string{}
	}
	return out, nil
}

func (b *builder) ident(parts ...string) string {
	return b.engine.QuoteIdent(parts...)
}

// object quotes the name of a schema-level object.
func (b *builder) object(name string) string {
	return b.engine.QuoteIdent(b.objectParts(name)...)
}

func (b *builder) objectParts(name string) []string {
	if b.opts.Namespace != "" {
		return []string{b.opts.Namespace, name}
	}
	return []string{name}
}

func (b *builder) compileOptions(extra ...compiler.Option) []compiler.Option {
	opts := append([]compiler.Option{compiler.WithTypes(b.opts.Types)}, extra...)
	if b.opts.Namespace != "" {
		opts = append(opts, compiler.WithNamespace(b.opts.Namespace))
	}
	return opts
}

func (b *builder) ifNotExists() string {
	if b.opts.IfNotExists {
		return "IF NOT EXISTS "
	}
	return ""
}

func (b *builder) table(t *schema.TableDef) error {
	if t.ViewDefinition != nil {
		stmt, err := compiler.CompileQuery(b.engine, t.ViewDefinition, b.compileOptions(compiler.WithoutBinds())...)
		if err != nil {
			return fmt.Errorf("view: %w", err)
		}
		b.create = append(b.create, b.engine.CreateView(stmt.Query, b.objectParts(t.Name)...))
		b.drop = append(b.drop, "DROP VIEW IF EXISTS "+b.object(t.Name)+";")
		return nil
	}

	stmt, err := b.createTable(t)
	if err != nil {
		return err
	}
	b.create = append(b.create, stmt)
	b.drop = append(b.drop, "DROP TABLE IF EXISTS "+b.object(t.Name)+";")

	if err := b.computedFunctions(t); err != nil {
		return err
	}
	b.modifiedAtTrigger(t)
	return b.indexes(t)
}

func (b *builder) createTable(t *schema.TableDef) (string, error) {
	var defs []string
	for _, f := range t.Fields {
		if f.IsComputed() {
			continue
		}
		col, err := sqltypes.Definition(b.opts.Types, b.engine.Name(), f.DataType, f.Required, f.Index, f.DefaultValue)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.FieldName, err)
		}
		defs = append(defs, b.ident(f.FieldName)+" "+col)
	}
	for _, f := range t.Fields {
		if f.IsComputed() || f.References == nil || !f.References.IsStrict() {
			continue
		}
		ref := b.model.Table(f.References.ResourceName)
		refName := f.References.ResourceName
		if ref != nil {
			refName = ref.Name
		}
		fk := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			b.ident(f.FieldName), b.object(refName), b.ident(f.References.FieldName))
		if b.created[refName] || refName == t.Name || !b.engine.DeferredForeignKeys() {
			defs = append(defs, fk)
			continue
		}
		constraint := truncate(t.Name+"_"+f.FieldName+"_fkey", maxIdentifierLength)
		b.deferred = append(b.deferred, fmt.Sprintf("ALTER TABLE %s\nADD CONSTRAINT %s %s;",
			b.object(t.Name), b.ident(constraint), fk))
		b.undefer = append(b.undefer, fmt.Sprintf("ALTER TABLE %s\nDROP CONSTRAINT %s;",
			b.object(t.Name), b.ident(constraint)))
	}
	for _, idx := range t.Indexes {
		if inlineIndex(idx) {
			defs = append(defs, idx.Type+" ("+strings.Join(b.idents(idx.Fields), ", ")+")")
		}
	}
	for _, chk := range t.Checks {
		expr, _, err := compiler.CompileExpr(b.engine, chk.Expr, b.compileOptions(compiler.WithoutBinds())...)
		if err != nil {
			return "", fmt.Errorf("check %q: %w", chk.Name, err)
		}
		def := "CHECK (" + expr + ")"
		if chk.Name != "" {
			def = "CONSTRAINT " + b.ident(chk.Name) + " " + def
		}
		// Lines after the comment keep the column indent.
		defs = append(defs, strings.ReplaceAll(comment(chk.Description), "\n", "\n\t")+def)
	}
	return fmt.Sprintf("CREATE TABLE %s%s (\n\t%s\n);",
		b.ifNotExists(), b.object(t.Name), strings.Join(defs, "\n,\t")), nil
}

func (b *builder) idents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = b.ident(n)
	}
	return out
}

// inlineIndex reports whether idx is declared inside CREATE TABLE rather
// than as its own statement.
func inlineIndex(idx schema.Index) bool {
	return idx.Name == "" && idx.Predicate == nil && idx.Description == ""
}

func (b *builder) indexes(t *schema.TableDef) error {
	for _, idx := range t.Indexes {
		if inlineIndex(idx) {
			continue
		}
		kind := "INDEX"
		if strings.EqualFold(idx.Type, "UNIQUE") {
			kind = "UNIQUE INDEX"
		}
		name := idx.Name
		if name == "" {
			name = truncate(t.Name+"_"+strings.Join(idx.Fields, "_")+"_idx", maxIdentifierLength)
		}
		stmt := fmt.Sprintf("%sCREATE %s %s%s\nON %s (%s)",
			comment(idx.Description), kind, b.ifNotExists(), b.ident(name),
			b.object(t.Name), strings.Join(b.idents(idx.Fields), ", "))
		if idx.Predicate != nil {
			if !b.engine.SupportsPartialIndexes() {
				return &dialect.UnsupportedError{Engine: b.engine.Name(), Feature: "partial index " + name}
			}
			pred, _, err := compiler.CompileExpr(b.engine, idx.Predicate, b.compileOptions(compiler.WithoutBinds())...)
			if err != nil {
				return fmt.Errorf("index %q: %w", name, err)
			}
			stmt += "\nWHERE " + pred
		}
		b.create = append(b.create, stmt+";")
	}
	return nil
}

// computedFunctions creates the function behind each function-computed field.
func (b *builder) computedFunctions(t *schema.TableDef) error {
	for _, f := range t.Fields {
		if f.Computed == nil || f.Computed.Fn == nil {
			continue
		}
		fn := f.Computed.Fn
		if !b.engine.SupportsFunctions() {
			return &dialect.UnsupportedError{Engine: b.engine.Name(), Feature: "computed field " + f.FieldName}
		}
		if fn.FnName == "" {
			return fmt.Errorf("computed field %q: function has no name, optimize the model first", f.FieldName)
		}
		ct, err := b.opts.Types.Lookup(b.engine.Name(), f.DataType)
		if err != nil {
			return fmt.Errorf("computed field %q: %w", f.FieldName, err)
		}
		body, _, err := compiler.CompileExpr(b.engine, fn.Definition, b.compileOptions(compiler.WithoutBinds())...)
		if err != nil {
			return fmt.Errorf("computed field %q: %w", f.FieldName, err)
		}
		volatility := strings.ToUpper(fn.Volatility)
		if volatility == "" {
			volatility = "STABLE"
		}
		parallel := strings.ToUpper(fn.Parallel)
		if parallel == "" {
			parallel = "SAFE"
		}
		// The row argument is named after the table the body refers to.
		arg, rowType := b.ident(t.Name), b.object(t.Name)
		b.create = append(b.create, fmt.Sprintf(
			"CREATE OR REPLACE FUNCTION %s(%s %s)\nRETURNS %s AS $$\n\tSELECT %s\n$$ LANGUAGE SQL %s PARALLEL %s;",
			b.object(fn.FnName), arg, rowType, ct.Native, body, volatility, parallel))
		b.drop = append(b.drop, fmt.Sprintf("DROP FUNCTION IF EXISTS %s(%s);", b.object(fn.FnName), rowType))
	}
	return nil
}

// modifiedAtTrigger keeps a "modified at" column current on update. Engines
// without functions leave it to the caller.
func (b *builder) modifiedAtTrigger(t *schema.TableDef) {
	f := t.Field(modifiedAtField)
	if f == nil || f.DataType != "Date Time" || f.IsComputed() || !b.engine.SupportsFunctions() {
		return
	}
	if !b.modifiedAtReady {
		b.create = append(b.create, fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s()
RETURNS TRIGGER AS $$
BEGIN
	NEW.%s = CURRENT_TIMESTAMP;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;`, b.object(modifiedAtFunction), b.ident(modifiedAtField)))
		// Dropped last, after every table whose trigger uses it.
		b.drop = append([]string{"DROP FUNCTION IF EXISTS " + b.object(modifiedAtFunction) + "();"}, b.drop...)
		b.modifiedAtReady = true
	}
	trigger := truncate(t.Name+"_"+modifiedAtFunction, maxIdentifierLength)
	b.create = append(b.create, fmt.Sprintf(`CREATE OR REPLACE TRIGGER %s
BEFORE UPDATE ON %s
FOR EACH ROW
EXECUTE FUNCTION %s();`, b.ident(trigger), b.object(t.Name), b.object(modifiedAtFunction)))
}

// comment renders text as a SQL line comment block, one "-- " per line.
func comment(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return "-- " + strings.ReplaceAll(text, "\n", "\n-- ") + "\n"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	for len(string(r)) > n {
		r = r[:len(r)-1]
	}
	return string(r)
}
