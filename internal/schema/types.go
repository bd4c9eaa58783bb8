// Package schema holds the AbstractSQL model: tables, fields, indexes,
// checks and rules, as produced upstream and rewritten by the optimizer.
package schema

import (
	"encoding/json"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

type ReferenceType string

const (
	ReferenceStrict      ReferenceType = "strict"
	ReferenceInformative ReferenceType = "informative"
)

// Reference points a foreign key field at a column of another table.
type Reference struct {
	ResourceName string        `json:"resourceName"`
	FieldName    string        `json:"fieldName"`
	Type         ReferenceType `json:"type,omitempty"`
}

// IsStrict reports whether the reference is enforced with a constraint.
// An empty type counts as strict.
func (r *Reference) IsStrict() bool {
	return r.Type != ReferenceInformative
}

// ComputedFn describes a field computed by a SQL function over the row.
type ComputedFn struct {
	FnName     string
	Definition abstractsql.Node
	Volatility string
	Parallel   string
}

// Computed is a field's computation: an inline expression, a function
// descriptor, or just the marker left behind once the field was expanded.
type Computed struct {
	Expr     abstractsql.Node
	Fn       *ComputedFn
	Expanded bool
}

type FieldDef struct {
	FieldName    string     `json:"fieldName"`
	DataType     string     `json:"dataType"`
	Required     bool       `json:"required,omitempty"`
	Index        string     `json:"index,omitempty"`
	DefaultValue string     `json:"defaultValue,omitempty"`
	Computed     *Computed  `json:"computed,omitempty"`
	References   *Reference `json:"references,omitempty"`
}

// IsComputed is true for fields that are not stored columns.
func (f *FieldDef) IsComputed() bool {
	c := f.Computed
	return c != nil && (c.Expanded || c.Expr != nil || c.Fn != nil)
}

type Index struct {
	Type        string           `json:"type"`
	Name        string           `json:"name,omitempty"`
	Fields      []string         `json:"fields"`
	Predicate   abstractsql.Node `json:"-"`
	Description string           `json:"description,omitempty"`
}

type Check struct {
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	Expr        abstractsql.Node `json:"-"`
}

type TableDef struct {
	Name         string     `json:"name"`
	ResourceName string     `json:"resourceName"`
	IDField      string     `json:"idField"`
	Fields       []FieldDef `json:"fields"`
	Indexes      []Index    `json:"indexes"`
	Checks       []Check    `json:"checks,omitempty"`
	Primitive    bool       `json:"primitive,omitempty"`
	ModifyFields []FieldDef `json:"modifyFields,omitempty"`

	// Definition replaces reads of the table; ViewDefinition turns the
	// table into a view.
	Definition     abstractsql.Node `json:"-"`
	ViewDefinition abstractsql.Node `json:"-"`

	// key is the table's entry in the model's tables object.
	key string
}

// Field returns the field named name, or nil.
func (t *TableDef) Field(name string) *FieldDef {
	for i := range t.Fields {
		if t.Fields[i].FieldName == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// Key returns the entry name the table was declared under.
func (t *TableDef) Key() string {
	if t.key != "" {
		return t.key
	}
	return t.ResourceName
}

// Rule is a boolean query that must hold, with its source text.
type Rule struct {
	Body              abstractsql.Node
	StructuredEnglish string
}

// Model is a whole schema. Tables keep their declaration order, which is the
// order DDL is emitted in.
type Model struct {
	Tables        []*TableDef
	Relationships json.RawMessage
	Synonyms      json.RawMessage
	Rules         []*Rule
	LfInfo        json.RawMessage
}

// Table finds a table by SQL name, falling back to its declared key.
func (m *Model) Table(name string) *TableDef {
	for _, t := range m.Tables {
		if t.Name == name {
			return t
		}
	}
	for _, t := range m.Tables {
		if t.Key() == name {
			return t
		}
	}
	return nil
}

// AddTable appends t under key, replacing a table already declared there.
func (m *Model) AddTable(key string, t *TableDef) {
	t.key = key
	for i, existing := range m.Tables {
		if existing.Key() == key {
			m.Tables[i] = t
			return
		}
	}
	m.Tables = append(m.Tables, t)
}
