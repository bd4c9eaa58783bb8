package abstractsql

import "encoding/json"

// Node is the interface all AbstractSQL nodes implement.
// The set of implementations is closed: every node kind lives in this file.
type Node interface {
	// Tag returns the tag the node carries in the tagged-array form.
	Tag() string
	node() // marker method
}

// Clause is a node that may only appear directly inside a query node.
type Clause interface {
	Node
	clause()
}

// --- Queries ---

// SelectQuery holds its clauses in source order; clause kind, not position,
// decides where a clause is rendered.
type SelectQuery struct {
	Clauses []Clause
}

// UnionQuery joins its queries with UNION.
type UnionQuery struct {
	Queries []Node // *SelectQuery or *UnionQuery
}

// InsertQuery accepts From, Fields, Values and Where clauses.
type InsertQuery struct {
	Clauses []Clause
}

// UpdateQuery accepts From, Fields, Values and Where clauses.
type UpdateQuery struct {
	Clauses []Clause
}

// DeleteQuery accepts From and Where clauses.
type DeleteQuery struct {
	Clauses []Clause
}

// UpsertQuery pairs an insert with the update to run when the insert conflicts.
type UpsertQuery struct {
	Insert *InsertQuery
	Update *UpdateQuery
}

// --- Clauses ---

type Select struct {
	Fields []Node
}

type From struct {
	Source Node // *Table, *Alias, *SelectQuery or *UnionQuery
}

type Where struct {
	Expr Node
}

type GroupBy struct {
	Exprs []Node
}

type Having struct {
	Expr Node
}

// OrderBy lists sort keys; each item is ['ASC', expr] or ['DESC', expr].
type OrderBy struct {
	Items []OrderItem
}

type OrderItem struct {
	Desc bool
	Expr Node
}

type Limit struct {
	Expr Node
}

type Offset struct {
	Expr Node
}

// Fields names the columns written by an insert or update.
type Fields struct {
	Names []string
}

// Values is either a list parallel to Fields or a query producing the rows.
type Values struct {
	Query Node // *SelectQuery or *UnionQuery, nil when List is used
	List  []Node
}

// --- References ---

type Table struct {
	Name string
}

type Alias struct {
	Expr Node
	As   string
}

type Field struct {
	Name string
}

// ReferencedField is a table-qualified field; Field may be "*".
type ReferencedField struct {
	Table string
	Field string
}

// BindKind tells how a Bind payload is resolved by the caller.
type BindKind int

const (
	BindPositional BindKind = iota // ['Bind', 0]
	BindNamed                      // ['Bind', 'name']
	BindColumn                     // ['Bind', ['alias', 'field']]
)

type Bind struct {
	Kind     BindKind
	Position int
	Name     string
	Table    string
	Field    string
}

type Default struct{}

type Null struct{}

// --- Literals ---

type Text struct {
	Value string
}

type Number struct {
	Value json.Number
}

type Boolean struct {
	Value bool
}

// Date carries the raw date value; it is always bound, never inlined by the engine.
type Date struct {
	Value string
}

// Duration is an interval literal. Nil components are absent.
type Duration struct {
	Negative bool
	Day      *float64
	Hour     *float64
	Minute   *float64
	Second   *float64
}

// --- Boolean operators ---

type And struct {
	Exprs []Node
}

type Or struct {
	Exprs []Node
}

type Not struct {
	Expr Node
}

// Exists renders EXISTS for queries and IS NOT NULL for values.
type Exists struct {
	Expr Node
}

// NotExists renders NOT EXISTS for queries and IS NULL for values.
type NotExists struct {
	Expr Node
}

// CompareOp is the closed set of binary comparison tags.
type CompareOp string

const (
	OpEquals             CompareOp = "Equals"
	OpNotEquals          CompareOp = "NotEquals"
	OpGreaterThan        CompareOp = "GreaterThan"
	OpGreaterThanOrEqual CompareOp = "GreaterThanOrEqual"
	OpLessThan           CompareOp = "LessThan"
	OpLessThanOrEqual    CompareOp = "LessThanOrEqual"
	OpLike               CompareOp = "Like"
	OpIsDistinctFrom     CompareOp = "IsDistinctFrom"
	OpIsNotDistinctFrom  CompareOp = "IsNotDistinctFrom"
)

type Comparison struct {
	Op    CompareOp
	Left  Node
	Right Node
}

type Between struct {
	Expr Node
	Low  Node
	High Node
}

// In covers both In and NotIn.
type In struct {
	Negate bool
	Expr   Node
	Values []Node
}

// --- Scalar operators ---

// ArithOp is the closed set of binary arithmetic tags.
type ArithOp string

const (
	OpAdd               ArithOp = "Add"
	OpSubtract          ArithOp = "Subtract"
	OpMultiply          ArithOp = "Multiply"
	OpDivide            ArithOp = "Divide"
	OpBitwiseAnd        ArithOp = "BitwiseAnd"
	OpBitwiseShiftRight ArithOp = "BitwiseShiftRight"
)

type Arithmetic struct {
	Op    ArithOp
	Left  Node
	Right Node
}

type Concat struct {
	Exprs []Node
}

// Function is a fixed-name scalar function; see functionArity for the argument counts.
type Function struct {
	Fn   FuncName
	Args []Node
}

type FuncName string

const (
	FnLower           FuncName = "Lower"
	FnUpper           FuncName = "Upper"
	FnTrim            FuncName = "Trim"
	FnReplace         FuncName = "Replace"
	FnSubstring       FuncName = "Substring"
	FnRight           FuncName = "Right"
	FnCharacterLength FuncName = "CharacterLength"
	FnStrPos          FuncName = "StrPos"
	FnRound           FuncName = "Round"
	FnFloor           FuncName = "Floor"
	FnCeiling         FuncName = "Ceiling"
	FnToDate          FuncName = "ToDate"
	FnToTime          FuncName = "ToTime"
	FnNow             FuncName = "Now"
	FnTotalSeconds    FuncName = "TotalSeconds"
	FnCoalesce        FuncName = "Coalesce"
	FnRangeLower      FuncName = "RangeLower"
	FnRangeUpper      FuncName = "RangeUpper"
)

// DatePartName is the closed set of date-part extraction tags.
type DatePartName string

const (
	PartYear              DatePartName = "Year"
	PartMonth             DatePartName = "Month"
	PartDay               DatePartName = "Day"
	PartHour              DatePartName = "Hour"
	PartMinute            DatePartName = "Minute"
	PartSecond            DatePartName = "Second"
	PartFractionalseconds DatePartName = "Fractionalseconds"
)

type DatePart struct {
	Part DatePartName
	Expr Node
}

// Cast converts Expr to the native column type of the logical type Type.
type Cast struct {
	Expr Node
	Type string
}

// Count is COUNT(*).
type Count struct{}

// AggregateJSON aggregates a row ("*") or a single field into a JSON array.
type AggregateJSON struct {
	Table string
	Field string
}

// ConvertRow turns a whole table row into a JSON object.
type ConvertRow struct {
	Table string
}

// FnCall calls a named database function.
type FnCall struct {
	Name string
	Args []Node
}

type Case struct {
	Whens []When
	Else  Node // nil when absent
}

type When struct {
	Cond  Node
	Value Node
}

func (*SelectQuery) Tag() string     { return "SelectQuery" }
func (*UnionQuery) Tag() string      { return "UnionQuery" }
func (*InsertQuery) Tag() string     { return "InsertQuery" }
func (*UpdateQuery) Tag() string     { return "UpdateQuery" }
func (*DeleteQuery) Tag() string     { return "DeleteQuery" }
func (*UpsertQuery) Tag() string     { return "UpsertQuery" }
func (*Select) Tag() string          { return "Select" }
func (*From) Tag() string            { return "From" }
func (*Where) Tag() string           { return "Where" }
func (*GroupBy) Tag() string         { return "GroupBy" }
func (*Having) Tag() string          { return "Having" }
func (*OrderBy) Tag() string         { return "OrderBy" }
func (*Limit) Tag() string           { return "Limit" }
func (*Offset) Tag() string          { return "Offset" }
func (*Fields) Tag() string          { return "Fields" }
func (*Values) Tag() string          { return "Values" }
func (*Table) Tag() string           { return "Table" }
func (*Alias) Tag() string           { return "Alias" }
func (*Field) Tag() string           { return "Field" }
func (*ReferencedField) Tag() string { return "ReferencedField" }
func (*Bind) Tag() string            { return "Bind" }
func (*Default) Tag() string         { return "Default" }
func (*Null) Tag() string            { return "Null" }
func (*Text) Tag() string            { return "Text" }
func (*Number) Tag() string          { return "Number" }
func (*Boolean) Tag() string         { return "Boolean" }
func (*Date) Tag() string            { return "Date" }
func (*Duration) Tag() string        { return "Duration" }
func (*And) Tag() string             { return "And" }
func (*Or) Tag() string              { return "Or" }
func (*Not) Tag() string             { return "Not" }
func (*Exists) Tag() string          { return "Exists" }
func (*NotExists) Tag() string       { return "NotExists" }
func (n *Comparison) Tag() string    { return string(n.Op) }
func (*Between) Tag() string         { return "Between" }
func (n *Arithmetic) Tag() string    { return string(n.Op) }
func (*Concat) Tag() string          { return "Concat" }
func (n *Function) Tag() string      { return string(n.Fn) }
func (n *DatePart) Tag() string      { return string(n.Part) }
func (*Cast) Tag() string            { return "Cast" }
func (*Count) Tag() string           { return "Count" }
func (*AggregateJSON) Tag() string   { return "AggregateJSON" }
func (*ConvertRow) Tag() string      { return "ConvertRow" }
func (*FnCall) Tag() string          { return "FnCall" }
func (*Case) Tag() string            { return "Case" }

func (n *In) Tag() string {
	if n.Negate {
		return "NotIn"
	}
	return "In"
}

func (*SelectQuery) node()     {}
func (*UnionQuery) node()      {}
func (*InsertQuery) node()     {}
func (*UpdateQuery) node()     {}
func (*DeleteQuery) node()     {}
func (*UpsertQuery) node()     {}
func (*Select) node()          {}
func (*From) node()            {}
func (*Where) node()           {}
func (*GroupBy) node()         {}
func (*Having) node()          {}
func (*OrderBy) node()         {}
func (*Limit) node()           {}
func (*Offset) node()          {}
func (*Fields) node()          {}
func (*Values) node()          {}
func (*Table) node()           {}
func (*Alias) node()           {}
func (*Field) node()           {}
func (*ReferencedField) node() {}
func (*Bind) node()            {}
func (*Default) node()         {}
func (*Null) node()            {}
func (*Text) node()            {}
func (*Number) node()          {}
func (*Boolean) node()         {}
func (*Date) node()            {}
func (*Duration) node()        {}
func (*And) node()             {}
func (*Or) node()              {}
func (*Not) node()             {}
func (*Exists) node()          {}
func (*NotExists) node()       {}
func (*Comparison) node()      {}
func (*Between) node()         {}
func (*In) node()              {}
func (*Arithmetic) node()      {}
func (*Concat) node()          {}
func (*Function) node()        {}
func (*DatePart) node()        {}
func (*Cast) node()            {}
func (*Count) node()           {}
func (*AggregateJSON) node()   {}
func (*ConvertRow) node()      {}
func (*FnCall) node()          {}
func (*Case) node()            {}

func (*Select) clause()  {}
func (*From) clause()    {}
func (*Where) clause()   {}
func (*GroupBy) clause() {}
func (*Having) clause()  {}
func (*OrderBy) clause() {}
func (*Limit) clause()   {}
func (*Offset) clause()  {}
func (*Fields) clause()  {}
func (*Values) clause()  {}

// IsQuery reports whether n produces rows (a SELECT or a UNION).
func IsQuery(n Node) bool {
	switch n.(type) {
	case *SelectQuery, *UnionQuery:
		return true
	}
	return false
}
