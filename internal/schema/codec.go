package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

// parseTree decodes an AbstractSQL tree given either bare or wrapped as
// {"abstractSql": tree}. Empty input and null yield nil.
func parseTree(raw json.RawMessage) (abstractsql.Node, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '{' {
		var wrapped struct {
			AbstractSQL json.RawMessage `json:"abstractSql"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		raw = wrapped.AbstractSQL
	}
	return abstractsql.Parse(raw)
}

func marshalTree(n abstractsql.Node) (json.RawMessage, error) {
	if n == nil {
		return nil, nil
	}
	return abstractsql.Marshal(n)
}

func marshalDefinition(n abstractsql.Node) (json.RawMessage, error) {
	if n == nil {
		return nil, nil
	}
	tree, err := abstractsql.Marshal(n)
	if err != nil {
		return nil, err
	}
	return abstractsql.MarshalValue(struct {
		AbstractSQL json.RawMessage `json:"abstractSql"`
	}{tree})
}

func (c *Computed) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*c = Computed{Expanded: true}
		return nil
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("null")):
		*c = Computed{}
		return nil
	case len(data) > 0 && data[0] == '[':
		n, err := abstractsql.Parse(data)
		if err != nil {
			return fmt.Errorf("computed expression: %w", err)
		}
		*c = Computed{Expr: n}
		return nil
	}
	var desc struct {
		FnName     string          `json:"fnName"`
		Definition json.RawMessage `json:"definition"`
		Volatility string          `json:"volatility"`
		Parallel   string          `json:"parallel"`
	}
	if err := json.Unmarshal(data, &desc); err != nil {
		return fmt.Errorf("computed descriptor: %w", err)
	}
	def, err := parseTree(desc.Definition)
	if err != nil {
		return fmt.Errorf("computed definition: %w", err)
	}
	if def == nil {
		return abstractsql.Shapef("computed", "descriptor without definition")
	}
	*c = Computed{Fn: &ComputedFn{
		FnName:     desc.FnName,
		Definition: def,
		Volatility: desc.Volatility,
		Parallel:   desc.Parallel,
	}}
	return nil
}

func (c Computed) MarshalJSON() ([]byte, error) {
	switch {
	case c.Fn != nil:
		def, err := marshalTree(c.Fn.Definition)
		if err != nil {
			return nil, err
		}
		return abstractsql.MarshalValue(struct {
			FnName     string          `json:"fnName,omitempty"`
			Definition json.RawMessage `json:"definition"`
			Volatility string          `json:"volatility,omitempty"`
			Parallel   string          `json:"parallel,omitempty"`
		}{c.Fn.FnName, def, c.Fn.Volatility, c.Fn.Parallel})
	case c.Expr != nil && !c.Expanded:
		return marshalTree(c.Expr)
	case c.Expanded:
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

type indexAlias Index

type indexJSON struct {
	*indexAlias
	Predicate json.RawMessage `json:"predicate,omitempty"`
}

func (i *Index) UnmarshalJSON(data []byte) error {
	aux := indexJSON{indexAlias: (*indexAlias)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	pred, err := parseTree(aux.Predicate)
	if err != nil {
		return fmt.Errorf("index predicate: %w", err)
	}
	i.Predicate = pred
	return nil
}

func (i Index) MarshalJSON() ([]byte, error) {
	pred, err := marshalTree(i.Predicate)
	if err != nil {
		return nil, err
	}
	return abstractsql.MarshalValue(indexJSON{indexAlias: (*indexAlias)(&i), Predicate: pred})
}

type checkAlias Check

type checkJSON struct {
	*checkAlias
	AbstractSQL json.RawMessage `json:"abstractSql"`
}

func (c *Check) UnmarshalJSON(data []byte) error {
	aux := checkJSON{checkAlias: (*checkAlias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	expr, err := parseTree(aux.AbstractSQL)
	if err != nil {
		return fmt.Errorf("check %q: %w", c.Name, err)
	}
	if expr == nil {
		return abstractsql.Shapef("check", "missing abstractSql")
	}
	c.Expr = expr
	return nil
}

func (c Check) MarshalJSON() ([]byte, error) {
	expr, err := marshalTree(c.Expr)
	if err != nil {
		return nil, err
	}
	return abstractsql.MarshalValue(checkJSON{checkAlias: (*checkAlias)(&c), AbstractSQL: expr})
}

type tableAlias TableDef

type tableJSON struct {
	*tableAlias
	Definition     json.RawMessage `json:"definition,omitempty"`
	ViewDefinition json.RawMessage `json:"viewDefinition,omitempty"`
}

func (t *TableDef) UnmarshalJSON(data []byte) error {
	aux := tableJSON{tableAlias: (*tableAlias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if t.Definition, err = parseTree(aux.Definition); err != nil {
		return fmt.Errorf("table %q definition: %w", t.Name, err)
	}
	if t.ViewDefinition, err = parseTree(aux.ViewDefinition); err != nil {
		return fmt.Errorf("table %q view definition: %w", t.Name, err)
	}
	return nil
}

func (t TableDef) MarshalJSON() ([]byte, error) {
	def, err := marshalDefinition(t.Definition)
	if err != nil {
		return nil, err
	}
	view, err := marshalDefinition(t.ViewDefinition)
	if err != nil {
		return nil, err
	}
	return abstractsql.MarshalValue(tableJSON{tableAlias: (*tableAlias)(&t), Definition: def, ViewDefinition: view})
}

// UnmarshalJSON decodes ['Rule', ['Body', tree], ['StructuredEnglish', text]].
func (r *Rule) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return abstractsql.Shapef("Rule", "expected a tagged list: %v", err)
	}
	if len(raw) == 0 || raw[0] != "Rule" {
		return abstractsql.Shapef("Rule", "missing Rule tag")
	}
	var (
		body    abstractsql.Node
		english *string
	)
	for _, part := range raw[1:] {
		item, ok := part.([]any)
		if !ok || len(item) != 2 {
			return abstractsql.Shapef("Rule", "rule parts must be [tag, value]")
		}
		switch item[0] {
		case "Body":
			n, err := abstractsql.Decode(item[1])
			if err != nil {
				return fmt.Errorf("rule body: %w", err)
			}
			body = n
		case "StructuredEnglish":
			s, ok := item[1].(string)
			if !ok {
				return abstractsql.Shapef("Rule", "StructuredEnglish must be a string")
			}
			english = &s
		default:
			return abstractsql.Shapef("Rule", "unknown part %v", item[0])
		}
	}
	if body == nil {
		return abstractsql.Shapef("Rule", "missing Body")
	}
	if english == nil {
		return abstractsql.Shapef("Rule", "missing StructuredEnglish")
	}
	*r = Rule{Body: body, StructuredEnglish: *english}
	return nil
}

func (r Rule) MarshalJSON() ([]byte, error) {
	return abstractsql.MarshalValue([]any{
		"Rule",
		[]any{"Body", abstractsql.Encode(r.Body)},
		[]any{"StructuredEnglish", r.StructuredEnglish},
	})
}

type modelJSON struct {
	Tables        json.RawMessage `json:"tables"`
	Relationships json.RawMessage `json:"relationships,omitempty"`
	Synonyms      json.RawMessage `json:"synonyms,omitempty"`
	Rules         []*Rule         `json:"rules"`
	LfInfo        json.RawMessage `json:"lfInfo,omitempty"`
}

// UnmarshalJSON decodes a model keeping the declaration order of tables.
func (m *Model) UnmarshalJSON(data []byte) error {
	var aux modelJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Model{
		Relationships: aux.Relationships,
		Synonyms:      aux.Synonyms,
		Rules:         aux.Rules,
		LfInfo:        aux.LfInfo,
	}
	if len(aux.Tables) == 0 {
		return nil
	}
	return decodeOrdered(aux.Tables, func(key string, raw json.RawMessage) error {
		t := &TableDef{}
		if err := json.Unmarshal(raw, t); err != nil {
			return fmt.Errorf("table %q: %w", key, err)
		}
		m.AddTable(key, t)
		return nil
	})
}

func (m Model) MarshalJSON() ([]byte, error) {
	var tables bytes.Buffer
	tables.WriteByte('{')
	for i, t := range m.Tables {
		if i > 0 {
			tables.WriteByte(',')
		}
		key, err := abstractsql.MarshalValue(t.Key())
		if err != nil {
			return nil, err
		}
		body, err := abstractsql.MarshalValue(t)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Key(), err)
		}
		tables.Write(key)
		tables.WriteByte(':')
		tables.Write(body)
	}
	tables.WriteByte('}')
	rules := m.Rules
	if rules == nil {
		rules = []*Rule{}
	}
	return abstractsql.MarshalValue(modelJSON{
		Tables:        tables.Bytes(),
		Relationships: m.Relationships,
		Synonyms:      m.Synonyms,
		Rules:         rules,
		LfInfo:        m.LfInfo,
	})
}

// decodeOrdered walks a JSON object, calling fn for each member in order.
func decodeOrdered(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected an object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("member %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
