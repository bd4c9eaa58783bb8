// Package sqltypes maps logical data types to native column types per engine.
package sqltypes

import (
	"fmt"

	"github.com/atlekbai/abstract_sql/internal/dialect"
)

// ColumnType is the native representation of a logical type on one engine.
type ColumnType struct {
	Native string
	// Render is set for types whose declaration depends on nullability and
	// index, such as auto-increment and foreign key columns.
	Render func(necessity, index string) string
}

// Computed reports whether the declaration is produced by Render.
func (c ColumnType) Computed() bool { return c.Render != nil }

// Mapper resolves a logical type for an engine.
type Mapper interface {
	Lookup(engine dialect.Name, dataType string) (ColumnType, error)
}

// Table is a Mapper backed by a static table.
type Table map[string]map[dialect.Name]ColumnType

func (t Table) Lookup(engine dialect.Name, dataType string) (ColumnType, error) {
	if byEngine, ok := t[dataType]; ok {
		if ct, ok := byEngine[engine]; ok {
			return ct, nil
		}
	}
	return ColumnType{}, fmt.Errorf("unknown data type %q for engine %s", dataType, engine)
}

// IsAutoIncrement reports whether dataType is one of the serial key types.
func IsAutoIncrement(dataType string) bool {
	return dataType == "Serial" || dataType == "Big Serial"
}

// Definition renders the column type with its default, nullability and index.
func Definition(m Mapper, engine dialect.Name, dataType string, required bool, index, defaultValue string) (string, error) {
	ct, err := m.Lookup(engine, dataType)
	if err != nil {
		return "", err
	}
	necessity := " NULL"
	if required {
		necessity = " NOT NULL"
	}
	if index != "" {
		index = " " + index
	}
	if ct.Render != nil {
		return ct.Render(necessity, index), nil
	}
	def := ""
	if defaultValue != "" {
		def = " DEFAULT " + defaultValue
	}
	return ct.Native + def + necessity + index, nil
}

func same(native string) map[dialect.Name]ColumnType {
	return map[dialect.Name]ColumnType{
		dialect.NamePostgres: {Native: native},
		dialect.NameMySQL:    {Native: native},
		dialect.NameWebSQL:   {Native: native},
	}
}

func each(pg, my, web string) map[dialect.Name]ColumnType {
	return map[dialect.Name]ColumnType{
		dialect.NamePostgres: {Native: pg},
		dialect.NameMySQL:    {Native: my},
		dialect.NameWebSQL:   {Native: web},
	}
}

func rendered(native string, f func(necessity, index string) string) ColumnType {
	return ColumnType{Native: native, Render: f}
}

func serial(pg, my string) map[dialect.Name]ColumnType {
	return map[dialect.Name]ColumnType{
		dialect.NamePostgres: rendered(pg, func(necessity, index string) string {
			return pg + necessity + index
		}),
		dialect.NameMySQL: rendered(my, func(necessity, index string) string {
			return my + necessity + index + " AUTO_INCREMENT"
		}),
		dialect.NameWebSQL: rendered("INTEGER", func(necessity, index string) string {
			if index == " PRIMARY KEY" {
				return "INTEGER" + necessity + index + " AUTOINCREMENT"
			}
			return "INTEGER" + necessity + index
		}),
	}
}

func reference() map[dialect.Name]ColumnType {
	f := func(necessity, index string) string { return "INTEGER" + necessity + index }
	return map[dialect.Name]ColumnType{
		dialect.NamePostgres: rendered("INTEGER", f),
		dialect.NameMySQL:    rendered("INTEGER", f),
		dialect.NameWebSQL:   rendered("INTEGER", f),
	}
}

// Default is the built-in type table.
var Default = Table{
	"Serial":      serial("SERIAL", "INTEGER"),
	"Big Serial":  serial("BIGSERIAL", "BIGINT"),
	"Integer":     same("INTEGER"),
	"Big Integer": each("BIGINT", "BIGINT", "INTEGER"),
	"Real":        same("REAL"),
	"Short Text":  same("VARCHAR(255)"),
	"Text":        same("TEXT"),
	"Hashed":      same("CHAR(60)"),
	"Boolean":     each("BOOLEAN", "BOOLEAN", "INTEGER"),
	"Date":        each("DATE", "DATE", "TEXT"),
	"Date Time":   each("TIMESTAMP", "TIMESTAMP", "TEXT"),
	"Time":        each("TIME", "TIME", "TEXT"),
	"Interval":    each("INTERVAL", "BIGINT", "INTEGER"),
	"JSON":        each("JSONB", "JSON", "TEXT"),
	"File":        each("BYTEA", "BLOB", "BLOB"),
	"Color":       same("INTEGER"),
	"ForeignKey":  reference(),
	"ConceptType": reference(),
}
