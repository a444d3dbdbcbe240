// Package catalog is the mapping-configuration boundary: it associates
// entity names with table and column names so the binder can resolve member
// accesses to column references.
//
// The translation core only depends on the Catalog interface. MapCatalog is
// the in-memory implementation used by tests and tooling; Load builds one
// from CUE files.
package catalog

import (
	"fmt"

	"github.com/roach88/relq/internal/expr"
)

// EntityRef is the table anchor a query chain starts from. A Constant
// holding an EntityRef (typed expr.KindEntity) is what the binder
// recognizes as a mapped source.
type EntityRef struct {
	Name string
}

func (r EntityRef) String() string { return "entity:" + r.Name }

// Entity returns an expression anchoring a query chain at the named entity.
func Entity(name string) *expr.Constant {
	return &expr.Constant{
		Value:      EntityRef{Name: name},
		ResultType: expr.Type{Kind: expr.KindEntity},
	}
}

// ColumnMapping maps one entity property to a table column.
type ColumnMapping struct {
	Property string
	Column   string
	Type     expr.Type
}

// EntityMapping maps one entity to a table. Column order is the declaration
// order and determines the column order of base selects.
type EntityMapping struct {
	Name    string
	Table   string
	Columns []ColumnMapping
}

// Column returns the mapping for the named property, if any.
func (m EntityMapping) Column(property string) (ColumnMapping, bool) {
	for _, c := range m.Columns {
		if c.Property == property {
			return c, true
		}
	}
	return ColumnMapping{}, false
}

// Catalog resolves entity names to mappings.
type Catalog interface {
	// Entity returns the mapping for the named entity. The second result
	// is false when the entity is unknown.
	Entity(name string) (EntityMapping, bool)
}

// MapCatalog is an in-memory Catalog.
type MapCatalog struct {
	entities map[string]EntityMapping
}

// NewMapCatalog builds a catalog from mappings. Duplicate entity names are
// an error.
func NewMapCatalog(mappings ...EntityMapping) (*MapCatalog, error) {
	entities := make(map[string]EntityMapping, len(mappings))
	for _, m := range mappings {
		if _, dup := entities[m.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate entity %q", m.Name)
		}
		if m.Table == "" {
			return nil, fmt.Errorf("catalog: entity %q has no table", m.Name)
		}
		if len(m.Columns) == 0 {
			return nil, fmt.Errorf("catalog: entity %q has no columns", m.Name)
		}
		seen := make(map[string]bool, len(m.Columns))
		for _, c := range m.Columns {
			if seen[c.Property] {
				return nil, fmt.Errorf("catalog: entity %q maps property %q twice", m.Name, c.Property)
			}
			seen[c.Property] = true
		}
		entities[m.Name] = m
	}
	return &MapCatalog{entities: entities}, nil
}

// Entity implements Catalog.
func (c *MapCatalog) Entity(name string) (EntityMapping, bool) {
	m, ok := c.entities[name]
	return m, ok
}

// ParseType converts a catalog type name to an expr.Type.
// Known names: int, float, string, bool, time, bytes.
func ParseType(name string, nullable bool) (expr.Type, error) {
	var t expr.Type
	switch name {
	case "int":
		t = expr.IntType()
	case "float":
		t = expr.FloatType()
	case "string":
		t = expr.StringType()
	case "bool":
		t = expr.BoolType()
	case "time":
		t = expr.TimeType()
	case "bytes":
		t = expr.BytesType()
	default:
		return expr.Type{}, fmt.Errorf("catalog: unknown column type %q", name)
	}
	if nullable {
		t = t.AsNullable()
	}
	return t, nil
}
