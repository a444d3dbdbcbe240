package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/expr"
)

func itemMapping() EntityMapping {
	return EntityMapping{
		Name:  "Item",
		Table: "items",
		Columns: []ColumnMapping{
			{Property: "Id", Column: "id", Type: expr.IntType()},
			{Property: "Name", Column: "name", Type: expr.StringType()},
		},
	}
}

func TestEntity_CarriesEntityRef(t *testing.T) {
	e := Entity("Item")
	assert.Equal(t, expr.KindEntity, e.Type().Kind)

	ref, ok := e.Value.(EntityRef)
	require.True(t, ok)
	assert.Equal(t, "Item", ref.Name)
	assert.Equal(t, "entity:Item", ref.String())
}

func TestNewMapCatalog_LooksUpEntities(t *testing.T) {
	cat, err := NewMapCatalog(itemMapping())
	require.NoError(t, err)

	m, ok := cat.Entity("Item")
	require.True(t, ok)
	assert.Equal(t, "items", m.Table)

	_, ok = cat.Entity("Ghost")
	assert.False(t, ok)
}

func TestNewMapCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewMapCatalog(itemMapping(), itemMapping())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewMapCatalog_RejectsIncompleteMappings(t *testing.T) {
	noTable := itemMapping()
	noTable.Table = ""
	_, err := NewMapCatalog(noTable)
	require.Error(t, err)

	noColumns := itemMapping()
	noColumns.Columns = nil
	_, err = NewMapCatalog(noColumns)
	require.Error(t, err)

	dupProp := itemMapping()
	dupProp.Columns = append(dupProp.Columns, dupProp.Columns[0])
	_, err = NewMapCatalog(dupProp)
	require.Error(t, err)
}

func TestEntityMapping_Column(t *testing.T) {
	m := itemMapping()

	c, ok := m.Column("Name")
	require.True(t, ok)
	assert.Equal(t, "name", c.Column)

	_, ok = m.Column("Ghost")
	assert.False(t, ok)
}

func TestParseType_KnownNames(t *testing.T) {
	tests := []struct {
		name     string
		nullable bool
		want     expr.Type
	}{
		{"int", false, expr.IntType()},
		{"float", false, expr.FloatType()},
		{"string", false, expr.StringType()},
		{"bool", false, expr.BoolType()},
		{"time", false, expr.TimeType()},
		{"bytes", false, expr.BytesType()},
		{"int", true, expr.IntType().AsNullable()},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.name, tt.nullable)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseType("decimal", false)
	require.Error(t, err)
}
