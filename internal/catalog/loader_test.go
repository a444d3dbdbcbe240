package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/expr"
)

func writeCUE(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(content), 0644))
	return dir
}

func TestLoad_BuildsCatalog(t *testing.T) {
	dir := writeCUE(t, `
entity: {
	Item: {
		table: "items"
		columns: {
			Id: {column: "id", type: "int"}
			Name: {column: "name", type: "string", nullable: true}
			Price: {column: "price", type: "float"}
		}
	}
	Category: {
		table: "categories"
		columns: {
			Id: {column: "id", type: "int"}
			Title: {column: "title", type: "string"}
		}
	}
}
`)

	cat, err := Load(dir)
	require.NoError(t, err)

	item, ok := cat.Entity("Item")
	require.True(t, ok)
	assert.Equal(t, "items", item.Table)
	require.Len(t, item.Columns, 3)
	// Declaration order carries through to base select column order.
	assert.Equal(t, "Id", item.Columns[0].Property)
	assert.Equal(t, "Name", item.Columns[1].Property)
	assert.Equal(t, "Price", item.Columns[2].Property)

	name, ok := item.Column("Name")
	require.True(t, ok)
	assert.Equal(t, expr.StringType().AsNullable(), name.Type)

	_, ok = cat.Entity("Category")
	assert.True(t, ok)
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoad_EmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoad_MissingTableFails(t *testing.T) {
	dir := writeCUE(t, `
entity: Item: {
	columns: Id: {column: "id", type: "int"}
}
`)

	_, err := Load(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeBadEntity, loadErr.Code)
	assert.Contains(t, loadErr.Message, "missing table")
}

func TestLoad_UnknownTypeFails(t *testing.T) {
	dir := writeCUE(t, `
entity: Item: {
	table: "items"
	columns: Id: {column: "id", type: "decimal"}
}
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimal")
}

func TestLoad_NoEntitiesFails(t *testing.T) {
	dir := writeCUE(t, `other: 1`)

	_, err := Load(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeBadEntity, loadErr.Code)
}
