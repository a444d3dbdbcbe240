package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relq "github.com/roach88/relq"
	"github.com/roach88/relq/internal/testutil"
)

func writeQueryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadQuery_FullDocument(t *testing.T) {
	path := writeQueryFile(t, `
from: Item
where:
  op: gt
  left: {member: Price}
  right: {value: 10.0}
select: [Name, Price]
orderBy:
  - {member: Price, desc: true}
distinct: true
skip: 2
take: 5
`)

	doc, err := LoadQuery(path)
	require.NoError(t, err)
	assert.Equal(t, "Item", doc.From)
	assert.Equal(t, []string{"Name", "Price"}, doc.Select)
	require.Len(t, doc.OrderBy, 1)
	assert.True(t, doc.OrderBy[0].Desc)
	assert.True(t, doc.Distinct)
	require.NotNil(t, doc.Skip)
	assert.Equal(t, int64(2), *doc.Skip)
	require.NotNil(t, doc.Take)
	assert.Equal(t, int64(5), *doc.Take)
}

func TestLoadQuery_RejectsUnknownField(t *testing.T) {
	path := writeQueryFile(t, `
from: Item
limit: 5
`)

	_, err := LoadQuery(path)
	require.Error(t, err)
}

func TestLoadQuery_RequiresFrom(t *testing.T) {
	path := writeQueryFile(t, `
select: [Name]
`)

	_, err := LoadQuery(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from")
}

func TestBuildQuery_CompilesToSQL(t *testing.T) {
	path := writeQueryFile(t, `
from: Item
where:
  op: gt
  left: {member: Price}
  right: {value: 10.0}
select: [Name, Price]
orderBy:
  - {member: Price, desc: true}
take: 5
`)

	doc, err := LoadQuery(path)
	require.NoError(t, err)
	cat := testutil.StandardCatalog()
	q, err := BuildQuery(doc, cat)
	require.NoError(t, err)

	plan, err := relq.Compile(q, cat)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT t0.name, t0.price\n"+
			"FROM items AS t0\n"+
			"WHERE (t0.price > 10.0)\n"+
			"ORDER BY t0.price DESC\n"+
			"LIMIT 0, 5",
		plan.SQL())
}

func TestBuildQuery_ParamNodePropagates(t *testing.T) {
	path := writeQueryFile(t, `
from: Item
where:
  op: ge
  left: {member: Price}
  right: {param: minPrice, type: float}
`)

	doc, err := LoadQuery(path)
	require.NoError(t, err)
	cat := testutil.StandardCatalog()
	q, err := BuildQuery(doc, cat)
	require.NoError(t, err)

	plan, err := relq.Compile(q, cat)
	require.NoError(t, err)
	assert.Contains(t, plan.SQL(), ":minPrice")
	assert.Equal(t, []string{"minPrice"}, plan.ParamNames())
}

func TestBuildQuery_ParamWithoutTypeFails(t *testing.T) {
	doc := &QueryDoc{
		From:  "Item",
		Where: &ExprDoc{Op: "ge", Left: &ExprDoc{Member: "Price"}, Right: &ExprDoc{Param: "minPrice"}},
	}

	_, err := BuildQuery(doc, testutil.StandardCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing type")
}

func TestBuildQuery_ScalarCall(t *testing.T) {
	path := writeQueryFile(t, `
from: Item
where:
  call: StartsWith
  on: {member: Name}
  args:
    - {value: "pen"}
`)

	doc, err := LoadQuery(path)
	require.NoError(t, err)
	cat := testutil.StandardCatalog()
	q, err := BuildQuery(doc, cat)
	require.NoError(t, err)

	plan, err := relq.Compile(q, cat)
	require.NoError(t, err)
	assert.Contains(t, plan.SQL(), "LIKE 'pen' || '%'")
}

func TestBuildQuery_UnknownEntityFails(t *testing.T) {
	doc := &QueryDoc{From: "Ghost"}
	_, err := BuildQuery(doc, testutil.StandardCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestBuildQuery_UnknownPropertyFails(t *testing.T) {
	doc := &QueryDoc{From: "Item", Select: []string{"Ghost"}}
	_, err := BuildQuery(doc, testutil.StandardCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestResultColumns_SelectOrder(t *testing.T) {
	cat := testutil.StandardCatalog()

	withSelect := &QueryDoc{From: "Item", Select: []string{"Price", "Name"}}
	assert.Equal(t, []string{"Price", "Name"}, ResultColumns(withSelect, cat))

	whole := &QueryDoc{From: "Item"}
	assert.Equal(t, []string{"Id", "Name", "Price", "CategoryId"}, ResultColumns(whole, cat))
}

func TestParseParams_TypedValues(t *testing.T) {
	params, err := parseParams([]string{"n=3", "price=10.5", "flag=true", "name=pencil"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), params["n"])
	assert.Equal(t, 10.5, params["price"])
	assert.Equal(t, true, params["flag"])
	assert.Equal(t, "pencil", params["name"])
}

func TestParseParams_RejectsBarePair(t *testing.T) {
	_, err := parseParams([]string{"minPrice"})
	require.Error(t, err)
}
