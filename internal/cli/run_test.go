package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/executor"
)

func writeSeededDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	sess, err := executor.Open(path)
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.DB().Exec(`
		CREATE TABLE items (
			id INTEGER PRIMARY KEY,
			name TEXT,
			price REAL NOT NULL
		);
		INSERT INTO items (id, name, price) VALUES
			(1, 'pencil', 0.5),
			(2, 'notebook', 3.0),
			(3, 'monitor', 149.99);
	`)
	require.NoError(t, err)
	return path
}

func TestRun_PrintsResultTable(t *testing.T) {
	catalogDir := writeCatalogDir(t)
	db := writeSeededDB(t)
	queryFile := writeQueryFile(t, `
from: Item
where:
  op: lt
  left: {member: Price}
  right: {value: 10.0}
select: [Name, Price]
orderBy:
  - {member: Price}
`)

	out, err := execute(t, "run", "--db", db, catalogDir, queryFile)
	require.NoError(t, err)
	assert.Contains(t, out, "pencil")
	assert.Contains(t, out, "notebook")
	assert.NotContains(t, out, "monitor")
	assert.Contains(t, out, "(2 rows)")
}

func TestRun_ParameterBinding(t *testing.T) {
	catalogDir := writeCatalogDir(t)
	db := writeSeededDB(t)
	queryFile := writeQueryFile(t, `
from: Item
where:
  op: ge
  left: {member: Price}
  right: {param: minPrice, type: float}
select: [Name]
`)

	out, err := execute(t, "run", "--db", db, catalogDir, queryFile,
		"--param", "minPrice=100")
	require.NoError(t, err)
	assert.Contains(t, out, "monitor")
	assert.Contains(t, out, "(1 rows)")
}

func TestRun_JSONFormat(t *testing.T) {
	catalogDir := writeCatalogDir(t)
	db := writeSeededDB(t)
	queryFile := writeQueryFile(t, `
from: Item
select: [Name]
orderBy:
  - {member: Name}
`)

	out, err := execute(t, "--format", "json", "run", "--db", db, catalogDir, queryFile)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	rows, ok := data["rows"].([]any)
	require.True(t, ok)
	assert.Len(t, rows, 3)
}

func TestRun_MissingParamFails(t *testing.T) {
	catalogDir := writeCatalogDir(t)
	db := writeSeededDB(t)
	queryFile := writeQueryFile(t, `
from: Item
where:
  op: ge
  left: {member: Price}
  right: {param: minPrice, type: float}
`)

	out, err := execute(t, "run", "--db", db, catalogDir, queryFile)
	require.Error(t, err)
	assert.Contains(t, out, "minPrice")
}

func TestRun_RequiresDBFlag(t *testing.T) {
	catalogDir := writeCatalogDir(t)
	queryFile := writeQueryFile(t, "from: Item\n")

	_, err := execute(t, "run", catalogDir, queryFile)
	require.Error(t, err)
}

func TestRun_VerbosePrintsSQL(t *testing.T) {
	catalogDir := writeCatalogDir(t)
	db := writeSeededDB(t)
	queryFile := writeQueryFile(t, "from: Item\n")

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--verbose", "run", "--db", db, catalogDir, queryFile})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, errOut.String(), "SELECT")
	assert.Contains(t, out.String(), "(3 rows)")
}
