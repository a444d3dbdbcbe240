package relq_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relq "github.com/roach88/relq"
	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/executor"
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/plancache"
	"github.com/roach88/relq/internal/testutil"
)

func openSeeded(t *testing.T) *executor.SQLiteSession {
	t.Helper()
	sess, err := executor.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	_, err = sess.DB().Exec(`
		CREATE TABLE items (
			id INTEGER PRIMARY KEY,
			name TEXT,
			price REAL NOT NULL,
			category_id INTEGER NOT NULL
		);
		INSERT INTO items (id, name, price, category_id) VALUES
			(1, 'pencil', 0.5, 1),
			(2, 'notebook', 3.0, 1),
			(3, 'monitor', 149.99, 2);
	`)
	require.NoError(t, err)
	return sess
}

// cheapItems builds Items.Where(i => i.Price < max).Select(i => i.Name).
// A fresh tree per call, as real call sites produce.
func cheapItems(max float64) relq.Expr {
	i := testutil.EntityParam("i")
	q := testutil.Chain(catalog.Entity("Item"), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinLt,
			testutil.Mem(i, "Price", expr.FloatType()), testutil.Float(max)), i))
	j := testutil.EntityParam("j")
	return testutil.Chain(q, "Select", expr.SeqType(),
		testutil.Lam(testutil.Mem(j, "Name", expr.StringType()), j))
}

func TestCompile_EndToEnd(t *testing.T) {
	sess := openSeeded(t)

	plan, err := relq.Compile(cheapItems(10), testutil.StandardCatalog())
	require.NoError(t, err)
	assert.Contains(t, plan.SQL(), "FROM items")
	assert.False(t, plan.Scalar())

	rows, err := relq.Query(context.Background(), sess, plan, nil)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		names = append(names, rows.Row().(string))
	}
	require.NoError(t, rows.Err())
	assert.ElementsMatch(t, []string{"pencil", "notebook"}, names)
}

func TestQueryScalar_Count(t *testing.T) {
	sess := openSeeded(t)

	q := testutil.Chain(catalog.Entity("Item"), "Count", expr.IntType())
	plan, err := relq.Compile(q, testutil.StandardCatalog())
	require.NoError(t, err)
	assert.True(t, plan.Scalar())

	v, err := relq.QueryScalar(context.Background(), sess, plan, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestQuery_NamedParameterBinding(t *testing.T) {
	sess := openSeeded(t)

	i := testutil.EntityParam("i")
	q := testutil.Chain(catalog.Entity("Item"), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinGt,
			testutil.Mem(i, "Price", expr.FloatType()),
			testutil.Call("Param", expr.FloatType(), testutil.Str("minPrice"))), i))

	plan, err := relq.Compile(q, testutil.StandardCatalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"minPrice"}, plan.ParamNames())

	_, err = relq.Query(context.Background(), sess, plan, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minPrice")

	rows, err := relq.Query(context.Background(), sess, plan,
		map[string]any{"minPrice": 1.0})
	require.NoError(t, err)
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 2, count)
}

func TestCompiler_CacheReusesFormattedText(t *testing.T) {
	var cache plancache.Cache
	c := relq.NewCompiler(testutil.StandardCatalog(), &cache)

	first, err := c.Compile(cheapItems(10))
	require.NoError(t, err)
	second, err := c.Compile(cheapItems(10))
	require.NoError(t, err)

	assert.Equal(t, first.SQL(), second.SQL())
	assert.Equal(t, 1, cache.Len(), "structurally equal trees share one entry")

	_, err = c.Compile(cheapItems(20))
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len(), "a different literal is a different plan")
}

func TestExecCommand_DeleteWithParameter(t *testing.T) {
	sess := openSeeded(t)

	i := testutil.EntityParam("i")
	del := testutil.Call("Delete", expr.IntType(), catalog.Entity("Item"),
		testutil.Lam(testutil.Bin(expr.BinLt,
			testutil.Mem(i, "Price", expr.FloatType()),
			testutil.Call("Param", expr.FloatType(), testutil.Str("maxPrice"))), i))

	cmd, err := relq.CompileCommand(del, testutil.StandardCatalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"maxPrice"}, cmd.ParamNames())

	n, err := relq.ExecCommand(context.Background(), sess, cmd,
		map[string]any{"maxPrice": 1.0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPlan_ExplainIsNotExecutableSQLOnly(t *testing.T) {
	plan, err := relq.Compile(cheapItems(10), testutil.StandardCatalog())
	require.NoError(t, err)

	out, err := plan.Explain()
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT")
}
