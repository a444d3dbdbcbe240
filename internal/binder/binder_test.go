package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relerr"
	"github.com/roach88/relq/internal/sqlrel"
	"github.com/roach88/relq/internal/testutil"
)

func items() *expr.Constant { return catalog.Entity("Item") }

// price builds the i.Price member access for a given parameter.
func price(p *expr.Parameter) *expr.Member {
	return testutil.Mem(p, "Price", expr.FloatType())
}

func TestTranslate_BaseTable(t *testing.T) {
	proj, err := Translate(items(), testutil.StandardCatalog())
	require.NoError(t, err)

	tbl, ok := proj.Select.From.(*sqlrel.Table)
	require.True(t, ok, "base select reads from a table")
	assert.Equal(t, "items", tbl.Name)

	// One declared column per mapped column, in mapping order.
	require.Len(t, proj.Select.Columns, 4)
	assert.Equal(t, "id", proj.Select.Columns[0].Name)
	assert.Equal(t, "category_id", proj.Select.Columns[3].Name)

	// The projector exposes properties over the select's columns.
	row, ok := proj.Projector.(*expr.New)
	require.True(t, ok)
	require.Len(t, row.Fields, 4)
	assert.Equal(t, "Id", row.Fields[0].Name)
	col, ok := row.Fields[0].Expr.(*sqlrel.Column)
	require.True(t, ok)
	assert.Equal(t, proj.Select.Alias, col.Alias)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_WhereExtendsSelect(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinGt, price(i), testutil.Float(10)), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	// The predicate lands on the base select; no wrapper is introduced.
	_, ok := proj.Select.From.(*sqlrel.Table)
	assert.True(t, ok)
	require.NotNil(t, proj.Select.Where)

	bin, ok := proj.Select.Where.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.BinGt, bin.BinOp)
	col, ok := bin.Left.(*sqlrel.Column)
	require.True(t, ok)
	assert.Equal(t, "price", col.Name)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_SecondWhereConjoins(t *testing.T) {
	i := testutil.EntityParam("i")
	j := testutil.EntityParam("j")
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinGt, price(i), testutil.Float(10)), i))
	q = testutil.Chain(q, "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinLt, price(j), testutil.Float(100)), j))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	and, ok := proj.Select.Where.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.BinAnd, and.BinOp)
	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_WhereAfterTakeWraps(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "Take", expr.SeqType(), testutil.Int(5))
	q = testutil.Chain(q, "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinGt, price(i), testutil.Float(10)), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	// Filtering limited rows needs a fresh outer select.
	inner, ok := proj.Select.From.(*sqlrel.Select)
	require.True(t, ok, "take select must be wrapped")
	assert.NotNil(t, inner.Take)
	assert.Nil(t, proj.Select.Take)
	assert.NotNil(t, proj.Select.Where)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_SelectReplacesColumns(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "Select", expr.SeqType(),
		testutil.Lam(testutil.Row(
			testutil.F("Id", testutil.Mem(i, "Id", expr.IntType())),
			testutil.F("Name", testutil.Mem(i, "Name", expr.StringType())),
		), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	// The projection trims the base select to the two referenced columns.
	_, ok := proj.Select.From.(*sqlrel.Table)
	assert.True(t, ok)
	require.Len(t, proj.Select.Columns, 2)
	assert.Equal(t, "id", proj.Select.Columns[0].Name)
	assert.Equal(t, "name", proj.Select.Columns[1].Name)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_ComputedColumn(t *testing.T) {
	i := testutil.EntityParam("i")
	doubled := testutil.Bin(expr.BinMul, price(i), testutil.Float(2))
	q := testutil.Chain(items(), "Select", expr.SeqType(),
		testutil.Lam(testutil.Row(testutil.F("Doubled", doubled)), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	require.Len(t, proj.Select.Columns, 1)
	assert.Equal(t, "Doubled", proj.Select.Columns[0].Name)
	_, ok := proj.Select.Columns[0].Expr.(*expr.Binary)
	assert.True(t, ok, "whole arithmetic expression is pushed to the server")

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_OrderByThenByAccumulates(t *testing.T) {
	i := testutil.EntityParam("i")
	j := testutil.EntityParam("j")
	q := testutil.Chain(items(), "OrderBy", expr.SeqType(),
		testutil.Lam(testutil.Mem(i, "Name", expr.StringType()), i))
	q = testutil.Chain(q, "ThenByDescending", expr.SeqType(),
		testutil.Lam(price(j), j))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	require.Len(t, proj.Select.OrderBy, 2)
	assert.Equal(t, sqlrel.Ascending, proj.Select.OrderBy[0].Direction)
	assert.Equal(t, sqlrel.Descending, proj.Select.OrderBy[1].Direction)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_ThenByWithoutOrderByFails(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "ThenBy", expr.SeqType(),
		testutil.Lam(price(i), i))

	_, err := Translate(q, testutil.StandardCatalog())
	require.Error(t, err)
	assert.True(t, relerr.IsTranslationError(err))
}

func TestTranslate_SkipTakeLandOnOneSelect(t *testing.T) {
	q := testutil.Chain(items(), "Skip", expr.SeqType(), testutil.Int(20))
	q = testutil.Chain(q, "Take", expr.SeqType(), testutil.Int(10))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	// Skip then Take coexist on one select.
	_, ok := proj.Select.From.(*sqlrel.Table)
	assert.True(t, ok)
	assert.NotNil(t, proj.Select.Skip)
	assert.NotNil(t, proj.Select.Take)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_TakeAfterTakeWraps(t *testing.T) {
	q := testutil.Chain(items(), "Take", expr.SeqType(), testutil.Int(10))
	q = testutil.Chain(q, "Take", expr.SeqType(), testutil.Int(5))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	inner, ok := proj.Select.From.(*sqlrel.Select)
	require.True(t, ok)
	assert.NotNil(t, inner.Take)
	assert.NotNil(t, proj.Select.Take)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_NullComparisonBecomesIsNull(t *testing.T) {
	i := testutil.EntityParam("i")
	name := testutil.Mem(i, "Name", expr.StringType())
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinEq, name, testutil.NullOf(expr.StringType())), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	isNull, ok := proj.Select.Where.(*sqlrel.IsNull)
	require.True(t, ok, "= null must lower to IS NULL, got %T", proj.Select.Where)
	col, ok := isNull.Expr.(*sqlrel.Column)
	require.True(t, ok)
	assert.Equal(t, "name", col.Name)
}

func TestTranslate_NotNullComparison(t *testing.T) {
	i := testutil.EntityParam("i")
	name := testutil.Mem(i, "Name", expr.StringType())
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinNe, name, testutil.NullOf(expr.StringType())), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	not, ok := proj.Select.Where.(*expr.Unary)
	require.True(t, ok)
	assert.Equal(t, expr.UnNot, not.UnOp)
	_, ok = not.Operand.(*sqlrel.IsNull)
	assert.True(t, ok)
}

func TestTranslate_CountBecomesScalarProjection(t *testing.T) {
	q := testutil.Chain(items(), "Count", expr.IntType())

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	assert.Equal(t, sqlrel.AggregatorScalar, proj.Aggregator)
	require.Len(t, proj.Select.Columns, 1)
	agg, ok := proj.Select.Columns[0].Expr.(*sqlrel.Aggregate)
	require.True(t, ok)
	assert.Equal(t, sqlrel.AggCount, agg.Name)
	assert.Nil(t, agg.Arg)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_CountWithPredicateFiltersFirst(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "Count", expr.IntType(),
		testutil.Lam(testutil.Bin(expr.BinGt, price(i), testutil.Float(10)), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	inner, ok := proj.Select.From.(*sqlrel.Select)
	require.True(t, ok)
	assert.NotNil(t, inner.Where)
	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_SumWithSelector(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "Sum", expr.FloatType(),
		testutil.Lam(price(i), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	agg, ok := proj.Select.Columns[0].Expr.(*sqlrel.Aggregate)
	require.True(t, ok)
	assert.Equal(t, sqlrel.AggSum, agg.Name)
	col, ok := agg.Arg.(*sqlrel.Column)
	require.True(t, ok)
	assert.Equal(t, "price", col.Name)
}

func TestTranslate_FirstSetsAggregatorAndLimit(t *testing.T) {
	tests := []struct {
		method     string
		aggregator sqlrel.Aggregator
		limit      int64
	}{
		{"First", sqlrel.AggregatorFirst, 1},
		{"FirstOrDefault", sqlrel.AggregatorFirstOrDefault, 1},
		{"Single", sqlrel.AggregatorSingle, 2},
	}
	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			q := testutil.Chain(items(), tc.method, expr.RowType())
			proj, err := Translate(q, testutil.StandardCatalog())
			require.NoError(t, err)

			assert.Equal(t, tc.aggregator, proj.Aggregator)
			limit, ok := proj.Select.Take.(*expr.Constant)
			require.True(t, ok)
			assert.Equal(t, tc.limit, limit.Value)
		})
	}
}

func TestTranslate_AnyBecomesExists(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "Any", expr.BoolType(),
		testutil.Lam(testutil.Bin(expr.BinGt, price(i), testutil.Float(100)), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	// A top-level Any wraps the Exists into a fromless single-value select.
	assert.Equal(t, sqlrel.AggregatorScalar, proj.Aggregator)
	assert.Nil(t, proj.Select.From)
	require.Len(t, proj.Select.Columns, 1)
	exists, ok := proj.Select.Columns[0].Expr.(*sqlrel.Exists)
	require.True(t, ok)
	assert.NotNil(t, exists.Select.Where)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_AllBecomesNotExists(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "All", expr.BoolType(),
		testutil.Lam(testutil.Bin(expr.BinGt, price(i), testutil.Float(0)), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	not, ok := proj.Select.Columns[0].Expr.(*expr.Unary)
	require.True(t, ok)
	assert.Equal(t, expr.UnNot, not.UnOp)
	exists, ok := not.Operand.(*sqlrel.Exists)
	require.True(t, ok)

	// The inner predicate is negated: rows violating the condition.
	inner, ok := exists.Select.Where.(*expr.Unary)
	require.True(t, ok)
	assert.Equal(t, expr.UnNot, inner.UnOp)
}

func TestTranslate_GroupByLeavesAggregateMarker(t *testing.T) {
	i := testutil.EntityParam("i")
	g := testutil.Param("g", expr.SeqType())
	grouped := testutil.Chain(items(), "GroupBy", expr.SeqType(),
		testutil.Lam(testutil.Mem(i, "CategoryId", expr.IntType()), i))
	q := testutil.Chain(grouped, "Select", expr.SeqType(),
		testutil.Lam(testutil.Row(
			testutil.F("Category", testutil.Mem(g, "Key", expr.IntType())),
			testutil.F("Total", testutil.Chain(g, "Count", expr.IntType())),
		), g))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	// The outer select projects the key column and an aggregate marker for
	// the rewrite pipeline to collapse.
	require.Len(t, proj.Select.Columns, 2)
	marker, ok := proj.Select.Columns[1].Expr.(*sqlrel.AggSubquery)
	require.True(t, ok, "group Count must leave a marker, got %T", proj.Select.Columns[1].Expr)
	require.Len(t, marker.Keys, 1)
	assert.Equal(t, "category_id", marker.Keys[0].Name)
	require.NotNil(t, marker.AsSubquery)

	// The inner select groups by the key.
	grp, ok := proj.Select.From.(*sqlrel.Select)
	require.True(t, ok)
	require.Len(t, grp.GroupBy, 1)
}

func TestTranslate_NullableGroupKeyCorrelatesNullSafe(t *testing.T) {
	cat, err := catalog.NewMapCatalog(catalog.EntityMapping{
		Name:  "Item",
		Table: "items",
		Columns: []catalog.ColumnMapping{
			{Property: "Id", Column: "id", Type: expr.IntType()},
			{Property: "CategoryId", Column: "category_id", Type: expr.IntType().AsNullable()},
		},
	})
	require.NoError(t, err)

	keyType := expr.IntType().AsNullable()
	i := testutil.EntityParam("i")
	g := testutil.Param("g", expr.SeqType())
	grouped := testutil.Chain(items(), "GroupBy", expr.SeqType(),
		testutil.Lam(testutil.Mem(i, "CategoryId", keyType), i))
	q := testutil.Chain(grouped, "Select", expr.SeqType(),
		testutil.Lam(testutil.Row(
			testutil.F("Category", testutil.Mem(g, "Key", keyType)),
			testutil.F("Total", testutil.Chain(g, "Count", expr.IntType())),
		), g))

	proj, err := Translate(q, cat)
	require.NoError(t, err)

	marker, ok := proj.Select.Columns[1].Expr.(*sqlrel.AggSubquery)
	require.True(t, ok)

	// The correlated fallback must also match a NULL key against itself,
	// so its predicate is equality OR both-null, not a bare equality.
	or, ok := marker.AsSubquery.Select.Where.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.BinOr, or.BinOp)
}

func TestTranslate_GroupElementWithoutAggregateFails(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "GroupBy", expr.SeqType(),
		testutil.Lam(testutil.Mem(i, "CategoryId", expr.IntType()), i))

	_, err := Translate(q, testutil.StandardCatalog())
	require.Error(t, err)
	assert.True(t, relerr.IsTranslationError(err))
}

func TestTranslate_JoinBuildsInnerJoin(t *testing.T) {
	i := testutil.EntityParam("i")
	c := testutil.EntityParam("c")
	ri := testutil.EntityParam("ri")
	rc := testutil.EntityParam("rc")
	q := testutil.Call("Join", expr.SeqType(),
		items(),
		catalog.Entity("Category"),
		testutil.Lam(testutil.Mem(i, "CategoryId", expr.IntType()), i),
		testutil.Lam(testutil.Mem(c, "Id", expr.IntType()), c),
		testutil.Lam(testutil.Row(
			testutil.F("Item", testutil.Mem(ri, "Name", expr.StringType())),
			testutil.F("Category", testutil.Mem(rc, "Title", expr.StringType())),
		), ri, rc),
	)

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	join, ok := proj.Select.From.(*sqlrel.Join)
	require.True(t, ok)
	assert.Equal(t, sqlrel.InnerJoin, join.Kind)
	require.NotNil(t, join.Condition)
	require.Len(t, proj.Select.Columns, 2)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_UnionMatchesShapes(t *testing.T) {
	i := testutil.EntityParam("i")
	j := testutil.EntityParam("j")
	cheap := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinLt, price(i), testutil.Float(10)), i))
	costly := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinGt, price(j), testutil.Float(100)), j))
	q := testutil.Call("Union", expr.SeqType(), cheap, costly)

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	setOp, ok := proj.Select.From.(*sqlrel.SetOp)
	require.True(t, ok)
	assert.Equal(t, sqlrel.Union, setOp.Kind)

	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_ContainsOverSubquery(t *testing.T) {
	c := testutil.EntityParam("c")
	i := testutil.EntityParam("i")
	ids := testutil.Chain(catalog.Entity("Category"), "Select", expr.SeqType(),
		testutil.Lam(testutil.Mem(c, "Id", expr.IntType()), c))
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(
			testutil.Call("Contains", expr.BoolType(), ids, testutil.Mem(i, "CategoryId", expr.IntType())),
			i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	in, ok := proj.Select.Where.(*sqlrel.In)
	require.True(t, ok)
	require.NotNil(t, in.Select)
	assert.Len(t, in.Select.Columns, 1)
	require.NoError(t, sqlrel.Validate(proj))
}

func TestTranslate_StringContainsStaysScalar(t *testing.T) {
	i := testutil.EntityParam("i")
	name := testutil.Mem(i, "Name", expr.StringType())
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Call("Contains", expr.BoolType(), name, testutil.Str("phone")), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	call, ok := proj.Select.Where.(*expr.Call)
	require.True(t, ok)
	assert.Equal(t, "Contains", call.Method)
}

func TestTranslate_ParamBecomesNamedValue(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinGt, price(i),
			testutil.Call("Param", expr.FloatType(), testutil.Str("minPrice"))), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	bin := proj.Select.Where.(*expr.Binary)
	nv, ok := bin.Right.(*sqlrel.NamedValue)
	require.True(t, ok)
	assert.Equal(t, "minPrice", nv.Name)
}

func TestTranslate_UnknownOperatorFails(t *testing.T) {
	q := testutil.Chain(items(), "Reverse", expr.SeqType())

	_, err := Translate(q, testutil.StandardCatalog())
	require.Error(t, err)
	assert.True(t, relerr.IsTranslationError(err))
	assert.Contains(t, err.Error(), "Reverse")
}

func TestTranslate_UnknownMemberFails(t *testing.T) {
	i := testutil.EntityParam("i")
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinEq,
			testutil.Mem(i, "Nickname", expr.StringType()), testutil.Str("x")), i))

	_, err := Translate(q, testutil.StandardCatalog())
	require.Error(t, err)
	assert.True(t, relerr.IsTranslationError(err))
	assert.Contains(t, err.Error(), "Nickname")
}

func TestTranslate_UnknownEntityFails(t *testing.T) {
	_, err := Translate(catalog.Entity("Ghost"), testutil.StandardCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestTranslate_StringLengthMember(t *testing.T) {
	i := testutil.EntityParam("i")
	name := testutil.Mem(i, "Name", expr.StringType())
	q := testutil.Chain(items(), "Where", expr.SeqType(),
		testutil.Lam(testutil.Bin(expr.BinGt,
			testutil.Mem(name, "Length", expr.IntType()), testutil.Int(3)), i))

	proj, err := Translate(q, testutil.StandardCatalog())
	require.NoError(t, err)

	bin := proj.Select.Where.(*expr.Binary)
	mem, ok := bin.Left.(*expr.Member)
	require.True(t, ok)
	assert.Equal(t, "Length", mem.Name)
	_, ok = mem.Expr.(*sqlrel.Column)
	assert.True(t, ok)
}

func TestTranslateCommand_Insert(t *testing.T) {
	cmd := testutil.Call("Insert", expr.IntType(),
		items(),
		testutil.Row(
			testutil.F("Name", testutil.Str("widget")),
			testutil.F("Price", testutil.Float(9.5)),
		))

	bound, err := TranslateCommand(cmd, testutil.StandardCatalog())
	require.NoError(t, err)

	ins, ok := bound.(*sqlrel.Insert)
	require.True(t, ok)
	assert.Equal(t, "items", ins.Table.Name)
	require.Len(t, ins.Assignments, 2)
	assert.Equal(t, "name", ins.Assignments[0].Column.Name)
	assert.Equal(t, "price", ins.Assignments[1].Column.Name)
}

func TestTranslateCommand_UpdateWithPredicate(t *testing.T) {
	i := testutil.EntityParam("i")
	cmd := testutil.Call("Update", expr.IntType(),
		items(),
		testutil.Lam(testutil.Bin(expr.BinEq, testutil.Mem(i, "Id", expr.IntType()), testutil.Int(7)), i),
		testutil.Row(testutil.F("Price", testutil.Float(12))))

	bound, err := TranslateCommand(cmd, testutil.StandardCatalog())
	require.NoError(t, err)

	upd, ok := bound.(*sqlrel.Update)
	require.True(t, ok)
	require.NotNil(t, upd.Where)
	require.Len(t, upd.Assignments, 1)
	assert.Equal(t, "price", upd.Assignments[0].Column.Name)
	require.NoError(t, sqlrel.Validate(upd))
}

func TestTranslateCommand_Delete(t *testing.T) {
	i := testutil.EntityParam("i")
	cmd := testutil.Call("Delete", expr.IntType(),
		items(),
		testutil.Lam(testutil.Bin(expr.BinLt, price(i), testutil.Float(1)), i))

	bound, err := TranslateCommand(cmd, testutil.StandardCatalog())
	require.NoError(t, err)

	del, ok := bound.(*sqlrel.Delete)
	require.True(t, ok)
	require.NotNil(t, del.Where)
	require.NoError(t, sqlrel.Validate(del))
}

func TestTranslateCommand_UnknownPropertyFails(t *testing.T) {
	cmd := testutil.Call("Insert", expr.IntType(),
		items(),
		testutil.Row(testutil.F("Ghost", testutil.Str("x"))))

	_, err := TranslateCommand(cmd, testutil.StandardCatalog())
	require.Error(t, err)
	assert.True(t, relerr.IsTranslationError(err))
}
