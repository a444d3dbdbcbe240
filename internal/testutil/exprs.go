// Package testutil provides expression builders and a standard catalog for
// translation tests. The builders keep test query trees readable; production
// callers construct expr nodes directly.
package testutil

import (
	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/expr"
)

// Param creates a lambda parameter.
func Param(name string, t expr.Type) *expr.Parameter {
	return &expr.Parameter{Name: name, ResultType: t}
}

// EntityParam creates a parameter typed as an entity row.
func EntityParam(name string) *expr.Parameter {
	return Param(name, expr.RowType())
}

// Mem accesses a member of an expression.
func Mem(e expr.Expr, name string, t expr.Type) *expr.Member {
	return &expr.Member{Expr: e, Name: name, ResultType: t}
}

// Lam builds a lambda.
func Lam(body expr.Expr, params ...*expr.Parameter) *expr.Lambda {
	return &expr.Lambda{Params: params, Body: body}
}

// Int creates an integer constant.
func Int(v int64) *expr.Constant {
	return &expr.Constant{Value: v, ResultType: expr.IntType()}
}

// Float creates a float constant.
func Float(v float64) *expr.Constant {
	return &expr.Constant{Value: v, ResultType: expr.FloatType()}
}

// Str creates a string constant.
func Str(v string) *expr.Constant {
	return &expr.Constant{Value: v, ResultType: expr.StringType()}
}

// Bool creates a boolean constant.
func Bool(v bool) *expr.Constant {
	return &expr.Constant{Value: v, ResultType: expr.BoolType()}
}

// NullOf creates a typed null constant.
func NullOf(t expr.Type) *expr.Constant {
	return expr.Null(t)
}

// Bin builds a binary operation, inferring bool for comparisons and the
// left operand's type otherwise.
func Bin(op expr.BinaryOp, left, right expr.Expr) *expr.Binary {
	t := left.Type()
	if op.IsComparison() || op == expr.BinAnd || op == expr.BinOr {
		t = expr.BoolType()
	}
	return &expr.Binary{BinOp: op, Left: left, Right: right, ResultType: t}
}

// Not negates a boolean expression.
func Not(e expr.Expr) *expr.Unary {
	return &expr.Unary{UnOp: expr.UnNot, Operand: e, ResultType: expr.BoolType()}
}

// Call builds a method call.
func Call(method string, t expr.Type, args ...expr.Expr) *expr.Call {
	return &expr.Call{Method: method, Args: args, ResultType: t}
}

// Chain builds a query operator call whose first argument is the source.
func Chain(source expr.Expr, method string, t expr.Type, args ...expr.Expr) *expr.Call {
	return Call(method, t, append([]expr.Expr{source}, args...)...)
}

// Row builds a row constructor from alternating name/expression pairs.
func Row(fields ...expr.Field) *expr.New {
	return &expr.New{Fields: fields}
}

// F is one row constructor field.
func F(name string, e expr.Expr) expr.Field {
	return expr.Field{Name: name, Expr: e}
}

// StandardCatalog returns the two-entity catalog the translation tests
// share: items(id, name, price, category_id) and categories(id, title).
func StandardCatalog() catalog.Catalog {
	cat, err := catalog.NewMapCatalog(
		catalog.EntityMapping{
			Name:  "Item",
			Table: "items",
			Columns: []catalog.ColumnMapping{
				{Property: "Id", Column: "id", Type: expr.IntType()},
				{Property: "Name", Column: "name", Type: expr.StringType()},
				{Property: "Price", Column: "price", Type: expr.FloatType()},
				{Property: "CategoryId", Column: "category_id", Type: expr.IntType()},
			},
		},
		catalog.EntityMapping{
			Name:  "Category",
			Table: "categories",
			Columns: []catalog.ColumnMapping{
				{Property: "Id", Column: "id", Type: expr.IntType()},
				{Property: "Title", Column: "title", Type: expr.StringType()},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return cat
}
