package rewrite

import (
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/sqlrel"
)

// HasAggregates reports whether the select itself aggregates: a direct
// Aggregate application in its columns, predicate or order keys. Aggregates
// buried inside a nested subquery do not count; those aggregate the
// subquery's own rows.
func HasAggregates(sel *sqlrel.Select) bool {
	for _, d := range sel.Columns {
		if directAggregate(d.Expr) {
			return true
		}
	}
	if directAggregate(sel.Where) {
		return true
	}
	for _, o := range sel.OrderBy {
		if directAggregate(o.Expr) {
			return true
		}
	}
	return false
}

func directAggregate(e expr.Expr) bool {
	switch n := e.(type) {
	case *sqlrel.Aggregate:
		return true
	case *expr.Binary:
		return directAggregate(n.Left) || directAggregate(n.Right)
	case *expr.Unary:
		return directAggregate(n.Operand)
	case *expr.Member:
		return directAggregate(n.Expr)
	case *expr.Call:
		for _, a := range n.Args {
			if directAggregate(a) {
				return true
			}
		}
		return false
	case *expr.Conditional:
		return directAggregate(n.Test) || directAggregate(n.Then) || directAggregate(n.Else)
	case *expr.New:
		for _, f := range n.Fields {
			if directAggregate(f.Expr) {
				return true
			}
		}
		return false
	case *sqlrel.IsNull:
		return directAggregate(n.Expr)
	case *sqlrel.Between:
		return directAggregate(n.Expr) || directAggregate(n.Lower) || directAggregate(n.Upper)
	default:
		// Subqueries (Scalar, Exists, In) aggregate their own rows; leaves
		// and nil aggregate nothing.
		return false
	}
}
