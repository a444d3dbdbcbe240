package rewrite

import (
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/sqlrel"
)

// MergeSubqueries flattens selects that read from a nested select when the
// nesting adds nothing: the inner select's column expressions are inlined
// into the outer block and the predicates conjoined. The binder's wrapping
// rules and the aggregate hoist both leave such wrappers behind.
//
// The pass runs bottom-up, so chains of wrappers collapse in one
// application.
func MergeSubqueries(e expr.Expr) expr.Expr {
	return sqlrel.Rewrite(e, func(n expr.Expr) expr.Expr {
		sel, ok := n.(*sqlrel.Select)
		if !ok {
			return n
		}
		inner, ok := sel.From.(*sqlrel.Select)
		if !ok || !mergeable(inner) {
			return n
		}
		return mergeInto(sel, inner)
	})
}

// mergeable reports whether a select in from position can be dissolved into
// its consumer. Any row-set-shaping clause pins the select in place:
// distinct, grouping, ordering and limits all change which rows exist, and
// an aggregation block must aggregate exactly its own from clause.
func mergeable(inner *sqlrel.Select) bool {
	return !inner.Distinct &&
		len(inner.GroupBy) == 0 &&
		len(inner.OrderBy) == 0 &&
		inner.Skip == nil &&
		inner.Take == nil &&
		!HasAggregates(inner)
}

// mergeInto rebuilds the outer select directly over the inner's from
// clause, substituting the inner's column expressions for references to
// them.
func mergeInto(outer, inner *sqlrel.Select) *sqlrel.Select {
	subst := func(e expr.Expr) expr.Expr {
		return sqlrel.Rewrite(e, func(n expr.Expr) expr.Expr {
			c, ok := n.(*sqlrel.Column)
			if !ok || c.Alias != inner.Alias {
				return n
			}
			if d, ok := inner.ColumnNamed(c.Name); ok {
				return d.Expr
			}
			return n
		})
	}

	columns := make([]sqlrel.ColumnDecl, len(outer.Columns))
	for i, d := range outer.Columns {
		columns[i] = sqlrel.ColumnDecl{Name: d.Name, Expr: subst(d.Expr)}
	}
	orderBy := make([]sqlrel.OrderExpr, len(outer.OrderBy))
	for i, o := range outer.OrderBy {
		orderBy[i] = sqlrel.OrderExpr{Expr: subst(o.Expr), Direction: o.Direction}
	}
	groupBy := make([]expr.Expr, len(outer.GroupBy))
	for i, g := range outer.GroupBy {
		groupBy[i] = subst(g)
	}

	where := inner.Where
	if outer.Where != nil {
		where = conjoin(where, subst(outer.Where))
	}

	return &sqlrel.Select{
		Alias:    outer.Alias,
		Columns:  columns,
		From:     inner.From,
		Where:    where,
		OrderBy:  orderBy,
		GroupBy:  groupBy,
		Distinct: outer.Distinct,
		Skip:     subst(outer.Skip),
		Take:     subst(outer.Take),
	}
}
