package rewrite

import (
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/sqlrel"
)

// HoistAggregates erases every AggSubquery marker the binder left behind.
//
// A marker sitting in a column of a select that reads from its grouping
// select is hoisted: the aggregate moves into a derived select grouped by
// the same keys over the marker's private element source, joined LEFT OUTER
// against the grouping select on those keys. Nullable keys join with a
// NULL-safe equality so a NULL-keyed group still matches its derived
// aggregate row. Counts coalesce the join's
// null (an empty group never happens, but an outer row without a match
// does) back to zero.
//
// A marker anywhere else, a predicate or an order key, degrades to its
// correlated scalar form.
func HoistAggregates(e expr.Expr) expr.Expr {
	e = sqlrel.Rewrite(e, func(n expr.Expr) expr.Expr {
		sel, ok := n.(*sqlrel.Select)
		if !ok {
			return n
		}
		return hoistInSelect(sel)
	})
	// Whatever survives outside a hoistable column position keeps the
	// correlated subquery shape.
	return sqlrel.Rewrite(e, func(n expr.Expr) expr.Expr {
		if m, ok := n.(*sqlrel.AggSubquery); ok {
			return m.AsSubquery
		}
		return n
	})
}

func hoistInSelect(sel *sqlrel.Select) expr.Expr {
	groupAliases := sqlrel.SourceAliases(sel.From)

	from := sel.From
	columns := sel.Columns
	changed := false
	for i, d := range sel.Columns {
		rewritten := sqlrel.Rewrite(d.Expr, func(n expr.Expr) expr.Expr {
			m, ok := n.(*sqlrel.AggSubquery)
			if !ok || !groupAliases[m.GroupAlias] {
				return n
			}
			value, joined := hoistMarker(m, from)
			from = joined
			return value
		})
		if rewritten != d.Expr {
			if !changed {
				columns = make([]sqlrel.ColumnDecl, len(sel.Columns))
				copy(columns, sel.Columns)
				changed = true
			}
			columns[i] = sqlrel.ColumnDecl{Name: d.Name, Expr: rewritten}
		}
	}
	if !changed {
		return sel
	}
	out := *sel
	out.Columns = columns
	out.From = from
	return &out
}

// hoistMarker builds the derived grouped select for one marker and joins it
// against the current from clause. Returns the column expression replacing
// the marker and the extended from clause.
func hoistMarker(m *sqlrel.AggSubquery, from expr.Expr) (expr.Expr, expr.Expr) {
	derivedAlias := sqlrel.NewAlias()
	decls := make([]sqlrel.ColumnDecl, 0, len(m.Keys)+1)
	groupBy := make([]expr.Expr, 0, len(m.Keys))
	var cond expr.Expr
	for _, k := range m.Keys {
		decls = append(decls, sqlrel.ColumnDecl{Name: k.Name, Expr: k.Inner})
		groupBy = append(groupBy, k.Inner)
		eq := sqlrel.NullSafeEq(k.Outer,
			&sqlrel.Column{Alias: derivedAlias, Name: k.Name, ColType: k.Outer.ColType})
		cond = conjoin(cond, eq)
	}
	decls = append(decls, sqlrel.ColumnDecl{Name: "agg", Expr: m.Aggregate})

	derived := &sqlrel.Select{
		Alias:   derivedAlias,
		Columns: decls,
		From:    m.Source,
		GroupBy: groupBy,
	}
	joined := &sqlrel.Join{
		Kind:      sqlrel.LeftOuterJoin,
		Left:      from,
		Right:     derived,
		Condition: cond,
	}

	var value expr.Expr = &sqlrel.Column{Alias: derivedAlias, Name: "agg", ColType: m.Aggregate.Type()}
	if agg, ok := m.Aggregate.(*sqlrel.Aggregate); ok &&
		(agg.Name == sqlrel.AggCount || agg.Name == sqlrel.AggLongCount) {
		value = &expr.Conditional{
			Test: &sqlrel.IsNull{Expr: value},
			Then: &expr.Constant{Value: int64(0), ResultType: expr.IntType()},
			Else: value,
		}
	}
	return value, joined
}

func conjoin(existing, pred expr.Expr) expr.Expr {
	if existing == nil {
		return pred
	}
	return &expr.Binary{BinOp: expr.BinAnd, Left: existing, Right: pred, ResultType: expr.BoolType()}
}
