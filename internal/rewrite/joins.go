package rewrite

import (
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/sqlrel"
)

// ClassifyJoins tightens join shapes after binding:
//
//   - a cross apply whose right side never references the left side's
//     aliases is not correlated at all and demotes to a plain cross join;
//   - a cross join under a select whose predicate relates both sides gets
//     those conjuncts pulled into a join condition, becoming an inner join.
func ClassifyJoins(e expr.Expr) expr.Expr {
	return sqlrel.Rewrite(e, func(n expr.Expr) expr.Expr {
		switch x := n.(type) {
		case *sqlrel.Join:
			return demoteUncorrelatedApply(x)
		case *sqlrel.Select:
			return promoteCrossJoin(x)
		default:
			return n
		}
	})
}

func demoteUncorrelatedApply(j *sqlrel.Join) expr.Expr {
	if j.Kind != sqlrel.CrossApply {
		return j
	}
	left := sqlrel.SourceAliases(j.Left)
	for a := range sqlrel.ReferencedAliases(j.Right) {
		if left[a] {
			return j
		}
	}
	return &sqlrel.Join{Kind: sqlrel.CrossJoin, Left: j.Left, Right: j.Right}
}

func promoteCrossJoin(sel *sqlrel.Select) expr.Expr {
	join, ok := sel.From.(*sqlrel.Join)
	if !ok || join.Kind != sqlrel.CrossJoin || sel.Where == nil {
		return sel
	}
	left := sqlrel.SourceAliases(join.Left)
	right := sqlrel.SourceAliases(join.Right)

	var condition, remaining expr.Expr
	for _, conjunct := range splitConjuncts(sel.Where) {
		if relatesBothSides(conjunct, left, right) {
			condition = conjoin(condition, conjunct)
		} else {
			remaining = conjoin(remaining, conjunct)
		}
	}
	if condition == nil {
		return sel
	}

	out := *sel
	out.From = &sqlrel.Join{
		Kind:      sqlrel.InnerJoin,
		Left:      join.Left,
		Right:     join.Right,
		Condition: condition,
	}
	out.Where = remaining
	return &out
}

// relatesBothSides reports whether a predicate references columns from both
// sides of a join, making it a join condition rather than a row filter.
func relatesBothSides(pred expr.Expr, left, right map[sqlrel.Alias]bool) bool {
	refs := sqlrel.ReferencedAliases(pred)
	var touchesLeft, touchesRight bool
	for a := range refs {
		if left[a] {
			touchesLeft = true
		}
		if right[a] {
			touchesRight = true
		}
	}
	return touchesLeft && touchesRight
}

// splitConjuncts flattens a conjunction into its operands.
func splitConjuncts(e expr.Expr) []expr.Expr {
	if b, ok := e.(*expr.Binary); ok && b.BinOp == expr.BinAnd {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []expr.Expr{e}
}
