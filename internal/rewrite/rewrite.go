// Package rewrite is the pass pipeline between binding and formatting. Each
// pass is a pure tree-to-tree function: share-preserving, so a pass that
// changes nothing returns its input, and idempotent, so running the pipeline
// twice yields the same tree.
package rewrite

import (
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/sqlrel"
)

// Apply runs the full pipeline over a bound projection:
//
//  1. HoistAggregates erases the binder's aggregate markers;
//  2. MergeSubqueries flattens wrapper selects the binder introduced;
//  3. ClassifyJoins tightens cross joins whose predicate correlates both
//     sides, and demotes applies that turned out uncorrelated;
//  4. PruneColumns drops column declarations nothing references.
//
// Merging runs before pruning so inlined expressions are visible to the
// reference count, and joins are classified before pruning so join
// conditions keep their columns alive.
func Apply(p *sqlrel.Projection) *sqlrel.Projection {
	e := HoistAggregates(p)
	e = MergeSubqueries(e)
	e = ClassifyJoins(e)
	e = PruneColumns(e)
	return e.(*sqlrel.Projection)
}

// ApplyCommand runs the value-level passes over a bound command. Commands
// carry no select of their own, but their assignments and predicates may
// embed subqueries.
func ApplyCommand(cmd expr.Expr) expr.Expr {
	e := HoistAggregates(cmd)
	e = MergeSubqueries(e)
	e = ClassifyJoins(e)
	e = PruneColumns(e)
	return e
}
