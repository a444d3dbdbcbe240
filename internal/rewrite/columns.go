package rewrite

import (
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/sqlrel"
)

// pruneRounds bounds the prune fixpoint loop. Each round removes at least
// one declaration or stops, and nesting depth bounds how far a removal can
// cascade.
const pruneRounds = 16

// PruneColumns drops column declarations nothing references. Removing a
// declaration can strand declarations in nested selects, so the pass
// iterates to a fixpoint.
//
// Distinct selects and the operands of set operations keep their full
// column lists: for distinct the columns define row identity, for set
// operations both sides must stay shape-aligned. Every select keeps at
// least one column regardless.
func PruneColumns(root expr.Expr) expr.Expr {
	for round := 0; round < pruneRounds; round++ {
		refs := sqlrel.ReferencedColumns(root)
		protected := protectedAliases(root)

		changed := false
		root = sqlrel.Rewrite(root, func(n expr.Expr) expr.Expr {
			sel, ok := n.(*sqlrel.Select)
			if !ok || protected[sel.Alias] {
				return n
			}
			kept := sel.Columns[:0:0]
			for _, d := range sel.Columns {
				if refs[sqlrel.ColumnRef{Alias: sel.Alias, Name: d.Name}] {
					kept = append(kept, d)
				}
			}
			if len(kept) == len(sel.Columns) {
				return n
			}
			if len(kept) == 0 {
				kept = sel.Columns[:1]
			}
			changed = true
			out := *sel
			out.Columns = kept
			return &out
		})
		if !changed {
			return root
		}
	}
	return root
}

func protectedAliases(root expr.Expr) map[sqlrel.Alias]bool {
	protected := map[sqlrel.Alias]bool{}
	sqlrel.Rewrite(root, func(n expr.Expr) expr.Expr {
		switch s := n.(type) {
		case *sqlrel.SetOp:
			if l, ok := s.Left.(*sqlrel.Select); ok {
				protected[l.Alias] = true
			}
			if r, ok := s.Right.(*sqlrel.Select); ok {
				protected[r.Alias] = true
			}
		case *sqlrel.Select:
			if s.Distinct {
				protected[s.Alias] = true
			}
		}
		return n
	})
	return protected
}
