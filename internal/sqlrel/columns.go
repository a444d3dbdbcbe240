package sqlrel

import "github.com/roach88/relq/internal/expr"

// ColumnRef identifies one column of one aliased source by value, usable as
// a map key.
type ColumnRef struct {
	Alias Alias
	Name  string
}

// ReferencedColumns collects every Column reference in the tree, including
// references inside nested subqueries.
func ReferencedColumns(e expr.Expr) map[ColumnRef]bool {
	refs := map[ColumnRef]bool{}
	Rewrite(e, func(n expr.Expr) expr.Expr {
		if c, ok := n.(*Column); ok {
			refs[ColumnRef{Alias: c.Alias, Name: c.Name}] = true
		}
		return n
	})
	return refs
}

// ReferencedAliases collects the aliases of every Column reference in the
// tree.
func ReferencedAliases(e expr.Expr) map[Alias]bool {
	aliases := map[Alias]bool{}
	Rewrite(e, func(n expr.Expr) expr.Expr {
		if c, ok := n.(*Column); ok {
			aliases[c.Alias] = true
		}
		return n
	})
	return aliases
}

// SourceAliases returns the aliases a from-clause node exposes to the
// enclosing select: the table or select alias for leaf sources, the union of
// both sides for joins.
func SourceAliases(from expr.Expr) map[Alias]bool {
	out := map[Alias]bool{}
	collectSourceAliases(from, out)
	return out
}

func collectSourceAliases(from expr.Expr, out map[Alias]bool) {
	switch n := from.(type) {
	case *Table:
		out[n.Alias] = true
	case *Select:
		out[n.Alias] = true
	case *SetOp:
		out[n.Alias] = true
	case *Join:
		collectSourceAliases(n.Left, out)
		collectSourceAliases(n.Right, out)
	}
}
