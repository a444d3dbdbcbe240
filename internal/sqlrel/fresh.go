package sqlrel

import "github.com/roach88/relq/internal/expr"

// FreshAliases returns a copy of the tree in which every alias declared
// inside it (by a Table, Select or SetOp) is replaced with a fresh token,
// and every Column referencing a replaced alias is remapped. Columns
// referencing aliases declared outside the tree (correlation) are left
// untouched.
//
// The returned map records old→new for callers that must remap expressions
// referencing the copied sources.
func FreshAliases(e expr.Expr) (expr.Expr, map[Alias]Alias) {
	remap := map[Alias]Alias{}
	Rewrite(e, func(n expr.Expr) expr.Expr {
		switch s := n.(type) {
		case *Table:
			remap[s.Alias] = NewAlias()
		case *Select:
			remap[s.Alias] = NewAlias()
		case *SetOp:
			remap[s.Alias] = NewAlias()
		}
		return n
	})
	return RemapAliases(e, remap), remap
}

// RemapAliases rewrites the tree replacing declared aliases and Column
// references according to remap. Aliases absent from the map are preserved.
func RemapAliases(e expr.Expr, remap map[Alias]Alias) expr.Expr {
	return Rewrite(e, func(n expr.Expr) expr.Expr {
		switch s := n.(type) {
		case *Table:
			if a, ok := remap[s.Alias]; ok {
				return &Table{Name: s.Name, Alias: a}
			}
		case *Select:
			if a, ok := remap[s.Alias]; ok {
				out := *s
				out.Alias = a
				return &out
			}
		case *SetOp:
			if a, ok := remap[s.Alias]; ok {
				out := *s
				out.Alias = a
				return &out
			}
		case *Column:
			if a, ok := remap[s.Alias]; ok {
				return &Column{Alias: a, Name: s.Name, ColType: s.ColType}
			}
		}
		return n
	})
}

// ReplaceAlias rewrites Column references from one alias to another,
// preserving names and types. Used when a select is wrapped and its
// projector must follow the wrapper's alias.
func ReplaceAlias(e expr.Expr, from, to Alias) expr.Expr {
	return Rewrite(e, func(n expr.Expr) expr.Expr {
		if c, ok := n.(*Column); ok && c.Alias == from {
			return &Column{Alias: to, Name: c.Name, ColType: c.ColType}
		}
		return n
	})
}
