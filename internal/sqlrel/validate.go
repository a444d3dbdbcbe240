package sqlrel

import (
	"fmt"

	"github.com/roach88/relq/internal/expr"
)

// Validate checks the structural invariants of a relational tree:
//
//  1. column names are unique within one select;
//  2. Inner and LeftOuter joins carry a condition, Cross joins do not;
//  3. In carries either a value list or a subquery, never both;
//  4. Scalar subqueries project exactly one column;
//  5. every Column reference resolves to an alias visible at that point.
//
// Validate is pure and never modifies the tree. The binder and the rewrite
// pipeline are expected to uphold these invariants; Validate exists so the
// facade can fail loudly before formatting when one of them has been
// broken.
func Validate(root expr.Expr) error {
	v := &validator{}
	v.check(root, map[Alias]bool{})
	return v.err
}

type validator struct {
	err error
}

func (v *validator) fail(format string, args ...any) {
	if v.err == nil {
		v.err = fmt.Errorf(format, args...)
	}
}

// check walks the tree carrying the set of aliases in scope. Subqueries see
// the enclosing scope plus their own sources (correlation), siblings do
// not see each other.
func (v *validator) check(e expr.Expr, scope map[Alias]bool) {
	if e == nil || v.err != nil {
		return
	}
	switch n := e.(type) {
	case *Projection:
		v.check(n.Select, scope)
		v.check(n.Projector, scopeWith(scope, n.Select.Alias))
	case *Select:
		v.checkSelect(n, scope)
	case *Join:
		v.checkJoin(n, scope)
	case *Scalar:
		if len(n.Select.Columns) != 1 {
			v.fail("scalar subquery must project exactly one column, has %d", len(n.Select.Columns))
			return
		}
		v.check(n.Select, scope)
	case *Exists:
		v.check(n.Select, scope)
	case *In:
		if len(n.Values) > 0 && n.Select != nil {
			v.fail("In carries both a value list and a subquery")
			return
		}
		v.check(n.Expr, scope)
		for _, val := range n.Values {
			v.check(val, scope)
		}
		if n.Select != nil {
			if len(n.Select.Columns) != 1 {
				v.fail("In subquery must project exactly one column, has %d", len(n.Select.Columns))
				return
			}
			v.check(n.Select, scope)
		}
	case *AggSubquery:
		if n.AsSubquery != nil {
			v.check(n.AsSubquery, scope)
		}
	case *Column:
		if !scope[n.Alias] {
			v.fail("column %s references alias %d not in scope", n.Name, n.Alias)
		}
	case *Aggregate:
		v.check(n.Arg, scope)
	case *IsNull:
		v.check(n.Expr, scope)
	case *Between:
		v.check(n.Expr, scope)
		v.check(n.Lower, scope)
		v.check(n.Upper, scope)
	case *SetOp:
		v.check(n.Left, scope)
		v.check(n.Right, scope)
	case *Insert:
		v.checkAssignments(n.Assignments, scopeWith(scope, n.Table.Alias))
	case *Update:
		inner := scopeWith(scope, n.Table.Alias)
		v.checkAssignments(n.Assignments, inner)
		v.check(n.Where, inner)
	case *Delete:
		v.check(n.Where, scopeWith(scope, n.Table.Alias))
	case *expr.Binary:
		v.check(n.Left, scope)
		v.check(n.Right, scope)
	case *expr.Unary:
		v.check(n.Operand, scope)
	case *expr.Call:
		for _, a := range n.Args {
			v.check(a, scope)
		}
	case *expr.Member:
		v.check(n.Expr, scope)
	case *expr.New:
		seen := map[string]bool{}
		for _, f := range n.Fields {
			if seen[f.Name] {
				v.fail("row constructor repeats field %q", f.Name)
				return
			}
			seen[f.Name] = true
			v.check(f.Expr, scope)
		}
	case *expr.Conditional:
		v.check(n.Test, scope)
		v.check(n.Then, scope)
		v.check(n.Else, scope)
	}
}

func (v *validator) checkSelect(sel *Select, scope map[Alias]bool) {
	seen := map[string]bool{}
	for _, d := range sel.Columns {
		if seen[d.Name] {
			v.fail("select %d declares column %q twice", sel.Alias, d.Name)
			return
		}
		seen[d.Name] = true
	}

	// The select's own sources extend the enclosing scope (correlation).
	inner := cloneScope(scope)
	for a := range SourceAliases(sel.From) {
		inner[a] = true
	}

	v.checkFrom(sel.From, scope, inner)
	v.check(sel.Where, inner)
	for _, d := range sel.Columns {
		v.check(d.Expr, inner)
	}
	for _, o := range sel.OrderBy {
		v.check(o.Expr, inner)
	}
	for _, g := range sel.GroupBy {
		v.check(g, inner)
	}
	v.check(sel.Skip, inner)
	v.check(sel.Take, inner)
}

// checkFrom validates source nodes. Join conditions see the joined sources;
// nested selects are validated against the outer scope (their own sources
// are added inside checkSelect).
func (v *validator) checkFrom(from expr.Expr, outer, inner map[Alias]bool) {
	switch n := from.(type) {
	case *Table:
		// nothing to check
	case *Select:
		v.checkSelect(n, outer)
	case *SetOp:
		v.check(n.Left, outer)
		v.check(n.Right, outer)
	case *Join:
		v.checkJoinWithScope(n, outer, inner)
	case nil:
		// A fromless select carries a bare scalar (SELECT EXISTS(...)).
	default:
		v.fail("unsupported from-clause node %T", from)
	}
}

func (v *validator) checkJoin(j *Join, scope map[Alias]bool) {
	inner := cloneScope(scope)
	for a := range SourceAliases(j) {
		inner[a] = true
	}
	v.checkJoinWithScope(j, scope, inner)
}

func (v *validator) checkJoinWithScope(j *Join, outer, inner map[Alias]bool) {
	switch j.Kind {
	case CrossJoin, CrossApply, OuterApply:
		if j.Condition != nil {
			v.fail("%s join must not carry a condition", j.Kind)
			return
		}
	case InnerJoin, LeftOuterJoin:
		if j.Condition == nil {
			v.fail("%s join requires a condition", j.Kind)
			return
		}
	}
	v.checkFrom(j.Left, outer, inner)
	v.checkFrom(j.Right, outer, inner)
	v.check(j.Condition, inner)
}

func (v *validator) checkAssignments(assigns []Assignment, scope map[Alias]bool) {
	for _, a := range assigns {
		v.check(a.Column, scope)
		v.check(a.Value, scope)
	}
}

func scopeWith(scope map[Alias]bool, a Alias) map[Alias]bool {
	out := cloneScope(scope)
	out[a] = true
	return out
}

func cloneScope(scope map[Alias]bool) map[Alias]bool {
	out := make(map[Alias]bool, len(scope))
	for k := range scope {
		out[k] = true
	}
	return out
}
