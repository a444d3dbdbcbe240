package binder

import (
	"fmt"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relerr"
	"github.com/roach88/relq/internal/sqlrel"
)

// projectColumns splits a bound projector into the column declarations of a
// new select (aliased outer) and the rewritten projector referencing them.
//
// Column references become passthrough declarations, de-duplicated so a
// column used twice is fetched once. Server-computable subexpressions are
// pushed into computed columns; row constructors and other client-side
// structure stay in the projector, with their computable leaves hoisted.
func projectColumns(projector expr.Expr, outer sqlrel.Alias) ([]sqlrel.ColumnDecl, expr.Expr, error) {
	pb := &projectionBuilder{
		outer:    outer,
		used:     map[string]bool{},
		declared: map[sqlrel.ColumnRef]*sqlrel.Column{},
	}
	proj, err := pb.hoist(projector, "c")
	if err != nil {
		return nil, nil, err
	}
	if len(pb.decls) == 0 {
		return nil, nil, &relerr.TranslationError{Detail: "projection fetches no columns"}
	}
	return pb.decls, proj, nil
}

type projectionBuilder struct {
	outer    sqlrel.Alias
	decls    []sqlrel.ColumnDecl
	used     map[string]bool
	declared map[sqlrel.ColumnRef]*sqlrel.Column
}

// declare adds a column declaration and returns the reference the projector
// uses in its place.
func (pb *projectionBuilder) declare(e expr.Expr, hint string) *sqlrel.Column {
	if c, ok := e.(*sqlrel.Column); ok {
		ref := sqlrel.ColumnRef{Alias: c.Alias, Name: c.Name}
		if prior, ok := pb.declared[ref]; ok {
			return prior
		}
		name := uniqueName(c.Name, pb.used)
		pb.decls = append(pb.decls, sqlrel.ColumnDecl{Name: name, Expr: c})
		out := &sqlrel.Column{Alias: pb.outer, Name: name, ColType: c.ColType}
		pb.declared[ref] = out
		return out
	}
	name := uniqueName(hint, pb.used)
	pb.decls = append(pb.decls, sqlrel.ColumnDecl{Name: name, Expr: e})
	return &sqlrel.Column{Alias: pb.outer, Name: name, ColType: e.Type()}
}

// hoist rewrites one projector node. Computable expressions are declared
// whole; structural nodes recurse so their leaves get hoisted individually.
func (pb *projectionBuilder) hoist(e expr.Expr, hint string) (expr.Expr, error) {
	switch n := e.(type) {
	case *sqlrel.Column:
		return pb.declare(n, n.Name), nil
	case *expr.Constant:
		return n, nil
	case *expr.New:
		fields := make([]expr.Field, len(n.Fields))
		for i, f := range n.Fields {
			fe, err := pb.hoist(f.Expr, f.Name)
			if err != nil {
				return nil, err
			}
			fields[i] = expr.Field{Name: f.Name, Expr: fe}
		}
		return &expr.New{Fields: fields}, nil
	case *groupElem:
		return nil, &relerr.TranslationError{Detail: "cannot project a group element; project its Key or an aggregate"}
	case *sqlrel.Projection:
		return nil, &relerr.TranslationError{Detail: "cannot project a nested sequence"}
	}

	if serverComputable(e) {
		return pb.declare(e, hint), nil
	}

	// Client-side structure over computable parts: keep the node, hoist
	// the children.
	switch n := e.(type) {
	case *expr.Binary:
		l, err := pb.hoist(n.Left, hint)
		if err != nil {
			return nil, err
		}
		r, err := pb.hoist(n.Right, hint)
		if err != nil {
			return nil, err
		}
		return &expr.Binary{BinOp: n.BinOp, Left: l, Right: r, ResultType: n.ResultType}, nil
	case *expr.Unary:
		op, err := pb.hoist(n.Operand, hint)
		if err != nil {
			return nil, err
		}
		return &expr.Unary{UnOp: n.UnOp, Operand: op, ResultType: n.ResultType}, nil
	case *expr.Conditional:
		test, err := pb.hoist(n.Test, hint)
		if err != nil {
			return nil, err
		}
		then, err := pb.hoist(n.Then, hint)
		if err != nil {
			return nil, err
		}
		els, err := pb.hoist(n.Else, hint)
		if err != nil {
			return nil, err
		}
		return &expr.Conditional{Test: test, Then: then, Else: els}, nil
	default:
		return nil, &relerr.TranslationError{Detail: fmt.Sprintf("cannot project %s node", e.Op())}
	}
}

// serverComputable reports whether the expression can be evaluated entirely
// by the database, making it eligible to become one computed column.
func serverComputable(e expr.Expr) bool {
	ok := true
	sqlrel.Rewrite(e, func(n expr.Expr) expr.Expr {
		switch n.(type) {
		case *expr.New, *expr.Lambda, *expr.Parameter, *sqlrel.Projection, *groupElem:
			ok = false
		case *expr.Constant:
			if c := n.(*expr.Constant); c.ResultType.Kind == expr.KindEntity {
				ok = false
			}
		}
		return n
	})
	return ok
}

// inlineProjector substitutes the select's declared column expressions for
// the projector's references to them, yielding a projector phrased over the
// select's own sources. Used when binding a clause that extends the select
// in place.
func inlineProjector(p *sqlrel.Projection) expr.Expr {
	return sqlrel.Rewrite(p.Projector, func(n expr.Expr) expr.Expr {
		if c, ok := n.(*sqlrel.Column); ok && c.Alias == p.Select.Alias {
			if d, ok := p.Select.ColumnNamed(c.Name); ok {
				return d.Expr
			}
		}
		return n
	})
}
