package binder

import (
	"fmt"

	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relerr"
	"github.com/roach88/relq/internal/sqlrel"
)

// commandTarget resolves a command's entity argument to its table and the
// projector exposing the mapped columns under the table's alias.
func (b *binder) commandTarget(op string, arg expr.Expr) (*sqlrel.Table, catalog.EntityMapping, *expr.New, error) {
	c, ok := arg.(*expr.Constant)
	if !ok {
		return nil, catalog.EntityMapping{}, nil, relerr.NewUnsupportedOp(op, "first argument must be an entity")
	}
	ref, ok := c.Value.(catalog.EntityRef)
	if !ok {
		return nil, catalog.EntityMapping{}, nil, relerr.NewUnsupportedOp(op, "first argument must be an entity")
	}
	m, ok := b.cat.Entity(ref.Name)
	if !ok {
		return nil, catalog.EntityMapping{}, nil, &relerr.TranslationError{Detail: fmt.Sprintf("unknown entity %q", ref.Name)}
	}
	table := &sqlrel.Table{Name: m.Table, Alias: sqlrel.NewAlias()}
	fields := make([]expr.Field, len(m.Columns))
	for i, col := range m.Columns {
		fields[i] = expr.Field{
			Name: col.Property,
			Expr: &sqlrel.Column{Alias: table.Alias, Name: col.Column, ColType: col.Type},
		}
	}
	return table, m, &expr.New{Fields: fields}, nil
}

// bindAssignments lowers a row constructor into column assignments, mapping
// each field name through the entity's column mapping.
func (b *binder) bindAssignments(op string, m catalog.EntityMapping, table *sqlrel.Table, values expr.Expr) ([]sqlrel.Assignment, error) {
	nw, ok := values.(*expr.New)
	if !ok {
		return nil, relerr.NewUnsupportedOp(op, "values must be a row constructor")
	}
	assigns := make([]sqlrel.Assignment, len(nw.Fields))
	for i, f := range nw.Fields {
		col, ok := m.Column(f.Name)
		if !ok {
			return nil, relerr.NewUnresolvedMember(f.Name, fmt.Sprintf("entity %q has no such property", m.Name))
		}
		value, err := b.bindExpr(f.Expr)
		if err != nil {
			return nil, err
		}
		assigns[i] = sqlrel.Assignment{
			Column: &sqlrel.Column{Alias: table.Alias, Name: col.Column, ColType: col.Type},
			Value:  value,
		}
	}
	return assigns, nil
}

// bindInsert lowers Insert(entity, values).
func (b *binder) bindInsert(call *expr.Call) (expr.Expr, error) {
	if len(call.Args) != 2 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires an entity and a row of values")
	}
	table, m, _, err := b.commandTarget(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	assigns, err := b.bindAssignments(call.Method, m, table, call.Args[1])
	if err != nil {
		return nil, err
	}
	if len(assigns) == 0 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires at least one value")
	}
	return &sqlrel.Insert{Table: table, Assignments: assigns}, nil
}

// bindUpdate lowers Update(entity, predicate, setter). The predicate lambda
// may be nil-bodied only by omission; a two-argument form updates every row.
func (b *binder) bindUpdate(call *expr.Call) (expr.Expr, error) {
	if len(call.Args) != 2 && len(call.Args) != 3 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires an entity, an optional predicate and a setter")
	}
	table, m, rowProj, err := b.commandTarget(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}

	var where expr.Expr
	setterArg := call.Args[1]
	if len(call.Args) == 3 {
		predL, err := lambdaArg(call, 1)
		if err != nil {
			return nil, err
		}
		if predL == nil {
			return nil, relerr.NewUnsupportedOp(call.Method, "predicate must be a lambda")
		}
		if where, err = b.bindBody(predL, rowProj); err != nil {
			return nil, err
		}
		setterArg = call.Args[2]
	}

	// The setter may be a bare row constructor or a lambda over the row.
	values := setterArg
	if l, ok := setterArg.(*expr.Lambda); ok {
		bound, err := b.bindBody(l, rowProj)
		if err != nil {
			return nil, err
		}
		values = bound
	}
	assigns, err := b.bindAssignments(call.Method, m, table, values)
	if err != nil {
		return nil, err
	}
	if len(assigns) == 0 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires at least one assignment")
	}
	return &sqlrel.Update{Table: table, Assignments: assigns, Where: where}, nil
}

// bindDelete lowers Delete(entity[, predicate]).
func (b *binder) bindDelete(call *expr.Call) (expr.Expr, error) {
	if len(call.Args) != 1 && len(call.Args) != 2 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires an entity and an optional predicate")
	}
	table, _, rowProj, err := b.commandTarget(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	var where expr.Expr
	if len(call.Args) == 2 {
		predL, err := lambdaArg(call, 1)
		if err != nil {
			return nil, err
		}
		if predL == nil {
			return nil, relerr.NewUnsupportedOp(call.Method, "predicate must be a lambda")
		}
		if where, err = b.bindBody(predL, rowProj); err != nil {
			return nil, err
		}
	}
	return &sqlrel.Delete{Table: table, Where: where}, nil
}
