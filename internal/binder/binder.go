package binder

import (
	"fmt"

	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relerr"
	"github.com/roach88/relq/internal/sqlrel"
)

// Translate lowers a query expression into a relational projection. The
// root must be an entity anchor or a query-operator chain; commands go
// through TranslateCommand instead.
func Translate(e expr.Expr, cat catalog.Catalog) (*sqlrel.Projection, error) {
	b := &binder{cat: cat, env: map[*expr.Parameter]expr.Expr{}}
	bound, err := b.bindAny(e)
	if err != nil {
		return nil, err
	}
	return b.asProjection(bound)
}

// TranslateCommand lowers an Insert/Update/Delete description into a
// relational command node.
func TranslateCommand(e expr.Expr, cat catalog.Catalog) (expr.Expr, error) {
	call, ok := e.(*expr.Call)
	if !ok {
		return nil, &relerr.TranslationError{Detail: fmt.Sprintf("command must be a call, got %s", e.Op())}
	}
	b := &binder{cat: cat, env: map[*expr.Parameter]expr.Expr{}}
	switch call.Method {
	case "Insert":
		return b.bindInsert(call)
	case "Update":
		return b.bindUpdate(call)
	case "Delete":
		return b.bindDelete(call)
	default:
		return nil, relerr.NewUnsupportedOp(call.Method, "not a command operator")
	}
}

type binder struct {
	cat catalog.Catalog

	// env maps lambda parameters to their bound value: a projector
	// expression over the parameter's source, or a group element for
	// GroupBy results.
	env map[*expr.Parameter]expr.Expr
}

// groupInfo carries what group-scoped aggregates need: the grouping
// select's identity, the element source the group was formed over, and the
// key pairing between the two.
type groupInfo struct {
	groupAlias   sqlrel.Alias
	keyProjector expr.Expr
	element      *sqlrel.Select
	elementProj  expr.Expr
	keys         []keySpec
}

type keySpec struct {
	name  string
	outer *sqlrel.Column
	inner expr.Expr
}

// groupElem is the binder-internal value a GroupBy parameter binds to. It
// never survives translation; leaking one into the output tree is a
// translation error at the use site.
type groupElem struct {
	info *groupInfo
}

func (g *groupElem) Op() expr.Op     { return "GroupElement" }
func (g *groupElem) Type() expr.Type { return expr.SeqType() }

// bindAny binds a node that may appear in source position.
func (b *binder) bindAny(e expr.Expr) (expr.Expr, error) {
	switch n := e.(type) {
	case *expr.Constant:
		if ref, ok := n.Value.(catalog.EntityRef); ok {
			return b.tableProjection(ref)
		}
		return n, nil
	case *expr.Call:
		return b.bindCall(n)
	case *expr.Parameter:
		bound, ok := b.env[n]
		if !ok {
			return nil, &relerr.TranslationError{Detail: fmt.Sprintf("unbound parameter %q", n.Name)}
		}
		return bound, nil
	default:
		return b.bindExpr(e)
	}
}

// bindSource binds a node and requires the result to be a projection.
func (b *binder) bindSource(op string, e expr.Expr) (*sqlrel.Projection, error) {
	bound, err := b.bindAny(e)
	if err != nil {
		return nil, err
	}
	p, ok := bound.(*sqlrel.Projection)
	if !ok {
		return nil, relerr.NewUnsupportedOp(op, fmt.Sprintf("requires a query source, got %s", bound.Op()))
	}
	return p, nil
}

// asProjection normalizes a bound root into a projection. Value-shaped
// results (a bare Exists, In or Scalar) wrap into a single-value select.
func (b *binder) asProjection(bound expr.Expr) (*sqlrel.Projection, error) {
	switch v := bound.(type) {
	case *sqlrel.Projection:
		if isGroup(v) {
			return nil, &relerr.TranslationError{Detail: "grouped query must project the group key or aggregates"}
		}
		return v, nil
	case *sqlrel.Scalar:
		col, _ := v.Select.ColumnNamed(v.Select.Columns[0].Name)
		return &sqlrel.Projection{
			Select:     v.Select,
			Projector:  &sqlrel.Column{Alias: v.Select.Alias, Name: col.Name, ColType: col.Expr.Type()},
			Aggregator: sqlrel.AggregatorScalar,
		}, nil
	case *sqlrel.Exists, *sqlrel.In, *expr.Unary:
		alias := sqlrel.NewAlias()
		sel := &sqlrel.Select{
			Alias:   alias,
			Columns: []sqlrel.ColumnDecl{{Name: "value", Expr: bound}},
		}
		return &sqlrel.Projection{
			Select:     sel,
			Projector:  &sqlrel.Column{Alias: alias, Name: "value", ColType: bound.Type()},
			Aggregator: sqlrel.AggregatorScalar,
		}, nil
	default:
		return nil, &relerr.TranslationError{Detail: fmt.Sprintf("expression does not describe a query (got %s)", bound.Op())}
	}
}

// tableProjection builds the base projection for a mapped entity: a select
// over the table projecting every mapped column, with a projector exposing
// the entity's properties.
func (b *binder) tableProjection(ref catalog.EntityRef) (*sqlrel.Projection, error) {
	m, ok := b.cat.Entity(ref.Name)
	if !ok {
		return nil, &relerr.TranslationError{Detail: fmt.Sprintf("unknown entity %q", ref.Name)}
	}
	tableAlias := sqlrel.NewAlias()
	selAlias := sqlrel.NewAlias()

	decls := make([]sqlrel.ColumnDecl, len(m.Columns))
	fields := make([]expr.Field, len(m.Columns))
	for i, c := range m.Columns {
		decls[i] = sqlrel.ColumnDecl{
			Name: c.Column,
			Expr: &sqlrel.Column{Alias: tableAlias, Name: c.Column, ColType: c.Type},
		}
		fields[i] = expr.Field{
			Name: c.Property,
			Expr: &sqlrel.Column{Alias: selAlias, Name: c.Column, ColType: c.Type},
		}
	}
	sel := &sqlrel.Select{
		Alias:   selAlias,
		Columns: decls,
		From:    &sqlrel.Table{Name: m.Table, Alias: tableAlias},
	}
	return &sqlrel.Projection{Select: sel, Projector: &expr.New{Fields: fields}}, nil
}

// bindCall dispatches a query operator.
func (b *binder) bindCall(call *expr.Call) (expr.Expr, error) {
	if len(call.Args) == 0 {
		return nil, relerr.NewUnsupportedOp(call.Method, "operator requires a source argument")
	}
	switch call.Method {
	case "Where":
		return b.bindWhere(call)
	case "Select":
		return b.bindSelect(call)
	case "SelectMany":
		return b.bindSelectMany(call)
	case "Join":
		return b.bindJoin(call)
	case "GroupBy":
		return b.bindGroupBy(call)
	case "OrderBy", "OrderByDescending", "ThenBy", "ThenByDescending":
		return b.bindOrderBy(call)
	case "Take", "Skip":
		return b.bindTakeSkip(call)
	case "Distinct":
		return b.bindDistinct(call)
	case "Union", "UnionAll", "Intersect", "Except":
		return b.bindSetOp(call)
	case "Count", "LongCount", "Min", "Max", "Sum", "Average":
		return b.bindAggregate(call)
	case "First", "FirstOrDefault", "Single":
		return b.bindFirst(call)
	case "Any", "All":
		return b.bindAnyAll(call)
	case "Contains":
		return b.bindContains(call)
	default:
		return nil, relerr.NewUnsupportedOp(call.Method, "operator has no relational equivalent")
	}
}

// lambdaArg extracts the lambda at args[i], or nil when absent.
func lambdaArg(call *expr.Call, i int) (*expr.Lambda, error) {
	if i >= len(call.Args) {
		return nil, nil
	}
	l, ok := call.Args[i].(*expr.Lambda)
	if !ok {
		return nil, relerr.NewUnsupportedOp(call.Method, fmt.Sprintf("argument %d must be a lambda", i))
	}
	return l, nil
}

// bindBody binds a lambda body with its parameters bound to values.
func (b *binder) bindBody(l *expr.Lambda, values ...expr.Expr) (expr.Expr, error) {
	if len(l.Params) != len(values) {
		return nil, &relerr.TranslationError{Detail: fmt.Sprintf("lambda takes %d parameters, got %d sources", len(l.Params), len(values))}
	}
	for i, p := range l.Params {
		b.env[p] = values[i]
	}
	defer func() {
		for _, p := range l.Params {
			delete(b.env, p)
		}
	}()
	return b.bindExpr(l.Body)
}

// isGroup reports whether a projection's rows are group elements.
func isGroup(p *sqlrel.Projection) bool {
	_, ok := p.Projector.(*groupElem)
	return ok
}

// wrap builds a passthrough select over the projection so further clauses
// can be added without disturbing the inner select's semantics.
func (b *binder) wrap(p *sqlrel.Projection) (*sqlrel.Projection, error) {
	if isGroup(p) {
		return nil, &relerr.TranslationError{Detail: "operator not supported directly over a grouped source; project the group first"}
	}
	alias := sqlrel.NewAlias()
	decls, proj, err := projectColumns(p.Projector, alias)
	if err != nil {
		return nil, err
	}
	sel := &sqlrel.Select{Alias: alias, Columns: decls, From: p.Select}
	return &sqlrel.Projection{Select: sel, Projector: proj, Aggregator: p.Aggregator}, nil
}

// extendSelect returns a copy of sel with the given mutation applied.
// Selects are immutable; extension builds a sibling sharing the alias.
func extendSelect(sel *sqlrel.Select, mutate func(*sqlrel.Select)) *sqlrel.Select {
	out := *sel
	out.Columns = append([]sqlrel.ColumnDecl(nil), sel.Columns...)
	out.OrderBy = append([]sqlrel.OrderExpr(nil), sel.OrderBy...)
	out.GroupBy = append([]expr.Expr(nil), sel.GroupBy...)
	mutate(&out)
	return &out
}

func conjoin(existing, pred expr.Expr) expr.Expr {
	if existing == nil {
		return pred
	}
	return &expr.Binary{BinOp: expr.BinAnd, Left: existing, Right: pred, ResultType: expr.BoolType()}
}

func (b *binder) bindWhere(call *expr.Call) (expr.Expr, error) {
	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	l, err := lambdaArg(call, 1)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires a predicate lambda")
	}
	return b.applyWhere(p, l)
}

// applyWhere adds a predicate, wrapping first when the select already
// limits, de-duplicates or groups, since SQL cannot filter after those
// inside one block.
func (b *binder) applyWhere(p *sqlrel.Projection, l *expr.Lambda) (*sqlrel.Projection, error) {
	if sel := p.Select; sel.Take != nil || sel.Skip != nil || sel.Distinct || len(sel.GroupBy) > 0 {
		var err error
		if p, err = b.wrap(p); err != nil {
			return nil, err
		}
	}
	pred, err := b.bindBody(l, inlineProjector(p))
	if err != nil {
		return nil, err
	}
	sel := extendSelect(p.Select, func(s *sqlrel.Select) {
		s.Where = conjoin(s.Where, pred)
	})
	return &sqlrel.Projection{Select: sel, Projector: p.Projector, Aggregator: p.Aggregator}, nil
}

func (b *binder) bindSelect(call *expr.Call) (expr.Expr, error) {
	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	l, err := lambdaArg(call, 1)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires a selector lambda")
	}

	sel := p.Select
	if !sel.Distinct && len(sel.GroupBy) == 0 && !isGroup(p) {
		// Replace the select's columns in place.
		pe, err := b.bindBody(l, inlineProjector(p))
		if err != nil {
			return nil, err
		}
		decls, proj, err := projectColumns(pe, sel.Alias)
		if err != nil {
			return nil, err
		}
		out := extendSelect(sel, func(s *sqlrel.Select) { s.Columns = decls })
		return &sqlrel.Projection{Select: out, Projector: proj}, nil
	}

	// Conflicting clause (or a grouped source): build a fresh outer select.
	pe, err := b.bindBody(l, p.Projector)
	if err != nil {
		return nil, err
	}
	alias := sqlrel.NewAlias()
	decls, proj, err := projectColumns(pe, alias)
	if err != nil {
		return nil, err
	}
	out := &sqlrel.Select{Alias: alias, Columns: decls, From: sel}
	return &sqlrel.Projection{Select: out, Projector: proj}, nil
}

func (b *binder) bindOrderBy(call *expr.Call) (expr.Expr, error) {
	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	l, err := lambdaArg(call, 1)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires a key selector lambda")
	}

	thenBy := call.Method == "ThenBy" || call.Method == "ThenByDescending"
	if thenBy && len(p.Select.OrderBy) == 0 {
		return nil, relerr.NewUnsupportedOp(call.Method, "must follow OrderBy")
	}
	// Ordering after a limit changes which rows survive; wrap first.
	if !thenBy && (p.Select.Take != nil || p.Select.Skip != nil) {
		if p, err = b.wrap(p); err != nil {
			return nil, err
		}
	}

	key, err := b.bindBody(l, inlineProjector(p))
	if err != nil {
		return nil, err
	}
	dir := sqlrel.Ascending
	if call.Method == "OrderByDescending" || call.Method == "ThenByDescending" {
		dir = sqlrel.Descending
	}
	entry := sqlrel.OrderExpr{Expr: key, Direction: dir}
	sel := extendSelect(p.Select, func(s *sqlrel.Select) {
		if thenBy {
			s.OrderBy = append(s.OrderBy, entry)
		} else {
			s.OrderBy = []sqlrel.OrderExpr{entry}
		}
	})
	return &sqlrel.Projection{Select: sel, Projector: p.Projector, Aggregator: p.Aggregator}, nil
}

func (b *binder) bindTakeSkip(call *expr.Call) (expr.Expr, error) {
	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	if len(call.Args) < 2 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires a count argument")
	}
	count, err := b.bindExpr(call.Args[1])
	if err != nil {
		return nil, err
	}

	take := call.Method == "Take"
	sel := p.Select
	conflict := sel.Take != nil // Take after Take, or Skip after Take, must wrap
	if !take && sel.Skip != nil {
		conflict = true
	}
	if conflict || isGroup(p) {
		if p, err = b.wrap(p); err != nil {
			return nil, err
		}
	}
	out := extendSelect(p.Select, func(s *sqlrel.Select) {
		if take {
			s.Take = count
		} else {
			s.Skip = count
		}
	})
	return &sqlrel.Projection{Select: out, Projector: p.Projector, Aggregator: p.Aggregator}, nil
}

func (b *binder) bindDistinct(call *expr.Call) (expr.Expr, error) {
	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	if p.Select.Take != nil || p.Select.Skip != nil {
		if p, err = b.wrap(p); err != nil {
			return nil, err
		}
	}
	sel := extendSelect(p.Select, func(s *sqlrel.Select) { s.Distinct = true })
	return &sqlrel.Projection{Select: sel, Projector: p.Projector, Aggregator: p.Aggregator}, nil
}

func (b *binder) bindSetOp(call *expr.Call) (expr.Expr, error) {
	if len(call.Args) < 2 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires two sources")
	}
	left, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	right, err := b.bindSource(call.Method, call.Args[1])
	if err != nil {
		return nil, err
	}
	if len(left.Select.Columns) != len(right.Select.Columns) {
		return nil, relerr.NewUnsupportedOp(call.Method,
			fmt.Sprintf("sides project %d and %d columns; shapes must match",
				len(left.Select.Columns), len(right.Select.Columns)))
	}

	var kind sqlrel.SetOpKind
	switch call.Method {
	case "Union":
		kind = sqlrel.Union
	case "UnionAll":
		kind = sqlrel.UnionAll
	case "Intersect":
		kind = sqlrel.Intersect
	case "Except":
		kind = sqlrel.Except
	}

	setOp := &sqlrel.SetOp{Kind: kind, Left: left.Select, Right: right.Select, Alias: sqlrel.NewAlias()}
	outerAlias := sqlrel.NewAlias()
	decls := make([]sqlrel.ColumnDecl, len(left.Select.Columns))
	for i, d := range left.Select.Columns {
		decls[i] = sqlrel.ColumnDecl{
			Name: d.Name,
			Expr: &sqlrel.Column{Alias: setOp.Alias, Name: d.Name, ColType: d.Expr.Type()},
		}
	}
	outer := &sqlrel.Select{Alias: outerAlias, Columns: decls, From: setOp}
	proj := sqlrel.ReplaceAlias(left.Projector, left.Select.Alias, outerAlias)
	return &sqlrel.Projection{Select: outer, Projector: proj}, nil
}

func (b *binder) bindJoin(call *expr.Call) (expr.Expr, error) {
	// Join(outer, inner, outerKey, innerKey, result)
	if len(call.Args) != 5 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires outer, inner, two key selectors and a result selector")
	}
	outer, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	inner, err := b.bindSource(call.Method, call.Args[1])
	if err != nil {
		return nil, err
	}
	outerKeyL, err := lambdaArg(call, 2)
	if err != nil {
		return nil, err
	}
	innerKeyL, err := lambdaArg(call, 3)
	if err != nil {
		return nil, err
	}
	resultL, err := lambdaArg(call, 4)
	if err != nil {
		return nil, err
	}
	if outerKeyL == nil || innerKeyL == nil || resultL == nil {
		return nil, relerr.NewUnsupportedOp(call.Method, "key and result selectors must be lambdas")
	}

	outerKey, err := b.bindBody(outerKeyL, outer.Projector)
	if err != nil {
		return nil, err
	}
	innerKey, err := b.bindBody(innerKeyL, inner.Projector)
	if err != nil {
		return nil, err
	}
	cond, err := keyEquality(outerKey, innerKey)
	if err != nil {
		return nil, err
	}

	result, err := b.bindBody(resultL, outer.Projector, inner.Projector)
	if err != nil {
		return nil, err
	}
	alias := sqlrel.NewAlias()
	decls, proj, err := projectColumns(result, alias)
	if err != nil {
		return nil, err
	}
	join := &sqlrel.Join{Kind: sqlrel.InnerJoin, Left: outer.Select, Right: inner.Select, Condition: cond}
	sel := &sqlrel.Select{Alias: alias, Columns: decls, From: join}
	return &sqlrel.Projection{Select: sel, Projector: proj}, nil
}

// keyEquality builds the join condition for a pair of bound keys; composite
// keys (row constructors) pair up field by field.
func keyEquality(outerKey, innerKey expr.Expr) (expr.Expr, error) {
	on, oIsNew := outerKey.(*expr.New)
	in, iIsNew := innerKey.(*expr.New)
	if oIsNew != iIsNew || (oIsNew && len(on.Fields) != len(in.Fields)) {
		return nil, &relerr.TranslationError{Detail: "join key selectors must have matching shapes"}
	}
	if !oIsNew {
		return &expr.Binary{BinOp: expr.BinEq, Left: outerKey, Right: innerKey, ResultType: expr.BoolType()}, nil
	}
	var cond expr.Expr
	for i := range on.Fields {
		eq := &expr.Binary{BinOp: expr.BinEq, Left: on.Fields[i].Expr, Right: in.Fields[i].Expr, ResultType: expr.BoolType()}
		cond = conjoin(cond, eq)
	}
	return cond, nil
}

func (b *binder) bindSelectMany(call *expr.Call) (expr.Expr, error) {
	// SelectMany(source, collectionSelector[, resultSelector])
	if len(call.Args) < 2 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires a collection selector")
	}
	outer, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	collL, err := lambdaArg(call, 1)
	if err != nil {
		return nil, err
	}
	if collL == nil {
		return nil, relerr.NewUnsupportedOp(call.Method, "collection selector must be a lambda")
	}
	collBound, err := b.bindBody(collL, outer.Projector)
	if err != nil {
		return nil, err
	}
	inner, ok := collBound.(*sqlrel.Projection)
	if !ok {
		return nil, relerr.NewUnsupportedOp(call.Method, "collection selector must produce a query source")
	}

	// A collection correlated with the outer row needs an apply; an
	// independent one is a plain cross join, which the join-simplification
	// pass may later tighten into an inner join.
	kind := sqlrel.CrossJoin
	if sqlrel.ReferencedAliases(inner.Select)[outer.Select.Alias] {
		kind = sqlrel.CrossApply
	}

	result := inner.Projector
	if len(call.Args) > 2 {
		resultL, err := lambdaArg(call, 2)
		if err != nil {
			return nil, err
		}
		if result, err = b.bindBody(resultL, outer.Projector, inner.Projector); err != nil {
			return nil, err
		}
	}

	alias := sqlrel.NewAlias()
	decls, proj, err := projectColumns(result, alias)
	if err != nil {
		return nil, err
	}
	join := &sqlrel.Join{Kind: kind, Left: outer.Select, Right: inner.Select}
	sel := &sqlrel.Select{Alias: alias, Columns: decls, From: join}
	return &sqlrel.Projection{Select: sel, Projector: proj}, nil
}

func (b *binder) bindGroupBy(call *expr.Call) (expr.Expr, error) {
	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	keyL, err := lambdaArg(call, 1)
	if err != nil {
		return nil, err
	}
	if keyL == nil {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires a key selector lambda")
	}
	key, err := b.bindBody(keyL, p.Projector)
	if err != nil {
		return nil, err
	}

	groupAlias := sqlrel.NewAlias()
	var decls []sqlrel.ColumnDecl
	var keys []keySpec
	var keyProjector expr.Expr

	addKey := func(name string, e expr.Expr) *sqlrel.Column {
		decls = append(decls, sqlrel.ColumnDecl{Name: name, Expr: e})
		outer := &sqlrel.Column{Alias: groupAlias, Name: name, ColType: e.Type()}
		keys = append(keys, keySpec{name: name, outer: outer, inner: e})
		return outer
	}

	if nw, ok := key.(*expr.New); ok {
		fields := make([]expr.Field, len(nw.Fields))
		used := map[string]bool{}
		for i, f := range nw.Fields {
			name := uniqueName(keyColumnName(f.Expr, f.Name), used)
			fields[i] = expr.Field{Name: f.Name, Expr: addKey(name, f.Expr)}
		}
		keyProjector = &expr.New{Fields: fields}
	} else {
		keyProjector = addKey(keyColumnName(key, "key"), key)
	}

	groupBy := make([]expr.Expr, len(decls))
	for i, d := range decls {
		groupBy[i] = d.Expr
	}
	groupSel := &sqlrel.Select{
		Alias:   groupAlias,
		Columns: decls,
		From:    p.Select,
		GroupBy: groupBy,
	}

	info := &groupInfo{
		groupAlias:   groupAlias,
		keyProjector: keyProjector,
		element:      p.Select,
		elementProj:  p.Projector,
		keys:         keys,
	}
	return &sqlrel.Projection{Select: groupSel, Projector: &groupElem{info: info}}, nil
}

// keyColumnName prefers the underlying column's name for simple keys so
// the grouped select reads naturally.
func keyColumnName(e expr.Expr, fallback string) string {
	if c, ok := e.(*sqlrel.Column); ok {
		return c.Name
	}
	return fallback
}

func (b *binder) bindAggregate(call *expr.Call) (expr.Expr, error) {
	src, err := b.bindAny(call.Args[0])
	if err != nil {
		return nil, err
	}

	var name sqlrel.AggregateName
	switch call.Method {
	case "Count":
		name = sqlrel.AggCount
	case "LongCount":
		name = sqlrel.AggLongCount
	case "Min":
		name = sqlrel.AggMin
	case "Max":
		name = sqlrel.AggMax
	case "Sum":
		name = sqlrel.AggSum
	case "Average":
		name = sqlrel.AggAverage
	}
	selectorL, err := lambdaArg(call, 1)
	if err != nil {
		return nil, err
	}

	if ge, ok := src.(*groupElem); ok {
		return b.bindGroupAggregate(name, ge, selectorL, call.ResultType)
	}

	p, ok := src.(*sqlrel.Projection)
	if !ok {
		return nil, relerr.NewUnsupportedOp(call.Method, fmt.Sprintf("requires a query source or group, got %s", src.Op()))
	}

	// Count(source, predicate) filters first.
	if selectorL != nil && (name == sqlrel.AggCount || name == sqlrel.AggLongCount) {
		if p, err = b.applyWhere(p, selectorL); err != nil {
			return nil, err
		}
		selectorL = nil
	}

	var arg expr.Expr
	if selectorL != nil {
		if arg, err = b.bindBody(selectorL, p.Projector); err != nil {
			return nil, err
		}
	} else if name != sqlrel.AggCount && name != sqlrel.AggLongCount {
		// Min/Max/Sum/Average over a bare source aggregate its single value.
		if col, ok := p.Projector.(*sqlrel.Column); ok {
			arg = col
		} else {
			return nil, relerr.NewUnsupportedOp(call.Method, "requires a selector over a multi-column source")
		}
	}

	agg := &sqlrel.Aggregate{Name: name, Arg: arg, ResultType: call.ResultType}
	alias := sqlrel.NewAlias()
	sel := &sqlrel.Select{
		Alias:   alias,
		Columns: []sqlrel.ColumnDecl{{Name: "value", Expr: agg}},
		From:    p.Select,
	}
	return &sqlrel.Scalar{Select: sel}, nil
}

// bindGroupAggregate builds the AggregateSubquery marker for an aggregate
// scoped to one group of a grouping select.
func (b *binder) bindGroupAggregate(name sqlrel.AggregateName, ge *groupElem, selectorL *expr.Lambda, resultType expr.Type) (expr.Expr, error) {
	info := ge.info

	// The marker gets a private, freshly aliased copy of the element
	// source so the hoisted select never collides with the grouping
	// select's aliases.
	source, remap := sqlrel.FreshAliases(info.element)
	elemProj := sqlrel.RemapAliases(info.elementProj, remap)

	var arg expr.Expr
	var err error
	if selectorL != nil {
		if arg, err = b.bindBody(selectorL, elemProj); err != nil {
			return nil, err
		}
	}
	agg := &sqlrel.Aggregate{Name: name, Arg: arg, ResultType: resultType}

	keys := make([]sqlrel.AggKey, len(info.keys))
	var corr expr.Expr
	for i, k := range info.keys {
		inner := sqlrel.RemapAliases(k.inner, remap)
		keys[i] = sqlrel.AggKey{Name: k.name, Outer: k.outer, Inner: inner}
		corr = conjoin(corr, sqlrel.NullSafeEq(inner, k.outer))
	}

	asSub := &sqlrel.Scalar{Select: &sqlrel.Select{
		Alias:   sqlrel.NewAlias(),
		Columns: []sqlrel.ColumnDecl{{Name: "value", Expr: agg}},
		From:    source,
		Where:   corr,
	}}
	return &sqlrel.AggSubquery{
		GroupAlias: info.groupAlias,
		Source:     source,
		Aggregate:  agg,
		Keys:       keys,
		AsSubquery: asSub,
	}, nil
}

func (b *binder) bindFirst(call *expr.Call) (expr.Expr, error) {
	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	predL, err := lambdaArg(call, 1)
	if err != nil {
		return nil, err
	}
	if predL != nil {
		if p, err = b.applyWhere(p, predL); err != nil {
			return nil, err
		}
	}

	// Single fetches two rows so the executor can detect multiplicity.
	limit := int64(1)
	aggregator := sqlrel.AggregatorFirst
	switch call.Method {
	case "FirstOrDefault":
		aggregator = sqlrel.AggregatorFirstOrDefault
	case "Single":
		aggregator = sqlrel.AggregatorSingle
		limit = 2
	}

	if p.Select.Take != nil {
		if p, err = b.wrap(p); err != nil {
			return nil, err
		}
	}
	sel := extendSelect(p.Select, func(s *sqlrel.Select) {
		s.Take = &expr.Constant{Value: limit, ResultType: expr.IntType()}
	})
	return &sqlrel.Projection{Select: sel, Projector: p.Projector, Aggregator: aggregator}, nil
}

func (b *binder) bindAnyAll(call *expr.Call) (expr.Expr, error) {
	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	predL, err := lambdaArg(call, 1)
	if err != nil {
		return nil, err
	}

	if call.Method == "All" {
		if predL == nil {
			return nil, relerr.NewUnsupportedOp(call.Method, "requires a predicate lambda")
		}
		// All(p) ≡ NOT EXISTS(rows violating p).
		negated := &expr.Lambda{
			Params: predL.Params,
			Body:   &expr.Unary{UnOp: expr.UnNot, Operand: predL.Body, ResultType: expr.BoolType()},
		}
		if p, err = b.applyWhere(p, negated); err != nil {
			return nil, err
		}
		return &expr.Unary{
			UnOp:       expr.UnNot,
			Operand:    &sqlrel.Exists{Select: p.Select},
			ResultType: expr.BoolType(),
		}, nil
	}

	if predL != nil {
		if p, err = b.applyWhere(p, predL); err != nil {
			return nil, err
		}
	}
	return &sqlrel.Exists{Select: p.Select}, nil
}

func (b *binder) bindContains(call *expr.Call) (expr.Expr, error) {
	if len(call.Args) < 2 {
		return nil, relerr.NewUnsupportedOp(call.Method, "requires a source and a value")
	}

	// String Contains is a scalar method; disambiguate by receiver type.
	if call.Args[0].Type().Kind == expr.KindString {
		recv, err := b.bindExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		needle, err := b.bindExpr(call.Args[1])
		if err != nil {
			return nil, err
		}
		return &expr.Call{Method: "Contains", Args: []expr.Expr{recv, needle}, ResultType: expr.BoolType()}, nil
	}

	p, err := b.bindSource(call.Method, call.Args[0])
	if err != nil {
		return nil, err
	}
	if len(p.Select.Columns) != 1 {
		return nil, relerr.NewUnsupportedOp(call.Method,
			fmt.Sprintf("source must project a single column, has %d; project the value first", len(p.Select.Columns)))
	}
	value, err := b.bindExpr(call.Args[1])
	if err != nil {
		return nil, err
	}
	return &sqlrel.In{Expr: value, Select: p.Select}, nil
}
