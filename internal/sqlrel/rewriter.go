package sqlrel

import "github.com/roach88/relq/internal/expr"

// Rewrite applies fn bottom-up over a tree mixing general and relational
// nodes, returning a new tree. A subtree whose children are unchanged is
// returned as the identical node, so a pass that rewrites nothing returns a
// tree structurally (indeed referentially) equal to its input; the
// pass-idempotence tests rely on that.
//
// fn is applied after a node's children have been rewritten. Unknown node
// kinds pass through untouched; passes that must reject them do so in
// their own type switches.
func Rewrite(e expr.Expr, fn func(expr.Expr) expr.Expr) expr.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	// General nodes.
	case *expr.Constant, *expr.Parameter:
		// leaves
	case *expr.Member:
		if inner := Rewrite(n.Expr, fn); inner != n.Expr {
			e = &expr.Member{Expr: inner, Name: n.Name, ResultType: n.ResultType}
		}
	case *expr.Call:
		if args, changed := rewriteExprs(n.Args, fn); changed {
			e = &expr.Call{Method: n.Method, Args: args, ResultType: n.ResultType}
		}
	case *expr.Binary:
		l, r := Rewrite(n.Left, fn), Rewrite(n.Right, fn)
		if l != n.Left || r != n.Right {
			e = &expr.Binary{BinOp: n.BinOp, Left: l, Right: r, ResultType: n.ResultType}
		}
	case *expr.Unary:
		if op := Rewrite(n.Operand, fn); op != n.Operand {
			e = &expr.Unary{UnOp: n.UnOp, Operand: op, ResultType: n.ResultType}
		}
	case *expr.Lambda:
		if body := Rewrite(n.Body, fn); body != n.Body {
			e = &expr.Lambda{Params: n.Params, Body: body}
		}
	case *expr.New:
		fields := n.Fields
		changed := false
		for i, f := range n.Fields {
			fe := Rewrite(f.Expr, fn)
			if fe != f.Expr {
				if !changed {
					fields = make([]expr.Field, len(n.Fields))
					copy(fields, n.Fields)
					changed = true
				}
				fields[i] = expr.Field{Name: f.Name, Expr: fe}
			}
		}
		if changed {
			e = &expr.New{Fields: fields}
		}
	case *expr.Conditional:
		test, then, els := Rewrite(n.Test, fn), Rewrite(n.Then, fn), Rewrite(n.Else, fn)
		if test != n.Test || then != n.Then || els != n.Else {
			e = &expr.Conditional{Test: test, Then: then, Else: els}
		}

	// Relational nodes.
	case *Table, *Column, *NamedValue:
		// leaves
	case *Select:
		e = rewriteSelect(n, fn)
	case *Join:
		l, r := Rewrite(n.Left, fn), Rewrite(n.Right, fn)
		cond := Rewrite(n.Condition, fn)
		if l != n.Left || r != n.Right || cond != n.Condition {
			e = &Join{Kind: n.Kind, Left: l, Right: r, Condition: cond}
		}
	case *Aggregate:
		if arg := Rewrite(n.Arg, fn); arg != n.Arg {
			e = &Aggregate{Name: n.Name, Arg: arg, Distinct: n.Distinct, ResultType: n.ResultType}
		}
	case *AggSubquery:
		agg := Rewrite(n.Aggregate, fn)
		sub := rewriteScalar(n.AsSubquery, fn)
		if agg != n.Aggregate || sub != n.AsSubquery {
			e = &AggSubquery{GroupAlias: n.GroupAlias, Source: n.Source, Aggregate: agg, Keys: n.Keys, AsSubquery: sub}
		}
	case *Scalar:
		if s := rewriteScalar(n, fn); s != n {
			e = s
		}
	case *Exists:
		if sel := selectOf(Rewrite(n.Select, fn)); sel != n.Select {
			e = &Exists{Select: sel}
		}
	case *In:
		test := Rewrite(n.Expr, fn)
		values, changed := rewriteExprs(n.Values, fn)
		sel := n.Select
		if n.Select != nil {
			sel = selectOf(Rewrite(n.Select, fn))
		}
		if test != n.Expr || changed || sel != n.Select {
			e = &In{Expr: test, Values: values, Select: sel}
		}
	case *IsNull:
		if inner := Rewrite(n.Expr, fn); inner != n.Expr {
			e = &IsNull{Expr: inner}
		}
	case *Between:
		x, lo, hi := Rewrite(n.Expr, fn), Rewrite(n.Lower, fn), Rewrite(n.Upper, fn)
		if x != n.Expr || lo != n.Lower || hi != n.Upper {
			e = &Between{Expr: x, Lower: lo, Upper: hi}
		}
	case *SetOp:
		l, r := Rewrite(n.Left, fn), Rewrite(n.Right, fn)
		if l != n.Left || r != n.Right {
			e = &SetOp{Kind: n.Kind, Left: l, Right: r, Alias: n.Alias}
		}
	case *Projection:
		sel := selectOf(Rewrite(n.Select, fn))
		proj := Rewrite(n.Projector, fn)
		if sel != n.Select || proj != n.Projector {
			e = &Projection{Select: sel, Projector: proj, Aggregator: n.Aggregator}
		}
	case *Insert:
		if assigns, changed := rewriteAssignments(n.Assignments, fn); changed {
			e = &Insert{Table: n.Table, Assignments: assigns}
		}
	case *Update:
		assigns, changed := rewriteAssignments(n.Assignments, fn)
		where := Rewrite(n.Where, fn)
		if changed || where != n.Where {
			e = &Update{Table: n.Table, Assignments: assigns, Where: where}
		}
	case *Delete:
		if where := Rewrite(n.Where, fn); where != n.Where {
			e = &Delete{Table: n.Table, Where: where}
		}
	case *If:
		check, ifTrue, ifFalse := Rewrite(n.Check, fn), Rewrite(n.IfTrue, fn), Rewrite(n.IfFalse, fn)
		if check != n.Check || ifTrue != n.IfTrue || ifFalse != n.IfFalse {
			e = &If{Check: check, IfTrue: ifTrue, IfFalse: ifFalse}
		}
	case *Block:
		if cmds, changed := rewriteExprs(n.Commands, fn); changed {
			e = &Block{Commands: cmds}
		}
	case *Declaration:
		if src := selectOf(Rewrite(n.Source, fn)); src != n.Source {
			e = &Declaration{Names: n.Names, Source: src}
		}
	}
	return fn(e)
}

func rewriteSelect(n *Select, fn func(expr.Expr) expr.Expr) expr.Expr {
	from := Rewrite(n.From, fn)
	where := Rewrite(n.Where, fn)
	skip, take := Rewrite(n.Skip, fn), Rewrite(n.Take, fn)

	columns := n.Columns
	colsChanged := false
	for i, d := range n.Columns {
		de := Rewrite(d.Expr, fn)
		if de != d.Expr {
			if !colsChanged {
				columns = make([]ColumnDecl, len(n.Columns))
				copy(columns, n.Columns)
				colsChanged = true
			}
			columns[i] = ColumnDecl{Name: d.Name, Expr: de}
		}
	}

	orderBy := n.OrderBy
	orderChanged := false
	for i, o := range n.OrderBy {
		oe := Rewrite(o.Expr, fn)
		if oe != o.Expr {
			if !orderChanged {
				orderBy = make([]OrderExpr, len(n.OrderBy))
				copy(orderBy, n.OrderBy)
				orderChanged = true
			}
			orderBy[i] = OrderExpr{Expr: oe, Direction: o.Direction}
		}
	}

	groupBy, groupChanged := rewriteExprs(n.GroupBy, fn)

	if from == n.From && where == n.Where && skip == n.Skip && take == n.Take &&
		!colsChanged && !orderChanged && !groupChanged {
		return n
	}
	return &Select{
		Alias:    n.Alias,
		Columns:  columns,
		From:     from,
		Where:    where,
		OrderBy:  orderBy,
		GroupBy:  groupBy,
		Distinct: n.Distinct,
		Skip:     skip,
		Take:     take,
	}
}

func rewriteScalar(s *Scalar, fn func(expr.Expr) expr.Expr) *Scalar {
	if s == nil {
		return nil
	}
	if sel := selectOf(Rewrite(s.Select, fn)); sel != s.Select {
		return &Scalar{Select: sel}
	}
	return s
}

func rewriteExprs(in []expr.Expr, fn func(expr.Expr) expr.Expr) ([]expr.Expr, bool) {
	out := in
	changed := false
	for i, e := range in {
		r := Rewrite(e, fn)
		if r != e {
			if !changed {
				out = make([]expr.Expr, len(in))
				copy(out, in)
				changed = true
			}
			out[i] = r
		}
	}
	return out, changed
}

func rewriteAssignments(in []Assignment, fn func(expr.Expr) expr.Expr) ([]Assignment, bool) {
	out := in
	changed := false
	for i, a := range in {
		v := Rewrite(a.Value, fn)
		if v != a.Value {
			if !changed {
				out = make([]Assignment, len(in))
				copy(out, in)
				changed = true
			}
			out[i] = Assignment{Column: a.Column, Value: v}
		}
	}
	return out, changed
}

// selectOf asserts a rewritten node is still a *Select. Passes replace
// selects only with selects; anything else is a programming error worth an
// immediate panic rather than a silently corrupted tree.
func selectOf(e expr.Expr) *Select {
	if e == nil {
		return nil
	}
	return e.(*Select)
}
