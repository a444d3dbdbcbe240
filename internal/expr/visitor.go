package expr

// Walk calls fn for every node of a general expression tree in preorder.
// If fn returns false the walk does not descend into that node's children.
//
// Walk only understands the node set of this package; any other Expr
// implementation (relational nodes appear in trees after binding) is
// visited as a leaf. Passes that must traverse bound trees use the
// relational rewriter in internal/sqlrel instead.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Constant, *Parameter:
		// leaves
	case *Member:
		Walk(n.Expr, fn)
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Unary:
		Walk(n.Operand, fn)
	case *Lambda:
		Walk(n.Body, fn)
	case *New:
		for _, f := range n.Fields {
			Walk(f.Expr, fn)
		}
	case *Conditional:
		Walk(n.Test, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	}
}

// Rewrite applies fn bottom-up over a general expression tree, returning a
// new tree. Unchanged subtrees are returned as-is, so structural sharing is
// preserved and fn seeing an identical node may return it unmodified.
//
// Nodes outside this package's set are passed to fn as leaves.
func Rewrite(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *Constant, *Parameter:
		// leaves
	case *Member:
		if inner := Rewrite(n.Expr, fn); inner != n.Expr {
			e = &Member{Expr: inner, Name: n.Name, ResultType: n.ResultType}
		}
	case *Call:
		args, changed := rewriteAll(n.Args, fn)
		if changed {
			e = &Call{Method: n.Method, Args: args, ResultType: n.ResultType}
		}
	case *Binary:
		l, r := Rewrite(n.Left, fn), Rewrite(n.Right, fn)
		if l != n.Left || r != n.Right {
			e = &Binary{BinOp: n.BinOp, Left: l, Right: r, ResultType: n.ResultType}
		}
	case *Unary:
		if op := Rewrite(n.Operand, fn); op != n.Operand {
			e = &Unary{UnOp: n.UnOp, Operand: op, ResultType: n.ResultType}
		}
	case *Lambda:
		if body := Rewrite(n.Body, fn); body != n.Body {
			e = &Lambda{Params: n.Params, Body: body}
		}
	case *New:
		fields := n.Fields
		changed := false
		for i, f := range n.Fields {
			fe := Rewrite(f.Expr, fn)
			if fe != f.Expr {
				if !changed {
					fields = make([]Field, len(n.Fields))
					copy(fields, n.Fields)
					changed = true
				}
				fields[i] = Field{Name: f.Name, Expr: fe}
			}
		}
		if changed {
			e = &New{Fields: fields}
		}
	case *Conditional:
		test, then, els := Rewrite(n.Test, fn), Rewrite(n.Then, fn), Rewrite(n.Else, fn)
		if test != n.Test || then != n.Then || els != n.Else {
			e = &Conditional{Test: test, Then: then, Else: els}
		}
	}
	return fn(e)
}

func rewriteAll(in []Expr, fn func(Expr) Expr) ([]Expr, bool) {
	out := in
	changed := false
	for i, e := range in {
		r := Rewrite(e, fn)
		if r != e {
			if !changed {
				out = make([]Expr, len(in))
				copy(out, in)
				changed = true
			}
			out[i] = r
		}
	}
	return out, changed
}

// ReplaceAll substitutes every occurrence of old (by identity) with repl.
func ReplaceAll(e, old, repl Expr) Expr {
	return Rewrite(e, func(n Expr) Expr {
		if n == old {
			return repl
		}
		return n
	})
}
