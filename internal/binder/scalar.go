package binder

import (
	"fmt"

	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relerr"
	"github.com/roach88/relq/internal/sqlrel"
)

// queryOperators is the closed set of sequence operators bindCall handles.
var queryOperators = map[string]bool{
	"Where": true, "Select": true, "SelectMany": true, "Join": true,
	"GroupBy": true, "OrderBy": true, "OrderByDescending": true,
	"ThenBy": true, "ThenByDescending": true, "Take": true, "Skip": true,
	"Distinct": true, "Union": true, "UnionAll": true, "Intersect": true,
	"Except": true, "Count": true, "LongCount": true, "Min": true,
	"Max": true, "Sum": true, "Average": true, "First": true,
	"FirstOrDefault": true, "Single": true, "Any": true, "All": true,
}

// scalarMethods is the closed set of value-level methods the formatter can
// render. Contains is absent here; it dispatches on receiver type.
var scalarMethods = map[string]bool{
	"StartsWith": true, "EndsWith": true, "Contains": true,
	"Substring": true, "IndexOf": true, "Concat": true,
	"ToLower": true, "ToUpper": true, "Trim": true,
	"Abs": true, "Round": true, "Ceiling": true, "Floor": true, "Pow": true,
}

// builtinMembers maps member names the formatter translates to dialect
// functions, keyed by the receiver kind they apply to.
var builtinMembers = map[expr.Kind]map[string]expr.Type{
	expr.KindString: {
		"Length": expr.IntType(),
	},
	expr.KindTime: {
		"Year":  expr.IntType(),
		"Month": expr.IntType(),
		"Day":   expr.IntType(),
	},
}

// bindExpr binds a value-position expression. Relational nodes produced by
// earlier binding steps pass through untouched.
func (b *binder) bindExpr(e expr.Expr) (expr.Expr, error) {
	switch n := e.(type) {
	case nil:
		return nil, nil
	case *expr.Constant:
		if ref, ok := n.Value.(catalog.EntityRef); ok {
			return b.tableProjection(ref)
		}
		return n, nil
	case *expr.Parameter:
		bound, ok := b.env[n]
		if !ok {
			return nil, &relerr.TranslationError{Detail: fmt.Sprintf("unbound parameter %q", n.Name)}
		}
		return bound, nil
	case *expr.Member:
		return b.bindMember(n)
	case *expr.Call:
		if queryOperators[n.Method] {
			return b.bindCall(n)
		}
		if n.Method == "Contains" {
			return b.bindContains(n)
		}
		return b.bindScalarCall(n)
	case *expr.Binary:
		return b.bindBinary(n)
	case *expr.Unary:
		operand, err := b.bindExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		if operand == n.Operand {
			return n, nil
		}
		return &expr.Unary{UnOp: n.UnOp, Operand: operand, ResultType: n.ResultType}, nil
	case *expr.New:
		return b.bindNew(n)
	case *expr.Conditional:
		test, err := b.bindExpr(n.Test)
		if err != nil {
			return nil, err
		}
		then, err := b.bindExpr(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := b.bindExpr(n.Else)
		if err != nil {
			return nil, err
		}
		if test == n.Test && then == n.Then && els == n.Else {
			return n, nil
		}
		return &expr.Conditional{Test: test, Then: then, Else: els}, nil
	case *expr.Lambda:
		return nil, &relerr.TranslationError{Detail: "lambda in value position"}
	default:
		// Already relational (Column, Scalar, Exists, ...) or a group
		// element sentinel waiting for an aggregate.
		return e, nil
	}
}

// bindBinary binds both sides and normalizes null comparisons into IsNull
// nodes so they never render as = NULL.
func (b *binder) bindBinary(n *expr.Binary) (expr.Expr, error) {
	left, err := b.bindExpr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.bindExpr(n.Right)
	if err != nil {
		return nil, err
	}

	if n.BinOp == expr.BinEq || n.BinOp == expr.BinNe {
		var operand expr.Expr
		if c, ok := left.(*expr.Constant); ok && c.IsNull() {
			operand = right
		} else if c, ok := right.(*expr.Constant); ok && c.IsNull() {
			operand = left
		}
		if operand != nil {
			var test expr.Expr = &sqlrel.IsNull{Expr: operand}
			if n.BinOp == expr.BinNe {
				test = &expr.Unary{UnOp: expr.UnNot, Operand: test, ResultType: expr.BoolType()}
			}
			return test, nil
		}
	}

	if left == n.Left && right == n.Right {
		return n, nil
	}
	return &expr.Binary{BinOp: n.BinOp, Left: left, Right: right, ResultType: n.ResultType}, nil
}

func (b *binder) bindNew(n *expr.New) (expr.Expr, error) {
	fields := make([]expr.Field, len(n.Fields))
	changed := false
	for i, f := range n.Fields {
		bound, err := b.bindExpr(f.Expr)
		if err != nil {
			return nil, err
		}
		if bound != f.Expr {
			changed = true
		}
		fields[i] = expr.Field{Name: f.Name, Expr: bound}
	}
	if !changed {
		return n, nil
	}
	return &expr.New{Fields: fields}, nil
}

// bindMember resolves a property access against its bound receiver: a field
// of a row projector, the Key of a group element, or a recognized built-in
// over a scalar value.
func (b *binder) bindMember(m *expr.Member) (expr.Expr, error) {
	recv, err := b.bindExpr(m.Expr)
	if err != nil {
		return nil, err
	}

	switch r := recv.(type) {
	case *expr.New:
		for _, f := range r.Fields {
			if f.Name == m.Name {
				return f.Expr, nil
			}
		}
		return nil, relerr.NewUnresolvedMember(m.Name, "no such field in the projected row")
	case *groupElem:
		if m.Name == "Key" {
			return r.info.keyProjector, nil
		}
		return nil, relerr.NewUnresolvedMember(m.Name, "group elements expose only Key; aggregate the group instead")
	case *sqlrel.Projection:
		return nil, relerr.NewUnresolvedMember(m.Name, "member access on a sequence")
	}

	if byKind, ok := builtinMembers[recv.Type().Kind]; ok {
		if t, ok := byKind[m.Name]; ok {
			return &expr.Member{Expr: recv, Name: m.Name, ResultType: t}, nil
		}
	}
	return nil, relerr.NewUnresolvedMember(m.Name,
		fmt.Sprintf("no translation for member on a %s value", recv.Type().Kind))
}

// bindScalarCall binds a value-level method. Param and Between lower to
// dedicated relational nodes; the rest of the closed set keeps its Call
// shape for the formatter.
func (b *binder) bindScalarCall(call *expr.Call) (expr.Expr, error) {
	switch call.Method {
	case "Param":
		if len(call.Args) != 1 {
			return nil, relerr.NewUnsupportedOp(call.Method, "requires a name argument")
		}
		name, ok := call.Args[0].(*expr.Constant)
		if !ok {
			return nil, relerr.NewUnsupportedOp(call.Method, "name must be a constant string")
		}
		s, ok := name.Value.(string)
		if !ok || s == "" {
			return nil, relerr.NewUnsupportedOp(call.Method, "name must be a non-empty string")
		}
		return &sqlrel.NamedValue{Name: s, ResultType: call.ResultType}, nil

	case "Between":
		if len(call.Args) != 3 {
			return nil, relerr.NewUnsupportedOp(call.Method, "requires a value and two bounds")
		}
		v, err := b.bindExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		lo, err := b.bindExpr(call.Args[1])
		if err != nil {
			return nil, err
		}
		hi, err := b.bindExpr(call.Args[2])
		if err != nil {
			return nil, err
		}
		return &sqlrel.Between{Expr: v, Lower: lo, Upper: hi}, nil
	}

	if !scalarMethods[call.Method] {
		return nil, relerr.NewUnsupportedOp(call.Method, "method has no dialect translation")
	}
	args := make([]expr.Expr, len(call.Args))
	for i, a := range call.Args {
		bound, err := b.bindExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = bound
	}
	return &expr.Call{Method: call.Method, Args: args, ResultType: call.ResultType}, nil
}

// uniqueName disambiguates a proposed column name against the names already
// taken in the same select.
func uniqueName(name string, used map[string]bool) string {
	out := name
	for i := 1; used[out]; i++ {
		out = fmt.Sprintf("%s%d", name, i)
	}
	used[out] = true
	return out
}
