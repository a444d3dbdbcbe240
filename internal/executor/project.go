package executor

import (
	"fmt"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/sqlrel"
)

// projEval evaluates a projection's projector against cursor rows. Column
// nodes read cursor ordinals resolved once against the root select's
// declared column order; row constructors assemble field maps; the scalar
// operators that stayed client-side compute directly.
type projEval struct {
	rootAlias sqlrel.Alias
	ordinals  map[string]int
	projector expr.Expr
}

func newProjEval(p *sqlrel.Projection) (*projEval, error) {
	ordinals := make(map[string]int, len(p.Select.Columns))
	for i, d := range p.Select.Columns {
		ordinals[d.Name] = i
	}
	e := &projEval{rootAlias: p.Select.Alias, ordinals: ordinals, projector: p.Projector}
	if err := e.check(p.Projector); err != nil {
		return nil, err
	}
	return e, nil
}

// check validates the projector up front so ordinal errors surface at
// prepare time rather than mid-iteration.
func (e *projEval) check(node expr.Expr) error {
	switch n := node.(type) {
	case *sqlrel.Column:
		if n.Alias != e.rootAlias {
			return fmt.Errorf("projector column %s references a non-root source", n.Name)
		}
		if _, ok := e.ordinals[n.Name]; !ok {
			return fmt.Errorf("projector column %s is not fetched", n.Name)
		}
		return nil
	case *expr.Constant:
		return nil
	case *expr.New:
		for _, f := range n.Fields {
			if err := e.check(f.Expr); err != nil {
				return err
			}
		}
		return nil
	case *expr.Conditional:
		for _, c := range []expr.Expr{n.Test, n.Then, n.Else} {
			if err := e.check(c); err != nil {
				return err
			}
		}
		return nil
	case *expr.Binary:
		if err := e.check(n.Left); err != nil {
			return err
		}
		return e.check(n.Right)
	case *expr.Unary:
		return e.check(n.Operand)
	default:
		return fmt.Errorf("projector cannot evaluate %s node client-side", node.Op())
	}
}

func (e *projEval) project(c Cursor) (any, error) {
	return e.eval(e.projector, c)
}

func (e *projEval) eval(node expr.Expr, c Cursor) (any, error) {
	switch n := node.(type) {
	case *sqlrel.Column:
		return c.Value(e.ordinals[n.Name]), nil
	case *expr.Constant:
		return n.Value, nil
	case *expr.New:
		row := make(map[string]any, len(n.Fields))
		for _, f := range n.Fields {
			v, err := e.eval(f.Expr, c)
			if err != nil {
				return nil, err
			}
			row[f.Name] = v
		}
		return row, nil
	case *expr.Conditional:
		test, err := e.eval(n.Test, c)
		if err != nil {
			return nil, err
		}
		if truthy(test) {
			return e.eval(n.Then, c)
		}
		return e.eval(n.Else, c)
	case *expr.Binary:
		return e.evalBinary(n, c)
	case *expr.Unary:
		return e.evalUnary(n, c)
	default:
		return nil, fmt.Errorf("cannot evaluate %s node", node.Op())
	}
}

func (e *projEval) evalUnary(n *expr.Unary, c Cursor) (any, error) {
	v, err := e.eval(n.Operand, c)
	if err != nil {
		return nil, err
	}
	switch n.UnOp {
	case expr.UnNot:
		return !truthy(v), nil
	case expr.UnNeg:
		switch x := v.(type) {
		case int64:
			return -x, nil
		case float64:
			return -x, nil
		}
		return nil, fmt.Errorf("cannot negate %T", v)
	default:
		return nil, fmt.Errorf("cannot evaluate unary %s", n.UnOp)
	}
}

func (e *projEval) evalBinary(n *expr.Binary, c Cursor) (any, error) {
	left, err := e.eval(n.Left, c)
	if err != nil {
		return nil, err
	}
	// Short-circuit logical forms before touching the right side.
	switch n.BinOp {
	case expr.BinAnd:
		if !truthy(left) {
			return false, nil
		}
		right, err := e.eval(n.Right, c)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case expr.BinOr:
		if truthy(left) {
			return true, nil
		}
		right, err := e.eval(n.Right, c)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	right, err := e.eval(n.Right, c)
	if err != nil {
		return nil, err
	}

	switch n.BinOp {
	case expr.BinEq:
		return compare(left, right) == 0, nil
	case expr.BinNe:
		return compare(left, right) != 0, nil
	case expr.BinLt:
		return compare(left, right) < 0, nil
	case expr.BinLe:
		return compare(left, right) <= 0, nil
	case expr.BinGt:
		return compare(left, right) > 0, nil
	case expr.BinGe:
		return compare(left, right) >= 0, nil
	case expr.BinConcat:
		return fmt.Sprintf("%v%v", left, right), nil
	case expr.BinAdd, expr.BinSub, expr.BinMul, expr.BinDiv, expr.BinMod:
		return arith(n.BinOp, left, right)
	default:
		return nil, fmt.Errorf("cannot evaluate binary %s", n.BinOp)
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case nil:
		return false
	default:
		return true
	}
}

// compare orders two scalar values, coercing mixed int/float pairs. NULL
// sorts below everything, matching SQLite.
func compare(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func arith(op expr.BinaryOp, a, b any) (any, error) {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		switch op {
		case expr.BinAdd:
			return ai + bi, nil
		case expr.BinSub:
			return ai - bi, nil
		case expr.BinMul:
			return ai * bi, nil
		case expr.BinDiv:
			if bi == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return ai / bi, nil
		case expr.BinMod:
			if bi == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return ai % bi, nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", op, a, b)
	}
	switch op {
	case expr.BinAdd:
		return af + bf, nil
	case expr.BinSub:
		return af - bf, nil
	case expr.BinMul:
		return af * bf, nil
	case expr.BinDiv:
		if bf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return af / bf, nil
	default:
		return nil, fmt.Errorf("cannot apply %s to floats", op)
	}
}
