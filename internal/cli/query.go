package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/expr"
)

// QueryDoc is the declarative query description read from YAML. Clauses
// apply in chain order: where, orderBy, select, distinct, skip, take.
//
// Example:
//
//	from: Item
//	where:
//	  op: gt
//	  left: {member: Price}
//	  right: {param: minPrice, type: float}
//	select: [Name, Price]
//	orderBy:
//	  - {member: Price, desc: true}
//	take: 10
type QueryDoc struct {
	From     string     `yaml:"from"`
	Where    *ExprDoc   `yaml:"where"`
	Select   []string   `yaml:"select"`
	OrderBy  []OrderDoc `yaml:"orderBy"`
	Distinct bool       `yaml:"distinct"`
	Skip     *int64     `yaml:"skip"`
	Take     *int64     `yaml:"take"`
}

// OrderDoc is one orderBy entry.
type OrderDoc struct {
	Member string `yaml:"member"`
	Desc   bool   `yaml:"desc"`
}

// ExprDoc is one expression node. Exactly one of the variant fields is set:
// value, member, param, op (with left/right), not, or call (with on/args).
type ExprDoc struct {
	Value  *yaml.Node `yaml:"value"`
	Member string     `yaml:"member"`
	Param  string     `yaml:"param"`
	Type   string     `yaml:"type"` // param value type: int, float, string, bool, time
	Op     string     `yaml:"op"`
	Left   *ExprDoc   `yaml:"left"`
	Right  *ExprDoc   `yaml:"right"`
	Not    *ExprDoc   `yaml:"not"`
	Call   string     `yaml:"call"`
	On     *ExprDoc   `yaml:"on"`
	Args   []*ExprDoc `yaml:"args"`
}

// LoadQuery reads a query description file. Unknown fields are rejected so
// typos fail loudly instead of silently dropping clauses.
func LoadQuery(path string) (*QueryDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var doc QueryDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding query file: %w", err)
	}
	if doc.From == "" {
		return nil, fmt.Errorf("query file: missing from entity")
	}
	return &doc, nil
}

var binaryOps = map[string]expr.BinaryOp{
	"eq":     expr.BinEq,
	"ne":     expr.BinNe,
	"lt":     expr.BinLt,
	"le":     expr.BinLe,
	"gt":     expr.BinGt,
	"ge":     expr.BinGe,
	"and":    expr.BinAnd,
	"or":     expr.BinOr,
	"add":    expr.BinAdd,
	"sub":    expr.BinSub,
	"mul":    expr.BinMul,
	"div":    expr.BinDiv,
	"mod":    expr.BinMod,
	"concat": expr.BinConcat,
}

// BuildQuery converts a query description to an expression tree rooted at
// the named entity. Members resolve against the entity's mapping, so where
// and orderBy clauses see entity properties, not projected names.
func BuildQuery(doc *QueryDoc, cat catalog.Catalog) (expr.Expr, error) {
	mapping, ok := cat.Entity(doc.From)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", doc.From)
	}

	var q expr.Expr = catalog.Entity(doc.From)

	if doc.Where != nil {
		p := &expr.Parameter{Name: "row", ResultType: expr.RowType()}
		body, err := buildExpr(doc.Where, p, mapping)
		if err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
		q = chain(q, "Where", &expr.Lambda{Params: []*expr.Parameter{p}, Body: body})
	}

	for i, o := range doc.OrderBy {
		col, ok := mapping.Column(o.Member)
		if !ok {
			return nil, fmt.Errorf("orderBy: unknown property %q on %s", o.Member, doc.From)
		}
		p := &expr.Parameter{Name: "row", ResultType: expr.RowType()}
		key := &expr.Lambda{
			Params: []*expr.Parameter{p},
			Body:   &expr.Member{Expr: p, Name: o.Member, ResultType: col.Type},
		}
		q = chain(q, orderOperator(i == 0, o.Desc), key)
	}

	if len(doc.Select) > 0 {
		p := &expr.Parameter{Name: "row", ResultType: expr.RowType()}
		fields := make([]expr.Field, 0, len(doc.Select))
		for _, name := range doc.Select {
			col, ok := mapping.Column(name)
			if !ok {
				return nil, fmt.Errorf("select: unknown property %q on %s", name, doc.From)
			}
			fields = append(fields, expr.Field{
				Name: name,
				Expr: &expr.Member{Expr: p, Name: name, ResultType: col.Type},
			})
		}
		q = chain(q, "Select", &expr.Lambda{
			Params: []*expr.Parameter{p},
			Body:   &expr.New{Fields: fields},
		})
	}

	if doc.Distinct {
		q = chain(q, "Distinct")
	}
	if doc.Skip != nil {
		q = chain(q, "Skip", intConst(*doc.Skip))
	}
	if doc.Take != nil {
		q = chain(q, "Take", intConst(*doc.Take))
	}
	return q, nil
}

// ResultColumns returns the column headers a query's rows will carry, in
// declaration order.
func ResultColumns(doc *QueryDoc, cat catalog.Catalog) []string {
	if len(doc.Select) > 0 {
		return doc.Select
	}
	mapping, ok := cat.Entity(doc.From)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(mapping.Columns))
	for _, c := range mapping.Columns {
		names = append(names, c.Property)
	}
	return names
}

func buildExpr(doc *ExprDoc, p *expr.Parameter, mapping catalog.EntityMapping) (expr.Expr, error) {
	switch {
	case doc == nil:
		return nil, fmt.Errorf("missing expression")

	case doc.Value != nil:
		return decodeLiteral(doc.Value)

	case doc.Member != "":
		col, ok := mapping.Column(doc.Member)
		if !ok {
			return nil, fmt.Errorf("unknown property %q on %s", doc.Member, mapping.Name)
		}
		return &expr.Member{Expr: p, Name: doc.Member, ResultType: col.Type}, nil

	case doc.Param != "":
		if doc.Type == "" {
			return nil, fmt.Errorf("param %q: missing type", doc.Param)
		}
		t, err := catalog.ParseType(doc.Type, false)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", doc.Param, err)
		}
		return &expr.Call{
			Method:     "Param",
			Args:       []expr.Expr{&expr.Constant{Value: doc.Param, ResultType: expr.StringType()}},
			ResultType: t,
		}, nil

	case doc.Op != "":
		op, ok := binaryOps[doc.Op]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", doc.Op)
		}
		left, err := buildExpr(doc.Left, p, mapping)
		if err != nil {
			return nil, err
		}
		right, err := buildExpr(doc.Right, p, mapping)
		if err != nil {
			return nil, err
		}
		t := left.Type()
		if op.IsComparison() || op == expr.BinAnd || op == expr.BinOr {
			t = expr.BoolType()
		}
		return &expr.Binary{BinOp: op, Left: left, Right: right, ResultType: t}, nil

	case doc.Not != nil:
		operand, err := buildExpr(doc.Not, p, mapping)
		if err != nil {
			return nil, err
		}
		return &expr.Unary{UnOp: expr.UnNot, Operand: operand, ResultType: expr.BoolType()}, nil

	case doc.Call != "":
		if doc.On == nil {
			return nil, fmt.Errorf("call %q: missing on", doc.Call)
		}
		recv, err := buildExpr(doc.On, p, mapping)
		if err != nil {
			return nil, err
		}
		args := []expr.Expr{recv}
		for i, a := range doc.Args {
			arg, err := buildExpr(a, p, mapping)
			if err != nil {
				return nil, fmt.Errorf("call %q: arg %d: %w", doc.Call, i, err)
			}
			args = append(args, arg)
		}
		return &expr.Call{Method: doc.Call, Args: args, ResultType: callResultType(doc.Call)}, nil

	default:
		return nil, fmt.Errorf("expression node sets no variant field")
	}
}

// callResultType types the scalar methods the query file exposes. String
// predicates are bool, string transforms string.
func callResultType(method string) expr.Type {
	switch method {
	case "StartsWith", "EndsWith", "Contains":
		return expr.BoolType()
	case "IndexOf":
		return expr.IntType()
	case "ToLower", "ToUpper", "Trim", "Substring", "Concat":
		return expr.StringType()
	default:
		return expr.FloatType()
	}
}

func decodeLiteral(node *yaml.Node) (expr.Expr, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding literal: %w", err)
	}
	switch val := v.(type) {
	case int:
		return &expr.Constant{Value: int64(val), ResultType: expr.IntType()}, nil
	case int64:
		return &expr.Constant{Value: val, ResultType: expr.IntType()}, nil
	case float64:
		return &expr.Constant{Value: val, ResultType: expr.FloatType()}, nil
	case bool:
		return &expr.Constant{Value: val, ResultType: expr.BoolType()}, nil
	case string:
		return &expr.Constant{Value: val, ResultType: expr.StringType()}, nil
	case nil:
		return expr.Null(expr.StringType().AsNullable()), nil
	default:
		return nil, fmt.Errorf("unsupported literal %T", v)
	}
}

func chain(source expr.Expr, method string, args ...expr.Expr) expr.Expr {
	return &expr.Call{
		Method:     method,
		Args:       append([]expr.Expr{source}, args...),
		ResultType: expr.SeqType(),
	}
}

func orderOperator(first, desc bool) string {
	switch {
	case first && desc:
		return "OrderByDescending"
	case first:
		return "OrderBy"
	case desc:
		return "ThenByDescending"
	default:
		return "ThenBy"
	}
}

func intConst(v int64) *expr.Constant {
	return &expr.Constant{Value: v, ResultType: expr.IntType()}
}
