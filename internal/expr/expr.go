package expr

// Op is the discriminant identifying a node's kind. Relational nodes
// (internal/sqlrel) extend the space with their own Op values; the two sets
// never overlap.
//
// Ops are compared by value and appear in error messages and debug markers,
// so the spelling is part of the diagnostic surface.
type Op string

const (
	OpConstant    Op = "Constant"
	OpParameter   Op = "Parameter"
	OpMember      Op = "Member"
	OpCall        Op = "Call"
	OpBinary      Op = "Binary"
	OpUnary       Op = "Unary"
	OpLambda      Op = "Lambda"
	OpNew         Op = "New"
	OpConditional Op = "Conditional"
)

// Expr is a node in the general expression language.
//
// The interface is deliberately open: the relational model in
// internal/sqlrel implements it so that predicates
// and projectors can mix general operators with column references after
// binding. Passes handle the union of both node sets with exhaustive type
// switches; an unrecognized dynamic type is a hard error, never a silent
// skip.
type Expr interface {
	// Op returns the node's discriminant.
	Op() Op

	// Type returns the node's result type tag.
	Type() Type
}

// Constant is a literal value. Value holds one of: nil, int64, float64,
// string, bool, time.Time, []byte, or a catalog entity reference (the table
// anchor a query chain starts from, typed KindEntity).
type Constant struct {
	Value      any
	ResultType Type
}

func (e *Constant) Op() Op     { return OpConstant }
func (e *Constant) Type() Type { return e.ResultType }

// IsNull reports whether the constant is a literal null. Comparisons
// against a null constant must render as IS [NOT] NULL, never = NULL.
func (e *Constant) IsNull() bool { return e.Value == nil }

// Parameter is a lambda parameter. Parameters are compared by pointer
// identity: the same *Parameter appearing in a lambda's parameter list and
// in its body is one variable, regardless of name.
type Parameter struct {
	Name       string
	ResultType Type
}

func (e *Parameter) Op() Op     { return OpParameter }
func (e *Parameter) Type() Type { return e.ResultType }

// Member is a property access such as i.Name. For parameters bound to a
// mapped entity the binder resolves members to column references; for
// string/time-typed operands a closed set of member names (Length, Year,
// Month, Day) translates to dialect built-ins.
type Member struct {
	Expr       Expr
	Name       string
	ResultType Type
}

func (e *Member) Op() Op     { return OpMember }
func (e *Member) Type() Type { return e.ResultType }

// Call is a method invocation. Query operators (Where, Select, Join,
// GroupBy, OrderBy, Take, ...) are calls whose first argument is the source
// sequence; scalar methods (StartsWith, Substring, Abs, ...) are calls whose
// first argument is the receiver value.
type Call struct {
	Method     string
	Args       []Expr
	ResultType Type
}

func (e *Call) Op() Op     { return OpCall }
func (e *Call) Type() Type { return e.ResultType }

// BinaryOp enumerates binary operators.
type BinaryOp string

const (
	BinEq     BinaryOp = "Eq"
	BinNe     BinaryOp = "Ne"
	BinLt     BinaryOp = "Lt"
	BinLe     BinaryOp = "Le"
	BinGt     BinaryOp = "Gt"
	BinGe     BinaryOp = "Ge"
	BinAnd    BinaryOp = "And"
	BinOr     BinaryOp = "Or"
	BinAdd    BinaryOp = "Add"
	BinSub    BinaryOp = "Sub"
	BinMul    BinaryOp = "Mul"
	BinDiv    BinaryOp = "Div"
	BinMod    BinaryOp = "Mod"
	BinBitAnd BinaryOp = "BitAnd"
	BinBitOr  BinaryOp = "BitOr"
	BinBitXor BinaryOp = "BitXor"
	BinConcat BinaryOp = "Concat"
)

// IsComparison reports whether the operator yields a truth value from two
// ordered operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case BinEq, BinNe, BinLt, BinLe, BinGt, BinGe:
		return true
	}
	return false
}

// Binary is a binary operation. The formatter chooses logical vs bitwise
// SQL spelling for And/Or from the operand types, not from the operator
// alone.
type Binary struct {
	BinOp      BinaryOp
	Left       Expr
	Right      Expr
	ResultType Type
}

func (e *Binary) Op() Op     { return OpBinary }
func (e *Binary) Type() Type { return e.ResultType }

// UnaryOp enumerates unary operators.
type UnaryOp string

const (
	UnNot    UnaryOp = "Not"
	UnNeg    UnaryOp = "Neg"
	UnBitNot UnaryOp = "BitNot"
)

// Unary is a unary operation.
type Unary struct {
	UnOp       UnaryOp
	Operand    Expr
	ResultType Type
}

func (e *Unary) Op() Op     { return OpUnary }
func (e *Unary) Type() Type { return e.ResultType }

// Lambda is an anonymous function literal, used as the selector/predicate
// argument of query operators. Lambdas never survive binding; the binder
// substitutes parameters and inlines the body.
type Lambda struct {
	Params []*Parameter
	Body   Expr
}

func (e *Lambda) Op() Op     { return OpLambda }
func (e *Lambda) Type() Type { return e.Body.Type() }

// Field is one named field of a New row constructor.
type Field struct {
	Name string
	Expr Expr
}

// New assembles a composite row value, the shape of a projection such as
// Select(i => new { i.Id, i.Name }). Field names must be unique.
type New struct {
	Fields []Field
}

func (e *New) Op() Op     { return OpNew }
func (e *New) Type() Type { return RowType() }

// Conditional is test ? then : else. Then and Else must share a type.
type Conditional struct {
	Test Expr
	Then Expr
	Else Expr
}

func (e *Conditional) Op() Op     { return OpConditional }
func (e *Conditional) Type() Type { return e.Then.Type() }

// Null returns a typed null constant.
func Null(t Type) *Constant {
	return &Constant{Value: nil, ResultType: t.AsNullable()}
}
