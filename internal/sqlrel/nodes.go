package sqlrel

import (
	"fmt"
	"strings"

	"github.com/roach88/relq/internal/expr"
)

// Relational node discriminants. These extend the expr.Op space; the two
// sets never overlap.
const (
	OpTable       expr.Op = "Table"
	OpColumn      expr.Op = "Column"
	OpSelect      expr.Op = "Select"
	OpJoin        expr.Op = "Join"
	OpAggregate   expr.Op = "Aggregate"
	OpAggSubquery expr.Op = "AggSubquery"
	OpScalar      expr.Op = "Scalar"
	OpExists      expr.Op = "Exists"
	OpIn          expr.Op = "In"
	OpIsNull      expr.Op = "IsNull"
	OpBetween     expr.Op = "Between"
	OpNamedValue  expr.Op = "NamedValue"
	OpSetOp       expr.Op = "SetOp"
	OpProjection  expr.Op = "Projection"
	OpInsert      expr.Op = "Insert"
	OpUpdate      expr.Op = "Update"
	OpDelete      expr.Op = "Delete"
	OpIf          expr.Op = "If"
	OpBlock       expr.Op = "Block"
	OpDeclaration expr.Op = "Declaration"
)

// Table is a named source plus the alias it is referenced under.
type Table struct {
	Name  string
	Alias Alias
}

func (t *Table) Op() expr.Op     { return OpTable }
func (t *Table) Type() expr.Type { return expr.SeqType() }

// Column is a weak reference to one column of an aliased source: it names
// the owning alias and the column, and never owns the source itself.
type Column struct {
	Alias   Alias
	Name    string
	ColType expr.Type
}

func (c *Column) Op() expr.Op     { return OpColumn }
func (c *Column) Type() expr.Type { return c.ColType }

// WriteCanonical implements expr.Canonicalizer.
func (c *Column) WriteCanonical(sb *strings.Builder, _ func(*strings.Builder, expr.Expr) error) error {
	fmt.Fprintf(sb, "Col(a%d.%s)", c.Alias, c.Name)
	return nil
}

// ColumnDecl declares one projected column of a Select: the name it is
// exposed under and the expression producing it. Names are unique within
// one select.
type ColumnDecl struct {
	Name string
	Expr expr.Expr
}

// OrderDirection is the sort direction of one ORDER BY entry.
type OrderDirection int

const (
	Ascending OrderDirection = iota
	Descending
)

// OrderExpr is one ORDER BY entry.
type OrderExpr struct {
	Expr      expr.Expr
	Direction OrderDirection
}

// Select is the central relational block.
//
// From is itself a relational source: a Table, Join, nested Select, or
// SetOp. Skip and Take are nil when unset; when set they are integer-typed
// expressions (usually constants or named values).
type Select struct {
	Alias    Alias
	Columns  []ColumnDecl
	From     expr.Expr
	Where    expr.Expr
	OrderBy  []OrderExpr
	GroupBy  []expr.Expr
	Distinct bool
	Skip     expr.Expr
	Take     expr.Expr
}

func (s *Select) Op() expr.Op     { return OpSelect }
func (s *Select) Type() expr.Type { return expr.SeqType() }

// ColumnNamed returns the declared column with the given name, if any.
func (s *Select) ColumnNamed(name string) (ColumnDecl, bool) {
	for _, d := range s.Columns {
		if d.Name == name {
			return d, true
		}
	}
	return ColumnDecl{}, false
}

// JoinKind enumerates the supported join shapes.
type JoinKind int

const (
	CrossJoin JoinKind = iota
	InnerJoin
	LeftOuterJoin
	CrossApply
	OuterApply
)

// String returns the kind name used in diagnostics.
func (k JoinKind) String() string {
	switch k {
	case CrossJoin:
		return "Cross"
	case InnerJoin:
		return "Inner"
	case LeftOuterJoin:
		return "LeftOuter"
	case CrossApply:
		return "CrossApply"
	case OuterApply:
		return "OuterApply"
	default:
		return fmt.Sprintf("JoinKind(%d)", int(k))
	}
}

// Join combines two sources. Condition is required for Inner and LeftOuter
// joins and forbidden for Cross joins (see Validate).
type Join struct {
	Kind      JoinKind
	Left      expr.Expr
	Right     expr.Expr
	Condition expr.Expr
}

func (j *Join) Op() expr.Op     { return OpJoin }
func (j *Join) Type() expr.Type { return expr.SeqType() }

// AggregateName enumerates the supported aggregate functions.
type AggregateName string

const (
	AggCount     AggregateName = "Count"
	AggLongCount AggregateName = "LongCount"
	AggMin       AggregateName = "Min"
	AggMax       AggregateName = "Max"
	AggSum       AggregateName = "Sum"
	AggAverage   AggregateName = "Average"
)

// Aggregate is an aggregate function application. Arg is nil for bare
// Count/LongCount.
type Aggregate struct {
	Name       AggregateName
	Arg        expr.Expr
	Distinct   bool
	ResultType expr.Type
}

func (a *Aggregate) Op() expr.Op     { return OpAggregate }
func (a *Aggregate) Type() expr.Type { return a.ResultType }

// AggKey pairs one grouping key across the two sides of an aggregate
// hoist: the key column exposed by the grouping select, and the same key
// expressed over the marker's private element source.
type AggKey struct {
	Name  string    // column name the key takes in the derived select
	Outer *Column   // the grouping select's key column
	Inner expr.Expr // the key over Source's columns
}

// AggSubquery is the marker the binder leaves behind for a group-scoped
// aggregate: an aggregate over the elements of one group of a grouping
// select. The aggregate rewrite pass erases every marker, either by hoisting
// the aggregate into a LEFT OUTER join against a derived grouped select or
// by keeping the correlated scalar fallback.
type AggSubquery struct {
	// GroupAlias identifies the grouping select this aggregate is scoped to.
	GroupAlias Alias

	// Source is a private, freshly aliased copy of the grouping select's
	// element source. Aggregate and the Keys' Inner expressions reference
	// its columns.
	Source expr.Expr

	// Aggregate is the bare aggregate over Source's columns, ready to be
	// placed inside the derived grouped select.
	Aggregate expr.Expr

	// Keys are the grouping keys, paired outer↔inner.
	Keys []AggKey

	// AsSubquery is the correlated scalar form the marker degrades to when
	// hoisting is not possible. It shares Source, so exactly one of the two
	// shapes survives the rewrite.
	AsSubquery *Scalar
}

func (a *AggSubquery) Op() expr.Op     { return OpAggSubquery }
func (a *AggSubquery) Type() expr.Type { return a.Aggregate.Type() }

// Scalar is a subquery used in value position; its select must project
// exactly one column.
type Scalar struct {
	Select *Select
}

func (s *Scalar) Op() expr.Op { return OpScalar }
func (s *Scalar) Type() expr.Type {
	if len(s.Select.Columns) == 1 {
		return s.Select.Columns[0].Expr.Type().AsNullable()
	}
	return expr.Type{}
}

// Exists is a subquery used as a predicate: true when the select yields at
// least one row.
type Exists struct {
	Select *Select
}

func (e *Exists) Op() expr.Op     { return OpExists }
func (e *Exists) Type() expr.Type { return expr.BoolType() }

// In tests membership of Expr in either a literal value list or a
// single-column subquery, never both (see Validate).
type In struct {
	Expr   expr.Expr
	Values []expr.Expr
	Select *Select
}

func (i *In) Op() expr.Op     { return OpIn }
func (i *In) Type() expr.Type { return expr.BoolType() }

// IsNull is the SQL null test.
type IsNull struct {
	Expr expr.Expr
}

func (i *IsNull) Op() expr.Op     { return OpIsNull }
func (i *IsNull) Type() expr.Type { return expr.BoolType() }

// NullSafeEq builds an equality that treats two NULLs as equal. Plain =
// follows three-valued logic, so a NULL key would never match itself;
// nullable operands get an IS NULL conjunction alongside the comparison.
func NullSafeEq(left, right expr.Expr) expr.Expr {
	eq := &expr.Binary{BinOp: expr.BinEq, Left: left, Right: right, ResultType: expr.BoolType()}
	if !left.Type().Nullable && !right.Type().Nullable {
		return eq
	}
	bothNull := &expr.Binary{
		BinOp:      expr.BinAnd,
		Left:       &IsNull{Expr: left},
		Right:      &IsNull{Expr: right},
		ResultType: expr.BoolType(),
	}
	return &expr.Binary{BinOp: expr.BinOr, Left: eq, Right: bothNull, ResultType: expr.BoolType()}
}

// Between is lower <= expr AND expr <= upper in one node.
type Between struct {
	Expr  expr.Expr
	Lower expr.Expr
	Upper expr.Expr
}

func (b *Between) Op() expr.Op     { return OpBetween }
func (b *Between) Type() expr.Type { return expr.BoolType() }

// NamedValue is a late-bound parameter placeholder. It formats as a SQL
// parameter and is resolved from the caller-supplied bindings at execution
// time.
type NamedValue struct {
	Name       string
	ResultType expr.Type
}

func (n *NamedValue) Op() expr.Op     { return OpNamedValue }
func (n *NamedValue) Type() expr.Type { return n.ResultType }

// WriteCanonical implements expr.Canonicalizer.
func (n *NamedValue) WriteCanonical(sb *strings.Builder, _ func(*strings.Builder, expr.Expr) error) error {
	fmt.Fprintf(sb, "Named(%s:%s)", n.Name, n.ResultType.Kind)
	return nil
}

// SetOpKind enumerates set operations between two selects.
type SetOpKind string

const (
	Union     SetOpKind = "Union"
	UnionAll  SetOpKind = "UnionAll"
	Intersect SetOpKind = "Intersect"
	Except    SetOpKind = "Except"
)

// SetOp combines two selects in source position. Both sides must project
// the same column names in the same order; the combined source exposes the
// left side's column names under Alias.
type SetOp struct {
	Kind  SetOpKind
	Left  expr.Expr
	Right expr.Expr
	Alias Alias
}

func (s *SetOp) Op() expr.Op     { return OpSetOp }
func (s *SetOp) Type() expr.Type { return expr.SeqType() }

// Aggregator describes how a projection's rows collapse into the final
// result the caller sees.
type Aggregator string

const (
	// AggregatorNone yields the full lazy row sequence.
	AggregatorNone Aggregator = ""

	// AggregatorScalar unwraps a single-row, single-value result (Count,
	// Sum, ...). Zero rows is an execution error.
	AggregatorScalar Aggregator = "Scalar"

	// AggregatorFirst yields the first row and errors on an empty result.
	AggregatorFirst Aggregator = "First"

	// AggregatorFirstOrDefault yields the first row or nil on an empty
	// result.
	AggregatorFirstOrDefault Aggregator = "FirstOrDefault"

	// AggregatorSingle yields the only row; zero or multiple rows is an
	// execution error.
	AggregatorSingle Aggregator = "Single"
)

// Projection is the root artifact of translation: a select statement paired
// with the projector describing how one fetched row reconstructs one result
// value, plus the aggregator collapsing rows into the caller-visible shape.
//
// The projector mixes general nodes (New, Binary, ...) with Column nodes
// referencing Select's declared columns.
type Projection struct {
	Select     *Select
	Projector  expr.Expr
	Aggregator Aggregator
}

func (p *Projection) Op() expr.Op     { return OpProjection }
func (p *Projection) Type() expr.Type { return expr.SeqType() }
