// Package sqlfmt renders finalized relational trees as SQLite SQL.
//
// The formatter is a single-pass recursive renderer. All state lives in one
// writer value scoped to a Format call: the output buffer, the indent
// depth, the alias display names (t0, t1, ... for table and select sources,
// ut0, ut1, ... for set-operation sources, assigned on first visit) and the
// predicate-vs-value context. SQL keeps predicates and values apart, so a
// boolean expression in value position becomes CASE WHEN p THEN 1 ELSE 0
// END and a value in predicate position becomes v <> 0.
package sqlfmt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relerr"
	"github.com/roach88/relq/internal/sqlrel"
)

// Options controls formatting.
type Options struct {
	// Debug renders otherwise unsupported nodes as ?Kind?(...) markers
	// instead of failing. Debug output is for inspection only and must
	// never be executed.
	Debug bool
}

// Format renders a relational tree as SQL. The root may be a Projection,
// a Select, a command (Insert, Update, Delete), or any value expression.
func Format(node expr.Expr, opts Options) (string, error) {
	w := &writer{opts: opts, names: map[sqlrel.Alias]string{}}
	switch n := node.(type) {
	case *sqlrel.Projection:
		w.writeSelect(n.Select)
	case *sqlrel.Select:
		w.writeSelect(n)
	case *sqlrel.Insert:
		w.writeInsert(n)
	case *sqlrel.Update:
		w.writeUpdate(n)
	case *sqlrel.Delete:
		w.writeDelete(n)
	default:
		w.writeExpr(node, valueCtx)
	}
	if w.err != nil {
		return "", w.err
	}
	return w.sb.String(), nil
}

type context int

const (
	valueCtx context = iota
	predicateCtx
)

type writer struct {
	sb     strings.Builder
	opts   Options
	err    error
	depth  int
	names  map[sqlrel.Alias]string
	nextT  int
	nextUT int
}

func (w *writer) fail(node, detail string) {
	if w.err == nil {
		w.err = relerr.NewFormatting(node, detail)
	}
}

func (w *writer) write(s string) {
	if w.err == nil {
		w.sb.WriteString(s)
	}
}

func (w *writer) writef(format string, args ...any) {
	w.write(fmt.Sprintf(format, args...))
}

func (w *writer) newline() {
	w.write("\n" + strings.Repeat("  ", w.depth))
}

// sourceName returns the display name for an alias, assigning t<n> on first
// use. Set-operation sources go through setOpName instead.
func (w *writer) sourceName(a sqlrel.Alias) string {
	if name, ok := w.names[a]; ok {
		return name
	}
	name := fmt.Sprintf("t%d", w.nextT)
	w.nextT++
	w.names[a] = name
	return name
}

func (w *writer) setOpName(a sqlrel.Alias) string {
	if name, ok := w.names[a]; ok {
		return name
	}
	name := fmt.Sprintf("ut%d", w.nextUT)
	w.nextUT++
	w.names[a] = name
	return name
}

// registerSources assigns display names to a from clause's sources in
// left-to-right order, so columns in the select list render with the same
// names the FROM clause will introduce.
func (w *writer) registerSources(from expr.Expr) {
	switch n := from.(type) {
	case *sqlrel.Table:
		w.sourceName(n.Alias)
	case *sqlrel.Select:
		w.sourceName(n.Alias)
	case *sqlrel.SetOp:
		w.setOpName(n.Alias)
	case *sqlrel.Join:
		w.registerSources(n.Left)
		w.registerSources(n.Right)
	}
}

func (w *writer) writeSelect(sel *sqlrel.Select) {
	w.registerSources(sel.From)

	w.write("SELECT ")
	if sel.Distinct {
		w.write("DISTINCT ")
	}
	for i, d := range sel.Columns {
		if i > 0 {
			w.write(", ")
		}
		w.writeColumnDecl(d)
	}

	if sel.From != nil {
		w.newline()
		w.write("FROM ")
		w.writeSource(sel.From)
	}
	if sel.Where != nil {
		w.newline()
		w.write("WHERE ")
		w.writeExpr(sel.Where, predicateCtx)
	}
	if len(sel.GroupBy) > 0 {
		w.newline()
		w.write("GROUP BY ")
		for i, g := range sel.GroupBy {
			if i > 0 {
				w.write(", ")
			}
			w.writeExpr(g, valueCtx)
		}
	}
	if len(sel.OrderBy) > 0 {
		w.newline()
		w.write("ORDER BY ")
		for i, o := range sel.OrderBy {
			if i > 0 {
				w.write(", ")
			}
			w.writeExpr(o.Expr, valueCtx)
			if o.Direction == sqlrel.Descending {
				w.write(" DESC")
			}
		}
	}
	w.writeLimit(sel)
}

// writeLimit renders LIMIT <skip>, <take>; skip defaults to 0 and a missing
// take renders as -1, SQLite's unbounded marker.
func (w *writer) writeLimit(sel *sqlrel.Select) {
	if sel.Take == nil && sel.Skip == nil {
		return
	}
	w.newline()
	w.write("LIMIT ")
	if sel.Skip != nil {
		w.writeExpr(sel.Skip, valueCtx)
	} else {
		w.write("0")
	}
	w.write(", ")
	if sel.Take != nil {
		w.writeExpr(sel.Take, valueCtx)
	} else {
		w.write("-1")
	}
}

// writeColumnDecl renders one select-list entry, eliding AS when the
// declaration forwards a column under its own name.
func (w *writer) writeColumnDecl(d sqlrel.ColumnDecl) {
	if c, ok := d.Expr.(*sqlrel.Column); ok && c.Name == d.Name {
		w.writeExpr(c, valueCtx)
		return
	}
	w.writeExpr(d.Expr, valueCtx)
	w.write(" AS " + d.Name)
}

func (w *writer) writeSource(from expr.Expr) {
	switch n := from.(type) {
	case *sqlrel.Table:
		w.write(n.Name + " AS " + w.sourceName(n.Alias))
	case *sqlrel.Select:
		w.write("(")
		w.depth++
		w.newline()
		w.writeSelect(n)
		w.depth--
		w.newline()
		w.write(") AS " + w.sourceName(n.Alias))
	case *sqlrel.SetOp:
		w.writeSetOp(n)
	case *sqlrel.Join:
		w.writeJoin(n)
	default:
		w.unsupported(from)
	}
}

func (w *writer) writeSetOp(s *sqlrel.SetOp) {
	var op string
	switch s.Kind {
	case sqlrel.Union:
		op = "UNION"
	case sqlrel.UnionAll:
		op = "UNION ALL"
	case sqlrel.Intersect:
		op = "INTERSECT"
	case sqlrel.Except:
		op = "EXCEPT"
	default:
		w.fail("SetOp", fmt.Sprintf("unknown kind %q", s.Kind))
		return
	}
	w.write("(")
	w.depth++
	w.newline()
	w.writeSetOpSide(s.Left)
	w.newline()
	w.write(op)
	w.newline()
	w.writeSetOpSide(s.Right)
	w.depth--
	w.newline()
	w.write(") AS " + w.setOpName(s.Alias))
}

func (w *writer) writeSetOpSide(side expr.Expr) {
	switch n := side.(type) {
	case *sqlrel.Select:
		w.writeSelect(n)
	case *sqlrel.SetOp:
		w.writeSetOp(n)
	default:
		w.unsupported(side)
	}
}

func (w *writer) writeJoin(j *sqlrel.Join) {
	w.writeSource(j.Left)
	w.depth++
	w.newline()
	w.depth--
	switch j.Kind {
	case sqlrel.CrossJoin:
		w.write("CROSS JOIN ")
		w.writeSource(j.Right)
	case sqlrel.InnerJoin:
		w.write("INNER JOIN ")
		w.writeSource(j.Right)
		w.write(" ON ")
		w.writeExpr(j.Condition, predicateCtx)
	case sqlrel.LeftOuterJoin:
		w.write("LEFT OUTER JOIN ")
		w.writeSource(j.Right)
		w.write(" ON ")
		w.writeExpr(j.Condition, predicateCtx)
	default:
		// Correlated applies have no SQLite rendering.
		w.fail("Join", fmt.Sprintf("%s join cannot be rendered for SQLite", j.Kind))
	}
}

func (w *writer) writeInsert(c *sqlrel.Insert) {
	w.names[c.Table.Alias] = ""
	w.write("INSERT INTO " + c.Table.Name + " (")
	for i, a := range c.Assignments {
		if i > 0 {
			w.write(", ")
		}
		w.write(a.Column.Name)
	}
	w.write(")")
	w.newline()
	w.write("VALUES (")
	for i, a := range c.Assignments {
		if i > 0 {
			w.write(", ")
		}
		w.writeExpr(a.Value, valueCtx)
	}
	w.write(")")
}

func (w *writer) writeUpdate(c *sqlrel.Update) {
	// Command targets render unqualified; SQLite forbids aliases here.
	w.names[c.Table.Alias] = ""
	w.write("UPDATE " + c.Table.Name)
	w.newline()
	w.write("SET ")
	for i, a := range c.Assignments {
		if i > 0 {
			w.write(", ")
		}
		w.write(a.Column.Name + " = ")
		w.writeExpr(a.Value, valueCtx)
	}
	if c.Where != nil {
		w.newline()
		w.write("WHERE ")
		w.writeExpr(c.Where, predicateCtx)
	}
}

func (w *writer) writeDelete(c *sqlrel.Delete) {
	w.names[c.Table.Alias] = ""
	w.write("DELETE FROM " + c.Table.Name)
	if c.Where != nil {
		w.newline()
		w.write("WHERE ")
		w.writeExpr(c.Where, predicateCtx)
	}
}

// isPredicate reports whether a node renders as a truth-valued SQL form.
// Boolean-typed columns, constants and parameters are values; SQLite stores
// them as integers.
func isPredicate(e expr.Expr) bool {
	switch n := e.(type) {
	case *sqlrel.Exists, *sqlrel.In, *sqlrel.IsNull, *sqlrel.Between:
		return true
	case *expr.Binary:
		if n.BinOp.IsComparison() {
			return true
		}
		if n.BinOp == expr.BinAnd || n.BinOp == expr.BinOr {
			return n.Left.Type().IsBool()
		}
		return false
	case *expr.Unary:
		return n.UnOp == expr.UnNot
	case *expr.Call:
		switch n.Method {
		case "StartsWith", "EndsWith", "Contains":
			return true
		}
		return false
	default:
		return false
	}
}

// writeExpr renders an expression, bridging the predicate/value divide when
// the node's natural form disagrees with the position it appears in.
func (w *writer) writeExpr(e expr.Expr, ctx context) {
	if e == nil {
		w.fail("nil", "missing expression")
		return
	}
	pred := isPredicate(e)
	switch {
	case ctx == valueCtx && pred:
		w.write("CASE WHEN ")
		w.writeNode(e, predicateCtx)
		w.write(" THEN 1 ELSE 0 END")
	case ctx == predicateCtx && !pred:
		w.write("(")
		w.writeNode(e, valueCtx)
		w.write(" <> 0)")
	default:
		w.writeNode(e, ctx)
	}
}

func (w *writer) writeNode(e expr.Expr, ctx context) {
	switch n := e.(type) {
	case *expr.Constant:
		w.writeConstant(n)
	case *sqlrel.Column:
		w.writeColumn(n)
	case *sqlrel.NamedValue:
		w.write(":" + n.Name)
	case *expr.Binary:
		w.writeBinary(n, ctx)
	case *expr.Unary:
		w.writeUnary(n, ctx)
	case *expr.Call:
		w.writeCall(n)
	case *expr.Member:
		w.writeMember(n)
	case *expr.Conditional:
		w.write("CASE WHEN ")
		w.writeExpr(n.Test, predicateCtx)
		w.write(" THEN ")
		w.writeExpr(n.Then, valueCtx)
		w.write(" ELSE ")
		w.writeExpr(n.Else, valueCtx)
		w.write(" END")
	case *sqlrel.Aggregate:
		w.writeAggregate(n)
	case *sqlrel.IsNull:
		w.writeExpr(n.Expr, valueCtx)
		w.write(" IS NULL")
	case *sqlrel.Between:
		w.writeExpr(n.Expr, valueCtx)
		w.write(" BETWEEN ")
		w.writeExpr(n.Lower, valueCtx)
		w.write(" AND ")
		w.writeExpr(n.Upper, valueCtx)
	case *sqlrel.Exists:
		w.write("EXISTS(")
		w.writeSubquery(n.Select)
		w.write(")")
	case *sqlrel.Scalar:
		w.write("(")
		w.writeSubquery(n.Select)
		w.write(")")
	case *sqlrel.In:
		w.writeIn(n)
	default:
		w.unsupported(e)
	}
}

func (w *writer) writeSubquery(sel *sqlrel.Select) {
	w.depth++
	w.newline()
	w.writeSelect(sel)
	w.depth--
	w.newline()
}

func (w *writer) writeIn(n *sqlrel.In) {
	w.writeExpr(n.Expr, valueCtx)
	w.write(" IN ")
	if n.Select != nil {
		w.write("(")
		w.writeSubquery(n.Select)
		w.write(")")
		return
	}
	w.write("(")
	for i, v := range n.Values {
		if i > 0 {
			w.write(", ")
		}
		w.writeExpr(v, valueCtx)
	}
	w.write(")")
}

func (w *writer) writeColumn(c *sqlrel.Column) {
	name, ok := w.names[c.Alias]
	if !ok {
		if w.opts.Debug {
			w.writef("?Col?(a%d.%s)", c.Alias, c.Name)
			return
		}
		w.fail("Column", fmt.Sprintf("column %s references a source outside the statement", c.Name))
		return
	}
	if name == "" {
		w.write(c.Name)
		return
	}
	w.write(name + "." + c.Name)
}

func (w *writer) writeConstant(c *expr.Constant) {
	switch v := c.Value.(type) {
	case nil:
		w.write("NULL")
	case bool:
		if v {
			w.write("1")
		} else {
			w.write("0")
		}
	case int64:
		w.write(strconv.FormatInt(v, 10))
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		// A float literal must read back as a float.
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		w.write(s)
	case string:
		w.write("'" + strings.ReplaceAll(v, "'", "''") + "'")
	case time.Time:
		w.write("'" + v.UTC().Format(time.RFC3339) + "'")
	case []byte:
		w.writef("X'%x'", v)
	default:
		w.fail("Constant", fmt.Sprintf("no SQL literal for %T", c.Value))
	}
}

// binarySpelling picks the SQL operator, choosing logical vs bitwise forms
// for And/Or from the operand types.
func (w *writer) binarySpelling(n *expr.Binary) (string, bool) {
	switch n.BinOp {
	case expr.BinEq:
		return "=", true
	case expr.BinNe:
		return "<>", true
	case expr.BinLt:
		return "<", true
	case expr.BinLe:
		return "<=", true
	case expr.BinGt:
		return ">", true
	case expr.BinGe:
		return ">=", true
	case expr.BinAnd:
		if n.Left.Type().IsBool() {
			return "AND", true
		}
		return "&", true
	case expr.BinOr:
		if n.Left.Type().IsBool() {
			return "OR", true
		}
		return "|", true
	case expr.BinAdd:
		return "+", true
	case expr.BinSub:
		return "-", true
	case expr.BinMul:
		return "*", true
	case expr.BinDiv:
		return "/", true
	case expr.BinMod:
		return "%", true
	case expr.BinBitAnd:
		return "&", true
	case expr.BinBitOr:
		return "|", true
	case expr.BinConcat:
		return "||", true
	default:
		return "", false
	}
}

func (w *writer) writeBinary(n *expr.Binary, ctx context) {
	// Equality against a literal null renders as IS [NOT] NULL.
	if n.BinOp == expr.BinEq || n.BinOp == expr.BinNe {
		if operand, ok := nullComparison(n); ok {
			w.writeExpr(operand, valueCtx)
			if n.BinOp == expr.BinEq {
				w.write(" IS NULL")
			} else {
				w.write(" IS NOT NULL")
			}
			return
		}
	}
	if n.BinOp == expr.BinBitXor {
		// SQLite has no xor operator.
		w.unsupported(n)
		return
	}
	op, ok := w.binarySpelling(n)
	if !ok {
		w.unsupported(n)
		return
	}
	operandCtx := valueCtx
	if op == "AND" || op == "OR" {
		operandCtx = predicateCtx
	}
	w.write("(")
	w.writeExpr(n.Left, operandCtx)
	w.write(" " + op + " ")
	w.writeExpr(n.Right, operandCtx)
	w.write(")")
}

func nullComparison(n *expr.Binary) (expr.Expr, bool) {
	if c, ok := n.Left.(*expr.Constant); ok && c.IsNull() {
		return n.Right, true
	}
	if c, ok := n.Right.(*expr.Constant); ok && c.IsNull() {
		return n.Left, true
	}
	return nil, false
}

func (w *writer) writeUnary(n *expr.Unary, ctx context) {
	switch n.UnOp {
	case expr.UnNot:
		w.write("NOT (")
		w.writeExpr(n.Operand, predicateCtx)
		w.write(")")
	case expr.UnNeg:
		w.write("-")
		w.writeOperand(n.Operand)
	case expr.UnBitNot:
		w.write("~")
		w.writeOperand(n.Operand)
	default:
		w.unsupported(n)
	}
}

// writeOperand parenthesizes compound operands of prefix operators.
func (w *writer) writeOperand(e expr.Expr) {
	switch e.(type) {
	case *expr.Constant, *sqlrel.Column, *sqlrel.NamedValue:
		w.writeExpr(e, valueCtx)
	default:
		w.write("(")
		w.writeExpr(e, valueCtx)
		w.write(")")
	}
}

func (w *writer) writeAggregate(a *sqlrel.Aggregate) {
	var fn string
	switch a.Name {
	case sqlrel.AggCount, sqlrel.AggLongCount:
		fn = "COUNT"
	case sqlrel.AggMin:
		fn = "MIN"
	case sqlrel.AggMax:
		fn = "MAX"
	case sqlrel.AggSum:
		fn = "SUM"
	case sqlrel.AggAverage:
		fn = "AVG"
	default:
		w.fail("Aggregate", fmt.Sprintf("unknown aggregate %q", a.Name))
		return
	}
	w.write(fn + "(")
	if a.Arg == nil {
		w.write("*")
	} else {
		if a.Distinct {
			w.write("DISTINCT ")
		}
		w.writeExpr(a.Arg, valueCtx)
	}
	w.write(")")
}

// writeCall maps the closed scalar method set to SQLite built-ins.
func (w *writer) writeCall(n *expr.Call) {
	arg := func(i int) expr.Expr { return n.Args[i] }
	switch n.Method {
	case "StartsWith":
		w.requireArgs(n, 2)
		w.write("(")
		w.writeExpr(arg(0), valueCtx)
		w.write(" LIKE ")
		w.writeExpr(arg(1), valueCtx)
		w.write(" || '%')")
	case "EndsWith":
		w.requireArgs(n, 2)
		w.write("(")
		w.writeExpr(arg(0), valueCtx)
		w.write(" LIKE '%' || ")
		w.writeExpr(arg(1), valueCtx)
		w.write(")")
	case "Contains":
		w.requireArgs(n, 2)
		w.write("(")
		w.writeExpr(arg(0), valueCtx)
		w.write(" LIKE '%' || ")
		w.writeExpr(arg(1), valueCtx)
		w.write(" || '%')")
	case "Substring":
		// The model's start index is zero-based; SUBSTR counts from 1.
		if len(n.Args) != 2 && len(n.Args) != 3 {
			w.fail("Call", "Substring takes a start and an optional length")
			return
		}
		w.write("SUBSTR(")
		w.writeExpr(arg(0), valueCtx)
		w.write(", ")
		w.writeShifted(arg(1))
		if len(n.Args) == 3 {
			w.write(", ")
			w.writeExpr(arg(2), valueCtx)
		}
		w.write(")")
	case "IndexOf":
		// INSTR counts from 1 and yields 0 on a miss, so the shift back
		// to zero-based makes a miss -1.
		w.requireArgs(n, 2)
		w.write("(INSTR(")
		w.writeExpr(arg(0), valueCtx)
		w.write(", ")
		w.writeExpr(arg(1), valueCtx)
		w.write(") - 1)")
	case "Concat":
		if len(n.Args) < 2 {
			w.fail("Call", "Concat takes at least two arguments")
			return
		}
		w.write("(")
		for i, a := range n.Args {
			if i > 0 {
				w.write(" || ")
			}
			w.writeExpr(a, valueCtx)
		}
		w.write(")")
	case "ToLower":
		w.writeFunc("LOWER", n, 1)
	case "ToUpper":
		w.writeFunc("UPPER", n, 1)
	case "Trim":
		w.writeFunc("TRIM", n, 1)
	case "Abs":
		w.writeFunc("ABS", n, 1)
	case "Round":
		if len(n.Args) == 2 {
			w.writeFunc("ROUND", n, 2)
			return
		}
		w.writeFunc("ROUND", n, 1)
	case "Ceiling":
		w.writeFunc("CEIL", n, 1)
	case "Floor":
		w.writeFunc("FLOOR", n, 1)
	case "Pow":
		w.writeFunc("POW", n, 2)
	default:
		w.unsupported(n)
	}
}

// writeShifted renders a zero-based index as its one-based SQL form,
// folding the shift into integer constants.
func (w *writer) writeShifted(e expr.Expr) {
	if c, ok := e.(*expr.Constant); ok {
		if v, ok := c.Value.(int64); ok {
			w.write(strconv.FormatInt(v+1, 10))
			return
		}
	}
	w.write("(")
	w.writeExpr(e, valueCtx)
	w.write(" + 1)")
}

func (w *writer) writeFunc(name string, n *expr.Call, argc int) {
	w.requireArgs(n, argc)
	w.write(name + "(")
	for i, a := range n.Args {
		if i > 0 {
			w.write(", ")
		}
		w.writeExpr(a, valueCtx)
	}
	w.write(")")
}

func (w *writer) requireArgs(n *expr.Call, argc int) {
	if len(n.Args) != argc {
		w.fail("Call", fmt.Sprintf("%s takes %d arguments, got %d", n.Method, argc, len(n.Args)))
	}
}

// writeMember renders the built-in member translations.
func (w *writer) writeMember(n *expr.Member) {
	switch n.Name {
	case "Length":
		w.write("LENGTH(")
		w.writeExpr(n.Expr, valueCtx)
		w.write(")")
	case "Year":
		w.writeDatePart("%Y", n.Expr)
	case "Month":
		w.writeDatePart("%m", n.Expr)
	case "Day":
		w.writeDatePart("%d", n.Expr)
	default:
		w.unsupported(n)
	}
}

func (w *writer) writeDatePart(part string, e expr.Expr) {
	w.write("CAST(STRFTIME('" + part + "', ")
	w.writeExpr(e, valueCtx)
	w.write(") AS INTEGER)")
}

// unsupported reports an unrenderable node, or emits a ?Kind?(...) marker
// in debug mode.
func (w *writer) unsupported(e expr.Expr) {
	if !w.opts.Debug {
		w.fail(string(e.Op()), "no SQL rendering")
		return
	}
	w.writef("?%s?(", e.Op())
	first := true
	child := func(c expr.Expr) {
		if c == nil {
			return
		}
		if !first {
			w.write(", ")
		}
		first = false
		w.writeExpr(c, valueCtx)
	}
	switch n := e.(type) {
	case *expr.Binary:
		child(n.Left)
		child(n.Right)
	case *expr.Unary:
		child(n.Operand)
	case *expr.Call:
		for _, a := range n.Args {
			child(a)
		}
	case *expr.Member:
		child(n.Expr)
	case *expr.New:
		for _, f := range n.Fields {
			child(f.Expr)
		}
	case *sqlrel.AggSubquery:
		child(n.Aggregate)
	}
	w.write(")")
}
