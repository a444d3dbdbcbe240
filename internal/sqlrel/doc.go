// Package sqlrel defines the Relational Expression Model: the SQL-shaped
// intermediate AST the binder lowers general expressions into, the rewrite
// passes transform, and the formatter renders.
//
// Relational nodes implement expr.Expr so predicates, projections and join
// conditions can mix relational column references with general operators.
// The node set is closed: every pass handles all of it with exhaustive type
// switches, and a node kind outside the set is a hard error wherever it is
// encountered.
//
// Trees are immutable after construction. Rewrite passes build new trees
// and share unchanged subtrees; nothing mutates a node in place.
package sqlrel
