// Package expr defines the general-purpose expression language that query
// translation consumes.
//
// An expression tree describes a chained sequence of declarative query
// operations (filtering, projection, joining, grouping, ordering,
// aggregation) as plain data. The tree is built by a front-end query layer
// or by tooling, handed to the binder (internal/binder), lowered into the
// relational model (internal/sqlrel), and finally formatted as SQL
// (internal/sqlfmt).
//
// Trees are immutable after construction. Nothing in this package mutates a
// node once built; transformations produce new trees and share unchanged
// subtrees.
package expr
