// Package binder is the expression translator: it walks a general
// expression tree outside-in along the chain of query operators and lowers
// it into the relational model.
//
// Each recognized operator either extends the current select (adding a
// predicate, appending order entries, replacing columns) or wraps it in a
// fresh outer select when the existing one already carries a conflicting
// clause: filtering after a LIMIT must wrap, because SQL has no way to
// filter the limited rows in the same block.
//
// Binding leaves AggregateSubquery markers behind for group-scoped
// aggregates; the passes in internal/rewrite collapse them. Any operator or
// member outside the supported closed set fails translation immediately;
// there is no fallback path.
package binder
