package sqlrel

import "sync/atomic"

// Alias is the identity token tying a Column to its owning source within a
// query. Aliases compare by token value, never by display name: the same
// table can appear twice in one query (self-join) and each occurrence needs
// a distinct identity.
//
// Display names (t0, t1, ...) are assigned lazily at format time, in
// first-encountered order, scoped to a single formatting pass. An Alias
// itself carries no name.
type Alias int64

var aliasCounter atomic.Int64

// NewAlias returns a fresh, process-unique alias token.
func NewAlias() Alias {
	return Alias(aliasCounter.Add(1))
}
