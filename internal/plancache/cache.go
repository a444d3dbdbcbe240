// Package plancache memoizes formatted command text by structural query
// signature. Signatures hash constant values along with structure, since
// constants render as SQL literals; only named-parameter bindings vary
// freely under one cached plan.
package plancache

import "sync"

// Entry is one cached plan: the formatted command text and the named
// parameters it expects, in first-appearance order.
type Entry struct {
	CommandText string
	ParamNames  []string
}

// Cache is a process-wide, read-mostly plan store. The zero value is ready
// to use. Lookups and inserts are safe for concurrent use; a lost race
// recomputes an identical entry, so overwrites are harmless.
type Cache struct {
	plans sync.Map
}

// Get returns the cached entry for a signature, if present.
func (c *Cache) Get(signature string) (Entry, bool) {
	v, ok := c.plans.Load(signature)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

// Put stores an entry for a signature, keeping the first writer's value
// when two compilations race.
func (c *Cache) Put(signature string, e Entry) Entry {
	v, _ := c.plans.LoadOrStore(signature, e)
	return v.(Entry)
}

// Len counts cached plans. Intended for tests and diagnostics.
func (c *Cache) Len() int {
	n := 0
	c.plans.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
