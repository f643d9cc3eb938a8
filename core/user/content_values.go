package user

import "sort"

// ContentValues is a column name to value write set. Order is irrelevant
// and putting an existing key overwrites it.
type ContentValues map[string]any

// Put sets a value.
func (cv ContentValues) Put(key string, value any) { cv[key] = value }

// Get returns a value and whether it is present.
func (cv ContentValues) Get(key string) (any, bool) {
	v, ok := cv[key]
	return v, ok
}

// Remove deletes a key.
func (cv ContentValues) Remove(key string) { delete(cv, key) }

// Len returns the number of keys.
func (cv ContentValues) Len() int { return len(cv) }

// Keys returns the keys sorted, so generated SQL is deterministic.
func (cv ContentValues) Keys() []string {
	keys := make([]string, 0, len(cv))
	for k := range cv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
