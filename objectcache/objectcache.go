// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package objectcache holds the handle-addressed resources of a session:
// mutable data entries, key sets and value lists.
//
// Handles are drawn from a single counter that only increases, so a
// handle is never reused while the cache lives and a handle of one kind
// never names a resource of another kind. A Cache is not safe for
// concurrent use; the session confines it to its worker goroutine.
package objectcache // import "safeapp.io/objectcache"

import (
	"sort"

	"safeapp.io/errors"
)

// Handle is an opaque token naming a resource in a Cache.
// The zero Handle is never allocated.
type Handle uint64

// EntriesHandle names an Entries resource.
type EntriesHandle Handle

// KeysHandle names a Keys resource.
type KeysHandle Handle

// ValuesHandle names a Values resource.
type ValuesHandle Handle

// Value is the content of a mutable data entry and its version.
type Value struct {
	Content      []byte
	EntryVersion uint64
}

// Entries is a mapping from key to Value, iterated in ascending
// byte-lexicographic key order.
type Entries struct {
	m map[string]Value
}

// NewEntries returns an empty Entries.
func NewEntries() *Entries {
	return &Entries{m: make(map[string]Value)}
}

// Insert sets the value of key, replacing any existing value.
func (e *Entries) Insert(key []byte, v Value) {
	e.m[string(key)] = v
}

// Get returns the value of key.
func (e *Entries) Get(key []byte) (Value, bool) {
	v, ok := e.m[string(key)]
	return v, ok
}

// Len returns the number of entries.
func (e *Entries) Len() int {
	return len(e.m)
}

func (e *Entries) sortedKeys() []string {
	keys := make([]string, 0, len(e.m))
	for k := range e.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Range calls fn for each entry in ascending key order.
// The slices passed to fn are valid only for the duration of the call.
func (e *Entries) Range(fn func(key []byte, v Value)) {
	for _, k := range e.sortedKeys() {
		fn([]byte(k), e.m[k])
	}
}

// Keys returns the key set of e.
func (e *Entries) Keys() *Keys {
	ks := NewKeys()
	for k := range e.m {
		ks.m[k] = struct{}{}
	}
	return ks
}

// Values returns the values of e, in key order.
func (e *Entries) Values() Values {
	vs := make(Values, 0, len(e.m))
	for _, k := range e.sortedKeys() {
		vs = append(vs, e.m[k])
	}
	return vs
}

// Keys is a set of keys, iterated in ascending byte-lexicographic order.
type Keys struct {
	m map[string]struct{}
}

// NewKeys returns a set holding the given keys.
func NewKeys(keys ...[]byte) *Keys {
	ks := &Keys{m: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		ks.m[string(k)] = struct{}{}
	}
	return ks
}

// Len returns the number of keys.
func (ks *Keys) Len() int {
	return len(ks.m)
}

// Contains reports whether key is in the set.
func (ks *Keys) Contains(key []byte) bool {
	_, ok := ks.m[string(key)]
	return ok
}

// Range calls fn for each key in ascending order.
// The slice passed to fn is valid only for the duration of the call.
func (ks *Keys) Range(fn func(key []byte)) {
	keys := make([]string, 0, len(ks.m))
	for k := range ks.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn([]byte(k))
	}
}

// Values is a list of values in their original order.
type Values []Value

// Cache maps handles to resources.
type Cache struct {
	last    Handle
	entries map[EntriesHandle]*Entries
	keys    map[KeysHandle]*Keys
	values  map[ValuesHandle]Values
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[EntriesHandle]*Entries),
		keys:    make(map[KeysHandle]*Keys),
		values:  make(map[ValuesHandle]Values),
	}
}

func (c *Cache) next() Handle {
	c.last++
	return c.last
}

// Len returns the number of live resources of all kinds.
func (c *Cache) Len() int {
	return len(c.entries) + len(c.keys) + len(c.values)
}

func invalidHandle(op errors.Op, h Handle) error {
	return errors.E(op, errors.InvalidHandle, errors.Errorf("handle %d", h))
}

// InsertEntries adds e to the cache and returns its handle.
func (c *Cache) InsertEntries(e *Entries) EntriesHandle {
	h := EntriesHandle(c.next())
	c.entries[h] = e
	return h
}

// Entries returns the resource named by h.
func (c *Cache) Entries(h EntriesHandle) (*Entries, error) {
	e, ok := c.entries[h]
	if !ok {
		return nil, invalidHandle("objectcache.Entries", Handle(h))
	}
	return e, nil
}

// RemoveEntries frees the resource named by h and returns it.
func (c *Cache) RemoveEntries(h EntriesHandle) (*Entries, error) {
	e, ok := c.entries[h]
	if !ok {
		return nil, invalidHandle("objectcache.RemoveEntries", Handle(h))
	}
	delete(c.entries, h)
	return e, nil
}

// InsertKeys adds ks to the cache and returns its handle.
func (c *Cache) InsertKeys(ks *Keys) KeysHandle {
	h := KeysHandle(c.next())
	c.keys[h] = ks
	return h
}

// Keys returns the resource named by h.
func (c *Cache) Keys(h KeysHandle) (*Keys, error) {
	ks, ok := c.keys[h]
	if !ok {
		return nil, invalidHandle("objectcache.Keys", Handle(h))
	}
	return ks, nil
}

// RemoveKeys frees the resource named by h and returns it.
func (c *Cache) RemoveKeys(h KeysHandle) (*Keys, error) {
	ks, ok := c.keys[h]
	if !ok {
		return nil, invalidHandle("objectcache.RemoveKeys", Handle(h))
	}
	delete(c.keys, h)
	return ks, nil
}

// InsertValues adds vs to the cache and returns its handle.
func (c *Cache) InsertValues(vs Values) ValuesHandle {
	h := ValuesHandle(c.next())
	c.values[h] = vs
	return h
}

// Values returns the resource named by h.
func (c *Cache) Values(h ValuesHandle) (Values, error) {
	vs, ok := c.values[h]
	if !ok {
		return nil, invalidHandle("objectcache.Values", Handle(h))
	}
	return vs, nil
}

// RemoveValues frees the resource named by h and returns it.
func (c *Cache) RemoveValues(h ValuesHandle) (Values, error) {
	vs, ok := c.values[h]
	if !ok {
		return nil, invalidHandle("objectcache.RemoveValues", Handle(h))
	}
	delete(c.values, h)
	return vs, nil
}
