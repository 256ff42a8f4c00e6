// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffi

import (
	"safeapp.io/errors"
	"safeapp.io/objectcache"
	"safeapp.io/session"
)

// The functions below operate on collections held in a session's object
// cache. Each runs on the session's worker and reports through its
// completion, which is called exactly once, on the worker unless the
// session is closed. Slices passed to completions and visitors are
// borrowed and valid only for the duration of the call.

// MDataEntriesNew creates an empty entries collection.
func MDataEntriesNew(s *session.Session, o func(Result, objectcache.EntriesHandle)) {
	const op errors.Op = "ffi.MDataEntriesNew"
	catchUnwindCb(op, func(res Result) { o(res, 0) }, func() error {
		session.Call(s, func(c *objectcache.Cache) (objectcache.EntriesHandle, error) {
			return c.InsertEntries(objectcache.NewEntries()), nil
		}, func(h objectcache.EntriesHandle, err error) {
			o(resultOf(err), h)
		})
		return nil
	})
}

// MDataEntriesInsert inserts key with content at version 0, replacing any
// existing entry for key.
func MDataEntriesInsert(s *session.Session, h objectcache.EntriesHandle, key, content []byte, o func(Result)) {
	const op errors.Op = "ffi.MDataEntriesInsert"
	catchUnwindCb(op, o, func() error {
		key := append([]byte(nil), key...)
		v := objectcache.Value{Content: append([]byte(nil), content...)}
		session.Call(s, func(c *objectcache.Cache) (struct{}, error) {
			e, err := c.Entries(h)
			if err != nil {
				return struct{}{}, errors.E(op, err)
			}
			e.Insert(key, v)
			return struct{}{}, nil
		}, func(_ struct{}, err error) {
			o(resultOf(err))
		})
		return nil
	})
}

// MDataEntriesLen reports the number of entries.
func MDataEntriesLen(s *session.Session, h objectcache.EntriesHandle, o func(Result, int)) {
	const op errors.Op = "ffi.MDataEntriesLen"
	catchUnwindCb(op, func(res Result) { o(res, 0) }, func() error {
		session.Call(s, func(c *objectcache.Cache) (int, error) {
			e, err := c.Entries(h)
			if err != nil {
				return 0, errors.E(op, err)
			}
			return e.Len(), nil
		}, func(n int, err error) {
			o(resultOf(err), n)
		})
		return nil
	})
}

// MDataEntriesGet looks up key. It fails with NoSuchEntry if key is absent.
func MDataEntriesGet(s *session.Session, h objectcache.EntriesHandle, key []byte, o func(res Result, content []byte, version uint64)) {
	const op errors.Op = "ffi.MDataEntriesGet"
	catchUnwindCb(op, func(res Result) { o(res, nil, 0) }, func() error {
		key := append([]byte(nil), key...)
		session.Call(s, func(c *objectcache.Cache) (objectcache.Value, error) {
			e, err := c.Entries(h)
			if err != nil {
				return objectcache.Value{}, errors.E(op, err)
			}
			v, ok := e.Get(key)
			if !ok {
				return objectcache.Value{}, errors.E(op, errors.NoSuchEntry, errors.Errorf("key %x", key))
			}
			return v, nil
		}, func(v objectcache.Value, err error) {
			o(resultOf(err), v.Content, v.EntryVersion)
		})
		return nil
	})
}

// MDataEntriesForEach calls visit for every entry in ascending key order,
// then o. An invalid handle fails before any visit.
func MDataEntriesForEach(s *session.Session, h objectcache.EntriesHandle, visit func(key, content []byte, version uint64), o func(Result)) {
	const op errors.Op = "ffi.MDataEntriesForEach"
	catchUnwindCb(op, o, func() error {
		session.Call(s, func(c *objectcache.Cache) (struct{}, error) {
			e, err := c.Entries(h)
			if err != nil {
				return struct{}{}, errors.E(op, err)
			}
			e.Range(func(key []byte, v objectcache.Value) {
				visit(key, v.Content, v.EntryVersion)
			})
			return struct{}{}, nil
		}, func(_ struct{}, err error) {
			o(resultOf(err))
		})
		return nil
	})
}

// MDataEntriesListKeys stores the keys of the entries as a new keys
// collection.
func MDataEntriesListKeys(s *session.Session, h objectcache.EntriesHandle, o func(Result, objectcache.KeysHandle)) {
	const op errors.Op = "ffi.MDataEntriesListKeys"
	catchUnwindCb(op, func(res Result) { o(res, 0) }, func() error {
		session.Call(s, func(c *objectcache.Cache) (objectcache.KeysHandle, error) {
			e, err := c.Entries(h)
			if err != nil {
				return 0, errors.E(op, err)
			}
			return c.InsertKeys(e.Keys()), nil
		}, func(kh objectcache.KeysHandle, err error) {
			o(resultOf(err), kh)
		})
		return nil
	})
}

// MDataEntriesListValues stores the values of the entries, in key order,
// as a new values collection.
func MDataEntriesListValues(s *session.Session, h objectcache.EntriesHandle, o func(Result, objectcache.ValuesHandle)) {
	const op errors.Op = "ffi.MDataEntriesListValues"
	catchUnwindCb(op, func(res Result) { o(res, 0) }, func() error {
		session.Call(s, func(c *objectcache.Cache) (objectcache.ValuesHandle, error) {
			e, err := c.Entries(h)
			if err != nil {
				return 0, errors.E(op, err)
			}
			return c.InsertValues(e.Values()), nil
		}, func(vh objectcache.ValuesHandle, err error) {
			o(resultOf(err), vh)
		})
		return nil
	})
}

// MDataEntriesFree releases the entries collection. The handle is
// never valid again.
func MDataEntriesFree(s *session.Session, h objectcache.EntriesHandle, o func(Result)) {
	const op errors.Op = "ffi.MDataEntriesFree"
	catchUnwindCb(op, o, func() error {
		session.Call(s, func(c *objectcache.Cache) (struct{}, error) {
			if _, err := c.RemoveEntries(h); err != nil {
				return struct{}{}, errors.E(op, err)
			}
			return struct{}{}, nil
		}, func(_ struct{}, err error) {
			o(resultOf(err))
		})
		return nil
	})
}

// MDataKeysLen reports the number of keys.
func MDataKeysLen(s *session.Session, h objectcache.KeysHandle, o func(Result, int)) {
	const op errors.Op = "ffi.MDataKeysLen"
	catchUnwindCb(op, func(res Result) { o(res, 0) }, func() error {
		session.Call(s, func(c *objectcache.Cache) (int, error) {
			ks, err := c.Keys(h)
			if err != nil {
				return 0, errors.E(op, err)
			}
			return ks.Len(), nil
		}, func(n int, err error) {
			o(resultOf(err), n)
		})
		return nil
	})
}

// MDataKeysForEach calls visit for every key in ascending order, then o.
func MDataKeysForEach(s *session.Session, h objectcache.KeysHandle, visit func(key []byte), o func(Result)) {
	const op errors.Op = "ffi.MDataKeysForEach"
	catchUnwindCb(op, o, func() error {
		session.Call(s, func(c *objectcache.Cache) (struct{}, error) {
			ks, err := c.Keys(h)
			if err != nil {
				return struct{}{}, errors.E(op, err)
			}
			ks.Range(visit)
			return struct{}{}, nil
		}, func(_ struct{}, err error) {
			o(resultOf(err))
		})
		return nil
	})
}

// MDataKeysFree releases the keys collection.
func MDataKeysFree(s *session.Session, h objectcache.KeysHandle, o func(Result)) {
	const op errors.Op = "ffi.MDataKeysFree"
	catchUnwindCb(op, o, func() error {
		session.Call(s, func(c *objectcache.Cache) (struct{}, error) {
			if _, err := c.RemoveKeys(h); err != nil {
				return struct{}{}, errors.E(op, err)
			}
			return struct{}{}, nil
		}, func(_ struct{}, err error) {
			o(resultOf(err))
		})
		return nil
	})
}

// MDataValuesLen reports the number of values.
func MDataValuesLen(s *session.Session, h objectcache.ValuesHandle, o func(Result, int)) {
	const op errors.Op = "ffi.MDataValuesLen"
	catchUnwindCb(op, func(res Result) { o(res, 0) }, func() error {
		session.Call(s, func(c *objectcache.Cache) (int, error) {
			vs, err := c.Values(h)
			if err != nil {
				return 0, errors.E(op, err)
			}
			return len(vs), nil
		}, func(n int, err error) {
			o(resultOf(err), n)
		})
		return nil
	})
}

// MDataValuesForEach calls visit for every value in sequence order, then o.
func MDataValuesForEach(s *session.Session, h objectcache.ValuesHandle, visit func(content []byte, version uint64), o func(Result)) {
	const op errors.Op = "ffi.MDataValuesForEach"
	catchUnwindCb(op, o, func() error {
		session.Call(s, func(c *objectcache.Cache) (struct{}, error) {
			vs, err := c.Values(h)
			if err != nil {
				return struct{}{}, errors.E(op, err)
			}
			for _, v := range vs {
				visit(v.Content, v.EntryVersion)
			}
			return struct{}{}, nil
		}, func(_ struct{}, err error) {
			o(resultOf(err))
		})
		return nil
	})
}

// MDataValuesFree releases the values collection.
func MDataValuesFree(s *session.Session, h objectcache.ValuesHandle, o func(Result)) {
	const op errors.Op = "ffi.MDataValuesFree"
	catchUnwindCb(op, o, func() error {
		session.Call(s, func(c *objectcache.Cache) (struct{}, error) {
			if _, err := c.RemoveValues(h); err != nil {
				return struct{}{}, errors.E(op, err)
			}
			return struct{}{}, nil
		}, func(_ struct{}, err error) {
			o(resultOf(err))
		})
		return nil
	})
}
