// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"safeapp.io/errors"
	"safeapp.io/ffi"
	"safeapp.io/objectcache"
	"safeapp.io/session"
	"safeapp.io/subcmd"
)

func entries(s *subcmd.State, args ...string) {
	const help = `
Entries creates an entries collection in a fresh session, inserts each
key=value argument into it and prints the collection in key order, one
"key version value" line per entry. With -keys or -values it lists the
keys or the values instead, through a derived collection.
`
	fs := flag.NewFlagSet("entries", flag.ExitOnError)
	keys := fs.Bool("keys", false, "list the keys only")
	values := fs.Bool("values", false, "list the values only")
	s.ParseFlags(fs, args, help, "entries [-keys|-values] key=value...")
	if *keys && *values {
		s.Exitf("-keys and -values are mutually exclusive")
	}
	if err := listEntries(s.Session, s.Stdout, fs.Args(), *keys, *values); err != nil {
		s.Exit(err)
	}
}

// call runs an asynchronous ffi operation and waits for its result.
func call(op errors.Op, f func(o func(ffi.Result))) error {
	ch := make(chan ffi.Result, 1)
	f(func(res ffi.Result) { ch <- res })
	if res := <-ch; !res.OK() {
		return errors.E(op, errors.KindForCode(res.ErrorCode), errors.Str(res.Description))
	}
	return nil
}

// free runs a free operation and stores its error in *errp unless
// *errp already holds one. It is meant to be deferred.
func free(op errors.Op, errp *error, f func(o func(ffi.Result))) {
	if err := call(op, f); err != nil && *errp == nil {
		*errp = err
	}
}

// listEntries loads pairs into a new entries collection of sess and writes
// the requested listing to w. All collections it creates are freed; a
// failed free is reported if nothing else went wrong first.
func listEntries(sess *session.Session, w io.Writer, pairs []string, keysOnly, valuesOnly bool) (err error) {
	const op errors.Op = "listEntries"

	hc := make(chan objectcache.EntriesHandle, 1)
	var h objectcache.EntriesHandle
	err = call(op, func(o func(ffi.Result)) {
		ffi.MDataEntriesNew(sess, func(res ffi.Result, eh objectcache.EntriesHandle) {
			hc <- eh
			o(res)
		})
	})
	if err != nil {
		return err
	}
	h = <-hc
	defer free(op, &err, func(o func(ffi.Result)) { ffi.MDataEntriesFree(sess, h, o) })

	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return errors.E(op, errors.Invalid, errors.Errorf("%q: want key=value", p))
		}
		if err = call(op, func(o func(ffi.Result)) { ffi.MDataEntriesInsert(sess, h, []byte(k), []byte(v), o) }); err != nil {
			return err
		}
	}

	// Output is collected on the worker and written afterwards, so that
	// visitors do not block.
	var out []string
	switch {
	case keysOnly:
		kc := make(chan objectcache.KeysHandle, 1)
		err = call(op, func(o func(ffi.Result)) {
			ffi.MDataEntriesListKeys(sess, h, func(res ffi.Result, kh objectcache.KeysHandle) {
				kc <- kh
				o(res)
			})
		})
		if err != nil {
			return err
		}
		kh := <-kc
		defer free(op, &err, func(o func(ffi.Result)) { ffi.MDataKeysFree(sess, kh, o) })
		err = call(op, func(o func(ffi.Result)) {
			ffi.MDataKeysForEach(sess, kh, func(key []byte) { out = append(out, string(key)) }, o)
		})
		if err != nil {
			return err
		}
	case valuesOnly:
		vc := make(chan objectcache.ValuesHandle, 1)
		err = call(op, func(o func(ffi.Result)) {
			ffi.MDataEntriesListValues(sess, h, func(res ffi.Result, vh objectcache.ValuesHandle) {
				vc <- vh
				o(res)
			})
		})
		if err != nil {
			return err
		}
		vh := <-vc
		defer free(op, &err, func(o func(ffi.Result)) { ffi.MDataValuesFree(sess, vh, o) })
		err = call(op, func(o func(ffi.Result)) {
			ffi.MDataValuesForEach(sess, vh, func(content []byte, version uint64) {
				out = append(out, string(content))
			}, o)
		})
		if err != nil {
			return err
		}
	default:
		err = call(op, func(o func(ffi.Result)) {
			ffi.MDataEntriesForEach(sess, h, func(key, content []byte, version uint64) {
				out = append(out, fmt.Sprintf("%s %d %s", key, version, content))
			}, o)
		})
		if err != nil {
			return err
		}
	}
	for _, line := range out {
		fmt.Fprintln(w, line)
	}
	return nil
}
