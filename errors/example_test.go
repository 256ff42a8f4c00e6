// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors_test

import (
	"fmt"

	"safeapp.io/errors"
)

func ExampleError() {
	// Single error.
	e1 := errors.E(errors.Op("objectcache.Get"), errors.NoSuchEntry, "key0")
	fmt.Println("\nSimple error:")
	fmt.Println(e1)

	// Nested error.
	fmt.Println("\nNested error:")
	e2 := errors.E(errors.Op("ffi.MDataEntriesGet"), errors.Other, e1)
	fmt.Println(e2)

	// Output:
	//
	// Simple error:
	// objectcache.Get: no such entry: key0
	//
	// Nested error:
	// ffi.MDataEntriesGet: no such entry:
	//	objectcache.Get: key0
}

func ExampleMatch() {
	err := errors.Str("handle 12 not found")

	// Construct an error, one we pretend to have received from a test.
	got := errors.E(errors.Op("objectcache.Free"), errors.InvalidHandle, err)

	// Now construct a reference error, which might not have all
	// the fields of the error from the test.
	expect := errors.E(errors.InvalidHandle, err)

	fmt.Println("Match:", errors.Match(expect, got))

	// Now one that's incorrect - wrong Kind.
	got = errors.E(errors.Op("objectcache.Free"), errors.NoSuchEntry, err)

	fmt.Println("Mismatch:", errors.Match(expect, got))

	// Output:
	//
	// Match: true
	// Mismatch: false
}
