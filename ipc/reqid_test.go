// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipc

import (
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestReqIDsUnique(t *testing.T) {
	r := NewRegistry(2000)
	seen := make(map[uint32]bool)
	for i := 0; i < 1000; i++ {
		id := r.Next()
		if id == 0 {
			t.Fatal("Next returned zero")
		}
		if seen[id] {
			t.Fatalf("request id %d issued twice", id)
		}
		seen[id] = true
	}
}

func TestReqIDsUniqueConcurrent(t *testing.T) {
	r := NewRegistry(4096)
	var (
		mu   sync.Mutex
		seen = make(map[uint32]bool)
		g    errgroup.Group
	)
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 250; i++ {
				id := r.Next()
				mu.Lock()
				dup := seen[id]
				seen[id] = true
				mu.Unlock()
				if dup {
					t.Errorf("request id %d issued twice", id)
				}
			}
			return nil
		})
	}
	g.Wait()
	if len(seen) != 2000 {
		t.Errorf("issued %d distinct ids; want 2000", len(seen))
	}
}

// sequence returns a generator that yields ids in order, then repeats the last.
func sequence(ids ...uint32) func() uint32 {
	i := 0
	return func() uint32 {
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id
	}
}

func TestNextSkipsInFlight(t *testing.T) {
	r := NewRegistry(10)
	r.random = sequence(5, 0, 5, 6)
	if id := r.Next(); id != 5 {
		t.Fatalf("first id = %d; want 5", id)
	}
	if id := r.Next(); id != 6 {
		t.Fatalf("second id = %d; want 6 (zero and 5 must be skipped)", id)
	}
	if !r.InFlight(5) || !r.InFlight(6) {
		t.Fatal("issued ids not in flight")
	}
	if !r.Complete(5) {
		t.Fatal("Complete(5) = false")
	}
	if r.Complete(5) {
		t.Fatal("second Complete(5) = true")
	}
	r.random = sequence(5)
	if id := r.Next(); id != 5 {
		t.Fatalf("id after completion = %d; want 5", id)
	}
}

func TestInFlightAgesOut(t *testing.T) {
	r := NewRegistry(2)
	r.random = sequence(1, 2, 3)
	r.Next()
	r.Next()
	r.Next()
	if r.InFlight(1) {
		t.Error("oldest id still in flight past capacity")
	}
	if !r.InFlight(2) || !r.InFlight(3) {
		t.Error("recent ids not in flight")
	}
}

func TestDefaultRegistry(t *testing.T) {
	defer SetDefaultRegistry(getDefaultRegistry())
	r := NewRegistry(4)
	r.random = sequence(42)
	SetDefaultRegistry(r)
	if id := GenReqID(); id != 42 {
		t.Fatalf("GenReqID = %d; want 42", id)
	}
	if !CompleteReqID(42) {
		t.Fatal("CompleteReqID(42) = false")
	}
}
