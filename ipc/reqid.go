// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipc

import (
	"math/rand"
	"sync"

	"safeapp.io/cache"
	"safeapp.io/log"
)

// DefaultInFlight is the number of outstanding request ids the default
// registry remembers.
const DefaultInFlight = 1024

// Registry hands out request ids. An id is never handed out while it is
// still in flight, that is, until Complete is called for it or it ages
// out after capacity newer requests. Ids are random and never zero, so
// zero can mean "no request" at the boundary.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex // Serialises Next so that the check and the add are atomic.
	inflight *cache.LRU[uint32, struct{}]
	random   func() uint32
}

// NewRegistry returns a registry that tracks up to capacity in-flight ids.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultInFlight
	}
	return &Registry{
		inflight: cache.NewLRU[uint32, struct{}](capacity),
		random:   rand.Uint32,
	}
}

// Next returns a fresh request id and marks it in flight.
func (r *Registry) Next() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		id := r.random()
		if id == 0 {
			continue
		}
		if r.inflight.Contains(id) {
			log.Debug.Printf("ipc: request id %d already in flight; drawing again", id)
			continue
		}
		if old, evicted := r.inflight.Add(id, struct{}{}); evicted {
			log.Debug.Printf("ipc: request id %d aged out unanswered", old)
		}
		return id
	}
}

// Complete marks id as answered, making it available for reuse.
// It reports whether id was in flight.
func (r *Registry) Complete(id uint32) bool {
	_, ok := r.inflight.Remove(id)
	return ok
}

// InFlight reports whether id has been handed out and not yet completed.
func (r *Registry) InFlight(id uint32) bool {
	return r.inflight.Contains(id)
}

var (
	defaultMu       sync.Mutex
	defaultRegistry = NewRegistry(DefaultInFlight)
)

// SetDefaultRegistry replaces the registry used by GenReqID and CompleteReqID.
func SetDefaultRegistry(r *Registry) {
	defaultMu.Lock()
	defaultRegistry = r
	defaultMu.Unlock()
}

func getDefaultRegistry() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRegistry
}

// GenReqID returns a fresh request id from the default registry.
func GenReqID() uint32 {
	return getDefaultRegistry().Next()
}

// CompleteReqID marks id as answered in the default registry.
func CompleteReqID(id uint32) bool {
	return getDefaultRegistry().Complete(id)
}

// ReqIDInFlight reports whether id is in flight in the default registry.
func ReqIDInFlight(id uint32) bool {
	return getDefaultRegistry().InFlight(id)
}
