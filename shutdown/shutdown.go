// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shutdown runs registered handlers when the process exits,
// whether through Now or on SIGTERM or interrupt. Sessions register
// here so that their workers drain or reject queued operations before
// the process goes away.
package shutdown // import "safeapp.io/shutdown"

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"safeapp.io/log"
)

// GracePeriod is how long the handlers together may run before the
// process is terminated anyway.
const GracePeriod = 30 * time.Second

// Handle registers fn to run at shutdown. Handlers run in reverse order
// of registration. Handle may be called concurrently.
func Handle(fn func()) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.handlers = append(state.handlers, fn)
}

// HandleClose registers c to be closed at shutdown. A failure to close
// is logged.
func HandleClose(name string, c io.Closer) {
	Handle(func() {
		if err := c.Close(); err != nil {
			log.Error.Printf("shutdown: closing %s: %v", name, err)
		}
	})
}

// Now runs the registered handlers and exits the process with the given
// status code. Only the first call has any effect; later calls block
// until the process exits. If the handlers do not finish within
// GracePeriod the process exits with status 1.
func Now(code int) {
	state.once.Do(func() {
		log.Debug.Printf("shutdown: exiting with status %d", code)

		go func() {
			killSleep(GracePeriod)
			// The log may have been flushed already.
			fmt.Fprintf(os.Stderr, "shutdown: handlers still running after %v; exiting\n", GracePeriod)
			os.Exit(1)
		}()

		state.mu.Lock() // Held until exit; no more handlers may register.
		for i := len(state.handlers) - 1; i >= 0; i-- {
			state.handlers[i]()
		}
		os.Exit(code)
	})
	select {}
}

// killSleep is replaced by tests.
var killSleep = time.Sleep

var state struct {
	mu       sync.Mutex
	handlers []func()
	once     sync.Once
}

func init() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, os.Interrupt)
	go func() {
		sig := <-c
		log.Error.Printf("shutdown: received %v", sig)
		Now(1)
	}()

	// Registered first so that it runs last.
	Handle(log.Flush)
}
