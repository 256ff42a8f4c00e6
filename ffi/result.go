// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ffi is the boundary surface of the library: the functions an
// application in another runtime calls to encode IPC requests, decode
// IPC responses and work with cached mutable data collections.
//
// No function in this package panics or returns a Go error. Every failure
// is reported as a Result carrying a stable negative error code and a
// description, and every asynchronous operation calls its completion
// exactly once.
package ffi // import "safeapp.io/ffi"

import (
	"safeapp.io/config"
	"safeapp.io/errors"
	"safeapp.io/ipc"
	"safeapp.io/log"
)

// Result is the outcome of a boundary call.
type Result struct {
	// ErrorCode is zero on success and one of the negative codes
	// defined by package errors otherwise.
	ErrorCode int32
	// Description is a human-readable account of the failure.
	Description string
}

// ResultOK is the Result of a successful call.
var ResultOK = Result{}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.ErrorCode == errors.CodeOK
}

func (r Result) String() string {
	if r.OK() {
		return "ok"
	}
	return r.Description
}

// resultOf converts err into a Result.
func resultOf(err error) Result {
	if err == nil {
		return ResultOK
	}
	return Result{
		ErrorCode:   errors.Code(err),
		Description: err.Error(),
	}
}

// panicked converts a recovered panic value into an Internal error.
func panicked(op errors.Op, r interface{}) error {
	log.Error.Printf("%s: recovered from panic: %v", op, r)
	return errors.E(op, errors.Internal, errors.Errorf("panic: %v", r))
}

// catchUnwind runs f and converts its error, or a panic inside it,
// into a Result.
func catchUnwind(op errors.Op, f func() error) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = resultOf(panicked(op, r))
		}
	}()
	return resultOf(f())
}

// catchUnwindCb runs f. If f fails or panics, the failure is delivered to
// cb. On success f itself is responsible for calling cb, directly or by
// handing it to a session.
func catchUnwindCb(op errors.Op, cb func(Result), f func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = panicked(op, r)
			}
		}()
		err = f()
	}()
	if err != nil {
		cb(resultOf(err))
	}
}

// Init applies cfg to the library: it sets the logging level and sizes the
// request id registry used by the Encode functions. A nil cfg selects the
// defaults.
func Init(cfg config.Config) Result {
	const op errors.Op = "ffi.Init"
	return catchUnwind(op, func() error {
		if cfg == nil {
			cfg = config.New()
		}
		if err := log.SetLevel(cfg.LogLevel()); err != nil {
			return errors.E(op, errors.Invalid, err)
		}
		ipc.SetDefaultRegistry(ipc.NewRegistry(cfg.InFlight()))
		log.Debug.Printf("%s: log level %s, %d in-flight requests", op, cfg.LogLevel(), cfg.InFlight())
		return nil
	})
}
