// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config creates a session configuration from various sources.
package config // import "safeapp.io/config"

import (
	"safeapp.io/errors"
)

// Teardown says what a closing session does with operations that are
// still queued.
type Teardown int

const (
	// Reject completes every queued operation with a Disconnected error.
	Reject Teardown = iota
	// Drain runs every queued operation before the worker exits.
	Drain
)

func (t Teardown) String() string {
	switch t {
	case Reject:
		return "reject"
	case Drain:
		return "drain"
	}
	return "unknown"
}

// ParseTeardown returns the Teardown named by s.
func ParseTeardown(s string) (Teardown, error) {
	switch s {
	case "reject":
		return Reject, nil
	case "drain":
		return Drain, nil
	}
	return Reject, errors.E(errors.Invalid, errors.Errorf("unknown teardown %q", s))
}

// Config holds the settings of a boundary session.
type Config interface {
	// LogLevel is the level at which the library logs.
	LogLevel() string
	// Teardown is what Close does with queued operations.
	Teardown() Teardown
	// InFlight is the number of outstanding request ids remembered
	// by the request id registry.
	InFlight() int
}

// base implements Config, returning default values for all operations.
type base struct{}

func (base) LogLevel() string   { return defaultLogLevel }
func (base) Teardown() Teardown { return defaultTeardown }
func (base) InFlight() int      { return defaultInFlight }

// New returns a config with all fields set as defaults.
func New() Config {
	return base{}
}

var (
	defaultLogLevel = "info"
	defaultTeardown = Reject
	defaultInFlight = 1024
)

type cfgLogLevel struct {
	Config
	level string
}

func (cfg cfgLogLevel) LogLevel() string {
	return cfg.level
}

// SetLogLevel returns a config derived from the given config
// with the given log level.
func SetLogLevel(cfg Config, level string) Config {
	return cfgLogLevel{
		Config: cfg,
		level:  level,
	}
}

type cfgTeardown struct {
	Config
	teardown Teardown
}

func (cfg cfgTeardown) Teardown() Teardown {
	return cfg.teardown
}

// SetTeardown returns a config derived from the given config
// with the given teardown policy.
func SetTeardown(cfg Config, t Teardown) Config {
	return cfgTeardown{
		Config:   cfg,
		teardown: t,
	}
}

type cfgInFlight struct {
	Config
	n int
}

func (cfg cfgInFlight) InFlight() int {
	return cfg.n
}

// SetInFlight returns a config derived from the given config
// with the given in-flight request capacity.
func SetInFlight(cfg Config, n int) Config {
	return cfgInFlight{
		Config: cfg,
		n:      n,
	}
}
