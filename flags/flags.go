// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flags defines command-line flags to make them consistent between binaries.
package flags // import "safeapp.io/flags"

import (
	"flag"

	"safeapp.io/log"
)

// We define the flags in two steps so clients don't have to write *flags.Flag.
// It also makes the documentation easier to read.

var (
	// Config names the YAML configuration file to use.
	// If empty, the default configuration is used.
	Config = ""

	// Log sets the level of logging. When given, it overrides the
	// loglevel of the configuration file.
	Log logFlag
)

type logFlag struct {
	level string
	set   bool
}

// String implements flag.Value.
func (l *logFlag) String() string {
	return l.level
}

// Set implements flag.Value.
func (l *logFlag) Set(level string) error {
	if err := log.SetLevel(level); err != nil {
		return err
	}
	l.level = log.GetLevel()
	l.set = true
	return nil
}

// IsSet reports whether the flag was given on the command line.
func (l *logFlag) IsSet() bool {
	return l.set
}

func init() {
	Log.level = log.GetLevel()
	flag.StringVar(&Config, "config", Config, "YAML configuration `file` to use")
	flag.Var(&Log, "log", "`level` of logging: debug, info, error, disabled")
}
