// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Safeipc encodes and decodes the IPC messages exchanged between an
// application and the authenticator, and exercises the object cache
// of a session.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"safeapp.io/config"
	"safeapp.io/ffi"
	"safeapp.io/flags"
	"safeapp.io/log"
	"safeapp.io/metric"
	"safeapp.io/subcmd"
)

const intro = `
The safeipc command works with the messages an application exchanges
with the authenticator. The encode subcommand builds a request and
prints its request id and encoded form; the decode subcommand decodes
responses and reports the outcome of each; the entries subcommand
loads key/value pairs into a session's object cache and lists them back.

The global flags -config and -log select the configuration file and the
logging level. Each subcommand has a -help flag that explains it in
more detail.
`

var commands = map[string]func(*subcmd.State, ...string){
	"encode":  encode,
	"decode":  decode,
	"entries": entries,
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}
	name := flag.Arg(0)
	fn := commands[name]
	if fn == nil {
		fmt.Fprintf(os.Stderr, "safeipc: no such command %q\n", name)
		usage()
	}

	s := subcmd.NewState(name)
	cfg, err := loadConfig(flags.Config)
	if err != nil {
		s.Exit(err)
	}
	if res := ffi.Init(cfg); !res.OK() {
		s.Exitf("%s", res)
	}
	if log.At("debug") {
		metric.RegisterSaver(metric.NewLogSaver())
	}
	s.Init(cfg)
	fn(s, flag.Args()[1:]...)
	s.ExitNow()
}

// loadConfig reads the named configuration file, or returns the defaults
// if name is empty. A -log flag overrides the file's log level.
func loadConfig(name string) (config.Config, error) {
	var cfg config.Config
	var err error
	if name == "" {
		cfg, err = config.InitConfig(nil)
	} else {
		cfg, err = config.FromFile(subcmd.Tilde(name))
	}
	if err != nil {
		return nil, err
	}
	if flags.Log.IsSet() {
		cfg = config.SetLogLevel(cfg, flags.Log.String())
	}
	return cfg, nil
}

func usage() {
	fmt.Fprint(os.Stderr, intro, "\n")
	fmt.Fprintln(os.Stderr, "Usage: safeipc [globalflags] <command> [flags] <args>")
	var cmds []string
	for name := range commands {
		cmds = append(cmds, name)
	}
	sort.Strings(cmds)
	fmt.Fprintf(os.Stderr, "\tCommands: %s\n", strings.Join(cmds, ", "))
	fmt.Fprintln(os.Stderr, "Global flags:")
	flag.PrintDefaults()
	os.Exit(2)
}
